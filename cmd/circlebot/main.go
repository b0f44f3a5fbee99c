// Command circlebot is a headless participant: it steers its circle along a
// fixed pattern, runs the motion model at the configured frame rate and logs
// what it sees of the other participants.
package main

import (
	"context"
	"flag"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/4cecoder/circlesync/client"
	"github.com/4cecoder/circlesync/config"
)

const shutdownWait = 1500 * time.Millisecond

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	flag.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "signaling websocket url")
	flag.StringVar(&cfg.LocalUDPAddr, "udp", cfg.LocalUDPAddr, "local udp bind address")
	turn := flag.Duration("turn", 3*time.Second, "time for one full turn of the steering pattern")
	report := flag.Duration("report", 2*time.Second, "roster log interval")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := client.NewSession(cfg)
	if err != nil {
		log.Fatal(err)
	}
	world := client.NewWorld(cfg)
	world.Local.X, world.Local.Y = cfg.ArenaWidth/2, cfg.ArenaHeight/2

	netDone := make(chan struct{})
	go func() {
		defer close(netDone)
		if err := session.Run(ctx); err != nil {
			log.Printf("[NET] thread exit: %v", err)
		}
	}()

	frames := time.NewTicker(time.Second / time.Duration(cfg.FPS))
	defer frames.Stop()
	reports := time.NewTicker(*report)
	defer reports.Stop()

	start := time.Now()
	last := start
	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case now := <-frames.C:
			dt := now.Sub(last)
			last = now
			angle := 2 * math.Pi * now.Sub(start).Seconds() / turn.Seconds()

			world.Drain(session.Updates())
			world.Step(dt, math.Cos(angle), math.Sin(angle))
			session.SetLocal(world.Local.X, world.Local.Y)
		case <-reports.C:
			log.Printf("[BOT] at (%.0f, %.0f), %d peers", world.Local.X, world.Local.Y, world.Roster.Len())
			for i, s := range world.Roster.Slots() {
				log.Printf("[BOT]   %d %s (%.0f, %.0f)", i, s.ID, s.Entity.X, s.Entity.Y)
			}
		}
	}

	select {
	case <-netDone:
	case <-time.After(shutdownWait):
		log.Println("[NET] network goroutines did not stop in time")
	}
}
