package client

import (
	"time"

	"github.com/4cecoder/circlesync/config"
	"github.com/4cecoder/circlesync/motion"
)

// World is the render-side state: the local circle and the remote roster. It
// is owned by a single goroutine.
type World struct {
	Arena  motion.Arena
	Speed  float64
	Local  *motion.Entity
	Roster *Roster
}

func NewWorld(cfg config.Config) *World {
	return &World{
		Arena:  motion.Arena{Width: cfg.ArenaWidth, Height: cfg.ArenaHeight},
		Speed:  motion.DefaultSpeed,
		Local:  motion.NewLocal(0, 0, motion.DefaultRadius),
		Roster: NewRoster(motion.DefaultRadius, cfg.BlendDuration),
	}
}

// Drain applies every update waiting on ch without blocking.
func (w *World) Drain(ch <-chan Update) int {
	n := 0
	for {
		select {
		case u := <-ch:
			u.Apply(w.Roster)
			n++
		default:
			return n
		}
	}
}

// Step advances one frame: the local circle follows the input direction, the
// remote ones blend toward their latest targets.
func (w *World) Step(dt time.Duration, dirX, dirY float64) {
	w.Local.Steer(dirX, dirY, w.Speed)
	w.Local.Advance(dt, w.Arena)
	w.Roster.Interpolate(dt, w.Arena)
}
