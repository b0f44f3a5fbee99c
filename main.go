package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/4cecoder/circlesync/config"
	"github.com/4cecoder/circlesync/handlers"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
)

func newRouter(hub *handlers.Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ws", handlers.HandleWebSocket(hub))
	r.Get("/roster", handlers.HandleRoster(hub))
	r.Get("/health", handlers.HandleHealth(hub))
	return r
}

// server is the signaling listener, the relay socket and the hub they share.
type server struct {
	cfg   config.Config
	hub   *handlers.Hub
	relay *handlers.Relay
	ln    net.Listener
	srv   *http.Server
}

func newServer(cfg config.Config) (*server, error) {
	hub := handlers.NewHub()
	relay, err := handlers.ListenRelay(cfg.RelayAddr, hub)
	if err != nil {
		return nil, err
	}
	advertise := relay.Addr()
	if cfg.RelayAdvertise != "" {
		advertise, err = netip.ParseAddrPort(cfg.RelayAdvertise)
		if err != nil {
			_ = relay.Close()
			return nil, fmt.Errorf("RELAY_ADVERTISE: %w", err)
		}
	}
	hub.SetRelayAddr(advertise)

	ln, err := net.Listen("tcp", cfg.SignalAddr)
	if err != nil {
		_ = relay.Close()
		return nil, fmt.Errorf("listen %s: %w", cfg.SignalAddr, err)
	}
	return &server{
		cfg:   cfg,
		hub:   hub,
		relay: relay,
		ln:    ln,
		srv:   &http.Server{Handler: newRouter(hub)},
	}, nil
}

// run serves until ctx is cancelled. It returns once the HTTP server has shut
// down and the relay socket is closed.
func (s *server) run(ctx context.Context) error {
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		if err := s.relay.Run(ctx); err != nil {
			log.Printf("[UDP] relay stopped: %v", err)
		}
	}()
	go s.hub.RunResync(ctx, s.cfg.ResyncInterval)

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		_ = s.relay.Close()
	}()

	log.Printf("[WS] WebSocket server running on ws://%s/ws", s.ln.Addr())
	if err := s.srv.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_ = s.relay.Close()
		return err
	}
	<-shutdownDone
	<-relayDone
	s.hub.Close()
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	flag.StringVar(&cfg.SignalAddr, "signal", cfg.SignalAddr, "websocket listen address")
	flag.StringVar(&cfg.RelayAddr, "relay", cfg.RelayAddr, "udp relay listen address")
	flag.StringVar(&cfg.RelayAdvertise, "advertise", cfg.RelayAdvertise, "udp address handed to clients (default: bound address)")
	flag.DurationVar(&cfg.ResyncInterval, "resync", cfg.ResyncInterval, "full roster resync interval, 0 disables")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := newServer(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if err := s.run(ctx); err != nil {
		log.Fatal(err)
	}
}
