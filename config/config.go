// Package config reads runtime settings from the environment, optionally seeded
// from a .env file.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	SignalAddr     string        // SIGNAL_ADDR, websocket listener
	RelayAddr      string        // RELAY_ADDR, udp listener
	RelayAdvertise string        // RELAY_ADVERTISE, address handed to clients, defaults to the bound one
	ResyncInterval time.Duration // RESYNC_INTERVAL

	// Client
	ServerURL      string        // SERVER_URL
	LocalUDPAddr   string        // LOCAL_UDP_ADDR
	SendInterval   time.Duration // SEND_INTERVAL
	ReconnectDelay time.Duration // RECONNECT_DELAY
	BlendDuration  time.Duration // BLEND_DURATION
	ArenaWidth     float64       // ARENA_WIDTH
	ArenaHeight    float64       // ARENA_HEIGHT
	FPS            int           // FPS
}

func Default() Config {
	return Config{
		SignalAddr:     "127.0.0.1:8888",
		RelayAddr:      "127.0.0.1:9999",
		ResyncInterval: 5 * time.Second,
		ServerURL:      "ws://127.0.0.1:8888/ws",
		LocalUDPAddr:   "127.0.0.1:0",
		SendInterval:   50 * time.Millisecond,
		ReconnectDelay: time.Second,
		BlendDuration:  50 * time.Millisecond,
		ArenaWidth:     800,
		ArenaHeight:    600,
		FPS:            60,
	}
}

// Load applies .env (if present) and the process environment on top of the
// defaults.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("[CONFIG] no .env loaded:", err)
	}

	c := Default()
	var err error
	str(&c.SignalAddr, "SIGNAL_ADDR")
	str(&c.RelayAddr, "RELAY_ADDR")
	str(&c.RelayAdvertise, "RELAY_ADVERTISE")
	str(&c.ServerURL, "SERVER_URL")
	str(&c.LocalUDPAddr, "LOCAL_UDP_ADDR")
	if err = duration(&c.ResyncInterval, "RESYNC_INTERVAL"); err != nil {
		return c, err
	}
	if err = positiveDuration(&c.SendInterval, "SEND_INTERVAL"); err != nil {
		return c, err
	}
	if err = positiveDuration(&c.ReconnectDelay, "RECONNECT_DELAY"); err != nil {
		return c, err
	}
	if err = duration(&c.BlendDuration, "BLEND_DURATION"); err != nil {
		return c, err
	}
	if err = float(&c.ArenaWidth, "ARENA_WIDTH"); err != nil {
		return c, err
	}
	if err = float(&c.ArenaHeight, "ARENA_HEIGHT"); err != nil {
		return c, err
	}
	if v := os.Getenv("FPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return c, fmt.Errorf("FPS=%q: want a positive integer", v)
		}
		c.FPS = n
	}
	return c, nil
}

func str(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func duration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, v, err)
	}
	*dst = d
	return nil
}

// positiveDuration is duration for values that drive a ticker or timer.
func positiveDuration(dst *time.Duration, key string) error {
	if err := duration(dst, key); err != nil {
		return err
	}
	if *dst <= 0 {
		return fmt.Errorf("%s=%q: want a positive duration", key, os.Getenv(key))
	}
	return nil
}

func float(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, v, err)
	}
	*dst = f
	return nil
}
