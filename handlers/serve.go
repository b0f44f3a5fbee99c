// Package handlers serve.go
package handlers

import (
	"encoding/json"
	"log"
	"net/http"
)

type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Registered  int    `json:"registered"`
}

// HandleRoster lists registered participants in roster order.
func HandleRoster(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(hub.Snapshot()); err != nil {
			log.Printf("[HTTP] roster encode error: %v", err)
		}
	}
}

func HandleHealth(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthResponse{
			Status:      "ok",
			Connections: hub.Connections(),
			Registered:  hub.Registered(),
		})
	}
}
