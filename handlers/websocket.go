package handlers

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:    1024,
	WriteBufferSize:   1024,
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: false,
}

// overflowLimit bounds how far a slow reader may fall behind before it is
// disconnected.
const overflowLimit = 1024

// HandleWebSocket upgrades signaling connections and attaches them to hub.
func HandleWebSocket(hub *Hub) http.HandlerFunc {
	messageQueue := NewMessageQueue(overflowLimit)

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("[WS] Error upgrading to WebSocket:", err)
			return
		}

		client := NewClient(conn, generateClientID(), hub, messageQueue)
		log.Printf("[WS] User connected: %s (%s)", conn.RemoteAddr(), client.ID())

		go client.WritePump()
		hub.Connect(client)
		go client.ReadPump()
	}
}

func generateClientID() string {
	return uuid.New().String()
}
