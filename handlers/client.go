// Package handlers/client.go
package handlers

import (
	"log"
	"sync"
	"time"

	"github.com/4cecoder/circlesync/protocol"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 1 << 16
	sendBufferSize = 64
)

// Client is the server side of one signaling connection.
type Client struct {
	id           string
	Conn         *websocket.Conn
	hub          *Hub
	send         chan []byte
	messageQueue *MessageQueue

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func NewClient(conn *websocket.Conn, id string, hub *Hub, messageQueue *MessageQueue) *Client {
	return &Client{
		id:           id,
		Conn:         conn,
		hub:          hub,
		send:         make(chan []byte, sendBufferSize),
		messageQueue: messageQueue,
		done:         make(chan struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Send queues an event for the write pump. Once anything has spilled into the
// overflow queue, later events follow it there so ordering is kept.
func (c *Client) Send(event protocol.Event) {
	message, err := protocol.Encode(event)
	if err != nil {
		log.Printf("[WS] encode %s for client %s: %v", event.Event, c.id, err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if c.messageQueue.QueueSize(c.id) == 0 {
		select {
		case c.send <- message:
			return
		default:
		}
	}
	if err := c.messageQueue.Enqueue(c.id, message); err != nil {
		log.Printf("[WS] client %s is not keeping up, closing: %v", c.id, err)
		_ = c.Conn.Close()
	}
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.close()
		log.Printf("[WS] User disconnected: %s", c.Conn.RemoteAddr())
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Connection closed unexpectedly: %v", err)
			}
			return
		}
		c.hub.HandleMessage(c, messageType == websocket.TextMessage, message)
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-c.send:
			if err := c.write(message); err != nil {
				log.Printf("[WS] error writing to client %s: %v", c.id, err)
				return
			}
			if err := c.flushQueue(); err != nil {
				log.Printf("[WS] error writing to client %s: %v", c.id, err)
				return
			}
		case <-ticker.C:
			if err := c.flushQueue(); err != nil {
				log.Printf("[WS] error writing to client %s: %v", c.id, err)
				return
			}
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// flushQueue writes overflowed messages, but only once the send buffer has
// drained, since everything in the buffer is older.
func (c *Client) flushQueue() error {
	c.mu.Lock()
	var pending [][]byte
	if len(c.send) == 0 {
		pending = c.messageQueue.DequeueAll(c.id)
	}
	c.mu.Unlock()

	for _, message := range pending {
		if err := c.write(message); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) write(message []byte) error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(websocket.TextMessage, message)
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	c.messageQueue.ClearQueue(c.id)
}
