package handlers

import (
	"context"
	"log"
	"net/netip"
	"sync"
	"time"

	"github.com/4cecoder/circlesync/models"
	"github.com/4cecoder/circlesync/protocol"
)

// Conn is one open signaling connection as the hub sees it.
type Conn interface {
	ID() string
	// Send must not block.
	Send(event protocol.Event)
}

// Hub owns the session registry. Every registry mutation and the
// notifications it causes happen under one lock, so all peers observe roster
// changes in the same order.
type Hub struct {
	mu        sync.Mutex
	registry  *Registry
	conns     map[string]Conn // all open signaling connections, registered or not
	relayAddr netip.AddrPort
}

func NewHub() *Hub {
	return &Hub{
		registry: NewRegistry(),
		conns:    make(map[string]Conn),
	}
}

// SetRelayAddr enables endpoint discovery for new connections.
func (h *Hub) SetRelayAddr(addr netip.AddrPort) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.relayAddr = addr
}

func (h *Hub) Connect(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c.ID()] = c
	if h.relayAddr.IsValid() {
		c.Send(protocol.EndpointRequest(h.relayAddr))
	}
}

// HandleMessage processes one inbound signaling frame. Protocol violations are
// answered with an error event; the connection stays open.
func (h *Hub) HandleMessage(c Conn, text bool, message []byte) {
	if !text {
		log.Printf("[WS] invalid message type from %s", c.ID())
		c.Send(protocol.Error("Invalid message type"))
		return
	}
	event, err := protocol.Decode(message)
	if err != nil {
		log.Printf("[WS] bad message from %s: %v", c.ID(), err)
		c.Send(protocol.Error("Invalid message"))
		return
	}
	if event.Event != protocol.EventEndpointResponse {
		c.Send(protocol.Error("Invalid event type"))
		return
	}
	endpoint, err := event.Endpoint()
	if err != nil {
		c.Send(protocol.Error(err.Error()))
		return
	}
	if err := h.Register(c, endpoint); err != nil {
		log.Printf("[WS] registration of %s rejected: %v", c.ID(), err)
		c.Send(protocol.Error(err.Error()))
	}
}

// Register binds c to a datagram endpoint and announces it to the roster.
func (h *Hub) Register(c Conn, endpoint netip.AddrPort) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := c.ID()
	if _, open := h.conns[id]; !open {
		return ErrNotRegistered
	}
	existing, err := h.registry.Join(id, endpoint)
	if err != nil {
		return err
	}
	log.Printf("[WS] registered client %s with UDP %s", id, endpoint)

	c.Send(protocol.RosterSnapshot(existing))
	for _, peerID := range existing {
		if peer, ok := h.conns[peerID]; ok {
			peer.Send(protocol.PeerJoined(id))
		}
	}
	return nil
}

// Disconnect removes c and tells every remaining participant which slot to drop.
func (h *Hub) Disconnect(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := c.ID()
	delete(h.conns, id)
	departures, ok := h.registry.Leave(id)
	if !ok {
		return
	}
	for _, d := range departures {
		if peer, ok := h.conns[d.PeerID]; ok {
			peer.Send(protocol.PeerLeft(id, d.Index))
		}
	}
	log.Printf("[WS] client %s left, %d remaining", id, h.registry.Len())
}

// Relay applies one position datagram and builds the reply for its sender.
func (h *Hub) Relay(from netip.AddrPort, datagram []byte) ([]byte, bool) {
	pos, err := protocol.UnpackOne(datagram)
	if err != nil {
		return nil, false
	}
	from = netip.AddrPortFrom(from.Addr().Unmap(), from.Port())

	h.mu.Lock()
	others, ok := h.registry.Relay(from, pos)
	h.mu.Unlock()
	if !ok {
		return nil, false
	}
	return protocol.Pack(others), true
}

// Resync sends every registered participant its full roster in registry order.
func (h *Hub) Resync() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, id := range h.registry.IDs() {
		if c, ok := h.conns[id]; ok {
			c.Send(protocol.RosterSync(h.registry.RosterFor(id)))
		}
	}
}

func (h *Hub) RunResync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.Resync()
		}
	}
}

func (h *Hub) Snapshot() []models.ParticipantState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.Snapshot()
}

// Registered reports the number of participants in the roster.
func (h *Hub) Registered() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.Len()
}

// Connections reports every open signaling connection, registered or not.
func (h *Hub) Connections() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close tears the registry down. Open connections are left to their own
// read loops, which end when the listener shuts down.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.registry = NewRegistry()
	h.conns = make(map[string]Conn)
}
