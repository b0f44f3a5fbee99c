// Package protocol holds the signaling events and the datagram layout shared by
// the relay server and its clients.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
)

const (
	EventEndpointRequest  = "endpoint_request"
	EventEndpointResponse = "endpoint_response"
	EventRosterSnapshot   = "roster_snapshot"
	EventPeerJoined       = "peer_joined"
	EventPeerLeft         = "peer_left"
	EventRosterSync       = "roster_sync"
	EventError            = "error"
)

// Event is one JSON text frame on the signaling channel. Each event type
// always carries its own fields, zero values included; fields it does not use
// are omitted.
type Event struct {
	Event   string   `json:"event"`
	IP      string   `json:"ip,omitempty"`
	Port    int      `json:"port,omitempty"`
	Count   int      `json:"count,omitempty"`
	Index   int      `json:"index,omitempty"`
	ID      string   `json:"id,omitempty"`
	IDs     []string `json:"ids,omitempty"`
	Message string   `json:"message,omitempty"`
}

var ErrNoEvent = errors.New("message has no event type")

type endpointPayload struct {
	Event string `json:"event"`
	IP    string `json:"ip"`
	Port  int    `json:"port"`
}

type snapshotPayload struct {
	Event string   `json:"event"`
	Count int      `json:"count"`
	IDs   []string `json:"ids"`
}

type peerLeftPayload struct {
	Event string `json:"event"`
	ID    string `json:"id"`
	Index int    `json:"index"`
}

type rosterSyncPayload struct {
	Event string   `json:"event"`
	IDs   []string `json:"ids"`
}

// MarshalJSON writes the field set that belongs to e's event type.
func (e Event) MarshalJSON() ([]byte, error) {
	ids := e.IDs
	if ids == nil {
		ids = []string{}
	}
	switch e.Event {
	case EventEndpointRequest, EventEndpointResponse:
		return json.Marshal(endpointPayload{Event: e.Event, IP: e.IP, Port: e.Port})
	case EventRosterSnapshot:
		return json.Marshal(snapshotPayload{Event: e.Event, Count: e.Count, IDs: ids})
	case EventPeerLeft:
		return json.Marshal(peerLeftPayload{Event: e.Event, ID: e.ID, Index: e.Index})
	case EventRosterSync:
		return json.Marshal(rosterSyncPayload{Event: e.Event, IDs: ids})
	}
	type plain Event
	return json.Marshal(plain(e))
}

func Encode(e Event) ([]byte, error) {
	if e.Event == "" {
		return nil, ErrNoEvent
	}
	return json.Marshal(e)
}

func Decode(b []byte) (Event, error) {
	if len(b) == 0 {
		return Event{}, fmt.Errorf("decode event: empty message")
	}
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if e.Event == "" {
		return Event{}, ErrNoEvent
	}
	return e, nil
}

func EndpointRequest(addr netip.AddrPort) Event {
	return Event{Event: EventEndpointRequest, IP: addr.Addr().String(), Port: int(addr.Port())}
}

func EndpointResponse(addr netip.AddrPort) Event {
	return Event{Event: EventEndpointResponse, IP: addr.Addr().String(), Port: int(addr.Port())}
}

func RosterSnapshot(ids []string) Event {
	return Event{Event: EventRosterSnapshot, Count: len(ids), IDs: ids}
}

func PeerJoined(id string) Event {
	return Event{Event: EventPeerJoined, ID: id}
}

func PeerLeft(id string, index int) Event {
	return Event{Event: EventPeerLeft, ID: id, Index: index}
}

func RosterSync(ids []string) Event {
	return Event{Event: EventRosterSync, IDs: ids}
}

func Error(message string) Event {
	return Event{Event: EventError, Message: message}
}

// Endpoint parses the ip/port pair carried by endpoint events.
func (e Event) Endpoint() (netip.AddrPort, error) {
	addr, err := netip.ParseAddr(e.IP)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("endpoint ip %q: %w", e.IP, err)
	}
	if e.Port <= 0 || e.Port > 0xFFFF {
		return netip.AddrPort{}, fmt.Errorf("endpoint port %d out of range", e.Port)
	}
	return netip.AddrPortFrom(addr.Unmap(), uint16(e.Port)), nil
}
