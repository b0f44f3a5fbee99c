// Package models participant.go
package models

import (
	"net/netip"
)

// Position is a participant's location as carried on the datagram channel.
type Position struct {
	X uint32 `json:"x"`
	Y uint32 `json:"y"`
}

type Participant struct {
	ID       string         `json:"id"`
	Endpoint netip.AddrPort `json:"endpoint"`
	Position Position       `json:"position"`
}

// ParticipantState is the read-only view served by the roster endpoint.
type ParticipantState struct {
	ID       string   `json:"id"`
	Index    int      `json:"index"`
	Endpoint string   `json:"endpoint"`
	Position Position `json:"position"`
}
