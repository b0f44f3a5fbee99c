package client

import (
	"log"

	"github.com/4cecoder/circlesync/models"
)

// Update is a change published by the network goroutines and applied by the
// render loop, which is the only code that touches the roster.
type Update interface {
	Apply(r *Roster)
}

// RosterReset starts a fresh roster for a new signaling connection.
type RosterReset struct{}

func (RosterReset) Apply(r *Roster) { r.Reset() }

type RosterSnapshot struct {
	Count int
	IDs   []string
}

func (u RosterSnapshot) Apply(r *Roster) {
	if len(u.IDs) > 0 {
		for _, id := range u.IDs {
			r.Append(id)
		}
		return
	}
	for i := 0; i < u.Count; i++ {
		r.Append("")
	}
}

type PeerJoined struct {
	ID string
}

func (u PeerJoined) Apply(r *Roster) { r.Append(u.ID) }

type PeerLeft struct {
	ID    string
	Index int
}

func (u PeerLeft) Apply(r *Roster) {
	if !r.Remove(u.ID, u.Index) {
		log.Printf("[NET] peer_left for unknown slot id=%q index=%d (roster size %d)", u.ID, u.Index, r.Len())
	}
}

type RosterSync struct {
	IDs []string
}

func (u RosterSync) Apply(r *Roster) { r.Sync(u.IDs) }

type Positions []models.Position

func (u Positions) Apply(r *Roster) { r.ApplyPositions(u) }
