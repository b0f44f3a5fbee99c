package handlers

import (
	"errors"
	"net/netip"

	"github.com/4cecoder/circlesync/models"
)

var (
	ErrAlreadyRegistered = errors.New("connection already registered")
	ErrEndpointInUse     = errors.New("datagram endpoint already registered")
	ErrNotRegistered     = errors.New("connection not registered")
)

// Registry holds the registered participants in join order. That order is the
// roster index numbering every client mirrors: entries are only ever appended
// or deleted, never reordered. Registry is not safe for concurrent use; the Hub
// owns it and serializes access.
type Registry struct {
	order      []*models.Participant
	byID       map[string]*models.Participant
	byEndpoint map[netip.AddrPort]*models.Participant
}

func NewRegistry() *Registry {
	return &Registry{
		byID:       make(map[string]*models.Participant),
		byEndpoint: make(map[netip.AddrPort]*models.Participant),
	}
}

// Join appends a participant at the origin. It returns the IDs of the
// participants that were already registered, in registry order.
func (r *Registry) Join(id string, endpoint netip.AddrPort) ([]string, error) {
	if _, ok := r.byID[id]; ok {
		return nil, ErrAlreadyRegistered
	}
	if _, ok := r.byEndpoint[endpoint]; ok {
		return nil, ErrEndpointInUse
	}
	existing := r.IDs()
	p := &models.Participant{ID: id, Endpoint: endpoint}
	r.order = append(r.order, p)
	r.byID[id] = p
	r.byEndpoint[endpoint] = p
	return existing, nil
}

// Departure tells one remaining participant which of its roster slots to drop.
type Departure struct {
	PeerID string
	Index  int
}

// Leave removes a participant. The returned departures are computed against the
// order before removal: a peer ordered ahead of the leaver sees it one slot
// earlier, since the peer's own entry is not in its roster.
func (r *Registry) Leave(id string) ([]Departure, bool) {
	gone := r.Index(id)
	if gone < 0 {
		return nil, false
	}
	departures := make([]Departure, 0, len(r.order)-1)
	for i, p := range r.order {
		if i == gone {
			continue
		}
		index := gone
		if i < gone {
			index = gone - 1
		}
		departures = append(departures, Departure{PeerID: p.ID, Index: index})
	}

	p := r.order[gone]
	r.order = append(r.order[:gone], r.order[gone+1:]...)
	delete(r.byID, id)
	delete(r.byEndpoint, p.Endpoint)
	return departures, true
}

// Relay stores the sender's position and returns every other participant's
// position in registry order. ok is false for unknown senders.
func (r *Registry) Relay(from netip.AddrPort, pos models.Position) ([]models.Position, bool) {
	sender, ok := r.byEndpoint[from]
	if !ok {
		return nil, false
	}
	sender.Position = pos
	others := make([]models.Position, 0, len(r.order)-1)
	for _, p := range r.order {
		if p != sender {
			others = append(others, p.Position)
		}
	}
	return others, true
}

func (r *Registry) Index(id string) int {
	for i, p := range r.order {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (r *Registry) Registered(id string) bool {
	_, ok := r.byID[id]
	return ok
}

func (r *Registry) Len() int {
	return len(r.order)
}

func (r *Registry) IDs() []string {
	ids := make([]string, len(r.order))
	for i, p := range r.order {
		ids[i] = p.ID
	}
	return ids
}

// RosterFor is the roster as seen by id: everyone else, in registry order.
func (r *Registry) RosterFor(id string) []string {
	ids := make([]string, 0, len(r.order))
	for _, p := range r.order {
		if p.ID != id {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func (r *Registry) Position(id string) (models.Position, bool) {
	p, ok := r.byID[id]
	if !ok {
		return models.Position{}, false
	}
	return p.Position, true
}

func (r *Registry) Snapshot() []models.ParticipantState {
	out := make([]models.ParticipantState, len(r.order))
	for i, p := range r.order {
		out[i] = models.ParticipantState{
			ID:       p.ID,
			Index:    i,
			Endpoint: p.Endpoint.String(),
			Position: p.Position,
		}
	}
	return out
}
