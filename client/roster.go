package client

import (
	"time"

	"github.com/4cecoder/circlesync/models"
	"github.com/4cecoder/circlesync/motion"
)

// Slot is one remote participant. ID is empty for peers announced by an older
// server that sends no identifiers.
type Slot struct {
	ID     string
	Entity *motion.Entity
}

// Roster mirrors the server's registry order, minus ourselves. Datagram pair i
// always belongs to slot i.
type Roster struct {
	slots  []Slot
	radius float64
	blend  time.Duration
}

func NewRoster(radius float64, blend time.Duration) *Roster {
	return &Roster{radius: radius, blend: blend}
}

func (r *Roster) newEntity() *motion.Entity {
	e := motion.NewRemote(0, 0, r.radius)
	e.Blend = r.blend
	return e
}

func (r *Roster) Len() int {
	return len(r.slots)
}

// Slots is valid until the next roster change and must not be modified.
func (r *Roster) Slots() []Slot {
	return r.slots
}

func (r *Roster) IDs() []string {
	ids := make([]string, len(r.slots))
	for i, s := range r.slots {
		ids[i] = s.ID
	}
	return ids
}

func (r *Roster) Append(id string) {
	r.slots = append(r.slots, Slot{ID: id, Entity: r.newEntity()})
}

// Remove drops the slot with the given id, or the slot at index when id is
// empty or unknown. It reports whether anything was removed.
func (r *Roster) Remove(id string, index int) bool {
	if id != "" {
		for i, s := range r.slots {
			if s.ID == id {
				r.removeAt(i)
				return true
			}
		}
	}
	if index < 0 || index >= len(r.slots) {
		return false
	}
	r.removeAt(index)
	return true
}

func (r *Roster) removeAt(i int) {
	r.slots = append(r.slots[:i], r.slots[i+1:]...)
}

// Sync rebuilds the roster to match ids exactly. Entities already known by id
// keep their position and blend state; anonymous slots are reused in order for
// ids not seen before.
func (r *Roster) Sync(ids []string) {
	known := make(map[string]*motion.Entity, len(r.slots))
	var anonymous []*motion.Entity
	for _, s := range r.slots {
		if s.ID == "" {
			anonymous = append(anonymous, s.Entity)
		} else {
			known[s.ID] = s.Entity
		}
	}

	slots := make([]Slot, len(ids))
	for i, id := range ids {
		e, ok := known[id]
		switch {
		case ok:
			delete(known, id)
		case len(anonymous) > 0:
			e, anonymous = anonymous[0], anonymous[1:]
		default:
			e = r.newEntity()
		}
		slots[i] = Slot{ID: id, Entity: e}
	}
	r.slots = slots
}

func (r *Roster) Reset() {
	r.slots = nil
}

// ApplyPositions schedules a move for each slot that has a matching pair.
// Extra pairs are ignored; the roster only grows through signaling.
func (r *Roster) ApplyPositions(positions []models.Position) int {
	n := min(len(positions), len(r.slots))
	for i := 0; i < n; i++ {
		r.slots[i].Entity.ScheduleMove(float64(positions[i].X), float64(positions[i].Y))
	}
	return n
}

func (r *Roster) Interpolate(dt time.Duration, arena motion.Arena) {
	for _, s := range r.slots {
		s.Entity.Interpolate(dt, arena)
	}
}
