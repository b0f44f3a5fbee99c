// Package motion moves circles around the arena: local entities follow input
// directly, remote entities blend toward positions received from the relay.
package motion

import (
	"math"
	"time"

	"github.com/tanema/gween/ease"
)

const (
	DefaultRadius = 24
	DefaultSpeed  = 300.0 // pixels per second
	DefaultBlend  = 50 * time.Millisecond
)

// Arena is the playfield. A zero Arena disables clamping.
type Arena struct {
	Width  float64
	Height float64
}

type Entity struct {
	X, Y   float64
	Radius float64

	// Local entities only.
	VX, VY float64

	// Remote entities only.
	Blend            time.Duration
	Ease             ease.TweenFunc
	startX, startY   float64
	targetX, targetY float64
	progress         float64
}

func NewLocal(x, y, radius float64) *Entity {
	return &Entity{X: x, Y: y, Radius: radius}
}

func NewRemote(x, y, radius float64) *Entity {
	return &Entity{
		X:        x,
		Y:        y,
		Radius:   radius,
		Blend:    DefaultBlend,
		Ease:     ease.Linear,
		startX:   x,
		startY:   y,
		targetX:  x,
		targetY:  y,
		progress: 1,
	}
}

// Steer sets the velocity from an input direction. Diagonals are normalized so
// they are no faster than straight moves.
func (e *Entity) Steer(dirX, dirY, speed float64) {
	if dirX == 0 && dirY == 0 {
		e.VX, e.VY = 0, 0
		return
	}
	mag := math.Hypot(dirX, dirY)
	e.VX = dirX / mag * speed
	e.VY = dirY / mag * speed
}

func (e *Entity) Advance(dt time.Duration, arena Arena) {
	s := dt.Seconds()
	e.X += e.VX * s
	e.Y += e.VY * s
	e.Clamp(arena)
}

// ScheduleMove starts a blend from wherever the entity is drawn now, not from
// the previous target.
func (e *Entity) ScheduleMove(x, y float64) {
	e.startX, e.startY = e.X, e.Y
	e.targetX, e.targetY = x, y
	e.progress = 0
}

func (e *Entity) Interpolate(dt time.Duration, arena Arena) {
	if e.progress < 1 {
		t := 1.0
		if e.Blend > 0 {
			e.progress += float64(dt) / float64(e.Blend)
			if e.progress > 1 {
				e.progress = 1
			}
			t = e.curve(e.progress)
		} else {
			e.progress = 1
		}
		e.X = e.startX + (e.targetX-e.startX)*t
		e.Y = e.startY + (e.targetY-e.startY)*t
	}
	e.Clamp(arena)
}

// Settled reports whether the last scheduled move has finished.
func (e *Entity) Settled() bool {
	return e.progress >= 1
}

func (e *Entity) Target() (float64, float64) {
	return e.targetX, e.targetY
}

func (e *Entity) curve(p float64) float64 {
	if p >= 1 {
		return 1
	}
	if e.Ease == nil {
		return p
	}
	return float64(e.Ease(float32(p), 0, 1, 1))
}

func (e *Entity) Clamp(arena Arena) {
	if arena.Width <= 0 || arena.Height <= 0 {
		return
	}
	e.X = math.Max(e.Radius, math.Min(arena.Width-e.Radius, e.X))
	e.Y = math.Max(e.Radius, math.Min(arena.Height-e.Radius, e.Y))
}
