package physics

import (
	"fmt"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/avatarsim/internal/core/spatial"
)

// World is an in-memory Engine of sphere proxies. It integrates kinematic
// bodies with their velocity and reports collision enter events.
type World struct {
	mu       sync.RWMutex
	bodies   map[BodyID]*Body
	order    []BodyID
	contacts map[pairKey]struct{}
}

type pairKey struct{ a, b BodyID }

func makePair(a, b BodyID) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

// NewWorld creates an empty world.
func NewWorld() *World {
	return &World{
		bodies:   make(map[BodyID]*Body),
		contacts: make(map[pairKey]struct{}),
	}
}

var _ Engine = (*World)(nil)

func (w *World) AddBody(b Body) error {
	if b.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidBody)
	}
	if !(b.Radius > 0) {
		return fmt.Errorf("%w: %s: radius %v", ErrInvalidBody, b.ID, b.Radius)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.bodies[b.ID]; exists {
		return fmt.Errorf("%w: %s", ErrBodyExists, b.ID)
	}
	b.Rotation = spatial.SafeQuat(b.Rotation)
	w.bodies[b.ID] = &b
	w.order = append(w.order, b.ID)
	return nil
}

func (w *World) RemoveBody(id BodyID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.bodies[id]; !exists {
		return fmt.Errorf("%w: %s", ErrBodyNotFound, id)
	}
	delete(w.bodies, id)
	for i, other := range w.order {
		if other == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	for k := range w.contacts {
		if k.a == id || k.b == id {
			delete(w.contacts, k)
		}
	}
	return nil
}

func (w *World) HasBody(id BodyID) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.bodies[id]
	return ok
}

// Len returns the number of bodies.
func (w *World) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.order)
}

// Body returns a copy of a body.
func (w *World) Body(id BodyID) (Body, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b, ok := w.bodies[id]
	if !ok {
		return Body{}, false
	}
	return *b, true
}

func (w *World) Position(id BodyID) (mgl64.Vec3, bool) {
	b, ok := w.Body(id)
	return b.Position, ok
}

func (w *World) Velocity(id BodyID) (mgl64.Vec3, bool) {
	b, ok := w.Body(id)
	return b.Velocity, ok
}

func (w *World) Rotation(id BodyID) (mgl64.Quat, bool) {
	b, ok := w.Body(id)
	return b.Rotation, ok
}

func (w *World) SetPosition(id BodyID, p mgl64.Vec3) error {
	return w.mutate(id, func(b *Body) { b.Position = p })
}

func (w *World) SetVelocity(id BodyID, v mgl64.Vec3) error {
	return w.mutate(id, func(b *Body) { b.Velocity = v })
}

func (w *World) SetRotation(id BodyID, q mgl64.Quat) error {
	return w.mutate(id, func(b *Body) { b.Rotation = spatial.SafeQuat(q) })
}

func (w *World) mutate(id BodyID, fn func(*Body)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	b, ok := w.bodies[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBodyNotFound, id)
	}
	fn(b)
	return nil
}

// Step moves kinematic bodies, then reports every pair that overlaps now but
// did not overlap after the previous step. Each new contact yields two
// events, one from each body's point of view, in insertion order.
func (w *World) Step(dt float64) []CollisionEvent {
	w.mu.Lock()
	defer w.mu.Unlock()

	if dt > 0 && !math.IsInf(dt, 0) {
		for _, id := range w.order {
			b := w.bodies[id]
			if b.Type != Kinematic {
				continue
			}
			next := b.Position.Add(b.Velocity.Mul(dt))
			if spatial.Finite(next) {
				b.Position = next
			}
		}
	}

	var events []CollisionEvent
	touching := make(map[pairKey]struct{}, len(w.contacts))
	for i := 0; i < len(w.order); i++ {
		a := w.bodies[w.order[i]]
		for j := i + 1; j < len(w.order); j++ {
			b := w.bodies[w.order[j]]
			if !overlaps(a, b) {
				continue
			}
			key := makePair(a.ID, b.ID)
			touching[key] = struct{}{}
			if _, already := w.contacts[key]; already {
				continue
			}
			events = append(events, enter(a, b), enter(b, a))
		}
	}
	w.contacts = touching
	return events
}

func overlaps(a, b *Body) bool {
	r := a.Radius + b.Radius
	return a.Position.Sub(b.Position).LenSqr() <= r*r
}

// enter builds the event seen by self. The contact point lies on self's
// surface along the line between centres.
func enter(self, other *Body) CollisionEvent {
	point := self.Position
	if dir, ok := spatial.Normalize(other.Position.Sub(self.Position)); ok {
		point = self.Position.Add(dir.Mul(self.Radius))
	}
	return CollisionEvent{
		Self:          self.ID,
		SelfTag:       self.Tag,
		Other:         other.ID,
		OtherTag:      other.Tag,
		ContactPoint:  point,
		SelfVelocity:  self.Velocity,
		OtherVelocity: other.Velocity,
	}
}

// Distance returns the distance between two points.
func Distance(a, b mgl64.Vec3) float64 { return a.Sub(b).Len() }
