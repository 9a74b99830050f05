package sim

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/avatarsim/internal/core/effects"
	"github.com/zeusync/avatarsim/internal/core/enemy"
	"github.com/zeusync/avatarsim/internal/core/events/bus"
	"github.com/zeusync/avatarsim/internal/core/spatial"
	"github.com/zeusync/avatarsim/internal/core/systems"
	"github.com/zeusync/avatarsim/internal/core/systems/physics"
)

const (
	source = "sim"

	// ColliderPrefix namespaces the avatar's bodies in the physics world.
	ColliderPrefix = "avatar/"

	scheduleEpsilon = 1e-9
)

// Pipeline system names, in execution order.
const (
	SystemTracking  = "tracking"
	SystemHead      = "head"
	SystemIK        = "ik"
	SystemColliders = "colliders"
	SystemSeek      = "enemy-seek"
	SystemPhysics   = "physics"
	SystemStunPoll  = "stun-poll"
	SystemEffects   = "effects"
	SystemSpawner   = "spawner"
	SystemDespawn   = "despawn"
)

func (s *Simulation) registerSystems() error {
	for _, sys := range []systems.System{
		systems.NewFunc(SystemTracking, systems.PhasePreUpdate, systems.PriorityHigh, s.updateTracking),
		systems.NewFunc(SystemHead, systems.PhasePreUpdate, systems.PriorityNormal, s.updateHead),
		systems.NewFunc(SystemIK, systems.PhaseUpdate, systems.PriorityHigh, s.updateIK),
		systems.NewFunc(SystemColliders, systems.PhaseUpdate, systems.PriorityNormal, s.syncColliders),
		systems.NewFunc(SystemSeek, systems.PhasePostUpdate, systems.PriorityNormal, s.updateSeek),
		systems.NewFunc(SystemPhysics, systems.PhaseFixedUpdate, systems.PriorityNormal, s.stepPhysics),
		systems.NewFunc(SystemStunPoll, systems.PhaseLateUpdate, systems.PriorityHighest, s.pollStuns),
		systems.NewFunc(SystemEffects, systems.PhaseLateUpdate, systems.PriorityHigh, s.updateEffects),
		systems.NewFunc(SystemSpawner, systems.PhaseLateUpdate, systems.PriorityNormal, s.updateSpawner),
		systems.NewFunc(SystemDespawn, systems.PhaseLateUpdate, systems.PriorityLow, s.despawn),
	} {
		if err := s.manager.Register(sys); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulation) subscribe() error {
	if _, err := s.bus.Subscribe(bus.TypeCollision, s.onCollisionEnemy); err != nil {
		return err
	}
	_, err := s.bus.Subscribe(bus.TypeCollision, s.onCollisionEffect)
	return err
}

func (s *Simulation) updateTracking(systems.Tick) error {
	s.mapper.Update()
	return nil
}

// updateHead copies the headset orientation, relative to the anchor frame,
// onto the head bone.
func (s *Simulation) updateHead(systems.Tick) error {
	head, ok := s.mapper.Head()
	if !ok || !spatial.FiniteQuat(head.Orientation) {
		return nil
	}
	local := spatial.ToLocal(head, s.mapper.Anchor().Frame())
	s.avatar.SetHeadOrientation(local.Orientation)
	return nil
}

func (s *Simulation) updateIK(systems.Tick) error {
	s.stats.solved = s.avatar.Solve(s.solver, s.mapper.Slots())
	return nil
}

// syncColliders moves the avatar's driven bodies onto the solved bones. The
// reported velocity is the displacement over the tick.
func (s *Simulation) syncColliders(tick systems.Tick) error {
	var errs []error
	for _, c := range s.avatar.Colliders() {
		id := physics.BodyID(ColliderPrefix + c.Name)
		if !s.engine.HasBody(id) {
			err := s.engine.AddBody(physics.Body{
				ID: id,
				Tag: physics.Tag{
					Kind:     physics.ParseTagKind(c.Kind),
					EntityID: s.avatar.Name(),
					Hand:     c.Hand,
				},
				Type:     physics.Driven,
				Radius:   c.Radius,
				Position: c.Position,
				Rotation: mgl64.QuatIdent(),
			})
			if err != nil {
				errs = append(errs, err)
				continue
			}
			s.colliderPrev[id] = c.Position
			continue
		}

		var v mgl64.Vec3
		if prev, ok := s.colliderPrev[id]; ok && tick.Delta > 0 {
			v = c.Position.Sub(prev).Mul(1 / tick.Delta)
		}
		s.colliderPrev[id] = c.Position
		errs = append(errs,
			s.engine.SetPosition(id, c.Position),
			s.engine.SetVelocity(id, v),
		)
	}
	return errors.Join(errs...)
}

func (s *Simulation) updateSeek(systems.Tick) error {
	for _, c := range s.enemies.Controllers() {
		c.Seek()
	}
	return nil
}

// stepPhysics integrates the world and dispatches every collision seen
// from an enemy's side, followed by the injected ones.
func (s *Simulation) stepPhysics(tick systems.Tick) error {
	events := s.engine.Step(tick.Delta)
	events = append(events, s.external...)

	var errs []error
	for _, ev := range events {
		if !ev.SelfTag.IsEnemy() {
			continue
		}
		s.stats.collisions++
		errs = append(errs, s.bus.Publish(bus.NewEvent(bus.TypeCollision, source, tick.Now, ev)))
	}
	return errors.Join(errs...)
}

func (s *Simulation) onCollisionEnemy(event bus.Event) error {
	ev, ok := event.Data().(physics.CollisionEvent)
	if !ok {
		return fmt.Errorf("unexpected collision payload %T", event.Data())
	}
	c, ok := s.enemies.Get(ev.SelfTag.EntityID)
	if !ok {
		return nil
	}
	from := c.State()
	if !c.HandleCollision(ev, event.Time()) {
		return nil
	}
	s.stats.stuns++
	return s.publishState(c, from, event.Time())
}

func (s *Simulation) onCollisionEffect(event bus.Event) error {
	ev, ok := event.Data().(physics.CollisionEvent)
	if !ok {
		return fmt.Errorf("unexpected collision payload %T", event.Data())
	}
	s.effects.HandleCollision(ev, event.Time())
	return nil
}

func (s *Simulation) pollStuns(tick systems.Tick) error {
	if !due(&s.nextStunPoll, tick.Now, s.cfg.Tick.StunPoll) {
		return nil
	}
	var errs []error
	for _, c := range s.enemies.Controllers() {
		from := c.State()
		if c.Poll(tick.Now) {
			errs = append(errs, s.publishState(c, from, tick.Now))
		}
	}
	return errors.Join(errs...)
}

func (s *Simulation) updateEffects(tick systems.Tick) error {
	s.effects.Update(tick.Now)
	return s.takePending()
}

func (s *Simulation) updateSpawner(tick systems.Tick) error {
	s.enemies.Update(tick.Now)
	return s.takePending()
}

func (s *Simulation) despawn(tick systems.Tick) error {
	if !due(&s.nextDespawn, tick.Now, s.cfg.Enemies.Despawn.PollInterval) {
		return nil
	}
	s.despawnReason = s.enemies.Policy().Name()
	s.stats.despawned += len(s.enemies.Despawn(tick.Now))
	s.despawnReason = ""
	return s.takePending()
}

func (s *Simulation) publishState(c *enemy.Controller, from enemy.State, now float64) error {
	return s.bus.Publish(bus.NewEvent(bus.TypeEnemyStateChanged, source, now, bus.EnemyStateChanged{
		ID:   c.ID(),
		From: from.Kind.String(),
		To:   c.State().Kind.String(),
	}))
}

// Observers cannot return errors, so publish failures are parked until the
// owning system finishes.
func (s *Simulation) publish(typ string, now float64, data any) {
	if err := s.bus.Publish(bus.NewEvent(typ, source, now, data)); err != nil {
		s.pending = append(s.pending, err)
	}
}

func (s *Simulation) takePending() error {
	err := errors.Join(s.pending...)
	s.pending = s.pending[:0]
	return err
}

func (s *Simulation) onEnemySpawn(c *enemy.Controller, spawned bool) {
	if spawned {
		s.publish(bus.TypeEnemySpawned, s.tick.Now, bus.EnemySpawned{ID: c.ID(), Position: c.Position()})
		return
	}
	reason := s.despawnReason
	if reason == "" {
		reason = "removed"
	}
	s.publish(bus.TypeEnemyDespawned, s.tick.Now, bus.EnemyDespawned{ID: c.ID(), Reason: reason})
}

func (s *Simulation) onEnemyCount(count int) {
	s.publish(bus.TypeEnemyCountChanged, s.tick.Now, bus.EnemyCountChanged{Count: count})
}

func (s *Simulation) onEffect(inst *effects.Instance, spawned bool) {
	if spawned {
		s.publish(bus.TypeEffectSpawned, s.tick.Now, bus.EffectSpawned{
			ID:       inst.ID,
			Position: inst.Position,
			SpeedMax: inst.SpeedMax,
		})
		return
	}
	s.publish(bus.TypeEffectRetired, s.tick.Now, bus.EffectRetired{ID: inst.ID})
}

// due reports whether a schedule anchored at *next fires at now and moves
// it past now in whole intervals.
func due(next *float64, now, interval float64) bool {
	if now+scheduleEpsilon < *next {
		return false
	}
	for *next <= now+scheduleEpsilon {
		*next += interval
	}
	return true
}
