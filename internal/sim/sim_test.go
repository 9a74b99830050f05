package sim

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/avatarsim/internal/config"
	"github.com/zeusync/avatarsim/internal/core/enemy"
	"github.com/zeusync/avatarsim/internal/core/events/bus"
	"github.com/zeusync/avatarsim/internal/core/spatial"
	"github.com/zeusync/avatarsim/internal/core/systems/physics"
	"github.com/zeusync/avatarsim/internal/core/tracking"
)

func counter(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func newTestSim(t *testing.T, cfg config.Config, src tracking.PoseSource) *Simulation {
	t.Helper()
	s, err := New(cfg, Deps{
		Source:    src,
		EnemyIDs:  enemy.Counter(),
		EffectIDs: counter("effect"),
		Rand:      enemy.NewRand("test"),
	})
	require.NoError(t, err)
	return s
}

func handHit(enemyID string) physics.CollisionEvent {
	return physics.CollisionEvent{
		Self:         physics.BodyID(enemyID),
		SelfTag:      physics.Tag{Kind: physics.TagEnemy, EntityID: enemyID},
		Other:        ColliderPrefix + "hand.R",
		OtherTag:     physics.Tag{Kind: physics.TagHand, EntityID: "humanoid", Hand: "right"},
		ContactPoint: mgl64.Vec3{0, 2.5, -3.2},
		SelfVelocity: mgl64.Vec3{0, 0, 0.5},
	}
}

func headBump(enemyID string) physics.CollisionEvent {
	ev := handHit(enemyID)
	ev.Other = ColliderPrefix + "head"
	ev.OtherTag = physics.Tag{Kind: physics.TagHead, EntityID: "humanoid"}
	return ev
}

func TestExecutionOrder(t *testing.T) {
	s := newTestSim(t, config.Default(), tracking.NewStaticSource())
	assert.Equal(t, []string{
		SystemTracking, SystemHead,
		SystemIK, SystemColliders,
		SystemSeek,
		SystemPhysics,
		SystemStunPoll, SystemEffects, SystemSpawner, SystemDespawn,
	}, s.Systems().ExecutionOrder())
}

func TestHandReachesTrackedTarget(t *testing.T) {
	src := tracking.NewStaticSource()
	target := mgl64.Vec3{-0.55, 1.3, -0.25}
	src.Set(tracking.RightHand, spatial.Pose{Position: target, Orientation: mgl64.QuatIdent()})
	s := newTestSim(t, config.Default(), src)

	bind, err := s.Rig().BoneWorldTransform("hand.R")
	require.NoError(t, err)
	before := bind.Position.Sub(target).Len()

	require.NoError(t, s.Tick(0.1))

	hand, err := s.Rig().BoneWorldTransform("hand.R")
	require.NoError(t, err)
	after := hand.Position.Sub(target).Len()
	assert.Less(t, after, before)
	assert.Equal(t, 1, s.Snapshot().SolvedChains, "left slot never written")

	leftBind, err := s.Rig().BoneWorldTransform("hand.L")
	require.NoError(t, err)
	assert.InDelta(t, 0.71, leftBind.Position.X(), 1e-9)
}

func TestCollidersFollowRig(t *testing.T) {
	world := physics.NewWorld()
	s, err := New(config.Default(), Deps{Source: tracking.NewStaticSource(), Engine: world})
	require.NoError(t, err)
	require.NoError(t, s.Tick(0.1))

	for _, name := range []string{"hand.L", "hand.R", "head"} {
		b, ok := world.Body(physics.BodyID(ColliderPrefix + name))
		require.True(t, ok, name)
		assert.Equal(t, physics.Driven, b.Type)
	}
	head, _ := world.Body(ColliderPrefix + "head")
	assert.Equal(t, physics.TagHead, head.Tag.Kind)
	assert.InDelta(t, 1.8, head.Position.Y(), 1e-9)

	hand, _ := world.Body(ColliderPrefix + "hand.R")
	assert.Equal(t, "right", hand.Tag.Hand)
	assert.True(t, hand.Tag.IsCharacterHand())
}

func TestInjectedHandHitStunsAndSparks(t *testing.T) {
	s := newTestSim(t, config.Default(), tracking.NewStaticSource())

	require.NoError(t, s.Tick(1.5))
	require.Equal(t, 1, s.Enemies().Count())

	require.NoError(t, s.Tick(2.0, handHit("enemy-1")))
	c, ok := s.Enemies().Get("enemy-1")
	require.True(t, ok)
	assert.Equal(t, enemy.Stunned, c.State().Kind)
	assert.Equal(t, 3.0, c.State().Deadline)
	assert.Equal(t, mgl64.Vec3{}, c.Velocity())

	require.Equal(t, 1, s.Effects().Count())
	inst := s.Effects().Active()[0]
	assert.Equal(t, "effect-1", inst.ID)
	assert.Equal(t, 3.0, inst.SpeedMax)

	require.NoError(t, s.Tick(2.9))
	assert.Equal(t, enemy.Stunned, c.State().Kind)
	assert.Equal(t, 1, s.Effects().Count())

	require.NoError(t, s.Tick(3.0))
	assert.Equal(t, enemy.Seeking, c.State().Kind)
	assert.Equal(t, 0, s.Effects().Count(), "effect retired after its ttl")

	snap := s.Snapshot()
	assert.Equal(t, 1, snap.TotalStuns)
	assert.Equal(t, 1, snap.TotalEffects)
	assert.Equal(t, 1, snap.Collisions)
}

func TestHandSideEventsAreNotDispatched(t *testing.T) {
	s := newTestSim(t, config.Default(), tracking.NewStaticSource())
	require.NoError(t, s.Tick(1.5))

	ev := handHit("enemy-1")
	ev.Self, ev.Other = ev.Other, ev.Self
	ev.SelfTag, ev.OtherTag = ev.OtherTag, ev.SelfTag
	require.NoError(t, s.Tick(2.0, ev))

	c, _ := s.Enemies().Get("enemy-1")
	assert.Equal(t, enemy.Seeking, c.State().Kind)
	assert.Equal(t, 0, s.Effects().Total())
}

func TestHeadBumpDoesNotStun(t *testing.T) {
	s := newTestSim(t, config.Default(), tracking.NewStaticSource())
	require.NoError(t, s.Tick(1.5))
	require.NoError(t, s.Tick(2.0, headBump("enemy-1")))

	c, _ := s.Enemies().Get("enemy-1")
	assert.Equal(t, enemy.Seeking, c.State().Kind)
	assert.Equal(t, 0, s.Effects().Total())
	assert.Equal(t, 1, s.Snapshot().Collisions)
}

func TestPhysicsContactWithRestingHand(t *testing.T) {
	cfg := config.Default()
	// a motionless enemy spawned right in front of the resting right hand
	cfg.Enemies.Speed = 0
	cfg.Enemies.Volume = spatial.Volume{
		MinX: -0.71, MaxX: -0.71,
		MinY: 1.45, MaxY: 1.45,
		MinZ: -0.2, MaxZ: -0.2,
	}
	s := newTestSim(t, cfg, tracking.NewStaticSource())

	var states []bus.EnemyStateChanged
	_, err := s.Bus().Subscribe(bus.TypeEnemyStateChanged, func(ev bus.Event) error {
		states = append(states, ev.Data().(bus.EnemyStateChanged))
		return nil
	})
	require.NoError(t, err)

	for _, now := range []float64{0.5, 1.0, 1.5, 2.0, 2.5, 3.0, 3.5} {
		require.NoError(t, s.Tick(now))
	}

	assert.Equal(t, []bus.EnemyStateChanged{
		{ID: "enemy-1", From: "seeking", To: "stunned"},
		{ID: "enemy-1", From: "stunned", To: "seeking"},
	}, states, "contact enters once while the bodies keep overlapping")
	assert.Equal(t, 1, s.Effects().Total())
	assert.Equal(t, 1, s.Snapshot().Collisions)
}

func TestRadiusDespawn(t *testing.T) {
	cfg := config.Default()
	cfg.Enemies.Volume = spatial.Volume{
		MinX: 0, MaxX: 0,
		MinY: 2.5, MaxY: 2.5,
		MinZ: -3.3, MaxZ: -3.3,
	}
	cfg.Enemies.Despawn = enemy.PolicyConfig{Mode: "radius", Radius: 0.5, PollInterval: 0.5}
	s := newTestSim(t, cfg, tracking.NewStaticSource())

	var despawned []bus.EnemyDespawned
	_, err := s.Bus().Subscribe(bus.TypeEnemyDespawned, func(ev bus.Event) error {
		despawned = append(despawned, ev.Data().(bus.EnemyDespawned))
		return nil
	})
	require.NoError(t, err)

	for _, now := range []float64{1.5, 2.0} {
		require.NoError(t, s.Tick(now))
	}
	assert.Equal(t, []bus.EnemyDespawned{{ID: "enemy-1", Reason: "radius"}}, despawned)
	assert.Equal(t, 0, s.Enemies().Count())
	assert.Equal(t, 1, s.Snapshot().Despawned)
}

func TestTickRejectsTimeTravel(t *testing.T) {
	s := newTestSim(t, config.Default(), tracking.NewStaticSource())
	require.NoError(t, s.Tick(1))
	assert.Error(t, s.Tick(0.5))
}

func TestRunStopsAtDuration(t *testing.T) {
	cfg := config.Default()
	cfg.Tick.Rate = 10
	s := newTestSim(t, cfg, nil)

	var ticks int
	require.NoError(t, s.Run(context.Background(), 2, func(Snapshot) { ticks++ }))
	assert.Equal(t, 20, ticks)
	assert.InDelta(t, 2.0, s.Snapshot().Time, 1e-9)
	assert.Equal(t, 1, s.Enemies().Count())
}

func TestRunHonoursCancel(t *testing.T) {
	s := newTestSim(t, config.Default(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Run(ctx, 10, nil), context.Canceled)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Tick.Rate = -1
	_, err := New(cfg, Deps{})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	cfg = config.Default()
	cfg.Avatar.Rig = "testdata/missing.yaml"
	_, err = New(cfg, Deps{})
	assert.Error(t, err)
}
