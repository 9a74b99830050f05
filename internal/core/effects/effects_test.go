package effects

import (
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/avatarsim/internal/core/systems/physics"
)

func counter() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("effect-%d", n)
	}
}

func hit(enemyVelocity mgl64.Vec3) physics.CollisionEvent {
	return physics.CollisionEvent{
		Self:          "enemy-1",
		SelfTag:       physics.Tag{Kind: physics.TagEnemy, EntityID: "enemy-1"},
		Other:         "hand.L",
		OtherTag:      physics.Tag{Kind: physics.TagHand, Hand: "left"},
		ContactPoint:  mgl64.Vec3{1, 2, 3},
		SelfVelocity:  enemyVelocity,
		OtherVelocity: mgl64.Vec3{9, 9, 9},
	}
}

func TestInstanceLifetime(t *testing.T) {
	s := NewSpawner(DefaultConfig(), WithIDGenerator(counter()))
	inst := s.Spawn(mgl64.Vec3{}, mgl64.Vec3{}, 2)

	for _, now := range []float64{2, 2.25, 2.5, 2.999} {
		assert.Empty(t, s.Update(now), "t=%v", now)
		assert.Contains(t, s.Active(), inst)
		assert.True(t, inst.Alive(now, s.TTL()))
	}

	retired := s.Update(3)
	assert.Equal(t, []*Instance{inst}, retired)
	assert.Empty(t, s.Active())
	assert.False(t, inst.Alive(3, s.TTL()))
	assert.Equal(t, 1, s.Total())
}

func TestSpeedRangeFollowsImpact(t *testing.T) {
	s := NewSpawner(DefaultConfig())

	slow, ok := s.HandleCollision(hit(mgl64.Vec3{0, 0, 0.5}), 0)
	require.True(t, ok)
	assert.Equal(t, 0.2, slow.SpeedMin)
	assert.Equal(t, 3.0, slow.SpeedMax)
	assert.Equal(t, mgl64.Vec3{0, 0, 0.5}, slow.Velocity)
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, slow.Position)

	fast, _ := s.HandleCollision(hit(mgl64.Vec3{0, 0, 4}), 0)
	assert.InDelta(t, 8.0, fast.SpeedMax, 1e-12)
	up := fast.Orientation.Rotate(mgl64.Vec3{0, 1, 0})
	assert.True(t, up.ApproxEqualThreshold(mgl64.Vec3{0, 0, 1}, 1e-9), "%v", up)
}

func TestStillEnemyEmitsUpward(t *testing.T) {
	s := NewSpawner(DefaultConfig())
	inst := s.Spawn(mgl64.Vec3{}, mgl64.Vec3{}, 0)
	assert.True(t, inst.Orientation.OrientationEqualThreshold(mgl64.QuatIdent(), 1e-12))
	assert.Equal(t, 500, inst.Emitter.Particles)
}

func TestHandleCollisionQualification(t *testing.T) {
	s := NewSpawner(DefaultConfig())

	ev := hit(mgl64.Vec3{})
	ev.OtherTag = physics.Tag{Kind: physics.TagHead}
	_, ok := s.HandleCollision(ev, 0)
	assert.False(t, ok)

	// mirrored event: the enemy is the other body
	ev = hit(mgl64.Vec3{})
	ev.SelfTag, ev.OtherTag = ev.OtherTag, ev.SelfTag
	ev.SelfVelocity, ev.OtherVelocity = mgl64.Vec3{9, 9, 9}, mgl64.Vec3{1, 0, 0}
	inst, ok := s.HandleCollision(ev, 0)
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, inst.Velocity)

	assert.Equal(t, 1, s.Count())
}

func TestObserverSeesSpawnAndRetire(t *testing.T) {
	var log []string
	s := NewSpawner(DefaultConfig(), WithIDGenerator(counter()), WithObserver(func(i *Instance, spawned bool) {
		log = append(log, fmt.Sprintf("%s:%v", i.ID, spawned))
	}))
	s.Spawn(mgl64.Vec3{}, mgl64.Vec3{}, 0)
	s.Spawn(mgl64.Vec3{}, mgl64.Vec3{}, 0.5)
	s.Update(1.2)
	s.Update(1.5)

	assert.Equal(t, []string{"effect-1:true", "effect-2:true", "effect-1:false", "effect-2:false"}, log)
}
