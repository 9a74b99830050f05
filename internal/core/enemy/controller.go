package enemy

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/avatarsim/internal/core/observability/log"
	"github.com/zeusync/avatarsim/internal/core/spatial"
	"github.com/zeusync/avatarsim/internal/core/systems/physics"
)

// Config holds the per-enemy behaviour constants.
type Config struct {
	Speed        float64    `yaml:"speed"`
	StunDuration float64    `yaml:"stun_duration"`
	SlerpFactor  float64    `yaml:"slerp_factor"`
	Radius       float64    `yaml:"radius"`
	Anchor       [3]float64 `yaml:"anchor"`
	// FaceDistance is the minimum anchor distance at which the enemy still
	// turns toward the anchor.
	FaceDistance float64 `yaml:"face_distance"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		Speed:        0.5,
		StunDuration: DefaultStunDuration,
		SlerpFactor:  0.5,
		Radius:       0.3,
		Anchor:       [3]float64{0, 2.5, -3.5},
		FaceDistance: 0.1,
	}
}

var forward = mgl64.Vec3{0, 0, 1}

// Controller drives one enemy body through the physics engine.
type Controller struct {
	id     string
	body   physics.BodyID
	engine physics.Engine
	cfg    Config
	rules  Rules
	state  State

	spawnedAt float64
	logger    log.Log
}

// NewController registers a kinematic body for the enemy at position and
// returns its controller in the Seeking state.
func NewController(id string, position mgl64.Vec3, now float64, engine physics.Engine, cfg Config, logger log.Log) (*Controller, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	body := physics.BodyID(id)
	if err := engine.AddBody(physics.Body{
		ID:       body,
		Tag:      physics.Tag{Kind: physics.TagEnemy, EntityID: id},
		Type:     physics.Kinematic,
		Radius:   cfg.Radius,
		Position: position,
		Rotation: mgl64.QuatIdent(),
	}); err != nil {
		return nil, err
	}
	return &Controller{
		id:        id,
		body:      body,
		engine:    engine,
		cfg:       cfg,
		rules:     Rules{StunDuration: cfg.StunDuration},
		state:     Initial(),
		spawnedAt: now,
		logger:    logger.With(log.String("enemy", id)),
	}, nil
}

func (c *Controller) ID() string { return c.id }

func (c *Controller) Body() physics.BodyID { return c.body }

func (c *Controller) State() State { return c.state }

func (c *Controller) SpawnedAt() float64 { return c.spawnedAt }

// Position returns the body's current position.
func (c *Controller) Position() mgl64.Vec3 {
	p, _ := c.engine.Position(c.body)
	return p
}

// Velocity returns the body's current velocity.
func (c *Controller) Velocity() mgl64.Vec3 {
	v, _ := c.engine.Velocity(c.body)
	return v
}

// Seek steers toward the anchor: velocity points at it with the configured
// speed and the orientation is blended toward facing it. Stunned enemies
// hold zero velocity and keep their orientation.
func (c *Controller) Seek() {
	if c.state.Kind == Stunned {
		_ = c.engine.SetVelocity(c.body, mgl64.Vec3{})
		return
	}

	pos, ok := c.engine.Position(c.body)
	if !ok {
		return
	}
	delta := mgl64.Vec3(c.cfg.Anchor).Sub(pos)
	dir, ok := spatial.Normalize(delta)
	if !ok {
		_ = c.engine.SetVelocity(c.body, mgl64.Vec3{})
		return
	}
	_ = c.engine.SetVelocity(c.body, dir.Mul(c.cfg.Speed))

	if delta.Len() <= c.cfg.FaceDistance {
		return
	}
	current, _ := c.engine.Rotation(c.body)
	facing := mgl64.QuatBetweenVectors(forward, dir)
	_ = c.engine.SetRotation(c.body, spatial.ShortestSlerp(current, facing, c.cfg.SlerpFactor))
}

// HandleCollision feeds a collision in which this enemy is one side. It
// reports whether the enemy became stunned; the velocity is zeroed at once.
func (c *Controller) HandleCollision(ev physics.CollisionEvent, now float64) bool {
	other := ev.OtherTag
	if ev.Other == c.body {
		other = ev.SelfTag
	}
	in := Bump()
	if other.IsCharacterHand() {
		in = HandHit()
	}
	return c.apply(in, now)
}

// Poll runs the stun timer check. It reports whether the enemy resumed
// seeking.
func (c *Controller) Poll(now float64) bool {
	return c.apply(Poll(), now)
}

func (c *Controller) apply(ev Event, now float64) bool {
	prev := c.state
	c.state = c.rules.Transition(prev, ev, now)
	if c.state == prev {
		return false
	}
	if c.state.Kind == Stunned {
		_ = c.engine.SetVelocity(c.body, mgl64.Vec3{})
	}
	c.logger.Debug("enemy state changed",
		log.String("from", prev.Kind.String()),
		log.String("to", c.state.Kind.String()),
		log.Float64("at", now),
	)
	return true
}
