// Package effects spawns short-lived impact effects at hand/enemy contacts.
package effects

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/zeusync/avatarsim/internal/core/observability/log"
	"github.com/zeusync/avatarsim/internal/core/spatial"
	"github.com/zeusync/avatarsim/internal/core/systems/physics"
)

// EmitterSettings is the burst description handed to the renderer.
type EmitterSettings struct {
	Particles        int        `yaml:"particles"`
	Lifetime         [2]float64 `yaml:"lifetime"`
	Size             [2]float64 `yaml:"size"`
	StartPositionMin [3]float64 `yaml:"start_position_min"`
	StartPositionMax [3]float64 `yaml:"start_position_max"`
	DirectionMin     [3]float64 `yaml:"direction_min"`
	DirectionMax     [3]float64 `yaml:"direction_max"`
	ColorStart       string     `yaml:"color_start"`
	ColorEnd         string     `yaml:"color_end"`
}

// Config controls spawning and retirement.
type Config struct {
	TTL         float64         `yaml:"ttl"`
	MinSpeed    float64         `yaml:"min_speed"`
	MinMaxSpeed float64         `yaml:"min_max_speed"`
	ImpactScale float64         `yaml:"impact_scale"`
	Emitter     EmitterSettings `yaml:"emitter"`
}

// DefaultConfig returns the spark burst used on enemy hits.
func DefaultConfig() Config {
	return Config{
		TTL:         1,
		MinSpeed:    0.2,
		MinMaxSpeed: 3,
		ImpactScale: 2,
		Emitter: EmitterSettings{
			Particles:        500,
			Lifetime:         [2]float64{0.1, 1},
			Size:             [2]float64{0.02, 0.04},
			StartPositionMin: [3]float64{-0.2, -0.2, -0.2},
			StartPositionMax: [3]float64{0.2, 0.2, 0.2},
			DirectionMin:     [3]float64{-0.5, 0, -0.5},
			DirectionMax:     [3]float64{0.5, 1, 0.5},
			ColorStart:       "#f09965",
			ColorEnd:         "#ff0303",
		},
	}
}

// Instance is one live effect.
type Instance struct {
	ID        string
	SpawnTime float64
	Position  mgl64.Vec3
	// Velocity is the enemy's velocity at impact.
	Velocity mgl64.Vec3
	// Orientation turns the emitter's local +Y toward the impact direction.
	Orientation mgl64.Quat
	SpeedMin    float64
	SpeedMax    float64
	Emitter     EmitterSettings
}

// Alive reports whether the instance exists at time now.
func (i *Instance) Alive(now, ttl float64) bool {
	return now >= i.SpawnTime && now < i.SpawnTime+ttl
}

// Observer is told about every spawn (spawned true) and retirement.
type Observer func(inst *Instance, spawned bool)

// Option customises a Spawner.
type Option func(*Spawner)

func WithIDGenerator(gen func() string) Option {
	return func(s *Spawner) { s.ids = gen }
}

func WithObserver(fn Observer) Option {
	return func(s *Spawner) { s.observer = fn }
}

func WithLogger(l log.Log) Option {
	return func(s *Spawner) { s.logger = l }
}

// Spawner owns the active effects. Every spawn is a fresh allocation.
type Spawner struct {
	cfg      Config
	active   []*Instance
	ids      func() string
	observer Observer
	logger   log.Log
	total    int
}

// NewSpawner creates an empty spawner.
func NewSpawner(cfg Config, opts ...Option) *Spawner {
	s := &Spawner{
		cfg: cfg,
		ids: func() string { return "effect-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.NewNop()
	}
	s.logger = s.logger.Named("effects")
	return s
}

// Qualifies reports whether a collision is a hand striking an enemy and
// returns the enemy side's velocity.
func Qualifies(ev physics.CollisionEvent) (enemyVelocity mgl64.Vec3, ok bool) {
	switch {
	case ev.SelfTag.IsEnemy() && ev.OtherTag.IsCharacterHand():
		return ev.SelfVelocity, true
	case ev.SelfTag.IsCharacterHand() && ev.OtherTag.IsEnemy():
		return ev.OtherVelocity, true
	default:
		return mgl64.Vec3{}, false
	}
}

// HandleCollision spawns an effect for a qualifying collision.
func (s *Spawner) HandleCollision(ev physics.CollisionEvent, now float64) (*Instance, bool) {
	v, ok := Qualifies(ev)
	if !ok {
		return nil, false
	}
	return s.Spawn(ev.ContactPoint, v, now), true
}

// Spawn creates an effect at point. The emission speed range is
// [MinSpeed, max(MinMaxSpeed, |velocity|*ImpactScale)].
func (s *Spawner) Spawn(point, velocity mgl64.Vec3, now float64) *Instance {
	if !spatial.Finite(velocity) {
		velocity = mgl64.Vec3{}
	}
	dir, ok := spatial.Normalize(velocity)
	if !ok {
		dir = mgl64.Vec3{0, 1, 0}
	}

	inst := &Instance{
		ID:          s.ids(),
		SpawnTime:   now,
		Position:    point,
		Velocity:    velocity,
		Orientation: spatial.SafeQuat(mgl64.QuatBetweenVectors(mgl64.Vec3{0, 1, 0}, dir)),
		SpeedMin:    s.cfg.MinSpeed,
		SpeedMax:    max(s.cfg.MinMaxSpeed, velocity.Len()*s.cfg.ImpactScale),
		Emitter:     s.cfg.Emitter,
	}
	s.active = append(s.active, inst)
	s.total++

	s.logger.Debug("effect spawned",
		log.String("id", inst.ID),
		log.Vec3("at", point),
		log.Float64("speed_max", inst.SpeedMax),
	)
	if s.observer != nil {
		s.observer(inst, true)
	}
	return inst
}

// Update retires every instance whose time-to-live has elapsed by now and
// returns them.
func (s *Spawner) Update(now float64) []*Instance {
	var retired []*Instance
	kept := s.active[:0]
	for _, inst := range s.active {
		if now-inst.SpawnTime >= s.cfg.TTL {
			retired = append(retired, inst)
			continue
		}
		kept = append(kept, inst)
	}
	for i := len(kept); i < len(s.active); i++ {
		s.active[i] = nil
	}
	s.active = kept

	if s.observer != nil {
		for _, inst := range retired {
			s.observer(inst, false)
		}
	}
	return retired
}

// Active returns the live instances in spawn order.
func (s *Spawner) Active() []*Instance { return s.active }

// Count returns the number of live instances.
func (s *Spawner) Count() int { return len(s.active) }

// Total returns how many instances have been spawned.
func (s *Spawner) Total() int { return s.total }

// TTL returns the configured time-to-live.
func (s *Spawner) TTL() float64 { return s.cfg.TTL }

func (i *Instance) String() string {
	return fmt.Sprintf("%s@%.3f", i.ID, i.SpawnTime)
}
