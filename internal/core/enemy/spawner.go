package enemy

import (
	"fmt"
	"math/rand/v2"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"

	"github.com/zeusync/avatarsim/internal/core/observability/log"
	"github.com/zeusync/avatarsim/internal/core/spatial"
	"github.com/zeusync/avatarsim/internal/core/systems/physics"
)

// SpawnerConfig controls the spawn schedule.
type SpawnerConfig struct {
	MaxEnemies int            `yaml:"max"`
	Interval   float64        `yaml:"spawn_interval"`
	StartDelay float64        `yaml:"start_delay"`
	Volume     spatial.Volume `yaml:"volume"`
	Seed       string         `yaml:"seed"`
}

// DefaultSpawnerConfig returns the stock schedule and spawn volume.
func DefaultSpawnerConfig() SpawnerConfig {
	return SpawnerConfig{
		MaxEnemies: 10,
		Interval:   3,
		StartDelay: 1,
		Volume: spatial.Volume{
			MinX: -5, MaxX: 5,
			MinY: 2, MaxY: 5,
			MinZ: -7, MaxZ: -5,
		},
	}
}

// CountObserver is told the active count every time it changes.
type CountObserver func(count int)

// SpawnObserver is told about every enemy added or removed.
type SpawnObserver func(c *Controller, spawned bool)

// IDGenerator returns a fresh enemy id.
type IDGenerator func() string

// UUIDs generates enemy-<uuid> ids.
func UUIDs() string { return "enemy-" + uuid.NewString() }

// Counter returns a generator of enemy-1, enemy-2, ...
func Counter() IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("enemy-%d", n)
	}
}

// NewRand returns a PCG source seeded from seed. An empty seed draws a
// random one.
func NewRand(seed string) *rand.Rand {
	if seed == "" {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(xxhash.Sum64String(seed), xxhash.Sum64String(seed+":spawn")))
}

// SpawnerOption customises a Spawner.
type SpawnerOption func(*Spawner)

func WithIDGenerator(gen IDGenerator) SpawnerOption {
	return func(s *Spawner) { s.ids = gen }
}

func WithRand(rng *rand.Rand) SpawnerOption {
	return func(s *Spawner) { s.rng = rng }
}

func WithCountObserver(fn CountObserver) SpawnerOption {
	return func(s *Spawner) { s.onCount = fn }
}

func WithSpawnObserver(fn SpawnObserver) SpawnerOption {
	return func(s *Spawner) { s.onSpawn = fn }
}

func WithPolicy(p DespawnPolicy) SpawnerOption {
	return func(s *Spawner) { s.policy = p }
}

func WithLogger(l log.Log) SpawnerOption {
	return func(s *Spawner) { s.logger = l }
}

// Spawner keeps at most MaxEnemies controllers alive, adding one every
// Interval seconds of simulation time once StartDelay has passed.
type Spawner struct {
	cfg     SpawnerConfig
	enemy   Config
	engine  physics.Engine
	rng     *rand.Rand
	ids     IDGenerator
	policy  DespawnPolicy
	onCount CountObserver
	onSpawn SpawnObserver
	logger  log.Log

	active []*Controller
	byID   map[string]*Controller
	next   float64
	total  int
}

// NewSpawner validates cfg and creates an empty spawner.
func NewSpawner(cfg SpawnerConfig, enemy Config, engine physics.Engine, opts ...SpawnerOption) (*Spawner, error) {
	if cfg.MaxEnemies < 0 || !(cfg.Interval > 0) || cfg.StartDelay < 0 {
		return nil, fmt.Errorf("%w: max %d interval %v start %v", ErrInvalidSpawner, cfg.MaxEnemies, cfg.Interval, cfg.StartDelay)
	}
	if !cfg.Volume.Valid() {
		return nil, fmt.Errorf("%w: inverted spawn volume", ErrInvalidSpawner)
	}
	if engine == nil {
		return nil, fmt.Errorf("%w: nil physics engine", ErrInvalidSpawner)
	}

	s := &Spawner{
		cfg:    cfg,
		enemy:  enemy,
		engine: engine,
		ids:    UUIDs,
		policy: KeepAll{},
		byID:   make(map[string]*Controller),
		next:   cfg.StartDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = NewRand(cfg.Seed)
	}
	if s.logger == nil {
		s.logger = log.NewNop()
	}
	s.logger = s.logger.Named("spawner")
	return s, nil
}

// Update spawns every enemy due by now. Spawn k is due at
// StartDelay + k*Interval, and nothing spawns until now > StartDelay.
// While at the cap the schedule is held so a freed slot refills on the
// next update.
func (s *Spawner) Update(now float64) []*Controller {
	if now <= s.cfg.StartDelay {
		return nil
	}

	var spawned []*Controller
	for len(s.active) < s.cfg.MaxEnemies && now >= s.next {
		c, err := s.spawn(now)
		if err != nil {
			s.logger.Error("spawn failed", log.Error(err))
			break
		}
		spawned = append(spawned, c)
		s.next += s.cfg.Interval
	}
	if len(s.active) >= s.cfg.MaxEnemies && s.next < now {
		s.next = now
	}
	if len(spawned) > 0 {
		s.notifyCount()
	}
	return spawned
}

func (s *Spawner) spawn(now float64) (*Controller, error) {
	id := s.ids()
	if _, dup := s.byID[id]; dup {
		return nil, fmt.Errorf("duplicate enemy id %q", id)
	}
	pos := s.cfg.Volume.Sample(s.rng)
	c, err := NewController(id, pos, now, s.engine, s.enemy, s.logger)
	if err != nil {
		return nil, err
	}
	s.active = append(s.active, c)
	s.byID[id] = c
	s.total++

	s.logger.Info("enemy spawned", log.String("id", id), log.Vec3("position", pos), log.Int("count", len(s.active)))
	if s.onSpawn != nil {
		s.onSpawn(c, true)
	}
	return c, nil
}

// Remove takes an enemy out of the active set and the physics world.
func (s *Spawner) Remove(id string) error {
	c, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.drop(c)
	s.notifyCount()
	return nil
}

func (s *Spawner) drop(c *Controller) {
	delete(s.byID, c.ID())
	for i, a := range s.active {
		if a == c {
			s.active = append(s.active[:i], s.active[i+1:]...)
			break
		}
	}
	if err := s.engine.RemoveBody(c.Body()); err != nil {
		s.logger.Warn("remove enemy body", log.String("id", c.ID()), log.Error(err))
	}
	if s.onSpawn != nil {
		s.onSpawn(c, false)
	}
}

// Despawn applies the despawn policy and returns the removed ids.
func (s *Spawner) Despawn(now float64) []string {
	var removed []string
	for _, c := range append([]*Controller(nil), s.active...) {
		if s.policy.ShouldDespawn(c, now) {
			s.drop(c)
			removed = append(removed, c.ID())
		}
	}
	if len(removed) > 0 {
		s.logger.Info("enemies despawned", log.String("policy", s.policy.Name()), log.Int("removed", len(removed)))
		s.notifyCount()
	}
	return removed
}

func (s *Spawner) notifyCount() {
	if s.onCount != nil {
		s.onCount(len(s.active))
	}
}

// Count returns the number of active enemies.
func (s *Spawner) Count() int { return len(s.active) }

// Total returns how many enemies have ever been spawned.
func (s *Spawner) Total() int { return s.total }

// Get looks up an active enemy.
func (s *Spawner) Get(id string) (*Controller, bool) {
	c, ok := s.byID[id]
	return c, ok
}

// Controllers returns the active enemies in spawn order.
func (s *Spawner) Controllers() []*Controller { return s.active }

// Policy returns the despawn policy in use.
func (s *Spawner) Policy() DespawnPolicy { return s.policy }
