// Package sim wires the avatar rig, the tracking layer, the enemies and the
// effects into one per-tick pipeline.
package sim

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/avatarsim/internal/config"
	"github.com/zeusync/avatarsim/internal/core/effects"
	"github.com/zeusync/avatarsim/internal/core/enemy"
	"github.com/zeusync/avatarsim/internal/core/events/bus"
	"github.com/zeusync/avatarsim/internal/core/ik"
	"github.com/zeusync/avatarsim/internal/core/observability/log"
	"github.com/zeusync/avatarsim/internal/core/rig"
	"github.com/zeusync/avatarsim/internal/core/spatial"
	"github.com/zeusync/avatarsim/internal/core/systems"
	"github.com/zeusync/avatarsim/internal/core/systems/physics"
	"github.com/zeusync/avatarsim/internal/core/tracking"
)

// Deps are the collaborators of a Simulation. Nil fields get defaults: a
// scripted pose source, an in-memory physics world, a fresh bus and the rig
// named by the config (or the bundled humanoid).
type Deps struct {
	Logger    log.Log
	Source    tracking.PoseSource
	Engine    physics.Engine
	Bus       bus.EventBus
	Rig       *rig.Descriptor
	EnemyIDs  enemy.IDGenerator
	EffectIDs func() string
	Rand      *rand.Rand
}

// advancer is implemented by pose sources that replay a script.
type advancer interface {
	Advance(now float64)
}

// Simulation owns every component of one avatar session.
type Simulation struct {
	cfg    config.Config
	logger log.Log

	source tracking.PoseSource
	engine physics.Engine
	bus    bus.EventBus

	avatar  *rig.AvatarRig
	solver  *ik.Solver
	mapper  *tracking.Mapper
	enemies *enemy.Spawner
	effects *effects.Spawner
	manager *systems.Manager

	tick     systems.Tick
	external []physics.CollisionEvent

	colliderPrev  map[physics.BodyID]mgl64.Vec3
	nextStunPoll  float64
	nextDespawn   float64
	despawnReason string
	pending       []error

	stats counters
}

type counters struct {
	solved     int
	collisions int
	stuns      int
	despawned  int
}

// New builds a simulation from cfg.
func New(cfg config.Config, deps Deps) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = log.NewNop()
	}
	if deps.Source == nil {
		deps.Source = tracking.NewScriptedSource(cfg.Tracking)
	}
	if deps.Engine == nil {
		deps.Engine = physics.NewWorld()
	}
	if deps.Bus == nil {
		deps.Bus = bus.New()
	}
	if deps.Rig == nil {
		desc, err := loadRig(cfg.Avatar.Rig)
		if err != nil {
			return nil, err
		}
		deps.Rig = desc
	}

	s := &Simulation{
		cfg:          cfg,
		logger:       deps.Logger.Named("sim"),
		source:       deps.Source,
		engine:       deps.Engine,
		bus:          deps.Bus,
		colliderPrev: make(map[physics.BodyID]mgl64.Vec3),
	}

	av := cfg.Avatar
	avatar, err := rig.New(deps.Rig, rig.Options{
		HeadYawOffset: mgl64.DegToRad(av.HeadYawOffset),
		Root: spatial.Transform{
			Position: mgl64.Vec3(av.Origin),
			Rotation: spatial.YawRotation(mgl64.DegToRad(av.Yaw)),
			Scale:    av.Scale,
		},
	}, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("build rig: %w", err)
	}
	avatar.SetWaistYaw(mgl64.DegToRad(av.WaistYaw))
	s.avatar = avatar
	s.solver = ik.NewSolver(cfg.IK, deps.Logger)

	var anchor tracking.Anchor
	switch av.Anchor {
	case config.AnchorCockpit:
		anchor = tracking.NewCockpitAnchor(av.ChestOffset, mgl64.Vec3(av.Character))
	default:
		anchor = tracking.NewStaticAnchor(mgl64.Vec3(av.AnchorPosition), mgl64.DegToRad(av.AnchorYaw))
	}
	s.mapper = tracking.NewMapper(deps.Source, anchor, tracking.MapperConfig{
		Scale:     av.TargetScale,
		YawOffset: mgl64.DegToRad(av.TargetYawOffset),
	}, deps.Logger)

	policy, err := enemy.NewPolicy(cfg.Enemies.Despawn, mgl64.Vec3(cfg.Enemies.Anchor))
	if err != nil {
		return nil, err
	}
	spawnerOpts := []enemy.SpawnerOption{
		enemy.WithPolicy(policy),
		enemy.WithLogger(deps.Logger),
		enemy.WithCountObserver(s.onEnemyCount),
		enemy.WithSpawnObserver(s.onEnemySpawn),
	}
	if deps.EnemyIDs != nil {
		spawnerOpts = append(spawnerOpts, enemy.WithIDGenerator(deps.EnemyIDs))
	}
	if deps.Rand != nil {
		spawnerOpts = append(spawnerOpts, enemy.WithRand(deps.Rand))
	}
	s.enemies, err = enemy.NewSpawner(cfg.Enemies.SpawnerConfig, cfg.Enemies.Config, deps.Engine, spawnerOpts...)
	if err != nil {
		return nil, err
	}

	effectOpts := []effects.Option{
		effects.WithLogger(deps.Logger),
		effects.WithObserver(s.onEffect),
	}
	if deps.EffectIDs != nil {
		effectOpts = append(effectOpts, effects.WithIDGenerator(deps.EffectIDs))
	}
	s.effects = effects.NewSpawner(cfg.Effects, effectOpts...)

	if err = s.subscribe(); err != nil {
		return nil, err
	}
	s.manager = systems.NewManager(deps.Logger)
	if err = s.registerSystems(); err != nil {
		return nil, err
	}

	s.logger.Info("simulation ready",
		log.String("rig", avatar.Name()),
		log.String("anchor", av.Anchor),
		log.String("despawn", policy.Name()),
		log.Float64("rate", cfg.Tick.Rate),
	)
	return s, nil
}

func loadRig(path string) (*rig.Descriptor, error) {
	if path == "" {
		return rig.DefaultHumanoid(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rig descriptor: %w", err)
	}
	defer f.Close()
	return rig.LoadDescriptor(f)
}

// Tick advances the simulation to now (seconds). external collisions are
// delivered alongside the ones the physics step reports. Component errors
// are logged and returned; the simulation stays usable.
func (s *Simulation) Tick(now float64, external ...physics.CollisionEvent) error {
	delta := now - s.tick.Now
	if delta < 0 {
		return fmt.Errorf("tick at %v is before %v", now, s.tick.Now)
	}
	s.tick = systems.Tick{Index: s.tick.Index + 1, Now: now, Delta: delta}
	s.external = external

	if a, ok := s.source.(advancer); ok {
		a.Advance(now)
	}

	err := s.manager.Update(s.tick)
	if err != nil {
		s.logger.Error("tick failed", log.Int("tick", int(s.tick.Index)), log.Error(err))
	}
	s.external = nil
	return err
}

// Step advances by one fixed tick of the configured rate.
func (s *Simulation) Step() error {
	return s.Tick(float64(s.tick.Index+1) / s.cfg.Tick.Rate)
}

// Run steps until duration simulated seconds have passed or ctx is done,
// calling observe after every tick.
func (s *Simulation) Run(ctx context.Context, duration float64, observe func(Snapshot)) error {
	for s.tick.Now < duration {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_ = s.Step()
		if observe != nil {
			observe(s.Snapshot())
		}
	}
	return nil
}

// Rig exposes the avatar rig.
func (s *Simulation) Rig() *rig.AvatarRig { return s.avatar }

// Enemies exposes the enemy spawner.
func (s *Simulation) Enemies() *enemy.Spawner { return s.enemies }

// Effects exposes the effect spawner.
func (s *Simulation) Effects() *effects.Spawner { return s.effects }

// Mapper exposes the IK target mapper.
func (s *Simulation) Mapper() *tracking.Mapper { return s.mapper }

// Bus exposes the event bus.
func (s *Simulation) Bus() bus.EventBus { return s.bus }

// Systems exposes the tick pipeline.
func (s *Simulation) Systems() *systems.Manager { return s.manager }
