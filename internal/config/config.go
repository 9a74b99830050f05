// Package config loads the simulation settings from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/avatarsim/internal/core/effects"
	"github.com/zeusync/avatarsim/internal/core/enemy"
	"github.com/zeusync/avatarsim/internal/core/ik"
	"github.com/zeusync/avatarsim/internal/core/observability/log"
	"github.com/zeusync/avatarsim/internal/core/tracking"
)

var ErrInvalidConfig = errors.New("invalid config")

// Anchor modes.
const (
	AnchorStatic  = "static"
	AnchorCockpit = "cockpit"
)

// Config is the root document.
type Config struct {
	Log      log.Config           `yaml:"log"`
	Tick     TickConfig           `yaml:"tick"`
	Avatar   AvatarConfig         `yaml:"avatar"`
	IK       ik.Config            `yaml:"ik"`
	Enemies  EnemiesConfig        `yaml:"enemies"`
	Effects  effects.Config       `yaml:"effects"`
	Tracking tracking.SweepConfig `yaml:"tracking"`
}

// TickConfig sets the fixed step of the headless driver.
type TickConfig struct {
	// Rate is ticks per simulated second.
	Rate float64 `yaml:"rate"`
	// StunPoll is the cadence of the stun timer check (seconds).
	StunPoll float64 `yaml:"stun_poll"`
}

// Delta returns the simulated seconds per tick.
func (t TickConfig) Delta() float64 { return 1 / t.Rate }

// AvatarConfig places the avatar and drives the mapping from devices to IK
// targets. Angles are in degrees.
type AvatarConfig struct {
	// Rig is a descriptor path; empty selects the bundled humanoid.
	Rig    string     `yaml:"rig"`
	Scale  float64    `yaml:"scale"`
	Origin [3]float64 `yaml:"origin"`
	Yaw    float64    `yaml:"yaw"`

	TargetScale     float64 `yaml:"target_scale"`
	TargetYawOffset float64 `yaml:"target_yaw_offset"`
	HeadYawOffset   float64 `yaml:"head_yaw_offset"`
	WaistYaw        float64 `yaml:"waist_yaw"`

	Anchor         string     `yaml:"anchor"`
	AnchorPosition [3]float64 `yaml:"anchor_position"`
	AnchorYaw      float64    `yaml:"anchor_yaw"`
	ChestOffset    float64    `yaml:"chest_offset"`
	Character      [3]float64 `yaml:"character"`
}

// EnemiesConfig groups the spawner, per-enemy behaviour and despawn policy.
type EnemiesConfig struct {
	enemy.SpawnerConfig `yaml:",inline"`
	enemy.Config        `yaml:",inline"`
	Despawn             enemy.PolicyConfig `yaml:"despawn"`
}

// Default returns the stock tuning.
func Default() Config {
	return Config{
		Log: log.Config{Level: "info", Encoding: "console"},
		Tick: TickConfig{
			Rate:     60,
			StunPoll: 0.1,
		},
		Avatar: AvatarConfig{
			Scale:       1,
			TargetScale: 1,
			Anchor:      AnchorStatic,
			ChestOffset: 0.3,
			Character:   [3]float64{0, 0, -3},
		},
		IK: ik.DefaultConfig(),
		Enemies: EnemiesConfig{
			SpawnerConfig: enemy.DefaultSpawnerConfig(),
			Config:        enemy.DefaultConfig(),
			Despawn:       enemy.PolicyConfig{Mode: "keep", PollInterval: 1},
		},
		Effects:  effects.DefaultConfig(),
		Tracking: tracking.DefaultSweep(),
	}
}

// Load decodes a YAML document over Default and validates the result. An
// empty document yields the defaults.
func Load(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile reads a config file. An empty path yields the defaults.
func LoadFile(path string) (*Config, error) {
	if path == "" {
		return Load(bytes.NewReader(nil))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// Validate reports every problem found, joined.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("%w: log.level: %v", ErrInvalidConfig, err))
	}
	check(c.Tick.Rate > 0, "tick.rate must be positive, got %v", c.Tick.Rate)
	check(c.Tick.StunPoll > 0, "tick.stun_poll must be positive, got %v", c.Tick.StunPoll)

	check(c.Avatar.Scale > 0, "avatar.scale must be positive, got %v", c.Avatar.Scale)
	check(c.Avatar.TargetScale > 0, "avatar.target_scale must be positive, got %v", c.Avatar.TargetScale)
	check(c.Avatar.Anchor == AnchorStatic || c.Avatar.Anchor == AnchorCockpit,
		"avatar.anchor must be %q or %q, got %q", AnchorStatic, AnchorCockpit, c.Avatar.Anchor)

	check(c.IK.Iterations > 0, "ik.iterations must be positive, got %d", c.IK.Iterations)

	e := c.Enemies
	check(e.MaxEnemies >= 0, "enemies.max must not be negative, got %d", e.MaxEnemies)
	check(e.Interval > 0, "enemies.spawn_interval must be positive, got %v", e.Interval)
	check(e.StartDelay >= 0, "enemies.start_delay must not be negative, got %v", e.StartDelay)
	check(e.Volume.Valid(), "enemies.volume is inverted")
	check(e.Speed >= 0, "enemies.speed must not be negative, got %v", e.Speed)
	check(e.StunDuration > 0, "enemies.stun_duration must be positive, got %v", e.StunDuration)
	check(e.SlerpFactor >= 0 && e.SlerpFactor <= 1, "enemies.slerp_factor must be in [0,1], got %v", e.SlerpFactor)
	check(e.Radius > 0, "enemies.radius must be positive, got %v", e.Radius)
	check(e.Despawn.PollInterval > 0, "enemies.despawn.poll_interval must be positive, got %v", e.Despawn.PollInterval)
	if _, err := enemy.NewPolicy(e.Despawn, mgl64.Vec3(e.Anchor)); err != nil {
		errs = append(errs, fmt.Errorf("%w: enemies.despawn: %v", ErrInvalidConfig, err))
	}

	f := c.Effects
	check(f.TTL > 0, "effects.ttl must be positive, got %v", f.TTL)
	check(f.MinSpeed >= 0 && f.MinSpeed <= f.MinMaxSpeed,
		"effects.min_speed must be in [0, min_max_speed], got %v", f.MinSpeed)
	check(f.ImpactScale >= 0, "effects.impact_scale must not be negative, got %v", f.ImpactScale)

	return errors.Join(errs...)
}
