package config

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Enemies.MaxEnemies)
	assert.Equal(t, 3.0, cfg.Enemies.Interval)
	assert.Equal(t, 1.0, cfg.Enemies.StartDelay)
	assert.Equal(t, [3]float64{0, 2.5, -3.5}, cfg.Enemies.Anchor)
	assert.Equal(t, 1.0, cfg.Effects.TTL)
	assert.Equal(t, 10, cfg.IK.Iterations)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	doc := `
tick:
  rate: 30
enemies:
  max: 4
  speed: 1.5
  despawn:
    mode: radius
    radius: 0.5
avatar:
  anchor: cockpit
`
	cfg, err := Load(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, 30.0, cfg.Tick.Rate)
	assert.InDelta(t, 1.0/30, cfg.Tick.Delta(), 1e-12)
	assert.Equal(t, 4, cfg.Enemies.MaxEnemies)
	assert.Equal(t, 1.5, cfg.Enemies.Speed)
	assert.Equal(t, "radius", cfg.Enemies.Despawn.Mode)
	assert.Equal(t, 1.0, cfg.Enemies.Despawn.PollInterval, "unset fields keep defaults")
	assert.Equal(t, 3.0, cfg.Enemies.Interval)
	assert.Equal(t, AnchorCockpit, cfg.Avatar.Anchor)
}

func TestLoadEmptyYieldsDefaults(t *testing.T) {
	cfg, err := Load(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)

	cfg, err = LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("enemies:\n  maximum: 3\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Tick.Rate = 0
	cfg.Avatar.Anchor = "orbit"
	cfg.Enemies.Volume.MinZ, cfg.Enemies.Volume.MaxZ = 1, -1
	cfg.Enemies.Despawn.Mode = "vanish"
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	for _, part := range []string{"tick.rate", "avatar.anchor", "enemies.volume", "enemies.despawn", "log.level"} {
		assert.Contains(t, err.Error(), part)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	raw, err := Marshal(Default())
	require.NoError(t, err)
	cfg, err := Load(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}
