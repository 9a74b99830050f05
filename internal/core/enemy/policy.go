package enemy

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// DespawnPolicy decides whether an active enemy should be removed.
type DespawnPolicy interface {
	Name() string
	ShouldDespawn(c *Controller, now float64) bool
}

// KeepAll never despawns. Enemies persist until the session ends.
type KeepAll struct{}

func (KeepAll) Name() string { return "keep" }

func (KeepAll) ShouldDespawn(*Controller, float64) bool { return false }

// WithinRadius despawns enemies that come within Radius of Center.
type WithinRadius struct {
	Center mgl64.Vec3
	Radius float64
}

func (WithinRadius) Name() string { return "radius" }

func (p WithinRadius) ShouldDespawn(c *Controller, _ float64) bool {
	return c.Position().Sub(p.Center).Len() <= p.Radius
}

// PolicyConfig selects a despawn policy.
type PolicyConfig struct {
	Mode         string  `yaml:"mode"`
	Radius       float64 `yaml:"radius"`
	PollInterval float64 `yaml:"poll_interval"`
}

// NewPolicy builds the policy named by cfg.Mode. center is used by the
// radius mode.
func NewPolicy(cfg PolicyConfig, center mgl64.Vec3) (DespawnPolicy, error) {
	switch cfg.Mode {
	case "", "keep":
		return KeepAll{}, nil
	case "radius":
		if !(cfg.Radius > 0) {
			return nil, fmt.Errorf("%w: radius mode needs a positive radius", ErrUnknownPolicy)
		}
		return WithinRadius{Center: center, Radius: cfg.Radius}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, cfg.Mode)
	}
}
