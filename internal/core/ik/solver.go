// Package ik implements a constrained cyclic coordinate descent solver over
// the rig's bone arena.
package ik

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/avatarsim/internal/core/observability/log"
	"github.com/zeusync/avatarsim/internal/core/rig"
	"github.com/zeusync/avatarsim/internal/core/spatial"
)

const (
	DefaultIterations = 10
	DefaultMinAngle   = 1e-5
	DefaultTolerance  = 1e-6
)

// Config bounds the work done per chain per tick.
type Config struct {
	// Iterations is the number of passes over the chain.
	Iterations int `yaml:"iterations"`
	// MinAngle skips link corrections smaller than this (radians).
	MinAngle float64 `yaml:"min_angle"`
	// MaxStep caps a single link correction (radians). Zero disables it.
	MaxStep float64 `yaml:"max_step"`
	// Tolerance stops early once the effector is this close to the target.
	Tolerance float64 `yaml:"tolerance"`
}

// DefaultConfig returns the solver defaults.
func DefaultConfig() Config {
	return Config{
		Iterations: DefaultIterations,
		MinAngle:   DefaultMinAngle,
		Tolerance:  DefaultTolerance,
	}
}

// Result describes one chain solve.
type Result struct {
	Iterations int
	Distance   float64
	Rotated    int
	Reverted   int
}

// Solver is a CCD solver. It holds no per-chain state between calls.
type Solver struct {
	cfg    Config
	logger log.Log
}

// NewSolver creates a solver. Non-positive settings fall back to defaults.
func NewSolver(cfg Config, logger log.Log) *Solver {
	if cfg.Iterations <= 0 {
		cfg.Iterations = DefaultIterations
	}
	if cfg.MinAngle <= 0 {
		cfg.MinAngle = DefaultMinAngle
	}
	if cfg.Tolerance < 0 {
		cfg.Tolerance = 0
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Solver{cfg: cfg, logger: logger.Named("ik")}
}

// Config returns the effective configuration.
func (s *Solver) Config() Config { return s.cfg }

// SolveChain satisfies rig.Solver.
func (s *Solver) SolveChain(sk *rig.Skeleton, chain *rig.Chain, target mgl64.Vec3) {
	s.Solve(sk, chain, target)
}

// Solve runs up to Iterations passes of CCD on chain, walking from the
// effector's parent out to the chain root. Each link correction is applied
// to the link's local rotation, clamped per Euler axis and propagated to the
// link's descendants before the next link is visited. The skeleton is always
// left finite: a correction that produces a non-finite pose is reverted.
func (s *Solver) Solve(sk *rig.Skeleton, chain *rig.Chain, target mgl64.Vec3) Result {
	res := Result{}
	if sk == nil || chain == nil || !chain.Enabled || !sk.Valid(chain.Effector) {
		return res
	}
	if !spatial.Finite(target) {
		res.Distance = math.Inf(1)
		return res
	}

	for res.Iterations < s.cfg.Iterations {
		if s.cfg.Tolerance > 0 && s.distance(sk, chain, target) <= s.cfg.Tolerance {
			break
		}
		res.Iterations++

		rotated := false
		for _, link := range chain.Links {
			if !sk.Valid(link.Bone) {
				continue
			}
			switch s.step(sk, chain.Effector, link, target) {
			case stepRotated:
				rotated = true
				res.Rotated++
			case stepReverted:
				res.Reverted++
			}
		}
		if !rotated {
			break
		}
	}

	res.Distance = s.distance(sk, chain, target)
	return res
}

type stepOutcome int

const (
	stepSkipped stepOutcome = iota
	stepRotated
	stepReverted
)

func (s *Solver) step(sk *rig.Skeleton, effector int, link rig.Link, target mgl64.Vec3) stepOutcome {
	world := sk.World(link.Bone)
	inv := spatial.SafeQuat(world.Rotation).Conjugate()

	// both vectors in the link's own frame
	toEffector, okE := spatial.Normalize(inv.Rotate(sk.World(effector).Position.Sub(world.Position)))
	toTarget, okT := spatial.Normalize(inv.Rotate(target.Sub(world.Position)))
	if !okE || !okT {
		return stepSkipped
	}

	angle := math.Acos(mgl64.Clamp(toEffector.Dot(toTarget), -1, 1))
	if angle < s.cfg.MinAngle {
		return stepSkipped
	}
	if s.cfg.MaxStep > 0 && angle > s.cfg.MaxStep {
		angle = s.cfg.MaxStep
	}

	axis, ok := spatial.Normalize(toEffector.Cross(toTarget))
	if !ok {
		axis = perpendicular(toEffector)
	}

	before := sk.Local(link.Bone).Rotation
	next := link.Clamp(before.Mul(mgl64.QuatRotate(angle, axis)))
	if !spatial.FiniteQuat(next) {
		s.logger.Debug("non-finite link rotation discarded", log.String("bone", sk.Name(link.Bone)))
		return stepReverted
	}

	sk.SetLocalRotation(link.Bone, next)
	sk.UpdateWorldFrom(link.Bone)
	if !spatial.Finite(sk.World(effector).Position) {
		sk.SetLocalRotation(link.Bone, before)
		sk.UpdateWorldFrom(link.Bone)
		s.logger.Debug("non-finite effector reverted", log.String("bone", sk.Name(link.Bone)))
		return stepReverted
	}
	return stepRotated
}

func (s *Solver) distance(sk *rig.Skeleton, chain *rig.Chain, target mgl64.Vec3) float64 {
	return sk.World(chain.Effector).Position.Sub(target).Len()
}

// perpendicular returns a unit vector orthogonal to unit vector v.
func perpendicular(v mgl64.Vec3) mgl64.Vec3 {
	ref := mgl64.Vec3{1, 0, 0}
	if math.Abs(v.X()) > 0.9 {
		ref = mgl64.Vec3{0, 1, 0}
	}
	p, _ := spatial.Normalize(v.Cross(ref))
	return p
}
