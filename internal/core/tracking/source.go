// Package tracking turns tracked device poses into IK target slots expressed
// in the avatar's reference frame.
package tracking

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/avatarsim/internal/core/spatial"
)

// DeviceID names a tracked device.
type DeviceID string

const (
	Head      DeviceID = "head"
	LeftHand  DeviceID = "left-controller"
	RightHand DeviceID = "right-controller"
)

// PoseSource reports the latest world pose sample of a device. ok is false
// when the device is not tracked this tick. Implementations must not block.
type PoseSource interface {
	CurrentPose(device DeviceID) (pose spatial.Pose, ok bool)
}

// StaticSource is a PoseSource whose samples are written by the caller.
type StaticSource struct {
	mu    sync.RWMutex
	poses map[DeviceID]spatial.Pose
}

// NewStaticSource creates an empty source; every device starts untracked.
func NewStaticSource() *StaticSource {
	return &StaticSource{poses: make(map[DeviceID]spatial.Pose)}
}

// Set publishes a sample for device.
func (s *StaticSource) Set(device DeviceID, pose spatial.Pose) {
	s.mu.Lock()
	s.poses[device] = pose
	s.mu.Unlock()
}

// Lose marks device as untracked.
func (s *StaticSource) Lose(device DeviceID) {
	s.mu.Lock()
	delete(s.poses, device)
	s.mu.Unlock()
}

// CurrentPose implements PoseSource.
func (s *StaticSource) CurrentPose(device DeviceID) (spatial.Pose, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.poses[device]
	return p, ok
}

// SweepConfig describes the scripted motion used by the headless driver:
// the head sits still and each hand traces a circle in front of it.
type SweepConfig struct {
	Head   [3]float64 `yaml:"head"`
	Left   [3]float64 `yaml:"left"`
	Right  [3]float64 `yaml:"right"`
	Radius float64    `yaml:"radius"`
	Period float64    `yaml:"period"`
	// DropEvery makes the left controller untracked for one second out of
	// every DropEvery seconds. Zero keeps it tracked.
	DropEvery float64 `yaml:"drop_every"`
}

// DefaultSweep returns a sweep that keeps both hands within reach.
func DefaultSweep() SweepConfig {
	return SweepConfig{
		Head:   [3]float64{0, 1.6, 0},
		Left:   [3]float64{0.3, 1.3, -0.4},
		Right:  [3]float64{-0.3, 1.3, -0.4},
		Radius: 0.15,
		Period: 2,
	}
}

// ScriptedSource replays a SweepConfig against simulation time.
type ScriptedSource struct {
	cfg SweepConfig

	mu  sync.RWMutex
	now float64
}

// NewScriptedSource creates a scripted source at time zero.
func NewScriptedSource(cfg SweepConfig) *ScriptedSource {
	if cfg.Period <= 0 {
		cfg.Period = DefaultSweep().Period
	}
	return &ScriptedSource{cfg: cfg}
}

// Advance moves the script to simulation time now.
func (s *ScriptedSource) Advance(now float64) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// CurrentPose implements PoseSource.
func (s *ScriptedSource) CurrentPose(device DeviceID) (spatial.Pose, bool) {
	s.mu.RLock()
	now := s.now
	s.mu.RUnlock()

	phase := 2 * math.Pi * now / s.cfg.Period
	switch device {
	case Head:
		return spatial.Pose{Position: mgl64.Vec3(s.cfg.Head), Orientation: mgl64.QuatIdent()}, true
	case LeftHand:
		if s.cfg.DropEvery > 0 && math.Mod(now, s.cfg.DropEvery) < 1 {
			return spatial.Pose{}, false
		}
		return s.circle(s.cfg.Left, phase), true
	case RightHand:
		return s.circle(s.cfg.Right, phase+math.Pi), true
	default:
		return spatial.Pose{}, false
	}
}

func (s *ScriptedSource) circle(center [3]float64, phase float64) spatial.Pose {
	offset := mgl64.Vec3{math.Cos(phase), math.Sin(phase), 0}.Mul(s.cfg.Radius)
	return spatial.Pose{
		Position:    mgl64.Vec3(center).Add(offset),
		Orientation: mgl64.QuatIdent(),
	}
}
