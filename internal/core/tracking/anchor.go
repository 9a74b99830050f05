package tracking

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/avatarsim/internal/core/spatial"
)

// Anchor is the reference frame hand poses are expressed in.
type Anchor interface {
	// Update feeds the latest head sample; tracked is false when none exists.
	Update(head spatial.Pose, tracked bool)
	// Frame returns the anchor's current world transform.
	Frame() spatial.Transform
}

// StaticAnchor is a fixed reference frame written from configuration.
type StaticAnchor struct {
	frame spatial.Transform
}

// NewStaticAnchor creates an anchor at position, rotated yaw radians about +Y.
func NewStaticAnchor(position mgl64.Vec3, yaw float64) *StaticAnchor {
	return &StaticAnchor{frame: spatial.Transform{
		Position: position,
		Rotation: spatial.YawRotation(yaw),
		Scale:    1,
	}}
}

// Set replaces the frame.
func (a *StaticAnchor) Set(frame spatial.Transform) { a.frame = frame }

func (a *StaticAnchor) Update(spatial.Pose, bool) {}

func (a *StaticAnchor) Frame() spatial.Transform { return a.frame }

// CockpitAnchor follows the user's head: it sits ChestOffset below the head
// and turns about +Y to face a fixed character position.
type CockpitAnchor struct {
	chestOffset float64
	character   mgl64.Vec3

	position mgl64.Vec3
	yaw      float64
}

// NewCockpitAnchor creates a cockpit anchor. Until the first head sample it
// sits at the origin facing +Z.
func NewCockpitAnchor(chestOffset float64, character mgl64.Vec3) *CockpitAnchor {
	return &CockpitAnchor{chestOffset: chestOffset, character: character}
}

// Update recomputes the frame from a head sample. An untracked head keeps
// the previous frame, and a head directly above the character keeps the
// previous yaw.
func (a *CockpitAnchor) Update(head spatial.Pose, tracked bool) {
	if !tracked || !spatial.Finite(head.Position) {
		return
	}
	a.position = head.Position.Sub(mgl64.Vec3{0, a.chestOffset, 0})

	dx := a.character.X() - head.Position.X()
	dz := a.character.Z() - head.Position.Z()
	if math.Hypot(dx, dz) > 1e-9 {
		a.yaw = math.Atan2(dx, dz)
	}
}

// Yaw returns the current heading in radians.
func (a *CockpitAnchor) Yaw() float64 { return a.yaw }

func (a *CockpitAnchor) Frame() spatial.Transform {
	return spatial.Transform{
		Position: a.position,
		Rotation: spatial.YawRotation(a.yaw),
		Scale:    1,
	}
}
