// Package spatial holds the pose and frame math shared by the rig, the
// tracking layer and the enemy controllers.
//
// Every helper here absorbs degenerate input (zero-length quaternions,
// zero scale, zero vectors) by treating it as identity instead of failing.
package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Pose is a position plus orientation, produced fresh every tick.
type Pose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

// IdentityPose is the pose at the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Orientation: mgl64.QuatIdent()}
}

// Transform places a frame in its parent: Position + Rotation * (Scale * p).
// Scale is uniform.
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
	Scale    float64
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rotation: mgl64.QuatIdent(), Scale: 1}
}

// NewTransform builds a transform from position, rotation and uniform scale.
func NewTransform(position mgl64.Vec3, rotation mgl64.Quat, scale float64) Transform {
	return Transform{Position: position, Rotation: rotation, Scale: scale}
}

// FromPose lifts a pose into a unit-scale transform.
func FromPose(p Pose) Transform {
	return Transform{Position: p.Position, Rotation: p.Orientation, Scale: 1}
}

// Pose drops the scale of t.
func (t Transform) Pose() Pose {
	return Pose{Position: t.Position, Orientation: SafeQuat(t.Rotation)}
}

func (t Transform) rotation() mgl64.Quat { return SafeQuat(t.Rotation) }

func (t Transform) scale() float64 {
	if t.Scale == 0 || math.IsNaN(t.Scale) || math.IsInf(t.Scale, 0) {
		return 1
	}
	return t.Scale
}

// Apply maps a point from t's local space into its parent space.
func (t Transform) Apply(p mgl64.Vec3) mgl64.Vec3 {
	return t.Position.Add(t.rotation().Rotate(p.Mul(t.scale())))
}

// ApplyInverse maps a point from the parent space into t's local space.
func (t Transform) ApplyInverse(p mgl64.Vec3) mgl64.Vec3 {
	return t.rotation().Conjugate().Rotate(p.Sub(t.Position)).Mul(1 / t.scale())
}

// Compose returns the transform of child expressed in t's parent space.
func (t Transform) Compose(child Transform) Transform {
	rot := t.rotation()
	return Transform{
		Position: t.Apply(child.Position),
		Rotation: rot.Mul(child.rotation()).Normalize(),
		Scale:    t.scale() * child.scale(),
	}
}

// Inverse returns the transform that undoes t.
func (t Transform) Inverse() Transform {
	inv := t.rotation().Conjugate()
	s := 1 / t.scale()
	return Transform{
		Position: inv.Rotate(t.Position.Mul(-1)).Mul(s),
		Rotation: inv,
		Scale:    s,
	}
}

// ToLocal expresses a world pose relative to the reference frame ref:
// position = inverse(ref) * p, orientation = inverse(ref.Rotation) * q.
func ToLocal(world Pose, ref Transform) Pose {
	return Pose{
		Position:    ref.ApplyInverse(world.Position),
		Orientation: ref.rotation().Conjugate().Mul(SafeQuat(world.Orientation)).Normalize(),
	}
}

// ToWorld is the inverse of ToLocal.
func ToWorld(local Pose, ref Transform) Pose {
	return Pose{
		Position:    ref.Apply(local.Position),
		Orientation: ref.rotation().Mul(SafeQuat(local.Orientation)).Normalize(),
	}
}

// SafeQuat normalises q; zero-length or non-finite quaternions become identity.
func SafeQuat(q mgl64.Quat) mgl64.Quat {
	l := q.Len()
	if l < 1e-12 || math.IsNaN(l) || math.IsInf(l, 0) {
		return mgl64.QuatIdent()
	}
	return q.Normalize()
}

// Normalize returns the unit vector of v and false when v has no usable length.
func Normalize(v mgl64.Vec3) (mgl64.Vec3, bool) {
	l := v.Len()
	if l < 1e-9 || math.IsNaN(l) || math.IsInf(l, 0) {
		return mgl64.Vec3{}, false
	}
	return v.Mul(1 / l), true
}

// Finite reports whether all components of v are finite.
func Finite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// FiniteQuat reports whether all components of q are finite.
func FiniteQuat(q mgl64.Quat) bool {
	return Finite(q.V) && !math.IsNaN(q.W) && !math.IsInf(q.W, 0)
}

// YawRotation is a rotation of yaw radians about +Y.
func YawRotation(yaw float64) mgl64.Quat {
	return mgl64.QuatRotate(yaw, mgl64.Vec3{0, 1, 0})
}

// ShortestSlerp interpolates from a toward b along the shorter arc.
func ShortestSlerp(a, b mgl64.Quat, amount float64) mgl64.Quat {
	a, b = SafeQuat(a), SafeQuat(b)
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return SafeQuat(mgl64.QuatSlerp(a, b, amount))
}
