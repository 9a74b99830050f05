package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// EulerXYZ extracts intrinsic X, then Y, then Z angles (radians) from q.
// QuatFromEulerXYZ(EulerXYZ(q)) reproduces the rotation of q.
func EulerXYZ(q mgl64.Quat) mgl64.Vec3 {
	m := SafeQuat(q).Mat4()
	m13 := mgl64.Clamp(m.At(0, 2), -1, 1)

	y := math.Asin(m13)
	var x, z float64
	if math.Abs(m13) < 0.9999999 {
		x = math.Atan2(-m.At(1, 2), m.At(2, 2))
		z = math.Atan2(-m.At(0, 1), m.At(0, 0))
	} else {
		// gimbal lock: fold Z into X
		x = math.Atan2(m.At(2, 1), m.At(1, 1))
		z = 0
	}
	return mgl64.Vec3{x, y, z}
}

// QuatFromEulerXYZ builds the rotation for intrinsic X, Y, Z angles.
func QuatFromEulerXYZ(e mgl64.Vec3) mgl64.Quat {
	qx := mgl64.QuatRotate(e[0], mgl64.Vec3{1, 0, 0})
	qy := mgl64.QuatRotate(e[1], mgl64.Vec3{0, 1, 0})
	qz := mgl64.QuatRotate(e[2], mgl64.Vec3{0, 0, 1})
	return qx.Mul(qy).Mul(qz).Normalize()
}

// ClampEuler clamps each axis of e into [lo, hi] independently.
func ClampEuler(e, lo, hi mgl64.Vec3) mgl64.Vec3 {
	for i := 0; i < 3; i++ {
		e[i] = mgl64.Clamp(e[i], lo[i], hi[i])
	}
	return e
}

// DegreesVec converts a vector of degrees into radians.
func DegreesVec(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{mgl64.DegToRad(v[0]), mgl64.DegToRad(v[1]), mgl64.DegToRad(v[2])}
}
