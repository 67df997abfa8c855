package common

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Up is the vertical axis of the play space.
var Up = mgl64.Vec3{0, 1, 0}

// vectors shorter than this are treated as zero for angle and normalize math
const epsilonSq = 1e-15

// LenSq returns the squared magnitude of v.
func LenSq(v mgl64.Vec3) float64 {
	return v.Dot(v)
}

// Normalize returns v scaled to unit length, or the zero vector when v is
// too short to have a direction.
func Normalize(v mgl64.Vec3) mgl64.Vec3 {
	sq := LenSq(v)
	if sq < epsilonSq {
		return mgl64.Vec3{}
	}
	return v.Mul(1 / math.Sqrt(sq))
}

// Angle returns the unsigned angle in radians between from and to.
func Angle(from, to mgl64.Vec3) float64 {
	denom := math.Sqrt(LenSq(from) * LenSq(to))
	if denom < epsilonSq {
		return 0
	}
	dot := mgl64.Clamp(from.Dot(to)/denom, -1, 1)
	return math.Acos(dot)
}

// SignedAngle returns the angle between from and to, signed by the side of
// axis their cross product falls on. A zero cross product counts as positive.
func SignedAngle(from, to, axis mgl64.Vec3) float64 {
	angle := Angle(from, to)
	if axis.Dot(from.Cross(to)) < 0 {
		return -angle
	}
	return angle
}

// Flatten drops the vertical component of v.
func Flatten(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X(), 0, v.Z()}
}

// LookRotation returns the rotation whose +Z axis points along forward with
// +Y as close to up as possible. ok is false when forward has no direction.
func LookRotation(forward, up mgl64.Vec3) (mgl64.Quat, bool) {
	f := Normalize(forward)
	if f == (mgl64.Vec3{}) {
		return mgl64.QuatIdent(), false
	}
	r := Normalize(up.Cross(f))
	if r == (mgl64.Vec3{}) {
		// forward is parallel to up; pick any stable right axis
		r = Normalize(mgl64.Vec3{1, 0, 0}.Cross(f))
		if r == (mgl64.Vec3{}) {
			r = Normalize(mgl64.Vec3{0, 0, 1}.Cross(f))
		}
	}
	u := f.Cross(r)
	m := mgl64.Mat3FromCols(r, u, f)
	return mgl64.Mat4ToQuat(m.Mat4()).Normalize(), true
}

// Slerp interpolates along the shorter arc between a and b.
func Slerp(a, b mgl64.Quat, t float64) mgl64.Quat {
	if a.Dot(b) < 0 {
		b = b.Scale(-1)
	}
	return mgl64.QuatSlerp(a, b, t)
}

// Forward returns the +Z axis of rotation q.
func Forward(q mgl64.Quat) mgl64.Vec3 {
	return q.Rotate(mgl64.Vec3{0, 0, 1})
}

// YawRotation returns a rotation of yaw radians about Up.
func YawRotation(yaw float64) mgl64.Quat {
	return mgl64.QuatRotate(yaw, Up)
}
