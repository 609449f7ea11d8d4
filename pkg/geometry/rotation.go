package geometry

import (
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	// Forward is the local +Z axis objects face along.
	Forward = mgl32.Vec3{0, 0, 1}
	// Up is the world +Y axis.
	Up = mgl32.Vec3{0, 1, 0}
)

// InsideUnitSphere returns a point uniformly distributed inside a sphere of
// radius 1. It uses rejection sampling on the enclosing cube, which accepts
// about 52% of the candidates.
func InsideUnitSphere(rng *rand.Rand) mgl32.Vec3 {
	for {
		p := mgl32.Vec3{
			float32(rng.Float64()*2 - 1),
			float32(rng.Float64()*2 - 1),
			float32(rng.Float64()*2 - 1),
		}
		if p.Dot(p) <= 1 {
			return p
		}
	}
}

// RandomRotation returns a rotation uniformly distributed over SO(3)
// (Shoemake's subgroup algorithm).
func RandomRotation(rng *rand.Rand) mgl32.Quat {
	u1, u2, u3 := rng.Float64(), rng.Float64(), rng.Float64()
	a := math.Sqrt(1 - u1)
	b := math.Sqrt(u1)
	s2, c2 := math.Sincos(2 * math.Pi * u2)
	s3, c3 := math.Sincos(2 * math.Pi * u3)
	return mgl32.Quat{
		W: float32(b * c3),
		V: mgl32.Vec3{float32(a * s2), float32(a * c2), float32(b * s3)},
	}.Normalize()
}

// Slerp spherically interpolates from a toward b by t.
func Slerp(a, b mgl32.Quat, t float32) mgl32.Quat {
	return mgl32.QuatSlerp(a, b, t)
}

// EulerAngles decomposes q into rotations about X, Y and Z in degrees, each
// normalised to [0, 360). The decomposition assumes the rotation is applied
// Z first, then X, then Y, i.e. q = Ry * Rx * Rz.
func EulerAngles(q mgl32.Quat) mgl32.Vec3 {
	q = q.Normalize()
	w, x, y, z := float64(q.W), float64(q.V[0]), float64(q.V[1]), float64(q.V[2])

	r00 := 1 - 2*(y*y+z*z)
	r02 := 2 * (x*z + w*y)
	r10 := 2 * (x*y + w*z)
	r11 := 1 - 2*(x*x+z*z)
	r12 := 2 * (y*z - w*x)
	r20 := 2 * (x*z - w*y)
	r22 := 1 - 2*(x*x+y*y)

	var ex, ey, ez float64
	sx := -r12
	if math.Abs(sx) < 0.999999 {
		ex = math.Asin(sx)
		ey = math.Atan2(r02, r22)
		ez = math.Atan2(r10, r11)
	} else {
		// gimbal lock: roll folds into yaw
		ex = math.Copysign(math.Pi/2, sx)
		ey = math.Atan2(-r20, r00)
		ez = 0
	}
	return mgl32.Vec3{
		wrapDegrees(mgl32.RadToDeg(float32(ex))),
		wrapDegrees(mgl32.RadToDeg(float32(ey))),
		wrapDegrees(mgl32.RadToDeg(float32(ez))),
	}
}

// FromEuler builds the rotation EulerAngles decomposes, angles in degrees.
func FromEuler(angles mgl32.Vec3) mgl32.Quat {
	qx := mgl32.QuatRotate(mgl32.DegToRad(angles[0]), mgl32.Vec3{1, 0, 0})
	qy := mgl32.QuatRotate(mgl32.DegToRad(angles[1]), mgl32.Vec3{0, 1, 0})
	qz := mgl32.QuatRotate(mgl32.DegToRad(angles[2]), mgl32.Vec3{0, 0, 1})
	return qy.Mul(qx).Mul(qz)
}

// LookRotation returns the rotation turning Forward onto dir. A zero dir
// yields the identity.
func LookRotation(dir mgl32.Vec3) mgl32.Quat {
	if IsZero(dir) {
		return mgl32.QuatIdent()
	}
	return mgl32.QuatBetweenVectors(Forward, dir)
}

func wrapDegrees(d float32) float32 {
	d = float32(math.Mod(float64(d), 360))
	if d < 0 {
		d += 360
	}
	if d >= 360 {
		d = 0
	}
	return d
}
