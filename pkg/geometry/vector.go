package geometry

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Epsilon is the length under which a vector is treated as zero.
const Epsilon = 1e-6

// Normalize returns a unit vector in the same direction as v.
// Unlike mgl32.Vec3.Normalize it returns the zero vector when v is
// effectively zero instead of a vector of NaNs.
func Normalize(v mgl32.Vec3) mgl32.Vec3 {
	l := v.Len()
	if l < Epsilon {
		return mgl32.Vec3{}
	}
	return v.Mul(1 / l)
}

// Lerp linearly interpolates between a and b. t is not clamped.
func Lerp(a, b mgl32.Vec3, t float32) mgl32.Vec3 {
	// a + (b - a) * t
	return a.Add(b.Sub(a).Mul(t))
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b mgl32.Vec3) float32 {
	return a.Sub(b).Len()
}

// DistanceSquared avoids the square root; use it for comparisons.
func DistanceSquared(a, b mgl32.Vec3) float32 {
	d := a.Sub(b)
	return d.Dot(d)
}

// Clamp restricts v to [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	return float32(math.Min(math.Max(float64(v), float64(lo)), float64(hi)))
}

// IsZero reports whether every component of v is within Epsilon of zero.
func IsZero(v mgl32.Vec3) bool {
	return v.Len() < Epsilon
}

// Format renders a vector with two decimals, handy in log fields.
func Format(v mgl32.Vec3) string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v[0], v[1], v[2])
}
