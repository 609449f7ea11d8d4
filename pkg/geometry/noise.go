package geometry

import "math"

// Noise1 is one dimensional gradient noise in roughly [-1, 1]. It is smooth,
// deterministic and periodic with period 256.
func Noise1(x float32) float32 {
	fx := math.Floor(float64(x))
	i := int(fx) & 255
	f := float64(x) - fx

	g0 := gradient(hash(i), f)
	g1 := gradient(hash((i+1)&255), f-1)

	// quintic fade
	u := f * f * f * (f*(f*6-15) + 10)
	return float32(2 * (g0 + u*(g1-g0)))
}

func gradient(h uint32, d float64) float64 {
	// slopes in [-1, 1] picked from the lattice hash
	g := float64(h&0xffff)/float64(0xffff)*2 - 1
	return g * d
}

// hash is a small integer mixer (lowbias32).
func hash(i int) uint32 {
	x := uint32(i)
	x ^= x >> 16
	x *= 0x7feb352d
	x ^= x >> 15
	x *= 0x846ca68b
	x ^= x >> 16
	return x
}
