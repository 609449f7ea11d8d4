package flocking

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Boid is one flocking agent as laid out in device memory.
// Boids is an artificial life program, developed by Craig Reynolds in 1986,
// which simulates the flocking behaviour of birds. https://en.wikipedia.org/wiki/Boids
type Boid struct {
	Position mgl32.Vec3
	// Direction starts out as the Euler angles (degrees) of the spawn
	// rotation; the kernel treats it as a heading vector from then on.
	Direction   mgl32.Vec3
	NoiseOffset float32
}

const (
	boidWords = 7
	// BoidStride is the size of one record in bytes.
	BoidStride = boidWords * 4
)

// EncodeBoids packs boids into device words, fields in declaration order.
func EncodeBoids(boids []Boid) []uint32 {
	out := make([]uint32, 0, len(boids)*boidWords)
	for _, b := range boids {
		out = appendBoid(out, b)
	}
	return out
}

func appendBoid(dst []uint32, b Boid) []uint32 {
	return append(dst,
		math.Float32bits(b.Position[0]),
		math.Float32bits(b.Position[1]),
		math.Float32bits(b.Position[2]),
		math.Float32bits(b.Direction[0]),
		math.Float32bits(b.Direction[1]),
		math.Float32bits(b.Direction[2]),
		math.Float32bits(b.NoiseOffset),
	)
}

// DecodeBoid unpacks a single record. rec must hold at least seven words.
func DecodeBoid(rec []uint32) Boid {
	_ = rec[boidWords-1]
	return Boid{
		Position: mgl32.Vec3{
			math.Float32frombits(rec[0]),
			math.Float32frombits(rec[1]),
			math.Float32frombits(rec[2]),
		},
		Direction: mgl32.Vec3{
			math.Float32frombits(rec[3]),
			math.Float32frombits(rec[4]),
			math.Float32frombits(rec[5]),
		},
		NoiseOffset: math.Float32frombits(rec[6]),
	}
}
