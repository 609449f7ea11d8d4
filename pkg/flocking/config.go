package flocking

import "github.com/go-gl/mathgl/mgl32"

// Vec3 is the JSON form of a point.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

func (v Vec3) Vec() mgl32.Vec3 { return mgl32.Vec3{v.X, v.Y, v.Z} }

// Config holds the tuning values of a flock. They are read once by Start;
// changing them afterwards has no effect on a running flock.
type Config struct {
	RotationSpeed      float32 `json:"rotationSpeed"`
	BoidSpeed          float32 `json:"boidSpeed"`
	NeighbourDistance  float32 `json:"neighbourDistance"`
	BoidSpeedVariation float32 `json:"boidSpeedVariation"` // 0..1
	BoidsCount         int     `json:"boidsCount"`
	SpawnRadius        float32 `json:"spawnRadius"`
	Target             Vec3    `json:"target"` // where the flock gathers

	CohesionWeight   float32 `json:"cohesionWeight"`
	AlignmentWeight  float32 `json:"alignmentWeight"`
	SeparationWeight float32 `json:"separationWeight"`
	CursorWeight     float32 `json:"cursorWeight"`
}

func DefaultConfig() *Config {
	return &Config{
		RotationSpeed:      1,
		BoidSpeed:          1,
		NeighbourDistance:  1,
		BoidSpeedVariation: 1,
		BoidsCount:         500,
		SpawnRadius:        5,
		CohesionWeight:     1,
		AlignmentWeight:    1,
		SeparationWeight:   1,
		CursorWeight:       1,
	}
}
