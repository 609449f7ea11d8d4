package flocking

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/compute"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/geometry"
	"go.uber.org/zap"
)

const (
	// KernelName is the entry point the flock dispatches.
	KernelName = "CSMain"
	// BufferName is the slot shared by the kernel and the material.
	BufferName = "boidsBuffer"
	// DefaultThreadGroupWidth is the X size CSMain is declared with.
	DefaultThreadGroupWidth = 64
)

// Uniform names understood by CSMain.
const (
	uRotationSpeed      = "rotationSpeed"
	uBoidSpeed          = "boidSpeed"
	uBoidSpeedVariation = "boidSpeedVariation"
	uFlockPosition      = "flockPosition"
	uFlockForward       = "flockForward"
	uNeighbourDistance  = "neighbourDistance"
	uBoidsCount         = "boidsCount"
	uCohesionWeight     = "cohesionWeight"
	uAlignmentWeight    = "alignmentWeight"
	uSeparationWeight   = "separationWeight"
	uCursorWeight       = "cursorWeight"
	uTime               = "time"
	uDeltaTime          = "deltaTime"
	uCursor             = "cursor"
)

// NewComputeShader returns a program holding CSMain declared with the given
// thread-group width.
func NewComputeShader(groupWidth uint32, logger *zap.Logger) *compute.Shader {
	s := compute.NewShader("flocking", logger)
	s.AddKernel(KernelName, [3]uint32{groupWidth, 1, 1}, csMain)
	return s
}

// params is the uniform block as CSMain reads it.
type params struct {
	rotationSpeed, boidSpeed, speedVariation float32
	flockPosition, flockForward, cursor      mgl32.Vec3
	neighbourDistance                        float32
	count                                    int
	cohesion, alignment, separation, toward  float32
	time, deltaTime                          float32
}

func readParams(env *compute.Env) params {
	return params{
		rotationSpeed:     env.Float(uRotationSpeed),
		boidSpeed:         env.Float(uBoidSpeed),
		speedVariation:    env.Float(uBoidSpeedVariation),
		flockPosition:     env.Vector(uFlockPosition),
		flockForward:      env.Vector(uFlockForward),
		cursor:            env.Vector(uCursor),
		neighbourDistance: env.Float(uNeighbourDistance),
		count:             int(env.Int(uBoidsCount)),
		cohesion:          env.Float(uCohesionWeight),
		alignment:         env.Float(uAlignmentWeight),
		separation:        env.Float(uSeparationWeight),
		toward:            env.Float(uCursorWeight),
		time:              env.Float(uTime),
		deltaTime:         env.Float(uDeltaTime),
	}
}

func csMain(id compute.ThreadID, env *compute.Env) {
	view, ok := env.Buffer(BufferName)
	if !ok {
		return
	}
	p := readParams(env)
	count := min(p.count, view.Len())
	i := int(id.Dispatch[0])
	if i >= count {
		return
	}

	next := steer(i, count, view.Read, p)
	var rec [boidWords]uint32
	view.Write(i, appendBoid(rec[:0], next))
}

// steer advances boid i by one step given read access to the whole flock.
func steer(i, count int, read func(int) []uint32, p params) Boid {
	boid := DecodeBoid(read(i))

	noise := geometry.Clamp(geometry.Noise1(p.time/100+boid.NoiseOffset), -1, 1)*2 - 1
	velocity := p.boidSpeed * (1 + noise*p.speedVariation)

	var separation, alignment mgl32.Vec3
	cohesion := p.flockPosition
	nearby := float32(1) // the boid itself

	nd := p.neighbourDistance
	for j := 0; j < count; j++ {
		if j == i {
			continue
		}
		other := DecodeBoid(read(j))
		if nd <= 0 || geometry.DistanceSquared(boid.Position, other.Position) >= nd*nd {
			continue
		}
		diff := boid.Position.Sub(other.Position)
		dist := diff.Len()
		if dist > geometry.Epsilon {
			scaler := geometry.Clamp(1-dist/nd, 0, 1)
			separation = separation.Add(diff.Mul(scaler / dist))
		}
		alignment = alignment.Add(geometry.Normalize(other.Direction))
		cohesion = cohesion.Add(other.Position)
		nearby++
	}

	avg := 1 / nearby
	alignment = alignment.Mul(avg)
	cohesion = geometry.Normalize(cohesion.Mul(avg).Sub(boid.Position))

	toCursor := p.cursor.Sub(boid.Position)
	attraction := geometry.Normalize(toCursor).Mul(1 / (1 + toCursor.Len()))

	direction := cohesion.Mul(p.cohesion).
		Add(alignment.Mul(p.alignment)).
		Add(separation.Mul(p.separation)).
		Add(attraction.Mul(p.toward))

	heading := geometry.Normalize(boid.Direction)
	ip := float32(math.Exp(float64(-p.rotationSpeed * p.deltaTime)))
	boid.Direction = geometry.Lerp(direction, heading, ip)
	if geometry.IsZero(boid.Direction) {
		boid.Direction = geometry.Normalize(p.flockForward)
	}

	boid.Position = boid.Position.Add(boid.Direction.Mul(velocity * p.deltaTime))
	return boid
}
