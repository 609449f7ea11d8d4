package flocking

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/compute"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/render"
	"go.uber.org/zap"
)

var (
	ErrInvalidBoidsCount = errors.New("boidsCount must be positive")
	ErrNotStarted        = errors.New("flock not started")
	ErrDestroyed         = errors.New("flock destroyed")
)

// spawnBlend is how far each spawn rotation leans from the owner's
// orientation toward a random one.
const spawnBlend = 0.3

// State is the lifecycle stage of a Flock.
type State int

const (
	StateUninitialized State = iota
	StateRunning
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRunning:
		return "running"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Transform is a position and orientation in world space.
type Transform struct {
	Position mgl32.Vec3
	Rotation mgl32.Quat
}

// Forward is the +Z axis of the transform.
func (t Transform) Forward() mgl32.Vec3 {
	return t.Rotation.Rotate(geometry.Forward)
}

// Resources is everything a Flock works with but does not configure.
type Resources struct {
	Device   *compute.Device
	Shader   *compute.Shader
	Mesh     *render.Mesh // may be nil: the flock then draws nothing
	Material *render.Material
	// Owner is where the flock spawns and which way it initially faces.
	Owner  Transform
	Logger *zap.Logger
	Rand   *rand.Rand
}

// FrameInput is the per-frame state pushed to the kernel.
type FrameInput struct {
	Time      float32
	DeltaTime float32
	// Cursor is the pointer position in world space.
	Cursor mgl32.Vec2
}

// Flock spawns boids once, hands them to the compute kernel and draws them
// with a single indirect instanced draw per frame. The host never reads the
// boids back.
type Flock struct {
	cfg Config
	res Resources

	logger *zap.Logger
	rng    *rand.Rand

	state      State
	started    bool
	kernel     int
	groupSizeX int
	numOfBoids int
	bounds     render.Bounds
	boids      []Boid
	args       render.DrawArgs

	boidsBuffer *compute.Buffer
	argsBuffer  *compute.Buffer
}

// New creates a flock. Nothing is allocated until Start.
func New(cfg *Config, res Resources) *Flock {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := res.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rng := res.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if res.Owner.Rotation == (mgl32.Quat{}) {
		res.Owner.Rotation = mgl32.QuatIdent()
	}
	return &Flock{
		cfg:    *cfg,
		res:    res,
		logger: logger.Named("flock"),
		rng:    rng,
		kernel: -1,
	}
}

func (f *Flock) State() State          { return f.state }
func (f *Flock) NumOfBoids() int       { return f.numOfBoids }
func (f *Flock) GroupSizeX() int       { return f.groupSizeX }
func (f *Flock) Bounds() render.Bounds { return f.bounds }
func (f *Flock) Args() render.DrawArgs { return f.args }

// Start sizes the flock to the kernel's thread-group width, spawns the
// boids and binds the device buffers.
func (f *Flock) Start() error {
	if f.state == StateDestroyed {
		return ErrDestroyed
	}
	if f.started {
		return nil
	}
	if f.cfg.BoidsCount <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidBoidsCount, f.cfg.BoidsCount)
	}

	k, err := f.res.Shader.FindKernel(KernelName)
	if err != nil {
		return fmt.Errorf("find kernel: %w", err)
	}
	f.kernel = k

	x, _, _, err := f.res.Shader.GetKernelThreadGroupSizes(k)
	if err != nil {
		return fmt.Errorf("thread group sizes: %w", err)
	}
	f.groupSizeX, f.numOfBoids = RoundToGroups(f.cfg.BoidsCount, int(x))
	f.bounds = render.Bounds{Size: mgl32.Vec3{1000, 1000, 1000}}

	f.initBoids()
	if err := f.initShader(); err != nil {
		f.Destroy()
		return err
	}
	f.started = true

	f.logger.Info("flock started",
		zap.Int("boidsCount", f.cfg.BoidsCount),
		zap.Int("numOfBoids", f.numOfBoids),
		zap.Int("threadGroupWidth", int(x)),
		zap.Int("groupSizeX", f.groupSizeX),
		zap.Uint32("indexCount", f.args.IndexCount),
		zap.String("target", geometry.Format(f.cfg.Target.Vec())))
	return nil
}

// RoundToGroups returns how many thread groups of width are needed to cover
// count, and the padded count they cover.
func RoundToGroups(count, width int) (groups, padded int) {
	if count <= 0 || width <= 0 {
		return 0, 0
	}
	groups = (count + width - 1) / width
	return groups, groups * width
}

func (f *Flock) initBoids() {
	owner := f.res.Owner
	f.boids = make([]Boid, f.numOfBoids)
	for i := range f.boids {
		pos := owner.Position.Add(geometry.InsideUnitSphere(f.rng).Mul(f.cfg.SpawnRadius))
		rot := geometry.Slerp(owner.Rotation, geometry.RandomRotation(f.rng), spawnBlend)
		offset := f.rng.Float32() * 1000
		f.boids[i] = Boid{Position: pos, Direction: geometry.EulerAngles(rot), NoiseOffset: offset}
	}
}

func (f *Flock) initShader() error {
	var err error
	f.boidsBuffer, err = f.res.Device.NewBuffer(f.numOfBoids, BoidStride, compute.Structured)
	if err != nil {
		return fmt.Errorf("allocate boids buffer: %w", err)
	}
	if err := f.boidsBuffer.SetData(EncodeBoids(f.boids)); err != nil {
		return fmt.Errorf("upload boids: %w", err)
	}

	f.argsBuffer, err = f.res.Device.NewBuffer(1, render.DrawArgsWords*4, compute.IndirectArguments)
	if err != nil {
		return fmt.Errorf("allocate args buffer: %w", err)
	}
	// reserved fields are written as explicit zeros
	f.args = render.DrawArgs{InstanceCount: uint32(f.numOfBoids)}
	if f.res.Mesh != nil {
		f.args.IndexCount = f.res.Mesh.IndexCount(0)
	} else {
		f.logger.Warn("no boid mesh assigned, nothing will be drawn")
	}
	if err := f.argsBuffer.SetData(f.args.Words()); err != nil {
		return fmt.Errorf("upload draw args: %w", err)
	}

	sh := f.res.Shader
	if err := sh.SetBuffer(f.kernel, BufferName, f.boidsBuffer); err != nil {
		return fmt.Errorf("bind boids buffer: %w", err)
	}
	sh.SetFloat(uRotationSpeed, f.cfg.RotationSpeed)
	sh.SetFloat(uBoidSpeed, f.cfg.BoidSpeed)
	sh.SetFloat(uBoidSpeedVariation, f.cfg.BoidSpeedVariation)
	sh.SetVector(uFlockPosition, f.cfg.Target.Vec())
	sh.SetVector(uFlockForward, f.res.Owner.Forward())
	sh.SetFloat(uNeighbourDistance, f.cfg.NeighbourDistance)
	sh.SetInt(uBoidsCount, int32(f.numOfBoids))
	sh.SetFloat(uCohesionWeight, f.cfg.CohesionWeight)
	sh.SetFloat(uAlignmentWeight, f.cfg.AlignmentWeight)
	sh.SetFloat(uSeparationWeight, f.cfg.SeparationWeight)
	sh.SetFloat(uCursorWeight, f.cfg.CursorWeight)

	if f.res.Material != nil {
		f.res.Material.SetBuffer(BufferName, f.boidsBuffer)
	}
	return nil
}

// Update pushes the frame input, runs the kernel over every boid and then
// draws them. The draw is issued after Dispatch has returned, so it always
// sees this frame's positions.
func (f *Flock) Update(in FrameInput, gfx render.Graphics) error {
	switch {
	case f.state == StateDestroyed:
		return ErrDestroyed
	case !f.started:
		return ErrNotStarted
	case f.state == StateUninitialized:
		f.state = StateRunning
		f.logger.Debug("flock running")
	}

	sh := f.res.Shader
	sh.SetFloat(uTime, in.Time)
	sh.SetFloat(uDeltaTime, in.DeltaTime)
	sh.SetVector(uCursor, mgl32.Vec3{in.Cursor[0], in.Cursor[1], 0})

	if err := sh.Dispatch(f.kernel, f.groupSizeX, 1, 1); err != nil {
		return fmt.Errorf("dispatch %s: %w", KernelName, err)
	}
	if gfx == nil {
		return nil
	}
	if err := gfx.DrawMeshInstancedIndirect(f.res.Mesh, 0, f.res.Material, f.bounds, f.argsBuffer); err != nil {
		return fmt.Errorf("draw boids: %w", err)
	}
	return nil
}

// Destroy releases the device buffers. It is safe to call more than once.
func (f *Flock) Destroy() {
	if f.boidsBuffer != nil {
		f.boidsBuffer.Release()
		f.boidsBuffer = nil
	}
	if f.argsBuffer != nil {
		f.argsBuffer.Release()
		f.argsBuffer = nil
	}
	if f.started && f.state != StateDestroyed {
		f.logger.Info("flock destroyed")
	}
	if f.started {
		f.state = StateDestroyed
	}
}
