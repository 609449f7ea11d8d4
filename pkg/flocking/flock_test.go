package flocking

import (
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/compute"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fixture struct {
	device   *compute.Device
	shader   *compute.Shader
	mesh     *render.Mesh
	material *render.Material
}

func newFixture(width uint32) *fixture {
	return &fixture{
		device:   compute.NewDevice(nil),
		shader:   NewComputeShader(width, nil),
		mesh:     render.NewTetrahedron(1),
		material: render.NewMaterial("boid", mgl32.Vec4{1, 1, 1, 1}, InstanceShader{}),
	}
}

func (fx *fixture) resources(owner Transform) Resources {
	return Resources{
		Device:   fx.device,
		Shader:   fx.shader,
		Mesh:     fx.mesh,
		Material: fx.material,
		Owner:    owner,
		Rand:     rand.New(rand.NewPCG(1, 2)),
	}
}

func testCamera() *render.Camera {
	return &render.Camera{
		Position:         mgl32.Vec3{0, 0, 10},
		Up:               mgl32.Vec3{0, 1, 0},
		Orthographic:     true,
		OrthographicSize: 20,
		Near:             0.3,
		Far:              1000,
		PixelWidth:       800,
		PixelHeight:      600,
	}
}

func assertVec3(t *testing.T, want, got mgl32.Vec3) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-4, "component %d of %v", i, got)
	}
}

// extremeSource yields mid-range draws except every seventh, which is the
// largest value a source can return. Spawning one boid takes seven draws
// (three for the sphere point, three for the rotation, one for the noise
// offset) when the sphere point is accepted first time.
type extremeSource struct{ n int }

func (s *extremeSource) Uint64() uint64 {
	s.n++
	if s.n%7 == 0 {
		return ^uint64(0)
	}
	return 1 << 52 // 0.5 from Float64
}

// recordingGraphics remembers each draw and the first boid as the material
// exposed it at draw time.
type recordingGraphics struct {
	calls int
	args  []render.DrawArgs
	first []Boid
}

func (g *recordingGraphics) DrawMeshInstancedIndirect(mesh *render.Mesh, submesh int, mat *render.Material, bounds render.Bounds, args *compute.Buffer) error {
	g.calls++
	da, err := render.ReadDrawArgs(args)
	if err != nil {
		return err
	}
	g.args = append(g.args, da)
	if buf, ok := mat.Buffer(BufferName); ok {
		rec, err := buf.Record(0)
		if err != nil {
			return err
		}
		g.first = append(g.first, DecodeBoid(rec))
	}
	return nil
}

func TestRoundToGroups(t *testing.T) {
	tests := []struct {
		count, width   int
		groups, padded int
	}{
		{500, 64, 8, 512},
		{512, 64, 8, 512},
		{513, 64, 9, 576},
		{1, 64, 1, 64},
		{7, 1, 7, 7},
		{0, 64, 0, 0},
		{10, 0, 0, 0},
	}
	for _, tt := range tests {
		groups, padded := RoundToGroups(tt.count, tt.width)
		assert.Equal(t, tt.groups, groups, "groups for %d/%d", tt.count, tt.width)
		assert.Equal(t, tt.padded, padded, "padded for %d/%d", tt.count, tt.width)
	}

	for _, width := range []int{1, 32, 64, 256} {
		for count := 1; count <= 1000; count++ {
			groups, padded := RoundToGroups(count, width)
			require.Equal(t, groups*width, padded)
			require.GreaterOrEqual(t, padded, count)
			require.Less(t, padded-width, count)
		}
	}
}

func TestFlock_Start(t *testing.T) {
	fx := newFixture(DefaultThreadGroupWidth)
	owner := Transform{Position: mgl32.Vec3{3, -2, 1}}
	cfg := DefaultConfig()
	cfg.SpawnRadius = 4

	f := New(cfg, fx.resources(owner))
	require.NoError(t, f.Start())
	defer f.Destroy()

	assert.Equal(t, StateUninitialized, f.State())
	assert.Equal(t, 8, f.GroupSizeX())
	assert.Equal(t, 512, f.NumOfBoids())
	assert.Equal(t, mgl32.Vec3{1000, 1000, 1000}, f.Bounds().Size)

	args := f.Args()
	assert.Equal(t, fx.mesh.IndexCount(0), args.IndexCount)
	assert.Equal(t, uint32(512), args.InstanceCount)
	assert.Zero(t, args.StartIndex)
	assert.Zero(t, args.BaseVertex)
	assert.Zero(t, args.StartInstance)
	assert.Equal(t, 2, fx.device.LiveBuffers())

	require.Len(t, f.boids, 512)
	for i, b := range f.boids {
		d := b.Position.Sub(owner.Position).Len()
		assert.LessOrEqual(t, d, cfg.SpawnRadius+1e-4, "boid %d spawned too far", i)
		for _, a := range b.Direction {
			assert.GreaterOrEqual(t, a, float32(0))
			assert.Less(t, a, float32(360))
		}
		assert.GreaterOrEqual(t, b.NoiseOffset, float32(0))
		assert.Less(t, b.NoiseOffset, float32(1000))
	}

	bound, ok := fx.material.Buffer(BufferName)
	require.True(t, ok)
	words, err := bound.Words()
	require.NoError(t, err)
	assert.Equal(t, EncodeBoids(f.boids), words)
}

func TestFlock_NoiseOffsetBelowUpperBound(t *testing.T) {
	fx := newFixture(4)
	res := fx.resources(Transform{})
	res.Rand = rand.New(&extremeSource{})
	cfg := DefaultConfig()
	cfg.BoidsCount = 1

	f := New(cfg, res)
	require.NoError(t, f.Start())
	defer f.Destroy()

	require.Len(t, f.boids, 4)
	for i, b := range f.boids {
		assert.Equal(t, mgl32.Vec3{}, b.Position, "boid %d", i)
		assert.GreaterOrEqual(t, b.NoiseOffset, float32(999.99), "boid %d", i)
		assert.Less(t, b.NoiseOffset, float32(1000), "boid %d", i)
	}
}

func TestFlock_StartLogsLayout(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	fx := newFixture(64)
	res := fx.resources(Transform{})
	res.Logger = zap.New(core)
	cfg := DefaultConfig()
	cfg.BoidsCount = 100
	cfg.Target = Vec3{X: 1, Y: -2, Z: 0.5}

	f := New(cfg, res)
	require.NoError(t, f.Start())
	defer f.Destroy()

	entries := logs.FilterMessage("flock started").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(128), fields["numOfBoids"])
	assert.Equal(t, int64(2), fields["groupSizeX"])
	assert.Equal(t, "(1.00, -2.00, 0.50)", fields["target"])
}

func TestFlock_StartTwiceKeepsBuffers(t *testing.T) {
	fx := newFixture(64)
	f := New(nil, fx.resources(Transform{}))
	require.NoError(t, f.Start())
	require.NoError(t, f.Start())
	assert.Equal(t, 2, fx.device.LiveBuffers())
	f.Destroy()
}

func TestFlock_StartErrors(t *testing.T) {
	t.Run("zero boids", func(t *testing.T) {
		fx := newFixture(64)
		cfg := DefaultConfig()
		cfg.BoidsCount = 0
		err := New(cfg, fx.resources(Transform{})).Start()
		assert.ErrorIs(t, err, ErrInvalidBoidsCount)
		assert.Zero(t, fx.device.LiveBuffers())
	})

	t.Run("negative boids", func(t *testing.T) {
		fx := newFixture(64)
		cfg := DefaultConfig()
		cfg.BoidsCount = -3
		assert.ErrorIs(t, New(cfg, fx.resources(Transform{})).Start(), ErrInvalidBoidsCount)
	})

	t.Run("missing kernel", func(t *testing.T) {
		fx := newFixture(64)
		fx.shader = compute.NewShader("empty", nil)
		fx.shader.AddKernel("Other", [3]uint32{64, 1, 1}, func(compute.ThreadID, *compute.Env) {})
		err := New(nil, fx.resources(Transform{})).Start()
		assert.ErrorIs(t, err, compute.ErrKernelNotFound)
		assert.Zero(t, fx.device.LiveBuffers())
	})
}

func TestFlock_UpdateLifecycle(t *testing.T) {
	fx := newFixture(64)
	cfg := DefaultConfig()
	cfg.BoidsCount = 10
	f := New(cfg, fx.resources(Transform{}))

	assert.ErrorIs(t, f.Update(FrameInput{DeltaTime: 0.016}, nil), ErrNotStarted)

	require.NoError(t, f.Start())
	require.NoError(t, f.Update(FrameInput{Time: 0.016, DeltaTime: 0.016}, nil))
	assert.Equal(t, StateRunning, f.State())

	f.Destroy()
	assert.Equal(t, StateDestroyed, f.State())
	assert.Zero(t, fx.device.LiveBuffers())
	assert.NotPanics(t, f.Destroy)
	assert.ErrorIs(t, f.Update(FrameInput{}, nil), ErrDestroyed)
	assert.ErrorIs(t, f.Start(), ErrDestroyed)
}

func TestFlock_DestroyBeforeStart(t *testing.T) {
	fx := newFixture(64)
	f := New(nil, fx.resources(Transform{}))
	assert.NotPanics(t, f.Destroy)
	assert.Equal(t, StateUninitialized, f.State())
}

func TestFlock_UpdateMovesBoids(t *testing.T) {
	fx := newFixture(64)
	cfg := DefaultConfig()
	cfg.BoidsCount = 64
	f := New(cfg, fx.resources(Transform{}))
	require.NoError(t, f.Start())
	defer f.Destroy()

	before := EncodeBoids(f.boids)
	require.NoError(t, f.Update(FrameInput{Time: 1, DeltaTime: 0.05}, nil))

	buf, ok := fx.material.Buffer(BufferName)
	require.True(t, ok)
	after, err := buf.Words()
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestFlock_UpdatePushesUniforms(t *testing.T) {
	fx := newFixture(64)
	var seen []*compute.Env
	fx.shader = compute.NewShader("uniforms", nil)
	fx.shader.AddKernel(KernelName, [3]uint32{32, 1, 1}, func(id compute.ThreadID, env *compute.Env) {
		if id.Dispatch[0] == 0 {
			seen = append(seen, env)
		}
	})

	cfg := DefaultConfig()
	cfg.BoidsCount = 40
	cfg.NeighbourDistance = 2.5
	cfg.Target = Vec3{X: 1, Y: 2, Z: 3}
	f := New(cfg, fx.resources(Transform{}))
	require.NoError(t, f.Start())
	defer f.Destroy()

	require.NoError(t, f.Update(FrameInput{Time: 2.5, DeltaTime: 0.02, Cursor: mgl32.Vec2{4, -1}}, nil))
	require.NoError(t, f.Update(FrameInput{Time: 2.6, DeltaTime: 0.1, Cursor: mgl32.Vec2{0, 7}}, nil))
	require.Len(t, seen, 2)

	env := seen[1]
	assert.Equal(t, int32(64), env.Int(uBoidsCount))
	assert.Equal(t, float32(2.5), env.Float(uNeighbourDistance))
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, env.Vector(uFlockPosition))
	assert.Equal(t, mgl32.Vec3{0, 0, 1}, env.Vector(uFlockForward))
	assert.Equal(t, float32(2.6), env.Float(uTime))
	assert.Equal(t, float32(0.1), env.Float(uDeltaTime))
	assert.Equal(t, mgl32.Vec3{0, 7, 0}, env.Vector(uCursor))
	assert.Equal(t, mgl32.Vec3{4, -1, 0}, seen[0].Vector(uCursor))
}

func TestFlock_DrawSeesDispatchedFrame(t *testing.T) {
	fx := newFixture(64)
	fx.shader = compute.NewShader("stamp", nil)
	fx.shader.AddKernel(KernelName, [3]uint32{64, 1, 1}, func(id compute.ThreadID, env *compute.Env) {
		view, ok := env.Buffer(BufferName)
		if !ok || int(id.Dispatch[0]) >= view.Len() {
			return
		}
		b := DecodeBoid(view.Read(int(id.Dispatch[0])))
		b.NoiseOffset = env.Float(uTime)
		view.Write(int(id.Dispatch[0]), appendBoid(nil, b))
	})

	f := New(nil, fx.resources(Transform{}))
	require.NoError(t, f.Start())
	defer f.Destroy()

	g := &recordingGraphics{}
	for frame := 1; frame <= 3; frame++ {
		require.NoError(t, f.Update(FrameInput{Time: float32(frame)}, g))
	}
	require.Equal(t, 3, g.calls)
	for i, b := range g.first {
		assert.Equal(t, float32(i+1), b.NoiseOffset, "frame %d drew stale data", i+1)
	}
	for _, a := range g.args {
		assert.Equal(t, f.Args(), a)
	}
}

func TestFlock_NoMeshDrawsNothing(t *testing.T) {
	fx := newFixture(64)
	fx.mesh = nil
	f := New(nil, fx.resources(Transform{}))
	require.NoError(t, f.Start())
	defer f.Destroy()

	assert.Equal(t, render.DrawArgs{InstanceCount: 512}, f.Args())

	b := render.NewBatcher(testCamera(), nil)
	require.NoError(t, f.Update(FrameInput{DeltaTime: 0.016}, b))
	assert.Equal(t, 1, b.Stats().DrawCalls)
	assert.Zero(t, b.Stats().Instances)
	assert.Empty(t, b.Batches())
}

func TestFlock_DrawsEveryBoid(t *testing.T) {
	fx := newFixture(64)
	cfg := DefaultConfig()
	cfg.BoidsCount = 100
	f := New(cfg, fx.resources(Transform{}))
	require.NoError(t, f.Start())
	defer f.Destroy()

	b := render.NewBatcher(testCamera(), nil)
	require.NoError(t, f.Update(FrameInput{DeltaTime: 0.016}, b))
	st := b.Stats()
	assert.Equal(t, 128, st.Instances+st.Culled)
	assert.Equal(t, 128, st.Instances)
	assert.Equal(t, 128*4, st.Triangles)
}

func TestInstanceShader(t *testing.T) {
	d := compute.NewDevice(nil)
	buf, err := d.NewBuffer(2, BoidStride, compute.Structured)
	require.NoError(t, err)
	defer buf.Release()
	require.NoError(t, buf.SetData(EncodeBoids([]Boid{
		{Position: mgl32.Vec3{1, 2, 3}, Direction: mgl32.Vec3{0, 0, 5}},
		{Position: mgl32.Vec3{-4, 0, 0}, Direction: mgl32.Vec3{1, 0, 0}},
	})))

	m := render.NewMaterial("boid", mgl32.Vec4{1, 1, 1, 1}, InstanceShader{Scale: 2})
	_, ok := m.Shader.Instance(m, 0)
	assert.False(t, ok, "no buffer bound yet")

	m.SetBuffer(BufferName, buf)

	model, ok := m.Shader.Instance(m, 0)
	require.True(t, ok)
	assertVec3(t, mgl32.Vec3{1, 2, 3}, model.Col(3).Vec3())
	assertVec3(t, mgl32.Vec3{0, 0, 2}, model.Mul4x1(mgl32.Vec4{0, 0, 1, 0}).Vec3())

	model, ok = m.Shader.Instance(m, 1)
	require.True(t, ok)
	assertVec3(t, mgl32.Vec3{2, 0, 0}, model.Mul4x1(mgl32.Vec4{0, 0, 1, 0}).Vec3())

	_, ok = m.Shader.Instance(m, 2)
	assert.False(t, ok)
}
