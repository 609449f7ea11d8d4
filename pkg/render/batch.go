package render

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/compute"
	"go.uber.org/zap"
)

var ErrInvalidSubmesh = errors.New("invalid submesh")

// MaxBatchVertices keeps every batch addressable with 16-bit indices.
const MaxBatchVertices = math.MaxUint16

// Graphics issues draw calls.
type Graphics interface {
	// DrawMeshInstancedIndirect draws submesh of mesh once per instance, the
	// counts coming from the indirect-arguments buffer args. Instances whose
	// origin falls outside bounds are culled.
	DrawMeshInstancedIndirect(mesh *Mesh, submesh int, mat *Material, bounds Bounds, args *compute.Buffer) error
}

// Vertex is a screen-space vertex: pixels with a top-left origin and a
// straight RGBA colour.
type Vertex struct {
	X, Y       float32
	R, G, B, A float32
}

// Batch is a triangle list small enough for 16-bit indices.
type Batch struct {
	Vertices []Vertex
	Indices  []uint16
}

// Stats counts what the last frame produced.
type Stats struct {
	DrawCalls int
	Instances int
	Culled    int
	Triangles int
}

// Batcher implements Graphics by projecting every instance through a camera
// into screen-space triangle batches that a 2D backend can submit as is.
type Batcher struct {
	Camera *Camera
	// Light is the direction light travels in, used for flat shading.
	Light mgl32.Vec3

	logger  *zap.Logger
	batches []Batch
	stats   Stats
}

var _ Graphics = (*Batcher)(nil)

func NewBatcher(camera *Camera, logger *zap.Logger) *Batcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Batcher{
		Camera: camera,
		Light:  mgl32.Vec3{-0.3, -1, -0.5}.Normalize(),
		logger: logger.Named("batcher"),
	}
}

// Batches returns the triangles recorded since the last Reset.
func (r *Batcher) Batches() []Batch { return r.batches }

// Stats returns the counters since the last Reset.
func (r *Batcher) Stats() Stats { return r.stats }

// Reset drops the recorded frame, keeping the allocations.
func (r *Batcher) Reset() {
	for i := range r.batches {
		r.batches[i].Vertices = r.batches[i].Vertices[:0]
		r.batches[i].Indices = r.batches[i].Indices[:0]
	}
	r.batches = r.batches[:0]
	r.stats = Stats{}
}

func (r *Batcher) DrawMeshInstancedIndirect(mesh *Mesh, submesh int, mat *Material, bounds Bounds, args *compute.Buffer) error {
	da, err := ReadDrawArgs(args)
	if err != nil {
		return err
	}
	r.stats.DrawCalls++
	if mesh == nil || mat == nil || mat.Shader == nil || da.IndexCount == 0 || da.InstanceCount == 0 {
		return nil
	}
	if submesh < 0 || submesh >= len(mesh.Submeshes) {
		return fmt.Errorf("%w: %d of %q", ErrInvalidSubmesh, submesh, mesh.Name)
	}
	indices := mesh.Submeshes[submesh]
	end := uint64(da.StartIndex) + uint64(da.IndexCount)
	if end > uint64(len(indices)) {
		return fmt.Errorf("%w: indices [%d,%d) exceed %d", ErrInvalidArgs, da.StartIndex, end, len(indices))
	}
	indices = indices[da.StartIndex:end]

	for n := uint32(0); n < da.InstanceCount; n++ {
		model, ok := mat.Shader.Instance(mat, da.StartInstance+n)
		if !ok {
			continue
		}
		if !bounds.Contains(model.Col(3).Vec3()) {
			r.stats.Culled++
			continue
		}
		r.stats.Instances++
		r.emitInstance(mesh, indices, da.BaseVertex, model, mat.Color)
	}
	return nil
}

func (r *Batcher) emitInstance(mesh *Mesh, indices []uint16, base int32, model mgl32.Mat4, color mgl32.Vec4) {
	var world [3]mgl32.Vec3
	var screen [3]mgl32.Vec3
triangles:
	for t := 0; t+2 < len(indices); t += 3 {
		for k := 0; k < 3; k++ {
			vi := int(indices[t+k]) + int(base)
			if vi < 0 || vi >= len(mesh.Vertices) {
				continue triangles
			}
			world[k] = model.Mul4x1(mesh.Vertices[vi].Vec4(1)).Vec3()
			win, ok := r.Camera.WorldToScreen(world[k])
			if !ok {
				continue triangles
			}
			screen[k] = win
		}

		normal := world[1].Sub(world[0]).Cross(world[2].Sub(world[0]))
		shade := float32(0.35)
		if l := normal.Len(); l > 0 {
			shade += 0.65 * float32(math.Abs(float64(normal.Mul(1/l).Dot(r.Light))))
		}

		b := r.current(3)
		first := uint16(len(b.Vertices))
		for k := 0; k < 3; k++ {
			b.Vertices = append(b.Vertices, Vertex{
				X: screen[k][0], Y: screen[k][1],
				R: color[0] * shade, G: color[1] * shade, B: color[2] * shade, A: color[3],
			})
		}
		b.Indices = append(b.Indices, first, first+1, first+2)
		r.stats.Triangles++
	}
}

// current returns the batch to append n vertices to, opening a new one when
// the last would overflow.
func (r *Batcher) current(n int) *Batch {
	if len(r.batches) == 0 || len(r.batches[len(r.batches)-1].Vertices)+n > MaxBatchVertices {
		if cap(r.batches) > len(r.batches) {
			r.batches = r.batches[:len(r.batches)+1]
		} else {
			r.batches = append(r.batches, Batch{})
		}
	}
	return &r.batches[len(r.batches)-1]
}
