package flocking

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/render"
)

// InstanceShader places a mesh at each boid read from the material's
// boidsBuffer slot, nose turned along the boid's direction.
type InstanceShader struct {
	Scale float32
}

var _ render.InstanceShader = InstanceShader{}

func (s InstanceShader) Instance(m *render.Material, instance uint32) (mgl32.Mat4, bool) {
	buf, ok := m.Buffer(BufferName)
	if !ok {
		return mgl32.Mat4{}, false
	}
	rec, err := buf.Record(int(instance))
	if err != nil {
		return mgl32.Mat4{}, false
	}
	b := DecodeBoid(rec)

	scale := s.Scale
	if scale == 0 {
		scale = 1
	}
	rot := geometry.LookRotation(geometry.Normalize(b.Direction)).Mat4()
	return mgl32.Translate3D(b.Position[0], b.Position[1], b.Position[2]).
		Mul4(rot).
		Mul4(mgl32.Scale3D(scale, scale, scale)), true
}
