package render

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrUnknownMesh = errors.New("unknown mesh")

// Mesh is indexed triangle geometry. Each submesh is its own index list
// into the shared vertex array.
type Mesh struct {
	Name      string
	Vertices  []mgl32.Vec3
	Submeshes [][]uint16
}

// IndexCount is the number of indices in a submesh, zero when the mesh is
// nil or the submesh does not exist.
func (m *Mesh) IndexCount(submesh int) uint32 {
	if m == nil || submesh < 0 || submesh >= len(m.Submeshes) {
		return 0
	}
	return uint32(len(m.Submeshes[submesh]))
}

// NewTetrahedron builds a four-faced boid body whose nose points down +Z.
func NewTetrahedron(scale float32) *Mesh {
	v := []mgl32.Vec3{
		{0, 0, 1},          // nose
		{-0.5, -0.3, -0.5}, // left
		{0.5, -0.3, -0.5},  // right
		{0, 0.45, -0.5},    // top
	}
	for i := range v {
		v[i] = v[i].Mul(scale)
	}
	return &Mesh{
		Name:     "tetrahedron",
		Vertices: v,
		Submeshes: [][]uint16{{
			0, 2, 1,
			0, 3, 2,
			0, 1, 3,
			1, 2, 3,
		}},
	}
}

// NewArrow builds a flat dart with a raised spine, nose along +Z.
func NewArrow(scale float32) *Mesh {
	v := []mgl32.Vec3{
		{0, 0, 1},       // nose
		{-0.6, 0, -0.6}, // left wing
		{0, 0, -0.25},   // tail notch
		{0.6, 0, -0.6},  // right wing
		{0, 0.2, -0.3},  // spine
	}
	for i := range v {
		v[i] = v[i].Mul(scale)
	}
	return &Mesh{
		Name:     "arrow",
		Vertices: v,
		Submeshes: [][]uint16{{
			0, 1, 2,
			0, 2, 3,
			0, 4, 1,
			0, 3, 4,
			1, 4, 2,
			2, 4, 3,
		}},
	}
}

// MeshByName returns one of the built-in meshes. "none" yields a nil mesh.
func MeshByName(name string, scale float32) (*Mesh, error) {
	switch name {
	case "tetrahedron":
		return NewTetrahedron(scale), nil
	case "arrow":
		return NewArrow(scale), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMesh, name)
	}
}
