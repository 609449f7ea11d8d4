package render

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/compute"
)

// InstanceShader is the per-instance vertex stage of a material: it turns an
// instance id into the object-to-world transform of that instance, usually
// by reading one of the material's bound buffers. ok is false when the
// instance cannot be resolved and should be skipped.
type InstanceShader interface {
	Instance(m *Material, instance uint32) (model mgl32.Mat4, ok bool)
}

// InstanceShaderFunc adapts a function to InstanceShader.
type InstanceShaderFunc func(m *Material, instance uint32) (mgl32.Mat4, bool)

func (f InstanceShaderFunc) Instance(m *Material, instance uint32) (mgl32.Mat4, bool) {
	return f(m, instance)
}

// Material pairs a shader with its colour and named buffer slots.
type Material struct {
	Name   string
	Color  mgl32.Vec4
	Shader InstanceShader

	mu      sync.RWMutex
	buffers map[string]*compute.Buffer
}

func NewMaterial(name string, color mgl32.Vec4, shader InstanceShader) *Material {
	return &Material{
		Name:    name,
		Color:   color,
		Shader:  shader,
		buffers: make(map[string]*compute.Buffer),
	}
}

// SetBuffer binds buf to the slot called name.
func (m *Material) SetBuffer(name string, buf *compute.Buffer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.buffers == nil {
		m.buffers = make(map[string]*compute.Buffer)
	}
	m.buffers[name] = buf
}

// Buffer returns the buffer bound to name.
func (m *Material) Buffer(name string) (*compute.Buffer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.buffers[name]
	return b, ok && b != nil
}
