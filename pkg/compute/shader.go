package compute

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrKernelNotFound  = errors.New("kernel not found")
	ErrInvalidKernel   = errors.New("invalid kernel index")
	ErrInvalidDispatch = errors.New("invalid dispatch size")
	ErrKernelPanic     = errors.New("kernel panicked")
)

// ThreadID identifies one invocation of a kernel.
type ThreadID struct {
	// Dispatch is the global thread index: Group*GroupSize + Local.
	Dispatch [3]uint32
	Group    [3]uint32
	Local    [3]uint32
}

// KernelFunc is the body of a kernel, run once per thread.
type KernelFunc func(id ThreadID, env *Env)

type kernel struct {
	name      string
	groupSize [3]uint32
	fn        KernelFunc
	buffers   map[string]*Buffer
}

// Shader is a compiled compute program: a set of named kernels sharing one
// set of uniforms.
type Shader struct {
	name   string
	logger *zap.Logger

	mu      sync.RWMutex
	kernels []*kernel
	floats  map[string]float32
	ints    map[string]int32
	vectors map[string]mgl32.Vec3
}

// NewShader creates an empty program. A nil logger disables logging.
func NewShader(name string, logger *zap.Logger) *Shader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Shader{
		name:    name,
		logger:  logger.Named("shader").With(zap.String("shader", name)),
		floats:  make(map[string]float32),
		ints:    make(map[string]int32),
		vectors: make(map[string]mgl32.Vec3),
	}
}

// Name returns the program name.
func (s *Shader) Name() string { return s.name }

// AddKernel registers an entry point. groupSize components of zero are
// treated as one.
func (s *Shader) AddKernel(name string, groupSize [3]uint32, fn KernelFunc) {
	for i := range groupSize {
		if groupSize[i] == 0 {
			groupSize[i] = 1
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kernels = append(s.kernels, &kernel{
		name:      name,
		groupSize: groupSize,
		fn:        fn,
		buffers:   make(map[string]*Buffer),
	})
}

// FindKernel returns the index of the named kernel.
func (s *Shader) FindKernel(name string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, k := range s.kernels {
		if k.name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q in shader %q", ErrKernelNotFound, name, s.name)
}

func (s *Shader) kernel(k int) (*kernel, error) {
	if k < 0 || k >= len(s.kernels) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKernel, k)
	}
	return s.kernels[k], nil
}

// GetKernelThreadGroupSizes returns the thread-group size the kernel was
// declared with.
func (s *Shader) GetKernelThreadGroupSizes(k int) (x, y, z uint32, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kn, err := s.kernel(k)
	if err != nil {
		return 0, 0, 0, err
	}
	return kn.groupSize[0], kn.groupSize[1], kn.groupSize[2], nil
}

// SetBuffer binds buf to the kernel under name.
func (s *Shader) SetBuffer(k int, name string, buf *Buffer) error {
	if buf == nil {
		return fmt.Errorf("%w: nil buffer for %q", ErrInvalidBuffer, name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kn, err := s.kernel(k)
	if err != nil {
		return err
	}
	kn.buffers[name] = buf
	return nil
}

func (s *Shader) SetFloat(name string, v float32) {
	s.mu.Lock()
	s.floats[name] = v
	s.mu.Unlock()
}

func (s *Shader) SetInt(name string, v int32) {
	s.mu.Lock()
	s.ints[name] = v
	s.mu.Unlock()
}

func (s *Shader) SetVector(name string, v mgl32.Vec3) {
	s.mu.Lock()
	s.vectors[name] = v
	s.mu.Unlock()
}

// Dispatch runs the kernel over gx*gy*gz thread groups and returns once
// every group has finished. Groups run concurrently, at most GOMAXPROCS at
// a time. Kernels read buffers as they were when the dispatch started.
func (s *Shader) Dispatch(k, gx, gy, gz int) error {
	if gx < 0 || gy < 0 || gz < 0 {
		return fmt.Errorf("%w: (%d, %d, %d)", ErrInvalidDispatch, gx, gy, gz)
	}

	s.mu.RLock()
	kn, err := s.kernel(k)
	if err != nil {
		s.mu.RUnlock()
		return err
	}
	env := s.captureEnv()
	bound := make(map[string]*Buffer, len(kn.buffers))
	for name, b := range kn.buffers {
		bound[name] = b
	}
	s.mu.RUnlock()

	if gx == 0 || gy == 0 || gz == 0 {
		return nil
	}

	unlock, err := env.attach(bound)
	if err != nil {
		return fmt.Errorf("dispatch %q: %w", kn.name, err)
	}
	defer unlock()

	s.logger.Debug("dispatch",
		zap.String("kernel", kn.name),
		zap.Int("groupsX", gx), zap.Int("groupsY", gy), zap.Int("groupsZ", gz))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for z := 0; z < gz; z++ {
		for y := 0; y < gy; y++ {
			for x := 0; x < gx; x++ {
				group := [3]uint32{uint32(x), uint32(y), uint32(z)}
				g.Go(func() error {
					return runGroup(kn, group, env)
				})
			}
		}
	}
	return g.Wait()
}

func runGroup(kn *kernel, group [3]uint32, env *Env) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %q group %v: %v", ErrKernelPanic, kn.name, group, r)
		}
	}()
	size := kn.groupSize
	for lz := uint32(0); lz < size[2]; lz++ {
		for ly := uint32(0); ly < size[1]; ly++ {
			for lx := uint32(0); lx < size[0]; lx++ {
				local := [3]uint32{lx, ly, lz}
				kn.fn(ThreadID{
					Dispatch: [3]uint32{
						group[0]*size[0] + lx,
						group[1]*size[1] + ly,
						group[2]*size[2] + lz,
					},
					Group: group,
					Local: local,
				}, env)
			}
		}
	}
	return nil
}

// Env is what a kernel sees during a dispatch: a frozen copy of the
// uniforms and a View per bound buffer.
type Env struct {
	floats  map[string]float32
	ints    map[string]int32
	vectors map[string]mgl32.Vec3
	views   map[string]View
}

// captureEnv must be called with s.mu held.
func (s *Shader) captureEnv() *Env {
	env := &Env{
		floats:  make(map[string]float32, len(s.floats)),
		ints:    make(map[string]int32, len(s.ints)),
		vectors: make(map[string]mgl32.Vec3, len(s.vectors)),
		views:   make(map[string]View),
	}
	for k, v := range s.floats {
		env.floats[k] = v
	}
	for k, v := range s.ints {
		env.ints[k] = v
	}
	for k, v := range s.vectors {
		env.vectors[k] = v
	}
	return env
}

// attach write-locks every bound buffer, snapshots it and creates its view.
// The returned func releases the locks.
func (e *Env) attach(bound map[string]*Buffer) (func(), error) {
	names := make([]string, 0, len(bound))
	for name := range bound {
		names = append(names, name)
	}
	sort.Strings(names)

	var locked []*Buffer
	unlock := func() {
		for _, b := range locked {
			b.mu.Unlock()
		}
	}
	seen := make(map[*Buffer]View)
	for _, name := range names {
		b := bound[name]
		if v, ok := seen[b]; ok {
			e.views[name] = v
			continue
		}
		b.mu.Lock()
		locked = append(locked, b)
		if b.released {
			unlock()
			return nil, fmt.Errorf("%q: %w", name, ErrReleased)
		}
		snap := make([]uint32, len(b.words))
		copy(snap, b.words)
		v := View{snapshot: snap, live: b.words, n: b.wordsPerRecord(), count: b.count}
		seen[b] = v
		e.views[name] = v
	}
	return unlock, nil
}

// Float returns a float uniform, zero when unset.
func (e *Env) Float(name string) float32 { return e.floats[name] }

// Int returns an int uniform, zero when unset.
func (e *Env) Int(name string) int32 { return e.ints[name] }

// Vector returns a vector uniform, zero when unset.
func (e *Env) Vector(name string) mgl32.Vec3 { return e.vectors[name] }

// Buffer returns the view bound under name.
func (e *Env) Buffer(name string) (View, bool) {
	v, ok := e.views[name]
	return v, ok
}
