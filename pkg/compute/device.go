// Package compute is a small host-side stand-in for a GPU compute API:
// devices allocate buffers, shaders carry named kernels with a fixed
// thread-group width, and dispatches run thread groups concurrently.
package compute

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Device owns every buffer it allocates and keeps track of the live ones.
type Device struct {
	logger *zap.Logger

	mu   sync.Mutex
	live map[uuid.UUID]*Buffer
}

// NewDevice creates a device. A nil logger disables logging.
func NewDevice(logger *zap.Logger) *Device {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Device{
		logger: logger.Named("device"),
		live:   make(map[uuid.UUID]*Buffer),
	}
}

// NewBuffer allocates count records of stride bytes. stride must be a
// positive multiple of 4.
func (d *Device) NewBuffer(count, stride int, typ BufferType) (*Buffer, error) {
	if count <= 0 || stride <= 0 || stride%4 != 0 {
		return nil, fmt.Errorf("%w: count=%d stride=%d", ErrInvalidBuffer, count, stride)
	}
	b := &Buffer{
		id:     uuid.New(),
		device: d,
		count:  count,
		stride: stride,
		typ:    typ,
		words:  make([]uint32, count*stride/4),
	}

	d.mu.Lock()
	d.live[b.id] = b
	d.mu.Unlock()

	d.logger.Debug("buffer allocated",
		zap.Stringer("id", b.id),
		zap.Stringer("type", typ),
		zap.Int("count", count),
		zap.Int("stride", stride))
	return b, nil
}

// LiveBuffers is the number of allocated buffers not yet released.
func (d *Device) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

func (d *Device) forget(b *Buffer) {
	d.mu.Lock()
	delete(d.live, b.id)
	d.mu.Unlock()
	d.logger.Debug("buffer released", zap.Stringer("id", b.id))
}
