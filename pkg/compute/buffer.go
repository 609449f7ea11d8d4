package compute

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrInvalidBuffer = errors.New("invalid buffer")
	ErrSizeMismatch  = errors.New("data size does not match buffer size")
	ErrReleased      = errors.New("buffer already released")
	ErrOutOfRange    = errors.New("record index out of range")
)

// BufferType tells consumers how a buffer is meant to be read.
type BufferType int

const (
	// Structured buffers hold an array of fixed-stride records.
	Structured BufferType = iota
	// IndirectArguments buffers hold draw or dispatch arguments.
	IndirectArguments
)

func (t BufferType) String() string {
	switch t {
	case Structured:
		return "structured"
	case IndirectArguments:
		return "indirect-arguments"
	default:
		return fmt.Sprintf("BufferType(%d)", int(t))
	}
}

// Buffer is device memory: count records of stride bytes each, stored as
// 32-bit words. Records are only ever written by SetData (a host upload) or
// by a kernel through a View.
type Buffer struct {
	id     uuid.UUID
	device *Device
	count  int
	stride int
	typ    BufferType

	mu       sync.RWMutex
	words    []uint32
	released bool
}

func (b *Buffer) ID() uuid.UUID       { return b.id }
func (b *Buffer) Count() int          { return b.count }
func (b *Buffer) Stride() int         { return b.stride }
func (b *Buffer) Type() BufferType    { return b.typ }
func (b *Buffer) wordsPerRecord() int { return b.stride / 4 }

// SetData uploads data into the buffer. The length must cover the whole
// buffer exactly.
func (b *Buffer) SetData(data []uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.released {
		return ErrReleased
	}
	if len(data) != len(b.words) {
		return fmt.Errorf("%w: got %d words, want %d", ErrSizeMismatch, len(data), len(b.words))
	}
	copy(b.words, data)
	return nil
}

// Record returns a copy of record i.
func (b *Buffer) Record(i int) ([]uint32, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.released {
		return nil, ErrReleased
	}
	if i < 0 || i >= b.count {
		return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRange, i, b.count)
	}
	n := b.wordsPerRecord()
	out := make([]uint32, n)
	copy(out, b.words[i*n:(i+1)*n])
	return out, nil
}

// Words returns a copy of the whole buffer.
func (b *Buffer) Words() ([]uint32, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.released {
		return nil, ErrReleased
	}
	out := make([]uint32, len(b.words))
	copy(out, b.words)
	return out, nil
}

// Release frees the buffer. Calling it more than once is a no-op.
func (b *Buffer) Release() {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return
	}
	b.released = true
	b.words = nil
	b.mu.Unlock()

	if b.device != nil {
		b.device.forget(b)
	}
}

// Released reports whether Release has been called.
func (b *Buffer) Released() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.released
}

// View is a kernel's window onto a buffer during one dispatch. Reads come
// from the snapshot taken when the dispatch started, writes land in the
// live buffer.
type View struct {
	snapshot []uint32
	live     []uint32
	n        int
	count    int
}

// Len is the number of records.
func (v View) Len() int { return v.count }

// Read returns record i as it was when the dispatch started. The returned
// slice must not be modified.
func (v View) Read(i int) []uint32 {
	return v.snapshot[i*v.n : (i+1)*v.n]
}

// Write stores record i. Each thread must only write the records it owns.
func (v View) Write(i int, rec []uint32) {
	copy(v.live[i*v.n:(i+1)*v.n], rec)
}
