package render

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/compute"
)

var ErrInvalidArgs = errors.New("invalid indirect draw arguments")

// DrawArgsWords is the size of an indexed indirect draw record.
const DrawArgsWords = 5

// DrawArgs is the layout of an indexed indirect draw: the indices
// [StartIndex, StartIndex+IndexCount) of the submesh are drawn for each
// instance in [StartInstance, StartInstance+InstanceCount), with BaseVertex
// added to every index.
type DrawArgs struct {
	IndexCount    uint32
	InstanceCount uint32
	StartIndex    uint32
	BaseVertex    int32
	StartInstance uint32
}

// Words encodes the arguments in buffer order.
func (a DrawArgs) Words() []uint32 {
	return []uint32{a.IndexCount, a.InstanceCount, a.StartIndex, uint32(a.BaseVertex), a.StartInstance}
}

// ReadDrawArgs decodes the first record of an indirect-arguments buffer.
func ReadDrawArgs(buf *compute.Buffer) (DrawArgs, error) {
	if buf == nil {
		return DrawArgs{}, fmt.Errorf("%w: nil buffer", ErrInvalidArgs)
	}
	if buf.Type() != compute.IndirectArguments {
		return DrawArgs{}, fmt.Errorf("%w: buffer type is %s", ErrInvalidArgs, buf.Type())
	}
	w, err := buf.Words()
	if err != nil {
		return DrawArgs{}, err
	}
	if len(w) < DrawArgsWords {
		return DrawArgs{}, fmt.Errorf("%w: %d words, want %d", ErrInvalidArgs, len(w), DrawArgsWords)
	}
	return DrawArgs{
		IndexCount:    w[0],
		InstanceCount: w[1],
		StartIndex:    w[2],
		BaseVertex:    int32(w[3]),
		StartInstance: w[4],
	}, nil
}

// Bounds is an axis-aligned box. Size holds the full extents.
type Bounds struct {
	Center mgl32.Vec3
	Size   mgl32.Vec3
}

// Contains reports whether p lies inside or on the box.
func (b Bounds) Contains(p mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		d := p[i] - b.Center[i]
		if d < 0 {
			d = -d
		}
		if d > b.Size[i]/2 {
			return false
		}
	}
	return true
}
