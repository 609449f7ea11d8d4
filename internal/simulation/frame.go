package simulation

import (
	"errors"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/render"
)

var ErrNoActiveCamera = errors.New("no active camera")

// maxDeltaTime caps a single step after a stall (window drag, breakpoint).
const maxDeltaTime = 1.0 / 3

// clock turns wall-clock ticks into the time and delta fed to the flock.
// Paused ticks do not advance it.
type clock struct {
	last    time.Time
	elapsed float64
}

func (c *clock) tick(now time.Time, paused bool) (t, dt float32) {
	if c.last.IsZero() || paused {
		c.last = now
		return float32(c.elapsed), 0
	}
	d := min(now.Sub(c.last).Seconds(), maxDeltaTime)
	c.last = now
	c.elapsed += d
	return float32(c.elapsed), float32(d)
}

// cursorToWorld maps a cursor position (pixels, top-left origin) onto the
// camera's near plane.
func cursorToWorld(cam *render.Camera, mx, my int) (mgl32.Vec2, error) {
	if cam == nil {
		return mgl32.Vec2{}, ErrNoActiveCamera
	}
	p, err := cam.ScreenToWorldPoint(mgl32.Vec3{float32(mx), float32(cam.PixelHeight - my), cam.Near})
	if err != nil {
		return mgl32.Vec2{}, err
	}
	return mgl32.Vec2{p.X(), p.Y()}, nil
}

// steering tracks the world point the flock is drawn toward. A cursor over
// the panel leaves the previous point in place.
type steering struct {
	cursor mgl32.Vec2
}

func (s *steering) update(cam *render.Camera, mx, my int, overPanel bool) (mgl32.Vec2, error) {
	p, err := cursorToWorld(cam, mx, my)
	if err != nil {
		return s.cursor, err
	}
	if !overPanel {
		s.cursor = p
	}
	return s.cursor, nil
}

// frameDue reports whether the flock runs this tick. A paused flock only
// runs right after a respawn, with a zero delta, so the new boids show up.
func frameDue(paused, respawned bool) bool {
	return !paused || respawned
}

// appendVertices converts a batch for DrawTriangles, sampling the centre
// pixel of a 3x3 white source image.
func appendVertices(dst []ebiten.Vertex, b render.Batch) []ebiten.Vertex {
	for _, v := range b.Vertices {
		dst = append(dst, ebiten.Vertex{
			DstX: v.X, DstY: v.Y,
			SrcX: 1, SrcY: 1,
			ColorR: v.R, ColorG: v.G, ColorB: v.B, ColorA: v.A,
		})
	}
	return dst
}
