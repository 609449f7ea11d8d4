package render

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrNoViewport = errors.New("camera has no viewport")

// Camera maps between world space and screen pixels.
type Camera struct {
	Position mgl32.Vec3
	Target   mgl32.Vec3
	Up       mgl32.Vec3

	// FieldOfView is the vertical angle in degrees, perspective only.
	FieldOfView float32
	// OrthographicSize is half the viewport height in world units.
	Orthographic     bool
	OrthographicSize float32

	Near, Far float32

	PixelWidth, PixelHeight int
}

// Forward is the unit viewing direction.
func (c *Camera) Forward() mgl32.Vec3 {
	return c.Target.Sub(c.Position).Normalize()
}

func (c *Camera) Aspect() float32 {
	if c.PixelHeight == 0 {
		return 1
	}
	return float32(c.PixelWidth) / float32(c.PixelHeight)
}

func (c *Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Target, c.Up)
}

func (c *Camera) Projection() mgl32.Mat4 {
	if c.Orthographic {
		h := c.OrthographicSize
		w := h * c.Aspect()
		return mgl32.Ortho(-w, w, -h, h, c.Near, c.Far)
	}
	return mgl32.Perspective(mgl32.DegToRad(c.FieldOfView), c.Aspect(), c.Near, c.Far)
}

// WorldToScreen projects p to pixel coordinates with a top-left origin; z
// is the depth in [0, 1]. ok is false when p lies outside the clip depth
// range.
func (c *Camera) WorldToScreen(p mgl32.Vec3) (win mgl32.Vec3, ok bool) {
	win = mgl32.Project(p, c.View(), c.Projection(), 0, 0, c.PixelWidth, c.PixelHeight)
	win[1] = float32(c.PixelHeight) - win[1]
	return win, win[2] >= 0 && win[2] <= 1
}

// ScreenToWorldPoint converts a screen position (pixels, bottom-left
// origin) to world space. p.Z() is the distance in world units from the
// camera along its viewing direction.
func (c *Camera) ScreenToWorldPoint(p mgl32.Vec3) (mgl32.Vec3, error) {
	if c.PixelWidth <= 0 || c.PixelHeight <= 0 {
		return mgl32.Vec3{}, ErrNoViewport
	}
	view, proj := c.View(), c.Projection()
	near, err := mgl32.UnProject(mgl32.Vec3{p[0], p[1], 0}, view, proj, 0, 0, c.PixelWidth, c.PixelHeight)
	if err != nil {
		return mgl32.Vec3{}, fmt.Errorf("unproject near plane: %w", err)
	}
	far, err := mgl32.UnProject(mgl32.Vec3{p[0], p[1], 1}, view, proj, 0, 0, c.PixelWidth, c.PixelHeight)
	if err != nil {
		return mgl32.Vec3{}, fmt.Errorf("unproject far plane: %w", err)
	}

	fwd := c.Forward()
	dn := near.Sub(c.Position).Dot(fwd)
	df := far.Sub(c.Position).Dot(fwd)
	if df == dn {
		return near, nil
	}
	t := (p[2] - dn) / (df - dn)
	return near.Add(far.Sub(near).Mul(t)), nil
}
