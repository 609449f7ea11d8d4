package simulation

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lao-tseu-is-alive/go-flocking/internal/config"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock(t *testing.T) {
	var c clock
	t0 := time.Unix(100, 0)

	now, dt := c.tick(t0, false)
	assert.Zero(t, now, "first tick starts the clock")
	assert.Zero(t, dt)

	now, dt = c.tick(t0.Add(20*time.Millisecond), false)
	assert.InDelta(t, 0.02, dt, 1e-6)
	assert.InDelta(t, 0.02, now, 1e-6)

	// paused ticks freeze time and reset the reference
	now, dt = c.tick(t0.Add(5*time.Second), true)
	assert.Zero(t, dt)
	assert.InDelta(t, 0.02, now, 1e-6)

	now, dt = c.tick(t0.Add(5*time.Second+10*time.Millisecond), false)
	assert.InDelta(t, 0.01, dt, 1e-6)
	assert.InDelta(t, 0.03, now, 1e-6)

	// a stall is capped
	_, dt = c.tick(t0.Add(time.Minute), false)
	assert.InDelta(t, maxDeltaTime, dt, 1e-6)
}

func TestCursorToWorld(t *testing.T) {
	cfg := config.DefaultConfig()
	cam := cfg.NewCamera()
	halfW := cam.OrthographicSize * cam.Aspect()

	tests := []struct {
		name   string
		mx, my int
		want   mgl32.Vec2
	}{
		{"centre", cfg.Window.Width / 2, cfg.Window.Height / 2, mgl32.Vec2{0, 0}},
		{"top left", 0, 0, mgl32.Vec2{-halfW, cam.OrthographicSize}},
		{"bottom right", cfg.Window.Width, cfg.Window.Height, mgl32.Vec2{halfW, -cam.OrthographicSize}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cursorToWorld(cam, tt.mx, tt.my)
			require.NoError(t, err)
			assert.InDelta(t, tt.want[0], got[0], 1e-3)
			assert.InDelta(t, tt.want[1], got[1], 1e-3)
		})
	}

	t.Run("no camera", func(t *testing.T) {
		_, err := cursorToWorld(nil, 1, 1)
		assert.ErrorIs(t, err, ErrNoActiveCamera)
	})

	t.Run("no viewport", func(t *testing.T) {
		_, err := cursorToWorld(&render.Camera{}, 1, 1)
		assert.ErrorIs(t, err, render.ErrNoViewport)
	})
}

func TestAppendVertices(t *testing.T) {
	b := render.Batch{
		Vertices: []render.Vertex{
			{X: 1, Y: 2, R: 0.5, G: 0.25, B: 1, A: 1},
			{X: 3, Y: 4, R: 1, G: 1, B: 1, A: 0.5},
		},
		Indices: []uint16{0, 1, 0},
	}
	vs := appendVertices(nil, b)
	require.Len(t, vs, 2)
	assert.Equal(t, float32(3), vs[1].DstX)
	assert.Equal(t, float32(4), vs[1].DstY)
	assert.Equal(t, float32(1), vs[0].SrcX)
	assert.Equal(t, float32(0.25), vs[0].ColorG)
	assert.Equal(t, float32(0.5), vs[1].ColorA)

	// reuses the backing array
	again := appendVertices(vs[:0], b)
	assert.Same(t, &vs[0], &again[0])
}

func TestSteering(t *testing.T) {
	cfg := config.DefaultConfig()
	cam := cfg.NewCamera()
	var s steering

	centre, err := s.update(cam, cfg.Window.Width/2, cfg.Window.Height/2, false)
	require.NoError(t, err)
	assert.InDelta(t, 0, centre[0], 1e-3)
	assert.InDelta(t, 0, centre[1], 1e-3)

	// over the panel the flock keeps heading for the last scene point
	got, err := s.update(cam, 0, 0, true)
	require.NoError(t, err)
	assert.Equal(t, centre, got)

	got, err = s.update(cam, 0, 0, false)
	require.NoError(t, err)
	assert.InDelta(t, -cam.OrthographicSize*cam.Aspect(), got[0], 1e-3)
	assert.InDelta(t, cam.OrthographicSize, got[1], 1e-3)

	_, err = s.update(nil, 0, 0, true)
	assert.ErrorIs(t, err, ErrNoActiveCamera)
}

func TestFrameDue(t *testing.T) {
	assert.True(t, frameDue(false, false))
	assert.True(t, frameDue(false, true))
	assert.True(t, frameDue(true, true), "a respawn while paused draws the new flock")
	assert.False(t, frameDue(true, false))
}
