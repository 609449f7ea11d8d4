// Package simulation hosts the flock in an ebiten window: it feeds the frame
// clock and cursor to the flock and presents the batched triangles.
package simulation

import (
	"fmt"
	"image/color"
	"math/rand/v2"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/lao-tseu-is-alive/go-flocking/internal/config"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/compute"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/flocking"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/render"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/ui"
	"go.uber.org/zap"
	"golang.org/x/image/font/basicfont"
)

var hudFace = text.NewGoXFace(basicfont.Face7x13)

type Game struct {
	cfg    *config.Config
	logger *zap.Logger
	rng    *rand.Rand
	seed   uint64

	device   *compute.Device
	shader   *compute.Shader
	mesh     *render.Mesh
	material *render.Material
	camera   *render.Camera
	batcher  *render.Batcher
	flock    *flocking.Flock

	clock    clock
	steering steering
	respawns int
	pending  bool // respawn requested from the panel

	white    *ebiten.Image
	vertices []ebiten.Vertex

	panel             *ui.Panel
	widgetPause       *ui.Checkbox
	widgetBoids       *ui.Slider
	widgetSpawnRadius *ui.Slider
	widgetCursor      *ui.Slider
	widgetSpeed       *ui.Slider

	// Timing instrumentation
	lastUpdateDuration time.Duration
	lastDrawDuration   time.Duration
	updateAvg          float64 // Rolling average in ms
	drawAvg            float64 // Rolling average in ms
}

// NewGame builds the device, kernel, mesh, material and camera described by
// cfg and starts a first flock.
func NewGame(cfg *config.Config, logger *zap.Logger) (*Game, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	mesh, err := render.MeshByName(cfg.Mesh, 1)
	if err != nil {
		return nil, fmt.Errorf("boid mesh: %w", err)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	material := render.NewMaterial("boid", cfg.Color.Vec4(), flocking.InstanceShader{Scale: cfg.MeshScale})

	g := &Game{
		cfg:      cfg,
		logger:   logger.Named("game"),
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		seed:     seed,
		device:   compute.NewDevice(logger),
		shader:   flocking.NewComputeShader(cfg.ThreadGroupWidth, logger),
		mesh:     mesh,
		material: material,
		camera:   cfg.NewCamera(),
		white:    ebiten.NewImage(3, 3),
	}
	g.white.Fill(color.White)
	g.batcher = render.NewBatcher(g.camera, logger)
	g.buildPanel()

	if err := g.spawn(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Game) buildPanel() {
	panel := ui.NewPanel(10, 10, 260, float64(g.cfg.Window.Height)-20, "Flocking")

	panel.AddSection("Simulation")
	g.widgetPause = panel.AddCheckbox("Pause (space)", false)
	g.widgetPause.OnChange = func(paused bool) {
		g.logger.Debug("pause toggled", zap.Bool("paused", paused))
	}
	panel.AddButton("Respawn (r)", func() { g.pending = true })

	fc := g.cfg.Flocking
	panel.AddSection("Next spawn")
	g.widgetBoids = panel.AddSlider("Boids", 1, 20000, float64(fc.BoidsCount))
	g.widgetBoids.Format = "%.0f"
	g.widgetSpawnRadius = panel.AddSlider("Spawn radius", 0, 20, float64(fc.SpawnRadius))
	g.widgetSpeed = panel.AddSlider("Boid speed", 0, 10, float64(fc.BoidSpeed))
	g.widgetCursor = panel.AddSlider("Cursor weight", 0, 10, float64(fc.CursorWeight))

	panel.AddSection("Frame")
	panel.AddLabel(func() string { return fmt.Sprintf("boids: %d", g.flock.NumOfBoids()) })
	panel.AddLabel(func() string {
		return fmt.Sprintf("groups: %d x %d", g.flock.GroupSizeX(), g.cfg.ThreadGroupWidth)
	})
	panel.AddLabel(func() string {
		st := g.batcher.Stats()
		return fmt.Sprintf("drawn: %d culled: %d", st.Instances, st.Culled)
	})
	panel.AddLabel(func() string {
		return fmt.Sprintf("triangles: %d batches: %d", g.batcher.Stats().Triangles, len(g.batcher.Batches()))
	})
	panel.AddLabel(func() string { return fmt.Sprintf("seed: %d", g.seed) })

	g.panel = panel
}

// spawn replaces the running flock with a fresh one using the panel values.
func (g *Game) spawn() error {
	if g.flock != nil {
		g.flock.Destroy()
		g.respawns++
	}
	fc := g.cfg.Flocking
	fc.BoidsCount = int(g.widgetBoids.Value)
	fc.SpawnRadius = float32(g.widgetSpawnRadius.Value)
	fc.BoidSpeed = float32(g.widgetSpeed.Value)
	fc.CursorWeight = float32(g.widgetCursor.Value)

	g.flock = flocking.New(&fc, flocking.Resources{
		Device:   g.device,
		Shader:   g.shader,
		Mesh:     g.mesh,
		Material: g.material,
		Owner:    g.cfg.Owner(),
		Logger:   g.logger,
		Rand:     g.rng,
	})
	if err := g.flock.Start(); err != nil {
		return fmt.Errorf("start flock: %w", err)
	}
	g.logger.Info("flock spawned",
		zap.Int("respawns", g.respawns),
		zap.Int("boidsCount", fc.BoidsCount),
		zap.Uint64("seed", g.seed))
	return nil
}

func (g *Game) Update() error {
	start := time.Now()
	defer func() {
		g.lastUpdateDuration = time.Since(start)
		// Rolling average (exponential moving average)
		g.updateAvg = g.updateAvg*0.95 + float64(g.lastUpdateDuration.Microseconds())/1000.0*0.05
	}()

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyEscape):
		return ebiten.Termination
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		g.widgetPause.Toggle()
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		g.pending = true
	case inpututil.IsKeyJustPressed(ebiten.KeyH):
		g.panel.Hidden = !g.panel.Hidden
	}

	g.panel.Update()
	respawned := g.pending
	if g.pending {
		g.pending = false
		if err := g.spawn(); err != nil {
			return err
		}
	}

	t, dt := g.clock.tick(start, g.widgetPause.Value)
	if !frameDue(g.widgetPause.Value, respawned) {
		// keep the last batches on screen
		return nil
	}

	mx, my := ebiten.CursorPosition()
	cursor, err := g.steering.update(g.camera, mx, my, g.panel.Contains())
	if err != nil {
		return err
	}

	g.batcher.Reset()
	return g.flock.Update(flocking.FrameInput{Time: t, DeltaTime: dt, Cursor: cursor}, g.batcher)
}

func (g *Game) Draw(screen *ebiten.Image) {
	start := time.Now()
	defer func() {
		g.lastDrawDuration = time.Since(start)
		g.drawAvg = g.drawAvg*0.95 + float64(g.lastDrawDuration.Microseconds())/1000.0*0.05
	}()

	bg := g.cfg.Background
	screen.Fill(color.RGBA{R: uint8(bg[0] * 255), G: uint8(bg[1] * 255), B: uint8(bg[2] * 255), A: uint8(bg[3] * 255)})

	// one DrawTriangles per batch
	op := &ebiten.DrawTrianglesOptions{AntiAlias: true}
	for _, b := range g.batcher.Batches() {
		g.vertices = appendVertices(g.vertices[:0], b)
		screen.DrawTriangles(g.vertices, b.Indices, g.white, op)
	}

	g.panel.Draw(screen)

	msg := fmt.Sprintf("FPS: %.2f\nTPS: %.2f\n\nUpdate: %.2fms\nDraw:   %.2fms\nTotal:  %.2fms",
		ebiten.ActualFPS(),
		ebiten.ActualTPS(),
		g.updateAvg,
		g.drawAvg,
		g.updateAvg+g.drawAvg)
	if g.widgetPause.Value {
		msg += "\n\nPAUSED"
	}
	hud := &text.DrawOptions{}
	hud.GeoM.Translate(float64(g.cfg.Window.Width-160), 10)
	hud.LineSpacing = 15
	hud.ColorScale.ScaleWithColor(color.White)
	text.Draw(screen, msg, hudFace, hud)
}

func (g *Game) Layout(w, h int) (int, int) { return g.cfg.Window.Width, g.cfg.Window.Height }

// Close tears the flock down and reports buffers that outlived it.
func (g *Game) Close() {
	if g.flock != nil {
		g.flock.Destroy()
	}
	if n := g.device.LiveBuffers(); n > 0 {
		g.logger.Warn("device buffers leaked", zap.Int("count", n))
	}
	g.logger.Info("game closed", zap.Int("respawns", g.respawns))
}
