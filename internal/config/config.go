// Package config loads the application settings from a JSON file checked
// against a JSON schema.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/flocking"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/geometry"
	"github.com/lao-tseu-is-alive/go-flocking/pkg/render"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/zap/zapcore"
)

//go:embed config.schema.json
var schemaJSON string

const schemaURL = "config.schema.json"

var ErrInvalidConfig = errors.New("invalid config")

type Window struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Title  string `json:"title"`
}

type Camera struct {
	Position         flocking.Vec3 `json:"position"`
	Target           flocking.Vec3 `json:"target"`
	Orthographic     bool          `json:"orthographic"`
	OrthographicSize float32       `json:"orthographicSize"`
	FieldOfView      float32       `json:"fieldOfView"` // degrees, vertical
	Near             float32       `json:"near"`
	Far              float32       `json:"far"`
}

// Spawn places the object owning the flock.
type Spawn struct {
	Position flocking.Vec3 `json:"position"`
	Rotation flocking.Vec3 `json:"rotation"` // Euler angles in degrees
}

// Color is RGBA with channels in [0, 1].
type Color [4]float32

func (c Color) Vec4() mgl32.Vec4 { return mgl32.Vec4(c) }

type Config struct {
	Window           Window          `json:"window"`
	LogLevel         string          `json:"logLevel"`
	Camera           Camera          `json:"camera"`
	Spawn            Spawn           `json:"spawn"`
	Mesh             string          `json:"mesh"`
	MeshScale        float32         `json:"meshScale"`
	Color            Color           `json:"color"`
	Background       Color           `json:"background"`
	ThreadGroupWidth uint32          `json:"threadGroupWidth"`
	Seed             uint64          `json:"seed"` // 0 picks a random seed
	Flocking         flocking.Config `json:"flocking"`
}

func DefaultConfig() *Config {
	return &Config{
		Window: Window{
			Width:  1024,
			Height: 768,
			Title:  "Instanced flocking",
		},
		LogLevel: "info",
		Camera: Camera{
			Position:         flocking.Vec3{Z: 30},
			Orthographic:     true,
			OrthographicSize: 12,
			FieldOfView:      60,
			Near:             0.3,
			Far:              1000,
		},
		Mesh:             "tetrahedron",
		MeshScale:        0.25,
		Color:            Color{0.95, 0.75, 0.3, 1},
		Background:       Color{0.04, 0.04, 0.12, 1},
		ThreadGroupWidth: flocking.DefaultThreadGroupWidth,
		Flocking:         *flocking.DefaultConfig(),
	}
}

// Level parses LogLevel; an empty value means info.
func (c *Config) Level() (zapcore.Level, error) {
	if c.LogLevel == "" {
		return zapcore.InfoLevel, nil
	}
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("%w: log level: %w", ErrInvalidConfig, err)
	}
	return lvl, nil
}

// Owner returns the transform the flock spawns around.
func (c *Config) Owner() flocking.Transform {
	return flocking.Transform{
		Position: c.Spawn.Position.Vec(),
		Rotation: geometry.FromEuler(c.Spawn.Rotation.Vec()),
	}
}

// NewCamera builds the render camera for a viewport of the window size.
func (c *Config) NewCamera() *render.Camera {
	return &render.Camera{
		Position:         c.Camera.Position.Vec(),
		Target:           c.Camera.Target.Vec(),
		Up:               geometry.Up,
		FieldOfView:      c.Camera.FieldOfView,
		Orthographic:     c.Camera.Orthographic,
		OrthographicSize: c.Camera.OrthographicSize,
		Near:             c.Camera.Near,
		Far:              c.Camera.Far,
		PixelWidth:       c.Window.Width,
		PixelHeight:      c.Window.Height,
	}
}

func compileSchema(schemaFile string) (*jsonschema.Schema, error) {
	if schemaFile == "" {
		return jsonschema.CompileString(schemaURL, schemaJSON)
	}
	return jsonschema.Compile(schemaFile)
}

// LoadConfig loads configuration from a JSON file and validates it against
// the schema. Fields missing from the file keep their DefaultConfig value.
// An empty schemaFile selects the schema built into the binary.
func LoadConfig(configFile string, schemaFile string) (*Config, error) {
	sch, err := compileSchema(schemaFile)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	b, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	return parse(b, sch)
}

// Parse validates raw JSON against the built-in schema.
func Parse(b []byte) (*Config, error) {
	sch, err := compileSchema("")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return parse(b, sch)
}

func parse(b []byte, sch *jsonschema.Schema) (*Config, error) {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("failed to decode config json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: validation failed: %w", ErrInvalidConfig, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if _, err := cfg.Level(); err != nil {
		return nil, err
	}
	return cfg, nil
}
