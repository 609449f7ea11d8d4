package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/lao-tseu-is-alive/go-flocking/internal/config"
	"github.com/lao-tseu-is-alive/go-flocking/internal/simulation"
	"go.uber.org/zap"
)

func main() {
	configFile := flag.String("config", "configs/config.json", "path to the JSON config file, empty for defaults")
	schemaFile := flag.String("schema", "", "path to the JSON schema, empty for the built-in one")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configFile != "" {
		var err error
		cfg, err = config.LoadConfig(*configFile, *schemaFile)
		if err != nil {
			log.Fatalf("Error loading config: %v", err)
		}
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowTitle(cfg.Window.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	game, err := simulation.NewGame(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create game", zap.Error(err))
	}
	defer game.Close()

	logger.Info("starting",
		zap.String("config", *configFile),
		zap.Int("boidsCount", cfg.Flocking.BoidsCount),
		zap.String("mesh", cfg.Mesh))
	if err := ebiten.RunGame(game); err != nil {
		logger.Error("game stopped", zap.Error(err))
	}
}

// newLogger picks the development encoder for debug runs and the
// production JSON one otherwise.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	lvl, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if lvl == zap.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
