package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2"

	"spaceship-sim/internal/config"
	"spaceship-sim/internal/engine"
	"spaceship-sim/internal/logging"
	"spaceship-sim/internal/scenario"
	"spaceship-sim/internal/settings"
)

func main() {
	configPath := flag.String("config", "", "Path to the TOML config (default: $SPACESHIP_CONFIG)")
	scenarioPath := flag.String("scenario", "", "Scenario file (overrides game.scenario)")
	width := flag.Int("width", 1200, "Window width in pixels")
	flag.Parse()

	if err := run(config.Resolve(*configPath), *scenarioPath, *width); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath, scenarioPath string, width int) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if scenarioPath != "" {
		cfg.Game.Scenario = scenarioPath
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	eng := engine.New(cfg, log)
	defer eng.Close()
	if cfg.Game.Scenario != "" {
		sc, err := scenario.Load(cfg.Game.Scenario)
		if err != nil {
			return fmt.Errorf("load scenario: %w", err)
		}
		eng.Seed(sc)
	}

	env := eng.World.Env()
	height := int(float64(width) * env.Height / env.Width)
	v := NewViewer(eng, settings.Open(log.Named("settings")), log, width, height)

	ebiten.SetWindowSize(width, height)
	ebiten.SetWindowTitle("spaceship-sim")
	ebiten.SetTPS(cfg.Frame.TickRate)
	if err := ebiten.RunGame(v); err != nil {
		return fmt.Errorf("run viewer: %w", err)
	}
	return nil
}
