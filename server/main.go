package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"spaceship-sim/internal/config"
	"spaceship-sim/internal/diag"
	"spaceship-sim/internal/engine"
	"spaceship-sim/internal/logging"
	"spaceship-sim/internal/quality"
	"spaceship-sim/internal/render"
	"spaceship-sim/internal/scenario"
)

// statsEvery is how many broadcast frames pass between attached snapshots
const statsEvery = 30

func main() {
	configPath := flag.String("config", "", "Path to the TOML config (default: $SPACESHIP_CONFIG)")
	addr := flag.String("addr", "", "HTTP listen address (overrides server.bind_address)")
	hashKey := flag.String("hash-key", "", "Print the bcrypt hash of a HUD key and exit")
	flag.Parse()

	if *hashKey != "" {
		hash, err := HashKey(*hashKey)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	if err := run(config.Resolve(*configPath), *addr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(configPath, addr string) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr != "" {
		cfg.Server.BindAddress = addr
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

	var recorder *diag.Recorder
	if cfg.Diagnostics.Enabled {
		var store *diag.Store
		if cfg.Diagnostics.DBPath != "" {
			store, err = diag.OpenStore(cfg.Diagnostics.DBPath)
			if err != nil {
				return fmt.Errorf("open diagnostics store: %w", err)
			}
			defer store.Close()
		}
		recorder = diag.NewRecorder(store, diag.RecorderConfig{
			BatchSize:     cfg.Diagnostics.BatchSize,
			FlushInterval: cfg.Diagnostics.FlushInterval,
			QueueSize:     cfg.Diagnostics.QueueSize,
		}, log.Named("diag"))
		defer recorder.Stop()
		eng.SetRecorder(recorder)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := NewHub(log.Named("hub"))
	go hub.Run(ctx)

	srv := &Server{
		cfg:      cfg,
		log:      log.Named("http"),
		hub:      hub,
		auth:     NewAuth(cfg.Auth, log.Named("auth")),
		ctl:      engineControl{eng: eng},
		recorder: recorder,
	}

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		eng.Run(ctx, broadcaster(hub, eng))
	}()

	server := &http.Server{Addr: cfg.Server.BindAddress, Handler: SetupRoutes(srv)}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", cfg.Server.BindAddress))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		stop()
		<-engineDone
		return fmt.Errorf("listen: %w", err)
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	<-engineDone
	return nil
}

// broadcaster returns the engine's frame callback. It runs on the engine
// goroutine, so taking a snapshot here is safe.
func broadcaster(hub *Hub, eng *engine.Engine) engine.FrameFunc {
	var n int
	return func(f render.Frame) {
		n++
		var snap *diag.Snapshot
		if n%statsEvery == 0 {
			s := eng.Snapshot()
			snap = &s
		}
		hub.BroadcastFrame(f, snap)
	}
}

// engineControl applies HUD tier requests on the engine goroutine
type engineControl struct {
	eng *engine.Engine
}

func (c engineControl) SetTier(name string) error {
	var fn func(*engine.Engine)
	if name == "auto" {
		fn = func(e *engine.Engine) { e.Quality.Auto() }
	} else {
		t, ok := quality.ParseTier(name)
		if !ok {
			return fmt.Errorf("unknown tier %q", name)
		}
		fn = func(e *engine.Engine) { e.Quality.Force(t) }
	}
	if !c.eng.Submit(fn) {
		return errors.New("engine busy, try again")
	}
	return nil
}
