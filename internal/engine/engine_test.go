package engine

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"spaceship-sim/internal/config"
	"spaceship-sim/internal/diag"
	"spaceship-sim/internal/game"
	"spaceship-sim/internal/geom"
	"spaceship-sim/internal/quality"
	"spaceship-sim/internal/render"
	"spaceship-sim/internal/scenario"
)

const fast = 1.0 / 60

func newTestEngine(t *testing.T, cfg *config.Config) *Engine {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	e := New(cfg, nil)
	t.Cleanup(e.Close)
	return e
}

func TestNewAppliesInitialTier(t *testing.T) {
	e := newTestEngine(t, nil)
	want := e.Quality.Settings()
	if e.Collisions.Throttle() != want.Throttle {
		t.Errorf("expected throttle %d, got %d", want.Throttle, e.Collisions.Throttle())
	}
	if e.World.Particles.Max() != want.MaxParticles {
		t.Errorf("expected particle cap %d, got %d", want.MaxParticles, e.World.Particles.Max())
	}
}

func TestStepRendersAndCounts(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Seed(&scenario.Scenario{Seed: 1, Groups: []scenario.Group{
		{Kind: scenario.KindAsteroid, Count: 4, X: 600, Y: 600, Spread: 200},
	}})

	rec := render.NewRecorder(e.World.Env().Width, e.World.Env().Height)
	e.Step(fast, rec)
	if e.Frame() != 1 {
		t.Errorf("expected frame 1, got %d", e.Frame())
	}
	if e.Registry.Len() != 4 {
		t.Errorf("seeded objects should be live after the first frame, got %d", e.Registry.Len())
	}
	// one circle and one heading line per asteroid
	if rec.Len() != 8 {
		t.Errorf("expected 8 draw commands, got %d", rec.Len())
	}
	if e.Collisions.Stats().Objects != 4 {
		t.Errorf("collision pass should see 4 objects, got %d", e.Collisions.Stats().Objects)
	}

	e.Step(fast, nil)
	if e.Frame() != 2 {
		t.Errorf("a frame without a renderer still counts, got %d", e.Frame())
	}
}

func TestStepIgnoresInvalidDelta(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Step(0, nil)
	e.Step(-1, nil)
	if e.Frame() != 0 {
		t.Errorf("invalid deltas should be skipped, frame %d", e.Frame())
	}
}

func TestStepClampsSimulationDelta(t *testing.T) {
	cfg := config.Default()
	cfg.Frame.MaxDelta = 0.1
	e := newTestEngine(t, cfg)
	a := game.NewAsteroid(e.World.Env(), geom.V(1000, 800), geom.V(100, 0), 20, 0)
	e.Registry.Add(a)

	e.Step(5, nil) // a five second stall
	if got := a.Pos().X; got < 1009.99 || got > 1010.01 {
		t.Errorf("asteroid should move by max_delta only, x %f", got)
	}
	if e.Quality.Stats().MaxFrame != 5 {
		t.Errorf("quality controller should see the real frame time, got %f", e.Quality.Stats().MaxFrame)
	}
}

func TestSustainedSlowdownLowersTier(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	cfg := config.Default()
	e := New(cfg, zap.New(core))
	defer e.Close()
	r := diag.NewRecorder(nil, diag.RecorderConfig{}, nil)
	defer r.Stop()
	e.SetRecorder(r)

	for i := 0; i < 100; i++ {
		e.Step(1.0/20, nil)
	}
	if e.Quality.Tier() != quality.Low {
		t.Fatalf("expected low tier, got %s", e.Quality.Tier())
	}
	low := cfg.Quality.Low
	if e.Collisions.Throttle() != low.Throttle {
		t.Errorf("throttle should follow the tier, got %d", e.Collisions.Throttle())
	}
	if e.World.Particles.Max() != low.MaxParticles || e.World.Env().DetailDistance != low.DetailDistance {
		t.Error("world should adopt the low tier settings")
	}
	if logs.FilterMessage("quality tier changed").Len() != 1 {
		t.Errorf("expected exactly one tier change, got %d", logs.FilterMessage("quality tier changed").Len())
	}
}

func TestSnapshot(t *testing.T) {
	e := newTestEngine(t, nil)
	e.Step(fast, nil)

	s := e.Snapshot()
	if s.Frame != 1 || s.Tier != "medium" {
		t.Errorf("unexpected snapshot header: frame %d tier %s", s.Frame, s.Tier)
	}
	if len(s.Pools) != 2 || s.Pools[0].Name != "projectiles" || s.Pools[1].Name != "particles" {
		t.Errorf("expected both pools, got %+v", s.Pools)
	}
	if s.Quality.Samples != 1 {
		t.Errorf("expected one quality sample, got %d", s.Quality.Samples)
	}
}

func TestRecorderSampling(t *testing.T) {
	cfg := config.Default()
	cfg.Diagnostics.SampleEvery = 2
	e := newTestEngine(t, cfg)
	r := diag.NewRecorder(nil, diag.RecorderConfig{}, nil)
	defer r.Stop()
	e.SetRecorder(r)

	e.Step(fast, nil)
	if _, ok := r.Latest(); ok {
		t.Error("first frame should not be sampled")
	}
	e.Step(fast, nil)
	if s, ok := r.Latest(); !ok || s.Frame != 2 {
		t.Errorf("expected a sample of frame 2, got %d", s.Frame)
	}
}

func TestSubmitRunsBeforeNextFrame(t *testing.T) {
	e := newTestEngine(t, nil)
	if !e.Submit(func(e *Engine) { e.Quality.Force(quality.High) }) {
		t.Fatal("submit should accept the command")
	}
	if e.Quality.Tier() == quality.High {
		t.Fatal("commands must wait for the engine goroutine")
	}
	e.Step(fast, nil)
	if e.Quality.Tier() != quality.High {
		t.Errorf("expected forced high tier, got %s", e.Quality.Tier())
	}
	if !e.World.Env().Trails {
		t.Error("high tier should enable trails")
	}
}

func TestRun(t *testing.T) {
	cfg := config.Default()
	cfg.Frame.TickRate = 200
	cfg.Frame.FrameRate = 100
	e := newTestEngine(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	frames := make(chan render.Frame, 16)
	done := make(chan struct{})
	go func() {
		e.Run(ctx, func(f render.Frame) {
			select {
			case frames <- f:
			default:
			}
		})
		close(done)
	}()

	var got []render.Frame
	timeout := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case f := <-frames:
			got = append(got, f)
		case <-timeout:
			t.Fatalf("expected 3 frames, got %d", len(got))
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return after cancel")
	}

	if got[1].Seq <= got[0].Seq {
		t.Errorf("frame sequence should increase: %d then %d", got[0].Seq, got[1].Seq)
	}
	if e.Frame() < 6 {
		t.Errorf("expected at least 6 ticks for 3 rendered frames, got %d", e.Frame())
	}
}
