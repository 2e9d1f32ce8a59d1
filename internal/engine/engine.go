// Package engine ties the simulation core together and runs it frame by frame.
package engine

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"spaceship-sim/internal/collision"
	"spaceship-sim/internal/config"
	"spaceship-sim/internal/diag"
	"spaceship-sim/internal/entity"
	"spaceship-sim/internal/game"
	"spaceship-sim/internal/object"
	"spaceship-sim/internal/pool"
	"spaceship-sim/internal/quality"
	"spaceship-sim/internal/render"
	"spaceship-sim/internal/scenario"
)

// PoolStats is satisfied by every pool.Pool instantiation
type PoolStats interface {
	Stats() pool.Stats
}

// FrameFunc receives a rendered frame on the engine goroutine. f is a copy
// and may be kept.
type FrameFunc func(f render.Frame)

// Engine owns the core subsystems. Everything except Submit must be called
// from the goroutine that steps it.
type Engine struct {
	cfg *config.Config
	log *zap.Logger

	Collisions *collision.System
	Registry   *entity.Registry
	Quality    *quality.Controller
	World      *game.World

	pools    []PoolStats
	frame    uint64
	recorder *diag.Recorder
	commands chan func(*Engine)
}

// New builds the core from cfg and applies the initial quality tier
func New(cfg *config.Config, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		cfg:      cfg,
		log:      log,
		commands: make(chan func(*Engine), 64),
	}
	e.Collisions = collision.New(cfg.Spatial.CellSize, log.Named("collision"))
	e.Registry = entity.New(e.Collisions, log.Named("registry"))
	e.Quality = quality.New(cfg.Quality, log.Named("quality"))
	e.World = game.NewWorld(cfg, e.Registry, e.Collisions, log.Named("world"))

	e.TrackPool(e.World.Projectiles)
	e.TrackPool(e.World.Particles)

	e.applyTier(e.Quality.Settings())
	e.Quality.OnChange(e.tierChanged)
	return e
}

// Seed populates the world from a scenario
func (e *Engine) Seed(sc *scenario.Scenario) { e.World.Seed(sc) }

// TrackPool adds p to the pools reported in snapshots
func (e *Engine) TrackPool(p PoolStats) {
	if p != nil {
		e.pools = append(e.pools, p)
	}
}

// SetRecorder makes Step hand a snapshot to r every cfg.Diagnostics.SampleEvery frames
func (e *Engine) SetRecorder(r *diag.Recorder) { e.recorder = r }

// Frame returns how many frames have been stepped
func (e *Engine) Frame() uint64 { return e.frame }

func (e *Engine) applyTier(s quality.TierSettings) {
	e.Collisions.SetThrottle(s.Throttle)
	e.World.ApplyTier(s)
}

func (e *Engine) tierChanged(from, to quality.Tier, s quality.TierSettings) {
	e.applyTier(s)
	if e.recorder != nil {
		e.recorder.TrackTierChange(diag.TierChange{
			Frame: e.frame,
			From:  from.String(),
			To:    to.String(),
			FPS:   e.Quality.Stats().FPS,
			At:    time.Now(),
		})
	}
}

// Step advances the simulation by one frame of dt seconds in a fixed order:
// spawners, drain and update, index rebuild and collision dispatch, render,
// then the quality controller. The simulation sees dt clamped to MaxDelta;
// the quality controller sees the real frame time. rn may be nil to skip
// drawing this frame.
func (e *Engine) Step(dt float64, rn object.Renderer) {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		e.log.Debug("frame skipped", zap.Float64("dt", dt))
		return
	}
	e.runCommands()
	e.frame++

	sim := dt
	if limit := e.cfg.Frame.MaxDelta; limit > 0 && sim > limit {
		sim = limit
	}

	e.World.Tick(sim)
	e.Registry.Update(sim)
	e.Registry.DetectCollisions()
	if rn != nil {
		if t, ok := rn.(interface{ SetTrails(bool) }); ok {
			t.SetTrails(e.World.Env().Trails)
		}
		e.Registry.Render(rn)
	}
	e.Quality.Update(dt)

	if e.recorder != nil {
		if every := e.cfg.Diagnostics.SampleEvery; every > 0 && e.frame%uint64(every) == 0 {
			e.recorder.Track(e.Snapshot())
		}
	}
}

// Submit queues fn to run on the engine goroutine before the next frame.
// It is safe to call from any goroutine and reports false when the queue is full.
func (e *Engine) Submit(fn func(*Engine)) bool {
	select {
	case e.commands <- fn:
		return true
	default:
		return false
	}
}

func (e *Engine) runCommands() {
	for {
		select {
		case fn := <-e.commands:
			fn(e)
		default:
			return
		}
	}
}

// Snapshot copies every statistic the core keeps
func (e *Engine) Snapshot() diag.Snapshot {
	pools := make([]pool.Stats, 0, len(e.pools))
	for _, p := range e.pools {
		pools = append(pools, p.Stats())
	}
	return diag.Snapshot{
		Frame:     e.frame,
		At:        time.Now(),
		Tier:      e.Quality.Tier().String(),
		Collision: e.Collisions.Stats(),
		Registry:  e.Registry.Stats(),
		Pools:     pools,
		Quality:   e.Quality.Stats(),
	}
}

// Run steps the engine on a ticker until ctx is done. Every frame whose
// number is a multiple of the render interval is drawn into a recorder and
// passed to onFrame.
func (e *Engine) Run(ctx context.Context, onFrame FrameFunc) {
	tick := e.cfg.Frame.TickDuration()
	renderEvery := uint64(1)
	if fr := e.cfg.Frame.FrameRate; fr > 0 && fr < e.cfg.Frame.TickRate {
		renderEvery = uint64(e.cfg.Frame.TickRate / fr)
	}
	rec := render.NewRecorder(e.World.Env().Width, e.World.Env().Height)

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	e.log.Info("engine started",
		zap.Duration("tick", tick),
		zap.Uint64("render_every", renderEvery),
	)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine stopped", zap.Uint64("frames", e.frame))
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			if (e.frame+1)%renderEvery != 0 || onFrame == nil {
				e.Step(dt, nil)
				continue
			}
			rec.Reset()
			e.Step(dt, rec)
			onFrame(rec.Frame())
		}
	}
}

// Close releases every object and pool
func (e *Engine) Close() {
	e.World.Close()
}
