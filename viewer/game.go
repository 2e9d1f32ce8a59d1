package main

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"

	"spaceship-sim/internal/engine"
	"spaceship-sim/internal/entity"
	"spaceship-sim/internal/game"
	"spaceship-sim/internal/quality"
	"spaceship-sim/internal/render"
	"spaceship-sim/internal/settings"
)

var background = color.RGBA{R: 8, G: 10, B: 20, A: 255}

// Viewer runs the engine inside ebiten's loop. Update steps the simulation
// into a recorder; Draw replays the last recorded frame.
type Viewer struct {
	eng      *engine.Engine
	log      *zap.Logger
	settings *settings.Store

	rec    *render.Recorder
	frame  render.Frame
	last   time.Time
	paused bool

	width, height int
}

// NewViewer applies the saved settings to eng
func NewViewer(eng *engine.Engine, st *settings.Store, log *zap.Logger, width, height int) *Viewer {
	v := &Viewer{
		eng:      eng,
		log:      log,
		settings: st,
		rec:      render.NewRecorder(eng.World.Env().Width, eng.World.Env().Height),
		width:    width,
		height:   height,
	}
	if t, ok := st.Get().Tier(); ok {
		eng.Quality.Force(t)
	}
	return v
}

func (v *Viewer) Update() error {
	v.handleInput()

	now := time.Now()
	dt := 1.0 / float64(ebiten.TPS())
	if !v.last.IsZero() {
		dt = now.Sub(v.last).Seconds()
	}
	v.last = now
	if v.paused {
		return nil
	}

	// The tier decides whether trails are affordable; the viewer can only turn them off
	v.eng.World.Env().Trails = v.eng.Quality.Settings().Trails && v.settings.Get().Trails

	v.rec.Reset()
	v.eng.Step(dt, v.rec)
	v.frame = v.rec.Frame()
	return nil
}

func (v *Viewer) handleInput() {
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyH):
		v.save(func(s *settings.Settings) { s.ShowHUD = !s.ShowHUD })
	case inpututil.IsKeyJustPressed(ebiten.KeyT):
		v.save(func(s *settings.Settings) { s.Trails = !s.Trails })
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		v.paused = !v.paused
	case inpututil.IsKeyJustPressed(ebiten.Key1):
		v.pin(quality.Low)
	case inpututil.IsKeyJustPressed(ebiten.Key2):
		v.pin(quality.Medium)
	case inpututil.IsKeyJustPressed(ebiten.Key3):
		v.pin(quality.High)
	case inpututil.IsKeyJustPressed(ebiten.Key0):
		v.eng.Quality.Auto()
		v.save(func(s *settings.Settings) { s.PinnedTier = "" })
	case inpututil.IsKeyJustPressed(ebiten.KeyM):
		for _, s := range entity.OfType[*game.Ship](v.eng.Registry) {
			s.Autopilot = !s.Autopilot
		}
	}

	// Arrow keys fly every manually piloted ship
	c := game.Controls{Fire: ebiten.IsKeyPressed(ebiten.KeySpace)}
	if ebiten.IsKeyPressed(ebiten.KeyLeft) {
		c.Turn--
	}
	if ebiten.IsKeyPressed(ebiten.KeyRight) {
		c.Turn++
	}
	if ebiten.IsKeyPressed(ebiten.KeyUp) {
		c.Thrust = 1
	}
	for _, s := range entity.OfType[*game.Ship](v.eng.Registry) {
		if !s.Autopilot {
			s.Controls = c
		}
	}
}

func (v *Viewer) pin(t quality.Tier) {
	v.eng.Quality.Force(t)
	v.save(func(s *settings.Settings) { s.PinnedTier = t.String() })
}

func (v *Viewer) save(fn func(*settings.Settings)) {
	if err := v.settings.Update(fn); err != nil {
		v.log.Warn("failed to save settings", zap.Error(err))
	}
}

func (v *Viewer) Draw(dst *ebiten.Image) {
	dst.Fill(background)

	st := v.settings.Get()
	scale := float32(1)
	if v.frame.Width > 0 {
		scale = float32(v.width) / float32(v.frame.Width)
	}
	render.Replay(v.frame, &screen{dst: dst, scale: scale})

	if st.ShowHUD {
		ebitenutil.DebugPrint(dst, v.hud())
	}
}

func (v *Viewer) hud() string {
	snap := v.eng.Snapshot()
	ws := v.eng.World.Stats()
	q := snap.Quality
	mode := "auto"
	if q.Forced {
		mode = "pinned"
	}
	s := fmt.Sprintf("FPS %.1f (tps %.0f)  tier %s [%s]\n", q.FPS, ebiten.ActualTPS(), snap.Tier, mode)
	s += fmt.Sprintf("objects %d  checks %d  pairs %d  eff %.3f\n",
		snap.Collision.Objects, snap.Collision.Checks, snap.Collision.Pairs, snap.Collision.Efficiency)
	s += fmt.Sprintf("debris %d  hostiles %d  ships %d  destroyed %d\n", ws.Debris, ws.Hostiles, ws.Ships, ws.Destroyed)
	for _, p := range snap.Pools {
		s += fmt.Sprintf("pool %-11s %3d/%-3d  evicted %d\n", p.Name, p.Active, p.Max, p.Evictions)
	}
	if v.paused {
		s += "PAUSED\n"
	}
	s += "[H]ud [T]rails [P]ause [1-3] pin tier [0] auto [M]anual/auto pilot"
	return s
}

func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return v.width, v.height
}
