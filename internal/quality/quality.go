// Package quality picks a fidelity tier from recent frame times.
package quality

import (
	"math"

	"go.uber.org/zap"
)

// Tier is an ordered fidelity level
type Tier int

const (
	Low Tier = iota
	Medium
	High

	numTiers = 3
)

func (t Tier) String() string {
	switch t {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	}
	return "unknown"
}

// Valid reports whether t is one of the defined tiers
func (t Tier) Valid() bool { return t >= Low && t < numTiers }

// ParseTier maps "low", "medium" or "high" to a Tier
func ParseTier(s string) (Tier, bool) {
	for t := Low; t < numTiers; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return Medium, false
}

// TierSettings are the knobs a tier hands to the pool, collision and render collaborators
type TierSettings struct {
	MaxObjects     int     `toml:"max_objects"`
	MaxParticles   int     `toml:"max_particles"`
	Trails         bool    `toml:"trails"`
	DetailDistance float64 `toml:"detail_distance"`
	// Throttle is the frame cadence for cosmetic collision handlers
	Throttle int `toml:"throttle"`
}

// Config holds the controller tunables
type Config struct {
	TargetFPS     float64 `toml:"target_fps"`
	HistorySize   int     `toml:"history_size"`
	WarmupSamples int     `toml:"warmup_samples"`
	// Transition is the debounce window in seconds of accumulated frame time
	Transition   float64 `toml:"transition"`
	DegradeRatio float64 `toml:"degrade_ratio"`
	UpgradeRatio float64 `toml:"upgrade_ratio"`
	Initial      string  `toml:"initial"`

	Low    TierSettings `toml:"low"`
	Medium TierSettings `toml:"medium"`
	High   TierSettings `toml:"high"`
}

// DefaultConfig returns the stock tunables: 60 FPS target, 2s debounce.
func DefaultConfig() Config {
	return Config{
		TargetFPS:     60,
		HistorySize:   60,
		WarmupSamples: 10,
		Transition:    2,
		DegradeRatio:  0.7,
		UpgradeRatio:  1.1,
		Initial:       "medium",
		Low:           TierSettings{MaxObjects: 40, MaxParticles: 64, Trails: false, DetailDistance: 300, Throttle: 4},
		Medium:        TierSettings{MaxObjects: 80, MaxParticles: 192, Trails: false, DetailDistance: 600, Throttle: 2},
		High:          TierSettings{MaxObjects: 140, MaxParticles: 512, Trails: true, DetailDistance: 1000, Throttle: 1},
	}
}

// Settings returns the settings for t
func (c Config) Settings(t Tier) TierSettings {
	switch t {
	case Low:
		return c.Low
	case High:
		return c.High
	}
	return c.Medium
}

// ChangeFunc is notified after the active tier changed
type ChangeFunc func(from, to Tier, settings TierSettings)

// Stats summarises the frame-time history
type Stats struct {
	Tier       Tier    `json:"tier" msgpack:"tier"`
	Target     Tier    `json:"target" msgpack:"target"`
	Pending    bool    `json:"pending" msgpack:"pending"`
	PendingFor float64 `json:"pending_for" msgpack:"pending_for"`
	Samples    int     `json:"samples" msgpack:"samples"`
	AvgFrame   float64 `json:"avg_frame" msgpack:"avg_frame"`
	MinFrame   float64 `json:"min_frame" msgpack:"min_frame"`
	MaxFrame   float64 `json:"max_frame" msgpack:"max_frame"`
	Variance   float64 `json:"variance" msgpack:"variance"`
	FPS        float64 `json:"fps" msgpack:"fps"`
	Changes    uint64  `json:"changes" msgpack:"changes"`
	Forced     bool    `json:"forced" msgpack:"forced"`
}

// Controller tracks frame durations and debounces tier changes. It is
// updated once per frame from the simulation goroutine.
type Controller struct {
	cfg Config
	log *zap.Logger

	history []float64
	next    int
	count   int

	tier       Tier
	target     Tier
	pending    bool
	pendingFor float64
	forced     bool
	changes    uint64

	stats     Stats
	listeners []ChangeFunc
}

// New creates a Controller. Zero or out-of-range tunables fall back to DefaultConfig values.
func New(cfg Config, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = def.TargetFPS
	}
	if cfg.HistorySize < 1 {
		cfg.HistorySize = def.HistorySize
	}
	if cfg.WarmupSamples < 1 {
		cfg.WarmupSamples = def.WarmupSamples
	}
	if cfg.WarmupSamples > cfg.HistorySize {
		cfg.WarmupSamples = cfg.HistorySize
	}
	if cfg.Transition <= 0 {
		cfg.Transition = def.Transition
	}
	if cfg.DegradeRatio <= 0 {
		cfg.DegradeRatio = def.DegradeRatio
	}
	if cfg.UpgradeRatio <= cfg.DegradeRatio {
		cfg.UpgradeRatio = def.UpgradeRatio
	}
	if cfg.Low == (TierSettings{}) {
		cfg.Low = def.Low
	}
	if cfg.Medium == (TierSettings{}) {
		cfg.Medium = def.Medium
	}
	if cfg.High == (TierSettings{}) {
		cfg.High = def.High
	}
	initial, ok := ParseTier(cfg.Initial)
	if !ok && cfg.Initial != "" {
		log.Warn("unknown initial tier, using medium", zap.String("initial", cfg.Initial))
	}
	c := &Controller{
		cfg:     cfg,
		log:     log,
		history: make([]float64, cfg.HistorySize),
		tier:    initial,
		target:  initial,
	}
	c.stats.Tier = initial
	c.stats.Target = initial
	return c
}

// OnChange registers fn to run after every tier change
func (c *Controller) OnChange(fn ChangeFunc) {
	if fn != nil {
		c.listeners = append(c.listeners, fn)
	}
}

func (c *Controller) Tier() Tier             { return c.tier }
func (c *Controller) Settings() TierSettings { return c.cfg.Settings(c.tier) }
func (c *Controller) Config() Config         { return c.cfg }
func (c *Controller) Stats() Stats           { return c.stats }

// Update records one frame duration (seconds) and may flip the active tier.
// Non-positive or non-finite durations are ignored.
func (c *Controller) Update(dt float64) {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		c.log.Debug("ignoring frame duration", zap.Float64("dt", dt))
		return
	}
	c.history[c.next] = dt
	c.next = (c.next + 1) % len(c.history)
	if c.count < len(c.history) {
		c.count++
	}
	c.recompute()

	if c.forced || c.count < c.cfg.WarmupSamples {
		c.publish()
		return
	}

	target := c.evaluate(c.stats.FPS)
	switch {
	case target == c.tier:
		// Flipping back cancels any transition in flight.
		c.pending = false
		c.pendingFor = 0
	case !c.pending || target != c.target:
		c.pending = true
		c.pendingFor = dt
	default:
		c.pendingFor += dt
	}
	c.target = target

	if c.pending && c.pendingFor >= c.cfg.Transition {
		c.apply(target)
	}
	c.publish()
}

// Force pins the active tier, bypassing the debounce, until Auto is called
func (c *Controller) Force(t Tier) {
	if !t.Valid() {
		return
	}
	c.forced = true
	c.target = t
	if t != c.tier {
		c.apply(t)
	}
	c.publish()
}

// Auto resumes adaptive tier selection after Force
func (c *Controller) Auto() {
	c.forced = false
	c.pending = false
	c.pendingFor = 0
	c.publish()
}

func (c *Controller) evaluate(fps float64) Tier {
	switch {
	case fps < c.cfg.TargetFPS*c.cfg.DegradeRatio:
		return Low
	case fps > c.cfg.TargetFPS*c.cfg.UpgradeRatio:
		return High
	}
	return Medium
}

func (c *Controller) apply(t Tier) {
	from := c.tier
	c.tier = t
	c.pending = false
	c.pendingFor = 0
	c.changes++
	settings := c.cfg.Settings(t)
	c.log.Info("quality tier changed",
		zap.Stringer("from", from),
		zap.Stringer("to", t),
		zap.Float64("fps", c.stats.FPS),
		zap.Bool("forced", c.forced),
	)
	for _, fn := range c.listeners {
		fn(from, t, settings)
	}
}

func (c *Controller) recompute() {
	n := c.count
	minF, maxF, sum := math.MaxFloat64, 0.0, 0.0
	for i := 0; i < n; i++ {
		v := c.history[i]
		sum += v
		if v < minF {
			minF = v
		}
		if v > maxF {
			maxF = v
		}
	}
	avg := sum / float64(n)
	var variance float64
	for i := 0; i < n; i++ {
		d := c.history[i] - avg
		variance += d * d
	}
	variance /= float64(n)

	c.stats.Samples = n
	c.stats.AvgFrame = avg
	c.stats.MinFrame = minF
	c.stats.MaxFrame = maxF
	c.stats.Variance = variance
	c.stats.FPS = 1 / avg
}

func (c *Controller) publish() {
	c.stats.Tier = c.tier
	c.stats.Target = c.target
	c.stats.Pending = c.pending
	c.stats.PendingFor = c.pendingFor
	c.stats.Changes = c.changes
	c.stats.Forced = c.forced
}
