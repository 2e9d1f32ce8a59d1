package game

import (
	"math"
	"math/rand"

	"go.uber.org/zap"

	"spaceship-sim/internal/collision"
	"spaceship-sim/internal/config"
	"spaceship-sim/internal/entity"
	"spaceship-sim/internal/geom"
	"spaceship-sim/internal/object"
	"spaceship-sim/internal/pool"
	"spaceship-sim/internal/quality"
	"spaceship-sim/internal/scenario"
)

const (
	CollisionDamage = 30
	burstParticles  = 8
	burstSpeed      = 140.0
	burstLife       = 0.6
	compactEvery    = 300 // ticks between low-load pool compactions
	compactBelow    = 10  // utilization (percent) under which pools are compacted
)

// Stats counts what the World currently holds
type Stats struct {
	Debris      int    `json:"debris" msgpack:"debris"`
	Hostiles    int    `json:"hostiles" msgpack:"hostiles"`
	Ships       int    `json:"ships" msgpack:"ships"`
	Projectiles int    `json:"projectiles" msgpack:"projectiles"`
	Particles   int    `json:"particles" msgpack:"particles"`
	Destroyed   uint64 `json:"destroyed" msgpack:"destroyed"`
	Respawning  int    `json:"respawning" msgpack:"respawning"`
}

type respawn struct {
	ship  *Ship
	timer float64
}

// World owns the gameplay objects, their pools and the collision rules.
// It lives on the simulation goroutine together with the registry.
type World struct {
	cfg config.GameConfig
	log *zap.Logger
	reg *entity.Registry
	env *Env
	rng *rand.Rand

	Projectiles *pool.Pool[*Projectile]
	Particles   *pool.Pool[*Particle]

	maxObjects    int
	debrisTarget  int
	hostileTarget int
	respawns      []respawn
	destroyed     uint64
	ticks         uint64
	compactTarget int
}

// NewWorld builds the pools and registers the collision rules on sys
func NewWorld(cfg *config.Config, reg *entity.Registry, sys *collision.System, log *zap.Logger) *World {
	if log == nil {
		log = zap.NewNop()
	}
	g := cfg.Game
	w := &World{
		cfg: g,
		log: log,
		reg: reg,
		env: &Env{
			Width:          g.Width,
			Height:         g.Height,
			Trails:         cfg.Quality.Settings(quality.Medium).Trails,
			DetailDistance: cfg.Quality.Settings(quality.Medium).DetailDistance,
		},
		rng:           rand.New(rand.NewSource(1)),
		maxObjects:    cfg.Quality.Settings(quality.Medium).MaxObjects,
		compactTarget: cfg.Pools.CompactTarget,
	}

	w.Projectiles = pool.New("projectiles", func() *Projectile {
		p := NewProjectile(w.env, g.ProjectileRadius, g.ProjectileLife)
		p.SetRecycler(func() { w.Projectiles.Release(p) })
		return p
	}, cfg.Pools.Projectiles.Initial, cfg.Pools.Projectiles.Max, log.Named("pool"))

	w.Particles = pool.New("particles", func() *Particle {
		p := NewParticle(g.ParticleRadius)
		p.SetRecycler(func() { w.Particles.Release(p) })
		return p
	}, cfg.Pools.Particles.Initial, cfg.Pools.Particles.Max, log.Named("pool"))

	w.Particles.OnEvict = func(p *Particle) {
		w.log.Debug("particle evicted", zap.Uint64("id", uint64(p.ID())))
	}

	w.rules(sys)
	return w
}

// Env exposes the shared object environment (renderers read the trails flag)
func (w *World) Env() *Env { return w.env }

// Registry returns the registry the World adds its objects to
func (w *World) Registry() *entity.Registry { return w.reg }

func (w *World) rules(sys *collision.System) {
	sys.On(object.TagProjectile, object.TagDebris, func(a, b object.Object) {
		a.SetActive(false)
		b.SetActive(false)
		w.destroyed++
		w.burst(b.Pos())
	})
	sys.On(object.TagProjectile, object.TagHostile, func(a, b object.Object) {
		p, h := a.(*Projectile), b.(*Hostile)
		if p.Owner == h.ID() || p.Hostile {
			return
		}
		p.SetActive(false)
		if h.TakeDamage(p.Damage) {
			w.destroyed++
			w.burst(h.Pos())
		}
	})
	sys.On(object.TagProjectile, object.TagPlayer, func(a, b object.Object) {
		p, s := a.(*Projectile), b.(*Ship)
		if p.Owner == s.ID() || !p.Hostile {
			return
		}
		p.SetActive(false)
		if s.TakeDamage(p.Damage) {
			w.shipDown(s)
		}
	})
	sys.On(object.TagPlayer, object.TagDebris, func(a, b object.Object) {
		s := a.(*Ship)
		b.SetActive(false)
		w.destroyed++
		w.burst(b.Pos())
		if s.TakeDamage(CollisionDamage) {
			w.shipDown(s)
		}
	})
	sys.On(object.TagHostile, object.TagDebris, func(a, b object.Object) {
		a.SetActive(false)
		w.destroyed++
		w.burst(a.Pos())
	})
	sys.OnThrottled(object.TagParticle, object.TagDebris, func(a, b object.Object) {
		a.(*Particle).Bounce(b.Pos())
	})
}

func (w *World) shipDown(s *Ship) {
	w.burst(s.Pos())
	w.respawns = append(w.respawns, respawn{ship: s, timer: ShipRespawnTime})
	w.log.Info("ship destroyed", zap.Uint64("id", uint64(s.ID())))
}

// burst emits sparks around p, skipped when no ship is close enough to see them
func (w *World) burst(p geom.Vec2) {
	if d := w.env.DetailDistance; d > 0 {
		if _, ok := w.nearest(p, d, object.TagPlayer); !ok {
			return
		}
	}
	for i := 0; i < burstParticles; i++ {
		angle := float64(i) / burstParticles * 2 * math.Pi
		speed := burstSpeed * (0.5 + w.rng.Float64())
		sp := w.Particles.Acquire()
		sp.Launch(p, geom.FromAngle(angle, speed), burstLife)
		w.reg.Add(sp)
	}
}

func (w *World) fire(owner object.Object, from geom.Vec2, heading float64, inherit geom.Vec2) {
	p := w.Projectiles.Acquire()
	vel := geom.FromAngle(heading, w.cfg.ProjectileSpeed).Add(inherit.Scale(ProjectileInherit))
	_, hostile := owner.(*Hostile)
	p.Launch(from.Add(geom.FromAngle(heading, ProjectileOffset)), vel, owner.ID(), hostile)
	w.reg.Add(p)
}

func (w *World) nearest(p geom.Vec2, within float64, tags ...object.Tag) (object.Object, bool) {
	var best object.Object
	bestD := math.MaxFloat64
	for _, o := range w.reg.InRadius(p, within) {
		if !hasTag(o.Tag(), tags) {
			continue
		}
		if d := o.Pos().DistSq(p); d < bestD {
			best, bestD = o, d
		}
	}
	return best, best != nil
}

func (w *World) random() *rand.Rand { return w.rng }

func hasTag(t object.Tag, tags []object.Tag) bool {
	for _, x := range tags {
		if x == t {
			return true
		}
	}
	return false
}

// Seed populates the world from a scenario and reseeds the random source
func (w *World) Seed(sc *scenario.Scenario) {
	w.rng.Seed(sc.Seed)
	if sc.Width > 0 && sc.Height > 0 {
		w.env.Width, w.env.Height = sc.Width, sc.Height
	}
	w.debrisTarget = sc.Asteroids
	w.hostileTarget = sc.Hostiles

	for _, g := range sc.Groups {
		for i := 0; i < g.Count; i++ {
			pos := geom.V(g.X, g.Y)
			if g.Spread > 0 {
				pos = pos.Add(geom.FromAngle(w.rng.Float64()*2*math.Pi, w.rng.Float64()*g.Spread))
			}
			vel := geom.V(g.VX, g.VY)
			switch g.Kind {
			case scenario.KindAsteroid:
				r := g.Radius
				if r <= 0 {
					r = AsteroidMinRadius + w.rng.Float64()*(w.cfg.AsteroidMaxRadius-AsteroidMinRadius)
				}
				w.reg.Add(NewAsteroid(w.env, pos, vel, r, 0))
			case scenario.KindHostile:
				w.reg.Add(NewHostile(w.env, w, pos, radiusOr(g.Radius, w.cfg.HostileRadius)))
			case scenario.KindShip:
				s := NewShip(w.env, w, pos, radiusOr(g.Radius, w.cfg.ShipRadius))
				s.Autopilot = !g.Manual
				w.reg.Add(s)
			}
		}
	}
	w.log.Info("scenario seeded",
		zap.String("name", sc.Name),
		zap.Int("groups", len(sc.Groups)),
		zap.Int64("seed", sc.Seed),
	)
}

func radiusOr(r, def float64) float64 {
	if r > 0 {
		return r
	}
	return def
}

// ApplyTier adopts the object ceilings and feature flags of a quality tier
func (w *World) ApplyTier(s quality.TierSettings) {
	w.maxObjects = s.MaxObjects
	w.env.Trails = s.Trails
	w.env.DetailDistance = s.DetailDistance
	if s.MaxParticles > 0 {
		w.Particles.SetMax(s.MaxParticles)
	}
}

// Tick runs the spawner and respawn timers. It is called once per frame
// before the registry updates, so everything it adds lands next drain.
func (w *World) Tick(dt float64) {
	w.ticks++

	kept := w.respawns[:0]
	for _, r := range w.respawns {
		r.timer -= dt
		if r.timer <= 0 {
			// The registry removed the ship when it went inactive; it comes back with a new id
			w.reg.Add(r.ship)
			continue
		}
		kept = append(kept, r)
	}
	w.respawns = kept

	st := w.Stats()
	live := st.Debris + st.Hostiles + st.Ships
	for n := st.Debris; n < w.debrisTarget && live < w.maxObjects; n++ {
		r := AsteroidMinRadius + w.rng.Float64()*(w.cfg.AsteroidMaxRadius-AsteroidMinRadius)
		w.reg.Add(NewEdgeAsteroid(w.env, w.rng, r))
		live++
	}
	for n := st.Hostiles; n < w.hostileTarget && live < w.maxObjects; n++ {
		w.reg.Add(NewHostile(w.env, w, w.edgePoint(), w.cfg.HostileRadius))
		live++
	}

	if w.ticks%compactEvery == 0 {
		for _, p := range []interface {
			Stats() pool.Stats
			Compact(int) int
		}{w.Projectiles, w.Particles} {
			if p.Stats().Utilization < compactBelow {
				p.Compact(w.compactTarget)
			}
		}
	}
}

func (w *World) edgePoint() geom.Vec2 {
	wd, ht := w.env.Width, w.env.Height
	switch int(w.rng.Float64() * 4) {
	case 0:
		return geom.V(0, w.rng.Float64()*ht)
	case 1:
		return geom.V(wd, w.rng.Float64()*ht)
	case 2:
		return geom.V(w.rng.Float64()*wd, 0)
	}
	return geom.V(w.rng.Float64()*wd, ht)
}

// Stats counts active objects by kind. Objects queued for the next drain are not included.
func (w *World) Stats() Stats {
	st := Stats{
		Projectiles: w.Projectiles.ActiveCount(),
		Particles:   w.Particles.ActiveCount(),
		Destroyed:   w.destroyed,
		Respawning:  len(w.respawns),
	}
	w.reg.Each(func(o object.Object) {
		switch o.Tag() {
		case object.TagDebris:
			st.Debris++
		case object.TagHostile:
			st.Hostiles++
		case object.TagPlayer:
			st.Ships++
		}
	})
	return st
}

// Close returns everything to the pools and disposes the pools
func (w *World) Close() {
	w.reg.Close()
	w.Projectiles.Close()
	w.Particles.Close()
}
