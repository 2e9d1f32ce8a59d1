package game

import (
	"math"
	"math/rand"
	"testing"

	"spaceship-sim/internal/geom"
	"spaceship-sim/internal/object"
	"spaceship-sim/internal/pool"
)

func testEnv() *Env { return &Env{Width: 1000, Height: 800, DetailDistance: 600} }

// fakeArena records shots and answers nearest with a fixed object
type fakeArena struct {
	shots  []geom.Vec2
	target object.Object
	rng    *rand.Rand
}

func (f *fakeArena) fire(owner object.Object, from geom.Vec2, heading float64, inherit geom.Vec2) {
	f.shots = append(f.shots, from)
}

func (f *fakeArena) nearest(p geom.Vec2, within float64, tags ...object.Tag) (object.Object, bool) {
	if f.target == nil || f.target.Pos().Dist(p) > within || !hasTag(f.target.Tag(), tags) {
		return nil, false
	}
	return f.target, true
}

func (f *fakeArena) random() *rand.Rand { return f.rng }

func TestProjectileUpdate(t *testing.T) {
	p := NewProjectile(testEnv(), 4, 2)
	p.Launch(geom.V(100, 100), geom.V(600, 0), 1, false)
	p.SetActive(true)

	dt := 1.0 / 60.0
	p.Update(dt)
	if math.Abs(p.Pos().X-(100+600*dt)) > 0.01 {
		t.Errorf("expected X ~%f, got %f", 100+600*dt, p.Pos().X)
	}
	if p.Life >= 2 {
		t.Error("life should decrease")
	}
	if !p.Active() {
		t.Error("projectile should still be active")
	}
}

func TestProjectileExpiry(t *testing.T) {
	p := NewProjectile(testEnv(), 4, 0.01)
	p.Launch(geom.V(100, 100), geom.Vec2{}, 1, false)
	p.SetActive(true)

	p.Update(0.02)
	if p.Active() {
		t.Error("projectile should be inactive after its lifetime expires")
	}
}

func TestProjectileWorldWrap(t *testing.T) {
	env := testEnv()
	p := NewProjectile(env, 4, 2)
	p.Launch(geom.V(env.Width-1, env.Height-1), geom.V(100, 100), 1, false)
	p.SetActive(true)

	p.Update(0.1)
	if pos := p.Pos(); pos.X > 20 || pos.Y > 20 {
		t.Errorf("projectile should wrap to the opposite corner, got %v", pos)
	}
}

func TestPooledProjectileResets(t *testing.T) {
	env := testEnv()
	pl := pool.New("projectiles", func() *Projectile { return NewProjectile(env, 4, 2) }, 1, 1, nil)

	p := pl.Acquire()
	p.Launch(geom.V(10, 10), geom.V(600, 0), 7, true)
	p.Update(1)
	if p.Life != 1 {
		t.Fatalf("expected 1s of life left, got %f", p.Life)
	}
	pl.Release(p)
	if p.Owner != 0 || p.Hostile || p.Active() {
		t.Errorf("release should clear the shot: %+v", p)
	}

	q := pl.Acquire()
	if q != p {
		t.Fatal("expected the released instance back")
	}
	if q.Life != 2 || !q.Active() {
		t.Errorf("reacquired projectile should be fresh, life %f active %v", q.Life, q.Active())
	}
}

func TestProjectileTrails(t *testing.T) {
	env := testEnv()
	p := NewProjectile(env, 4, 2)
	p.Launch(geom.V(100, 100), geom.V(600, 0), 1, false)

	var rec countingRenderer
	p.Render(&rec)
	if rec.lines != 0 || rec.circles != 1 {
		t.Errorf("without trails expected 1 circle, got %+v", rec)
	}
	env.Trails = true
	p.Render(&rec)
	if rec.lines != 1 || rec.circles != 2 {
		t.Errorf("with trails expected a line too, got %+v", rec)
	}
}

func TestAsteroidStraightLine(t *testing.T) {
	a := NewAsteroid(testEnv(), geom.V(500, 400), geom.V(60, -30), 20, 0)
	a.SetActive(true)

	a.Update(1.0)
	if d := a.Pos().Dist(geom.V(560, 370)); d > 0.01 {
		t.Errorf("asteroid should move in a straight line, got %v", a.Pos())
	}
	if !a.Active() {
		t.Error("asteroid should still be active on the map")
	}
}

func TestAsteroidDespawnsOffMap(t *testing.T) {
	env := testEnv()
	a := NewAsteroid(env, geom.V(env.Width+60, env.Height/2), geom.V(100, 0), 20, 0)
	a.SetActive(true)

	a.Update(1.0)
	if a.Active() {
		t.Error("asteroid should be inactive when off-map")
	}
}

func TestAsteroidSpins(t *testing.T) {
	a := NewAsteroid(testEnv(), geom.V(500, 400), geom.Vec2{}, 20, 1)
	a.SetActive(true)
	start := a.Rotation

	a.Update(1.0)
	if a.Rotation == start {
		t.Error("asteroid rotation should change when spinning")
	}
}

func TestEdgeAsteroidStartsOffMapHeadingIn(t *testing.T) {
	env := testEnv()
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		a := NewEdgeAsteroid(env, rng, 30)
		a.Initialize()
		p := a.Pos()
		inside := p.X >= 0 && p.X <= env.Width && p.Y >= 0 && p.Y <= env.Height
		if inside {
			t.Fatalf("edge asteroid spawned inside the map at %v", p)
		}
		inward := (p.X < 0 && a.Vel.X > 0) || (p.X > env.Width && a.Vel.X < 0) ||
			(p.Y < 0 && a.Vel.Y > 0) || (p.Y > env.Height && a.Vel.Y < 0)
		if !inward {
			t.Errorf("edge asteroid at %v should head into the map, vel %v", p, a.Vel)
		}
		if s := a.Vel.Len(); s < AsteroidMinSpeed-0.01 || s > AsteroidMaxSpeed+0.01 {
			t.Errorf("speed %f out of range", s)
		}
	}
}

func TestShipManualControls(t *testing.T) {
	arena := &fakeArena{}
	s := NewShip(testEnv(), arena, geom.V(500, 400), 20)
	s.Initialize()
	s.SetActive(true)
	s.Autopilot = false
	s.Controls = Controls{Thrust: 1, Fire: true}

	s.Update(1.0 / 60)
	if s.Vel.X <= 0 || s.Pos().X <= 500 {
		t.Errorf("thrust should push the ship along its heading, vel %v", s.Vel)
	}
	if len(arena.shots) != 1 {
		t.Fatalf("expected one shot, got %d", len(arena.shots))
	}
	s.Update(1.0 / 60)
	if len(arena.shots) != 1 {
		t.Error("fire cooldown should prevent a second shot")
	}
}

func TestShipSpeedCap(t *testing.T) {
	s := NewShip(testEnv(), &fakeArena{}, geom.V(500, 400), 20)
	s.Initialize()
	s.Autopilot = false
	s.Controls = Controls{Thrust: 1}
	for i := 0; i < 600; i++ {
		s.Update(1.0 / 60)
	}
	if s.Vel.Len() > ShipMaxSpeed+0.001 {
		t.Errorf("speed %f exceeds the cap", s.Vel.Len())
	}
}

func TestShipAutopilotAimsAndFires(t *testing.T) {
	target := NewAsteroid(testEnv(), geom.V(700, 400), geom.Vec2{}, 20, 0)
	target.SetActive(true)
	arena := &fakeArena{target: target}
	s := NewShip(testEnv(), arena, geom.V(500, 400), 20)
	s.Initialize()
	s.Rotation = math.Pi / 2

	for i := 0; i < 60 && len(arena.shots) == 0; i++ {
		s.Update(1.0 / 60)
	}
	if len(arena.shots) == 0 {
		t.Fatal("autopilot should turn toward the asteroid and fire")
	}
	if math.Abs(geom.NormalizeAngle(s.Rotation)) > ShipAimTolerance {
		t.Errorf("ship should face the target, rotation %f", s.Rotation)
	}
}

func TestShipTakeDamage(t *testing.T) {
	s := NewShip(testEnv(), &fakeArena{}, geom.V(500, 400), 20)
	s.Initialize()
	s.SetActive(true)

	if s.TakeDamage(40) {
		t.Error("ship should survive 40 damage")
	}
	if !s.TakeDamage(70) || s.Active() || s.HP != 0 {
		t.Errorf("ship should be destroyed, hp %d active %v", s.HP, s.Active())
	}
	if s.TakeDamage(10) {
		t.Error("a destroyed ship cannot be destroyed again")
	}

	s.SetPos(geom.V(1, 1))
	s.Initialize()
	if s.HP != s.MaxHP || s.Pos() != geom.V(500, 400) {
		t.Errorf("Initialize should restore the spawn state, hp %d pos %v", s.HP, s.Pos())
	}
}

func TestHostilePursuesAndFiresBursts(t *testing.T) {
	env := testEnv()
	ship := NewShip(env, &fakeArena{}, geom.V(700, 400), 20)
	ship.SetActive(true)
	arena := &fakeArena{target: ship, rng: rand.New(rand.NewSource(1))}
	h := NewHostile(env, arena, geom.V(100, 400), 18)
	h.Initialize()
	h.SetActive(true)

	for i := 0; i < 120; i++ {
		h.Update(1.0 / 60)
	}
	if len(arena.shots) != HostileBurstSize {
		t.Errorf("expected one burst of %d shots, got %d", HostileBurstSize, len(arena.shots))
	}
	if h.Pos().X <= 100 {
		t.Errorf("hostile beyond its optimal range should close in, at %v", h.Pos())
	}
}

func TestHostileWandersWithoutTarget(t *testing.T) {
	arena := &fakeArena{rng: rand.New(rand.NewSource(1))}
	h := NewHostile(testEnv(), arena, geom.V(100, 400), 18)
	h.Initialize()
	h.SetActive(true)

	for i := 0; i < 60; i++ {
		h.Update(1.0 / 60)
	}
	if len(arena.shots) != 0 {
		t.Error("hostile without a target should not fire")
	}
	if h.Vel.Len() == 0 {
		t.Error("hostile should drift while wandering")
	}
}

func TestParticleFadesAndExpires(t *testing.T) {
	p := NewParticle(2)
	p.Launch(geom.V(0, 0), geom.V(100, 0), 0.5)
	p.SetActive(true)

	p.Update(0.25)
	var rec countingRenderer
	p.Render(&rec)
	if rec.lastAlpha >= 255 || rec.lastAlpha == 0 {
		t.Errorf("half-spent spark should be partly transparent, alpha %d", rec.lastAlpha)
	}
	if p.Vel.X >= 100 {
		t.Error("drag should slow the spark")
	}
	p.Update(0.3)
	if p.Active() {
		t.Error("spark should expire")
	}
}

func TestParticleBounce(t *testing.T) {
	p := NewParticle(2)
	p.Launch(geom.V(10, 0), geom.V(-5, 0), 1)
	p.Bounce(geom.V(0, 0))
	if p.Vel.X != 5 {
		t.Errorf("expected the velocity to reflect, got %v", p.Vel)
	}
}
