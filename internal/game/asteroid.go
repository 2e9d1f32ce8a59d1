package game

import (
	"math"

	"spaceship-sim/internal/geom"
	"spaceship-sim/internal/object"
)

const (
	AsteroidMinSpeed  = 60.0
	AsteroidMaxSpeed  = 150.0
	AsteroidSpinMin   = 0.5
	AsteroidSpinMax   = 2.0
	AsteroidMinRadius = 12.0
)

// Asteroid flies in a straight line across the map and leaves it
type Asteroid struct {
	object.Base
	env *Env

	Vel      geom.Vec2
	Rotation float64
	Spin     float64

	spawnPos geom.Vec2
	spawnRot float64
}

// NewAsteroid creates an asteroid that starts at pos when registered
func NewAsteroid(env *Env, pos, vel geom.Vec2, radius, spin float64) *Asteroid {
	return &Asteroid{
		Base:     object.NewBase(pos, radius),
		env:      env,
		Vel:      vel,
		Spin:     spin,
		spawnPos: pos,
	}
}

// NewEdgeAsteroid spawns an asteroid just outside a random edge, aimed at the
// opposite half of the map
func NewEdgeAsteroid(env *Env, rng interface{ Float64() float64 }, radius float64) *Asteroid {
	w, h := env.Width, env.Height
	speed := AsteroidMinSpeed + rng.Float64()*(AsteroidMaxSpeed-AsteroidMinSpeed)
	spin := AsteroidSpinMin + rng.Float64()*(AsteroidSpinMax-AsteroidSpinMin)
	if rng.Float64() < 0.5 {
		spin = -spin
	}

	var pos, target geom.Vec2
	switch int(rng.Float64() * 4) {
	case 0: // left
		pos = geom.V(-radius, rng.Float64()*h)
		target = geom.V(w/2+rng.Float64()*w/2, rng.Float64()*h)
	case 1: // right
		pos = geom.V(w+radius, rng.Float64()*h)
		target = geom.V(rng.Float64()*w/2, rng.Float64()*h)
	case 2: // top
		pos = geom.V(rng.Float64()*w, -radius)
		target = geom.V(rng.Float64()*w, h/2+rng.Float64()*h/2)
	default: // bottom
		pos = geom.V(rng.Float64()*w, h+radius)
		target = geom.V(rng.Float64()*w, rng.Float64()*h/2)
	}
	vel := geom.FromAngle(target.Sub(pos).Angle(), speed)

	a := NewAsteroid(env, pos, vel, radius, spin)
	a.spawnRot = rng.Float64() * math.Pi * 2
	return a
}

func (a *Asteroid) Tag() object.Tag { return object.TagDebris }

func (a *Asteroid) Initialize() {
	a.SetPos(a.spawnPos)
	a.Rotation = a.spawnRot
}

func (a *Asteroid) Dispose() { a.Vel = geom.Vec2{} }

// Update moves the asteroid and retires it once it is fully off-map (no wrapping)
func (a *Asteroid) Update(dt float64) error {
	p := a.Pos().Add(a.Vel.Scale(dt))
	a.SetPos(p)
	a.Rotation += a.Spin * dt

	margin := a.Radius() * 2
	if p.X < -margin || p.X > a.env.Width+margin ||
		p.Y < -margin || p.Y > a.env.Height+margin {
		a.SetActive(false)
	}
	return nil
}

func (a *Asteroid) Render(r object.Renderer) error {
	r.Circle(a.Pos(), a.Radius(), colorAsteroid)
	r.Line(a.Pos(), a.Pos().Add(geom.FromAngle(a.Rotation, a.Radius())), colorAsteroid)
	return nil
}
