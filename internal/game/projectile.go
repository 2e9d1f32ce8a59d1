package game

import (
	"spaceship-sim/internal/geom"
	"spaceship-sim/internal/object"
)

const (
	ProjectileDamage  = 20
	ProjectileOffset  = 30.0 // spawn distance from the shooter's center
	ProjectileInherit = 0.3  // share of the shooter's velocity added to the shot
)

// Projectile is a pooled laser bolt. Launch stores its spawn state;
// Initialize reapplies it, so the pool and the registry may both call it.
type Projectile struct {
	object.Base
	env *Env

	Vel      geom.Vec2
	Life     float64
	Owner    object.ID
	Hostile  bool // fired by a hostile ship
	Damage   int
	lifetime float64

	spawnPos geom.Vec2
	spawnVel geom.Vec2
}

// NewProjectile returns an inactive projectile; the World's pool calls it
func NewProjectile(env *Env, radius, lifetime float64) *Projectile {
	return &Projectile{Base: object.NewBase(geom.Vec2{}, radius), env: env, lifetime: lifetime}
}

func (p *Projectile) Tag() object.Tag { return object.TagProjectile }

// Launch sets where and how the projectile starts
func (p *Projectile) Launch(from, vel geom.Vec2, owner object.ID, hostile bool) {
	p.spawnPos = from
	p.spawnVel = vel
	p.Owner = owner
	p.Hostile = hostile
	p.Initialize()
}

func (p *Projectile) Initialize() {
	p.SetPos(p.spawnPos)
	p.Vel = p.spawnVel
	p.Life = p.lifetime
	p.Damage = ProjectileDamage
}

func (p *Projectile) Dispose() {
	p.Vel = geom.Vec2{}
	p.Owner = 0
	p.Hostile = false
	p.Life = 0
}

// Update moves the projectile one tick
func (p *Projectile) Update(dt float64) error {
	p.SetPos(p.Pos().Add(p.Vel.Scale(dt)).Wrap(p.env.Width, p.env.Height))
	p.Life -= dt
	if p.Life <= 0 {
		p.SetActive(false)
	}
	return nil
}

func (p *Projectile) Render(r object.Renderer) error {
	c := colorProjectile
	if p.Hostile {
		c = colorEnemyShot
	}
	if p.env.Trails {
		tail := p.Pos().Sub(p.Vel.Scale(0.05))
		r.Line(tail, p.Pos(), colorTrail)
	}
	r.Circle(p.Pos(), p.Radius(), c)
	return nil
}
