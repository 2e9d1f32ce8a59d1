package game

import (
	"image/color"

	"spaceship-sim/internal/geom"
	"spaceship-sim/internal/object"
)

const particleDrag = 0.92

// Particle is a pooled spark that fades out over its lifetime
type Particle struct {
	object.Base

	Vel     geom.Vec2
	Life    float64
	MaxLife float64
	Color   color.RGBA

	spawnPos  geom.Vec2
	spawnVel  geom.Vec2
	spawnLife float64
}

// NewParticle returns an inactive particle; the World's pool calls it
func NewParticle(radius float64) *Particle {
	return &Particle{Base: object.NewBase(geom.Vec2{}, radius), Color: colorParticle}
}

func (p *Particle) Tag() object.Tag { return object.TagParticle }

// Launch sets where the spark starts, how it moves and how long it lives
func (p *Particle) Launch(from, vel geom.Vec2, life float64) {
	p.spawnPos = from
	p.spawnVel = vel
	p.spawnLife = life
	p.Initialize()
}

func (p *Particle) Initialize() {
	p.SetPos(p.spawnPos)
	p.Vel = p.spawnVel
	p.Life = p.spawnLife
	p.MaxLife = p.spawnLife
}

func (p *Particle) Dispose() {
	p.Vel = geom.Vec2{}
	p.Life = 0
}

func (p *Particle) Update(dt float64) error {
	p.SetPos(p.Pos().Add(p.Vel.Scale(dt)))
	p.Vel = p.Vel.Scale(particleDrag)
	p.Life -= dt
	if p.Life <= 0 {
		p.SetActive(false)
	}
	return nil
}

// Bounce reflects the spark off a body centred at c
func (p *Particle) Bounce(c geom.Vec2) {
	n := p.Pos().Sub(c)
	l := n.Len()
	if l == 0 {
		p.Vel = p.Vel.Scale(-1)
		return
	}
	n = n.Scale(1 / l)
	p.Vel = p.Vel.Sub(n.Scale(2 * p.Vel.Dot(n)))
}

func (p *Particle) Render(r object.Renderer) error {
	c := p.Color
	if p.MaxLife > 0 {
		c.A = uint8(float64(c.A) * geom.Clamp(p.Life/p.MaxLife, 0, 1))
	}
	r.Circle(p.Pos(), p.Radius(), c)
	return nil
}
