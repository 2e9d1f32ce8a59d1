package game

import (
	"spaceship-sim/internal/geom"
	"spaceship-sim/internal/object"
)

const (
	HostileMaxHP         = 60
	HostileSpeed         = 180.0
	HostileAccel         = 200.0
	HostileFriction      = 0.96
	HostileTurnSpeed     = 4.0
	HostileDetectRange   = 655.0
	HostileOptimalRange  = 450.0 // preferred combat distance
	HostileBurstSize     = 5
	HostileBurstFireRate = 0.15 // seconds between shots in a burst
	HostileBurstCooldown = 5.0  // seconds between bursts
	HostileWanderDrift   = 1.0  // max radians/s the wander angle changes
	HostileWanderTurn    = 1.5  // how fast the hostile turns toward its wander heading (rad/s)
)

// Hostile is an enemy ship that pursues the nearest player craft and fires bursts
type Hostile struct {
	object.Base
	env   *Env
	arena arena

	Vel         geom.Vec2
	Rotation    float64
	HP          int
	burstLeft   int
	fireCD      float64
	burstCD     float64
	wanderAngle float64

	spawnPos geom.Vec2
}

// NewHostile creates a hostile that spawns at pos facing the map center
func NewHostile(env *Env, a arena, pos geom.Vec2, radius float64) *Hostile {
	return &Hostile{
		Base:     object.NewBase(pos, radius),
		env:      env,
		arena:    a,
		HP:       HostileMaxHP,
		spawnPos: pos,
	}
}

func (h *Hostile) Tag() object.Tag { return object.TagHostile }

func (h *Hostile) Initialize() {
	h.SetPos(h.spawnPos)
	h.Vel = geom.Vec2{}
	h.HP = HostileMaxHP
	h.Rotation = geom.V(h.env.Width/2, h.env.Height/2).Sub(h.spawnPos).Angle()
	h.wanderAngle = h.Rotation
	h.burstLeft = 0
	h.fireCD = 0
	h.burstCD = 0
}

func (h *Hostile) Dispose() { h.Vel = geom.Vec2{} }

// Update steers toward the nearest ship in range, or wanders
func (h *Hostile) Update(dt float64) error {
	if h.fireCD > 0 {
		h.fireCD -= dt
	}
	if h.burstCD > 0 {
		h.burstCD -= dt
	}

	var move geom.Vec2
	if target, ok := h.arena.nearest(h.Pos(), HostileDetectRange, object.TagPlayer); ok {
		to := target.Pos().Sub(h.Pos())
		h.Rotation = geom.TurnToward(h.Rotation, to.Angle(), HostileTurnSpeed*dt)
		// +1 approaches, -1 retreats
		radial := geom.Clamp((to.Len()-HostileOptimalRange)/(HostileOptimalRange*0.5), -1, 1)
		move = geom.FromAngle(to.Angle(), radial)
		h.tryFire()
	} else {
		h.wanderAngle += (h.arena.random().Float64()*2 - 1) * HostileWanderDrift * dt
		h.Rotation = geom.TurnToward(h.Rotation, h.wanderAngle, HostileWanderTurn*dt)
		move = geom.FromAngle(h.Rotation, 1)
		h.burstLeft = 0
	}

	h.Vel = h.Vel.Add(move.Scale(HostileAccel * dt)).Scale(HostileFriction).ClampLen(HostileSpeed)
	h.SetPos(h.Pos().Add(h.Vel.Scale(dt)).Wrap(h.env.Width, h.env.Height))
	return nil
}

func (h *Hostile) tryFire() {
	if h.burstLeft == 0 && h.burstCD <= 0 {
		h.burstLeft = HostileBurstSize
	}
	if h.burstLeft > 0 && h.fireCD <= 0 {
		h.arena.fire(h, h.Pos(), h.Rotation, h.Vel)
		h.burstLeft--
		h.fireCD = HostileBurstFireRate
		if h.burstLeft == 0 {
			h.burstCD = HostileBurstCooldown
		}
	}
}

// TakeDamage reduces HP and reports whether the hostile was destroyed
func (h *Hostile) TakeDamage(dmg int) bool {
	if !h.Active() {
		return false
	}
	h.HP -= dmg
	if h.HP <= 0 {
		h.HP = 0
		h.SetActive(false)
		return true
	}
	return false
}

func (h *Hostile) Render(r object.Renderer) error {
	r.Circle(h.Pos(), h.Radius(), colorHostile)
	r.Line(h.Pos(), h.Pos().Add(geom.FromAngle(h.Rotation, h.Radius()*1.5)), colorHostile)
	return nil
}
