package game

import (
	"math"

	"spaceship-sim/internal/geom"
	"spaceship-sim/internal/object"
)

const (
	ShipMaxHP        = 100
	ShipAccel        = 600.0 // pixels/s²
	ShipMaxSpeed     = 350.0 // pixels/s
	ShipFriction     = 0.97  // velocity multiplier per tick
	ShipTurnSpeed    = 8.0   // radians/s max turn rate
	ShipFireCooldown = 0.15  // seconds between shots
	ShipRespawnTime  = 3.0   // seconds before respawn
	ShipAimTolerance = 0.15  // radians off-target the autopilot still fires at
	ShipScanRange    = 600.0 // autopilot range when no detail distance is set
)

// Controls is the per-tick steering input of a manually flown ship
type Controls struct {
	Turn   float64 // -1 (left) .. 1 (right)
	Thrust float64 // 0 .. 1
	Fire   bool
}

// Ship is the player craft. Without input it flies on autopilot: it holds
// position, turns toward the nearest threat and shoots.
type Ship struct {
	object.Base
	env   *Env
	arena arena

	Vel       geom.Vec2
	Rotation  float64
	HP        int
	MaxHP     int
	Autopilot bool
	Controls  Controls
	fireCD    float64

	spawnPos geom.Vec2
}

// NewShip creates a ship that (re)spawns at pos
func NewShip(env *Env, a arena, pos geom.Vec2, radius float64) *Ship {
	return &Ship{
		Base:      object.NewBase(pos, radius),
		env:       env,
		arena:     a,
		HP:        ShipMaxHP,
		MaxHP:     ShipMaxHP,
		Autopilot: true,
		spawnPos:  pos,
	}
}

func (s *Ship) Tag() object.Tag { return object.TagPlayer }

func (s *Ship) Initialize() {
	s.SetPos(s.spawnPos)
	s.Vel = geom.Vec2{}
	s.HP = s.MaxHP
	s.fireCD = 0
}

func (s *Ship) Dispose() { s.Vel = geom.Vec2{} }

// Update steers, moves and possibly fires (dt in seconds)
func (s *Ship) Update(dt float64) error {
	c := s.Controls
	if s.Autopilot {
		c = s.autopilot(dt)
	} else {
		s.Rotation = geom.NormalizeAngle(s.Rotation + geom.Clamp(c.Turn, -1, 1)*ShipTurnSpeed*dt)
	}

	accel := geom.Clamp(c.Thrust, 0, 1) * ShipAccel * dt
	s.Vel = s.Vel.Add(geom.FromAngle(s.Rotation, accel)).Scale(ShipFriction).ClampLen(ShipMaxSpeed)
	s.SetPos(s.Pos().Add(s.Vel.Scale(dt)).Wrap(s.env.Width, s.env.Height))

	if s.fireCD > 0 {
		s.fireCD -= dt
	}
	if c.Fire && s.fireCD <= 0 {
		s.arena.fire(s, s.Pos(), s.Rotation, s.Vel)
		s.fireCD = ShipFireCooldown
	}
	return nil
}

func (s *Ship) autopilot(dt float64) Controls {
	rng := s.env.DetailDistance
	if rng <= 0 {
		rng = ShipScanRange
	}
	target, ok := s.arena.nearest(s.Pos(), rng, object.TagDebris, object.TagHostile)
	if !ok {
		return Controls{}
	}
	want := target.Pos().Sub(s.Pos()).Angle()
	s.Rotation = geom.TurnToward(s.Rotation, want, ShipTurnSpeed*dt)
	off := math.Abs(geom.NormalizeAngle(want - s.Rotation))
	return Controls{Fire: off < ShipAimTolerance}
}

// TakeDamage reduces HP and reports whether the ship was destroyed
func (s *Ship) TakeDamage(dmg int) bool {
	if !s.Active() {
		return false
	}
	s.HP -= dmg
	if s.HP <= 0 {
		s.HP = 0
		s.SetActive(false)
		return true
	}
	return false
}

func (s *Ship) Render(r object.Renderer) error {
	r.Circle(s.Pos(), s.Radius(), colorShip)
	r.Line(s.Pos(), s.Pos().Add(geom.FromAngle(s.Rotation, s.Radius()*1.5)), colorShip)
	return nil
}
