// Package game holds the gameplay objects that run on top of the simulation
// core and the World that wires them to pools and collision rules.
package game

import (
	"image/color"
	"math/rand"

	"spaceship-sim/internal/geom"
	"spaceship-sim/internal/object"
)

// Env is the shared, tier-dependent state every object reads while updating
// and rendering. The World owns it.
type Env struct {
	Width, Height  float64
	Trails         bool
	DetailDistance float64
}

// arena is what ships and hostiles need from the World while they update
type arena interface {
	fire(owner object.Object, from geom.Vec2, heading float64, inherit geom.Vec2)
	nearest(p geom.Vec2, within float64, tags ...object.Tag) (object.Object, bool)
	random() *rand.Rand
}

var (
	colorProjectile = color.RGBA{R: 255, G: 230, B: 90, A: 255}
	colorEnemyShot  = color.RGBA{R: 255, G: 90, B: 60, A: 255}
	colorTrail      = color.RGBA{R: 255, G: 230, B: 90, A: 90}
	colorAsteroid   = color.RGBA{R: 150, G: 140, B: 130, A: 255}
	colorShip       = color.RGBA{R: 80, G: 200, B: 255, A: 255}
	colorHostile    = color.RGBA{R: 230, G: 70, B: 90, A: 255}
	colorParticle   = color.RGBA{R: 255, G: 170, B: 60, A: 255}
)
