package object

import (
	"image/color"

	"spaceship-sim/internal/geom"
)

// ID identifies a registered object. Zero means "not registered".
type ID uint64

// Tag is the capability/type tag collision handlers are keyed on
type Tag uint8

const (
	TagNone Tag = iota
	TagProjectile
	TagDebris
	TagPlayer
	TagHostile
	TagParticle
)

var tagNames = [...]string{
	TagNone:       "none",
	TagProjectile: "projectile",
	TagDebris:     "debris",
	TagPlayer:     "player",
	TagHostile:    "hostile",
	TagParticle:   "particle",
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}
	return "unknown"
}

// Renderer is the drawing surface objects render themselves onto.
// Implementations live with the host (ebiten window, recorded HUD frames).
type Renderer interface {
	Circle(center geom.Vec2, radius float64, c color.RGBA)
	Line(from, to geom.Vec2, c color.RGBA)
}

// Object is the capability contract every simulated object satisfies.
// The registry, the collision orchestrator and the pools only ever see this.
type Object interface {
	ID() ID
	SetID(id ID)
	Pos() geom.Vec2
	SetPos(p geom.Vec2)
	Active() bool
	SetActive(active bool)
	Radius() float64
	Tag() Tag

	Update(dt float64) error
	Render(r Renderer) error
	Initialize()
	Dispose()
}

// Recyclable is implemented by objects that may belong to a pool. Recycle
// hands the object back and reports whether a pool owns its lifecycle; when
// it does, nobody else disposes it. Pooled reports whether a pool is attached.
// A pool hands instances out active, so an inactive pooled object was
// already released or evicted.
type Recyclable interface {
	Recycle() bool
	Pooled() bool
}
