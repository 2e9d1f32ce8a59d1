package object

import "spaceship-sim/internal/geom"

// Base carries the shared identity/position/activity state. Variants embed it
// and add Tag, Update, Render, Initialize and Dispose.
type Base struct {
	id      ID
	pos     geom.Vec2
	active  bool
	radius  float64
	recycle func()
}

// NewBase returns a Base at p with collision radius r
func NewBase(p geom.Vec2, r float64) Base {
	return Base{pos: p, radius: r}
}

func (b *Base) ID() ID                { return b.id }
func (b *Base) SetID(id ID)           { b.id = id }
func (b *Base) Pos() geom.Vec2        { return b.pos }
func (b *Base) SetPos(p geom.Vec2)    { b.pos = p }
func (b *Base) Active() bool          { return b.active }
func (b *Base) SetActive(active bool) { b.active = active }
func (b *Base) Radius() float64       { return b.radius }
func (b *Base) SetRadius(r float64)   { b.radius = r }
func (b *Base) SetRecycler(fn func()) { b.recycle = fn }
func (b *Base) Pooled() bool          { return b.recycle != nil }

// Recycle returns the object to its pool if one was attached
func (b *Base) Recycle() bool {
	if b.recycle == nil {
		return false
	}
	b.recycle()
	return true
}
