// Package entity owns the lifecycle of simulated objects: id allocation,
// deferred add/remove, failure isolation and final disposal.
package entity

import (
	"fmt"

	"go.uber.org/zap"

	"spaceship-sim/internal/collision"
	"spaceship-sim/internal/geom"
	"spaceship-sim/internal/object"
)

// Stats is a snapshot of the registry counters
type Stats struct {
	Live           int       `json:"live" msgpack:"live"`
	PendingAdds    int       `json:"pending_adds" msgpack:"pending_adds"`
	PendingRemoves int       `json:"pending_removes" msgpack:"pending_removes"`
	Failures       uint64    `json:"failures" msgpack:"failures"`
	NextID         object.ID `json:"next_id" msgpack:"next_id"`
}

// Registry tracks every live object. Adds and removes requested during a
// frame take effect at the start of the next Update, so iteration never
// observes a mutation in progress. Accessed only from the simulation goroutine.
type Registry struct {
	log        *zap.Logger
	collisions *collision.System

	nextID object.ID
	live   map[object.ID]object.Object
	order  []object.Object // registration order, drives iteration

	pendingAdd    []object.Object
	pendingRemove []object.ID
	scheduled     map[object.ID]struct{}

	snapshot   []object.Object
	failures   uint64
	indexDirty bool
}

// New creates a Registry. collisions backs DetectCollisions and InRadius.
func New(collisions *collision.System, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	if collisions == nil {
		collisions = collision.New(0, log)
	}
	return &Registry{
		log:        log,
		collisions: collisions,
		nextID:     1, // 0 is reserved for "not registered"
		live:       make(map[object.ID]object.Object),
		scheduled:  make(map[object.ID]struct{}),
		indexDirty: true,
	}
}

// Add assigns obj an id right away and queues it for the next Update.
// Adding nil returns 0; adding an object that is already registered or
// queued returns its existing id. Re-adding a registered object whose
// removal is still pending cancels the removal.
func (r *Registry) Add(obj object.Object) object.ID {
	if obj == nil {
		return 0
	}
	if id := obj.ID(); id != 0 {
		if r.live[id] == obj {
			r.unschedule(id)
			return id
		}
		if r.queued(obj) {
			return id
		}
	}
	id := r.nextID
	r.nextID++
	obj.SetID(id)
	r.pendingAdd = append(r.pendingAdd, obj)
	return id
}

func (r *Registry) queued(obj object.Object) bool {
	for _, o := range r.pendingAdd {
		if o == obj {
			return true
		}
	}
	return false
}

func (r *Registry) unschedule(id object.ID) {
	if _, ok := r.scheduled[id]; !ok {
		return
	}
	delete(r.scheduled, id)
	kept := r.pendingRemove[:0]
	for _, x := range r.pendingRemove {
		if x != id {
			kept = append(kept, x)
		}
	}
	r.pendingRemove = kept
}

// Remove queues id for removal at the next Update. Zero and repeated ids are ignored.
func (r *Registry) Remove(id object.ID) {
	if id == 0 {
		return
	}
	if _, ok := r.scheduled[id]; ok {
		return
	}
	r.scheduled[id] = struct{}{}
	r.pendingRemove = append(r.pendingRemove, id)
}

// Update drains the queues and steps every active object once. An object
// whose Update fails or panics is logged and removed; so is any object that
// went inactive since the previous frame, including in collision handlers.
func (r *Registry) Update(dt float64) {
	for _, o := range r.order {
		if !o.Active() {
			r.Remove(o.ID())
		}
	}
	r.drain()

	r.snapshot = append(r.snapshot[:0], r.order...)
	for _, o := range r.snapshot {
		if !o.Active() {
			continue
		}
		if err := r.safeUpdate(o, dt); err != nil {
			r.fail("object update failed", o, err)
		}
	}
	for _, o := range r.snapshot {
		if !o.Active() {
			r.Remove(o.ID())
		}
	}
	r.indexDirty = true
}

func (r *Registry) drain() {
	if len(r.pendingAdd) == 0 && len(r.pendingRemove) == 0 {
		return
	}
	for i, o := range r.pendingAdd {
		r.pendingAdd[i] = nil
		if rc, ok := o.(object.Recyclable); ok && rc.Pooled() && !o.Active() {
			// Its pool took it back while it was queued; the pool already disposed it
			r.log.Debug("dropping reclaimed object", zap.Uint64("id", uint64(o.ID())))
			continue
		}
		r.live[o.ID()] = o
		r.order = append(r.order, o)
		o.Initialize()
		o.SetActive(true)
	}
	r.pendingAdd = r.pendingAdd[:0]

	if len(r.pendingRemove) > 0 {
		for _, id := range r.pendingRemove {
			o, ok := r.live[id]
			if !ok {
				continue
			}
			delete(r.live, id)
			r.release(o)
		}
		r.pendingRemove = r.pendingRemove[:0]
		clear(r.scheduled)

		kept := r.order[:0]
		for _, o := range r.order {
			if r.live[o.ID()] == o {
				kept = append(kept, o)
			}
		}
		for i := len(kept); i < len(r.order); i++ {
			r.order[i] = nil
		}
		r.order = kept
	}
	r.indexDirty = true
}

// release hands a pooled object back to its pool, otherwise disposes it
func (r *Registry) release(o object.Object) {
	if rc, ok := o.(object.Recyclable); ok && rc.Recycle() {
		return
	}
	o.SetActive(false)
	o.Dispose()
}

func (r *Registry) fail(msg string, o object.Object, err error) {
	r.failures++
	r.log.Error(msg,
		zap.Uint64("id", uint64(o.ID())),
		zap.Stringer("tag", o.Tag()),
		zap.Error(err),
	)
	o.SetActive(false)
	r.Remove(o.ID())
}

func (r *Registry) safeUpdate(o object.Object, dt float64) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return o.Update(dt)
}

func (r *Registry) safeRender(o object.Object, rn object.Renderer) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return o.Render(rn)
}

// DetectCollisions runs the collision orchestrator over the live set
func (r *Registry) DetectCollisions() []collision.Pair {
	pairs := r.collisions.ProcessFrame(r.order)
	r.indexDirty = false
	return pairs
}

// Render draws every active object. Failing objects are removed like in Update.
func (r *Registry) Render(rn object.Renderer) {
	if rn == nil {
		return
	}
	r.snapshot = append(r.snapshot[:0], r.order...)
	for _, o := range r.snapshot {
		if !o.Active() {
			continue
		}
		if err := r.safeRender(o, rn); err != nil {
			r.fail("object render failed", o, err)
		}
	}
}

// Get returns the live object with the given id
func (r *Registry) Get(id object.ID) (object.Object, bool) {
	o, ok := r.live[id]
	return o, ok
}

// ByTag returns the active objects carrying tag, in registration order
func (r *Registry) ByTag(tag object.Tag) []object.Object {
	var out []object.Object
	for _, o := range r.order {
		if o.Active() && o.Tag() == tag {
			out = append(out, o)
		}
	}
	return out
}

// OfType returns the active objects whose dynamic type is T
func OfType[T object.Object](r *Registry) []T {
	var out []T
	for _, o := range r.order {
		if !o.Active() {
			continue
		}
		if t, ok := o.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// Each calls fn for every active object in registration order
func (r *Registry) Each(fn func(object.Object)) {
	for _, o := range r.order {
		if o.Active() {
			fn(o)
		}
	}
}

// InRadius returns active objects whose collision circle overlaps the disc
// around p. The index is rebuilt first if anything moved since the last build.
func (r *Registry) InRadius(p geom.Vec2, radius float64) []object.Object {
	if radius < 0 {
		radius = 0
	}
	if r.indexDirty {
		r.collisions.Rebuild(r.order)
		r.indexDirty = false
	}
	var out []object.Object
	for _, o := range r.collisions.Query(p, radius+r.collisions.MaxRadius()) {
		if !o.Active() {
			continue
		}
		q := o.Pos()
		if collision.CheckCollision(p.X, p.Y, radius, q.X, q.Y, o.Radius()) {
			out = append(out, o)
		}
	}
	return out
}

// Len returns the number of live (drained) objects
func (r *Registry) Len() int { return len(r.live) }

// Stats returns the current counters
func (r *Registry) Stats() Stats {
	return Stats{
		Live:           len(r.live),
		PendingAdds:    len(r.pendingAdd),
		PendingRemoves: len(r.pendingRemove),
		Failures:       r.failures,
		NextID:         r.nextID,
	}
}

// Close releases every live and queued object. The registry is empty afterwards.
func (r *Registry) Close() {
	for _, o := range r.order {
		r.release(o)
	}
	for _, o := range r.pendingAdd {
		r.release(o)
	}
	r.order = nil
	r.pendingAdd = nil
	r.pendingRemove = nil
	clear(r.live)
	clear(r.scheduled)
	r.snapshot = r.snapshot[:0]
	r.log.Debug("registry closed", zap.Uint64("next_id", uint64(r.nextID)))
}
