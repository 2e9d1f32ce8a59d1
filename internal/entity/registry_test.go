package entity

import (
	"image/color"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"spaceship-sim/internal/collision"
	"spaceship-sim/internal/geom"
	"spaceship-sim/internal/object"
	"spaceship-sim/internal/object/objecttest"
	"spaceship-sim/internal/pool"
)

func newRegistry(log *zap.Logger) *Registry {
	return New(collision.New(20, log), log)
}

func TestAddAssignsIncreasingIDs(t *testing.T) {
	r := newRegistry(nil)
	a := objecttest.New(object.TagDebris, 0, 0, 5)
	b := objecttest.New(object.TagDebris, 0, 0, 5)

	ida, idb := r.Add(a), r.Add(b)
	if ida != 1 || idb != 2 {
		t.Errorf("expected ids 1 and 2, got %d and %d", ida, idb)
	}
	if a.ID() != ida {
		t.Error("object should carry its id immediately")
	}
	if again := r.Add(a); again != ida {
		t.Errorf("re-adding a queued object should keep its id, got %d", again)
	}
	if r.Add(nil) != 0 {
		t.Error("adding nil should return 0")
	}
}

func TestAddIsDeferred(t *testing.T) {
	r := newRegistry(nil)
	s := objecttest.New(object.TagDebris, 0, 0, 5)
	id := r.Add(s)

	if _, ok := r.Get(id); ok {
		t.Error("object should not be live before the next Update")
	}
	if st := r.Stats(); st.PendingAdds != 1 || st.Live != 0 {
		t.Errorf("unexpected stats: %+v", st)
	}

	r.Update(0.016)
	if _, ok := r.Get(id); !ok {
		t.Fatal("object should be live after Update")
	}
	if !s.Active() || s.Inits != 1 || s.Updates != 1 {
		t.Errorf("expected active, initialized and updated once: active=%v inits=%d updates=%d", s.Active(), s.Inits, s.Updates)
	}
}

func TestRemoveDuringIteration(t *testing.T) {
	r := newRegistry(nil)
	victim := objecttest.New(object.TagDebris, 0, 0, 5)
	killer := objecttest.New(object.TagPlayer, 0, 0, 5)
	spawned := objecttest.New(object.TagParticle, 0, 0, 1)

	r.Add(killer)
	r.Add(victim)
	killer.OnUpdate = func(s *objecttest.Stub) {
		if s.Updates == 1 {
			r.Remove(victim.ID())
			r.Add(spawned)
		}
	}

	r.Update(0.016)
	// Mutations requested mid-frame are not visible until the next drain
	if victim.Updates != 1 {
		t.Errorf("victim should still be stepped this frame, got %d updates", victim.Updates)
	}
	if spawned.Updates != 0 {
		t.Error("object added mid-frame should not be stepped in the same frame")
	}

	r.Update(0.016)
	if _, ok := r.Get(victim.ID()); ok {
		t.Error("victim should be gone after the next drain")
	}
	if victim.Active() || victim.Disposals != 1 {
		t.Errorf("victim should be deactivated and disposed once, got %d", victim.Disposals)
	}
	if spawned.Updates != 1 {
		t.Errorf("spawned object should be stepped once, got %d", spawned.Updates)
	}
}

func TestRemoveIgnoresInvalidIDs(t *testing.T) {
	r := newRegistry(nil)
	r.Remove(0)
	r.Remove(42)
	r.Remove(42)
	if r.Stats().PendingRemoves != 1 {
		t.Errorf("repeated ids should be queued once, got %d", r.Stats().PendingRemoves)
	}
	r.Update(0.016)
	if r.Stats().PendingRemoves != 0 {
		t.Error("drain should clear the queue")
	}
}

func TestUpdateFailureIsIsolated(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := newRegistry(zap.New(core))

	good := objecttest.New(object.TagDebris, 0, 0, 5)
	bad := objecttest.New(object.TagDebris, 50, 0, 5)
	bad.FailUpdate = true
	panicky := objecttest.New(object.TagDebris, 100, 0, 5)
	panicky.PanicUpdate = true
	after := objecttest.New(object.TagDebris, 150, 0, 5)

	for _, s := range []*objecttest.Stub{good, bad, panicky, after} {
		r.Add(s)
	}
	r.Update(0.016)

	if good.Updates != 1 || after.Updates != 1 {
		t.Error("healthy objects should keep updating")
	}
	if bad.Active() || panicky.Active() {
		t.Error("failing objects should be deactivated")
	}
	if r.Stats().Failures != 2 {
		t.Errorf("expected 2 failures, got %d", r.Stats().Failures)
	}
	if logs.FilterMessage("object update failed").Len() != 2 {
		t.Errorf("expected 2 error logs, got %d", logs.Len())
	}

	r.Update(0.016)
	if r.Len() != 2 {
		t.Errorf("failing objects should be removed, %d live", r.Len())
	}
	if good.Updates != 2 {
		t.Errorf("good object should still update, got %d", good.Updates)
	}
}

func TestInactiveObjectsAreSwept(t *testing.T) {
	r := newRegistry(nil)
	s := objecttest.New(object.TagProjectile, 0, 0, 2)
	s.DieAfter = 3
	r.Add(s)

	for i := 0; i < 3; i++ {
		r.Update(0.016)
	}
	if s.Active() {
		t.Fatal("stub should have deactivated itself")
	}
	if r.Stats().PendingRemoves != 1 {
		t.Errorf("expected the dead object to be scheduled, got %d", r.Stats().PendingRemoves)
	}
	r.Update(0.016)
	if r.Len() != 0 || s.Disposals != 1 {
		t.Errorf("dead object should be disposed and gone: live=%d disposals=%d", r.Len(), s.Disposals)
	}
	if s.Updates != 3 {
		t.Errorf("inactive object should not be stepped, got %d updates", s.Updates)
	}
}

func TestHandlerDeactivationRemovedNextFrame(t *testing.T) {
	sys := collision.New(20, nil)
	r := New(sys, nil)
	a := objecttest.New(object.TagProjectile, 0, 0, 2)
	b := objecttest.New(object.TagDebris, 1, 0, 5)
	r.Add(a)
	r.Add(b)
	sys.On(object.TagProjectile, object.TagDebris, func(x, y object.Object) { x.SetActive(false) })

	r.Update(0.016)
	if pairs := r.DetectCollisions(); len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d", len(pairs))
	}
	r.Update(0.016)
	if _, ok := r.Get(a.ID()); ok {
		t.Error("object deactivated by a handler should be removed on the next Update")
	}
	if a.Updates != 1 {
		t.Errorf("deactivated object should not be stepped again, got %d", a.Updates)
	}
}

type recycled struct {
	*objecttest.Stub
	returned int
}

func (r *recycled) Recycle() bool {
	r.returned++
	r.SetActive(false)
	return true
}

func TestPooledObjectsAreRecycled(t *testing.T) {
	r := newRegistry(nil)
	p := &recycled{Stub: objecttest.New(object.TagProjectile, 0, 0, 2)}
	r.Add(p)
	r.Update(0.016)
	r.Remove(p.ID())
	r.Update(0.016)

	if p.returned != 1 {
		t.Errorf("expected the object to go back to its pool, got %d", p.returned)
	}
	if p.Disposals != 0 {
		t.Error("registry should leave disposal of pooled objects to the pool")
	}
}

func stubPool(max int) *pool.Pool[*objecttest.Stub] {
	var p *pool.Pool[*objecttest.Stub]
	p = pool.New("stubs", func() *objecttest.Stub {
		s := objecttest.New(object.TagProjectile, 0, 0, 2)
		s.SetRecycler(func() { p.Release(s) })
		return s
	}, 0, max, nil)
	return p
}

func TestEvictedWhileQueuedStaysDead(t *testing.T) {
	r := newRegistry(nil)
	p := stubPool(2)

	a := p.Acquire()
	r.Add(a)
	b, c := p.Acquire(), p.Acquire() // a is evicted here
	r.Add(b)
	r.Add(c)
	if a.Active() || p.Contains(a) {
		t.Fatal("a should have been evicted")
	}

	r.Update(0.016)
	if a.Active() {
		t.Error("an evicted instance must not be reactivated by the registry")
	}
	if _, ok := r.Get(a.ID()); ok {
		t.Error("an evicted instance must not become live")
	}
	if a.Updates != 0 {
		t.Errorf("evicted instance was stepped %d times", a.Updates)
	}
	if r.Len() != 2 || p.ActiveCount() != 2 {
		t.Errorf("expected 2 live and 2 pooled, got %d and %d", r.Len(), p.ActiveCount())
	}
	if a.Disposals != 1 {
		t.Errorf("expected the pool to dispose a once, got %d", a.Disposals)
	}
}

func TestEvictionDuringDispatchSkipsLaterPairs(t *testing.T) {
	sys := collision.New(20, nil)
	r := New(sys, nil)
	p := stubPool(1)

	shot := p.Acquire()
	r.Add(shot)
	// Both rocks touch the shot but not each other
	r.Add(objecttest.New(object.TagDebris, 4, 0, 3))
	r.Add(objecttest.New(object.TagDebris, -4, 0, 3))
	r.Update(0.016)

	hits := 0
	sys.On(object.TagProjectile, object.TagDebris, func(x, y object.Object) {
		hits++
		// Acquiring at capacity reclaims the shot that is being dispatched
		r.Add(p.Acquire())
	})
	if pairs := r.DetectCollisions(); len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d", len(pairs))
	}
	if hits != 1 {
		t.Errorf("handler should not run for an evicted participant, ran %d times", hits)
	}

	r.Update(0.016)
	if _, ok := r.Get(shot.ID()); ok {
		t.Error("evicted shot should be swept")
	}
	if shot.Disposals != 1 {
		t.Errorf("evicted shot should be disposed exactly once, got %d", shot.Disposals)
	}
	if got := len(r.ByTag(object.TagProjectile)); got != 1 {
		t.Errorf("expected the replacement shot to be live, got %d projectiles", got)
	}
}

func TestRemoveThenAddInSameFrame(t *testing.T) {
	r := newRegistry(nil)
	s := objecttest.New(object.TagDebris, 0, 0, 5)
	r.Add(s)
	r.Update(0.016)

	r.Remove(s.ID())
	id := r.Add(s)
	r.Update(0.016)

	if got, ok := r.Get(id); !ok || got != s {
		t.Fatal("object re-added after its removal was requested should stay live")
	}
	if !s.Active() || s.Disposals != 0 {
		t.Errorf("expected active and undisposed: active=%v disposals=%d", s.Active(), s.Disposals)
	}
	if st := r.Stats(); st.PendingRemoves != 0 {
		t.Errorf("pending removal should be cancelled, got %d", st.PendingRemoves)
	}

	// A later removal still works
	r.Remove(id)
	r.Update(0.016)
	if _, ok := r.Get(id); ok || s.Disposals != 1 {
		t.Error("object should be removed and disposed")
	}
}

func TestReAddAfterRemovalGetsNewID(t *testing.T) {
	r := newRegistry(nil)
	s := objecttest.New(object.TagPlayer, 0, 0, 5)
	first := r.Add(s)
	r.Update(0.016)
	r.Remove(first)
	r.Update(0.016)

	second := r.Add(s)
	if second == first {
		t.Errorf("expected a fresh id, got %d again", second)
	}
	r.Update(0.016)
	if _, ok := r.Get(second); !ok || !s.Active() {
		t.Error("re-added object should be live and active")
	}
}

type recordingRenderer struct{ circles int }

func (r *recordingRenderer) Circle(geom.Vec2, float64, color.RGBA) { r.circles++ }
func (r *recordingRenderer) Line(geom.Vec2, geom.Vec2, color.RGBA) {}

func TestRender(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := newRegistry(zap.New(core))
	ok := objecttest.New(object.TagDebris, 0, 0, 5)
	broken := objecttest.New(object.TagDebris, 10, 0, 5)
	broken.FailRender = true
	r.Add(ok)
	r.Add(broken)
	r.Update(0.016)

	r.Render(nil)
	if ok.Renders != 0 {
		t.Error("nil renderer should be a no-op")
	}

	r.Render(&recordingRenderer{})
	if ok.Renders != 1 || broken.Renders != 1 {
		t.Error("every active object should render once")
	}
	if broken.Active() {
		t.Error("failing renderer should deactivate the object")
	}
	if logs.FilterMessage("object render failed").Len() != 1 {
		t.Error("expected the render failure to be logged")
	}
}

func TestQueries(t *testing.T) {
	r := newRegistry(nil)
	near := objecttest.New(object.TagDebris, 10, 0, 5)
	edge := objecttest.New(object.TagHostile, 40, 0, 15) // circle reaches x=25
	far := objecttest.New(object.TagDebris, 200, 0, 5)
	ship := objecttest.New(object.TagPlayer, -10, 0, 8)
	for _, s := range []*objecttest.Stub{near, edge, far, ship} {
		r.Add(s)
	}
	r.Update(0.016)

	got := r.InRadius(geom.V(0, 0), 25)
	if len(got) != 3 {
		t.Fatalf("expected 3 objects in radius, got %d", len(got))
	}
	for _, o := range got {
		if o == far {
			t.Error("far object should not be returned")
		}
	}

	if debris := r.ByTag(object.TagDebris); len(debris) != 2 {
		t.Errorf("expected 2 debris, got %d", len(debris))
	}
	if stubs := OfType[*objecttest.Stub](r); len(stubs) != 4 {
		t.Errorf("expected 4 stubs, got %d", len(stubs))
	}

	// Moving an object invalidates the index on the next Update
	far.SetPos(geom.V(5, 5))
	r.Update(0.016)
	if got := r.InRadius(geom.V(0, 0), 25); len(got) != 4 {
		t.Errorf("expected the moved object to be found, got %d", len(got))
	}
}

func TestClose(t *testing.T) {
	r := newRegistry(nil)
	live := objecttest.New(object.TagDebris, 0, 0, 5)
	queued := objecttest.New(object.TagDebris, 0, 0, 5)
	r.Add(live)
	r.Update(0.016)
	r.Add(queued)
	r.Close()

	if live.Disposals != 1 || queued.Disposals != 1 {
		t.Error("Close should dispose live and queued objects")
	}
	if r.Len() != 0 || r.Stats().PendingAdds != 0 {
		t.Error("registry should be empty after Close")
	}
}
