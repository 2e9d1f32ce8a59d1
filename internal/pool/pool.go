package pool

import (
	"container/list"

	"go.uber.org/zap"
)

// Item is what a pool can manage: anything with an activity flag and
// initialize/dispose hooks. object.Object satisfies it.
type Item interface {
	comparable
	Active() bool
	SetActive(active bool)
	Initialize()
	Dispose()
}

// Stats is a point-in-time view of a pool
type Stats struct {
	Name        string  `json:"name" msgpack:"name"`
	Active      int     `json:"active" msgpack:"active"`
	Available   int     `json:"available" msgpack:"available"`
	Allocated   int     `json:"allocated" msgpack:"allocated"` // active + available
	Max         int     `json:"max" msgpack:"max"`
	Created     uint64  `json:"created" msgpack:"created"`         // lifetime factory calls
	Evictions   uint64  `json:"evictions" msgpack:"evictions"`     // forced evictions
	Utilization float64 `json:"utilization" msgpack:"utilization"` // active / max, in percent
}

// Pool pre-allocates and recycles instances of one kind. It is owned by a
// single subsystem and never shared. Not safe for concurrent use.
type Pool[T Item] struct {
	name    string
	log     *zap.Logger
	factory func() T
	max     int

	available []T
	active    *list.List // oldest acquisition at the front
	index     map[T]*list.Element

	created   uint64
	evictions uint64

	// OnEvict runs after an active instance was forcibly reclaimed, so the
	// owner can drop references it still holds.
	OnEvict func(T)
}

// New creates a pool of at most max instances and pre-allocates initial of them
func New[T Item](name string, factory func() T, initial, max int, log *zap.Logger) *Pool[T] {
	if log == nil {
		log = zap.NewNop()
	}
	if max < 1 {
		max = 1
	}
	if initial > max {
		initial = max
	}
	if initial < 0 {
		initial = 0
	}
	p := &Pool[T]{
		name:      name,
		log:       log.With(zap.String("pool", name)),
		factory:   factory,
		max:       max,
		available: make([]T, 0, max),
		active:    list.New(),
		index:     make(map[T]*list.Element, max),
	}
	for i := 0; i < initial; i++ {
		p.available = append(p.available, p.construct())
	}
	return p
}

func (p *Pool[T]) construct() T {
	p.created++
	x := p.factory()
	x.SetActive(false)
	return x
}

// Acquire hands out an instance with its activity flag set and Initialize
// called. At capacity the oldest active instance is evicted and replaced.
func (p *Pool[T]) Acquire() T {
	var x T
	switch {
	case len(p.available) > 0:
		last := len(p.available) - 1
		x = p.available[last]
		var zero T
		p.available[last] = zero
		p.available = p.available[:last]
	case p.allocated() < p.max:
		x = p.construct()
	default:
		p.evictOldest()
		x = p.construct()
	}
	p.index[x] = p.active.PushBack(x)
	x.SetActive(true)
	x.Initialize()
	return x
}

func (p *Pool[T]) evictOldest() {
	front := p.active.Front()
	if front == nil {
		return
	}
	old := p.active.Remove(front).(T)
	delete(p.index, old)
	old.SetActive(false)
	old.Dispose()
	p.evictions++
	p.log.Warn("pool exhausted, evicted oldest active instance",
		zap.Int("max", p.max),
		zap.Uint64("evictions", p.evictions),
	)
	if p.OnEvict != nil {
		p.OnEvict(old)
	}
}

// Release deactivates x, runs its Dispose hook and makes it available again.
// It returns false for the zero value, for instances this pool doesn't
// consider active (double release, evicted, foreign).
func (p *Pool[T]) Release(x T) bool {
	var zero T
	if x == zero {
		return false
	}
	el, ok := p.index[x]
	if !ok {
		return false
	}
	p.active.Remove(el)
	delete(p.index, x)
	x.SetActive(false)
	x.Dispose()
	if p.allocated() >= p.max {
		// The cap shrank while x was out; let it go instead of keeping it idle.
		return true
	}
	p.available = append(p.available, x)
	return true
}

// Compact disposes idle instances beyond target and returns how many were dropped
func (p *Pool[T]) Compact(target int) int {
	if target < 0 {
		target = 0
	}
	n := len(p.available) - target
	if n <= 0 {
		return 0
	}
	var zero T
	for i := target; i < len(p.available); i++ {
		p.available[i].Dispose()
		p.available[i] = zero
	}
	p.available = p.available[:target]
	p.log.Debug("pool compacted", zap.Int("dropped", n), zap.Int("available", target))
	return n
}

// SetMax changes the cap. Shrinking drops idle instances first and then
// retires the oldest active ones until the pool fits.
func (p *Pool[T]) SetMax(max int) {
	if max < 1 {
		max = 1
	}
	if max == p.max {
		return
	}
	p.log.Info("pool cap changed", zap.Int("from", p.max), zap.Int("to", max))
	p.max = max
	if over := p.allocated() - max; over > 0 {
		keep := len(p.available) - over
		if keep < 0 {
			keep = 0
		}
		p.Compact(keep)
	}
	for p.allocated() > max {
		p.evictOldest()
	}
}

// Contains reports whether x is currently handed out by this pool
func (p *Pool[T]) Contains(x T) bool {
	_, ok := p.index[x]
	return ok
}

// Each calls fn for every active instance, oldest first
func (p *Pool[T]) Each(fn func(T)) {
	for el := p.active.Front(); el != nil; {
		next := el.Next()
		fn(el.Value.(T))
		el = next
	}
}

func (p *Pool[T]) allocated() int {
	return len(p.available) + p.active.Len()
}

func (p *Pool[T]) Name() string        { return p.name }
func (p *Pool[T]) Max() int            { return p.max }
func (p *Pool[T]) ActiveCount() int    { return p.active.Len() }
func (p *Pool[T]) AvailableCount() int { return len(p.available) }

// Stats returns the current counters
func (p *Pool[T]) Stats() Stats {
	st := Stats{
		Name:      p.name,
		Active:    p.active.Len(),
		Available: len(p.available),
		Allocated: p.allocated(),
		Max:       p.max,
		Created:   p.created,
		Evictions: p.evictions,
	}
	st.Utilization = float64(st.Active) / float64(p.max) * 100
	return st
}

// Close disposes every instance the pool owns. The pool is empty afterwards.
func (p *Pool[T]) Close() {
	for el := p.active.Front(); el != nil; el = el.Next() {
		x := el.Value.(T)
		x.SetActive(false)
		x.Dispose()
	}
	p.active.Init()
	p.index = make(map[T]*list.Element)
	for _, x := range p.available {
		x.Dispose()
	}
	p.available = p.available[:0]
}
