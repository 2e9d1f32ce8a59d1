package collision

import (
	"fmt"

	"go.uber.org/zap"

	"spaceship-sim/internal/geom"
	"spaceship-sim/internal/object"
	"spaceship-sim/internal/spatial"
)

// Handler receives both participants of a collision, ordered to match the
// tag pair it was registered with.
type Handler func(a, b object.Object)

// Pair is an unordered collision pair, stored with A.ID() < B.ID()
type Pair struct {
	A, B object.Object
}

type handlerEntry struct {
	a, b      object.Tag
	fn        Handler
	throttled bool
}

// Stats describes the work done by the last ProcessFrame call plus running totals
type Stats struct {
	Frame      uint64  `json:"frame" msgpack:"frame"`
	Objects    int     `json:"objects" msgpack:"objects"`
	Candidates int     `json:"candidates" msgpack:"candidates"`
	Checks     int     `json:"checks" msgpack:"checks"`
	Pairs      int     `json:"pairs" msgpack:"pairs"`
	Efficiency float64 `json:"efficiency" msgpack:"efficiency"` // Pairs / Checks, 0 when nothing was checked

	TotalChecks   uint64 `json:"total_checks" msgpack:"total_checks"`
	TotalPairs    uint64 `json:"total_pairs" msgpack:"total_pairs"`
	HandlerPanics uint64 `json:"handler_panics" msgpack:"handler_panics"`
}

// System is the per-frame collision orchestrator: it rebuilds the spatial
// index, runs the broad and narrow phases and dispatches typed handlers.
// Accessed only from the simulation goroutine.
type System struct {
	log      *zap.Logger
	grid     *spatial.Grid
	handlers []handlerEntry
	throttle uint64

	frame     uint64
	panics    uint64
	maxRadius float64
	pairs     []Pair
	buf       []object.Object
	stats     Stats
}

// New creates a System whose index uses the given cell size
func New(cellSize float64, log *zap.Logger) *System {
	if log == nil {
		log = zap.NewNop()
	}
	return &System{
		log:      log,
		grid:     spatial.NewGrid(cellSize),
		throttle: 1,
		pairs:    make([]Pair, 0, 64),
		buf:      make([]object.Object, 0, 64),
	}
}

// On registers fn for collisions between objects tagged a and b
func (s *System) On(a, b object.Tag, fn Handler) {
	if fn == nil {
		return
	}
	s.handlers = append(s.handlers, handlerEntry{a: a, b: b, fn: fn})
}

// OnThrottled registers a handler that only runs on every Nth frame, N set
// by SetThrottle. Meant for cosmetic responses the quality tier may thin out.
func (s *System) OnThrottled(a, b object.Tag, fn Handler) {
	if fn == nil {
		return
	}
	s.handlers = append(s.handlers, handlerEntry{a: a, b: b, fn: fn, throttled: true})
}

// SetThrottle sets the frame cadence for throttled handlers (values < 1 mean every frame)
func (s *System) SetThrottle(every int) {
	if every < 1 {
		every = 1
	}
	s.throttle = uint64(every)
}

// Throttle returns the current throttled-handler cadence
func (s *System) Throttle() int { return int(s.throttle) }

// CellSize returns the index cell size
func (s *System) CellSize() float64 { return s.grid.CellSize() }

// Stats returns the statistics of the last processed frame
func (s *System) Stats() Stats { return s.stats }

// Rebuild clears the index and inserts every active object
func (s *System) Rebuild(objects []object.Object) {
	s.grid.Clear()
	s.maxRadius = 0
	for _, o := range objects {
		if o == nil || !o.Active() {
			continue
		}
		s.grid.Insert(o)
		if r := o.Radius(); r > s.maxRadius {
			s.maxRadius = r
		}
	}
}

// MaxRadius returns the largest collision radius seen by the last Rebuild
func (s *System) MaxRadius() float64 { return s.maxRadius }

// Query returns index candidates near p as of the last Rebuild.
// The returned slice is reused by the next Query call.
func (s *System) Query(p geom.Vec2, radius float64) []object.Object {
	s.buf = s.grid.QueryBuf(p, radius, s.buf[:0])
	return s.buf
}

// searchRadius never lets the ring shrink below what the largest object in
// the frame needs, otherwise a small object next to a big one misses it.
func (s *System) searchRadius(r float64) float64 {
	sr := 2 * r
	if floor := r + s.maxRadius; floor > sr {
		sr = floor
	}
	return sr
}

// ProcessFrame rebuilds the index from objects, finds every overlapping pair
// once and dispatches the matching handlers. The returned slice is only valid
// until the next call.
func (s *System) ProcessFrame(objects []object.Object) []Pair {
	s.frame++
	s.pairs = s.pairs[:0]
	st := Stats{
		Frame:         s.frame,
		TotalChecks:   s.stats.TotalChecks,
		TotalPairs:    s.stats.TotalPairs,
		HandlerPanics: s.panics,
	}
	if len(objects) == 0 {
		s.grid.Clear()
		s.maxRadius = 0
		s.stats = st
		return s.pairs
	}

	s.Rebuild(objects)
	st.Objects = s.grid.Len()

	for _, a := range objects {
		if a == nil || !a.Active() {
			continue
		}
		pa, ra := a.Pos(), a.Radius()
		s.buf = s.grid.QueryBuf(pa, s.searchRadius(ra), s.buf[:0])
		st.Candidates += len(s.buf)
		for _, b := range s.buf {
			if b.ID() <= a.ID() || !b.Active() {
				continue
			}
			st.Checks++
			pb := b.Pos()
			if !CheckCollision(pa.X, pa.Y, ra, pb.X, pb.Y, b.Radius()) {
				continue
			}
			s.pairs = append(s.pairs, Pair{A: a, B: b})
		}
	}
	st.Pairs = len(s.pairs)

	// Dispatch after the scan so handlers mutating positions or activity
	// don't disturb the candidate sets of this frame.
	for _, p := range s.pairs {
		s.dispatch(p.A, p.B)
	}

	if st.Checks > 0 {
		st.Efficiency = float64(st.Pairs) / float64(st.Checks)
	}
	st.TotalChecks += uint64(st.Checks)
	st.TotalPairs += uint64(st.Pairs)
	st.HandlerPanics = s.panics
	s.stats = st
	return s.pairs
}

func (s *System) dispatch(x, y object.Object) {
	runThrottled := s.frame%s.throttle == 0
	tx, ty := x.Tag(), y.Tag()
	for i := range s.handlers {
		h := &s.handlers[i]
		if h.throttled && !runThrottled {
			continue
		}
		// Either side may have been deactivated (or evicted from its pool)
		// by an earlier handler this frame. The registry never revives a
		// reclaimed instance, so an inactive participant stays inactive.
		if !x.Active() || !y.Active() {
			return
		}
		switch {
		case h.a == tx && h.b == ty:
			s.call(h, x, y)
		case h.a == ty && h.b == tx:
			s.call(h, y, x)
		}
	}
}

func (s *System) call(h *handlerEntry, a, b object.Object) {
	defer func() {
		if r := recover(); r != nil {
			s.panics++
			s.log.Error("collision handler panic",
				zap.Stringer("a", a.Tag()),
				zap.Stringer("b", b.Tag()),
				zap.Uint64("a_id", uint64(a.ID())),
				zap.Uint64("b_id", uint64(b.ID())),
				zap.Error(fmt.Errorf("%v", r)),
			)
		}
	}()
	h.fn(a, b)
}
