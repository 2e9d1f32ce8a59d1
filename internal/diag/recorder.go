package diag

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// RecorderConfig tunes the background writer
type RecorderConfig struct {
	BatchSize     int
	FlushInterval time.Duration
	QueueSize     int
}

// Recorder persists snapshots off the simulation goroutine. Track never
// blocks: when the queue is full the snapshot is dropped and counted.
type Recorder struct {
	store *Store
	log   *zap.Logger
	cfg   RecorderConfig

	snaps   chan Snapshot
	changes chan TierChange
	stop    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	dropped atomic.Uint64

	mu     sync.RWMutex
	latest Snapshot
	seen   bool
}

// NewRecorder starts the writer goroutine. store may be nil, in which case
// snapshots are only kept in memory for Latest.
func NewRecorder(store *Store, cfg RecorderConfig, log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 50
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 1024
	}
	r := &Recorder{
		store:   store,
		log:     log,
		cfg:     cfg,
		snaps:   make(chan Snapshot, cfg.QueueSize),
		changes: make(chan TierChange, 64),
		stop:    make(chan struct{}),
	}
	r.wg.Add(1)
	go r.writer()
	return r
}

// Track records s as the latest snapshot and enqueues it for persistence
func (r *Recorder) Track(s Snapshot) {
	r.mu.Lock()
	r.latest = s
	r.seen = true
	r.mu.Unlock()

	select {
	case r.snaps <- s:
	default:
		// Queue full: drop rather than stall the frame loop
		r.dropped.Add(1)
	}
}

// TrackTierChange enqueues a tier transition for persistence
func (r *Recorder) TrackTierChange(c TierChange) {
	select {
	case r.changes <- c:
	default:
		r.dropped.Add(1)
	}
}

// Latest returns the most recently tracked snapshot
func (r *Recorder) Latest() (Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest, r.seen
}

// Dropped returns how many items were discarded because the queue was full
func (r *Recorder) Dropped() uint64 { return r.dropped.Load() }

// Store returns the backing store, nil when history is disabled
func (r *Recorder) Store() *Store { return r.store }

// Stop flushes everything still queued and waits for the writer to exit.
// Track must not be called after Stop.
func (r *Recorder) Stop() {
	r.once.Do(func() {
		close(r.stop)
		r.wg.Wait()
	})
}

func (r *Recorder) writer() {
	defer r.wg.Done()

	batch := make([]Snapshot, 0, r.cfg.BatchSize)
	var changes []TierChange
	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		r.flush(batch, changes)
		batch = batch[:0]
		changes = changes[:0]
	}

	for {
		select {
		case s := <-r.snaps:
			batch = append(batch, s)
			if len(batch) >= r.cfg.BatchSize {
				flush()
			}
		case c := <-r.changes:
			changes = append(changes, c)
		case <-ticker.C:
			flush()
		case <-r.stop:
			// Drain what is already queued
			for {
				select {
				case s := <-r.snaps:
					batch = append(batch, s)
				case c := <-r.changes:
					changes = append(changes, c)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (r *Recorder) flush(batch []Snapshot, changes []TierChange) {
	if r.store == nil || (len(batch) == 0 && len(changes) == 0) {
		return
	}
	if err := r.store.InsertSnapshots(batch); err != nil {
		r.log.Error("persist snapshots", zap.Int("count", len(batch)), zap.Error(err))
	}
	if err := r.store.InsertTierChanges(changes); err != nil {
		r.log.Error("persist tier changes", zap.Int("count", len(changes)), zap.Error(err))
	}
}
