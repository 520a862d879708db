// Package registry tracks granules that have been admitted for processing so
// that repeated notifications for the same granule are discarded.
package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
	"github.com/jonboulle/clockwork"
)

type entry struct {
	admittedAt time.Time
	gen        uint64
}

// JobRegistry is a concurrency-safe set of in-flight dedup keys. Each key is
// removed again by a release timer so a granule can be reprocessed after the
// dedup window has passed.
type JobRegistry struct {
	mu      sync.Mutex
	entries map[domain.DedupKey]entry
	gen     uint64
	clock   clockwork.Clock
	logger  *slog.Logger
}

// New creates an empty registry driven by the given clock.
func New(clock clockwork.Clock, logger *slog.Logger) *JobRegistry {
	return &JobRegistry{
		entries: make(map[domain.DedupKey]entry),
		clock:   clock,
		logger:  logger,
	}
}

// TryAdmit atomically inserts key and reports whether it was absent.
func (r *JobRegistry) TryAdmit(key domain.DedupKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[key]; ok {
		return false
	}
	r.gen++
	r.entries[key] = entry{admittedAt: r.clock.Now(), gen: r.gen}
	return true
}

// Release removes key. Releasing an absent key is a no-op.
func (r *JobRegistry) Release(key domain.DedupKey) {
	r.mu.Lock()
	_, ok := r.entries[key]
	delete(r.entries, key)
	r.mu.Unlock()

	if !ok {
		r.logger.Debug("release of unknown key", "key", string(key))
	}
}

// ScheduleRelease removes key once after elapses. A timer only releases the
// admission it was scheduled for; a key released early and admitted again is
// left alone.
func (r *JobRegistry) ScheduleRelease(key domain.DedupKey, after time.Duration) clockwork.Timer {
	r.mu.Lock()
	gen := r.entries[key].gen
	r.mu.Unlock()

	return r.clock.AfterFunc(after, func() {
		r.mu.Lock()
		e, ok := r.entries[key]
		if ok && e.gen == gen {
			delete(r.entries, key)
		}
		r.mu.Unlock()

		if ok && e.gen == gen {
			r.logger.Debug("dedup key released", "key", string(key))
		}
	})
}

// AdmittedAt returns when key was admitted, if it is currently held.
func (r *JobRegistry) AdmittedAt(key domain.DedupKey) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key]
	return e.admittedAt, ok
}

// Contains reports whether key is currently held.
func (r *JobRegistry) Contains(key domain.DedupKey) bool {
	_, ok := r.AdmittedAt(key)
	return ok
}

// Len returns the number of held keys.
func (r *JobRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
