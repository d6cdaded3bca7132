// Package dedupe suppresses repeat alerts inside a cool-down window so
// repeated passes observing the same change do not create alert storms.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Deduper records recently emitted alert keys. An alert for a key already
// recorded inside the cool-down window must be suppressed before creation.
type Deduper interface {
	// SeenAndRecord atomically checks whether key fired inside the window
	// and records it if not. Returns true if the key is still cooling down,
	// false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord removes a key, allowing it to fire again. Used when the
	// alert that claimed the key failed to persist.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// Key builds the dedupe key for an alert: one cool-down slot per
// (competitor, alert type) pair.
func Key(competitorID, alertType string) string {
	return competitorID + ":" + alertType
}

// windowDeduper implements Deduper with a map of last-fire times.
// Expired entries are swept lazily whenever the map grows past
// sweepThreshold, keeping memory bounded without a background goroutine.
type windowDeduper struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
	now    func() time.Time
	size   atomic.Int64

	sweepThreshold int
}

// Default cool-down configuration.
const (
	defaultWindow         = 24 * time.Hour
	defaultSweepThreshold = 4096
)

// Option applies a configuration option to the window deduper.
type Option func(*windowDeduper)

// WithWindow sets the cool-down window.
func WithWindow(window time.Duration) Option {
	return func(d *windowDeduper) {
		if window > 0 {
			d.window = window
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(d *windowDeduper) {
		if now != nil {
			d.now = now
		}
	}
}

// WithSweepThreshold sets how large the map may grow before expired
// entries are swept.
func WithSweepThreshold(n int) Option {
	return func(d *windowDeduper) {
		if n > 0 {
			d.sweepThreshold = n
		}
	}
}

// NewWindowDeduper creates a Deduper with a 24 hour cool-down window.
func NewWindowDeduper(opts ...Option) Deduper {
	d := &windowDeduper{
		seen:           make(map[string]time.Time),
		window:         defaultWindow,
		now:            time.Now,
		sweepThreshold: defaultSweepThreshold,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *windowDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if fired, ok := d.seen[key]; ok && now.Sub(fired) < d.window {
		return true
	}

	if len(d.seen) >= d.sweepThreshold {
		d.sweepLocked(now)
	}

	if _, ok := d.seen[key]; !ok {
		d.size.Add(1)
	}
	d.seen[key] = now
	return false
}

func (d *windowDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		delete(d.seen, key)
		d.size.Add(-1)
	}
}

// RecordAt backfills a key with an explicit fire time. The coordinator
// uses it at startup to seed the window from alerts already persisted, so
// a restart does not reopen cool-downs.
func (d *windowDeduper) RecordAt(key string, fired time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.now().Sub(fired) >= d.window {
		return
	}
	if prev, ok := d.seen[key]; ok && prev.After(fired) {
		return
	}
	if _, ok := d.seen[key]; !ok {
		d.size.Add(1)
	}
	d.seen[key] = fired
}

func (d *windowDeduper) Size() int64 {
	return d.size.Load()
}

// sweepLocked drops entries older than the window. Caller holds d.mu.
func (d *windowDeduper) sweepLocked(now time.Time) {
	for key, fired := range d.seen {
		if now.Sub(fired) >= d.window {
			delete(d.seen, key)
			d.size.Add(-1)
		}
	}
}
