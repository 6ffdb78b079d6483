package search

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is how long input must stay unchanged before it commits.
const DefaultQuietPeriod = 500 * time.Millisecond

type stopper interface {
	Stop() bool
}

// Debouncer collapses a burst of Observe calls into one commit carrying the
// last observed value, fired once the input has been quiet for the configured
// period. Commits are delivered one at a time, in input order.
type Debouncer struct {
	quiet  time.Duration
	commit func(string)
	after  func(time.Duration, func()) stopper

	mu        sync.Mutex
	timer     stopper
	gen       uint64
	pending   string
	initial   string
	committed bool
	armed     bool
	stopped   bool

	emitMu sync.Mutex
}

type DebouncerOption func(*Debouncer)

// WithArmed lets the initial value commit like any other value.
func WithArmed() DebouncerOption {
	return func(d *Debouncer) { d.armed = true }
}

// WithInitialValue sets the value the input starts with (default "").
func WithInitialValue(v string) DebouncerOption {
	return func(d *Debouncer) { d.initial = v }
}

func NewDebouncer(quiet time.Duration, commit func(string), opts ...DebouncerOption) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	d := &Debouncer{
		quiet:  quiet,
		commit: commit,
		after: func(wait time.Duration, fn func()) stopper {
			return time.AfterFunc(wait, fn)
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Observe records a new raw input value and restarts the quiet period.
func (d *Debouncer) Observe(raw string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = raw
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.after(d.quiet, func() { d.fire(gen) })
}

// Arm allows the initial value to commit. Until then, settling back on the
// initial value before anything else has committed is not reported.
func (d *Debouncer) Arm() {
	d.mu.Lock()
	d.armed = true
	d.mu.Unlock()
}

// Stop cancels any pending commit and waits for one already being delivered.
// Nothing is emitted after Stop returns. It must not be called from commit.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	d.emitMu.Lock()
	d.emitMu.Unlock()
}

func (d *Debouncer) fire(gen uint64) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	value := d.pending
	if !d.armed && !d.committed && value == d.initial {
		d.mu.Unlock()
		return
	}
	d.committed = true
	d.mu.Unlock()

	d.commit(value)
}
