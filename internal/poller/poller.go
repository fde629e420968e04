// Package poller runs periodic fetches whose results are applied to page
// state only while the poller is still live.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/user/nocview/internal/metrics"
	"github.com/user/nocview/internal/util"
)

// Status represents the status of a poller.
type Status struct {
	Name       string        `json:"name"`
	Interval   time.Duration `json:"interval"`
	LastRun    time.Time     `json:"last_run"`
	NextRun    time.Time     `json:"next_run"`
	LastError  string        `json:"last_error,omitempty"`
	ErrorCount int           `json:"error_count"`
	Cycles     int           `json:"cycles"`
	Running    bool          `json:"running"`
	Loading    bool          `json:"loading"`
}

// Option configures a Poller.
type Option func(*options)

type options struct {
	metrics  *metrics.Metrics
	deferred bool
}

// WithMetrics records cycle outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// Deferred makes the first cycle run one interval after Start instead of
// immediately, for callers that have just fetched on their own.
func Deferred() Option {
	return func(o *options) { o.deferred = true }
}

// Poller invokes fetch immediately and then every interval, handing each
// successful result to apply. A failed fetch is logged and counted; it
// keeps the last good data and the timer keeps running.
//
// Each Start begins a new generation. Stop ends the current generation and
// cancels its context; a fetch from an ended generation that returns later
// never reaches apply. apply must not call Stop or Restart.
type Poller[T any] struct {
	name     string
	interval time.Duration
	fetch    func(ctx context.Context) (T, error)
	apply    func(T)
	opts     options

	// applyMu is held while a result is checked and applied, so that once
	// Stop returns no apply can be in progress or start.
	applyMu sync.Mutex

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
	kick       chan struct{}
	last       T
	hasData    bool
	lastRun    time.Time
	nextRun    time.Time
	lastError  error
	errorCount int
	cycles     int
	loading    bool
}

// New creates a poller. It does nothing until Start is called.
func New[T any](name string, interval time.Duration, fetch func(ctx context.Context) (T, error), apply func(T), opts ...Option) *Poller[T] {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	p := &Poller[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		apply:    apply,
	}
	for _, opt := range opts {
		opt(&p.opts)
	}
	return p
}

// Name returns the poller name.
func (p *Poller[T]) Name() string {
	return p.name
}

// Start begins polling under ctx. Starting a running poller is a no-op.
func (p *Poller[T]) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	p.generation++
	gen := p.generation
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	done := make(chan struct{})
	p.done = done
	kick := make(chan struct{}, 1)
	p.kick = kick
	p.mu.Unlock()

	go p.loop(ctx, gen, done, kick)
}

// Stop ends the current generation. It does not wait for an in-flight
// fetch, but guarantees that fetch's result is discarded.
func (p *Poller[T]) Stop() {
	p.mu.Lock()
	p.generation++
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.loading = false
	p.mu.Unlock()

	// Barrier: wait out an apply that passed its liveness check.
	p.applyMu.Lock()
	p.applyMu.Unlock()
}

// Restart stops the poller and starts a new generation, used when a
// parameter such as the time period changes.
func (p *Poller[T]) Restart(ctx context.Context) {
	p.Stop()
	p.Start(ctx)
}

// Refresh asks a running poller to fetch now instead of waiting for the
// next tick.
func (p *Poller[T]) Refresh() {
	p.mu.Lock()
	kick := p.kick
	running := p.cancel != nil
	p.mu.Unlock()
	if !running {
		return
	}
	select {
	case kick <- struct{}{}:
	default:
	}
}

// Done is closed when the loop of the most recent generation exits.
func (p *Poller[T]) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return p.done
}

// Last returns the last successfully fetched data.
func (p *Poller[T]) Last() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.hasData
}

// Loading reports whether a cycle is in flight.
func (p *Poller[T]) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loading
}

// Status returns a snapshot of the poller state.
func (p *Poller[T]) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Status{
		Name:       p.name,
		Interval:   p.interval,
		LastRun:    p.lastRun,
		NextRun:    p.nextRun,
		ErrorCount: p.errorCount,
		Cycles:     p.cycles,
		Running:    p.cancel != nil,
		Loading:    p.loading,
	}
	if p.lastError != nil {
		s.LastError = p.lastError.Error()
	}
	return s
}

func (p *Poller[T]) loop(ctx context.Context, gen uint64, done chan struct{}, kick chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if p.opts.deferred {
		p.mu.Lock()
		p.nextRun = time.Now().Add(p.interval)
		p.mu.Unlock()
	} else {
		p.cycle(ctx, gen)
	}
	for {
		select {
		case <-ctx.Done():
			util.Debug("Poller %s stopping", p.name)
			return
		case <-ticker.C:
			p.cycle(ctx, gen)
		case <-kick:
			p.cycle(ctx, gen)
			ticker.Reset(p.interval)
		}
	}
}

func (p *Poller[T]) cycle(ctx context.Context, gen uint64) {
	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		return
	}
	p.loading = true
	p.lastRun = time.Now()
	p.mu.Unlock()

	util.Debug("Polling %s", p.name)
	start := time.Now()
	data, err := p.fetch(ctx)
	took := time.Since(start)

	p.applyMu.Lock()
	defer p.applyMu.Unlock()

	p.mu.Lock()
	if gen != p.generation {
		p.mu.Unlock()
		util.Debug("Discarding result of stopped poller %s", p.name)
		return
	}
	p.loading = false
	p.nextRun = time.Now().Add(p.interval)
	if err != nil {
		p.lastError = err
		p.errorCount++
		p.mu.Unlock()
		p.opts.metrics.PollFailed(p.name, took)
		util.Warn("Poll %s failed: %v", p.name, err)
		return
	}
	p.lastError = nil
	p.last = data
	p.hasData = true
	p.cycles++
	apply := p.apply
	p.mu.Unlock()

	p.opts.metrics.PollSucceeded(p.name, took)
	if apply != nil {
		apply(data)
	}
}
