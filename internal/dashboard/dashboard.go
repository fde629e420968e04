package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/user/nocview/internal/metrics"
	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/poller"
	"github.com/user/nocview/internal/util"
)

// Dashboard is one live role dashboard instance. It owns its pages
// exclusively; nothing is shared between dashboards.
type Dashboard struct {
	role    Role
	opts    Options
	loader  *Loader
	metrics *metrics.Metrics

	Alerts  *Page[model.Alert]
	Tickets *Page[model.Ticket]
	Devices *Page[model.Device]
	Users   *Page[model.User]

	mu         sync.RWMutex
	snap       Snapshot
	period     string
	generation uint64
	poll       *poller.Poller[Snapshot]
	deliver    func(gen uint64, s Snapshot)
	applied    []func(Snapshot)
}

// New creates a dashboard for role. It does not fetch until Start.
func New(role Role, loader *Loader, opts Options, m *metrics.Metrics) *Dashboard {
	return &Dashboard{
		role:    role,
		opts:    opts,
		loader:  loader,
		metrics: m,
		Alerts:  NewPage(TabAlerts, AlertPipeline(opts), opts.PageSize),
		Tickets: NewPage(TabTickets, TicketPipeline(opts), opts.PageSize),
		Devices: NewPage(TabDevices, DevicePipeline(opts), opts.PageSize),
		Users:   NewPage(TabUsers, UserPipeline(opts), opts.PageSize),
		snap:    EmptySnapshot(role.Name, role.Period),
		period:  role.Period,
	}
}

// Role returns the dashboard role.
func (d *Dashboard) Role() Role {
	return d.role
}

// Options returns the pipeline options the dashboard was built with.
func (d *Dashboard) Options() Options {
	return d.opts
}

// SetDeliver routes poll results through fn instead of applying them
// directly. fn receives the generation the result belongs to; the receiver
// should call Apply only if that generation is still current. Must be
// called before Start.
func (d *Dashboard) SetDeliver(fn func(gen uint64, s Snapshot)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliver = fn
}

// OnApplied registers a callback run after every applied snapshot.
func (d *Dashboard) OnApplied(fn func(Snapshot)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.applied = append(d.applied, fn)
}

// Start begins polling with an immediate first cycle.
func (d *Dashboard) Start(ctx context.Context) {
	d.start(ctx)
}

// StartAfterLoad begins polling with the first cycle one interval away,
// for a dashboard that Load has just filled.
func (d *Dashboard) StartAfterLoad(ctx context.Context) {
	d.start(ctx, poller.Deferred())
}

func (d *Dashboard) start(ctx context.Context, opts ...poller.Option) {
	d.mu.Lock()
	if d.poll != nil {
		d.mu.Unlock()
		return
	}
	d.generation++
	gen := d.generation
	period := d.period
	deliver := d.deliver
	d.poll = poller.New(d.role.Name,
		d.role.Interval,
		func(ctx context.Context) (Snapshot, error) {
			return d.loader.Load(ctx, d.role, period)
		},
		func(s Snapshot) {
			if deliver != nil {
				deliver(gen, s)
				return
			}
			d.applyGen(gen, s)
		},
		append([]poller.Option{poller.WithMetrics(d.metrics)}, opts...)...,
	)
	p := d.poll
	d.mu.Unlock()

	util.Info("Starting %s dashboard (every %s, period %s)", d.role.Name, d.role.Interval, period)
	p.Start(ctx)
}

// Stop ends polling. No result fetched before Stop is applied afterwards.
func (d *Dashboard) Stop() {
	d.mu.Lock()
	p := d.poll
	d.poll = nil
	d.generation++
	d.mu.Unlock()

	if p != nil {
		p.Stop()
	}
}

// Load fetches one snapshot synchronously and applies it under the current
// generation. One-shot commands use it instead of Start.
func (d *Dashboard) Load(ctx context.Context) error {
	gen := d.Generation()
	s, err := d.loader.Load(ctx, d.role, d.Period())
	if err != nil {
		return err
	}
	if !d.applyGen(gen, s) {
		return fmt.Errorf("%s dashboard was restarted while loading", d.role.Name)
	}
	return nil
}

// Refresh triggers an immediate poll cycle.
func (d *Dashboard) Refresh() {
	d.mu.RLock()
	p := d.poll
	d.mu.RUnlock()
	if p != nil {
		p.Refresh()
	}
}

// Period returns the selected time period.
func (d *Dashboard) Period() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.period
}

// SetPeriod changes the time period and restarts polling so that no
// result for the old period is applied.
func (d *Dashboard) SetPeriod(ctx context.Context, period string) error {
	if !ValidPeriod(period) {
		return fmt.Errorf("invalid period %q (valid: %v)", period, Periods)
	}
	d.mu.Lock()
	running := d.poll != nil
	d.period = period
	d.mu.Unlock()

	if running {
		d.Stop()
		d.Start(ctx)
	}
	return nil
}

// Generation identifies the current poll generation.
func (d *Dashboard) Generation() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.generation
}

// Loading reports whether a poll cycle is in flight.
func (d *Dashboard) Loading() bool {
	d.mu.RLock()
	p := d.poll
	d.mu.RUnlock()
	return p != nil && p.Loading()
}

// Status returns the poller status.
func (d *Dashboard) Status() poller.Status {
	d.mu.RLock()
	p := d.poll
	d.mu.RUnlock()
	if p == nil {
		return poller.Status{Name: d.role.Name, Interval: d.role.Interval}
	}
	return p.Status()
}

// Snapshot returns the last applied snapshot.
func (d *Dashboard) Snapshot() Snapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap
}

// Apply installs a snapshot if gen is still the current generation and
// reports whether it did.
func (d *Dashboard) Apply(gen uint64, s Snapshot) bool {
	return d.applyGen(gen, s)
}

func (d *Dashboard) applyGen(gen uint64, s Snapshot) bool {
	d.mu.Lock()
	if gen != d.generation {
		d.mu.Unlock()
		return false
	}
	d.snap = s
	// Pages are replaced together while d.mu is held.
	d.Alerts.SetItems(s.Alerts)
	d.Tickets.SetItems(s.Tickets)
	d.Devices.SetItems(s.Devices)
	d.Users.SetItems(s.Users)
	callbacks := append([]func(Snapshot){}, d.applied...)
	d.mu.Unlock()

	for _, fn := range callbacks {
		fn(s)
	}
	return true
}

// Read runs fn while no snapshot can be applied, giving it a consistent
// view of the snapshot and the pages. fn may use the pages but must not
// call other Dashboard methods.
func (d *Dashboard) Read(fn func(s Snapshot)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(d.snap)
}

// UpdatedAt returns when the current snapshot was fetched.
func (d *Dashboard) UpdatedAt() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap.FetchedAt
}
