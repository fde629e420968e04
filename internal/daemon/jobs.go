package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/user/nocview/internal/dashboard"
	"github.com/user/nocview/internal/util"
)

// Job intervals.
const (
	PruneInterval  = 6 * time.Hour
	StatusInterval = 15 * time.Second
)

// registerJobs registers one poll job per watched role plus housekeeping.
func (d *Daemon) registerJobs() {
	for _, role := range d.roles {
		dash, _ := d.app.NewDashboard(role)
		d.scheduler.AddJob(&Job{
			Name:     "poll:" + role.Name,
			Interval: role.Interval,
			Run: func(ctx context.Context) error {
				return d.poll(ctx, dash)
			},
		}, 0)
	}

	d.scheduler.AddJob(&Job{
		Name:     "prune",
		Interval: PruneInterval,
		Run: func(ctx context.Context) error {
			return d.prune(time.Now())
		},
	}, time.Minute)

	d.scheduler.AddJob(&Job{
		Name:     "status",
		Interval: StatusInterval,
		Run: func(ctx context.Context) error {
			return d.writeStatus()
		},
	}, StatusInterval)
}

// poll loads one snapshot for a role, records its KPI tiles in the history
// and publishes a summary.
func (d *Daemon) poll(ctx context.Context, dash *dashboard.Dashboard) error {
	role := dash.Role()
	if err := dash.Load(ctx); err != nil {
		return fmt.Errorf("poll %s: %w", role.Name, err)
	}
	snap := dash.Snapshot()
	d.app.Cards(role, snap)

	summary := RoleSummary{
		Role:      role.Name,
		Period:    snap.Period,
		FetchedAt: snap.FetchedAt,
		Alerts:    len(snap.Alerts),
		Critical:  len(snap.CriticalAlerts()),
		Failed:    snap.Failed,
	}
	d.mu.Lock()
	d.summaries[role.Name] = summary
	d.mu.Unlock()

	util.Info("Polled %s: %d alerts, %d critical, %d panels failed",
		role.Name, summary.Alerts, summary.Critical, len(summary.Failed))

	return d.writeStatus()
}

// prune removes journal entries and KPI samples older than the retention.
func (d *Daemon) prune(now time.Time) error {
	retention := d.app.Config.HistoryRetention
	if retention <= 0 {
		return nil
	}
	before := now.Add(-retention)

	journal, err := d.app.Journal.Prune(before)
	if err != nil {
		return fmt.Errorf("prune journal: %w", err)
	}
	samples, err := d.app.KPI.Prune(before)
	if err != nil {
		return fmt.Errorf("prune kpi history: %w", err)
	}
	if journal+samples > 0 {
		util.Info("Pruned %d journal entries and %d KPI samples older than %s",
			journal, samples, before.Format("2006-01-02 15:04"))
	}
	return nil
}
