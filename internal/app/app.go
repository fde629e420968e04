// Package app wires the process-wide collaborators: configuration, backend
// client, local database, metrics and role definitions.
package app

import (
	"fmt"
	"time"

	"github.com/user/nocview/internal/client"
	"github.com/user/nocview/internal/dashboard"
	"github.com/user/nocview/internal/kpi"
	"github.com/user/nocview/internal/metrics"
	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/report"
	"github.com/user/nocview/internal/storage"
	"github.com/user/nocview/internal/util"
)

// App is built once by the CLI and handed to the TUI, the web server and
// the commands.
type App struct {
	Config  *util.Config
	Client  *client.Client
	DB      *storage.DB
	Journal *storage.JournalStorage
	KPI     *storage.KPIStorage
	Tracker *kpi.Tracker
	Metrics *metrics.Metrics
	Roles   dashboard.Roles
}

// New opens the database and creates the backend client.
func New(cfg *util.Config) (*App, error) {
	roles, err := dashboard.LoadRoles(cfg.RolesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}

	c, err := client.New(client.Config{
		BaseURL: cfg.APIURL,
		Token:   cfg.APIToken,
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	kpiStore := storage.NewKPIStorage(db)
	return &App{
		Config:  cfg,
		Client:  c,
		DB:      db,
		Journal: storage.NewJournalStorage(db),
		KPI:     kpiStore,
		Tracker: kpi.NewTracker(kpiStore),
		Metrics: metrics.New(),
		Roles:   roles,
	}, nil
}

// Close releases the database.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// Role resolves a role name, falling back to the configured default.
func (a *App) Role(name string) (dashboard.Role, error) {
	if name == "" {
		name = a.Config.Role
	}
	return a.Roles.Get(name)
}

// Options returns the page pipeline options from the configuration.
func (a *App) Options() dashboard.Options {
	return dashboard.Options{
		MyDevices: a.Config.MyDevices,
		Operator:  a.Config.Operator,
		PageSize:  a.Config.PageSize,
	}
}

// NewDashboard creates a role dashboard and its action set. Successful
// actions refresh the dashboard. The configured period is used when it is
// valid; otherwise the role default applies.
func (a *App) NewDashboard(role dashboard.Role) (*dashboard.Dashboard, *dashboard.Actions) {
	if dashboard.ValidPeriod(a.Config.Period) && a.Config.Period != role.Period {
		role.Period = a.Config.Period
	}
	d := dashboard.New(role, dashboard.NewLoader(a.Client, a.Metrics), a.Options(), a.Metrics)
	actions := dashboard.NewActions(a.Client, a.Journal, a.Metrics, a.Config.ReportOutputDir, d.Refresh)
	return d, actions
}

// Cards builds the KPI tiles for a snapshot and records them in the KPI
// history.
func (a *App) Cards(role dashboard.Role, s dashboard.Snapshot) []model.KPICard {
	cards := kpi.Build(role, s)
	if s.FetchedAt.IsZero() {
		return cards
	}
	return a.Tracker.Annotate(role.Name, cards, s.FetchedAt)
}

// ShiftReport generates the markdown shift report for a snapshot and saves
// it in the report directory.
func (a *App) ShiftReport(role dashboard.Role, s dashboard.Snapshot, cards []model.KPICard) (string, error) {
	data, err := report.NewGenerator(a.DB).Generate(ReportInput(role, s, cards))
	if err != nil {
		return "", err
	}
	return report.WriteMarkdownFile(data, a.Config.ReportOutputDir)
}

// ReportInput converts a snapshot into report input.
func ReportInput(role dashboard.Role, s dashboard.Snapshot, cards []model.KPICard) report.Input {
	fetched := s.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now()
	}
	alerts := s.Alerts
	if len(alerts) == 0 {
		alerts = s.NOCAlerts
	}
	return report.Input{
		Role:         role.Name,
		Title:        role.Title,
		Period:       s.Period,
		FetchedAt:    fetched,
		Cards:        cards,
		Alerts:       alerts,
		Tickets:      s.Tickets,
		Devices:      s.Devices,
		NoisyDevices: s.NoisyDevices,
		Severity:     s.Severity,
		OverTime:     s.OverTime,
		Insights:     s.AIInsights,
	}
}
