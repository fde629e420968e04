// Package tui provides the terminal role dashboards.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/user/nocview/internal/app"
	"github.com/user/nocview/internal/dashboard"
)

// App is the main TUI application.
type App struct {
	app  *app.App
	role dashboard.Role
}

// NewApp creates a new TUI application for one role.
func NewApp(a *app.App, role dashboard.Role) *App {
	return &App{app: a, role: role}
}

// Run starts polling and blocks until the user quits or ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d, actions := a.app.NewDashboard(a.role)
	m := newDashboardModel(ctx, d, actions, hooks{
		cards:    a.app.Cards,
		report:   a.app.ShiftReport,
		carousel: a.app.Config.CarouselInterval,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	// Results reach the model as messages; the model applies them only if
	// their generation is still current. Send runs on its own goroutine so
	// a poller never blocks on the UI loop.
	d.SetDeliver(func(gen uint64, s dashboard.Snapshot) {
		go p.Send(snapshotMsg{gen: gen, snap: s})
	})
	d.Start(ctx)
	defer d.Stop()

	_, err := p.Run()
	if err == tea.ErrProgramKilled && ctx.Err() != nil {
		return nil
	}
	return err
}
