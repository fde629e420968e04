// Package web serves the role dashboards over HTTP: an HTML overview page,
// a JSON API over the filtered tables and the mutation actions.
package web

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/user/nocview/internal/app"
	"github.com/user/nocview/internal/dashboard"
	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/util"
)

// Server is the web server. Each role gets one live dashboard, created on
// first use and polled until the server stops.
type Server struct {
	app  *app.App
	port int
	srv  *http.Server

	mu     sync.Mutex
	ctx    context.Context
	boards map[string]*board
}

// board is a live role dashboard plus the KPI tiles of its last snapshot.
type board struct {
	dash    *dashboard.Dashboard
	actions *dashboard.Actions
	opened  sync.Once

	mu    sync.RWMutex
	cards []model.KPICard
}

// open loads the dashboard once and starts polling. The first poll cycle
// is skipped when the load succeeded.
func (b *board) open(ctx, pollCtx context.Context) {
	b.opened.Do(func() {
		if err := b.dash.Load(ctx); err != nil {
			util.Warn("Initial load of %s dashboard failed: %v", b.dash.Role().Name, err)
			b.dash.Start(pollCtx)
			return
		}
		b.dash.StartAfterLoad(pollCtx)
	})
}

func (b *board) Cards() []model.KPICard {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cards
}

// NewServer creates a new web server.
func NewServer(a *app.App, port int) *Server {
	return &Server{
		app:    a,
		port:   port,
		ctx:    context.Background(),
		boards: make(map[string]*board),
	}
}

// Handler returns the routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	h := NewHandlers(s)

	mux.HandleFunc("/", h.Dashboard)
	mux.HandleFunc("/api/roles", h.APIGetRoles)
	mux.HandleFunc("/api/snapshot", h.APIGetSnapshot)
	mux.HandleFunc("/api/kpis", h.APIGetKPIs)
	mux.HandleFunc("/api/status", h.APIGetStatus)
	mux.HandleFunc("/api/period", h.APISetPeriod)
	mux.HandleFunc("/api/refresh", h.APIRefresh)
	mux.HandleFunc("/api/journal", h.APIGetJournal)
	mux.HandleFunc("/api/alerts", h.APIGetAlerts)
	mux.HandleFunc("/api/alerts/", h.APIAlertAction) // /api/alerts/{id}/{action}
	mux.HandleFunc("/api/tickets", h.APITickets)
	mux.HandleFunc("/api/tickets/", h.APITicketAction)
	mux.HandleFunc("/api/devices", h.APIGetDevices)
	mux.HandleFunc("/api/users", h.APIUsers)
	mux.HandleFunc("/api/users/", h.APIUserAction)
	mux.HandleFunc("/api/export", h.APIExport)
	mux.HandleFunc("/export.csv", h.DownloadAlertsCSV)
	mux.HandleFunc("/report", h.DownloadReport)
	mux.Handle("/metrics", s.app.Metrics.Handler())
	return mux
}

// Start runs the server until ctx is done, then shuts it down gracefully
// and stops every dashboard.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	defer s.Close()

	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			util.Warn("Web server shutdown: %v", err)
		}
	}()

	util.Info("Web server starting on port %d", s.port)

	if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop stops the web server.
func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.srv.Shutdown(ctx)
}

// Close stops polling for every role.
func (s *Server) Close() {
	s.mu.Lock()
	boards := s.boards
	s.boards = make(map[string]*board)
	s.mu.Unlock()

	for _, b := range boards {
		b.dash.Stop()
	}
}

func (s *Server) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// board returns the live dashboard for a role, creating it on first use.
// A new dashboard is loaded once before polling starts so that the first
// request already sees data. Only requests for that role wait for the load.
func (s *Server) board(ctx context.Context, name string) (*board, error) {
	role, err := s.app.Role(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	b, ok := s.boards[role.Name]
	if !ok {
		d, actions := s.app.NewDashboard(role)
		b = &board{dash: d, actions: actions}
		d.OnApplied(func(snap dashboard.Snapshot) {
			cards := s.app.Cards(d.Role(), snap)
			b.mu.Lock()
			b.cards = cards
			b.mu.Unlock()
		})
		s.boards[role.Name] = b
	}
	pollCtx := s.ctx
	s.mu.Unlock()

	b.open(ctx, pollCtx)
	return b, nil
}
