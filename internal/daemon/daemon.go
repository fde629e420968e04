// Package daemon runs the headless watcher: role dashboards polled on a
// schedule so that KPI history keeps accumulating while no UI is open.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/user/nocview/internal/app"
	"github.com/user/nocview/internal/dashboard"
	"github.com/user/nocview/internal/util"
)

// Daemon manages the background watcher.
type Daemon struct {
	app       *app.App
	roles     []dashboard.Role
	scheduler *Scheduler
	pidFile   string
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	startTime time.Time
	summaries map[string]RoleSummary
	mu        sync.RWMutex
	statusMu  sync.Mutex
}

// New creates a watcher for the named roles. With no names the configured
// watch_roles are used, and with none configured every role is watched.
func New(a *app.App, names []string) (*Daemon, error) {
	if len(names) == 0 {
		names = a.Config.WatchRoles
	}
	if len(names) == 0 {
		names = a.Roles.Names()
	}

	roles := make([]dashboard.Role, 0, len(names))
	for _, name := range names {
		role, err := a.Role(name)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Daemon{
		app:       a,
		roles:     roles,
		pidFile:   filepath.Join(a.Config.DataDir, PIDFileName),
		ctx:       ctx,
		cancel:    cancel,
		summaries: make(map[string]RoleSummary),
	}
	d.scheduler = NewScheduler(ctx)
	return d, nil
}

// Start starts the watcher.
func (d *Daemon) Start() error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	util.Info("Watcher starting...")

	d.registerJobs()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.scheduler.Run()
	}()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.handleSignals()
	}()

	util.Info("Watcher started with PID %d", os.Getpid())
	return nil
}

// Wait blocks until the watcher was asked to stop and its jobs returned.
func (d *Daemon) Wait() {
	d.wg.Wait()
}

// Stop stops the watcher gracefully.
func (d *Daemon) Stop() error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	d.mu.Unlock()

	util.Info("Watcher stopping...")
	d.cancel()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		util.Info("Watcher stopped gracefully")
	case <-time.After(30 * time.Second):
		util.Warn("Watcher stop timed out")
	}

	if err := d.writeStatus(); err != nil {
		util.Warn("Failed to write status file: %v", err)
	}
	d.removePIDFile()
	return nil
}

// handleSignals cancels the watcher on SIGINT or SIGTERM. Cleanup is left
// to Stop, which the caller runs after Wait returns.
func (d *Daemon) handleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		util.Info("Received signal: %v", sig)
		d.cancel()
	case <-d.ctx.Done():
	}
}

func (d *Daemon) writePIDFile() error {
	return os.WriteFile(d.pidFile, []byte(strconv.Itoa(os.Getpid())), 0644)
}

func (d *Daemon) removePIDFile() {
	os.Remove(d.pidFile)
}

// IsRunning returns whether the watcher is running.
func (d *Daemon) IsRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// Status returns the watcher status.
func (d *Daemon) Status() *StatusFile {
	d.mu.RLock()
	defer d.mu.RUnlock()

	roles := make([]RoleSummary, 0, len(d.summaries))
	for _, s := range d.summaries {
		roles = append(roles, s)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Role < roles[j].Role })

	return &StatusFile{
		Running:   d.running,
		PID:       os.Getpid(),
		StartTime: d.startTime,
		Uptime:    time.Since(d.startTime).Round(time.Second).String(),
		Roles:     roles,
		Jobs:      d.scheduler.JobStatuses(),
	}
}

func (d *Daemon) writeStatus() error {
	d.statusMu.Lock()
	defer d.statusMu.Unlock()
	return WriteStatusFile(d.app.Config.DataDir, d.Status())
}
