package daemon

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/nocview/internal/app"
	"github.com/user/nocview/internal/dashboard"
	"github.com/user/nocview/internal/kpi"
	"github.com/user/nocview/internal/util"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSchedulerRunsAndRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(ctx)
	s.tick = 5 * time.Millisecond

	var ok, failed atomic.Int32
	s.AddJob(&Job{Name: "ok", Interval: 20 * time.Millisecond, Run: func(context.Context) error {
		ok.Add(1)
		return nil
	}}, 0)
	s.AddJob(&Job{Name: "bad", Interval: time.Hour, Run: func(context.Context) error {
		failed.Add(1)
		return errors.New("boom")
	}}, 0)

	done := make(chan struct{})
	go func() {
		s.Run()
		close(done)
	}()

	waitFor(t, func() bool { return ok.Load() >= 2 && failed.Load() >= 1 })
	cancel()
	<-done

	for _, st := range s.JobStatuses() {
		switch st.Name {
		case "ok":
			if st.LastError != "" || st.Runs < 2 {
				t.Errorf("ok job status: %+v", st)
			}
		case "bad":
			// Retried after half the interval, so not again within the test.
			if st.ErrorCount != 1 || st.LastError != "boom" || time.Until(st.NextRun) < 29*time.Minute {
				t.Errorf("bad job status: %+v", st)
			}
		}
	}
	if s.Trigger("missing") || !s.Trigger("bad") {
		t.Error("Trigger reported the wrong result")
	}
}

func TestStatusFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := &StatusFile{
		Running: true,
		PID:     42,
		Roles:   []RoleSummary{{Role: "noc", Alerts: 3, Critical: 1}},
	}
	if err := WriteStatusFile(dir, in); err != nil {
		t.Fatalf("WriteStatusFile: %v", err)
	}
	out, err := ReadStatusFile(dir)
	if err != nil {
		t.Fatalf("ReadStatusFile: %v", err)
	}
	if !out.Running || out.PID != 42 || len(out.Roles) != 1 || out.Roles[0].Critical != 1 {
		t.Fatalf("status = %+v", out)
	}
}

func TestCheckRunning(t *testing.T) {
	dir := t.TempDir()
	if running, _ := CheckRunning(dir); running {
		t.Fatal("no pid file should mean not running")
	}

	pidFile := filepath.Join(dir, PIDFileName)
	os.WriteFile(pidFile, []byte("garbage"), 0644)
	if running, _ := CheckRunning(dir); running {
		t.Fatal("garbage pid file should mean not running")
	}

	os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0644)
	if running, pid := CheckRunning(dir); !running || pid != os.Getpid() {
		t.Fatalf("expected this process, got %v %d", running, pid)
	}
}

func TestWatcherPollsAndRecordsHistory(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/alerts" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, `[
			{"id": "a1", "severity": "critical", "title": "Core link down"},
			{"id": "a2", "severity": "minor", "title": "Disk 80%"},
			{"id": "a3", "severity": "info", "title": "Config saved"}
		]`)
	}))
	defer upstream.Close()

	cfg := util.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.APIURL = upstream.URL
	a, err := app.New(cfg)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	defer a.Close()

	d, err := New(a, []string{"noc"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := New(a, []string{"ghost"}); err == nil {
		t.Fatal("expected unknown role error")
	}

	if err := d.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if running, _ := CheckRunning(cfg.DataDir); !running {
		t.Fatal("pid file not written")
	}

	waitFor(t, func() bool {
		sf, err := ReadStatusFile(cfg.DataDir)
		return err == nil && len(sf.Roles) == 1 && sf.Roles[0].Alerts == 3
	})
	d.Stop()

	sf, err := ReadStatusFile(cfg.DataDir)
	if err != nil || sf.Running || sf.Roles[0].Critical != 1 {
		t.Fatalf("final status = %+v, %v", sf, err)
	}
	if running, _ := CheckRunning(cfg.DataDir); running {
		t.Fatal("pid file not removed")
	}

	samples, err := a.KPI.History("noc", kpi.TileActiveAlerts, time.Time{})
	if err != nil || len(samples) == 0 || samples[0].Value != 3 {
		t.Fatalf("kpi history = %+v, %v", samples, err)
	}
}

func TestPruneHonoursRetention(t *testing.T) {
	cfg := util.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.APIURL = "http://127.0.0.1:1"
	cfg.HistoryRetention = 24 * time.Hour
	a, err := app.New(cfg)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	defer a.Close()

	now := time.Now()
	cards := kpi.Build(a.Roles["noc"], dashboard.EmptySnapshot("noc", "24h"))
	a.Tracker.Annotate("noc", cards, now.Add(-48*time.Hour))
	a.Tracker.Annotate("noc", cards, now)

	d, err := New(a, []string{"noc"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.prune(now); err != nil {
		t.Fatalf("prune: %v", err)
	}
	samples, _ := a.KPI.History("noc", kpi.TileActiveAlerts, time.Time{})
	if len(samples) != 1 {
		t.Fatalf("expected only the recent sample, got %d", len(samples))
	}
}
