package poller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestPollerAppliesImmediately(t *testing.T) {
	applied := make(chan int, 4)
	p := New("test", time.Hour,
		func(ctx context.Context) (int, error) { return 42, nil },
		func(v int) { applied <- v },
	)
	p.Start(context.Background())
	defer p.Stop()

	select {
	case v := <-applied:
		if v != 42 {
			t.Fatalf("applied %d, want 42", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle did not run immediately")
	}

	if v, ok := p.Last(); !ok || v != 42 {
		t.Fatalf("Last() = %d, %v", v, ok)
	}
}

func TestDeferredSkipsFirstCycle(t *testing.T) {
	var calls atomic.Int32
	p := New("test", time.Hour,
		func(ctx context.Context) (int, error) { return int(calls.Add(1)), nil },
		func(int) {},
		Deferred(),
	)
	p.Start(context.Background())
	defer p.Stop()

	time.Sleep(50 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Fatalf("deferred poller fetched %d times at start", n)
	}
	if st := p.Status(); !st.Running || st.NextRun.IsZero() {
		t.Fatalf("status = %+v", st)
	}

	p.Refresh()
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if calls.Load() != 1 {
		t.Fatal("Refresh did not trigger a cycle")
	}
}

func TestStopDiscardsLateResult(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var applied atomic.Int32

	p := New("late", time.Hour,
		func(ctx context.Context) (int, error) {
			close(entered)
			// Ignore ctx on purpose: the result resolves after Stop.
			<-release
			return 1, nil
		},
		func(int) { applied.Add(1) },
	)
	p.Start(context.Background())

	<-entered
	p.Stop()
	close(release)

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not exit after Stop")
	}
	if n := applied.Load(); n != 0 {
		t.Fatalf("apply called %d times after Stop", n)
	}
	if _, ok := p.Last(); ok {
		t.Fatal("late result must not be stored")
	}
}

func TestRestartIgnoresPreviousGeneration(t *testing.T) {
	var calls atomic.Int32
	firstRelease := make(chan struct{})
	firstEntered := make(chan struct{})

	var mu sync.Mutex
	var got []string

	p := New("restart", time.Hour,
		func(ctx context.Context) (string, error) {
			if calls.Add(1) == 1 {
				close(firstEntered)
				<-firstRelease
				return "old", nil
			}
			return "new", nil
		},
		func(v string) {
			mu.Lock()
			got = append(got, v)
			mu.Unlock()
		},
	)
	p.Start(context.Background())
	<-firstEntered
	oldDone := p.Done()

	p.Restart(context.Background())
	close(firstRelease)
	<-oldDone

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	p.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0] != "new" {
		t.Fatalf("applied %v, want [new]", got)
	}
}

func TestFailureKeepsLastDataAndKeepsPolling(t *testing.T) {
	var calls atomic.Int32
	p := New("flaky", 10*time.Millisecond,
		func(ctx context.Context) (int, error) {
			n := calls.Add(1)
			if n == 1 {
				return 7, nil
			}
			return 0, errors.New("upstream down")
		},
		nil,
	)
	p.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	p.Stop()

	if calls.Load() < 3 {
		t.Fatalf("poller stopped after failure, calls=%d", calls.Load())
	}
	if v, ok := p.Last(); !ok || v != 7 {
		t.Fatalf("Last() = %d, %v; want last good value", v, ok)
	}
	st := p.Status()
	if st.ErrorCount == 0 || st.LastError == "" || st.Running {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestRefreshTriggersCycle(t *testing.T) {
	var calls atomic.Int32
	p := New("refresh", time.Hour,
		func(ctx context.Context) (int, error) { return int(calls.Add(1)), nil },
		nil,
	)
	p.Start(context.Background())
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	p.Refresh()
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if calls.Load() < 2 {
		t.Fatal("Refresh did not trigger a cycle")
	}
}

func TestSettlePartialFailure(t *testing.T) {
	var (
		alerts   = []string{"default"}
		summary  = -1
		noc      = "default"
		noisy    = -1
		devices  = []string{"default"}
		devStats = -1
	)
	boom := errors.New("boom")

	failures := Settle(context.Background(),
		Fetch("alerts", &alerts, func(context.Context) ([]string, error) { return []string{"a1", "a2"}, nil }),
		Fetch("summary", &summary, func(context.Context) (int, error) { return 0, boom }),
		Fetch("noc", &noc, func(context.Context) (string, error) { return "noc", nil }),
		Fetch("noisy", &noisy, func(context.Context) (int, error) { return 3, nil }),
		Fetch("devices", &devices, func(context.Context) ([]string, error) { panic("bad payload") }),
		Fetch("deviceStats", &devStats, func(context.Context) (int, error) { return 12, nil }),
	)

	if len(failures) != 2 {
		t.Fatalf("failures = %v, want 2", failures.Names())
	}
	if names := failures.Names(); names[0] != "summary" || names[1] != "devices" {
		t.Fatalf("failure order = %v", names)
	}
	if !errors.Is(failures.Err(), boom) {
		t.Fatalf("joined error should wrap boom: %v", failures.Err())
	}

	if len(alerts) != 2 || noc != "noc" || noisy != 3 || devStats != 12 {
		t.Fatalf("successful values not stored: %v %q %d %d", alerts, noc, noisy, devStats)
	}
	if summary != -1 || len(devices) != 1 || devices[0] != "default" {
		t.Fatalf("failed values must keep defaults: %d %v", summary, devices)
	}
}

func TestSettleRecoversPanicsAsFailures(t *testing.T) {
	var got int
	failures := Settle(context.Background(),
		Task{Name: "nil-map", Run: func(context.Context) error {
			var m map[string]int
			m["x"] = 1
			return nil
		}},
		Fetch("count", &got, func(context.Context) (int, error) { return 7, nil }),
		Task{Name: "empty"},
	)
	if len(failures) != 1 || failures[0].Task != "nil-map" {
		t.Fatalf("failures = %v", failures.Names())
	}
	if msg := failures[0].Error(); !strings.Contains(msg, "panic") {
		t.Fatalf("panic not reported: %q", msg)
	}
	if got != 7 {
		t.Fatalf("sibling task result lost: %d", got)
	}
}

func TestSettleNoFailures(t *testing.T) {
	if f := Settle(context.Background()); f.Err() != nil || len(f) != 0 {
		t.Fatalf("empty settle: %v", f)
	}
}
