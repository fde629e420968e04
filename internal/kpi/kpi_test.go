package kpi

import (
	"testing"
	"time"

	"github.com/user/nocview/internal/dashboard"
	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/pipeline"
	"github.com/user/nocview/internal/storage"
)

func find(t *testing.T, cards []model.KPICard, id string) model.KPICard {
	t.Helper()
	for _, c := range cards {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("card %s not built", id)
	return model.KPICard{}
}

func TestTilesIgnoreTableFilters(t *testing.T) {
	snap := dashboard.EmptySnapshot("noc", "24h")
	for i := 0; i < 6; i++ {
		snap.Alerts = append(snap.Alerts, model.Alert{ID: "c", Severity: model.SeverityCritical, Status: model.AlertOpen})
	}
	for i := 0; i < 4; i++ {
		snap.Alerts = append(snap.Alerts, model.Alert{ID: "m", Severity: model.SeverityMajor, Status: model.AlertAcknowledged})
	}

	page := dashboard.NewPage(dashboard.TabAlerts, dashboard.AlertPipeline(dashboard.Options{}), 10)
	page.SetItems(snap.Alerts)
	page.Update(func(s *pipeline.State) { s.SetQuery("zzz") })
	if n := page.View().Total; n != 0 {
		t.Fatalf("expected filtered table to be empty, got %d", n)
	}

	role := dashboard.Role{Tiles: []string{TileActiveAlerts, TileCriticalAlerts, TileUnacknowledged}}
	cards := Build(role, snap)
	if len(cards) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(cards))
	}
	if c := find(t, cards, TileCriticalAlerts); c.Value != "6" || c.Tone != model.ToneCritical {
		t.Errorf("critical card = %+v", c)
	}
	if c := find(t, cards, TileActiveAlerts); c.Value != "10" {
		t.Errorf("active card = %+v", c)
	}
	if c := find(t, cards, TileUnacknowledged); c.Value != "6" {
		t.Errorf("unacknowledged card = %+v", c)
	}
}

func TestBuildFollowsRoleOrder(t *testing.T) {
	snap := dashboard.EmptySnapshot("sysadmin", "24h")
	snap.Users = []model.User{
		{Username: "a", Role: "admin", Active: true},
		{Username: "b", Role: "noc", Active: false},
		{Username: "c", Role: "network_admin", Active: true},
	}
	role := dashboard.Role{Tiles: []string{TileAdmins, "bogus", TileActiveUsers}}
	cards := Build(role, snap)
	if len(cards) != 2 || cards[0].ID != TileAdmins || cards[1].ID != TileActiveUsers {
		t.Fatalf("unexpected cards: %+v", cards)
	}
	if cards[0].Value != "2" || cards[1].Value != "2" || cards[1].Subtitle != "of 3" {
		t.Fatalf("unexpected values: %+v", cards)
	}
}

func TestDeviceTilesFallBackToList(t *testing.T) {
	snap := dashboard.EmptySnapshot("network_admin", "24h")
	snap.Devices = []model.Device{
		{Name: "a", Status: model.DeviceOnline, HealthScore: 90},
		{Name: "b", Status: model.DeviceOffline, HealthScore: 10, RecentAlerts: 8},
		{Name: "c", Status: model.DeviceOnline, HealthScore: 80},
	}
	role := dashboard.Role{Tiles: []string{TileDevicesOnline, TileDevicesOffline, TileAvgHealth, TileNoisyDevices}}
	cards := Build(role, snap)

	if c := find(t, cards, TileDevicesOnline); c.Value != "2" || c.Subtitle != "of 3" {
		t.Errorf("online = %+v", c)
	}
	if c := find(t, cards, TileDevicesOffline); c.Value != "1" || c.Tone != model.ToneCritical {
		t.Errorf("offline = %+v", c)
	}
	if c := find(t, cards, TileAvgHealth); c.Value != "60%" || c.Subtitle != "1 unhealthy" {
		t.Errorf("avg health = %+v", c)
	}
	if c := find(t, cards, TileNoisyDevices); c.Value != "1" || c.Badge != "b (8)" {
		t.Errorf("noisy = %+v", c)
	}
}

func TestMissingDataIsNotAvailable(t *testing.T) {
	role := dashboard.Role{Tiles: []string{TileAvgHealth, TileAIAccuracy}}
	for _, c := range Build(role, dashboard.EmptySnapshot("sre", "7d")) {
		if c.Value != model.NotAvailable {
			t.Errorf("%s = %q, want %s", c.ID, c.Value, model.NotAvailable)
		}
	}
}

func TestTrendTiles(t *testing.T) {
	snap := dashboard.EmptySnapshot("sre", "7d")
	snap.Trends = []model.TrendKPI{
		{Name: "MTTR", Current: 30, Previous: 40},
		{Name: "Uptime", Current: 99.5, Previous: 99.5},
	}
	cards := Build(dashboard.Role{Tiles: []string{TileTrends}}, snap)
	if len(cards) != 2 {
		t.Fatalf("expected one card per trend, got %d", len(cards))
	}
	mttr := cards[0]
	if mttr.Trend.Direction != model.TrendDown || !mttr.Trend.IsPositive || mttr.Trend.Text != "-25%" {
		t.Errorf("mttr trend = %+v", mttr.Trend)
	}
	if cards[1].Trend.Direction != model.TrendStable || cards[1].Value != "99.5" {
		t.Errorf("uptime = %+v / %+v", cards[1], cards[1].Trend)
	}
}

func TestCompare(t *testing.T) {
	cases := []struct {
		cur, prev float64
		higher    bool
		dir, text string
		positive  bool
	}{
		{12, 10, true, model.TrendUp, "+20%", true},
		{12, 10, false, model.TrendUp, "+20%", false},
		{5, 10, false, model.TrendDown, "-50%", true},
		{3, 0, false, model.TrendUp, "+3", false},
		{7, 7, false, model.TrendStable, "no change", true},
	}
	for _, c := range cases {
		got := Compare(c.cur, c.prev, c.higher)
		if got.Direction != c.dir || got.Text != c.text || got.IsPositive != c.positive {
			t.Errorf("Compare(%v, %v, %v) = %+v", c.cur, c.prev, c.higher, got)
		}
	}
}

func TestTrackerComparesWithHistory(t *testing.T) {
	db, err := storage.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	tr := NewTracker(storage.NewKPIStorage(db))
	t0 := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	first := tr.Annotate("noc", []model.KPICard{{ID: TileCriticalAlerts, Value: "4", Numeric: 4}}, t0)
	if first[0].Trend != nil {
		t.Fatalf("no history yet, got trend %+v", first[0].Trend)
	}

	second := tr.Annotate("noc", []model.KPICard{
		{ID: TileCriticalAlerts, Value: "2", Numeric: 2},
		{ID: TileAvgHealth, Value: model.NotAvailable},
	}, t0.Add(2*time.Hour))
	got := second[0].Trend
	if got == nil || got.Direction != model.TrendDown || !got.IsPositive {
		t.Fatalf("expected improving trend, got %+v", got)
	}
	if second[1].Trend != nil {
		t.Fatal("unavailable card should not get a trend")
	}
}

func TestNilTrackerIsNoop(t *testing.T) {
	var tr *Tracker
	cards := []model.KPICard{{ID: TileAdmins, Value: "1", Numeric: 1}}
	if out := tr.Annotate("sysadmin", cards, time.Now()); out[0].Trend != nil {
		t.Fatal("nil tracker must not annotate")
	}
}
