package pipeline

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

type row struct {
	ID       string
	Title    string
	Severity string
	Status   string
	Score    int
}

func testPipeline() *Pipeline[row] {
	return New(func(r row) []string { return []string{r.ID, r.Title} }).
		Category("severity", func(r row) string { return r.Severity }).
		Category("status", func(r row) string { return r.Status }).
		Quick(Predicate("Critical Only", func(r row) bool { return r.Severity == "critical" })).
		Quick(Predicate("Unacknowledged", func(r row) bool { return r.Status == "open" })).
		Quick(Repeated("Repeated", func(r row) string { return r.Title })).
		Sort("score", func(a, b row) int { return a.Score - b.Score })
}

func sampleRows() []row {
	return []row{
		{ID: "a1", Title: "Link Down", Severity: "critical", Status: "open", Score: 3},
		{ID: "a2", Title: "Link Down", Severity: "major", Status: "acknowledged", Score: 1},
		{ID: "a3", Title: "CPU High", Severity: "critical", Status: "acknowledged", Score: 2},
		{ID: "a4", Title: "Fan Failure", Severity: "minor", Status: "open", Score: 5},
		{ID: "a5", Title: "link flap", Severity: "critical", Status: "open", Score: 4},
	}
}

func ids(rows []row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}

func TestSearchIsCaseInsensitiveAnyField(t *testing.T) {
	p := testPipeline()
	s := NewState(10)
	s.SetQuery("LINK")
	got := ids(p.Apply(sampleRows(), s))
	want := []string{"a1", "a2", "a5"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	s.SetQuery("a4")
	if got := ids(p.Apply(sampleRows(), s)); !reflect.DeepEqual(got, []string{"a4"}) {
		t.Fatalf("id search: got %v", got)
	}
}

func TestCategoryAllBypasses(t *testing.T) {
	p := testPipeline()
	s := NewState(10)
	s.SetCategory("severity", All)
	if got := p.Apply(sampleRows(), s); len(got) != 5 {
		t.Fatalf("expected all rows, got %d", len(got))
	}
	s.SetCategory("severity", "Critical")
	if got := ids(p.Apply(sampleRows(), s)); !reflect.DeepEqual(got, []string{"a1", "a3", "a5"}) {
		t.Fatalf("got %v", got)
	}
}

func TestCategoryAllIgnoresCase(t *testing.T) {
	p := testPipeline()
	s := NewState(10)
	s.SetCategory("severity", "critical")
	for _, opt := range []string{"All", "ALL", " all "} {
		s.SetCategory("severity", opt)
		if _, ok := s.Categories["severity"]; ok {
			t.Fatalf("SetCategory(%q) stored an option: %v", opt, s.Categories)
		}
		if got := p.Apply(sampleRows(), s); len(got) != 5 {
			t.Fatalf("SetCategory(%q): expected all rows, got %d", opt, len(got))
		}
	}

	// States decoded from elsewhere may carry the sentinel verbatim.
	s.Categories["status"] = "All"
	if s.Category("status") != All || len(p.Apply(sampleRows(), s)) != 5 {
		t.Fatalf("stored All should bypass the filter")
	}
}

func TestQuickFiltersCombineWithAnd(t *testing.T) {
	p := testPipeline()
	s := NewState(10)
	s.ToggleQuick("Critical Only")
	s.ToggleQuick("Unacknowledged")
	got := ids(p.Apply(sampleRows(), s))
	if !reflect.DeepEqual(got, []string{"a1", "a5"}) {
		t.Fatalf("got %v", got)
	}

	s.ToggleQuick("Critical Only")
	if s.QuickActive("Critical Only") {
		t.Fatal("toggle should switch the filter off")
	}
}

func TestRepeatedCountsFullCollection(t *testing.T) {
	p := testPipeline()
	all := []row{
		{ID: "1", Title: "Link Down", Severity: "critical", Status: "open"},
		{ID: "2", Title: "Link Down", Severity: "major", Status: "open"},
		{ID: "3", Title: "CPU High", Severity: "critical", Status: "open"},
	}

	s := NewState(10)
	s.ToggleQuick("Repeated")
	if got := ids(p.Apply(all, s)); !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Fatalf("repeated: got %v", got)
	}

	// Narrowing to critical leaves a single "Link Down", which must still
	// count as repeated because frequency is taken over the full dataset.
	s.SetCategory("severity", "critical")
	if got := ids(p.Apply(all, s)); !reflect.DeepEqual(got, []string{"1"}) {
		t.Fatalf("repeated+critical: got %v", got)
	}
}

func TestRepeatedIgnoresEmptyKeys(t *testing.T) {
	p := testPipeline()
	all := []row{{ID: "1"}, {ID: "2"}}
	s := NewState(10)
	s.ToggleQuick("Repeated")
	if got := p.Apply(all, s); len(got) != 0 {
		t.Fatalf("empty titles must not be repeated, got %v", ids(got))
	}
}

func TestApplyIsIdempotentAndPure(t *testing.T) {
	p := testPipeline()
	all := sampleRows()
	before := append([]row(nil), all...)

	s := NewState(10)
	s.SetQuery("link")
	s.ToggleQuick("Unacknowledged")
	s.SetSort("score", true)

	once := p.Apply(all, s)
	twice := p.Apply(once, s)
	if !reflect.DeepEqual(ids(once), ids(twice)) {
		t.Fatalf("not idempotent: %v vs %v", ids(once), ids(twice))
	}
	if !reflect.DeepEqual(all, before) {
		t.Fatal("Apply mutated its input")
	}
	if !reflect.DeepEqual(ids(once), []string{"a5", "a1"}) {
		t.Fatalf("sort desc: got %v", ids(once))
	}
}

func TestUnknownFiltersAreIgnored(t *testing.T) {
	p := testPipeline()
	s := NewState(10)
	s.SetCategory("nope", "x")
	s.ToggleQuick("No Such Filter")
	s.SetSort("nope", false)
	if got := p.Apply(sampleRows(), s); len(got) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(got))
	}
}

func TestCheckRejectsUnknownNames(t *testing.T) {
	p := testPipeline()
	s := NewState(10)
	s.SetCategory("severity", "critical")
	s.SetQuick("Repeated", true)
	s.SetSort("score", true)
	if err := p.Check(s); err != nil {
		t.Fatalf("valid state rejected: %v", err)
	}

	for _, mutate := range []func(*State){
		func(s *State) { s.SetCategory("colour", "red") },
		func(s *State) { s.SetQuick("Nope", true) },
		func(s *State) { s.SetSort("nope", false) },
	} {
		bad := s.Clone()
		mutate(&bad)
		if err := p.Check(bad); err == nil {
			t.Errorf("expected error for %+v", bad)
		}
	}
}

func TestFilterChangesResetPage(t *testing.T) {
	mutations := map[string]func(*State){
		"query":    func(s *State) { s.SetQuery("link") },
		"category": func(s *State) { s.SetCategory("severity", "critical") },
		"quick":    func(s *State) { s.ToggleQuick("Critical Only") },
		"sort":     func(s *State) { s.SetSort("score", false) },
		"clear":    func(s *State) { s.ClearFilters() },
		"size":     func(s *State) { s.SetPageSize(25) },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			s := NewState(2)
			s.SetPage(3)
			mutate(&s)
			if s.Page != 1 {
				t.Fatalf("page = %d, want 1", s.Page)
			}
		})
	}
}

func TestClearFiltersKeepsPageSize(t *testing.T) {
	s := NewState(25)
	s.SetQuery("x")
	s.SetCategory("severity", "major")
	s.ToggleQuick("Critical Only")
	s.ClearFilters()
	if s.Query != "" || len(s.Categories) != 0 || len(s.Quick) != 0 || s.PageSize != 25 {
		t.Fatalf("unexpected state after clear: %+v", s)
	}
}

func TestPaginateReconstructsCollection(t *testing.T) {
	for n := 0; n <= 23; n++ {
		items := make([]int, n)
		for i := range items {
			items[i] = i
		}
		for size := 1; size <= 7; size++ {
			t.Run(fmt.Sprintf("n=%d/size=%d", n, size), func(t *testing.T) {
				var rebuilt []int
				pages := TotalPages(n, size)
				for page := 1; page <= pages; page++ {
					chunk := Paginate(items, page, size)
					if len(chunk) > size {
						t.Fatalf("page %d has %d items, size %d", page, len(chunk), size)
					}
					rebuilt = append(rebuilt, chunk...)
				}
				if len(rebuilt) != n {
					t.Fatalf("rebuilt %d items, want %d", len(rebuilt), n)
				}
				for i, v := range rebuilt {
					if v != i {
						t.Fatalf("gap or duplicate at %d: %v", i, rebuilt)
					}
				}
				if extra := Paginate(items, pages+1, size); len(extra) != 0 {
					t.Fatalf("page past the end returned %v", extra)
				}
			})
		}
	}
}

func TestPaginateDoesNotAliasAppend(t *testing.T) {
	items := []int{1, 2, 3, 4}
	first := Paginate(items, 1, 2)
	_ = append(first, 99)
	if items[2] != 3 {
		t.Fatalf("append through page overwrote source: %v", items)
	}
}

func TestViewClampsPage(t *testing.T) {
	p := testPipeline()
	s := NewState(2)
	s.SetPage(9)
	v := p.View(sampleRows(), s)
	if v.Page != 3 || v.TotalPages != 3 || len(v.Items) != 1 || v.Total != 5 || v.Unfiltered != 5 {
		t.Fatalf("unexpected view: %+v", v)
	}
}

func TestCountsOverUnfilteredCollection(t *testing.T) {
	var all []row
	for i := 0; i < 6; i++ {
		all = append(all, row{ID: fmt.Sprintf("c%d", i), Severity: "critical", Title: "Link Down"})
	}
	for i := 0; i < 4; i++ {
		all = append(all, row{ID: fmt.Sprintf("m%d", i), Severity: "major", Title: "Noise"})
	}

	p := testPipeline()
	s := NewState(10)
	s.SetQuery("c1")
	s.SetCategory("severity", "critical")
	view := p.View(all, s)
	if view.Total > 2 {
		t.Fatalf("filter should narrow the table, got %d rows", view.Total)
	}

	counts := Count(all, func(r row) string { return r.Severity }, []string{"critical", "major", "minor", "info"})
	if counts.Get("critical") != 6 || counts.Get("major") != 4 {
		t.Fatalf("unexpected counts: %+v", counts.Values)
	}
	if counts.Get("minor") != 0 || counts.Get("info") != 0 {
		t.Fatalf("unseen categories must default to zero: %+v", counts.Values)
	}
}

func TestCountsOther(t *testing.T) {
	rows := []row{{Severity: "critical"}, {Severity: "weird"}, {Severity: "CRITICAL"}}
	c := Count(rows, func(r row) string { return r.Severity }, []string{"critical", "major"})
	if c.Get("critical") != 2 || c.Other() != 1 || c.Total != 3 {
		t.Fatalf("unexpected counts: %+v other=%d", c, c.Other())
	}
}

func TestOptions(t *testing.T) {
	p := testPipeline()
	got := p.Options(sampleRows(), "status")
	want := []string{All, "acknowledged", "open"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got := p.Options(sampleRows(), "missing"); !reflect.DeepEqual(got, []string{All}) {
		t.Fatalf("unknown dropdown: %v", got)
	}
	if !strings.Contains(strings.Join(p.QuickNames(), ","), "Repeated") {
		t.Fatalf("quick names: %v", p.QuickNames())
	}
}
