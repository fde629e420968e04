package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/user/nocview/internal/dashboard"
	"github.com/user/nocview/internal/model"
)

func TestListFlagsState(t *testing.T) {
	p := dashboard.AlertPipeline(dashboard.Options{})

	f := listFlags{
		query:    " core ",
		quick:    []string{dashboard.QuickCritical},
		filters:  []string{"status:open"},
		sort:     "severity",
		desc:     true,
		page:     2,
		pageSize: 5,
	}
	st, err := f.state(p, 10)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if st.Query != "core" || st.Categories["status"] != "open" || st.SortKey != "severity" || !st.SortDesc {
		t.Fatalf("state = %+v", st)
	}
	if st.Page != 2 || st.PageSize != 5 {
		t.Fatalf("paging = %d/%d", st.Page, st.PageSize)
	}

	bad := []listFlags{
		{filters: []string{"severity"}},
		{filters: []string{"colour:red"}},
		{quick: []string{"Nope"}},
		{sort: "flavour"},
	}
	for _, b := range bad {
		if _, err := b.state(p, 10); err == nil {
			t.Errorf("expected error for %+v", b)
		}
	}
}

func TestTablePrint(t *testing.T) {
	p := dashboard.AlertPipeline(dashboard.Options{})
	alerts := []model.Alert{
		{ID: "a1", Severity: "critical", Status: "open", Title: "Core link down"},
		{ID: "a2", Severity: "minor", Status: "open", Title: "Disk 80%"},
	}
	st, _ := (&listFlags{quick: []string{dashboard.QuickCritical}}).state(p, 10)

	var buf bytes.Buffer
	if err := alertsTable.print(&buf, p.View(alerts, st)); err != nil {
		t.Fatalf("print: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Core link down") || strings.Contains(out, "Disk 80%") {
		t.Fatalf("unexpected rows:\n%s", out)
	}
	if !strings.Contains(out, "1 of 2 rows match") {
		t.Fatalf("missing footer:\n%s", out)
	}
	if !strings.Contains(out, model.NotAvailable) {
		t.Fatalf("zero timestamps should print %s:\n%s", model.NotAvailable, out)
	}
}
