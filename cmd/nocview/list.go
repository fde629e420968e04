package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/user/nocview/internal/dashboard"
	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/pipeline"
)

// listFlags are shared by the table commands.
type listFlags struct {
	query    string
	quick    []string
	filters  []string
	sort     string
	desc     bool
	page     int
	pageSize int
	all      bool
	json     bool
}

func (f *listFlags) register(cmd *cobra.Command) {
	f.registerFilters(cmd)
	cmd.Flags().IntVar(&f.page, "page", 1, "page number")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, "rows per page (default from config)")
	cmd.Flags().BoolVar(&f.all, "all", false, "print every matching row")
	cmd.Flags().BoolVar(&f.json, "json", false, "print JSON")
}

func (f *listFlags) registerFilters(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "free-text search")
	cmd.Flags().StringArrayVar(&f.quick, "quick", nil, `quick filter, repeatable (e.g. "Critical Only")`)
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "category filter name:value, repeatable")
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort key")
	cmd.Flags().BoolVar(&f.desc, "desc", false, "sort descending")
}

type checker interface {
	Check(pipeline.State) error
}

// state builds and validates the pipeline state described by the flags.
func (f *listFlags) state(p checker, defaultSize int) (pipeline.State, error) {
	st := pipeline.NewState(defaultSize)
	st.SetQuery(strings.TrimSpace(f.query))
	for _, name := range f.quick {
		st.SetQuick(name, true)
	}
	for _, flt := range f.filters {
		name, value, ok := strings.Cut(flt, ":")
		if !ok {
			return st, fmt.Errorf("invalid filter %q (want name:value)", flt)
		}
		st.SetCategory(name, value)
	}
	if f.sort != "" {
		st.SetSort(f.sort, f.desc)
	}
	if err := p.Check(st); err != nil {
		return st, err
	}
	if f.pageSize > 0 {
		st.SetPageSize(f.pageSize)
	}
	if f.page > 1 {
		st.SetPage(f.page)
	}
	return st, nil
}

// table describes how one collection is fetched and printed.
type table[T any] struct {
	panel    string
	pipeline func(dashboard.Options) *pipeline.Pipeline[T]
	items    func(dashboard.Snapshot) []T
	header   []string
	row      func(T) []string
}

func (t table[T]) run(f *listFlags) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	p := t.pipeline(a.Options())
	st, err := f.state(p, cfg.PageSize)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	d, _, err := loadPanels(ctx, a, t.panel)
	if err != nil {
		return err
	}
	snap := d.Snapshot()
	if len(snap.Failed) > 0 {
		return fmt.Errorf("failed to fetch %s", strings.Join(snap.Failed, ", "))
	}

	all := t.items(snap)
	if f.all {
		st.SetPageSize(len(all) + 1)
	}
	view := p.View(all, st)
	if f.json {
		return writeJSON(os.Stdout, view)
	}
	return t.print(os.Stdout, view)
}

func (t table[T]) print(w io.Writer, view pipeline.View[T]) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.header, "\t"))
	for _, item := range view.Items {
		fmt.Fprintln(tw, strings.Join(t.row(item), "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nPage %d of %d, %d of %d rows match\n",
		view.Page, view.TotalPages, view.Total, view.Unfiltered)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func when(t model.Timestamp) string {
	if t.IsZero() {
		return model.NotAvailable
	}
	return humanize.Time(t.Time)
}

var alertsTable = table[model.Alert]{
	panel:    dashboard.PanelAlerts,
	pipeline: dashboard.AlertPipeline,
	items:    func(s dashboard.Snapshot) []model.Alert { return s.Alerts },
	header:   []string{"ID", "SEVERITY", "STATUS", "DEVICE", "TITLE", "CONF", "RAISED"},
	row: func(a model.Alert) []string {
		return []string{a.ID, a.Severity, a.Status, a.Device.Name, a.DisplayTitle(),
			strconv.Itoa(a.Confidence) + "%", when(a.Timestamp)}
	},
}

var ticketsTable = table[model.Ticket]{
	panel:    dashboard.PanelTickets,
	pipeline: dashboard.TicketPipeline,
	items:    func(s dashboard.Snapshot) []model.Ticket { return s.Tickets },
	header:   []string{"ID", "NUMBER", "PRIORITY", "STATUS", "ASSIGNEE", "DEVICE", "TITLE", "CREATED"},
	row: func(t model.Ticket) []string {
		assignee := t.Assignee
		if assignee == "" {
			assignee = "-"
		}
		return []string{t.ID, t.Number, t.Priority, t.Status, assignee, t.DeviceName, t.Title, when(t.CreatedAt)}
	},
}

var devicesTable = table[model.Device]{
	panel:    dashboard.PanelDevices,
	pipeline: dashboard.DevicePipeline,
	items:    func(s dashboard.Snapshot) []model.Device { return s.Devices },
	header:   []string{"NAME", "IP", "TYPE", "STATUS", "HEALTH", "ALERTS", "LAST SEEN"},
	row: func(d model.Device) []string {
		return []string{d.Name, d.IP, d.Type, d.Status, strconv.Itoa(d.HealthScore),
			strconv.Itoa(d.RecentAlerts), when(d.LastSeen)}
	},
}

var usersTable = table[model.User]{
	panel:    dashboard.PanelUsers,
	pipeline: dashboard.UserPipeline,
	items:    func(s dashboard.Snapshot) []model.User { return s.Users },
	header:   []string{"ID", "USERNAME", "NAME", "EMAIL", "ROLE", "ACTIVE", "LAST LOGIN"},
	row: func(u model.User) []string {
		return []string{u.ID, u.Username, u.Name, u.Email, u.Role, strconv.FormatBool(u.Active), when(u.LastLogin)}
	},
}

var (
	alertsFlags  listFlags
	ticketsFlags listFlags
	devicesFlags listFlags
	usersFlags   listFlags
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List priority alerts",
	Long: `List the alerts of the selected period through the same search, filters
and sorting as the dashboards.

Examples:
  nocview alerts --quick "Critical Only" --quick Unacknowledged
  nocview alerts --filter severity:major --sort time --desc
  nocview alerts -q core --period 7d --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return alertsTable.run(&alertsFlags)
	},
}

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "List tickets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return ticketsTable.run(&ticketsFlags)
	},
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List managed devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return devicesTable.run(&devicesFlags)
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "List and manage dashboard users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return usersTable.run(&usersFlags)
	},
}

func init() {
	alertsFlags.register(alertsCmd)
	ticketsFlags.register(ticketsCmd)
	devicesFlags.register(devicesCmd)
	usersFlags.register(usersCmd)
}
