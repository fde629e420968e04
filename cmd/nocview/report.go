package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/user/nocview/internal/app"
	"github.com/user/nocview/internal/dashboard"
	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/report"
)

var reportOutput string

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a shift report",
	Long: `Generate a markdown shift report of the selected role: KPI tiles,
severity breakdown, critical alerts, open tickets, unhealthy devices and the
actions taken in the period.

Examples:
  nocview report
  nocview report --role manager --period 7d
  nocview report -o -`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext()
	defer stop()
	d, _, err := loadPanels(ctx, a)
	if err != nil {
		return err
	}
	role, snap := d.Role(), d.Snapshot()
	cards := a.Cards(role, snap)

	if reportOutput == "" {
		path, err := a.ShiftReport(role, snap, cards)
		if err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Printf("Report saved to: %s\n", path)
		return nil
	}

	data, err := report.NewGenerator(a.DB).Generate(app.ReportInput(role, snap, cards))
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	content := report.FormatMarkdown(data)
	if reportOutput == "-" {
		fmt.Println(content)
		return nil
	}
	if err := os.WriteFile(reportOutput, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Printf("Report saved to: %s\n", reportOutput)
	return nil
}

var (
	exportFormat string
	exportLocal  bool
	exportFlags  listFlags
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an alerts report",
	Long: `Download the backend's alerts report into the report directory, or with
--local write the filtered alerts table to a CSV file without asking the
backend for it. A failed export writes no file.

Examples:
  nocview export --format pdf
  nocview export --local --quick "Critical Only"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !exportLocal {
			return withActions(func(ctx context.Context, _ *app.App, actions *dashboard.Actions) model.Notice {
				return actions.Export(ctx, exportFormat)
			})
		}

		return withActions(func(ctx context.Context, a *app.App, actions *dashboard.Actions) model.Notice {
			alerts, err := filteredAlerts(ctx, a)
			if err != nil {
				return model.Notice{Level: model.NoticeError, Message: err.Error()}
			}
			return actions.ExportLocal(alerts)
		})
	},
}

// filteredAlerts returns every alert matching the export filters, unpaginated.
func filteredAlerts(ctx context.Context, a *app.App) ([]model.Alert, error) {
	p := dashboard.AlertPipeline(a.Options())
	st, err := exportFlags.state(p, cfg.PageSize)
	if err != nil {
		return nil, err
	}
	d, _, err := loadPanels(ctx, a, dashboard.PanelAlerts)
	if err != nil {
		return nil, err
	}
	return p.Apply(d.Snapshot().Alerts, st), nil
}

var kpisCmd = &cobra.Command{
	Use:   "kpis",
	Short: "Show the KPI tiles of a role",
	Long: `Fetch the selected role once and print its KPI tiles. Each run is recorded
in the KPI history so later runs show a trend.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signalContext()
		defer stop()
		d, _, err := loadPanels(ctx, a)
		if err != nil {
			return err
		}
		snap := d.Snapshot()
		cards := a.Cards(d.Role(), snap)
		if kpisJSON {
			return writeJSON(os.Stdout, cards)
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "KPI\tVALUE\tTREND\tNOTE")
		for _, c := range cards {
			trend := "-"
			if c.Trend != nil {
				trend = c.Trend.Text
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Label, c.Value, trend, c.Subtitle)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if len(snap.Failed) > 0 {
			fmt.Printf("\nUnavailable: %s\n", strings.Join(snap.Failed, ", "))
		}
		return nil
	},
}

var kpisJSON bool

var (
	historyAction string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the action journal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Journal.Recent(historyAction, historyLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("No actions recorded")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "WHEN\tACTION\tTARGET\tOK\tMESSAGE")
		for _, e := range entries {
			ok := "yes"
			if !e.OK {
				ok = "no"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				humanize.Time(e.Timestamp), e.Action, e.Target, ok, e.Message)
		}
		return tw.Flush()
	},
}

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List the role dashboards",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ROLE\tTITLE\tREFRESH\tPERIOD\tTABS")
		for _, name := range a.Roles.Names() {
			r := a.Roles[name]
			marker := ""
			if name == cfg.Role {
				marker = " *"
			}
			fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\t%s\n", name, marker, r.Title,
				r.Interval.Round(time.Second), r.Period, strings.Join(r.Tabs, ","))
		}
		return tw.Flush()
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "",
		"output file path, - for stdout (default: report directory)")

	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "backend report format (csv, pdf)")
	exportCmd.Flags().BoolVar(&exportLocal, "local", false, "write the filtered alerts table instead")
	exportFlags.registerFilters(exportCmd)

	kpisCmd.Flags().BoolVar(&kpisJSON, "json", false, "print JSON")

	historyCmd.Flags().StringVar(&historyAction, "action", "", "only this action (e.g. acknowledge)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of entries")
}
