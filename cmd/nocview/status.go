package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/user/nocview/internal/daemon"
	"github.com/user/nocview/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show watcher status",
	Long:  "Show the state of the background watcher, its last polls and the action journal.",
	RunE:  runStatus,
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("46")).
		Bold(true)

	badStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

func runStatus(cmd *cobra.Command, args []string) error {
	running, pid := daemon.CheckRunning(cfg.DataDir)

	fmt.Println(titleStyle.Render("nocview status"))

	fmt.Print(labelStyle.Render("Watcher: "))
	if running {
		fmt.Println(okStyle.Render(fmt.Sprintf("Running (PID %d)", pid)))
	} else {
		fmt.Println(badStyle.Render("Stopped"))
	}

	if sf, err := daemon.ReadStatusFile(cfg.DataDir); err == nil {
		if !sf.StartTime.IsZero() {
			fmt.Print(labelStyle.Render("Started: "))
			fmt.Println(valueStyle.Render(sf.StartTime.Format("2006-01-02 15:04:05")))
		}
		if running {
			fmt.Print(labelStyle.Render("Uptime: "))
			fmt.Println(valueStyle.Render(sf.Uptime))
		}

		if len(sf.Roles) > 0 {
			fmt.Println()
			fmt.Println(titleStyle.Render("Roles"))
			for _, r := range sf.Roles {
				line := fmt.Sprintf("%d alerts, %d critical, period %s, %s",
					r.Alerts, r.Critical, r.Period, humanize.Time(r.FetchedAt))
				style := valueStyle
				if r.Critical > 0 {
					style = badStyle
				}
				fmt.Printf("  %s %s\n", labelStyle.Render(r.Role+":"), style.Render(line))
				if len(r.Failed) > 0 {
					fmt.Printf("    %s %s\n", labelStyle.Render("failed panels:"),
						badStyle.Render(strings.Join(r.Failed, ", ")))
				}
			}
		}

		if len(sf.Jobs) > 0 {
			fmt.Println()
			fmt.Println(titleStyle.Render("Jobs"))
			for _, job := range sf.Jobs {
				state := "idle"
				if job.Running {
					state = "running"
				}
				last := "never"
				if !job.LastRun.IsZero() {
					last = job.LastRun.Format("15:04:05")
				}
				fmt.Printf("  %s: %s (last: %s, runs: %d, errors: %d)\n",
					labelStyle.Render(job.Name),
					valueStyle.Render(state),
					last, job.Runs, job.ErrorCount)
				if job.LastError != "" {
					fmt.Printf("    %s\n", badStyle.Render(job.LastError))
				}
			}
		}
	}

	db, err := storage.Open(cfg.DataDir)
	if err != nil {
		return nil
	}
	defer db.Close()

	journal := storage.NewJournalStorage(db)
	fmt.Println()
	fmt.Println(titleStyle.Render("Action journal"))
	if n, err := journal.CountSince(time.Now().Add(-24 * time.Hour)); err == nil {
		fmt.Printf("  %s %s\n", labelStyle.Render("Last 24h:"), valueStyle.Render(humanize.Comma(int64(n))))
	}
	if recent, err := journal.Recent("", 1); err == nil && len(recent) > 0 {
		e := recent[0]
		style := okStyle
		if !e.OK {
			style = badStyle
		}
		fmt.Printf("  %s %s %s\n", labelStyle.Render("Latest:"),
			style.Render(e.Message), labelStyle.Render(humanize.Time(e.Timestamp)))
	}
	return nil
}
