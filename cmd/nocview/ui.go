package main

import (
	"github.com/spf13/cobra"

	"github.com/user/nocview/internal/tui"
	"github.com/user/nocview/internal/util"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the terminal dashboard",
	Long: `Launch the interactive role dashboard in the terminal.

The dashboard shows:
- KPI tiles with trends
- Critical alerts
- Alerts, tickets, devices and users tables with search and quick filters

Press ? inside the dashboard for key bindings, q to quit.`,
	RunE: runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	// Log lines would corrupt the alternate screen.
	util.InitLogger(cfg.LogLevel, cfg.LogFile, false)

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	role, err := a.Role(roleName)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	return tui.NewApp(a, role).Run(ctx)
}
