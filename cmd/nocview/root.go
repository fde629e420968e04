package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/nocview/internal/app"
	"github.com/user/nocview/internal/dashboard"
	"github.com/user/nocview/internal/util"
)

var (
	cfgFile    string
	logLevel   string
	roleName   string
	periodFlag string
	cfg        *util.Config
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "nocview",
	Short: "Role dashboards for a network operations backend",
	Long: `nocview polls a network operations backend and presents role dashboards:
- Priority alerts with search, quick filters and pagination
- Tickets, devices and users
- KPI tiles with trends recorded in a local history
- Acknowledge, ticket and user actions, report export

Dashboards run in the terminal (ui) or in a browser (web). The watcher
(start) keeps polling in the background to build up KPI history.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.nocview/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&roleName, "role", "r", "",
		"role dashboard (default from config)")
	rootCmd.PersistentFlags().StringVar(&periodFlag, "period", "",
		"alert time period (1h, 24h, 7d, 30d)")

	rootCmd.AddCommand(uiCmd)
	rootCmd.AddCommand(webCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(alertsCmd)
	rootCmd.AddCommand(ticketsCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(usersCmd)
	rootCmd.AddCommand(kpisCmd)
	rootCmd.AddCommand(ackCmd)
	rootCmd.AddCommand(ticketCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(rolesCmd)
	rootCmd.AddCommand(versionCmd)

	// Add shell completion
	rootCmd.AddCommand(completionCmd)
}

func initConfig() {
	var err error
	cfg, err = util.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if periodFlag != "" {
		if !dashboard.ValidPeriod(periodFlag) {
			fmt.Fprintf(os.Stderr, "Invalid period %q (valid: %v)\n", periodFlag, dashboard.Periods)
			os.Exit(1)
		}
		cfg.Period = periodFlag
	}

	util.InitLogger(cfg.LogLevel, cfg.LogFile, true)
}

// openApp builds the shared collaborators. The caller closes it.
func openApp() (*app.App, error) {
	a, err := app.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return a, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// loadPanels fetches one snapshot of the selected role, limited to the
// given panels so that one-shot commands only hit the endpoints they show.
func loadPanels(ctx context.Context, a *app.App, panels ...string) (*dashboard.Dashboard, *dashboard.Actions, error) {
	role, err := a.Role(roleName)
	if err != nil {
		return nil, nil, err
	}
	if len(panels) > 0 {
		role.Panels = panels
	}
	d, actions := a.NewDashboard(role)
	if err := d.Load(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", role.Name, err)
	}
	return d, actions, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("nocview version %s\n", version)
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for nocview.

To load completions:

Bash:
  $ source <(nocview completion bash)

Zsh:
  $ source <(nocview completion zsh)

Fish:
  $ nocview completion fish | source

PowerShell:
  PS> nocview completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			return cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			return cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}
