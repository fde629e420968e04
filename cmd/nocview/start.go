package main

import (
	"fmt"
	"os"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/nocview/internal/daemon"
	"github.com/user/nocview/internal/util"
	"github.com/user/nocview/internal/web"
)

var (
	foreground   bool
	withWeb      bool
	startWebPort int
)

var startCmd = &cobra.Command{
	Use:   "start [role...]",
	Short: "Start the background watcher",
	Long: `Start the watcher in the background. It polls the given roles (default:
watch_roles from the config, or every role) on their refresh interval,
records KPI history for trends and prunes old history.

Examples:
  nocview start
  nocview start noc manager --with-web
  nocview start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false,
		"Run in foreground instead of daemonizing")
	startCmd.Flags().BoolVar(&withWeb, "with-web", false,
		"Also start the web dashboard server")
	startCmd.Flags().IntVar(&startWebPort, "web-port", 0,
		"Port for web server (when using --with-web, default from config)")
}

func runStart(cmd *cobra.Command, args []string) error {
	if running, pid := daemon.CheckRunning(cfg.DataDir); running {
		fmt.Printf("Watcher is already running (PID %d)\n", pid)
		return nil
	}
	if startWebPort == 0 {
		startWebPort = cfg.WebPort
	}

	if foreground {
		return runForeground(args)
	}
	return runBackground(args)
}

func runForeground(roles []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := daemon.New(a, roles)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := d.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	ctx, stop := signalContext()
	defer stop()

	webDone := make(chan struct{})
	if withWeb {
		go func() {
			defer close(webDone)
			fmt.Printf("Web dashboard: http://localhost:%d\n", startWebPort)
			if err := web.NewServer(a, startWebPort).Start(ctx); err != nil {
				util.Error("Web server error: %v", err)
			}
		}()
	} else {
		close(webDone)
	}

	fmt.Println("Watcher started. Press Ctrl+C to stop.")
	d.Wait()
	stop()
	<-webDone
	return d.Stop()
}

func runBackground(roles []string) error {
	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	args := []string{executable, "start", "--foreground"}
	if cfgFile != "" {
		args = append(args, "--config", cfgFile)
	}
	if logLevel != "" {
		args = append(args, "--log-level", logLevel)
	}
	if periodFlag != "" {
		args = append(args, "--period", periodFlag)
	}
	if withWeb {
		args = append(args, "--with-web", "--web-port", strconv.Itoa(startWebPort))
	}
	args = append(args, roles...)

	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()

	proc, err := os.StartProcess(executable, args, &os.ProcAttr{
		Dir:   "/",
		Env:   os.Environ(),
		Files: []*os.File{nil, logFile, logFile},
		Sys:   &syscall.SysProcAttr{Setsid: true},
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher process: %w", err)
	}
	if err := proc.Release(); err != nil {
		util.Warn("Failed to release process: %v", err)
	}

	fmt.Printf("Watcher started (PID %d)\n", proc.Pid)
	fmt.Printf("Logs: %s\n", cfg.LogFile)
	if withWeb {
		fmt.Printf("Web dashboard: http://localhost:%d\n", startWebPort)
	}
	return nil
}
