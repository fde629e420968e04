package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/nocview/internal/daemon"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background watcher",
	RunE:  runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	running, pid := daemon.CheckRunning(cfg.DataDir)
	if !running {
		fmt.Println("Watcher is not running")
		return nil
	}

	fmt.Printf("Stopping watcher (PID %d)...\n", pid)
	if err := daemon.SendStop(cfg.DataDir); err != nil {
		return fmt.Errorf("failed to stop watcher: %w", err)
	}

	for i := 0; i < 30; i++ {
		time.Sleep(time.Second)
		if running, _ := daemon.CheckRunning(cfg.DataDir); !running {
			fmt.Println("Watcher stopped")
			return nil
		}
	}

	fmt.Println("Warning: watcher may not have stopped completely")
	return nil
}
