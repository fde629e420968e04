package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/nocview/internal/web"
)

var webPort int

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Start the web dashboard",
	Long: `Start the browser dashboard and its JSON API.

Every role is served from the same process; pick one with ?role=.

Examples:
  nocview web
  nocview web --port 9090`,
	RunE: runWeb,
}

func init() {
	webCmd.Flags().IntVarP(&webPort, "port", "p", 0, "Web server port (default from config)")
}

func runWeb(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	port := webPort
	if port == 0 {
		port = cfg.WebPort
	}

	ctx, stop := signalContext()
	defer stop()

	fmt.Printf("Starting web server on http://localhost:%d\n", port)
	fmt.Println("Press Ctrl+C to stop")
	return web.NewServer(a, port).Start(ctx)
}
