package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/tui"
)

var (
	panelServer string
	panelPoll   time.Duration
)

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Terminal control panel for a running 'pumpkin serve'",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := panelServer
		if target == "" {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			target = cfg.Server.Listen
			if strings.HasPrefix(target, ":") {
				target = "localhost" + target
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return tui.Run(ctx, target, panelPoll)
	},
}

func init() {
	panelCmd.Flags().StringVar(&panelServer, "server", "", "server address (default from server.listen)")
	panelCmd.Flags().DurationVar(&panelPoll, "poll", time.Second, "state refresh interval")
}
