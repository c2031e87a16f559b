package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/display"
)

var (
	windowScale float64
	windowHUD   bool
)

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Show the face in a desktop window",
	Long: `Opens a window that renders the face at the display refresh rate.

Keys:
  S / space   speak
  R           replay
  ↑ / ↓       bob amplitude
  ← / →       glow
  B           toggle blinking
  H           toggle status overlay
  Esc / Q     quit`,
	RunE: runWindow,
}

func init() {
	windowCmd.Flags().Float64Var(&windowScale, "scale", 1, "initial window scale")
	windowCmd.Flags().BoolVar(&windowHUD, "hud", false, "show the status overlay")
}

func runWindow(cmd *cobra.Command, args []string) error {
	cfg, loader, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg, loader)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cron != nil {
		a.cron.Start()
	}

	win := display.New(display.Deps{
		Frames:   a.loop,
		Trigger:  a.player,
		Face:     a.face,
		Controls: a.controls,
		Blink:    a.blink,
		Clock:    a.clock,
	}, display.Options{
		Scale: windowScale,
		Text:  cfg.Generator.Text,
		HUD:   windowHUD,
	}, a.component("display"))
	stopNotices := a.events.SubscribeOrdered(display.NoticeEvents, win.Notify)
	defer stopNotices()

	meta := a.store.Current().Meta
	w, h := cfg.Render.Width, cfg.Render.Height
	if w <= 0 || h <= 0 {
		w, h = meta.Width(), meta.Height()
	}
	return win.Run(ctx, w, h, cfg.Render.FPS)
}
