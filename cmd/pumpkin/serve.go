package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/server"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run headless and stream the face to browsers",
	Long: `Runs the render loop without a window and serves the viewer page, a
websocket frame and event stream, and the control API.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (overrides server.listen)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, loader, err := loadConfig()
	if err != nil {
		return err
	}
	if serveListen != "" {
		cfg.Server.Listen = serveListen
	}

	a, err := newApp(cfg, loader)
	if err != nil {
		return err
	}
	defer a.close()

	srv, err := server.New(server.Deps{
		Player:   a.player,
		Frames:   a.loop,
		Face:     a.face,
		Controls: a.controls,
		Blink:    a.blink,
		Assets:   a.store,
		Events:   a.events,
		Logs:     a.log,
	}, server.Options{
		Listen:       cfg.Server.Listen,
		AllowOrigins: cfg.Server.AllowOrigins,
		DefaultText:  cfg.Generator.Text,
		Stream: server.StreamOptions{
			Format:  cfg.Render.FrameFormat,
			Quality: cfg.Render.JPEGQuality,
			FPS:     cfg.Render.StreamFPS,
		},
	}, a.component("server"))
	if err != nil {
		return err
	}
	a.log.SetOnLog(srv.BroadcastLog)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cron != nil {
		a.cron.Start()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.loop.Run(ctx) })
	g.Go(func() error { return srv.Run(ctx) })

	a.log.Info("serve", "Pumpkin is up", map[string]interface{}{
		"listen": cfg.Server.Listen,
		"fps":    cfg.Render.FPS,
	})
	err = g.Wait()
	a.log.SetOnLog(nil)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return err
}
