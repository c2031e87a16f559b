package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/reggie-martin-labs/AI-Pumpkin/internal/config"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		} else {
			dir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			path = filepath.Join(dir, "config.yaml")
		}

		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.Save(config.DefaultConfig(), path); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Println(successStyle.Render("✓ Config written to " + path))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, loader, err := loadConfig()
		if err != nil {
			return err
		}
		src := loader.File()
		if src == "" {
			src = "defaults"
		}
		fmt.Println(dimStyle.Render("# source: " + src))
		fmt.Printf("assets:    %s (watch %v)\n", cfg.Assets.Dir, cfg.Assets.Watch)
		fmt.Printf("render:    %d fps, stream %s @ %d fps\n", cfg.Render.FPS, cfg.Render.FrameFormat, cfg.Render.StreamFPS)
		fmt.Printf("blink:     enabled=%v every %s ±%s for %s\n", cfg.Blink.Enabled, cfg.Blink.Interval, cfg.Blink.Jitter, cfg.Blink.Duration)
		fmt.Printf("generator: %s (timeout %s)\n", cfg.Generator.URL, cfg.Generator.Timeout)
		fmt.Printf("audio:     enabled=%v %d Hz\n", cfg.Audio.Enabled, cfg.Audio.SampleRate)
		fmt.Printf("server:    %s\n", cfg.Server.Listen)
		fmt.Printf("schedule:  enabled=%v %q\n", cfg.Schedule.Enabled, cfg.Schedule.Spec)
		fmt.Printf("log:       %s level=%s\n", cfg.Log.Dir, cfg.Log.Level)
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
}
