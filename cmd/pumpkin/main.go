// Command pumpkin animates a talking jack-o'-lantern: a render loop composes
// the face, a lip-sync player drives the mouth from generated lines, and the
// result is shown in a window or streamed to browsers.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	// Version information (set at build time)
	version = "dev"
	commit  = "none"

	cfgFile string
	verbose bool

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#e8761b"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7bd88f"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

var rootCmd = &cobra.Command{
	Use:   "pumpkin",
	Short: "AI Pumpkin - a talking jack-o'-lantern face",
	Long: titleStyle.Render("AI Pumpkin") + `

Animates a pumpkin face with blinking, a gentle bob, a glow and a mouth that
follows generated speech.

Configuration:
  1. --config flag (explicit path)
  2. $HOME/.ai-pumpkin/config.yaml
  3. ./config.yaml
Every key can be overridden with PUMPKIN_<SECTION>_<KEY>, e.g. PUMPKIN_SERVER_LISTEN.

` + dimStyle.Render("Use 'pumpkin [command] --help' for more information."),
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ai-pumpkin/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(serveCmd, windowCmd, panelCmd, configCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
