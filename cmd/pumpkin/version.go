package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s (%s) %s/%s\n", titleStyle.Render("pumpkin"), version, commit, runtime.GOOS, runtime.GOARCH)
	},
}
