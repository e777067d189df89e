// ABOUTME: Version command for the chirp CLI.
// ABOUTME: Prints the build version injected with -ldflags.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the chirp version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("chirp %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
