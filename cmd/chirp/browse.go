// ABOUTME: Cobra command for the interactive timeline browser.
// ABOUTME: Launches the bubbletea timeline with likes, compose, and infinite scroll.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/chirp/internal/feed"
	"github.com/2389-research/chirp/internal/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse the timeline interactively",
	Long:  "Scroll the timeline, like tweets, and post new ones in a terminal UI.",
	Args:  cobra.NoArgs,
	RunE:  runBrowse,
}

var browseAuthor string

func init() {
	rootCmd.AddCommand(browseCmd)
	browseCmd.Flags().StringVar(&browseAuthor, "author", "", "Only show tweets by this author")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	tl := newTimeline(browseAuthor, 0)
	defer tl.Close()

	composer := feed.NewComposer(globalAPI, globalCache, globalAuth, globalLogger)
	model := tui.NewTimelineModel(tl, composer, globalAuth)

	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
