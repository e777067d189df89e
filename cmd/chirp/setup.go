// ABOUTME: Cobra command for interactive sign-in setup.
// ABOUTME: Launches the bubbletea wizard and saves the chosen mode, server, and handle.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/2389-research/chirp/internal/config"
	"github.com/2389-research/chirp/internal/storage"
	"github.com/2389-research/chirp/internal/tui"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Sign in locally or to a chirp API server",
	Long:  "Interactive wizard that picks local or remote storage, signs your handle in, and previews the timeline.",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	dataDir, err := cfg.GetDataDir()
	if err != nil {
		return fmt.Errorf("failed to resolve data dir: %w", err)
	}
	dbPath, err := cfg.GetDBPath()
	if err != nil {
		return fmt.Errorf("failed to resolve database path: %w", err)
	}
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = store.Close() }()

	identities := storage.NewIdentityStore(dataDir)
	name, err := identities.GetIdentity()
	if err != nil {
		return fmt.Errorf("failed to get identity: %w", err)
	}

	model := tui.NewSetupModel(tui.Connection{
		APIURL:   cfg.Remote.APIURL,
		APIKey:   cfg.Remote.APIKey,
		UserName: name,
	}, tui.Check(store))

	p := tea.NewProgram(model)
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tui.SetupModel)
	if !final.ShouldSave() {
		fmt.Println("Setup cancelled.")
		return nil
	}

	conn := final.Result()
	cfg.Remote.APIURL = conn.APIURL
	cfg.Remote.APIKey = conn.APIKey

	if err := cfg.Save(); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	if err := identities.SetIdentity(conn.UserName); err != nil {
		return fmt.Errorf("failed to set identity: %w", err)
	}

	fmt.Printf("Config saved to %s\n", config.GetConfigPath())
	fmt.Printf("Logged in as %s on %s\n", conn.UserName, conn.Mode)
	return nil
}
