// ABOUTME: Root Cobra command and global state for the chirp CLI.
// ABOUTME: Loads config, builds the logger, query cache, identity, and tweet API per run.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/2389-research/chirp/internal/auth"
	"github.com/2389-research/chirp/internal/config"
	"github.com/2389-research/chirp/internal/feed"
	"github.com/2389-research/chirp/internal/logging"
	"github.com/2389-research/chirp/internal/models"
	"github.com/2389-research/chirp/internal/querycache"
	"github.com/2389-research/chirp/internal/storage"
)

var (
	globalConfig     *config.Config
	globalLogger     *zap.Logger
	globalCache      *querycache.Cache
	globalIdentities *storage.IdentityStore
	globalStore      *storage.SQLiteStore
	globalAPI        feed.API
	globalAuth       auth.Provider
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "chirp",
	Short: "A small tweet timeline for humans and agents",
	Long: `
 ██████╗██╗  ██╗██╗██████╗ ██████╗
██╔════╝██║  ██║██║██╔══██╗██╔══██╗
██║     ███████║██║██████╔╝██████╔╝
██║     ██╔══██║██║██╔══██╗██╔═══╝
╚██████╗██║  ██║██║██║  ██║██║
 ╚═════╝╚═╝  ╚═╝╚═╝╚═╝  ╚═╝╚═╝

Post tweets, like them, and scroll an infinite timeline.
Local-first with an optional remote API server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "setup" {
			return nil
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		globalConfig = cfg

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger, err := logging.New(cfg.Log.JSON, level)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		globalLogger = logger

		cache, err := querycache.New(querycache.DefaultSize)
		if err != nil {
			return fmt.Errorf("failed to create query cache: %w", err)
		}
		globalCache = cache

		dataDir, err := cfg.GetDataDir()
		if err != nil {
			return fmt.Errorf("failed to resolve data dir: %w", err)
		}
		globalIdentities = storage.NewIdentityStore(dataDir)
		globalAuth = auth.NewIdentityProvider(globalIdentities, func() {
			logger.Warn("sign in required", zap.String("hint", "chirp login <name>"))
		})

		// serve always owns the local database; everything else follows config.
		if cfg.HasRemote() && cmd.Name() != "serve" {
			logger.Debug("using remote API", zap.String("url", cfg.Remote.APIURL))
			globalAPI = storage.NewRemoteClient(cfg.Remote.APIURL, cfg.Remote.APIKey, globalIdentities)
			return nil
		}

		dbPath, err := cfg.GetDBPath()
		if err != nil {
			return fmt.Errorf("failed to resolve database path: %w", err)
		}
		store, err := storage.NewSQLiteStore(dbPath)
		if err != nil {
			return fmt.Errorf("failed to open tweet store: %w", err)
		}
		logger.Debug("using local store", zap.String("path", dbPath))
		globalStore = store
		globalAPI = storage.NewLocalAPI(store, globalIdentities)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if globalStore != nil {
			_ = globalStore.Close()
			globalStore = nil
		}
		if globalLogger != nil {
			_ = globalLogger.Sync()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// newTimeline subscribes to the timeline for the given filter. A zero limit
// falls back to timeline.limit from config.
func newTimeline(author string, limit int) *feed.Timeline {
	if limit <= 0 {
		limit = globalConfig.TimelineLimit()
	}
	input := models.TimelineInput{
		Where: models.TimelineWhere{AuthorName: author},
		Limit: limit,
	}
	return feed.NewTimeline(globalAPI, globalCache, input,
		feed.WithAuth(globalAuth),
		feed.WithLogger(globalLogger),
	)
}
