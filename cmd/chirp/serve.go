// ABOUTME: Cobra command that runs the chirp HTTP API server.
// ABOUTME: Serves the local SQLite store until interrupted.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/2389-research/chirp/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chirp API server",
	Long: `Serve tweets, likes, and the timeline over HTTP from the local database.

Clients identify users with the x-user header. When serve.api_key is set
every request must also carry a matching x-api-key header.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, 127.0.0.1:8787)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	addr := serveAddr
	if addr == "" {
		addr = globalConfig.ServeAddr()
	}

	server := api.NewServer(globalStore,
		api.WithAPIKey(globalConfig.Serve.APIKey),
		api.WithLogger(globalLogger),
	)
	return server.ListenAndServe(ctx, addr)
}
