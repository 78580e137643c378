// Package cli wires the cobra commands: serve, iss and mars
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go-space/internal/config"
	"go-space/internal/logging"

	"github.com/spf13/cobra"
)

// cfg holds the loaded configuration for every subcommand
var cfg *config.AppConfig

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "go-space",
		Short: "Space dashboard service and terminal client",
		Long: `go-space serves NASA astronomy, near-earth object, Mars rover and ISS data
behind a caching JSON API, and includes terminal views driven by that API.

Configuration is read from defaults, an optional YAML file named by CONFIG_PATH,
and environment variables such as NASA_API_KEY and DATABASE_URL.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.LoadConfig()
			if err != nil {
				return err
			}
			cfg = loaded
			logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
			return nil
		},
	}

	root.AddCommand(newServeCmd(), newIssCmd(), newMarsCmd())
	return root
}

// Execute runs the root command until it finishes or the process is interrupted
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}
