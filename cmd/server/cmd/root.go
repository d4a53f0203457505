// Package cmd contains the CLI commands for the notify server.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-notify/internal/app"
	"github.com/vovakirdan/wirechat-notify/internal/config"
	"github.com/vovakirdan/wirechat-notify/internal/log"
)

var (
	// Version info (set from main)
	version   = "dev"
	gitCommit = "unknown"

	// Global flags
	cfgFile   string
	overrides config.Config
)

// rootCmd runs the notification fan-out server.
var rootCmd = &cobra.Command{
	Use:   "notify-server",
	Short: "Real-time notification fan-out for the wirechat platform",
	Long: `notify-server bridges committed writes on the chat database into
live per-user event streams. It LISTENs on the database's change
notification channel, resolves each notification's recipient set, and
pushes events to connected clients over server-sent events (or a
WebSocket, if they prefer).`,
	SilenceUsage: true,
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		bootstrapLogger := log.New("info")
		cfg, path, err := config.Load(bootstrapLogger, cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg.UpdateFrom(overrides)

		logger := log.New(cfg.LogLevel)
		logger.Info().
			Str("config", path).
			Str("addr", cfg.Addr).
			Str("notify_channel", cfg.NotifyChannel).
			Msg("starting notify server")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application := app.New(cfg, logger)
		if err := application.Run(ctx); err != nil {
			return fmt.Errorf("server exited: %w", err)
		}
		logger.Info().Msg("server stopped")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cobraCmd *cobra.Command, args []string) {
		fmt.Printf("notify-server %s (%s)\n", version, gitCommit)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersionInfo sets version information from the main package.
func SetVersionInfo(v, gc string) {
	version = v
	gitCommit = gc
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./notify.yaml)")
	rootCmd.Flags().StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	rootCmd.Flags().StringVar(&overrides.DatabaseURL, "database-url", "", "Postgres connection string")
	rootCmd.Flags().StringVar(&overrides.NotifyChannel, "notify-channel", "", "database notification channel to LISTEN on")
	rootCmd.Flags().DurationVar(&overrides.Heartbeat, "heartbeat", 0, "keep-alive interval for idle streams")
	rootCmd.Flags().StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
}
