// Package cli provides the command-line interface for ReelSmith.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"reelsmith-desktop/internal/bootstrap"
	"reelsmith-desktop/internal/config"

	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	cfg       config.Config
	svc       *bootstrap.Services
	closeLogs func() error

	// serviceOptions is extended by tests to swap the AI provider.
	serviceOptions []bootstrap.Option
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "reelsmith",
	Short: "Turn analyzed Instagram Reels into vertical video exports",
	Long: `ReelSmith analyzes the visual style of an Instagram Reel, keeps the
results as ideas, and exports short vertical videos from your own media
using one of the built-in templates.

Configuration is read from the environment (and a .env file when present).`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip service setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		cfg = config.Load()
		level := cfg.LogLevel
		if verbose {
			level = slog.LevelDebug
		} else if level < slog.LevelWarn {
			level = slog.LevelWarn
		}
		var log *slog.Logger
		log, closeLogs = config.SetupLogger(cfg.LogFile, level)

		var err error
		svc, err = bootstrap.New(cfg, log, serviceOptions...)
		if err != nil {
			return fmt.Errorf("initialize services: %w", err)
		}
		return nil
	},
}

// Execute runs the root command with the process arguments.
func Execute() error {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) error {
	defer closeServices()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.Execute()
}

func closeServices() {
	if svc != nil {
		if err := svc.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
		}
		svc = nil
	}
	if closeLogs != nil {
		_ = closeLogs()
		closeLogs = nil
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(ideasCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(mediaCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(apikeyCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(serveCmd)
}
