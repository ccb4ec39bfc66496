package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"profilesync/pkg/config"
	"profilesync/pkg/logger"
	"profilesync/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	noColor       bool
	backend       string
	spreadsheetID string
	dbPath        string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "profilesync",
	Short: "Sync scraped profiles into a spreadsheet under a strict API quota",
	Long: `profilesync reads pending usernames from a queue worksheet, scrapes each
profile page and reconciles the results into a profiles worksheet.

New profiles are inserted at the top, changed fields are rewritten and
highlighted, and every queue item ends up COMPLETED or FAILED. All spreadsheet
calls go through a single rate limiter that respects the per-minute quota.

Backends:
  - Google Sheets (default)
  - Local SQLite workbook (--backend sqlite)`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetColor(false)
		}
		logger.Version = version
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.profilesync.yaml or $HOME/.config/profilesync/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "table backend (sheets, sqlite)")
	rootCmd.PersistentFlags().StringVar(&spreadsheetID, "spreadsheet", "", "Google Sheets spreadsheet id")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite workbook path")

	rootCmd.SetVersionTemplate(`profilesync {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig resolves configuration from every source, merging the global
// flags with extra command flags, and initializes the global logger
func loadConfig(extra map[string]interface{}) (*config.Config, error) {
	flags := map[string]interface{}{
		"backend":     backend,
		"spreadsheet": spreadsheetID,
		"db":          dbPath,
		"log-level":   logLevel,
	}
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}
