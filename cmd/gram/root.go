package main

import (
	"io"
	"log"
	"os"

	"github.com/osshealth/gram/config"
	"github.com/osshealth/gram/internal/db"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "gram",
	Short: "GitHub repository activity metrics",
	Long: `gram incrementally syncs pull requests, issues, reviews, comments and
releases from the GitHub API into a local SQLite database, and computes the
aggregate metrics consumed by the activity dashboard.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "config.json", "Path to configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
}

// newLogger builds the component logger: discard by default, stderr under
// --verbose.
func newLogger(cmd *cobra.Command) *log.Logger {
	verbose, _ := cmd.InheritedFlags().GetBool("verbose")
	logger := log.New(io.Discard, "", log.LstdFlags)
	if verbose {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.LoadConfig(configPath(cmd))
}

func openDatabase(cfg *config.Config) (*db.DB, error) {
	database, err := db.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := database.Initialize(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}
