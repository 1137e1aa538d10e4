package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/osshealth/gram/internal/metrics"
	"github.com/spf13/cobra"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics owner/name",
	Short: "Compute the metrics snapshot for a repository",
	Long: `Metrics computes the aggregate snapshot (overview, pull request and issue
flow, release cadence, daily activity) from the local database and emits it
as JSON. The snapshot is the only contract the dashboard depends on.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		outPath, _ := cmd.Flags().GetString("out")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		aggregator := metrics.New(database, cfg.BotLogins)
		aggregator.SetLogger(newLogger(cmd))

		snapshot, err := aggregator.Snapshot(context.Background(), args[0], days)
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		data = append(data, '\n')

		if outPath == "" {
			_, err = os.Stdout.Write(data)
			return err
		}
		if err := os.WriteFile(outPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(metricsCmd)
	metricsCmd.Flags().Int("days", 0, "Window in days (0 = all time)")
	metricsCmd.Flags().String("out", "", "Write the snapshot to a file instead of stdout")
}
