package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/osshealth/gram/internal/models"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-repository sync state and row counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()

		for _, repoStr := range cfg.Repositories {
			fmt.Println(repoStr)

			repo, err := database.GetRepositoryByFullName(repoStr)
			if err != nil {
				return err
			}
			if repo == nil {
				fmt.Println("  never synced")
				continue
			}

			states, err := database.SyncStates(repoStr)
			if err != nil {
				return err
			}
			for _, st := range states {
				glyph := red("✗")
				switch st.LastStatus {
				case models.StatusCompleted:
					glyph = green("✓")
				case models.StatusPartial:
					glyph = yellow("⚠")
				}
				watermark := "none"
				if !st.Watermark.IsZero() {
					watermark = st.Watermark.Format(time.RFC3339)
				}
				fmt.Printf("  %s %-14s watermark %-21s last run %s\n",
					glyph, st.Kind, watermark, st.LastRunAt.Format(time.RFC3339))
				if st.LastError != "" {
					fmt.Printf("      %s\n", st.LastError)
				}
			}

			counts, err := database.TableCounts(repo.ID)
			if err != nil {
				return err
			}
			fmt.Printf("  rows: %d pull requests, %d issues, %d reviews, %d comments, %d releases\n",
				counts["pull_requests"], counts["issues"], counts["reviews"],
				counts["comments"], counts["releases"])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
