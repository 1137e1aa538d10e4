package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/osshealth/gram/internal/api"
	"github.com/osshealth/gram/internal/models"
	"github.com/osshealth/gram/internal/sync"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync [owner/name ...]",
	Short: "Sync repository activity into the local database",
	Long: `Sync pulls each configured resource kind (pull requests, issues, reviews,
comments, releases) incrementally from the GitHub API. Kinds are isolated:
a failure in one does not stop the others, and each records its own
watermark. The exit code is non-zero when any kind did not complete.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		syncAll, _ := cmd.Flags().GetBool("all")
		full, _ := cmd.Flags().GetBool("full")
		enrich, _ := cmd.Flags().GetBool("enrich")
		kindNames, _ := cmd.Flags().GetStringSlice("kinds")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		repos := args
		if syncAll {
			repos = cfg.Repositories
		}
		if len(repos) == 0 {
			return fmt.Errorf("no repositories given; pass owner/name or --all")
		}

		var kinds []models.ResourceKind
		for _, name := range kindNames {
			kind, err := models.ParseKind(strings.TrimSpace(name))
			if err != nil {
				return err
			}
			kinds = append(kinds, kind)
		}

		logger := newLogger(cmd)

		database, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		client, err := api.NewClient(cfg.GitHubToken,
			api.WithLogger(logger), api.WithPerPage(cfg.PerPage))
		if err != nil {
			return err
		}

		syncer := sync.New(database, client)
		syncer.SetLogger(logger)
		if cfg.UseGraphQL && cfg.GitHubToken != "" {
			syncer.SetBulkStats(api.NewGraphQLClient(cfg.GitHubToken, logger))
		}

		ctx := context.Background()
		opts := sync.Options{Full: full, Kinds: kinds, Enrich: enrich}

		failed := false
		for _, repoStr := range repos {
			owner, name, err := sync.ParseRepositoryString(repoStr)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Skipping invalid repository %s: %v\n", repoStr, err)
				failed = true
				continue
			}

			report, err := syncer.SyncRepository(ctx, owner, name, opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Failed to sync %s: %v\n", repoStr, err)
				failed = true
				continue
			}

			printReport(report)
			if report.Failed() {
				failed = true
			}
		}

		if failed {
			return fmt.Errorf("sync finished with failures")
		}
		return nil
	},
}

func printReport(report *models.RunReport) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Printf("%s (%s, %d rows upserted)\n",
		report.Repository, report.Duration.Round(time.Millisecond), report.TotalUpserted())

	for _, k := range report.Kinds {
		var glyph string
		switch k.Status {
		case models.StatusCompleted:
			glyph = green("✓")
		case models.StatusPartial:
			glyph = yellow("⚠")
		default:
			glyph = red("✗")
		}

		line := fmt.Sprintf("  %s %-14s %-9s %d upserted, %d unchanged, %d skipped, %d pages",
			glyph, k.Kind, k.Status, k.Upserted, k.Unchanged, k.Skipped, k.Pages)
		if k.Enriched > 0 || k.EnrichErrs > 0 {
			line += fmt.Sprintf(", %d enriched (%d errors)", k.Enriched, k.EnrichErrs)
		}
		if k.Deleted > 0 {
			line += fmt.Sprintf(", %d marked deleted", k.Deleted)
		}
		fmt.Println(line)

		if k.Err != "" {
			fmt.Printf("      %s\n", k.Err)
		}
		for _, sample := range k.SkipSamples {
			fmt.Printf("      skipped: %s\n", sample)
		}
	}
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().Bool("all", false, "Sync every repository in the configuration")
	syncCmd.Flags().Bool("full", false, "Ignore watermarks and refetch all history")
	syncCmd.Flags().Bool("enrich", true, "Fetch pull request size stats after syncing")
	syncCmd.Flags().StringSlice("kinds", nil, "Resource kinds to sync (pulls,issues,reviews,comments,releases)")
}
