// Package metrics computes the aggregate snapshot the dashboard consumes.
// Everything here is a deterministic read over current storage contents;
// calling it twice against unchanged data yields equal snapshots.
package metrics

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/osshealth/gram/internal/db"
	"github.com/osshealth/gram/internal/models"
	"golang.org/x/sync/errgroup"
)

// Histogram buckets for the merge-time and PR-size distribution charts.
// Labels are part of the snapshot contract.
var (
	mergeTimeBuckets = []bucket{
		{"<1d", 1}, {"1-3d", 3}, {"3-7d", 7}, {"7-14d", 14},
		{"14-30d", 30}, {">30d", math.Inf(1)},
	}
	sizeBuckets = []bucket{
		{"<10", 10}, {"10-50", 50}, {"50-200", 200},
		{"200-1000", 1000}, {">1000", math.Inf(1)},
	}
)

type bucket struct {
	label string
	upper float64 // exclusive
}

// Aggregator computes metric snapshots from the local database.
type Aggregator struct {
	db            *db.DB
	log           *log.Logger
	excludeLogins []string
	now           func() time.Time
}

// New creates an aggregator. excludeLogins are bot accounts left out of
// first-response metrics.
func New(database *db.DB, excludeLogins []string) *Aggregator {
	return &Aggregator{
		db:            database,
		log:           log.New(io.Discard, "", log.LstdFlags),
		excludeLogins: excludeLogins,
		now:           time.Now,
	}
}

// SetLogger directs progress logging to l.
func (a *Aggregator) SetLogger(l *log.Logger) {
	if l != nil {
		a.log = l
	}
}

// Snapshot computes the full metrics snapshot for a repository over the
// last windowDays days (0 = all time).
func (a *Aggregator) Snapshot(ctx context.Context, repoFullName string, windowDays int) (*models.MetricsSnapshot, error) {
	repo, err := a.db.GetRepositoryByFullName(repoFullName)
	if err != nil {
		return nil, err
	}
	if repo == nil {
		return nil, fmt.Errorf("repository %s is not in the database, sync it first", repoFullName)
	}

	now := a.now().UTC().Truncate(time.Second)
	var since time.Time
	if windowDays > 0 {
		since = now.AddDate(0, 0, -windowDays)
	}

	snapshot := &models.MetricsSnapshot{
		Repository:  repoFullName,
		WindowDays:  windowDays,
		GeneratedAt: now,
	}

	// The query groups are independent reads; run them concurrently. The
	// derived context cancels the rest of the group on the first failure.
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		pr, err := a.pullRequestMetrics(ctx, repo.ID, since)
		if err != nil {
			return err
		}
		snapshot.PullRequests = *pr
		return nil
	})

	eg.Go(func() error {
		is, err := a.issueMetrics(ctx, repo.ID, since, now)
		if err != nil {
			return err
		}
		snapshot.Issues = *is
		return nil
	})

	eg.Go(func() error {
		rel, err := a.releaseMetrics(ctx, repo.ID, since)
		if err != nil {
			return err
		}
		snapshot.Releases = *rel
		return nil
	})

	eg.Go(func() error {
		activity, err := a.activitySeries(ctx, repo.ID, since)
		if err != nil {
			return err
		}
		snapshot.Activity = activity

		snapshot.Churn, err = a.db.DailyChurn(ctx, repo.ID, since)
		return err
	})

	eg.Go(func() error {
		contributors, err := a.db.DistinctContributors(ctx, repo.ID, since)
		if err != nil {
			return err
		}
		engagements, err := a.db.EngagementCount(ctx, repo.ID, since)
		if err != nil {
			return err
		}
		snapshot.Overview.UniqueContributors = contributors
		snapshot.Overview.TotalEngagements = engagements
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to compute metrics: %w", err)
	}

	// Headline numbers derived from the per-section results.
	snapshot.Overview.OpenPullRequests = snapshot.PullRequests.Open
	snapshot.Overview.OpenIssues = snapshot.Issues.Open
	snapshot.Overview.ActiveItems = snapshot.PullRequests.Open + snapshot.Issues.Open
	snapshot.Overview.Throughput = snapshot.Issues.Closed + snapshot.PullRequests.Merged

	a.log.Printf("Computed snapshot for %s (window %d days)", repoFullName, windowDays)
	return snapshot, nil
}

func (a *Aggregator) pullRequestMetrics(ctx context.Context, repoID int64, since time.Time) (*models.PullRequestMetrics, error) {
	counts, err := a.db.PullRequestStateCounts(ctx, repoID, since)
	if err != nil {
		return nil, err
	}

	m := &models.PullRequestMetrics{
		Open:   counts["open"],
		Merged: counts["merged"],
		Closed: counts["closed"],
	}
	m.Total = m.Open + m.Merged + m.Closed

	decided := m.Merged + m.Closed
	if decided > 0 {
		m.MergeRate = round2(float64(m.Merged) / float64(decided))
	}

	mergeDays, err := a.db.MergeDurationsDays(ctx, repoID, since)
	if err != nil {
		return nil, err
	}
	m.MedianMergeDays = median(mergeDays)
	m.MergeTimeDistribution = bucketCounts(mergeDays, mergeTimeBuckets)

	responseDays, err := a.db.PRFirstResponseDays(ctx, repoID, since, a.excludeLogins)
	if err != nil {
		return nil, err
	}
	m.MedianFirstResponseDays = median(responseDays)

	sizes, err := a.db.PRSizesLines(ctx, repoID, since)
	if err != nil {
		return nil, err
	}
	m.MedianSizeLines = median(sizes)
	m.SizeDistribution = bucketCounts(sizes, sizeBuckets)

	m.TotalAdditions, m.TotalDeletions, err = a.db.ChurnTotals(ctx, repoID, since)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (a *Aggregator) issueMetrics(ctx context.Context, repoID int64, since, now time.Time) (*models.IssueMetrics, error) {
	counts, err := a.db.IssueStateCounts(ctx, repoID, since)
	if err != nil {
		return nil, err
	}

	m := &models.IssueMetrics{
		Open:   counts["open"],
		Closed: counts["closed"],
	}
	m.Total = m.Open + m.Closed
	if m.Total > 0 {
		m.CloseRate = round2(float64(m.Closed) / float64(m.Total))
	}

	closeDays, err := a.db.IssueCloseDurationsDays(ctx, repoID, since)
	if err != nil {
		return nil, err
	}
	m.MedianCloseDays = median(closeDays)

	responseDays, err := a.db.IssueFirstResponseDays(ctx, repoID, since, a.excludeLogins)
	if err != nil {
		return nil, err
	}
	m.MedianFirstResponseDays = median(responseDays)

	ages, err := a.db.OpenIssueAgesDays(ctx, repoID, now)
	if err != nil {
		return nil, err
	}
	m.MedianOpenAgeDays = median(ages)
	m.P90OpenAgeDays = percentile(ages, 90)

	m.OpenByType, err = a.db.OpenIssuesByType(ctx, repoID)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (a *Aggregator) releaseMetrics(ctx context.Context, repoID int64, since time.Time) (*models.ReleaseMetrics, error) {
	timeline, err := a.db.ReleaseTimeline(ctx, repoID, since)
	if err != nil {
		return nil, err
	}
	mergeTimes, err := a.db.MergedPRTimes(ctx, repoID)
	if err != nil {
		return nil, err
	}

	m := &models.ReleaseMetrics{Count: len(timeline)}

	// Per-release merged-PR counts cover the interval since the previous
	// release (or all history for the first one in the timeline).
	var prev time.Time
	var gaps []float64
	for i := range timeline {
		p := &timeline[i]
		if p.Breaking {
			m.Breaking++
		}
		merged := 0
		for _, t := range mergeTimes {
			if (prev.IsZero() || t.After(prev)) && !t.After(p.PublishedAt) {
				merged++
			}
		}
		p.MergedPRs = merged
		if !prev.IsZero() {
			gaps = append(gaps, p.PublishedAt.Sub(prev).Hours()/24)
		}
		prev = p.PublishedAt
	}
	m.Timeline = timeline

	if len(gaps) > 0 {
		mean, err := stats.Mean(gaps)
		if err != nil {
			return nil, err
		}
		m.CadenceDays = round2(mean)
	}
	return m, nil
}

// activitySeries builds the per-day opened/closed/backlog series. The
// backlog is the running net of opens minus closes across PRs and issues.
func (a *Aggregator) activitySeries(ctx context.Context, repoID int64, since time.Time) ([]models.DayActivity, error) {
	opened, closed, err := a.db.DailyActivity(ctx, repoID, since)
	if err != nil {
		return nil, err
	}

	days := make(map[string]bool, len(opened)+len(closed))
	for d := range opened {
		days[d] = true
	}
	for d := range closed {
		days[d] = true
	}
	sorted := make([]string, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Strings(sorted)

	series := make([]models.DayActivity, 0, len(sorted))
	backlog := 0
	for _, d := range sorted {
		backlog += opened[d] - closed[d]
		series = append(series, models.DayActivity{
			Date:    d,
			Opened:  opened[d],
			Closed:  closed[d],
			Backlog: backlog,
		})
	}
	return series, nil
}

// bucketCounts histograms values into the given buckets. Every bucket label
// appears in the result so the chart axes stay stable across snapshots.
func bucketCounts(values []float64, buckets []bucket) map[string]int {
	counts := make(map[string]int, len(buckets))
	for _, b := range buckets {
		counts[b.label] = 0
	}
	for _, v := range values {
		for _, b := range buckets {
			if v < b.upper {
				counts[b.label]++
				break
			}
		}
	}
	return counts
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m, err := stats.Median(values)
	if err != nil {
		return 0
	}
	return round2(m)
}

func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	v, err := stats.Percentile(values, p)
	if err != nil {
		return 0
	}
	return round2(v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
