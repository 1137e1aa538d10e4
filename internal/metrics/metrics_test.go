package metrics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/osshealth/gram/internal/db"
	"github.com/osshealth/gram/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

func jan(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

func janPtr(d int) *time.Time {
	t := jan(d)
	return &t
}

// seedFixture loads a small repository history with known flow numbers:
// four pull requests (one open, two merged after 2 and 4 days, one closed
// unmerged), four issues (two open, two closed after 1 and 3 days), three
// releases ten days apart, plus comments and one review for response times.
func seedFixture(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Initialize())

	repo := &models.Repository{ID: 1, Owner: "acme", Name: "widgets", FullName: "acme/widgets"}
	require.NoError(t, database.SaveRepository(repo))

	records := []models.Record{
		&models.PullRequest{ID: 101, Number: 1, Title: "open pr", State: "open",
			AuthorLogin: "alice", CreatedAt: jan(10), UpdatedAt: jan(10), ContentHash: "p1"},
		&models.PullRequest{ID: 102, Number: 2, Title: "fast merge", State: "merged",
			AuthorLogin: "alice", CreatedAt: jan(1), UpdatedAt: jan(3),
			ClosedAt: janPtr(3), MergedAt: janPtr(3), ContentHash: "p2"},
		&models.PullRequest{ID: 103, Number: 3, Title: "slow merge", State: "merged",
			AuthorLogin: "bob", CreatedAt: jan(5), UpdatedAt: jan(9),
			ClosedAt: janPtr(9), MergedAt: janPtr(9), ContentHash: "p3"},
		&models.PullRequest{ID: 104, Number: 4, Title: "abandoned", State: "closed",
			AuthorLogin: "alice", CreatedAt: jan(2), UpdatedAt: jan(4),
			ClosedAt: janPtr(4), ContentHash: "p4"},

		&models.Issue{ID: 201, Number: 10, Title: "crash", State: "open", IssueType: "bug",
			AuthorLogin: "alice", CreatedAt: jan(12), UpdatedAt: jan(12), ContentHash: "i1"},
		&models.Issue{ID: 202, Number: 11, Title: "dark mode", State: "open", IssueType: "feature",
			AuthorLogin: "bob", CreatedAt: jan(22), UpdatedAt: jan(22), ContentHash: "i2"},
		&models.Issue{ID: 203, Number: 12, Title: "typo", State: "closed", IssueType: "bug",
			AuthorLogin: "alice", CreatedAt: jan(1), UpdatedAt: jan(2),
			ClosedAt: janPtr(2), ContentHash: "i3"},
		&models.Issue{ID: 204, Number: 13, Title: "flake", State: "closed", IssueType: "bug",
			AuthorLogin: "bob", CreatedAt: jan(5), UpdatedAt: jan(8),
			ClosedAt: janPtr(8), ContentHash: "i4"},

		// PR #2: bot responds after half a day, a human after one day.
		&models.Comment{ID: 301, ParentNumber: 2, ParentKind: "pull_request", AuthorLogin: "ci-bot",
			CreatedAt: jan(1).Add(12 * time.Hour), UpdatedAt: jan(1).Add(12 * time.Hour), ContentHash: "c1"},
		&models.Comment{ID: 302, ParentNumber: 2, ParentKind: "pull_request", AuthorLogin: "bob",
			CreatedAt: jan(2), UpdatedAt: jan(2), ContentHash: "c2"},
		// Issue #12: human response after one day.
		&models.Comment{ID: 303, ParentNumber: 12, ParentKind: "issue", AuthorLogin: "bob",
			CreatedAt: jan(2), UpdatedAt: jan(2), ContentHash: "c3"},

		// PR #3: first response is a review two days in.
		&models.Review{ID: 401, PRNumber: 3, ReviewerLogin: "carol", State: "APPROVED",
			SubmittedAt: jan(7), ContentHash: "r1"},

		&models.Release{ID: 501, TagName: "v1.0.0", Name: "v1.0.0",
			CreatedAt: jan(1), PublishedAt: janPtr(1), ContentHash: "rel1"},
		&models.Release{ID: 502, TagName: "v1.1.0", Name: "v1.1.0",
			CreatedAt: jan(11), PublishedAt: janPtr(11), ContentHash: "rel2"},
		&models.Release{ID: 503, TagName: "v2.0.0", Name: "v2.0.0", Breaking: true,
			CreatedAt: jan(21), PublishedAt: janPtr(21), ContentHash: "rel3"},
	}
	for _, rec := range records {
		_, err := database.Upsert(repo.ID, rec)
		require.NoError(t, err)
	}

	require.NoError(t, database.UpdatePullRequestStats(repo.ID, 2,
		models.PullRequestStats{Additions: 100, Deletions: 20, ChangedFiles: 4, Commits: 2}))
	require.NoError(t, database.UpdatePullRequestStats(repo.ID, 3,
		models.PullRequestStats{Additions: 10, Deletions: 10, ChangedFiles: 1, Commits: 1}))

	return database
}

func newTestAggregator(database *db.DB, exclude []string) *Aggregator {
	a := New(database, exclude)
	a.now = func() time.Time { return testNow }
	return a
}

func TestSnapshotPullRequestMetrics(t *testing.T) {
	database := seedFixture(t)
	a := newTestAggregator(database, []string{"ci-bot"})

	snap, err := a.Snapshot(context.Background(), "acme/widgets", 0)
	require.NoError(t, err)

	pr := snap.PullRequests
	assert.Equal(t, 4, pr.Total)
	assert.Equal(t, 1, pr.Open)
	assert.Equal(t, 2, pr.Merged)
	assert.Equal(t, 1, pr.Closed)
	assert.InDelta(t, 0.67, pr.MergeRate, 0.001, "merged over decided")
	assert.InDelta(t, 3.0, pr.MedianMergeDays, 0.01)
	assert.InDelta(t, 1.5, pr.MedianFirstResponseDays, 0.01, "bot response excluded")
	assert.InDelta(t, 70.0, pr.MedianSizeLines, 0.01)
	assert.Equal(t, 110, pr.TotalAdditions)
	assert.Equal(t, 30, pr.TotalDeletions)

	// Every bucket label is present so chart axes stay stable.
	assert.Equal(t, map[string]int{
		"<1d": 0, "1-3d": 1, "3-7d": 1, "7-14d": 0, "14-30d": 0, ">30d": 0,
	}, pr.MergeTimeDistribution)
	assert.Equal(t, map[string]int{
		"<10": 0, "10-50": 1, "50-200": 1, "200-1000": 0, ">1000": 0,
	}, pr.SizeDistribution)
}

func TestSnapshotChurnSeries(t *testing.T) {
	database := seedFixture(t)
	a := newTestAggregator(database, nil)

	snap, err := a.Snapshot(context.Background(), "acme/widgets", 0)
	require.NoError(t, err)

	// Only the two enriched pull requests contribute, keyed by open date.
	assert.Equal(t, []models.ChurnDay{
		{Date: "2024-01-01", Additions: 100, Deletions: 20},
		{Date: "2024-01-05", Additions: 10, Deletions: 10},
	}, snap.Churn)
}

func TestSnapshotIssueMetrics(t *testing.T) {
	database := seedFixture(t)
	a := newTestAggregator(database, nil)

	snap, err := a.Snapshot(context.Background(), "acme/widgets", 0)
	require.NoError(t, err)

	is := snap.Issues
	assert.Equal(t, 4, is.Total)
	assert.Equal(t, 2, is.Open)
	assert.Equal(t, 2, is.Closed)
	assert.InDelta(t, 0.5, is.CloseRate, 0.001)
	assert.InDelta(t, 2.0, is.MedianCloseDays, 0.01)
	assert.InDelta(t, 1.0, is.MedianFirstResponseDays, 0.01)
	assert.InDelta(t, 15.0, is.MedianOpenAgeDays, 0.01, "ages measured against the pinned clock")
	assert.Equal(t, map[string]int{"bug": 1, "feature": 1}, is.OpenByType)
}

func TestSnapshotReleaseMetrics(t *testing.T) {
	database := seedFixture(t)
	a := newTestAggregator(database, nil)

	snap, err := a.Snapshot(context.Background(), "acme/widgets", 0)
	require.NoError(t, err)

	rel := snap.Releases
	assert.Equal(t, 3, rel.Count)
	assert.Equal(t, 1, rel.Breaking)
	assert.InDelta(t, 10.0, rel.CadenceDays, 0.01, "mean gap between releases")

	require.Len(t, rel.Timeline, 3)
	assert.Equal(t, "v1.0.0", rel.Timeline[0].Tag)
	assert.Equal(t, 0, rel.Timeline[0].MergedPRs)
	assert.Equal(t, 2, rel.Timeline[1].MergedPRs, "both merges land before v1.1.0")
	assert.Equal(t, 0, rel.Timeline[2].MergedPRs)
	assert.True(t, rel.Timeline[2].Breaking)
}

func TestSnapshotOverviewAndActivity(t *testing.T) {
	database := seedFixture(t)
	a := newTestAggregator(database, nil)

	snap, err := a.Snapshot(context.Background(), "acme/widgets", 0)
	require.NoError(t, err)

	ov := snap.Overview
	assert.Equal(t, 1, ov.OpenPullRequests)
	assert.Equal(t, 2, ov.OpenIssues)
	assert.Equal(t, 3, ov.ActiveItems)
	assert.Equal(t, 4, ov.Throughput, "closed issues plus merged pull requests")
	assert.Equal(t, 4, ov.UniqueContributors)
	assert.Equal(t, 12, ov.TotalEngagements)

	require.NotEmpty(t, snap.Activity)
	first := snap.Activity[0]
	assert.Equal(t, "2024-01-01", first.Date)
	assert.Equal(t, 2, first.Opened)
	assert.Equal(t, 0, first.Closed)
	for i := 1; i < len(snap.Activity); i++ {
		assert.Less(t, snap.Activity[i-1].Date, snap.Activity[i].Date, "series is date ordered")
	}
	last := snap.Activity[len(snap.Activity)-1]
	assert.Equal(t, ov.ActiveItems, last.Backlog, "final backlog matches open items")
}

func TestSnapshotDeterministic(t *testing.T) {
	database := seedFixture(t)
	a := newTestAggregator(database, []string{"ci-bot"})

	first, err := a.Snapshot(context.Background(), "acme/widgets", 0)
	require.NoError(t, err)
	second, err := a.Snapshot(context.Background(), "acme/widgets", 0)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestSnapshotWindow(t *testing.T) {
	database := seedFixture(t)
	a := newTestAggregator(database, nil)

	// Ten days back from the pinned clock reaches 2024-01-22: only the
	// newest issue is inside the window.
	snap, err := a.Snapshot(context.Background(), "acme/widgets", 10)
	require.NoError(t, err)

	assert.Equal(t, 10, snap.WindowDays)
	assert.Equal(t, 0, snap.PullRequests.Total)
	assert.Equal(t, 1, snap.Issues.Total)
}

func TestSnapshotCancelledContext(t *testing.T) {
	database := seedFixture(t)
	a := newTestAggregator(database, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Snapshot(ctx, "acme/widgets", 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSnapshotUnknownRepository(t *testing.T) {
	database := seedFixture(t)
	a := newTestAggregator(database, nil)

	_, err := a.Snapshot(context.Background(), "acme/unknown", 0)
	assert.ErrorContains(t, err, "not in the database")
}

func TestSnapshotBotInclusionChangesResponseTimes(t *testing.T) {
	database := seedFixture(t)

	withBots := newTestAggregator(database, nil)
	withoutBots := newTestAggregator(database, []string{"ci-bot"})

	inclusive, err := withBots.Snapshot(context.Background(), "acme/widgets", 0)
	require.NoError(t, err)
	filtered, err := withoutBots.Snapshot(context.Background(), "acme/widgets", 0)
	require.NoError(t, err)

	assert.InDelta(t, 1.25, inclusive.PullRequests.MedianFirstResponseDays, 0.01)
	assert.InDelta(t, 1.5, filtered.PullRequests.MedianFirstResponseDays, 0.01)
}
