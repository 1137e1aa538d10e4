package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/osshealth/gram/internal/models"
)

// Read-only aggregate queries backing the metrics snapshot. A zero since
// means all time; otherwise rows are windowed on their creation (or
// submission) timestamp. None of these mutate state.

// PullRequestStateCounts counts pull requests by state within the window.
func (db *DB) PullRequestStateCounts(ctx context.Context, repoID int64, since time.Time) (map[string]int, error) {
	return db.stateCounts(ctx, "pull_requests", repoID, since)
}

// IssueStateCounts counts issues by state within the window.
func (db *DB) IssueStateCounts(ctx context.Context, repoID int64, since time.Time) (map[string]int, error) {
	return db.stateCounts(ctx, "issues", repoID, since)
}

func (db *DB) stateCounts(ctx context.Context, table string, repoID int64, since time.Time) (map[string]int, error) {
	query := fmt.Sprintf(`
	SELECT state, COUNT(*) FROM %s
	WHERE repository_id = ? AND (? = '' OR created_at >= ?)
	GROUP BY state
	`, table)

	ts := fmtTime(since)
	rows, err := db.QueryContext(ctx, query, repoID, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to count %s by state: %w", table, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			state string
			n     int
		)
		if err := rows.Scan(&state, &n); err != nil {
			return nil, fmt.Errorf("failed to scan state count: %w", err)
		}
		counts[state] = n
	}
	return counts, rows.Err()
}

// MergeDurationsDays returns creation-to-merge durations in days for merged
// pull requests within the window.
func (db *DB) MergeDurationsDays(ctx context.Context, repoID int64, since time.Time) ([]float64, error) {
	query := `
	SELECT julianday(merged_at) - julianday(created_at) FROM pull_requests
	WHERE repository_id = ? AND merged_at IS NOT NULL
	  AND (? = '' OR created_at >= ?)
	ORDER BY number
	`
	return db.floatList(ctx, query, repoID, since)
}

// IssueCloseDurationsDays returns creation-to-close durations in days for
// closed issues within the window.
func (db *DB) IssueCloseDurationsDays(ctx context.Context, repoID int64, since time.Time) ([]float64, error) {
	query := `
	SELECT julianday(closed_at) - julianday(created_at) FROM issues
	WHERE repository_id = ? AND closed_at IS NOT NULL
	  AND (? = '' OR created_at >= ?)
	ORDER BY number
	`
	return db.floatList(ctx, query, repoID, since)
}

// PRSizesLines returns additions+deletions for enriched pull requests
// within the window.
func (db *DB) PRSizesLines(ctx context.Context, repoID int64, since time.Time) ([]float64, error) {
	query := `
	SELECT additions + deletions FROM pull_requests
	WHERE repository_id = ? AND additions IS NOT NULL
	  AND (? = '' OR created_at >= ?)
	ORDER BY number
	`
	return db.floatList(ctx, query, repoID, since)
}

func (db *DB) floatList(ctx context.Context, query string, repoID int64, since time.Time) ([]float64, error) {
	ts := fmtTime(since)
	rows, err := db.QueryContext(ctx, query, repoID, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to query durations: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan value: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// PRFirstResponseDays returns, per pull request in the window, the days
// from creation to the earliest comment or review. Responses from excluded
// logins (bots) and from the author are not counted. Parenthood is resolved
// by number at query time; no foreign key is assumed.
func (db *DB) PRFirstResponseDays(ctx context.Context, repoID int64, since time.Time, exclude []string) ([]float64, error) {
	notIn, excludeArgs := notInClause("r.login", exclude)
	query := fmt.Sprintf(`
	SELECT julianday(MIN(r.t)) - julianday(p.created_at)
	FROM pull_requests p
	JOIN (
		SELECT parent_number AS num, created_at AS t, author_login AS login
		FROM comments WHERE repository_id = ?1
		UNION ALL
		SELECT pr_number, submitted_at, reviewer_login
		FROM reviews WHERE repository_id = ?1
	) r ON r.num = p.number
	WHERE p.repository_id = ?1
	  AND (?2 = '' OR p.created_at >= ?2)
	  AND r.t >= p.created_at
	  AND r.login <> p.author_login
	  %s
	GROUP BY p.id
	ORDER BY p.number
	`, notIn)

	args := append([]any{repoID, fmtTime(since)}, excludeArgs...)
	return db.responseList(ctx, query, args)
}

// IssueFirstResponseDays is the issue counterpart of PRFirstResponseDays,
// with comments as the only response channel.
func (db *DB) IssueFirstResponseDays(ctx context.Context, repoID int64, since time.Time, exclude []string) ([]float64, error) {
	notIn, excludeArgs := notInClause("c.author_login", exclude)
	query := fmt.Sprintf(`
	SELECT julianday(MIN(c.created_at)) - julianday(i.created_at)
	FROM issues i
	JOIN comments c ON c.parent_number = i.number AND c.repository_id = ?1
	WHERE i.repository_id = ?1
	  AND (?2 = '' OR i.created_at >= ?2)
	  AND c.created_at >= i.created_at
	  AND c.author_login <> i.author_login
	  %s
	GROUP BY i.id
	ORDER BY i.number
	`, notIn)

	args := append([]any{repoID, fmtTime(since)}, excludeArgs...)
	return db.responseList(ctx, query, args)
}

func (db *DB) responseList(ctx context.Context, query string, args []any) ([]float64, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query first responses: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan response time: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func notInClause(column string, exclude []string) (string, []any) {
	if len(exclude) == 0 {
		return "", nil
	}
	placeholders := make([]string, len(exclude))
	args := make([]any, len(exclude))
	for i, login := range exclude {
		placeholders[i] = "?"
		args[i] = login
	}
	return fmt.Sprintf("AND %s NOT IN (%s)", column, strings.Join(placeholders, ", ")), args
}

// ChurnTotals sums additions and deletions across merged pull requests in
// the window.
func (db *DB) ChurnTotals(ctx context.Context, repoID int64, since time.Time) (additions, deletions int, err error) {
	query := `
	SELECT COALESCE(SUM(additions), 0), COALESCE(SUM(deletions), 0)
	FROM pull_requests
	WHERE repository_id = ? AND merged_at IS NOT NULL AND additions IS NOT NULL
	  AND (? = '' OR created_at >= ?)
	`
	ts := fmtTime(since)
	if err := db.QueryRowContext(ctx, query, repoID, ts, ts).Scan(&additions, &deletions); err != nil {
		return 0, 0, fmt.Errorf("failed to sum churn: %w", err)
	}
	return additions, deletions, nil
}

// DailyChurn returns per-day added and deleted line totals across enriched
// pull requests, keyed by the day the pull request was opened.
func (db *DB) DailyChurn(ctx context.Context, repoID int64, since time.Time) ([]models.ChurnDay, error) {
	query := `
	SELECT substr(created_at, 1, 10) AS day, SUM(additions), SUM(deletions)
	FROM pull_requests
	WHERE repository_id = ? AND additions IS NOT NULL
	  AND (? = '' OR created_at >= ?)
	GROUP BY day
	ORDER BY day
	`
	ts := fmtTime(since)
	rows, err := db.QueryContext(ctx, query, repoID, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily churn: %w", err)
	}
	defer rows.Close()

	var out []models.ChurnDay
	for rows.Next() {
		var d models.ChurnDay
		if err := rows.Scan(&d.Date, &d.Additions, &d.Deletions); err != nil {
			return nil, fmt.Errorf("failed to scan churn day: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DistinctContributors counts unique logins across PR authors, issue
// authors, commenters and reviewers within the window.
func (db *DB) DistinctContributors(ctx context.Context, repoID int64, since time.Time) (int, error) {
	query := `
	SELECT COUNT(DISTINCT login) FROM (
		SELECT author_login AS login, created_at AS t FROM pull_requests WHERE repository_id = ?1
		UNION ALL
		SELECT author_login, created_at FROM issues WHERE repository_id = ?1
		UNION ALL
		SELECT author_login, created_at FROM comments WHERE repository_id = ?1
		UNION ALL
		SELECT reviewer_login, submitted_at FROM reviews WHERE repository_id = ?1
	)
	WHERE login IS NOT NULL AND login <> '' AND (?2 = '' OR t >= ?2)
	`
	var n int
	if err := db.QueryRowContext(ctx, query, repoID, fmtTime(since)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count contributors: %w", err)
	}
	return n, nil
}

// EngagementCount totals PRs, issues, comments and reviews within the
// window.
func (db *DB) EngagementCount(ctx context.Context, repoID int64, since time.Time) (int, error) {
	query := `
	SELECT
		(SELECT COUNT(*) FROM pull_requests WHERE repository_id = ?1 AND (?2 = '' OR created_at >= ?2)) +
		(SELECT COUNT(*) FROM issues WHERE repository_id = ?1 AND (?2 = '' OR created_at >= ?2)) +
		(SELECT COUNT(*) FROM comments WHERE repository_id = ?1 AND (?2 = '' OR created_at >= ?2)) +
		(SELECT COUNT(*) FROM reviews WHERE repository_id = ?1 AND (?2 = '' OR submitted_at >= ?2))
	`
	var n int
	if err := db.QueryRowContext(ctx, query, repoID, fmtTime(since)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count engagements: %w", err)
	}
	return n, nil
}

// OpenIssueAgesDays returns the age in days of every open issue, measured
// against now.
func (db *DB) OpenIssueAgesDays(ctx context.Context, repoID int64, now time.Time) ([]float64, error) {
	query := `
	SELECT julianday(?) - julianday(created_at) FROM issues
	WHERE repository_id = ? AND state = 'open'
	ORDER BY number
	`
	rows, err := db.QueryContext(ctx, query, fmtTime(now), repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query open issue ages: %w", err)
	}
	defer rows.Close()

	var out []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan age: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// OpenIssuesByType counts open issues per classified type.
func (db *DB) OpenIssuesByType(ctx context.Context, repoID int64) (map[string]int, error) {
	query := `
	SELECT COALESCE(issue_type, ''), COUNT(*) FROM issues
	WHERE repository_id = ? AND state = 'open'
	GROUP BY issue_type
	`
	rows, err := db.QueryContext(ctx, query, repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to count open issues by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			typ string
			n   int
		)
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("failed to scan type count: %w", err)
		}
		counts[typ] = n
	}
	return counts, rows.Err()
}

// ReleaseTimeline returns published, non-draft, non-deleted releases in
// publish order. MergedPRs is filled in by the aggregator.
func (db *DB) ReleaseTimeline(ctx context.Context, repoID int64, since time.Time) ([]models.ReleasePoint, error) {
	query := `
	SELECT tag_name, published_at, breaking_change FROM releases
	WHERE repository_id = ? AND deleted_at IS NULL AND draft = 0
	  AND published_at IS NOT NULL
	  AND (? = '' OR published_at >= ?)
	ORDER BY published_at ASC
	`
	ts := fmtTime(since)
	rows, err := db.QueryContext(ctx, query, repoID, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("failed to query releases: %w", err)
	}
	defer rows.Close()

	var out []models.ReleasePoint
	for rows.Next() {
		var (
			p         models.ReleasePoint
			published string
		)
		if err := rows.Scan(&p.Tag, &published, &p.Breaking); err != nil {
			return nil, fmt.Errorf("failed to scan release: %w", err)
		}
		if p.PublishedAt, err = parseTime(published); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MergedPRTimes returns merge timestamps of all merged pull requests in
// ascending order.
func (db *DB) MergedPRTimes(ctx context.Context, repoID int64) ([]time.Time, error) {
	query := `
	SELECT merged_at FROM pull_requests
	WHERE repository_id = ? AND merged_at IS NOT NULL
	ORDER BY merged_at ASC
	`
	rows, err := db.QueryContext(ctx, query, repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query merge times: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var ts string
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("failed to scan merge time: %w", err)
		}
		t, err := parseTime(ts)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// DailyActivity returns per-day opened and closed counts across pull
// requests and issues together, keyed by YYYY-MM-DD.
func (db *DB) DailyActivity(ctx context.Context, repoID int64, since time.Time) (opened, closed map[string]int, err error) {
	openedQuery := `
	SELECT substr(created_at, 1, 10) AS day, COUNT(*) FROM (
		SELECT created_at FROM pull_requests WHERE repository_id = ?1 AND (?2 = '' OR created_at >= ?2)
		UNION ALL
		SELECT created_at FROM issues WHERE repository_id = ?1 AND (?2 = '' OR created_at >= ?2)
	) GROUP BY day
	`
	closedQuery := `
	SELECT substr(closed_at, 1, 10) AS day, COUNT(*) FROM (
		SELECT closed_at FROM pull_requests WHERE repository_id = ?1 AND closed_at IS NOT NULL AND (?2 = '' OR closed_at >= ?2)
		UNION ALL
		SELECT closed_at FROM issues WHERE repository_id = ?1 AND closed_at IS NOT NULL AND (?2 = '' OR closed_at >= ?2)
	) GROUP BY day
	`

	if opened, err = db.dayCounts(ctx, openedQuery, repoID, since); err != nil {
		return nil, nil, err
	}
	if closed, err = db.dayCounts(ctx, closedQuery, repoID, since); err != nil {
		return nil, nil, err
	}
	return opened, closed, nil
}

func (db *DB) dayCounts(ctx context.Context, query string, repoID int64, since time.Time) (map[string]int, error) {
	rows, err := db.QueryContext(ctx, query, repoID, fmtTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily activity: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			day string
			n   int
		)
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("failed to scan day count: %w", err)
		}
		counts[day] = n
	}
	return counts, rows.Err()
}
