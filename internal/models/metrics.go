package models

import "time"

// MetricsSnapshot is the aggregate output consumed by the dashboard. Field
// names are the JSON contract; keep them stable.
type MetricsSnapshot struct {
	Repository   string             `json:"repository"`
	WindowDays   int                `json:"window_days"` // 0 = all time
	GeneratedAt  time.Time          `json:"generated_at"`
	Overview     OverviewMetrics    `json:"overview"`
	PullRequests PullRequestMetrics `json:"pull_requests"`
	Issues       IssueMetrics       `json:"issues"`
	Releases     ReleaseMetrics     `json:"releases"`
	Activity     []DayActivity      `json:"activity"`
	Churn        []ChurnDay         `json:"churn"`
}

// OverviewMetrics are the headline numbers
type OverviewMetrics struct {
	OpenPullRequests   int `json:"open_pull_requests"`
	OpenIssues         int `json:"open_issues"`
	ActiveItems        int `json:"active_items"`
	UniqueContributors int `json:"unique_contributors"`
	TotalEngagements   int `json:"total_engagements"`
	Throughput         int `json:"throughput"` // closed issues + merged PRs
}

// PullRequestMetrics cover merge flow and review latency
type PullRequestMetrics struct {
	Total                   int            `json:"total"`
	Open                    int            `json:"open"`
	Merged                  int            `json:"merged"`
	Closed                  int            `json:"closed"` // closed without merging
	MergeRate               float64        `json:"merge_rate"`
	MedianMergeDays         float64        `json:"median_merge_days"`
	MedianFirstResponseDays float64        `json:"median_first_response_days"`
	MedianSizeLines         float64        `json:"median_size_lines"`
	TotalAdditions          int            `json:"total_additions"`
	TotalDeletions          int            `json:"total_deletions"`
	MergeTimeDistribution   map[string]int `json:"merge_time_distribution"`
	SizeDistribution        map[string]int `json:"size_distribution"`
}

// IssueMetrics cover triage flow and backlog age
type IssueMetrics struct {
	Total                   int            `json:"total"`
	Open                    int            `json:"open"`
	Closed                  int            `json:"closed"`
	CloseRate               float64        `json:"close_rate"`
	MedianCloseDays         float64        `json:"median_close_days"`
	MedianFirstResponseDays float64        `json:"median_first_response_days"`
	MedianOpenAgeDays       float64        `json:"median_open_age_days"`
	P90OpenAgeDays          float64        `json:"p90_open_age_days"`
	OpenByType              map[string]int `json:"open_by_type"`
}

// ReleaseMetrics cover cadence and per-release merge volume
type ReleaseMetrics struct {
	Count       int            `json:"count"`
	Breaking    int            `json:"breaking"`
	CadenceDays float64        `json:"cadence_days"` // mean days between releases
	Timeline    []ReleasePoint `json:"timeline"`
}

// ReleasePoint is one release on the timeline with the number of PRs merged
// since the previous release.
type ReleasePoint struct {
	Tag         string    `json:"tag"`
	PublishedAt time.Time `json:"published_at"`
	MergedPRs   int       `json:"merged_prs"`
	Breaking    bool      `json:"breaking"`
}

// ChurnDay is one day of the code-churn series: lines added and deleted
// across enriched pull requests opened that day.
type ChurnDay struct {
	Date      string `json:"date"` // YYYY-MM-DD
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// DayActivity is one day of the opened/closed/backlog series. Backlog is the
// running net of opens minus closes across PRs and issues together.
type DayActivity struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Opened  int    `json:"opened"`
	Closed  int    `json:"closed"`
	Backlog int    `json:"backlog"`
}
