package models

import (
	"fmt"
	"time"
)

// ResourceKind identifies one of the synced GitHub resource feeds
type ResourceKind string

const (
	KindPullRequests ResourceKind = "pull_requests"
	KindIssues       ResourceKind = "issues"
	KindReviews      ResourceKind = "reviews"
	KindComments     ResourceKind = "comments"
	KindReleases     ResourceKind = "releases"
)

// AllKinds returns every resource kind in sync order. Reviews come after
// pull requests because their candidates are read from locally stored PRs.
func AllKinds() []ResourceKind {
	return []ResourceKind{
		KindPullRequests,
		KindIssues,
		KindReviews,
		KindComments,
		KindReleases,
	}
}

// ParseKind maps a CLI name to a resource kind
func ParseKind(s string) (ResourceKind, error) {
	switch s {
	case "pulls", "prs", string(KindPullRequests):
		return KindPullRequests, nil
	case string(KindIssues), string(KindReviews), string(KindComments), string(KindReleases):
		return ResourceKind(s), nil
	}
	return "", fmt.Errorf("unknown resource kind %q", s)
}

// Record is a normalized row for one resource kind, ready to upsert
type Record interface {
	Kind() ResourceKind
	// StableID is the remote-assigned identifier rows are keyed by.
	StableID() int64
	// Version is the upstream timestamp that orders conflicting writes.
	Version() time.Time
}

// Repository represents a GitHub repository
type Repository struct {
	ID       int64
	Owner    string
	Name     string
	FullName string
}

// PullRequest represents a GitHub pull request
type PullRequest struct {
	ID          int64
	Number      int
	Title       string
	Body        string
	State       string // open, closed or merged
	AuthorLogin string
	AuthorType  string
	BaseBranch  string
	HeadBranch  string
	Draft       bool
	Labels      []string
	Assignees   []string
	PRType      string
	Breaking    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
	MergedAt    *time.Time
	ContentHash string
}

func (p *PullRequest) Kind() ResourceKind { return KindPullRequests }
func (p *PullRequest) StableID() int64    { return p.ID }
func (p *PullRequest) Version() time.Time { return p.UpdatedAt }

// PullRequestStats holds the size fields only present on the PR detail
// endpoint, filled in by the enrichment stage after the list sync.
type PullRequestStats struct {
	Additions    int
	Deletions    int
	ChangedFiles int
	Commits      int
}

// Issue represents a GitHub issue
type Issue struct {
	ID            int64
	Number        int
	Title         string
	Body          string
	State         string
	AuthorLogin   string
	AuthorType    string
	AssigneeLogin string
	Labels        []string
	CommentsCount int
	IssueType     string
	Priority      string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ClosedAt      *time.Time
	ContentHash   string
}

func (i *Issue) Kind() ResourceKind { return KindIssues }
func (i *Issue) StableID() int64    { return i.ID }
func (i *Issue) Version() time.Time { return i.UpdatedAt }

// Review represents a pull request review. PRNumber is a loose reference
// resolved against pull_requests at query time.
type Review struct {
	ID            int64
	PRNumber      int
	ReviewerLogin string
	State         string
	Body          string
	CommitSHA     string
	SubmittedAt   time.Time
	ContentHash   string
}

func (r *Review) Kind() ResourceKind { return KindReviews }
func (r *Review) StableID() int64    { return r.ID }
func (r *Review) Version() time.Time { return r.SubmittedAt }

// Comment represents an issue or pull request comment. ParentNumber is a
// loose reference; ParentKind is a stored classification, not a constraint.
type Comment struct {
	ID           int64
	ParentNumber int
	ParentKind   string // issue or pull_request
	AuthorLogin  string
	Body         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ContentHash  string
}

func (c *Comment) Kind() ResourceKind { return KindComments }
func (c *Comment) StableID() int64    { return c.ID }
func (c *Comment) Version() time.Time { return c.UpdatedAt }

// Release represents a GitHub release
type Release struct {
	ID          int64
	TagName     string
	Name        string
	Body        string
	AuthorLogin string
	Draft       bool
	Prerelease  bool
	Breaking    bool
	CreatedAt   time.Time
	PublishedAt *time.Time
	ContentHash string
}

func (r *Release) Kind() ResourceKind { return KindReleases }
func (r *Release) StableID() int64    { return r.ID }

// Version is the published time, or the created time for unpublished drafts.
func (r *Release) Version() time.Time {
	if r.PublishedAt != nil {
		return *r.PublishedAt
	}
	return r.CreatedAt
}

// PRCandidate identifies a locally stored pull request by number together
// with its last upstream update time. The review sync walks these in
// ascending update order.
type PRCandidate struct {
	Number    int
	UpdatedAt time.Time
}

// RateLimitInfo carries the remote quota headers observed on a response
type RateLimitInfo struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Sync outcome for one resource kind.
const (
	StatusCompleted = "completed"
	StatusPartial   = "partial"
	StatusFailed    = "failed"
)

// SyncState tracks per-kind incremental sync progress for a repository
type SyncState struct {
	Repository string
	Kind       ResourceKind
	Watermark  time.Time // zero until the kind completes at least once
	LastRunAt  time.Time
	LastStatus string
	LastError  string
}

// KindResult summarizes one resource kind within a sync run
type KindResult struct {
	Kind        ResourceKind
	Status      string
	Upserted    int
	Unchanged   int
	Skipped     int
	Pages       int
	Enriched    int
	EnrichErrs  int
	Deleted     int
	Watermark   time.Time
	Duration    time.Duration
	Err         string
	SkipSamples []string
}

// RunReport summarizes a full sync run for one repository
type RunReport struct {
	Repository string
	StartedAt  time.Time
	Duration   time.Duration
	Kinds      []KindResult
}

// Failed reports whether any kind ended in a non-completed status
func (r *RunReport) Failed() bool {
	for _, k := range r.Kinds {
		if k.Status != StatusCompleted {
			return true
		}
	}
	return false
}

// TotalUpserted sums upserted rows across kinds
func (r *RunReport) TotalUpserted() int {
	n := 0
	for _, k := range r.Kinds {
		n += k.Upserted
	}
	return n
}
