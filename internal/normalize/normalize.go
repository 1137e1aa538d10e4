// Package normalize converts raw GitHub API payloads into storable records.
// Everything here is pure: no I/O, no clocks.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/osshealth/gram/internal/models"
)

// MalformedRecordError reports a payload that cannot be keyed or versioned.
// Such records are skipped and counted, never fatal.
type MalformedRecordError struct {
	RecordKind models.ResourceKind
	Reason     string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record: %s", e.RecordKind, e.Reason)
}

func malformed(kind models.ResourceKind, reason string) error {
	return &MalformedRecordError{RecordKind: kind, Reason: reason}
}

// Record normalizes one raw payload of the given kind
func Record(kind models.ResourceKind, raw any) (models.Record, error) {
	switch kind {
	case models.KindPullRequests:
		pr, ok := raw.(*github.PullRequest)
		if !ok {
			return nil, malformed(kind, fmt.Sprintf("unexpected payload type %T", raw))
		}
		return PullRequest(pr)
	case models.KindIssues:
		issue, ok := raw.(*github.Issue)
		if !ok {
			return nil, malformed(kind, fmt.Sprintf("unexpected payload type %T", raw))
		}
		return Issue(issue)
	case models.KindReviews:
		rev, ok := raw.(*github.PullRequestReview)
		if !ok {
			return nil, malformed(kind, fmt.Sprintf("unexpected payload type %T", raw))
		}
		return Review(rev)
	case models.KindComments:
		c, ok := raw.(*github.IssueComment)
		if !ok {
			return nil, malformed(kind, fmt.Sprintf("unexpected payload type %T", raw))
		}
		return Comment(c)
	case models.KindReleases:
		rel, ok := raw.(*github.RepositoryRelease)
		if !ok {
			return nil, malformed(kind, fmt.Sprintf("unexpected payload type %T", raw))
		}
		return Release(rel)
	}
	return nil, fmt.Errorf("unknown resource kind %q", kind)
}

// PullRequest converts a GitHub pull request to our model
func PullRequest(pr *github.PullRequest) (*models.PullRequest, error) {
	if pr.GetID() == 0 {
		return nil, malformed(models.KindPullRequests, "missing id")
	}

	labels := labelNames(pr.Labels)
	assignees := userLogins(pr.Assignees)

	// The list payload has no merged flag; a merge timestamp is the signal.
	state := pr.GetState()
	if pr.MergedAt != nil {
		state = "merged"
	}

	rec := &models.PullRequest{
		ID:          pr.GetID(),
		Number:      pr.GetNumber(),
		Title:       pr.GetTitle(),
		Body:        pr.GetBody(),
		State:       state,
		AuthorLogin: pr.GetUser().GetLogin(),
		AuthorType:  pr.GetUser().GetType(),
		BaseBranch:  pr.GetBase().GetRef(),
		HeadBranch:  pr.GetHead().GetRef(),
		Draft:       pr.GetDraft(),
		Labels:      labels,
		Assignees:   assignees,
		PRType:      classifyPRType(pr.GetTitle(), labels),
		Breaking:    isBreakingChange(pr.GetTitle(), pr.GetBody(), labels),
		CreatedAt:   utcTime(pr.GetCreatedAt()),
		UpdatedAt:   utcTime(pr.GetUpdatedAt()),
		ClosedAt:    utcTimePtr(pr.ClosedAt),
		MergedAt:    utcTimePtr(pr.MergedAt),
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	if rec.UpdatedAt.IsZero() {
		return nil, malformed(models.KindPullRequests, "missing update time")
	}
	rec.ContentHash = hashRecord(rec)
	return rec, nil
}

// Issue converts a GitHub issue to our model
func Issue(issue *github.Issue) (*models.Issue, error) {
	if issue.GetID() == 0 {
		return nil, malformed(models.KindIssues, "missing id")
	}

	labels := labelNames(issue.Labels)

	rec := &models.Issue{
		ID:            issue.GetID(),
		Number:        issue.GetNumber(),
		Title:         issue.GetTitle(),
		Body:          issue.GetBody(),
		State:         issue.GetState(),
		AuthorLogin:   issue.GetUser().GetLogin(),
		AuthorType:    issue.GetUser().GetType(),
		AssigneeLogin: issue.GetAssignee().GetLogin(),
		Labels:        labels,
		CommentsCount: issue.GetComments(),
		IssueType:     classifyIssueType(issue.GetTitle(), labels),
		Priority:      priorityFromLabels(labels),
		CreatedAt:     utcTime(issue.GetCreatedAt()),
		UpdatedAt:     utcTime(issue.GetUpdatedAt()),
		ClosedAt:      utcTimePtr(issue.ClosedAt),
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	if rec.UpdatedAt.IsZero() {
		return nil, malformed(models.KindIssues, "missing update time")
	}
	rec.ContentHash = hashRecord(rec)
	return rec, nil
}

// Review converts a GitHub pull request review to our model. Pending reviews
// carry no submitted time and cannot be versioned, so they are rejected.
func Review(rev *github.PullRequestReview) (*models.Review, error) {
	if rev.GetID() == 0 {
		return nil, malformed(models.KindReviews, "missing id")
	}
	if rev.SubmittedAt == nil || rev.GetSubmittedAt().Time.IsZero() {
		return nil, malformed(models.KindReviews, "review not submitted")
	}
	prNumber := numberFromURL(rev.GetPullRequestURL())
	if prNumber == 0 {
		return nil, malformed(models.KindReviews, "no pull request number")
	}

	rec := &models.Review{
		ID:            rev.GetID(),
		PRNumber:      prNumber,
		ReviewerLogin: rev.GetUser().GetLogin(),
		State:         rev.GetState(),
		Body:          rev.GetBody(),
		CommitSHA:     rev.GetCommitID(),
		SubmittedAt:   utcTime(rev.GetSubmittedAt()),
	}
	rec.ContentHash = hashRecord(rec)
	return rec, nil
}

// Comment converts a GitHub issue or pull request comment to our model
func Comment(c *github.IssueComment) (*models.Comment, error) {
	if c.GetID() == 0 {
		return nil, malformed(models.KindComments, "missing id")
	}
	parent := numberFromURL(c.GetIssueURL())
	if parent == 0 {
		return nil, malformed(models.KindComments, "no parent issue number")
	}

	rec := &models.Comment{
		ID:           c.GetID(),
		ParentNumber: parent,
		ParentKind:   parentKindFromHTMLURL(c.GetHTMLURL()),
		AuthorLogin:  c.GetUser().GetLogin(),
		Body:         c.GetBody(),
		CreatedAt:    utcTime(c.GetCreatedAt()),
		UpdatedAt:    utcTime(c.GetUpdatedAt()),
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = rec.CreatedAt
	}
	if rec.UpdatedAt.IsZero() {
		return nil, malformed(models.KindComments, "missing update time")
	}
	rec.ContentHash = hashRecord(rec)
	return rec, nil
}

// Release converts a GitHub release to our model
func Release(rel *github.RepositoryRelease) (*models.Release, error) {
	if rel.GetID() == 0 {
		return nil, malformed(models.KindReleases, "missing id")
	}

	rec := &models.Release{
		ID:          rel.GetID(),
		TagName:     rel.GetTagName(),
		Name:        rel.GetName(),
		Body:        rel.GetBody(),
		AuthorLogin: rel.GetAuthor().GetLogin(),
		Draft:       rel.GetDraft(),
		Prerelease:  rel.GetPrerelease(),
		Breaking:    isBreakingChange(rel.GetTagName()+" "+rel.GetName(), rel.GetBody(), nil),
		CreatedAt:   utcTime(rel.GetCreatedAt()),
		PublishedAt: utcTimePtr(rel.PublishedAt),
	}
	if rec.Version().IsZero() {
		return nil, malformed(models.KindReleases, "missing release time")
	}
	rec.ContentHash = hashRecord(rec)
	return rec, nil
}

// utcTime normalizes to whole seconds UTC so stored text timestamps compare
// chronologically.
func utcTime(ts github.Timestamp) time.Time {
	if ts.Time.IsZero() {
		return time.Time{}
	}
	return ts.Time.UTC().Truncate(time.Second)
}

func utcTimePtr(ts *github.Timestamp) *time.Time {
	if ts == nil || ts.Time.IsZero() {
		return nil
	}
	t := ts.Time.UTC().Truncate(time.Second)
	return &t
}

func labelNames(labels []*github.Label) []string {
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		if name := l.GetName(); name != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func userLogins(users []*github.User) []string {
	logins := make([]string, 0, len(users))
	for _, u := range users {
		if login := u.GetLogin(); login != "" {
			logins = append(logins, login)
		}
	}
	sort.Strings(logins)
	return logins
}

// hashRecord fingerprints a record's content. Called before ContentHash is
// set, so the empty hash field is part of the stable encoding.
func hashRecord(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
