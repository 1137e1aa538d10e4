// Package api wraps the GitHub REST and GraphQL clients behind the paged
// fetch contract the sync orchestrator drives, and maps transport failures
// onto the retryable/fatal error taxonomy.
package api

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v57/github"
	"github.com/osshealth/gram/internal/models"
	"golang.org/x/oauth2"
)

const (
	defaultPerPage    = 100
	defaultMaxRetries = 3
	defaultBackoff    = 2 * time.Second
)

// Page is one page of raw payloads for a resource kind. NextCursor is the
// opaque token for the following page, empty when this page is the last.
type Page struct {
	Items      []any
	NextCursor string
	Rate       models.RateLimitInfo
}

// Client is the REST API client. One instance serves all repositories.
type Client struct {
	gh         *github.Client
	log        *log.Logger
	perPage    int
	maxRetries int
	backoff    time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger directs progress and retry logging to l.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithPerPage sets the list page size, capped at the API maximum of 100.
func WithPerPage(n int) Option {
	return func(c *Client) {
		if n > 0 && n <= 100 {
			c.perPage = n
		}
	}
}

// WithRetry sets the transient-failure retry budget and base backoff.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.maxRetries = attempts
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// NewClient creates a REST client. The transport chain layers the bearer
// token over the secondary-rate-limit waiter so abuse limits are absorbed
// before they surface as errors.
func NewClient(token string, opts ...Option) (*Client, error) {
	waiter, err := github_ratelimit.NewRateLimitWaiter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}

	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = &http.Client{
			Transport: &oauth2.Transport{Base: waiter, Source: ts},
		}
	} else {
		httpClient = &http.Client{Transport: waiter}
	}

	c := &Client{
		gh:         github.NewClient(httpClient),
		log:        log.New(io.Discard, "", log.LstdFlags),
		perPage:    defaultPerPage,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Repository fetches repository metadata by owner and name.
func (c *Client) Repository(ctx context.Context, owner, name string) (*models.Repository, error) {
	var repo *github.Repository
	err := c.withRetry(ctx, "get repository", func() error {
		r, _, err := c.gh.Repositories.Get(ctx, owner, name)
		repo = r
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get repository %s/%s: %w", owner, name, err)
	}

	return &models.Repository{
		ID:       repo.GetID(),
		Owner:    repo.GetOwner().GetLogin(),
		Name:     repo.GetName(),
		FullName: repo.GetFullName(),
	}, nil
}

// FetchPage fetches one page of the given resource kind. A zero since means
// unbounded; an empty cursor means the first page. Kinds whose endpoint has
// no since parameter are filtered client-side, so a page may come back empty
// while its cursor still advances.
func (c *Client) FetchPage(ctx context.Context, owner, name string, kind models.ResourceKind, since time.Time, cursor string) (*Page, error) {
	pageNum, err := parseCursor(cursor)
	if err != nil {
		return nil, err
	}

	switch kind {
	case models.KindPullRequests:
		return c.pullRequestPage(ctx, owner, name, since, pageNum)
	case models.KindIssues:
		return c.issuePage(ctx, owner, name, since, pageNum)
	case models.KindComments:
		return c.commentPage(ctx, owner, name, since, pageNum)
	case models.KindReleases:
		return c.releasePage(ctx, owner, name, pageNum)
	case models.KindReviews:
		return nil, fmt.Errorf("reviews are fetched per pull request, use ReviewPage")
	}
	return nil, fmt.Errorf("unknown resource kind %q", kind)
}

func (c *Client) pullRequestPage(ctx context.Context, owner, name string, since time.Time, pageNum int) (*Page, error) {
	opts := &github.PullRequestListOptions{
		State:     "all",
		Sort:      "updated",
		Direction: "asc",
		ListOptions: github.ListOptions{
			PerPage: c.perPage,
			Page:    pageNum,
		},
	}

	var (
		prs  []*github.PullRequest
		resp *github.Response
	)
	err := c.withRetry(ctx, "list pull requests", func() error {
		var err error
		prs, resp, err = c.gh.PullRequests.List(ctx, owner, name, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	// The pulls endpoint has no since parameter. Older items are dropped
	// here so the caller sees only what the watermark asks for.
	page := pageFromResponse(resp)
	for _, pr := range prs {
		if !since.IsZero() && pr.GetUpdatedAt().Time.Before(since) {
			continue
		}
		page.Items = append(page.Items, pr)
	}
	return page, nil
}

func (c *Client) issuePage(ctx context.Context, owner, name string, since time.Time, pageNum int) (*Page, error) {
	opts := &github.IssueListByRepoOptions{
		State:     "all",
		Sort:      "updated",
		Direction: "asc",
		ListOptions: github.ListOptions{
			PerPage: c.perPage,
			Page:    pageNum,
		},
	}
	if !since.IsZero() {
		opts.Since = since
	}

	var (
		issues []*github.Issue
		resp   *github.Response
	)
	err := c.withRetry(ctx, "list issues", func() error {
		var err error
		issues, resp, err = c.gh.Issues.ListByRepo(ctx, owner, name, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	// The issues endpoint also returns pull requests; those are synced
	// through their own kind.
	page := pageFromResponse(resp)
	for _, issue := range issues {
		if issue.IsPullRequest() {
			continue
		}
		page.Items = append(page.Items, issue)
	}
	return page, nil
}

func (c *Client) commentPage(ctx context.Context, owner, name string, since time.Time, pageNum int) (*Page, error) {
	sort := "updated"
	direction := "asc"
	opts := &github.IssueListCommentsOptions{
		Sort:      &sort,
		Direction: &direction,
		ListOptions: github.ListOptions{
			PerPage: c.perPage,
			Page:    pageNum,
		},
	}
	if !since.IsZero() {
		opts.Since = &since
	}

	var (
		comments []*github.IssueComment
		resp     *github.Response
	)
	err := c.withRetry(ctx, "list comments", func() error {
		var err error
		// Issue number 0 lists comments for the whole repository.
		comments, resp, err = c.gh.Issues.ListComments(ctx, owner, name, 0, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	page := pageFromResponse(resp)
	for _, comment := range comments {
		page.Items = append(page.Items, comment)
	}
	return page, nil
}

func (c *Client) releasePage(ctx context.Context, owner, name string, pageNum int) (*Page, error) {
	opts := &github.ListOptions{PerPage: c.perPage, Page: pageNum}

	var (
		releases []*github.RepositoryRelease
		resp     *github.Response
	)
	err := c.withRetry(ctx, "list releases", func() error {
		var err error
		releases, resp, err = c.gh.Repositories.ListReleases(ctx, owner, name, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	page := pageFromResponse(resp)
	for _, rel := range releases {
		page.Items = append(page.Items, rel)
	}
	return page, nil
}

// ReviewPage fetches one page of reviews for a single pull request.
func (c *Client) ReviewPage(ctx context.Context, owner, name string, prNumber int, cursor string) (*Page, error) {
	pageNum, err := parseCursor(cursor)
	if err != nil {
		return nil, err
	}
	opts := &github.ListOptions{PerPage: c.perPage, Page: pageNum}

	var (
		reviews []*github.PullRequestReview
		resp    *github.Response
	)
	err = c.withRetry(ctx, fmt.Sprintf("list reviews for #%d", prNumber), func() error {
		var err error
		reviews, resp, err = c.gh.PullRequests.ListReviews(ctx, owner, name, prNumber, opts)
		return err
	})
	if err != nil {
		return nil, err
	}

	page := pageFromResponse(resp)
	for _, rev := range reviews {
		page.Items = append(page.Items, rev)
	}
	return page, nil
}

// PullRequestStats fetches the size fields only present on the PR detail
// endpoint.
func (c *Client) PullRequestStats(ctx context.Context, owner, name string, number int) (*models.PullRequestStats, error) {
	var pr *github.PullRequest
	err := c.withRetry(ctx, fmt.Sprintf("get pull request #%d", number), func() error {
		var err error
		pr, _, err = c.gh.PullRequests.Get(ctx, owner, name, number)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &models.PullRequestStats{
		Additions:    pr.GetAdditions(),
		Deletions:    pr.GetDeletions(),
		ChangedFiles: pr.GetChangedFiles(),
		Commits:      pr.GetCommits(),
	}, nil
}

// withRetry runs fn, retrying transient failures with exponential backoff up
// to the configured attempt budget. Rate-limit and fatal errors return
// immediately with their classified form.
func (c *Client) withRetry(ctx context.Context, what string, fn func() error) error {
	var lastErr error
	backoff := c.backoff

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		classified, retryable := classifyError(err)
		if !retryable {
			return classified
		}
		lastErr = classified

		if attempt < c.maxRetries {
			c.log.Printf("Retrying %s after error (attempt %d/%d): %v", what, attempt, c.maxRetries, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	return &TransientError{Err: lastErr, Attempts: c.maxRetries}
}

func pageFromResponse(resp *github.Response) *Page {
	page := &Page{
		Rate: models.RateLimitInfo{
			Limit:     resp.Rate.Limit,
			Remaining: resp.Rate.Remaining,
			ResetAt:   resp.Rate.Reset.Time,
		},
	}
	if resp.NextPage != 0 {
		page.NextCursor = strconv.Itoa(resp.NextPage)
	}
	return page
}

func parseCursor(cursor string) (int, error) {
	if cursor == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(cursor)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid page cursor %q", cursor)
	}
	return n, nil
}
