package api

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/osshealth/gram/internal/models"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
)

// GraphQLClient bulk-fetches pull request size stats. One paged query
// replaces a per-PR REST detail call for every changed pull request.
type GraphQLClient struct {
	client *githubv4.Client
	log    *log.Logger
}

// NewGraphQLClient creates a GraphQL client. The GraphQL API always
// requires a token.
func NewGraphQLClient(token string, logger *log.Logger) *GraphQLClient {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := oauth2.NewClient(context.Background(), src)
	return newGraphQLClient(githubv4.NewClient(httpClient), logger)
}

// NewEnterpriseGraphQLClient points the client at a non-default GraphQL
// endpoint. Used against GitHub Enterprise and in tests.
func NewEnterpriseGraphQLClient(url string, httpClient *http.Client, logger *log.Logger) *GraphQLClient {
	return newGraphQLClient(githubv4.NewEnterpriseClient(url, httpClient), logger)
}

func newGraphQLClient(client *githubv4.Client, logger *log.Logger) *GraphQLClient {
	if logger == nil {
		logger = log.New(io.Discard, "", log.LstdFlags)
	}
	return &GraphQLClient{client: client, log: logger}
}

// statsQuery pages pull requests newest-updated first so the walk can stop
// as soon as it drops below the since boundary.
type statsQuery struct {
	RateLimit struct {
		Limit     githubv4.Int
		Cost      githubv4.Int
		Remaining githubv4.Int
		ResetAt   githubv4.DateTime
	}
	Repository struct {
		PullRequests struct {
			Nodes []struct {
				Number       githubv4.Int
				UpdatedAt    githubv4.DateTime
				Additions    githubv4.Int
				Deletions    githubv4.Int
				ChangedFiles githubv4.Int
				Commits      struct {
					TotalCount githubv4.Int
				} `graphql:"commits(first: 1)"`
			}
			PageInfo struct {
				EndCursor   githubv4.String
				HasNextPage githubv4.Boolean
			}
		} `graphql:"pullRequests(first: 100, after: $cursor, orderBy: {field: UPDATED_AT, direction: DESC})"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// PullRequestStatsSince returns size stats keyed by PR number for every pull
// request updated at or after since. A zero since walks the full history.
func (c *GraphQLClient) PullRequestStatsSince(ctx context.Context, owner, name string, since time.Time) (map[int]models.PullRequestStats, error) {
	stats := make(map[int]models.PullRequestStats)

	variables := map[string]interface{}{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(name),
		"cursor": (*githubv4.String)(nil),
	}

	for {
		var q statsQuery
		if err := c.client.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to query pull request stats: %w", err)
		}

		if remaining := int(q.RateLimit.Remaining); remaining < 100 {
			c.log.Printf("GraphQL rate limit status: %d/%d remaining, resets at %s",
				remaining, int(q.RateLimit.Limit), q.RateLimit.ResetAt.Time.Format(time.RFC3339))
		}

		done := false
		for _, node := range q.Repository.PullRequests.Nodes {
			if !since.IsZero() && node.UpdatedAt.Time.Before(since) {
				done = true
				break
			}
			stats[int(node.Number)] = models.PullRequestStats{
				Additions:    int(node.Additions),
				Deletions:    int(node.Deletions),
				ChangedFiles: int(node.ChangedFiles),
				Commits:      int(node.Commits.TotalCount),
			}
		}

		if done || !bool(q.Repository.PullRequests.PageInfo.HasNextPage) {
			break
		}
		variables["cursor"] = githubv4.NewString(q.Repository.PullRequests.PageInfo.EndCursor)
		c.log.Printf("Fetched stats for %d pull requests so far for %s/%s", len(stats), owner, name)
	}

	return stats, nil
}
