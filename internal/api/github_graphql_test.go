package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/osshealth/gram/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statsNode(number int, updated string, additions, deletions, files, commits int) map[string]any {
	return map[string]any{
		"number":       number,
		"updatedAt":    updated,
		"additions":    additions,
		"deletions":    deletions,
		"changedFiles": files,
		"commits":      map[string]any{"totalCount": commits},
	}
}

func statsPage(nodes []map[string]any, endCursor string, hasNext bool) map[string]any {
	return map[string]any{
		"data": map[string]any{
			"rateLimit": map[string]any{
				"limit":     5000,
				"cost":      1,
				"remaining": 4900,
				"resetAt":   "2024-06-01T00:00:00Z",
			},
			"repository": map[string]any{
				"pullRequests": map[string]any{
					"nodes": nodes,
					"pageInfo": map[string]any{
						"endCursor":   endCursor,
						"hasNextPage": hasNext,
					},
				},
			},
		},
	}
}

func TestPullRequestStatsSince(t *testing.T) {
	var requests int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		var body struct {
			Variables struct {
				Cursor *string `json:"cursor"`
			} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		var resp map[string]any
		if body.Variables.Cursor == nil {
			resp = statsPage([]map[string]any{
				statsNode(1, "2024-05-02T00:00:00Z", 100, 20, 4, 2),
				statsNode(2, "2024-05-01T00:00:00Z", 10, 10, 1, 1),
			}, "CUR1", true)
		} else {
			require.Equal(t, "CUR1", *body.Variables.Cursor)
			// The second node is older than the boundary; the walk must
			// stop here despite hasNextPage.
			resp = statsPage([]map[string]any{
				statsNode(3, "2024-04-01T00:00:00Z", 5, 5, 1, 1),
				statsNode(4, "2023-01-01T00:00:00Z", 999, 999, 9, 9),
			}, "CUR2", true)
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewEnterpriseGraphQLClient(server.URL, server.Client(), nil)

	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	stats, err := client.PullRequestStatsSince(context.Background(), "acme", "widgets", since)
	require.NoError(t, err)

	assert.Equal(t, 2, requests, "walk stops at the first node below the boundary")
	assert.Equal(t, map[int]models.PullRequestStats{
		1: {Additions: 100, Deletions: 20, ChangedFiles: 4, Commits: 2},
		2: {Additions: 10, Deletions: 10, ChangedFiles: 1, Commits: 1},
		3: {Additions: 5, Deletions: 5, ChangedFiles: 1, Commits: 1},
	}, stats)
}

func TestPullRequestStatsSinceQueryError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors": [{"message": "repository not found"}]}`)
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := NewEnterpriseGraphQLClient(server.URL, server.Client(), nil)

	_, err := client.PullRequestStatsSince(context.Background(), "acme", "gone", time.Time{})
	assert.ErrorContains(t, err, "repository not found")
}
