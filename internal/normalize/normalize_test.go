package normalize

import (
	"testing"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/osshealth/gram/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) github.Timestamp {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return github.Timestamp{Time: t}
}

func tsPtr(s string) *github.Timestamp {
	v := ts(s)
	return &v
}

func TestPullRequestStateFolding(t *testing.T) {
	pr := &github.PullRequest{
		ID:        github.Int64(101),
		Number:    github.Int(7),
		Title:     github.String("Fix flaky retry"),
		State:     github.String("closed"),
		User:      &github.User{Login: github.String("alice"), Type: github.String("User")},
		CreatedAt: tsPtr("2024-03-01T10:00:00Z"),
		UpdatedAt: tsPtr("2024-03-05T10:00:00Z"),
		ClosedAt:  tsPtr("2024-03-05T10:00:00Z"),
		MergedAt:  tsPtr("2024-03-05T10:00:00Z"),
	}

	rec, err := PullRequest(pr)
	require.NoError(t, err)

	assert.Equal(t, "merged", rec.State)
	assert.Equal(t, int64(101), rec.StableID())
	assert.Equal(t, "bugfix", rec.PRType)
	assert.NotEmpty(t, rec.ContentHash)
}

func TestPullRequestMissingID(t *testing.T) {
	_, err := PullRequest(&github.PullRequest{Number: github.Int(1)})

	var mErr *MalformedRecordError
	require.ErrorAs(t, err, &mErr)
	assert.Equal(t, models.KindPullRequests, mErr.RecordKind)
}

func TestPullRequestDefaultsUpdatedAt(t *testing.T) {
	pr := &github.PullRequest{
		ID:        github.Int64(5),
		Number:    github.Int(5),
		CreatedAt: tsPtr("2024-01-01T00:00:00Z"),
	}

	rec, err := PullRequest(pr)
	require.NoError(t, err)
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
}

func TestTimestampsTruncatedToUTCSeconds(t *testing.T) {
	loc := time.FixedZone("JST", 9*3600)
	created := time.Date(2024, 6, 1, 9, 0, 0, 123456789, loc)

	issue := &github.Issue{
		ID:        github.Int64(9),
		Number:    github.Int(9),
		Title:     github.String("x"),
		State:     github.String("open"),
		CreatedAt: &github.Timestamp{Time: created},
		UpdatedAt: &github.Timestamp{Time: created},
	}

	rec, err := Issue(issue)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, rec.CreatedAt.Location())
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), rec.CreatedAt)
}

func TestContentHashStability(t *testing.T) {
	build := func(title string) *models.Issue {
		rec, err := Issue(&github.Issue{
			ID:        github.Int64(42),
			Number:    github.Int(42),
			Title:     github.String(title),
			State:     github.String("open"),
			CreatedAt: tsPtr("2024-01-01T00:00:00Z"),
			UpdatedAt: tsPtr("2024-01-02T00:00:00Z"),
		})
		require.NoError(t, err)
		return rec
	}

	a := build("same title")
	b := build("same title")
	c := build("different title")

	assert.Equal(t, a.ContentHash, b.ContentHash)
	assert.NotEqual(t, a.ContentHash, c.ContentHash)
}

func TestReviewParsing(t *testing.T) {
	rev := &github.PullRequestReview{
		ID:             github.Int64(7001),
		User:           &github.User{Login: github.String("carol")},
		State:          github.String("APPROVED"),
		SubmittedAt:    tsPtr("2024-02-10T12:00:00Z"),
		PullRequestURL: github.String("https://api.github.com/repos/acme/widgets/pulls/33"),
	}

	rec, err := Review(rev)
	require.NoError(t, err)
	assert.Equal(t, 33, rec.PRNumber)
	assert.Equal(t, "carol", rec.ReviewerLogin)
}

func TestReviewPendingRejected(t *testing.T) {
	rev := &github.PullRequestReview{
		ID:             github.Int64(7002),
		State:          github.String("PENDING"),
		PullRequestURL: github.String("https://api.github.com/repos/acme/widgets/pulls/33"),
	}

	_, err := Review(rev)
	var mErr *MalformedRecordError
	require.ErrorAs(t, err, &mErr)
}

func TestCommentParentClassification(t *testing.T) {
	cases := []struct {
		name     string
		htmlURL  string
		wantKind string
	}{
		{"pull request comment", "https://github.com/acme/widgets/pull/12#issuecomment-1", "pull_request"},
		{"issue comment", "https://github.com/acme/widgets/issues/12#issuecomment-2", "issue"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &github.IssueComment{
				ID:        github.Int64(500),
				IssueURL:  github.String("https://api.github.com/repos/acme/widgets/issues/12"),
				HTMLURL:   github.String(tc.htmlURL),
				User:      &github.User{Login: github.String("bob")},
				Body:      github.String("looks good"),
				CreatedAt: tsPtr("2024-02-01T00:00:00Z"),
				UpdatedAt: tsPtr("2024-02-01T00:00:00Z"),
			}

			rec, err := Comment(c)
			require.NoError(t, err)
			assert.Equal(t, 12, rec.ParentNumber)
			assert.Equal(t, tc.wantKind, rec.ParentKind)
		})
	}
}

func TestReleaseVersionFallsBackToCreated(t *testing.T) {
	rel := &github.RepositoryRelease{
		ID:        github.Int64(800),
		TagName:   github.String("v1.2.0"),
		Draft:     github.Bool(true),
		CreatedAt: tsPtr("2024-04-01T00:00:00Z"),
	}

	rec, err := Release(rel)
	require.NoError(t, err)
	assert.Equal(t, rec.CreatedAt, rec.Version())
}

func TestRecordDispatchWrongType(t *testing.T) {
	_, err := Record(models.KindIssues, &github.PullRequest{})
	var mErr *MalformedRecordError
	require.ErrorAs(t, err, &mErr)
}

func TestClassifyPRType(t *testing.T) {
	cases := []struct {
		title  string
		labels []string
		want   string
	}{
		{"Anything at all", []string{"bug"}, "bugfix"},
		{"Anything at all", []string{"enhancement"}, "feature"},
		{"Update README", nil, "docs"},
		{"Refactor parser internals", nil, "maintenance"},
		{"Hotfix for crash on startup", nil, "bugfix"},
		{"Something unclassifiable", nil, "feature"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyPRType(tc.title, tc.labels), "title=%q labels=%v", tc.title, tc.labels)
	}
}

func TestClassifyIssueType(t *testing.T) {
	cases := []struct {
		title  string
		labels []string
		want   string
	}{
		{"whatever", []string{"broken"}, "bug"},
		{"Crash: error on load", nil, "bug"},
		{"How do I configure this?", nil, "question"},
		{"Please add dark mode", nil, "feature"},
		{"hello", nil, "question"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyIssueType(tc.title, tc.labels), "title=%q labels=%v", tc.title, tc.labels)
	}
}

func TestPriorityFromLabels(t *testing.T) {
	assert.Equal(t, "critical", priorityFromLabels([]string{"urgent"}))
	assert.Equal(t, "high", priorityFromLabels([]string{"important"}))
	assert.Equal(t, "low", priorityFromLabels([]string{"minor"}))
	assert.Equal(t, "medium", priorityFromLabels(nil))
}

func TestIsBreakingChange(t *testing.T) {
	assert.True(t, isBreakingChange("anything", "", []string{"breaking-change"}))
	assert.True(t, isBreakingChange("Remove deprecated API", "this is a breaking change", nil))
	assert.True(t, isBreakingChange("Backwards incompatible parser rewrite", "", nil))
	assert.False(t, isBreakingChange("Small docs tweak", "", nil))
}

func TestNumberFromURL(t *testing.T) {
	assert.Equal(t, 123, numberFromURL("https://api.github.com/repos/a/b/issues/123"))
	assert.Equal(t, 0, numberFromURL(""))
	assert.Equal(t, 0, numberFromURL("https://api.github.com/repos/a/b/issues/"))
	assert.Equal(t, 0, numberFromURL("no-slash"))
}
