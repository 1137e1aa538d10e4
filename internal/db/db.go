// Package db owns the SQLite schema and the conditional upserts that keep
// the local tables consistent with upstream. Writes are keyed by the
// remote-assigned identifier and ordered by the upstream version timestamp,
// never by local wall-clock.
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/osshealth/gram/internal/models"
)

// ErrConstraint wraps sqlite constraint violations for genuinely malformed
// rows. Arrival-order issues never produce it.
var ErrConstraint = errors.New("constraint violation")

// timeLayout stores timestamps as whole-second UTC text, which compares
// lexicographically in the same order as chronologically.
const timeLayout = "2006-01-02T15:04:05Z"

// DB represents the database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection
func New(dbPath string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{DB: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS repositories (
	id INTEGER PRIMARY KEY,
	owner TEXT NOT NULL,
	name TEXT NOT NULL,
	full_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS pull_requests (
	id INTEGER PRIMARY KEY,
	repository_id INTEGER NOT NULL,
	number INTEGER NOT NULL,
	title TEXT NOT NULL,
	body TEXT,
	state TEXT NOT NULL,
	author_login TEXT,
	author_type TEXT,
	base_branch TEXT,
	head_branch TEXT,
	draft BOOLEAN NOT NULL DEFAULT 0,
	labels TEXT NOT NULL DEFAULT '[]',
	assignees TEXT NOT NULL DEFAULT '[]',
	pr_type TEXT,
	breaking_change BOOLEAN NOT NULL DEFAULT 0,
	additions INTEGER,
	deletions INTEGER,
	changed_files INTEGER,
	commits_count INTEGER,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	closed_at TEXT,
	merged_at TEXT,
	content_hash TEXT NOT NULL,
	fetched_at TEXT NOT NULL,
	UNIQUE(repository_id, number)
);
CREATE INDEX IF NOT EXISTS idx_pr_state ON pull_requests (repository_id, state);
CREATE INDEX IF NOT EXISTS idx_pr_updated_at ON pull_requests (repository_id, updated_at);
CREATE INDEX IF NOT EXISTS idx_pr_merged_at ON pull_requests (repository_id, merged_at);

CREATE TABLE IF NOT EXISTS issues (
	id INTEGER PRIMARY KEY,
	repository_id INTEGER NOT NULL,
	number INTEGER NOT NULL,
	title TEXT NOT NULL,
	body TEXT,
	state TEXT NOT NULL,
	author_login TEXT,
	author_type TEXT,
	assignee_login TEXT,
	labels TEXT NOT NULL DEFAULT '[]',
	comments_count INTEGER NOT NULL DEFAULT 0,
	issue_type TEXT,
	priority TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	closed_at TEXT,
	content_hash TEXT NOT NULL,
	fetched_at TEXT NOT NULL,
	UNIQUE(repository_id, number)
);
CREATE INDEX IF NOT EXISTS idx_issue_state ON issues (repository_id, state);
CREATE INDEX IF NOT EXISTS idx_issue_closed_at ON issues (repository_id, closed_at);

CREATE TABLE IF NOT EXISTS reviews (
	id INTEGER PRIMARY KEY,
	repository_id INTEGER NOT NULL,
	pr_number INTEGER NOT NULL,
	reviewer_login TEXT,
	state TEXT,
	body TEXT,
	commit_sha TEXT,
	submitted_at TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	fetched_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_review_pr_number ON reviews (repository_id, pr_number);

CREATE TABLE IF NOT EXISTS comments (
	id INTEGER PRIMARY KEY,
	repository_id INTEGER NOT NULL,
	parent_number INTEGER NOT NULL,
	parent_kind TEXT NOT NULL,
	author_login TEXT,
	body TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	fetched_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comment_parent ON comments (repository_id, parent_number);

CREATE TABLE IF NOT EXISTS releases (
	id INTEGER PRIMARY KEY,
	repository_id INTEGER NOT NULL,
	tag_name TEXT NOT NULL,
	name TEXT,
	body TEXT,
	author_login TEXT,
	draft BOOLEAN NOT NULL DEFAULT 0,
	prerelease BOOLEAN NOT NULL DEFAULT 0,
	breaking_change BOOLEAN NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	published_at TEXT,
	deleted_at TEXT,
	content_hash TEXT NOT NULL,
	fetched_at TEXT NOT NULL,
	UNIQUE(repository_id, tag_name)
);
CREATE INDEX IF NOT EXISTS idx_release_published_at ON releases (repository_id, published_at);

CREATE TABLE IF NOT EXISTS sync_state (
	repository TEXT NOT NULL,
	kind TEXT NOT NULL,
	watermark TEXT NOT NULL DEFAULT '',
	last_run_at TEXT NOT NULL,
	last_status TEXT NOT NULL,
	last_error TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (repository, kind)
);
`

// Initialize creates the database schema if it doesn't exist
func (db *DB) Initialize() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveRepository saves a repository to the database
func (db *DB) SaveRepository(repo *models.Repository) error {
	query := `
	INSERT INTO repositories (id, owner, name, full_name)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(full_name) DO UPDATE SET
		owner = excluded.owner,
		name = excluded.name
	`

	_, err := db.Exec(query, repo.ID, repo.Owner, repo.Name, repo.FullName)
	if err != nil {
		return fmt.Errorf("failed to save repository: %w", err)
	}

	return nil
}

// GetRepositoryByFullName gets a repository by its full name
func (db *DB) GetRepositoryByFullName(fullName string) (*models.Repository, error) {
	query := `SELECT id, owner, name, full_name FROM repositories WHERE full_name = ?`

	var repo models.Repository
	err := db.QueryRow(query, fullName).Scan(&repo.ID, &repo.Owner, &repo.Name, &repo.FullName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get repository: %w", err)
	}

	return &repo, nil
}

// Upsert inserts the record, or updates it when the incoming version is
// newer, or equal with differing content. It reports whether the row
// changed; re-ingesting an identical record is a no-op.
func (db *DB) Upsert(repoID int64, rec models.Record) (bool, error) {
	if rec.StableID() == 0 {
		return false, fmt.Errorf("%w: %s record without stable identifier", ErrConstraint, rec.Kind())
	}

	var (
		res sql.Result
		err error
	)
	now := fmtTime(time.Now().UTC())

	switch r := rec.(type) {
	case *models.PullRequest:
		res, err = db.upsertPullRequest(repoID, r, now)
	case *models.Issue:
		res, err = db.upsertIssue(repoID, r, now)
	case *models.Review:
		res, err = db.upsertReview(repoID, r, now)
	case *models.Comment:
		res, err = db.upsertComment(repoID, r, now)
	case *models.Release:
		res, err = db.upsertRelease(repoID, r, now)
	default:
		return false, fmt.Errorf("unsupported record type %T", rec)
	}
	if err != nil {
		return false, wrapConstraint(fmt.Errorf("failed to upsert %s %d: %w", rec.Kind(), rec.StableID(), err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

func (db *DB) upsertPullRequest(repoID int64, pr *models.PullRequest, now string) (sql.Result, error) {
	// Size stats live on the detail endpoint and are filled in by the
	// enrichment stage; list-payload upserts must not clobber them.
	query := `
	INSERT INTO pull_requests (
		id, repository_id, number, title, body, state, author_login,
		author_type, base_branch, head_branch, draft, labels, assignees,
		pr_type, breaking_change, created_at, updated_at, closed_at,
		merged_at, content_hash, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		number = excluded.number,
		title = excluded.title,
		body = excluded.body,
		state = excluded.state,
		author_login = excluded.author_login,
		author_type = excluded.author_type,
		base_branch = excluded.base_branch,
		head_branch = excluded.head_branch,
		draft = excluded.draft,
		labels = excluded.labels,
		assignees = excluded.assignees,
		pr_type = excluded.pr_type,
		breaking_change = excluded.breaking_change,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		closed_at = excluded.closed_at,
		merged_at = excluded.merged_at,
		content_hash = excluded.content_hash,
		fetched_at = excluded.fetched_at
	WHERE excluded.updated_at > pull_requests.updated_at
	   OR (excluded.updated_at = pull_requests.updated_at
	       AND excluded.content_hash <> pull_requests.content_hash)
	`
	return db.Exec(query,
		pr.ID, repoID, pr.Number, pr.Title, pr.Body, pr.State, pr.AuthorLogin,
		pr.AuthorType, pr.BaseBranch, pr.HeadBranch, pr.Draft,
		marshalStrings(pr.Labels), marshalStrings(pr.Assignees),
		pr.PRType, pr.Breaking, fmtTime(pr.CreatedAt), fmtTime(pr.UpdatedAt),
		fmtTimePtr(pr.ClosedAt), fmtTimePtr(pr.MergedAt), pr.ContentHash, now,
	)
}

func (db *DB) upsertIssue(repoID int64, issue *models.Issue, now string) (sql.Result, error) {
	query := `
	INSERT INTO issues (
		id, repository_id, number, title, body, state, author_login,
		author_type, assignee_login, labels, comments_count, issue_type,
		priority, created_at, updated_at, closed_at, content_hash, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		number = excluded.number,
		title = excluded.title,
		body = excluded.body,
		state = excluded.state,
		author_login = excluded.author_login,
		author_type = excluded.author_type,
		assignee_login = excluded.assignee_login,
		labels = excluded.labels,
		comments_count = excluded.comments_count,
		issue_type = excluded.issue_type,
		priority = excluded.priority,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		closed_at = excluded.closed_at,
		content_hash = excluded.content_hash,
		fetched_at = excluded.fetched_at
	WHERE excluded.updated_at > issues.updated_at
	   OR (excluded.updated_at = issues.updated_at
	       AND excluded.content_hash <> issues.content_hash)
	`
	return db.Exec(query,
		issue.ID, repoID, issue.Number, issue.Title, issue.Body, issue.State,
		issue.AuthorLogin, issue.AuthorType, issue.AssigneeLogin,
		marshalStrings(issue.Labels), issue.CommentsCount, issue.IssueType,
		issue.Priority, fmtTime(issue.CreatedAt), fmtTime(issue.UpdatedAt),
		fmtTimePtr(issue.ClosedAt), issue.ContentHash, now,
	)
}

func (db *DB) upsertReview(repoID int64, rev *models.Review, now string) (sql.Result, error) {
	query := `
	INSERT INTO reviews (
		id, repository_id, pr_number, reviewer_login, state, body,
		commit_sha, submitted_at, content_hash, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		pr_number = excluded.pr_number,
		reviewer_login = excluded.reviewer_login,
		state = excluded.state,
		body = excluded.body,
		commit_sha = excluded.commit_sha,
		submitted_at = excluded.submitted_at,
		content_hash = excluded.content_hash,
		fetched_at = excluded.fetched_at
	WHERE excluded.submitted_at > reviews.submitted_at
	   OR (excluded.submitted_at = reviews.submitted_at
	       AND excluded.content_hash <> reviews.content_hash)
	`
	return db.Exec(query,
		rev.ID, repoID, rev.PRNumber, rev.ReviewerLogin, rev.State, rev.Body,
		rev.CommitSHA, fmtTime(rev.SubmittedAt), rev.ContentHash, now,
	)
}

func (db *DB) upsertComment(repoID int64, c *models.Comment, now string) (sql.Result, error) {
	query := `
	INSERT INTO comments (
		id, repository_id, parent_number, parent_kind, author_login, body,
		created_at, updated_at, content_hash, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		parent_number = excluded.parent_number,
		parent_kind = excluded.parent_kind,
		author_login = excluded.author_login,
		body = excluded.body,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		content_hash = excluded.content_hash,
		fetched_at = excluded.fetched_at
	WHERE excluded.updated_at > comments.updated_at
	   OR (excluded.updated_at = comments.updated_at
	       AND excluded.content_hash <> comments.content_hash)
	`
	return db.Exec(query,
		c.ID, repoID, c.ParentNumber, c.ParentKind, c.AuthorLogin, c.Body,
		fmtTime(c.CreatedAt), fmtTime(c.UpdatedAt), c.ContentHash, now,
	)
}

func (db *DB) upsertRelease(repoID int64, rel *models.Release, now string) (sql.Result, error) {
	// A release reappearing upstream with a newer version clears any
	// earlier soft-delete mark.
	query := `
	INSERT INTO releases (
		id, repository_id, tag_name, name, body, author_login, draft,
		prerelease, breaking_change, created_at, published_at, deleted_at,
		content_hash, fetched_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		tag_name = excluded.tag_name,
		name = excluded.name,
		body = excluded.body,
		author_login = excluded.author_login,
		draft = excluded.draft,
		prerelease = excluded.prerelease,
		breaking_change = excluded.breaking_change,
		created_at = excluded.created_at,
		published_at = excluded.published_at,
		deleted_at = NULL,
		content_hash = excluded.content_hash,
		fetched_at = excluded.fetched_at
	WHERE COALESCE(excluded.published_at, excluded.created_at) > COALESCE(releases.published_at, releases.created_at)
	   OR (COALESCE(excluded.published_at, excluded.created_at) = COALESCE(releases.published_at, releases.created_at)
	       AND excluded.content_hash <> releases.content_hash)
	   OR releases.deleted_at IS NOT NULL
	`
	return db.Exec(query,
		rel.ID, repoID, rel.TagName, rel.Name, rel.Body, rel.AuthorLogin,
		rel.Draft, rel.Prerelease, rel.Breaking, fmtTime(rel.CreatedAt),
		fmtTimePtr(rel.PublishedAt), rel.ContentHash, now,
	)
}

// UpdatePullRequestStats fills in the size fields fetched from the detail
// endpoint or the GraphQL bulk query.
func (db *DB) UpdatePullRequestStats(repoID int64, number int, stats models.PullRequestStats) error {
	query := `
	UPDATE pull_requests
	SET additions = ?, deletions = ?, changed_files = ?, commits_count = ?
	WHERE repository_id = ? AND number = ?
	`
	_, err := db.Exec(query, stats.Additions, stats.Deletions, stats.ChangedFiles, stats.Commits, repoID, number)
	if err != nil {
		return fmt.Errorf("failed to update stats for PR #%d: %w", number, err)
	}
	return nil
}

// PullRequestCandidates returns numbers of pull requests updated at or
// after since, oldest update first. The review sync walks these in order so
// a partial failure leaves a sound watermark.
func (db *DB) PullRequestCandidates(repoID int64, since time.Time) ([]models.PRCandidate, error) {
	query := `
	SELECT number, updated_at FROM pull_requests
	WHERE repository_id = ? AND updated_at >= ?
	ORDER BY updated_at ASC, number ASC
	`
	rows, err := db.Query(query, repoID, fmtTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query pull request candidates: %w", err)
	}
	defer rows.Close()

	var out []models.PRCandidate
	for rows.Next() {
		var (
			c  models.PRCandidate
			ts string
		)
		if err := rows.Scan(&c.Number, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		c.UpdatedAt, err = parseTime(ts)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// PullRequestNumbersMissingStats returns numbers of pull requests the
// enrichment stage has not reached yet.
func (db *DB) PullRequestNumbersMissingStats(repoID int64) ([]int, error) {
	query := `
	SELECT number FROM pull_requests
	WHERE repository_id = ? AND additions IS NULL
	ORDER BY number ASC
	`
	rows, err := db.Query(query, repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pull requests missing stats: %w", err)
	}
	defer rows.Close()

	var numbers []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to scan number: %w", err)
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

// MarkReleasesDeleted soft-marks releases absent from a completed upstream
// enumeration and clears the mark on any that reappeared. It returns how
// many rows were newly marked.
func (db *DB) MarkReleasesDeleted(repoID int64, seenIDs []int64, ts time.Time) (int, error) {
	placeholders := make([]string, len(seenIDs))
	args := make([]any, 0, len(seenIDs)+2)
	args = append(args, fmtTime(ts), repoID)
	for i, id := range seenIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	in := strings.Join(placeholders, ", ")
	if len(seenIDs) == 0 {
		in = "-1" // mark everything
	}

	res, err := db.Exec(fmt.Sprintf(`
	UPDATE releases SET deleted_at = ?
	WHERE repository_id = ? AND deleted_at IS NULL AND id NOT IN (%s)
	`, in), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to mark deleted releases: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	if len(seenIDs) > 0 {
		args = args[2:]
		_, err = db.Exec(fmt.Sprintf(`
		UPDATE releases SET deleted_at = NULL
		WHERE repository_id = ? AND deleted_at IS NOT NULL AND id IN (%s)
		`, in), append([]any{repoID}, args...)...)
		if err != nil {
			return 0, fmt.Errorf("failed to clear deleted marks: %w", err)
		}
	}

	return int(n), nil
}

// GetSyncState returns the sync state for a repository and kind, or nil
// when the kind has never been synced.
func (db *DB) GetSyncState(repository string, kind models.ResourceKind) (*models.SyncState, error) {
	query := `
	SELECT watermark, last_run_at, last_status, last_error
	FROM sync_state WHERE repository = ? AND kind = ?
	`
	var (
		st             models.SyncState
		watermark, ran string
	)
	err := db.QueryRow(query, repository, string(kind)).Scan(&watermark, &ran, &st.LastStatus, &st.LastError)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	st.Repository = repository
	st.Kind = kind
	if st.Watermark, err = parseTime(watermark); err != nil {
		return nil, err
	}
	if st.LastRunAt, err = parseTime(ran); err != nil {
		return nil, err
	}
	return &st, nil
}

// SetSyncState writes the sync state row for a repository and kind.
func (db *DB) SetSyncState(st *models.SyncState) error {
	query := `
	INSERT INTO sync_state (repository, kind, watermark, last_run_at, last_status, last_error)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(repository, kind) DO UPDATE SET
		watermark = excluded.watermark,
		last_run_at = excluded.last_run_at,
		last_status = excluded.last_status,
		last_error = excluded.last_error
	`
	_, err := db.Exec(query, st.Repository, string(st.Kind), fmtTime(st.Watermark),
		fmtTime(st.LastRunAt), st.LastStatus, st.LastError)
	if err != nil {
		return fmt.Errorf("failed to set sync state: %w", err)
	}
	return nil
}

// SyncStates returns all sync state rows for a repository in kind order.
func (db *DB) SyncStates(repository string) ([]models.SyncState, error) {
	query := `
	SELECT kind, watermark, last_run_at, last_status, last_error
	FROM sync_state WHERE repository = ? ORDER BY kind
	`
	rows, err := db.Query(query, repository)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync states: %w", err)
	}
	defer rows.Close()

	var out []models.SyncState
	for rows.Next() {
		var (
			st             models.SyncState
			kind           string
			watermark, ran string
		)
		if err := rows.Scan(&kind, &watermark, &ran, &st.LastStatus, &st.LastError); err != nil {
			return nil, fmt.Errorf("failed to scan sync state: %w", err)
		}
		st.Repository = repository
		st.Kind = models.ResourceKind(kind)
		if st.Watermark, err = parseTime(watermark); err != nil {
			return nil, err
		}
		if st.LastRunAt, err = parseTime(ran); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// TableCounts returns per-entity row counts for a repository.
func (db *DB) TableCounts(repoID int64) (map[string]int, error) {
	counts := make(map[string]int)
	for _, table := range []string{"pull_requests", "issues", "reviews", "comments", "releases"} {
		var n int
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE repository_id = ?", table)
		if err := db.QueryRow(query, repoID).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

func wrapConstraint(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	}
	return err
}

// fmtTime renders a timestamp in the stored text form. The zero time maps
// to the empty string, which sorts before every real timestamp.
func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func fmtTimePtr(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func marshalStrings(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(data)
}
