// Package sync drives the per-kind incremental sync: it reads the stored
// watermark, pages the API client until exhaustion, routes normalized
// records into storage, and persists how far it got. Kinds are isolated
// from each other; one kind failing never aborts the rest of the run.
package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/osshealth/gram/internal/api"
	"github.com/osshealth/gram/internal/db"
	"github.com/osshealth/gram/internal/models"
	"github.com/osshealth/gram/internal/normalize"
)

const (
	// Rate-limit resume waits are capped so a bad reset header cannot
	// stall a run for hours.
	maxRateLimitWait = 15 * time.Minute
	minRateLimitWait = time.Second

	// Remaining-quota level below which pages start logging rate status.
	lowRateThreshold = 100

	maxSkipSamples = 5
)

// Source is the paged fetch surface the orchestrator drives. The REST
// client implements it; tests script it.
type Source interface {
	Repository(ctx context.Context, owner, name string) (*models.Repository, error)
	FetchPage(ctx context.Context, owner, name string, kind models.ResourceKind, since time.Time, cursor string) (*api.Page, error)
	ReviewPage(ctx context.Context, owner, name string, prNumber int, cursor string) (*api.Page, error)
	PullRequestStats(ctx context.Context, owner, name string, number int) (*models.PullRequestStats, error)
}

// BulkStatsSource bulk-fetches PR size stats, replacing per-PR detail
// calls during enrichment. Optional.
type BulkStatsSource interface {
	PullRequestStatsSince(ctx context.Context, owner, name string, since time.Time) (map[int]models.PullRequestStats, error)
}

// Options control one sync run.
type Options struct {
	// Full ignores stored watermarks and refetches all history.
	Full bool
	// Kinds filters which resource kinds to sync; nil means all.
	Kinds []models.ResourceKind
	// Enrich fills in PR size stats after the pull request kind.
	Enrich bool
}

// Syncer handles syncing one repository's resource kinds into the local
// database.
type Syncer struct {
	db     *db.DB
	source Source
	bulk   BulkStatsSource
	log    *log.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a new syncer
func New(database *db.DB, source Source) *Syncer {
	return &Syncer{
		db:     database,
		source: source,
		log:    log.New(io.Discard, "", log.LstdFlags),
		sleep:  sleepCtx,
	}
}

// SetLogger directs progress logging to l.
func (s *Syncer) SetLogger(l *log.Logger) {
	if l != nil {
		s.log = l
	}
}

// SetBulkStats enables GraphQL bulk enrichment.
func (s *Syncer) SetBulkStats(b BulkStatsSource) {
	s.bulk = b
}

// SyncRepository syncs every selected resource kind for one repository and
// returns the per-kind report. It returns an error only when the run could
// not start at all; per-kind failures are carried in the report.
func (s *Syncer) SyncRepository(ctx context.Context, owner, name string, opts Options) (*models.RunReport, error) {
	fullName := owner + "/" + name
	report := &models.RunReport{Repository: fullName, StartedAt: time.Now()}

	repo, err := s.source.Repository(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository %s: %w", fullName, err)
	}
	if err := s.db.SaveRepository(repo); err != nil {
		return nil, fmt.Errorf("failed to save repository %s: %w", fullName, err)
	}

	s.log.Printf("Syncing repository %s (full=%v)", fullName, opts.Full)

	for _, kind := range selectKinds(opts.Kinds) {
		if ctx.Err() != nil {
			report.Duration = time.Since(report.StartedAt)
			return report, ctx.Err()
		}

		res := s.syncKind(ctx, repo, kind, opts)

		if kind == models.KindPullRequests && opts.Enrich {
			s.enrich(ctx, repo, res.since, res.changedPRs, &res.KindResult)
		}

		s.log.Printf("Kind %s: %s (%d upserted, %d unchanged, %d skipped, %d pages)",
			kind, res.Status, res.Upserted, res.Unchanged, res.Skipped, res.Pages)
		report.Kinds = append(report.Kinds, res.KindResult)
	}

	report.Duration = time.Since(report.StartedAt)
	return report, nil
}

// kindOutcome pairs the reported result with run-internal bookkeeping.
type kindOutcome struct {
	models.KindResult
	since      time.Time
	changedPRs []int
}

func (s *Syncer) syncKind(ctx context.Context, repo *models.Repository, kind models.ResourceKind, opts Options) kindOutcome {
	start := time.Now()
	out := kindOutcome{KindResult: models.KindResult{Kind: kind, Status: models.StatusCompleted}}

	prior, err := s.db.GetSyncState(repo.FullName, kind)
	if err != nil {
		out.Status = models.StatusFailed
		out.Err = err.Error()
		out.Duration = time.Since(start)
		return out
	}

	var since time.Time
	if prior != nil && !opts.Full {
		since = prior.Watermark
	}
	out.since = since

	var maxSeen time.Time
	if kind == models.KindReviews {
		maxSeen = s.syncReviews(ctx, repo, since, &out)
	} else {
		maxSeen = s.syncPaged(ctx, repo, kind, since, &out)
	}

	// The watermark advances only through fully processed progress, and
	// never backwards unless this is an explicit full resync.
	watermark := since
	if maxSeen.After(watermark) {
		watermark = maxSeen
	}
	if opts.Full {
		watermark = maxSeen
	}
	if prior != nil && !opts.Full && watermark.Before(prior.Watermark) {
		watermark = prior.Watermark
	}
	if out.Status == models.StatusFailed && prior != nil {
		watermark = prior.Watermark
	}

	out.Watermark = watermark
	out.Duration = time.Since(start)

	state := &models.SyncState{
		Repository: repo.FullName,
		Kind:       kind,
		Watermark:  watermark,
		LastRunAt:  time.Now().UTC(),
		LastStatus: out.Status,
		LastError:  out.Err,
	}
	if err := s.db.SetSyncState(state); err != nil {
		s.log.Printf("Failed to persist sync state for %s: %v", kind, err)
		if out.Status == models.StatusCompleted {
			out.Status = models.StatusPartial
			out.Err = err.Error()
		}
	}
	return out
}

// syncPaged runs the pagination loop for list-endpoint kinds and returns
// the max version seen across fully processed pages.
func (s *Syncer) syncPaged(ctx context.Context, repo *models.Repository, kind models.ResourceKind, since time.Time, out *kindOutcome) time.Time {
	var (
		cursor  string
		maxSeen time.Time
		seenIDs []int64
	)

	// Releases have no since parameter upstream and are enumerated in
	// full every run; that enumeration is what makes soft-delete sound.
	fetchSince := since
	if kind == models.KindReleases {
		fetchSince = time.Time{}
	}

	for {
		if err := ctx.Err(); err != nil {
			out.Status = models.StatusPartial
			out.Err = err.Error()
			return maxSeen
		}

		page, err := s.source.FetchPage(ctx, repo.Owner, repo.Name, kind, fetchSince, cursor)
		if err != nil {
			if s.resumeAfterRateLimit(ctx, kind, err, out) {
				continue // same cursor, no page skipped or duplicated
			}
			return maxSeen
		}
		s.logRateStatus(page)

		pageMax, ids, err := s.processPage(repo, kind, page.Items, out)
		if err != nil {
			// The failed page is not counted; the watermark stays at
			// the end of the last fully processed page.
			out.Status = models.StatusPartial
			out.Err = err.Error()
			return maxSeen
		}
		out.Pages++
		seenIDs = append(seenIDs, ids...)
		if pageMax.After(maxSeen) {
			maxSeen = pageMax
		}

		// A non-empty page entirely older than the requested boundary
		// means upstream ordering is off (clock skew); stop rather than
		// loop forever. Never applies to full enumerations.
		if len(page.Items) > 0 && !fetchSince.IsZero() && pageMax.Before(fetchSince) {
			break
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	if kind == models.KindReleases && out.Status == models.StatusCompleted {
		deleted, err := s.db.MarkReleasesDeleted(repo.ID, seenIDs, time.Now().UTC())
		if err != nil {
			out.Status = models.StatusPartial
			out.Err = err.Error()
		} else {
			out.Deleted = deleted
		}
	}

	return maxSeen
}

// syncReviews walks pull requests updated since the watermark, oldest
// first, fetching each one's review pages. A PR is the unit of progress:
// the watermark advances to its update time only once all its pages are in.
func (s *Syncer) syncReviews(ctx context.Context, repo *models.Repository, since time.Time, out *kindOutcome) time.Time {
	candidates, err := s.db.PullRequestCandidates(repo.ID, since)
	if err != nil {
		out.Status = models.StatusPartial
		out.Err = err.Error()
		return time.Time{}
	}

	var maxSeen time.Time
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			out.Status = models.StatusPartial
			out.Err = err.Error()
			return maxSeen
		}

		cursor := ""
		for {
			page, err := s.source.ReviewPage(ctx, repo.Owner, repo.Name, cand.Number, cursor)
			if err != nil {
				if s.resumeAfterRateLimit(ctx, models.KindReviews, err, out) {
					continue
				}
				return maxSeen
			}
			s.logRateStatus(page)

			if _, _, err := s.processPage(repo, models.KindReviews, page.Items, out); err != nil {
				out.Status = models.StatusPartial
				out.Err = err.Error()
				return maxSeen
			}
			out.Pages++

			if page.NextCursor == "" {
				break
			}
			cursor = page.NextCursor
		}

		// Reviews bump their PR's updated_at upstream, so a fully
		// processed PR moves the watermark to that time.
		if cand.UpdatedAt.After(maxSeen) {
			maxSeen = cand.UpdatedAt
		}
	}
	return maxSeen
}

// processPage normalizes and upserts one page of raw items. Malformed
// records and constraint violations are skipped and sampled; a storage
// failure aborts the page.
func (s *Syncer) processPage(repo *models.Repository, kind models.ResourceKind, items []any, out *kindOutcome) (time.Time, []int64, error) {
	var (
		pageMax time.Time
		ids     []int64
	)

	for _, raw := range items {
		rec, err := normalize.Record(kind, raw)
		if err != nil {
			out.Skipped++
			s.sampleSkip(out, err)
			continue
		}

		changed, err := s.db.Upsert(repo.ID, rec)
		if err != nil {
			if errors.Is(err, db.ErrConstraint) {
				out.Skipped++
				s.sampleSkip(out, err)
				continue
			}
			return pageMax, ids, fmt.Errorf("failed to store %s %d: %w", kind, rec.StableID(), err)
		}

		if changed {
			out.Upserted++
			if pr, ok := rec.(*models.PullRequest); ok {
				out.changedPRs = append(out.changedPRs, pr.Number)
			}
		} else {
			out.Unchanged++
		}

		ids = append(ids, rec.StableID())
		if v := rec.Version(); v.After(pageMax) {
			pageMax = v
		}
	}
	return pageMax, ids, nil
}

// resumeAfterRateLimit handles a fetch error. For rate limits it sleeps
// through the indicated delay and reports true so the caller retries the
// same cursor. For everything else it records the terminal status and
// reports false.
func (s *Syncer) resumeAfterRateLimit(ctx context.Context, kind models.ResourceKind, err error, out *kindOutcome) bool {
	var rl *api.RateLimitError
	if errors.As(err, &rl) {
		wait := rateLimitWait(rl)
		s.log.Printf("Rate limited while syncing %s, resuming in %s", kind, wait.Round(time.Second))
		if sleepErr := s.sleep(ctx, wait); sleepErr != nil {
			out.Status = models.StatusPartial
			out.Err = sleepErr.Error()
			return false
		}
		return true
	}

	out.Err = err.Error()
	if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, api.ErrNotFound) {
		out.Status = models.StatusFailed
	} else {
		out.Status = models.StatusPartial
	}
	return false
}

// enrich fills in PR size stats for pull requests changed this run plus any
// never enriched. Failures here are supplementary: they are counted but do
// not change the kind's status.
func (s *Syncer) enrich(ctx context.Context, repo *models.Repository, since time.Time, changed []int, res *models.KindResult) {
	numbers := make(map[int]bool, len(changed))
	for _, n := range changed {
		numbers[n] = true
	}
	missing, err := s.db.PullRequestNumbersMissingStats(repo.ID)
	if err != nil {
		s.log.Printf("Failed to list pull requests missing stats: %v", err)
		res.EnrichErrs++
		return
	}
	for _, n := range missing {
		numbers[n] = true
	}
	if len(numbers) == 0 {
		return
	}

	var bulk map[int]models.PullRequestStats
	if s.bulk != nil {
		bulk, err = s.bulk.PullRequestStatsSince(ctx, repo.Owner, repo.Name, since)
		if err != nil {
			s.log.Printf("Bulk stats query failed, falling back to per-PR fetch: %v", err)
			bulk = nil
		}
	}

	for number := range numbers {
		stats, ok := bulk[number]
		if !ok {
			fetched, err := s.fetchStats(ctx, repo, number)
			if err != nil {
				s.log.Printf("Failed to fetch stats for PR #%d: %v", number, err)
				res.EnrichErrs++
				continue
			}
			stats = *fetched
		}
		if err := s.db.UpdatePullRequestStats(repo.ID, number, stats); err != nil {
			s.log.Printf("Failed to store stats for PR #%d: %v", number, err)
			res.EnrichErrs++
			continue
		}
		res.Enriched++
	}
}

// fetchStats fetches one PR's stats, resuming once through a rate limit.
func (s *Syncer) fetchStats(ctx context.Context, repo *models.Repository, number int) (*models.PullRequestStats, error) {
	for attempt := 0; attempt < 2; attempt++ {
		stats, err := s.source.PullRequestStats(ctx, repo.Owner, repo.Name, number)
		if err == nil {
			return stats, nil
		}
		var rl *api.RateLimitError
		if attempt == 0 && errors.As(err, &rl) {
			if sleepErr := s.sleep(ctx, rateLimitWait(rl)); sleepErr != nil {
				return nil, sleepErr
			}
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("rate limited twice fetching stats for #%d", number)
}

// logRateStatus surfaces the remote quota once it runs low. Quiet while
// plenty of budget remains.
func (s *Syncer) logRateStatus(page *api.Page) {
	if page.Rate.Limit > 0 && page.Rate.Remaining < lowRateThreshold {
		s.log.Printf("Rate limit status: %d/%d remaining, resets at %s",
			page.Rate.Remaining, page.Rate.Limit, page.Rate.ResetAt.Format(time.RFC3339))
	}
}

// rateLimitWait derives how long to pause for a rate-limit error: the
// server's retry-after when present, otherwise the time until quota reset,
// clamped to sane bounds either way.
func rateLimitWait(rl *api.RateLimitError) time.Duration {
	wait := rl.RetryAfter
	if wait <= 0 {
		wait = time.Until(rl.ResetAt)
	}
	if wait < minRateLimitWait {
		wait = minRateLimitWait
	}
	if wait > maxRateLimitWait {
		wait = maxRateLimitWait
	}
	return wait
}

func (s *Syncer) sampleSkip(out *kindOutcome, err error) {
	if len(out.SkipSamples) < maxSkipSamples {
		out.SkipSamples = append(out.SkipSamples, err.Error())
	}
}

func selectKinds(filter []models.ResourceKind) []models.ResourceKind {
	if len(filter) == 0 {
		return models.AllKinds()
	}
	wanted := make(map[models.ResourceKind]bool, len(filter))
	for _, k := range filter {
		wanted[k] = true
	}
	var out []models.ResourceKind
	for _, k := range models.AllKinds() {
		if wanted[k] {
			out = append(out, k)
		}
	}
	return out
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ParseRepositoryString parses a repository string in the format "owner/name"
func ParseRepositoryString(repoStr string) (string, string, error) {
	parts := strings.Split(repoStr, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format, expected 'owner/name', got '%s'", repoStr)
	}
	return parts[0], parts[1], nil
}
