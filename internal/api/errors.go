package api

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/go-github/v57/github"
)

var (
	// ErrUnauthorized means the token was rejected. Not retryable.
	ErrUnauthorized = errors.New("github: unauthorized")

	// ErrNotFound means the repository or resource does not exist (or the
	// token cannot see it). Not retryable.
	ErrNotFound = errors.New("github: not found")
)

// RateLimitError reports quota exhaustion. The caller is expected to resume
// after RetryAfter rather than retry immediately.
type RateLimitError struct {
	RetryAfter time.Duration
	ResetAt    time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github: rate limited, retry after %s", e.RetryAfter.Round(time.Second))
}

// TransientError reports a network or server failure that survived the
// bounded retry loop.
type TransientError struct {
	Err      error
	Attempts int
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("github: transient failure after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// classifyError maps a go-github error onto the sync error taxonomy. The
// second return reports whether the failure is worth retrying in place.
func classifyError(err error) (error, bool) {
	var rl *github.RateLimitError
	if errors.As(err, &rl) {
		reset := rl.Rate.Reset.Time
		wait := time.Until(reset)
		if wait < 0 {
			wait = 0
		}
		return &RateLimitError{RetryAfter: wait, ResetAt: reset}, false
	}

	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		wait := time.Minute
		if abuse.RetryAfter != nil {
			wait = *abuse.RetryAfter
		}
		return &RateLimitError{RetryAfter: wait, ResetAt: time.Now().Add(wait)}, false
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrUnauthorized, ghErr.Message), false
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, ghErr.Message), false
		}
		if ghErr.Response.StatusCode >= 500 {
			return err, true
		}
		return err, false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return err, true
	}

	// Unrecognized errors (closed connections, EOFs mid-body) are treated
	// as transient; the bounded retry loop keeps them from looping forever.
	return err, true
}
