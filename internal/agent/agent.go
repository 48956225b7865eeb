package agent

import (
	"context"
	"errors"
	"time"

	"github.com/anirbandas/job-apply-agent/internal/portal"
	"github.com/anirbandas/job-apply-agent/internal/profile"
	"github.com/anirbandas/job-apply-agent/internal/queue"
	"github.com/anirbandas/job-apply-agent/internal/utils"
)

var (
	// ErrUnknownUser is returned for lifecycle calls on an unregistered id.
	ErrUnknownUser = errors.New("unknown user")

	// ErrAborted signals that the user was deactivated while a step was in
	// flight. It always stops the current pass and is never treated as a
	// job-level failure.
	ErrAborted = errors.New("agent deactivated")
)

const (
	defaultRejectBelow  = 40
	defaultClarifyBelow = 70
	defaultMaxRetries   = 3
	defaultRetryDelay   = 10 * time.Second
	defaultPassInterval = 4 * time.Hour
	defaultBatchLimit   = 30

	// How often waits re-check the active flag.
	activePollInterval = 100 * time.Millisecond
)

// Config tunes one agent fleet. Zero values fall back to defaults.
type Config struct {
	RejectBelow      int
	ClarifyBelow     int
	MaxSubmitRetries int
	RetryDelay       time.Duration
	PassInterval     time.Duration
	BatchLimit       int
}

func (c Config) withDefaults() Config {
	if c.RejectBelow <= 0 {
		c.RejectBelow = defaultRejectBelow
	}
	if c.ClarifyBelow <= 0 {
		c.ClarifyBelow = defaultClarifyBelow
	}
	if c.MaxSubmitRetries <= 0 {
		c.MaxSubmitRetries = defaultMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaultRetryDelay
	}
	if c.PassInterval <= 0 {
		c.PassInterval = defaultPassInterval
	}
	if c.BatchLimit <= 0 {
		c.BatchLimit = defaultBatchLimit
	}
	return c
}

// ProfileStore is the user-profile lookup collaborator.
type ProfileStore interface {
	GetByID(ctx context.Context, id string) (*profile.Profile, error)
}

// JobSource fetches candidate jobs for a search query.
type JobSource interface {
	Search(ctx context.Context, query string, limit int) (*portal.Jobs, error)
}

// Applier submits one application to the portal.
type Applier interface {
	Submit(ctx context.Context, app *portal.Application) (*portal.Receipt, error)
}

const (
	lockRetryAttempts = 3
	lockRetryDelay    = 250 * time.Millisecond
)

// appendWithBackoff writes one queue record, backing off and retrying when
// the queue lock is contended. Lock contention is a retryable condition, not
// a failure of the record itself.
func appendWithBackoff(ctx context.Context, queues *queue.Store, userID string, status queue.Status, rec queue.Record) error {
	var err error
	for attempt := 1; attempt <= lockRetryAttempts; attempt++ {
		err = queues.Append(ctx, userID, status, rec)
		if err == nil || !errors.Is(err, queue.ErrLocked) {
			return err
		}
		if attempt < lockRetryAttempts {
			if waitErr := utils.WaitFor(ctx, lockRetryDelay); waitErr != nil {
				return waitErr
			}
		}
	}
	return err
}

// waitActive sleeps for d in short slices, returning false as soon as the
// user is deactivated or the context ends. Every sleep in the agent goes
// through here so cancellation is picked up promptly.
func waitActive(ctx context.Context, u *User, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		if !u.Active() || ctx.Err() != nil {
			return false
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return u.Active()
		}
		if remaining > activePollInterval {
			remaining = activePollInterval
		}

		if err := utils.WaitFor(ctx, remaining); err != nil {
			return false
		}
	}
}
