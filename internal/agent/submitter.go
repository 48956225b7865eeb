package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/anirbandas/job-apply-agent/internal/ai"
	"github.com/anirbandas/job-apply-agent/internal/notify"
	"github.com/anirbandas/job-apply-agent/internal/portal"
	"github.com/anirbandas/job-apply-agent/internal/profile"
	"github.com/anirbandas/job-apply-agent/internal/queue"
)

// Submitter drives one job through generate -> submit -> record. Artifacts
// are produced once; only the submission call itself is retried.
type Submitter struct {
	writer ai.ContentGenerator
	api    Applier
	queues *queue.Store
	hub    *notify.Hub
	logger *zap.Logger

	maxRetries int
	retryDelay time.Duration
}

func NewSubmitter(writer ai.ContentGenerator, api Applier, queues *queue.Store, hub *notify.Hub, cfg Config, logger *zap.Logger) *Submitter {
	cfg = cfg.withDefaults()

	return &Submitter{
		writer:     writer,
		api:        api,
		queues:     queues,
		hub:        hub,
		logger:     logger,
		maxRetries: cfg.MaxSubmitRetries,
		retryDelay: cfg.RetryDelay,
	}
}

// Submit applies to one job on behalf of the user. A generation failure or a
// deactivated user aborts before any submission attempt; exhausted retries
// drop the job with a log line and no queue write.
func (s *Submitter) Submit(ctx context.Context, u *User, p *profile.Profile, job *portal.Job, clarification string) error {
	app, err := s.generate(ctx, u, p, job, clarification)
	if err != nil {
		return err
	}

	receipt, err := s.submitWithRetries(ctx, u, job, app)
	if err != nil {
		return err
	}

	if err := s.record(ctx, u.ID, job, app, receipt); err != nil {
		return err
	}

	s.hub.Publish(u.ID, notify.Event{
		Type:    notify.EventApplied,
		Message: fmt.Sprintf("Applied to %s at %s", job.Title, job.Company),
		JobID:   job.ID,
	})

	s.logger.Info("application submitted",
		zap.String("user_id", u.ID),
		zap.String("job", job.Label()),
		zap.String("application_id", receipt.ApplicationID),
	)

	return nil
}

func (s *Submitter) generate(ctx context.Context, u *User, p *profile.Profile, job *portal.Job, clarification string) (*portal.Application, error) {
	app := &portal.Application{
		JobID: job.ID,
		Name:  p.FullName,
		Email: p.Email,
		Phone: p.Phone,
	}

	for _, kind := range []ai.Kind{ai.KindResume, ai.KindCoverLetter, ai.KindEvidence} {
		if !u.Active() {
			return nil, ErrAborted
		}

		artifact, err := s.writer.Generate(ctx, kind, p, job, clarification)
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", job.ID, err)
		}

		switch kind {
		case ai.KindResume:
			app.Resume = artifact.Text
		case ai.KindCoverLetter:
			app.CoverLetter = artifact.Text
		case ai.KindEvidence:
			app.EvidencePoints = renderPoints(artifact.Points)
		}
	}

	return app, nil
}

func (s *Submitter) submitWithRetries(ctx context.Context, u *User, job *portal.Job, app *portal.Application) (*portal.Receipt, error) {
	var lastErr error

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if !u.Active() {
			return nil, ErrAborted
		}

		receipt, err := s.api.Submit(ctx, app)
		if err == nil {
			return receipt, nil
		}
		lastErr = err

		s.logger.Warn("submission attempt failed",
			zap.String("user_id", u.ID),
			zap.String("job", job.Label()),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", s.maxRetries),
			zap.Error(err),
		)

		if attempt == s.maxRetries {
			break
		}

		if !waitActive(ctx, u, s.retryDelay) {
			return nil, ErrAborted
		}
	}

	return nil, fmt.Errorf("job %s: submission failed after %d attempts: %w", job.ID, s.maxRetries, lastErr)
}

func (s *Submitter) record(ctx context.Context, userID string, job *portal.Job, app *portal.Application, receipt *portal.Receipt) error {
	rec := queue.Record{
		Job:           job,
		Application:   app,
		ApplicationID: receipt.ApplicationID,
		RecordedAt:    time.Now().UTC(),
	}

	if err := appendWithBackoff(ctx, s.queues, userID, queue.StatusApplied, rec); err != nil {
		return fmt.Errorf("record applied job %s: %w", job.ID, err)
	}

	return nil
}

func renderPoints(points []string) string {
	var b strings.Builder
	for _, point := range points {
		b.WriteString("- ")
		b.WriteString(point)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
