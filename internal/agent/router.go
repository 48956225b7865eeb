package agent

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/anirbandas/job-apply-agent/internal/ai"
	"github.com/anirbandas/job-apply-agent/internal/notify"
	"github.com/anirbandas/job-apply-agent/internal/portal"
	"github.com/anirbandas/job-apply-agent/internal/profile"
	"github.com/anirbandas/job-apply-agent/internal/queue"
)

// Router classifies a scored batch into rejected, needs-clarification, and
// accepted. Rejected and clarify outcomes are committed to the queue store
// before Route returns; the accepted list is handed back for submission and
// is not persisted separately.
type Router struct {
	scorer ai.Scorer
	queues *queue.Store
	hub    *notify.Hub
	logger *zap.Logger

	rejectBelow  int
	clarifyBelow int
}

func NewRouter(scorer ai.Scorer, queues *queue.Store, hub *notify.Hub, cfg Config, logger *zap.Logger) *Router {
	cfg = cfg.withDefaults()

	return &Router{
		scorer:       scorer,
		queues:       queues,
		hub:          hub,
		logger:       logger,
		rejectBelow:  cfg.RejectBelow,
		clarifyBelow: cfg.ClarifyBelow,
	}
}

// Route scores every job in the batch and buckets it. A failed scoring call
// skips that single job. The accepted list comes back sorted by score,
// highest first, ties keeping batch order.
func (r *Router) Route(ctx context.Context, u *User, p *profile.Profile, jobs *portal.Jobs) ([]*portal.Job, error) {
	var accepted []*portal.Job

	for _, job := range jobs.Items {
		if !u.Active() {
			return nil, ErrAborted
		}

		if job.ID == "" {
			r.logger.Warn("skipping job without id", zap.String("user_id", u.ID))
			continue
		}

		assessment, err := r.scorer.Score(ctx, p, job)
		if err != nil {
			r.logger.Warn("scoring failed, skipping job",
				zap.String("user_id", u.ID),
				zap.String("job", job.Label()),
				zap.Error(err),
			)
			continue
		}

		job.MatchScore = assessment.Score
		job.MatchReason = assessment.Reason

		switch {
		case assessment.Score <= r.rejectBelow:
			if err := r.commit(ctx, u.ID, queue.StatusRejected, job); err != nil {
				r.logger.Error("recording rejected job failed",
					zap.String("user_id", u.ID),
					zap.String("job", job.Label()),
					zap.Error(err),
				)
				continue
			}

			r.hub.Publish(u.ID, notify.Event{
				Type:    notify.EventRejected,
				Message: fmt.Sprintf("Not a fit (%d/100): %s at %s", job.MatchScore, job.Title, job.Company),
				JobID:   job.ID,
			})

		case assessment.Score <= r.clarifyBelow:
			// No notification yet. The clarify event goes out once a
			// clarification report is attached to the record.
			if err := r.commit(ctx, u.ID, queue.StatusClarify, job); err != nil {
				r.logger.Error("recording clarify job failed",
					zap.String("user_id", u.ID),
					zap.String("job", job.Label()),
					zap.Error(err),
				)
			}

		default:
			accepted = append(accepted, job)
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].MatchScore > accepted[j].MatchScore
	})

	return accepted, nil
}

func (r *Router) commit(ctx context.Context, userID string, status queue.Status, job *portal.Job) error {
	return appendWithBackoff(ctx, r.queues, userID, status, queue.Record{
		Job:        job,
		RecordedAt: time.Now().UTC(),
	})
}
