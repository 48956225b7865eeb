package agent

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/anirbandas/job-apply-agent/internal/ai"
	"github.com/anirbandas/job-apply-agent/internal/notify"
	"github.com/anirbandas/job-apply-agent/internal/portal"
	"github.com/anirbandas/job-apply-agent/internal/profile"
	"github.com/anirbandas/job-apply-agent/internal/queue"
)

// Worker runs the per-user processing loop: fetch candidates, score and
// route them, attach clarification reports, submit accepted jobs. One Worker
// serves the whole fleet; all per-user state lives in the User handle and
// the queue files.
type Worker struct {
	profiles  ProfileStore
	queries   ai.QueryBuilder
	source    JobSource
	router    *Router
	writer    ai.ContentGenerator
	submitter *Submitter
	queues    *queue.Store
	hub       *notify.Hub
	logger    *zap.Logger

	cfg Config
}

func NewWorker(
	profiles ProfileStore,
	queries ai.QueryBuilder,
	source JobSource,
	router *Router,
	writer ai.ContentGenerator,
	submitter *Submitter,
	queues *queue.Store,
	hub *notify.Hub,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		profiles:  profiles,
		queries:   queries,
		source:    source,
		router:    router,
		writer:    writer,
		submitter: submitter,
		queues:    queues,
		hub:       hub,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// Run loops passes until the user is deactivated, the context ends, or a
// pass fails at the user level. A failed pass ends the task; the user has to
// be started again explicitly.
func (w *Worker) Run(ctx context.Context, u *User) {
	for u.Active() && ctx.Err() == nil {
		if err := w.pass(ctx, u); err != nil {
			if errors.Is(err, ErrAborted) {
				return
			}

			w.logger.Error("pass failed, stopping agent",
				zap.String("user_id", u.ID),
				zap.Error(err),
			)
			// Lower the flag here so the exit path can tell a failed
			// pass apart from a restart racing the wind-down.
			u.active.Store(false)
			return
		}

		if !waitActive(ctx, u, w.cfg.PassInterval) {
			return
		}
	}
}

// pass is one fetch -> route -> clarify -> submit iteration.
func (w *Worker) pass(ctx context.Context, u *User) error {
	p, err := w.profiles.GetByID(ctx, u.ID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	query, err := w.queries.BuildQuery(ctx, p)
	if err != nil {
		return fmt.Errorf("build search query: %w", err)
	}

	if !u.Active() {
		return ErrAborted
	}

	jobs, err := w.source.Search(ctx, query, w.cfg.BatchLimit)
	if err != nil {
		// An unreachable job source means no candidates this pass,
		// not a dead agent.
		w.logger.Warn("job search failed, treating batch as empty",
			zap.String("user_id", u.ID),
			zap.Error(err),
		)
		jobs = &portal.Jobs{}
	}

	w.logger.Info("pass started",
		zap.String("user_id", u.ID),
		zap.String("query", query),
		zap.Int("candidates", jobs.Len()),
	)

	if err := w.excludeSeen(ctx, u.ID, jobs); err != nil {
		return err
	}

	accepted, err := w.router.Route(ctx, u, p, jobs)
	if err != nil {
		return err
	}

	if err := w.attachClarifications(ctx, u, p); err != nil {
		return err
	}

	for i, job := range accepted {
		if !u.Active() {
			w.logger.Info("agent deactivated, dropping remaining accepted jobs",
				zap.String("user_id", u.ID),
				zap.Int("dropped", len(accepted)-i),
			)
			return ErrAborted
		}

		// Fresh accepted jobs carry no clarification. The argument is
		// for resubmitting clarified jobs once the user answers, which
		// happens outside the automatic pass.
		if err := w.submitter.Submit(ctx, u, p, job, ""); err != nil {
			if errors.Is(err, ErrAborted) {
				return err
			}

			w.logger.Error("submission failed, dropping job from this pass",
				zap.String("user_id", u.ID),
				zap.String("job", job.Label()),
				zap.Error(err),
			)
		}
	}

	w.logger.Info("pass finished",
		zap.String("user_id", u.ID),
		zap.Int("accepted", len(accepted)),
	)

	return nil
}

// excludeSeen drops candidates that already reached a terminal queue in an
// earlier pass, so a job is only ever scored and decided once per user.
func (w *Worker) excludeSeen(ctx context.Context, userID string, jobs *portal.Jobs) error {
	if jobs.Len() == 0 {
		return nil
	}

	seen := make([]string, 0, jobs.Len())
	for _, status := range []queue.Status{queue.StatusApplied, queue.StatusRejected, queue.StatusClarify} {
		records, err := w.queues.ReadAll(ctx, userID, status)
		if err != nil {
			return fmt.Errorf("read %s queue: %w", status, err)
		}
		for _, rec := range records {
			if id := rec.JobID(); id != "" {
				seen = append(seen, id)
			}
		}
	}

	if excluded := jobs.Exclude(portal.JobIDField, seen); len(excluded) > 0 {
		w.logger.Debug("excluded previously decided jobs",
			zap.String("user_id", userID),
			zap.Strings("job_ids", excluded),
		)
	}

	return nil
}

// attachClarifications generates a clarification report for every clarify
// record that does not have one yet. Records that already carry a report are
// left untouched, so reprocessing never duplicates text.
func (w *Worker) attachClarifications(ctx context.Context, u *User, p *profile.Profile) error {
	records, err := w.queues.ReadAll(ctx, u.ID, queue.StatusClarify)
	if err != nil {
		return fmt.Errorf("read clarify queue: %w", err)
	}

	for _, rec := range records {
		if rec.Clarification != "" || rec.Job == nil {
			continue
		}

		if !u.Active() {
			return ErrAborted
		}

		artifact, err := w.writer.Generate(ctx, ai.KindClarification, p, rec.Job, "")
		if err != nil {
			w.logger.Warn("clarification generation failed, leaving record for next pass",
				zap.String("user_id", u.ID),
				zap.String("job", rec.Job.Label()),
				zap.Error(err),
			)
			continue
		}

		jobID := rec.Job.ID
		err = w.queues.Update(ctx, u.ID, queue.StatusClarify, func(current []queue.Record) []queue.Record {
			for i := range current {
				if current[i].JobID() == jobID && current[i].Clarification == "" {
					current[i].Clarification = artifact.Text
				}
			}
			return current
		})
		if err != nil {
			w.logger.Error("attaching clarification failed",
				zap.String("user_id", u.ID),
				zap.String("job_id", jobID),
				zap.Error(err),
			)
			continue
		}

		w.hub.Publish(u.ID, notify.Event{
			Type:    notify.EventClarify,
			Message: artifact.Text,
			JobID:   jobID,
		})
	}

	return nil
}
