package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/anirbandas/job-apply-agent/internal/ai"
	"github.com/anirbandas/job-apply-agent/internal/portal"
	"github.com/anirbandas/job-apply-agent/internal/profile"
	"github.com/anirbandas/job-apply-agent/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

const defaultMaxLogLength = 200

// Scorer rates profile-to-job fit with a strict-JSON Gemini prompt.
type Scorer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewScorer(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Scorer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Scorer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (s *Scorer) Score(ctx context.Context, p *profile.Profile, job *portal.Job) (*ai.Assessment, error) {
	if p == nil {
		return nil, fmt.Errorf("profile is required")
	}
	if job == nil {
		return nil, fmt.Errorf("job is required")
	}

	profileJSON, err := json.MarshalIndent(p.Redacted(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile payload: %w", err)
	}

	jobJSON, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal job payload: %w", err)
	}

	prompt := fillTemplate(scorePromptTemplate, map[string]string{
		"PROFILE_JSON": string(profileJSON),
		"JOB_JSON":     string(jobJSON),
	})

	s.logger.Debug("score request",
		zap.String("job_id", job.ID),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, s.maxLogLen)),
	)

	raw, err := s.generator.GenerateContent(ctx, strictJSONSystem, prompt)
	if err != nil {
		return nil, fmt.Errorf("score job %s: %w: %w", job.ID, ai.ErrGeneration, err)
	}

	s.logger.Debug("score response",
		zap.String("job_id", job.ID),
		zap.String("response_preview", utils.TruncateForLog(raw, s.maxLogLen)),
	)

	assessment, err := parseAssessment(raw)
	if err != nil {
		return nil, fmt.Errorf("score job %s: %w: %w", job.ID, ai.ErrGeneration, err)
	}

	return assessment, nil
}

func parseAssessment(raw string) (*ai.Assessment, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	score, ok := coerceInt(data["score"])
	if !ok {
		return nil, fmt.Errorf("response has no usable score: %q", utils.TruncateForLog(raw, defaultMaxLogLength))
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return &ai.Assessment{
		Score:  score,
		Reason: coerceString(data["reason"]),
		Raw:    raw,
	}, nil
}
