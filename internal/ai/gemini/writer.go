package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/anirbandas/job-apply-agent/internal/ai"
	"github.com/anirbandas/job-apply-agent/internal/portal"
	"github.com/anirbandas/job-apply-agent/internal/profile"
	"github.com/anirbandas/job-apply-agent/internal/utils"
)

// Writer produces application artifacts from one artifact prompt with a
// per-kind task block.
type Writer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewWriter(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Writer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Writer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (w *Writer) Generate(ctx context.Context, kind ai.Kind, p *profile.Profile, job *portal.Job, clarification string) (*ai.Artifact, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown artifact kind %q", kind)
	}
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

	if clarification == "" {
		clarification = "none"
	}

	prompt := fillTemplate(artifactPromptTemplate, map[string]string{
		"PROFILE_JSON":  string(profileJSON),
		"JOB_JSON":      string(jobJSON),
		"CLARIFICATION": clarification,
		"TASK":          taskFor(kind),
	})

	w.logger.Debug("artifact request",
		zap.String("kind", string(kind)),
		zap.String("job_id", job.ID),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, w.maxLogLen)),
	)

	raw, err := w.generator.GenerateContent(ctx, strictJSONSystem, prompt)
	if err != nil {
		return nil, fmt.Errorf("generate %s for job %s: %w: %w", kind, job.ID, ai.ErrGeneration, err)
	}

	w.logger.Debug("artifact response",
		zap.String("kind", string(kind)),
		zap.String("job_id", job.ID),
		zap.String("response_preview", utils.TruncateForLog(raw, w.maxLogLen)),
	)

	artifact, err := parseArtifact(kind, raw)
	if err != nil {
		return nil, fmt.Errorf("generate %s for job %s: %w: %w", kind, job.ID, ai.ErrGeneration, err)
	}

	return artifact, nil
}

func taskFor(kind ai.Kind) string {
	switch kind {
	case ai.KindResume:
		return `Write a concise resume summary tailored to the job, referencing real projects or skills from the candidate profile.

Return EXACTLY this JSON structure:

{"text": "The tailored resume summary"}`
	case ai.KindCoverLetter:
		return `Write a short personalized cover letter paragraph addressed to the recruiter, grounded in the candidate profile.

Return EXACTLY this JSON structure:

{"text": "The cover letter paragraph"}`
	case ai.KindEvidence:
		return `For each job requirement the candidate profile actually supports, write one specific bullet mapping the requirement to real skills or projects from the profile. Omit requirements the profile does not support.

Return EXACTLY this JSON structure:

{"points": ["One evidence bullet", "Another evidence bullet"]}`
	case ai.KindClarification:
		return `Write one short question asking the candidate for the missing information that would settle whether they fit this job. Use the score reasoning implied by the gaps between profile and posting.

Return EXACTLY this JSON structure:

{"text": "The clarifying question"}`
	}
	return ""
}

func parseArtifact(kind ai.Kind, raw string) (*ai.Artifact, error) {
	data, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	artifact := &ai.Artifact{Kind: kind}
	if kind == ai.KindEvidence {
		artifact.Points = coerceStringSlice(data["points"])
	} else {
		artifact.Text = coerceString(data["text"])
	}

	if err := artifact.Validate(); err != nil {
		return nil, err
	}

	return artifact, nil
}
