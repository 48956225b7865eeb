package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/anirbandas/job-apply-agent/internal/ai"
	"github.com/anirbandas/job-apply-agent/internal/profile"
	"github.com/anirbandas/job-apply-agent/internal/utils"
)

// Extractor parses raw resume text into a structured profile.
type Extractor struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewExtractor(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Extractor{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (e *Extractor) Extract(ctx context.Context, resumeText string) (*profile.Profile, error) {
	resumeText = strings.TrimSpace(resumeText)
	if resumeText == "" {
		return nil, fmt.Errorf("resume text is empty")
	}

	prompt := fillTemplate(extractPromptTemplate, map[string]string{
		"RESUME_TEXT": resumeText,
	})

	raw, err := e.generator.GenerateContent(ctx, strictJSONSystem, prompt)
	if err != nil {
		return nil, fmt.Errorf("extract profile: %w: %w", ai.ErrGeneration, err)
	}

	e.logger.Debug("profile extracted",
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	cleaned := extractJSON(raw)

	var p profile.Profile
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return nil, fmt.Errorf("extract profile: parse model response: %w: %w", ai.ErrGeneration, err)
	}

	if p.FullName == "" && p.Email == "" {
		return nil, fmt.Errorf("extract profile: response has no identity fields: %w", ai.ErrGeneration)
	}

	return &p, nil
}
