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

// QueryBuilder turns a profile into a search-bar query string.
type QueryBuilder struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewQueryBuilder(generator contentGenerator, logger *zap.Logger, maxLogLength int) *QueryBuilder {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &QueryBuilder{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (q *QueryBuilder) BuildQuery(ctx context.Context, p *profile.Profile) (string, error) {
	if p == nil {
		return "", fmt.Errorf("profile is required")
	}

	profileJSON, err := json.MarshalIndent(p.Redacted(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal profile payload: %w", err)
	}

	prompt := fillTemplate(queryPromptTemplate, map[string]string{
		"PROFILE_JSON": string(profileJSON),
	})

	raw, err := q.generator.GenerateContent(ctx, querySystem, prompt)
	if err != nil {
		return "", fmt.Errorf("build search query: %w: %w", ai.ErrGeneration, err)
	}

	// The model occasionally wraps the query in quotes or fences anyway.
	query := strings.Trim(strings.TrimSpace(raw), "`\"'")
	query = strings.Join(strings.Fields(query), " ")
	if query == "" {
		return "", fmt.Errorf("build search query: empty query: %w", ai.ErrGeneration)
	}

	q.logger.Debug("search query built",
		zap.String("query", utils.TruncateForLog(query, q.maxLogLen)),
	)

	return query, nil
}
