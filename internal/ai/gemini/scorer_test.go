package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/anirbandas/job-apply-agent/internal/ai"
	"github.com/anirbandas/job-apply-agent/internal/portal"
	"github.com/anirbandas/job-apply-agent/internal/profile"
)

type stubGenerator struct {
	response   string
	err        error
	lastSystem string
	lastPrompt string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, prompt string) (string, error) {
	s.lastSystem = system
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func testProfile() *profile.Profile {
	return &profile.Profile{
		ID:       "u1",
		FullName: "Dana Smith",
		Email:    "dana@example.com",
		Skills:   []string{"Go", "PostgreSQL"},
	}
}

func TestScorerParsesAssessment(t *testing.T) {
	stub := &stubGenerator{response: `{"score": 82, "reason": "Strong Go background"}`}
	scorer := NewScorer(stub, zap.NewNop(), 0)

	job := &portal.Job{ID: "j1", Title: "Go Developer"}

	assessment, err := scorer.Score(context.Background(), testProfile(), job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if assessment.Score != 82 {
		t.Fatalf("expected score 82, got %d", assessment.Score)
	}

	if assessment.Reason != "Strong Go background" {
		t.Fatalf("unexpected reason: %q", assessment.Reason)
	}

	if !strings.Contains(stub.lastPrompt, "Go Developer") {
		t.Fatalf("expected job title in prompt")
	}

	if !strings.Contains(stub.lastPrompt, "dana@example.com") {
		t.Fatalf("expected profile fields in prompt")
	}
}

func TestScorerClampsScoreRange(t *testing.T) {
	cases := []struct {
		name     string
		response string
		want     int
	}{
		{"above range", `{"score": 140, "reason": "r"}`, 100},
		{"below range", `{"score": -3, "reason": "r"}`, 0},
		{"string score", `{"score": "55", "reason": "r"}`, 55},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &stubGenerator{response: tc.response}
			scorer := NewScorer(stub, zap.NewNop(), 0)

			assessment, err := scorer.Score(context.Background(), testProfile(), &portal.Job{ID: "j1"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if assessment.Score != tc.want {
				t.Fatalf("expected score %d, got %d", tc.want, assessment.Score)
			}
		})
	}
}

func TestScorerHandlesCodeBlockResponse(t *testing.T) {
	stub := &stubGenerator{response: "```json\n{\"score\": 64, \"reason\": \"Partial match\"}\n```"}
	scorer := NewScorer(stub, zap.NewNop(), 0)

	assessment, err := scorer.Score(context.Background(), testProfile(), &portal.Job{ID: "j1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if assessment.Score != 64 {
		t.Fatalf("expected score 64, got %d", assessment.Score)
	}
}

func TestScorerWrapsGenerationFailures(t *testing.T) {
	stub := &stubGenerator{err: errors.New("boom")}
	scorer := NewScorer(stub, zap.NewNop(), 0)

	_, err := scorer.Score(context.Background(), testProfile(), &portal.Job{ID: "j1"})
	if !errors.Is(err, ai.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestScorerRejectsUnusableScore(t *testing.T) {
	stub := &stubGenerator{response: `{"reason": "no score field"}`}
	scorer := NewScorer(stub, zap.NewNop(), 0)

	_, err := scorer.Score(context.Background(), testProfile(), &portal.Job{ID: "j1"})
	if !errors.Is(err, ai.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}
