package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/anirbandas/job-apply-agent/internal/ai"
	"github.com/anirbandas/job-apply-agent/internal/portal"
)

func TestWriterGeneratesTextArtifacts(t *testing.T) {
	for _, kind := range []ai.Kind{ai.KindResume, ai.KindCoverLetter, ai.KindClarification} {
		t.Run(string(kind), func(t *testing.T) {
			stub := &stubGenerator{response: `{"text": "Generated content"}`}
			writer := NewWriter(stub, zap.NewNop(), 0)

			artifact, err := writer.Generate(context.Background(), kind, testProfile(), &portal.Job{ID: "j1", Title: "Go Developer"}, "")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if artifact.Kind != kind {
				t.Fatalf("expected kind %s, got %s", kind, artifact.Kind)
			}

			if artifact.Text != "Generated content" {
				t.Fatalf("unexpected text: %q", artifact.Text)
			}

			if !strings.Contains(stub.lastPrompt, "Go Developer") {
				t.Fatalf("expected job fields in prompt")
			}
		})
	}
}

func TestWriterGeneratesEvidencePoints(t *testing.T) {
	stub := &stubGenerator{response: `{"points": ["Shipped a Go service", "Ran PostgreSQL migrations"]}`}
	writer := NewWriter(stub, zap.NewNop(), 0)

	artifact, err := writer.Generate(context.Background(), ai.KindEvidence, testProfile(), &portal.Job{ID: "j1"}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(artifact.Points) != 2 {
		t.Fatalf("expected 2 evidence points, got %d", len(artifact.Points))
	}

	if artifact.Points[0] != "Shipped a Go service" {
		t.Fatalf("unexpected point: %q", artifact.Points[0])
	}
}

func TestWriterPassesClarificationThrough(t *testing.T) {
	stub := &stubGenerator{response: `{"text": "ok"}`}
	writer := NewWriter(stub, zap.NewNop(), 0)

	_, err := writer.Generate(context.Background(), ai.KindResume, testProfile(), &portal.Job{ID: "j1"}, "I am open to relocation.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(stub.lastPrompt, "I am open to relocation.") {
		t.Fatalf("clarification missing from prompt")
	}
}

func TestWriterRejectsEmptyArtifact(t *testing.T) {
	stub := &stubGenerator{response: `{"text": ""}`}
	writer := NewWriter(stub, zap.NewNop(), 0)

	_, err := writer.Generate(context.Background(), ai.KindResume, testProfile(), &portal.Job{ID: "j1"}, "")
	if !errors.Is(err, ai.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestWriterRejectsEmptyEvidence(t *testing.T) {
	stub := &stubGenerator{response: `{"points": []}`}
	writer := NewWriter(stub, zap.NewNop(), 0)

	_, err := writer.Generate(context.Background(), ai.KindEvidence, testProfile(), &portal.Job{ID: "j1"}, "")
	if !errors.Is(err, ai.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}

func TestWriterRejectsUnknownKind(t *testing.T) {
	stub := &stubGenerator{response: `{"text": "x"}`}
	writer := NewWriter(stub, zap.NewNop(), 0)

	_, err := writer.Generate(context.Background(), ai.Kind("poem"), testProfile(), &portal.Job{ID: "j1"}, "")
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestQueryBuilderNormalizesOutput(t *testing.T) {
	stub := &stubGenerator{response: "\n  golang developer   postgres kubernetes\n"}
	builder := NewQueryBuilder(stub, zap.NewNop(), 0)

	query, err := builder.BuildQuery(context.Background(), testProfile())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if query != "golang developer postgres kubernetes" {
		t.Fatalf("unexpected query: %q", query)
	}

	if stub.lastSystem == "" {
		t.Fatalf("expected system instruction to be set")
	}
}

func TestExtractorParsesProfile(t *testing.T) {
	stub := &stubGenerator{response: `{"full_name": "Dana Smith", "email": "dana@example.com", "skills": ["Go"]}`}
	extractor := NewExtractor(stub, zap.NewNop(), 0)

	p, err := extractor.Extract(context.Background(), "Dana Smith. Go engineer. dana@example.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.FullName != "Dana Smith" {
		t.Fatalf("unexpected name: %q", p.FullName)
	}

	if len(p.Skills) != 1 || p.Skills[0] != "Go" {
		t.Fatalf("unexpected skills: %v", p.Skills)
	}
}

func TestExtractorRejectsAnonymousProfile(t *testing.T) {
	stub := &stubGenerator{response: `{"skills": ["Go"]}`}
	extractor := NewExtractor(stub, zap.NewNop(), 0)

	_, err := extractor.Extract(context.Background(), "some resume text")
	if !errors.Is(err, ai.ErrGeneration) {
		t.Fatalf("expected ErrGeneration, got %v", err)
	}
}
