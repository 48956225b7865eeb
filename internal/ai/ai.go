package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/anirbandas/job-apply-agent/internal/portal"
	"github.com/anirbandas/job-apply-agent/internal/profile"
)

// ErrGeneration marks a failed model interaction after all retries. Callers
// decide whether the surrounding operation is skipped or aborted.
var ErrGeneration = errors.New("ai generation failed")

// Kind selects which application artifact a generator produces.
type Kind string

const (
	KindResume        Kind = "resume"
	KindCoverLetter   Kind = "cover_letter"
	KindEvidence      Kind = "evidence"
	KindClarification Kind = "clarification"
)

func (k Kind) Valid() bool {
	switch k {
	case KindResume, KindCoverLetter, KindEvidence, KindClarification:
		return true
	}
	return false
}

// Assessment is the model's verdict on how well a profile fits a job.
// Score is on a 0-100 scale.
type Assessment struct {
	Score  int
	Reason string
	Raw    string
}

// Artifact is one generated piece of application content. Text carries the
// prose kinds, Points carries evidence bullet lists.
type Artifact struct {
	Kind   Kind
	Text   string
	Points []string
}

// Scorer evaluates a single job against a candidate profile.
type Scorer interface {
	Score(ctx context.Context, p *profile.Profile, job *portal.Job) (*Assessment, error)
}

// ContentGenerator produces application artifacts tailored to one job.
// Clarification answers from the user, when present, are passed through so
// the model can fold them into the artifact.
type ContentGenerator interface {
	Generate(ctx context.Context, kind Kind, p *profile.Profile, job *portal.Job, clarification string) (*Artifact, error)
}

// QueryBuilder distills a profile into a portal search query.
type QueryBuilder interface {
	BuildQuery(ctx context.Context, p *profile.Profile) (string, error)
}

// ProfileExtractor turns a raw resume document into a structured profile.
type ProfileExtractor interface {
	Extract(ctx context.Context, resumeText string) (*profile.Profile, error)
}

// Validate rejects artifacts the submission flow cannot use.
func (a *Artifact) Validate() error {
	if a == nil {
		return fmt.Errorf("artifact is nil: %w", ErrGeneration)
	}
	switch a.Kind {
	case KindEvidence:
		if len(a.Points) == 0 {
			return fmt.Errorf("evidence artifact has no points: %w", ErrGeneration)
		}
	default:
		if a.Text == "" {
			return fmt.Errorf("%s artifact is empty: %w", a.Kind, ErrGeneration)
		}
	}
	return nil
}
