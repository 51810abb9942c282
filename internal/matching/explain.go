package matching

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spigell/apply-queue/internal/ai"
	"github.com/spigell/apply-queue/internal/catalog"
	"github.com/spigell/apply-queue/internal/logger"
	"github.com/spigell/apply-queue/internal/profile"
	"github.com/spigell/apply-queue/internal/scoring"
)

// Explanation describes the skill fit of one posting.
type Explanation struct {
	JobID             string   `json:"job_id"`
	Overlap           []string `json:"overlap"`
	Missing           []string `json:"missing"`
	Percentage        float64  `json:"percentage"`
	Narrative         string   `json:"narrative"`
	ReasoningFallback bool     `json:"reasoning_fallback,omitempty"`
}

// ExplainMatch scores a single posting without retrieval. Without embeddings
// the semantic part of the fallback narrative is reported as zero.
func (m *Matcher) ExplainMatch(ctx context.Context, posting *catalog.Posting, candidate *profile.Candidate) (Explanation, error) {
	if posting == nil {
		return Explanation{}, errors.New("posting is required")
	}
	if candidate == nil {
		return Explanation{}, &profile.ValidationError{Message: "candidate is required"}
	}

	overlap := scoring.SkillOverlap(posting.Requirements, candidate.Profile.Skills)
	explanation := Explanation{
		JobID:      posting.ID,
		Overlap:    overlap.Overlap,
		Missing:    overlap.Missing,
		Percentage: scoring.Round(overlap.Percentage, 2),
	}

	narrative, err := m.reason(ctx, ai.ReasoningRequest{
		Posting:   posting,
		Summary:   profile.Summarize(candidate),
		Candidate: candidate,
		Overlap:   overlap.Overlap,
		Missing:   overlap.Missing,
	})
	if err != nil {
		logger.ForJob(m.logger, "explain", posting.ID).Warn("reasoning failed; using fallback narrative", zap.Error(err))
		m.metrics.ObserveFallback("reasoning")
		narrative = FallbackReasoning(0, overlap.Percentage/100)
		explanation.ReasoningFallback = true
	}
	explanation.Narrative = narrative

	return explanation, nil
}
