package retrieval

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/apply-queue/internal/ai"
	"github.com/spigell/apply-queue/internal/catalog"
	"github.com/spigell/apply-queue/internal/logger"
)

// Candidate is a retrieved posting together with its similarity to the
// candidate summary.
type Candidate struct {
	Posting    *catalog.Posting
	Vector     []float32
	Distance   float64
	Similarity float64
}

type Retriever struct {
	embedder ai.Embedder
	timeout  time.Duration
	logger   *zap.Logger
}

// NewRetriever creates a retriever. A positive timeout bounds each embedding call.
func NewRetriever(embedder ai.Embedder, timeout time.Duration, log *zap.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		timeout:  timeout,
		logger:   logger.WithFields(log, zap.String(logger.FieldStage, "retrieval")),
	}
}

// Retrieve embeds every posting into a fresh index, queries it with the
// summary vector for min(2*topK, len) hits and drops hits whose similarity
// (1 - distance) is below minSimilarity. Any embedding failure aborts the call.
func (r *Retriever) Retrieve(ctx context.Context, summary string, postings *catalog.Postings, topK int, minSimilarity float64) ([]Candidate, error) {
	if postings.Len() == 0 {
		return nil, nil
	}

	index := NewFlatIndex()
	byID := make(map[string]*catalog.Posting, postings.Len())
	for _, posting := range postings.Items {
		vector, err := r.Embed(ctx, posting.Render())
		if err != nil {
			return nil, fmt.Errorf("embed posting %s: %w", posting.ID, err)
		}
		if err := index.Add(posting.ID, vector); err != nil {
			return nil, ai.Wrap("index", "add", err)
		}
		byID[posting.ID] = posting
	}

	query, err := r.Embed(ctx, summary)
	if err != nil {
		return nil, fmt.Errorf("embed candidate summary: %w", err)
	}

	k := min(2*topK, index.Len())
	if topK <= 0 {
		k = index.Len()
	}

	hits, err := index.Search(query, k)
	if err != nil {
		return nil, ai.Wrap("index", "search", err)
	}

	candidates := make([]Candidate, 0, len(hits))
	for _, hit := range hits {
		similarity := 1 - hit.Distance
		if similarity < minSimilarity {
			r.logger.Debug("dropping hit below similarity threshold",
				zap.String(logger.FieldJobID, hit.ID),
				zap.Float64("similarity", similarity),
			)
			continue
		}
		candidates = append(candidates, Candidate{
			Posting:    byID[hit.ID],
			Vector:     hit.Vector,
			Distance:   hit.Distance,
			Similarity: similarity,
		})
	}

	r.logger.Debug("retrieval finished",
		zap.Int("indexed", index.Len()),
		zap.Int("hits", len(hits)),
		zap.Int("kept", len(candidates)),
	)

	return candidates, nil
}

// Embed calls the embedder under the configured timeout and wraps failures
// as adapter errors.
func (r *Retriever) Embed(ctx context.Context, text string) ([]float32, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	vector, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, ai.Wrap("embedder", "embed", err)
	}
	return vector, nil
}
