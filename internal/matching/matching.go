// Package matching ranks postings against a candidate: semantic retrieval,
// skill overlap, score combination, relevant bullets and a narrative per match.
package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/apply-queue/internal/ai"
	"github.com/spigell/apply-queue/internal/catalog"
	"github.com/spigell/apply-queue/internal/logger"
	"github.com/spigell/apply-queue/internal/metrics"
	"github.com/spigell/apply-queue/internal/profile"
	"github.com/spigell/apply-queue/internal/retrieval"
	"github.com/spigell/apply-queue/internal/scoring"
)

const (
	DefaultTopK          = 30
	DefaultMinSimilarity = 0.3
	DefaultWorkers       = 4
	MaxRelevantBullets   = 5
)

// JobMatch is one scored posting. All scores are on a 0-100 scale.
type JobMatch struct {
	JobID              string           `json:"job_id"`
	Job                *catalog.Posting `json:"job"`
	MatchScore         float64          `json:"match_score"`
	SemanticSimilarity float64          `json:"semantic_similarity"`
	SkillMatchScore    float64          `json:"skill_match_score"`
	AIReasoning        string           `json:"ai_reasoning"`
	RelevantBullets    []string         `json:"relevant_bullets"`
	Priority           scoring.Priority `json:"priority"`
	ReasoningFallback  bool             `json:"reasoning_fallback,omitempty"`
	BulletsDegraded    bool             `json:"bullets_degraded,omitempty"`
}

type Options struct {
	TopK          int
	MinSimilarity float64
}

func DefaultOptions() Options {
	return Options{TopK: DefaultTopK, MinSimilarity: DefaultMinSimilarity}
}

// Deps carries the capabilities a Matcher uses. Reasoner, Logger and Metrics
// are optional.
type Deps struct {
	Embedder      ai.Embedder
	Reasoner      ai.Reasoner
	Logger        *zap.Logger
	Metrics       *metrics.Pipeline
	Workers       int
	EmbedTimeout  time.Duration
	ReasonTimeout time.Duration
}

type Matcher struct {
	retriever     *retrieval.Retriever
	reasoner      ai.Reasoner
	logger        *zap.Logger
	metrics       *metrics.Pipeline
	workers       int
	reasonTimeout time.Duration
}

func New(deps Deps) (*Matcher, error) {
	if deps.Embedder == nil {
		return nil, errors.New("embedder is required")
	}

	workers := deps.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	log := logger.WithFields(deps.Logger)

	return &Matcher{
		retriever:     retrieval.NewRetriever(deps.Embedder, deps.EmbedTimeout, log),
		reasoner:      deps.Reasoner,
		logger:        log,
		metrics:       deps.Metrics,
		workers:       workers,
		reasonTimeout: deps.ReasonTimeout,
	}, nil
}

// MatchJobs returns up to opts.TopK matches for the eligible postings, highest
// score first. Equal scores keep retrieval order. Postings failing the
// automation gate never enter the index. An embedding failure fails the call;
// reasoning and bullet failures degrade single fields and are flagged.
func (m *Matcher) MatchJobs(ctx context.Context, candidate *profile.Candidate, postings *catalog.Postings, opts Options) ([]JobMatch, error) {
	if candidate == nil {
		return nil, &profile.ValidationError{Message: "candidate is required"}
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}

	started := time.Now()
	defer m.metrics.ObserveMatching(started)

	eligible := catalog.FilterAutomatable(postings)
	summary := profile.Summarize(candidate)

	hits, err := m.retriever.Retrieve(ctx, summary, eligible, opts.TopK, opts.MinSimilarity)
	if err != nil {
		m.metrics.ObserveAdapterFailure("embed")
		return nil, fmt.Errorf("retrieve postings: %w", err)
	}

	m.logger.Info("retrieved postings",
		zap.Int("eligible", eligible.Len()),
		zap.Int("kept", len(hits)),
		zap.Int("top_k", opts.TopK),
		zap.Float64("min_similarity", opts.MinSimilarity),
	)

	if len(hits) == 0 {
		return []JobMatch{}, nil
	}

	bullets, bulletsErr := m.buildBulletIndex(ctx, candidate)
	if bulletsErr != nil {
		m.metrics.ObserveAdapterFailure("embed")
		m.logger.Warn("bullet bank embedding failed; relevant bullets are left empty", zap.Error(bulletsErr))
	}

	matches := make([]JobMatch, len(hits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	for i, hit := range hits {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			matches[i] = m.score(gctx, candidate, summary, hit, bullets, bulletsErr != nil)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("score matches: %w", err)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})
	if len(matches) > opts.TopK {
		matches = matches[:opts.TopK]
	}

	for _, match := range matches {
		m.metrics.ObserveMatch(string(match.Priority))
	}

	return matches, nil
}

type bulletIndex struct {
	index *retrieval.FlatIndex
	texts []string
}

// buildBulletIndex embeds the bullet bank once per request. A nil index with a
// nil error means the bank is empty.
func (m *Matcher) buildBulletIndex(ctx context.Context, candidate *profile.Candidate) (*bulletIndex, error) {
	texts := candidate.Bullets()
	if len(texts) == 0 {
		return nil, nil
	}

	index := retrieval.NewFlatIndex()
	for i, text := range texts {
		vector, err := m.retriever.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed bullet %d: %w", i, err)
		}
		if err := index.Add(strconv.Itoa(i), vector); err != nil {
			return nil, fmt.Errorf("index bullet %d: %w", i, err)
		}
	}

	return &bulletIndex{index: index, texts: texts}, nil
}

func (b *bulletIndex) relevant(vector []float32) ([]string, error) {
	if b == nil {
		return []string{}, nil
	}

	hits, err := b.index.Search(vector, min(MaxRelevantBullets, b.index.Len()))
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(hits))
	for _, hit := range hits {
		i, err := strconv.Atoi(hit.ID)
		if err != nil {
			return nil, fmt.Errorf("bullet id %q: %w", hit.ID, err)
		}
		out = append(out, b.texts[i])
	}
	return out, nil
}

func (m *Matcher) score(ctx context.Context, candidate *profile.Candidate, summary string, hit retrieval.Candidate, bullets *bulletIndex, bulletsDegraded bool) JobMatch {
	posting := hit.Posting
	log := logger.ForJob(m.logger, "scoring", posting.ID)

	similarity := scoring.Clamp(hit.Similarity, 0, 1)
	overlap := scoring.SkillOverlap(posting.Requirements, candidate.Profile.Skills)
	matchScore := scoring.Combine(similarity, overlap.Percentage/100)

	match := JobMatch{
		JobID:              posting.ID,
		Job:                posting,
		MatchScore:         matchScore,
		SemanticSimilarity: scoring.Round(similarity*100, 2),
		SkillMatchScore:    scoring.Round(overlap.Percentage, 2),
		Priority:           scoring.PriorityFor(matchScore),
		RelevantBullets:    []string{},
		BulletsDegraded:    bulletsDegraded,
	}

	if !bulletsDegraded {
		relevant, err := bullets.relevant(hit.Vector)
		if err != nil {
			log.Warn("relevant bullet search failed", zap.Error(err))
			m.metrics.ObserveFallback("bullets")
			match.BulletsDegraded = true
		} else {
			match.RelevantBullets = relevant
		}
	} else {
		m.metrics.ObserveFallback("bullets")
	}

	reasoning, err := m.reason(ctx, ai.ReasoningRequest{
		Posting:   posting,
		Summary:   summary,
		Candidate: candidate,
		Overlap:   overlap.Overlap,
		Missing:   overlap.Missing,
	})
	if err != nil {
		log.Warn("reasoning failed; using fallback narrative", zap.Error(err))
		m.metrics.ObserveFallback("reasoning")
		reasoning = FallbackReasoning(similarity, overlap.Percentage/100)
		match.ReasoningFallback = true
	}
	match.AIReasoning = reasoning

	log.Debug("match scored",
		zap.Float64("match_score", match.MatchScore),
		zap.String("priority", string(match.Priority)),
	)

	return match
}

var errNoReasoner = errors.New("no reasoner configured")

func (m *Matcher) reason(ctx context.Context, req ai.ReasoningRequest) (string, error) {
	if m.reasoner == nil {
		return "", errNoReasoner
	}

	if m.reasonTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.reasonTimeout)
		defer cancel()
	}

	text, err := m.reasoner.Reason(ctx, req)
	if err != nil {
		m.metrics.ObserveAdapterFailure("reason")
		return "", ai.Wrap("reasoner", "reason", err)
	}
	if text == "" {
		return "", ai.Wrap("reasoner", "reason", errors.New("empty narrative"))
	}
	return text, nil
}

// FallbackReasoning is the deterministic narrative used when no reasoning is
// available. Both inputs are fractions in [0,1].
func FallbackReasoning(semantic, skill float64) string {
	return fmt.Sprintf("Semantic similarity: %.2f%%, Skill match: %.2f%%", semantic*100, skill*100)
}
