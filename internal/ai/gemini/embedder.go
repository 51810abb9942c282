package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/spigell/apply-queue/internal/ai"
	"github.com/spigell/apply-queue/internal/logger"
)

const defaultEmbeddingModel = "text-embedding-004"

// Embedder implements ai.Embedder on top of Models.EmbedContent.
type Embedder struct {
	models  modelsAPI
	model   string
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewEmbedder(models modelsAPI, opts Options, log *zap.Logger) *Embedder {
	model := strings.TrimSpace(opts.EmbeddingModel)
	if model == "" {
		model = defaultEmbeddingModel
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.EmbedRPS > 0 {
		burst := opts.EmbedBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.EmbedRPS), burst)
	}

	return &Embedder{
		models:  models,
		model:   model,
		limiter: limiter,
		logger:  logger.WithCommonFields(log, ProviderName, model),
	}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e == nil || e.models == nil {
		return nil, ai.Wrap(ProviderName, "embed", errors.New("gemini embedder is not initialized"))
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, ai.Wrap(ProviderName, "embed", fmt.Errorf("wait for rate limiter: %w", err))
	}

	resp, err := e.models.EmbedContent(ctx, e.model, genai.Text(text), nil)
	if err != nil {
		return nil, ai.Wrap(ProviderName, "embed", err)
	}

	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil || len(resp.Embeddings[0].Values) == 0 {
		return nil, ai.Wrap(ProviderName, "embed", errors.New("gemini api returned no embedding"))
	}

	values := resp.Embeddings[0].Values
	e.logger.Debug("embedded text",
		zap.Int("text_length", len(text)),
		zap.Int("dimension", len(values)),
	)

	return values, nil
}
