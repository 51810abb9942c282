package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/apply-queue/internal/ai"
	"github.com/spigell/apply-queue/internal/ai/gemini"
	"github.com/spigell/apply-queue/internal/ai/hashembed"
	"github.com/spigell/apply-queue/internal/catalog"
	"github.com/spigell/apply-queue/internal/filtering"
	"github.com/spigell/apply-queue/internal/logger"
	"github.com/spigell/apply-queue/internal/matching"
	"github.com/spigell/apply-queue/internal/metrics"
	"github.com/spigell/apply-queue/internal/profile"
	"github.com/spigell/apply-queue/internal/secrets"
)

// session holds what every subcommand needs for one invocation.
type session struct {
	logger  *zap.Logger
	config  *Config
	metrics *metrics.Pipeline
}

func newSession(cmd *cobra.Command) *session {
	logger, err := logger.New(logger.Options{
		JSON:    viper.GetBool("json"),
		Debug:   viper.GetBool("debug"),
		App:     app,
		Version: version,
		Command: cmd.Name(),
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the apply-queue")

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	return &session{logger: logger, config: config, metrics: metrics.New()}
}

// redacted returns a copy of config safe for logging.
func redacted(config *Config) *Config {
	if config == nil || config.AI == nil || config.AI.Gemini == nil || config.AI.Gemini.APIKey == "" {
		return config
	}
	c := *config
	aiCfg := *config.AI
	g := *config.AI.Gemini
	g.APIKey = "***"
	aiCfg.Gemini = &g
	c.AI = &aiCfg
	return &c
}

func (s *session) close() {
	if err := s.metrics.WriteFile(s.config.MetricsFile); err != nil {
		s.logger.Warn("writing metrics", zap.Error(err))
	} else if s.config.MetricsFile != "" {
		s.logger.Debug("metrics written", zap.String("filename", s.config.MetricsFile))
	}
	_ = s.logger.Sync()
}

// loadPostings reads the catalog and runs the configured filters.
func (s *session) loadPostings(ctx context.Context) (*catalog.Postings, error) {
	location := strings.TrimSpace(s.config.Catalog)
	if location == "" {
		return nil, errors.New("catalog is not configured (set --catalog, the catalog key or APPLY_QUEUE_CATALOG)")
	}

	postings, err := catalog.Load(ctx, catalog.NewSource(location))
	if err != nil {
		return nil, err
	}

	s.logger.Info("catalog loaded", zap.String("source", location), zap.Int("count", postings.Len()))

	var companies []string
	if s.config.Exclude != nil {
		companies = s.config.Exclude.Companies
	}

	steps := []filtering.Filter{
		filtering.NewAutomation(),
		filtering.NewExcludeFile(s.config.ExcludeFile),
		filtering.NewExcludedCompanies(companies),
	}

	return filtering.Run(ctx, s.logger, steps, postings)
}

func (s *session) loadCandidate() (*profile.Candidate, error) {
	path := strings.TrimSpace(s.config.Candidate)
	if path == "" {
		return nil, errors.New("candidate is not configured (set --candidate or the candidate key)")
	}

	candidate, err := profile.Load(path)
	if err != nil {
		return nil, err
	}

	for _, orphan := range candidate.Untraceable() {
		s.logger.Warn("bullet does not trace to any profile item",
			zap.String("bullet", logger.TruncateForLog(orphan.Bullet, 80)),
			zap.String("source_type", orphan.SourceType),
			zap.String("source_name", orphan.SourceName),
		)
	}

	return candidate, nil
}

func (s *session) matchOptions() matching.Options {
	opts := matching.DefaultOptions()
	if m := s.config.Matching; m != nil {
		if m.TopK > 0 {
			opts.TopK = m.TopK
		}
		if m.MinSimilarity != nil {
			opts.MinSimilarity = *m.MinSimilarity
		}
	}
	return opts
}

func (s *session) maxBullets() int {
	if s.config.Notes != nil && s.config.Notes.MaxBullets > 0 {
		return s.config.Notes.MaxBullets
	}
	return 0
}

func (s *session) newMatcher(ctx context.Context) (*matching.Matcher, error) {
	embedder, reasoner, err := s.newCapabilities(ctx)
	if err != nil {
		return nil, err
	}

	deps := matching.Deps{
		Embedder: embedder,
		Reasoner: reasoner,
		Logger:   s.logger,
		Metrics:  s.metrics,
	}
	if m := s.config.Matching; m != nil {
		deps.Workers = m.Workers
		deps.EmbedTimeout = m.EmbedTimeout
		deps.ReasonTimeout = m.ReasonTimeout
	}

	return matching.New(deps)
}

func (s *session) newCapabilities(ctx context.Context) (ai.Embedder, ai.Reasoner, error) {
	cfg := s.config.AI
	if cfg == nil {
		cfg = &AIConfig{}
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	switch provider {
	case "", gemini.ProviderName:
		return s.newGemini(ctx, cfg.Gemini)
	case hashembed.ProviderName:
		dim := 0
		if cfg.Hash != nil {
			dim = cfg.Hash.Dimension
		}
		embedder := hashembed.New(dim)
		s.logger.Info("using offline hash embedder; narratives fall back to scores", zap.Int("dimension", embedder.Dimension()))
		return embedder, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func (s *session) newGemini(ctx context.Context, cfg *GeminiConfig) (ai.Embedder, ai.Reasoner, error) {
	if cfg == nil {
		cfg = &GeminiConfig{}
	}

	env := cfg.APIKeyEnv
	if env == "" {
		env = "GEMINI_API_KEY"
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.APIKey,
		Env:   env,
		File:  cfg.APIKeyFile,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w (set ai.gemini.api-key-file, GEMINI_API_KEY_FILE or %s)", err, env)
	}

	models, err := gemini.NewModels(ctx, apiKey)
	if err != nil {
		return nil, nil, err
	}

	opts := gemini.Options{
		Model:          cfg.Model,
		EmbeddingModel: cfg.EmbeddingModel,
		MaxRetries:     cfg.MaxRetries,
		TripFailures:   cfg.TripFailures,
		BreakerTimeout: cfg.BreakerTimeout,
		EmbedRPS:       cfg.EmbedRPS,
		EmbedBurst:     cfg.EmbedBurst,
	}

	generator := gemini.NewGenerator(models, opts, s.logger)
	reasoner := gemini.NewReasoner(generator, logger.WithCommonFields(s.logger, gemini.ProviderName, generator.Model()), cfg.MaxLogLength)

	return gemini.NewEmbedder(models, opts, s.logger), reasoner, nil
}

// writeJSON prints v to stdout, or to path when set.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
