package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/apply-queue/internal/catalog"
	"github.com/spigell/apply-queue/internal/matching"
	"github.com/spigell/apply-queue/internal/metrics"
	"github.com/spigell/apply-queue/internal/profile"
	"github.com/spigell/apply-queue/internal/queue"
	"github.com/spigell/apply-queue/internal/sandbox"
	"github.com/spigell/apply-queue/internal/scoring"
)

func testSession(config *Config) *session {
	return &session{logger: zap.NewNop(), config: config, metrics: metrics.New()}
}

func testQueue() queue.ApplyQueue {
	return queue.Build([]matching.JobMatch{
		{
			JobID:              "j1",
			Job:                &catalog.Posting{ID: "j1", Company: "Acme", Requirements: []string{"python"}},
			MatchScore:         68,
			SemanticSimilarity: 80,
			SkillMatchScore:    50,
			Priority:           scoring.PriorityMedium,
		},
	}, 0)
}

func TestRedactedHidesInlineKey(t *testing.T) {
	config := &Config{AI: &AIConfig{Gemini: &GeminiConfig{APIKey: "secret", Model: "m"}}}

	safe := redacted(config)
	assert.Equal(t, "***", safe.AI.Gemini.APIKey)
	assert.Equal(t, "m", safe.AI.Gemini.Model)
	assert.Equal(t, "secret", config.AI.Gemini.APIKey, "original config must stay intact")
}

func TestMatchOptions(t *testing.T) {
	assert.Equal(t, matching.DefaultOptions(), testSession(&Config{}).matchOptions())

	zero := 0.0
	opts := testSession(&Config{Matching: &MatchingConfig{TopK: 5, MinSimilarity: &zero}}).matchOptions()
	assert.Equal(t, matching.Options{TopK: 5, MinSimilarity: 0}, opts)
}

func TestNewCapabilities_HashProvider(t *testing.T) {
	s := testSession(&Config{AI: &AIConfig{Provider: "hash", Hash: &HashConfig{Dimension: 32}}})

	embedder, reasoner, err := s.newCapabilities(t.Context())
	require.NoError(t, err)
	assert.NotNil(t, embedder)
	assert.Nil(t, reasoner)

	_, _, err = testSession(&Config{AI: &AIConfig{Provider: "other"}}).newCapabilities(t.Context())
	assert.Error(t, err)
}

func TestNewCapabilities_GeminiRequiresKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	s := testSession(&Config{AI: &AIConfig{Provider: "gemini"}})

	_, _, err := s.newCapabilities(t.Context())
	assert.ErrorContains(t, err, "gemini api key is not configured")
}

func TestReportSimulateComposesNotesFirst(t *testing.T) {
	s := testSession(&Config{})
	candidate := &profile.Candidate{BulletBank: []profile.BulletItem{
		{Bullet: "Built python ETL", SourceType: profile.SourceProject, SourceName: "etl"},
	}}

	r := &report{Queue: testQueue()}
	r.simulate(s, candidate)

	require.Len(t, r.Notes, 1)
	require.Len(t, r.Outcomes, 1)
	assert.Equal(t, sandbox.SignalSuccess, r.Outcomes[0].Signal)
	assert.Equal(t, 1, r.Summary.Success)
}

func TestHandleAction(t *testing.T) {
	dir := t.TempDir()
	excludeFile := filepath.Join(dir, "exclude.json")
	s := testSession(&Config{ExcludeFile: excludeFile})
	r := &report{Queue: testQueue()}

	require.NoError(t, handleAction(PromptShowQueue, s, &profile.Candidate{}, r))
	require.NoError(t, handleAction(PromptReportByCompanies, s, &profile.Candidate{}, r))
	require.NoError(t, handleAction(PromptAppendToExcludeFile, s, &profile.Candidate{}, r))
	require.NoError(t, handleAction(PromptAppendToExcludeFile, s, &profile.Candidate{}, r))

	excluded, err := catalog.LoadExcluded(excludeFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"j1"}, excluded.IDs())
	assert.Equal(t, catalog.ExcludeActorQueue, excluded.Items[0].Actor)

	assert.ErrorIs(t, handleAction(PromptNo, s, nil, r), errExit)
	assert.Error(t, handleAction("unknown", s, nil, r))
}
