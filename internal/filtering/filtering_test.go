package filtering

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/apply-queue/internal/catalog"
)

func boolPtr(v bool) *bool { return &v }

func samplePostings() *catalog.Postings {
	return &catalog.Postings{Items: []*catalog.Posting{
		{ID: "j1", Company: "Acme"},
		{ID: "j2", Company: "Globex", AutomationAllowed: boolPtr(false)},
		{ID: "j3", Company: "Initech"},
		{ID: "j4", Company: "acme"},
	}}
}

func TestRun_AppliesStepsInOrder(t *testing.T) {
	dir := t.TempDir()
	excludePath := filepath.Join(dir, "exclude.json")

	excluded := (&catalog.Postings{Items: []*catalog.Posting{{ID: "j3"}}}).ToExcluded(catalog.ExcludeActorUser, "")
	require.NoError(t, excluded.ToFile(excludePath))

	core, logs := observer.New(zapcore.InfoLevel)
	steps := []Filter{
		NewAutomation(),
		NewExcludeFile(excludePath),
		NewExcludedCompanies([]string{"ACME"}),
	}

	input := samplePostings()
	got, err := Run(context.Background(), zap.New(core), steps, input)
	require.NoError(t, err)

	assert.Empty(t, got.IDs())
	assert.Len(t, input.Items, 4, "input must not be modified")

	entries := logs.FilterMessage("filter step").All()
	require.Len(t, entries, 3)
	assert.Equal(t, "automation", entries[0].ContextMap()["name"])
	assert.EqualValues(t, 1, entries[0].ContextMap()["dropped"])
	assert.EqualValues(t, 1, entries[1].ContextMap()["dropped"])
	assert.EqualValues(t, 2, entries[2].ContextMap()["dropped"])
}

func TestRun_DisabledStepIsSkipped(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	steps := []Filter{NewAutomation(), NewExcludedCompanies([]string{"Acme"})}
	DisableByName(steps, "companies", "flag")
	DisableByName(steps, "automation", "ignored")

	got, err := Run(context.Background(), zap.New(core), steps, samplePostings())
	require.NoError(t, err)
	assert.Equal(t, []string{"j1", "j3", "j4"}, got.IDs())
	assert.Equal(t, 1, logs.FilterMessage("filter disabled").Len())

	statuses := Describe(steps)
	assert.True(t, statuses[0].Enabled)
	assert.False(t, statuses[1].Enabled)
	assert.Equal(t, "flag", statuses[1].Reason)
}

func TestRun_ValidationFailsBeforeApply(t *testing.T) {
	steps := []Filter{NewAutomation(), NewExcludedCompanies([]string{" "})}
	_, err := Run(context.Background(), nil, steps, samplePostings())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "companies")
}

func TestExcludeFile_MissingFileKeepsEverything(t *testing.T) {
	f := NewExcludeFile(filepath.Join(t.TempDir(), "absent.json"))
	p := samplePostings()

	got, info, err := f.Apply(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, Step{Initial: 4, Dropped: 0, Left: 4}, info)
	assert.Equal(t, 4, got.Len())
}
