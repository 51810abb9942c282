package queue

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/apply-queue/internal/catalog"
	"github.com/spigell/apply-queue/internal/matching"
	"github.com/spigell/apply-queue/internal/scoring"
)

func match(id string, score float64) matching.JobMatch {
	return matching.JobMatch{
		JobID:      id,
		Job:        &catalog.Posting{ID: id},
		MatchScore: score,
		Priority:   scoring.PriorityFor(score),
	}
}

func ids(q ApplyQueue) []string {
	out := make([]string, 0, len(q.Jobs))
	for _, job := range q.Jobs {
		out = append(out, job.JobID)
	}
	return out
}

func TestBuild_OrderAndAggregates(t *testing.T) {
	input := []matching.JobMatch{
		match("low", 40),
		match("high", 90),
		match("tie-first", 60),
		match("tie-second", 60),
	}

	q := Build(input, 0)

	assert.Equal(t, []string{"high", "tie-first", "tie-second", "low"}, ids(q))
	assert.Equal(t, 4, q.TotalJobs)
	assert.Equal(t, 1, q.HighPriority)
	assert.Equal(t, 2, q.MediumPriority)
	assert.Equal(t, 1, q.LowPriority)
	assert.Equal(t, 62.5, q.AverageMatchScore)
	assert.Equal(t, "low", input[0].JobID, "input must not be reordered")
}

func TestBuild_TopKAndEmpty(t *testing.T) {
	q := Build([]matching.JobMatch{match("a", 10), match("b", 20), match("c", 30)}, 2)
	assert.Equal(t, []string{"c", "b"}, ids(q))
	assert.Equal(t, 25.0, q.AverageMatchScore)

	empty := Build(nil, 5)
	assert.Equal(t, 0, empty.TotalJobs)
	assert.Equal(t, 0.0, empty.AverageMatchScore)
	assert.NotNil(t, empty.Jobs)
}

func TestBuild_Idempotent(t *testing.T) {
	input := []matching.JobMatch{match("a", 55.5), match("b", 71), match("c", 55.5)}
	first := Build(input, 0)
	second := Build(input, 0)
	assert.Equal(t, first, second)
	assert.Equal(t, first, Build(first.Jobs, 0))
}

func TestParseAndFileRoundTrip(t *testing.T) {
	q := Build([]matching.JobMatch{match("a", 75), match("b", 45)}, 0)
	path := filepath.Join(t.TempDir(), "queue.json")
	require.NoError(t, q.ToFile(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ids(q), ids(loaded))
	assert.Equal(t, q.AverageMatchScore, loaded.AverageMatchScore)
	assert.Equal(t, []string{"a", "b"}, loaded.Postings().IDs())
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: `[`},
		{name: "missing snapshot", input: `{"jobs": [{"job_id": "a", "priority": "high"}]}`},
		{name: "mismatched snapshot", input: `{"jobs": [{"job_id": "a", "job": {"job_id": "b"}, "priority": "high"}]}`},
		{name: "unknown priority", input: `{"jobs": [{"job_id": "a", "job": {"job_id": "a"}, "priority": "urgent"}]}`},
		{name: "empty id", input: `{"jobs": [{"job_id": " ", "job": {"job_id": " "}, "priority": "low"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.input))
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
		})
	}
}
