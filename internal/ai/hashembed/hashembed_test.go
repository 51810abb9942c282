package hashembed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func TestEmbed_DeterministicAndNormalized(t *testing.T) {
	e := New(64)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Python SQL data pipelines")
	require.NoError(t, err)
	b, err := e.Embed(ctx, "python sql   DATA pipelines")
	require.NoError(t, err)

	require.Len(t, a, 64)
	assert.Equal(t, a, b)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestEmbed_SimilarTextIsCloser(t *testing.T) {
	e := New(0)
	ctx := context.Background()

	query, _ := e.Embed(ctx, "python sql data analysis")
	near, _ := e.Embed(ctx, "data analysis with python and sql")
	far, _ := e.Embed(ctx, "frontend react css design")

	assert.Less(t, distance(query, near), distance(query, far))
	assert.Equal(t, DefaultDimension, e.Dimension())
}

func TestEmbed_EmptyTextAndCancelledContext(t *testing.T) {
	e := New(8)

	vec, err := e.Embed(context.Background(), "  ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), vec)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Embed(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)
}
