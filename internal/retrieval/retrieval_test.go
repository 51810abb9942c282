package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/apply-queue/internal/ai"
	"github.com/spigell/apply-queue/internal/catalog"
)

// mapEmbedder returns fixed vectors keyed by the exact input text.
type mapEmbedder struct {
	vectors map[string][]float32
	err     error
	delay   time.Duration
}

func (m *mapEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0}, nil
}

func TestFlatIndex_SearchOrdersByDistance(t *testing.T) {
	idx := NewFlatIndex()
	require.NoError(t, idx.Add("far", []float32{3, 0}))
	require.NoError(t, idx.Add("near", []float32{1, 0}))
	require.NoError(t, idx.Add("tie", []float32{0, 1}))

	hits, err := idx.Search([]float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "near", hits[0].ID)
	assert.Equal(t, "tie", hits[1].ID)
	assert.Equal(t, "far", hits[2].ID)
	assert.InDelta(t, 9.0, hits[2].Distance, 1e-9)

	hits, err = idx.Search([]float32{0, 0}, 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestFlatIndex_DimensionMismatch(t *testing.T) {
	idx := NewFlatIndex()
	require.NoError(t, idx.Add("a", []float32{1, 2}))
	assert.Error(t, idx.Add("b", []float32{1}))
	assert.Error(t, idx.Add("c", nil))

	_, err := idx.Search([]float32{1, 2, 3}, 1)
	assert.Error(t, err)

	hits, err := NewFlatIndex().Search([]float32{1}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func postings() *catalog.Postings {
	return &catalog.Postings{Items: []*catalog.Posting{
		{ID: "a", Title: "A"},
		{ID: "b", Title: "B"},
		{ID: "c", Title: "C"},
	}}
}

func TestRetrieve_KAndThreshold(t *testing.T) {
	p := postings()
	embedder := &mapEmbedder{vectors: map[string][]float32{
		p.Items[0].Render(): {0.1, 0},
		p.Items[1].Render(): {0.5, 0},
		p.Items[2].Render(): {0.9, 0},
		"summary":           {0, 0},
	}}
	r := NewRetriever(embedder, time.Second, nil)

	got, err := r.Retrieve(context.Background(), "summary", p, 1, 0)
	require.NoError(t, err)
	require.Len(t, got, 2, "k = min(2*topK, n)")
	assert.Equal(t, "a", got[0].Posting.ID)
	assert.InDelta(t, 0.99, got[0].Similarity, 1e-6)
	assert.Equal(t, "b", got[1].Posting.ID)

	got, err = r.Retrieve(context.Background(), "summary", p, 10, 0.3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"a", "b"}, []string{got[0].Posting.ID, got[1].Posting.ID})
}

func TestRetrieve_SimilarityUsesSquaredDistance(t *testing.T) {
	p := &catalog.Postings{Items: []*catalog.Posting{{ID: "diag", Title: "Diag"}}}
	embedder := &mapEmbedder{vectors: map[string][]float32{
		p.Items[0].Render(): {0.5, 0.5},
		"summary":           {0, 0},
	}}
	r := NewRetriever(embedder, time.Second, nil)

	got, err := r.Retrieve(context.Background(), "summary", p, 5, 0.3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.5, got[0].Distance, 1e-9)
	assert.InDelta(t, 0.5, got[0].Similarity, 1e-9)
}

func TestRetrieve_EmptyCatalog(t *testing.T) {
	r := NewRetriever(&mapEmbedder{err: errors.New("never called")}, 0, nil)
	got, err := r.Retrieve(context.Background(), "summary", &catalog.Postings{}, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetrieve_EmbeddingFailureIsFatal(t *testing.T) {
	r := NewRetriever(&mapEmbedder{err: errors.New("quota")}, 0, nil)
	_, err := r.Retrieve(context.Background(), "summary", postings(), 5, 0)
	assert.ErrorIs(t, err, ai.ErrAdapter)
}

func TestRetrieve_TimeoutIsAdapterError(t *testing.T) {
	r := NewRetriever(&mapEmbedder{delay: time.Second}, 10*time.Millisecond, nil)
	_, err := r.Retrieve(context.Background(), "summary", postings(), 5, 0)
	assert.ErrorIs(t, err, ai.ErrAdapter)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
