// Package retrieval builds per-request vector indices over postings and
// bullets and answers nearest-neighbour queries against them.
package retrieval

import (
	"fmt"
	"sort"
)

// Hit is one nearest-neighbour result.
type Hit struct {
	ID       string
	Distance float64
	Vector   []float32
}

// NearestNeighborIndex stores vectors keyed by id and returns the k closest
// entries to a query, closest first.
type NearestNeighborIndex interface {
	Add(id string, vector []float32) error
	Search(query []float32, k int) ([]Hit, error)
	Len() int
}

// FlatIndex is an exact squared-L2 index. Ties in distance keep insertion order.
type FlatIndex struct {
	dim     int
	ids     []string
	vectors [][]float32
}

func NewFlatIndex() *FlatIndex {
	return &FlatIndex{}
}

func (f *FlatIndex) Len() int { return len(f.ids) }

func (f *FlatIndex) Dimension() int { return f.dim }

func (f *FlatIndex) Add(id string, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("vector for %q is empty", id)
	}
	if f.dim == 0 {
		f.dim = len(vector)
	}
	if len(vector) != f.dim {
		return fmt.Errorf("vector for %q has dimension %d, index expects %d", id, len(vector), f.dim)
	}

	f.ids = append(f.ids, id)
	f.vectors = append(f.vectors, vector)
	return nil
}

func (f *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 || len(f.ids) == 0 {
		return nil, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("query has dimension %d, index expects %d", len(query), f.dim)
	}

	hits := make([]Hit, len(f.ids))
	for i, vector := range f.vectors {
		hits[i] = Hit{ID: f.ids[i], Distance: squaredL2(query, vector), Vector: vector}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// squaredL2 matches the distance reported by a flat L2 index: the sum of
// squared differences, without the square root.
func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
