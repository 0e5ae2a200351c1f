// Package index is the similarity index holding one vector per ICP profile.
package index

import (
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/xaenox/outreach-router/internal/errs"
)

type Metric string

const (
	// MetricL2 is squared Euclidean distance.
	MetricL2 Metric = "l2"
	// MetricCosine is 1 - cosine similarity.
	MetricCosine Metric = "cosine"
)

func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(s)) {
	case MetricL2, "":
		return MetricL2, nil
	case MetricCosine:
		return MetricCosine, nil
	}
	return "", eris.Errorf("unknown index metric %q", s)
}

// Result is one search hit. Position is the insertion order of the id.
type Result struct {
	ID       string
	Distance float64
	Position int
}

// Entry is a stored vector, used for persistence.
type Entry struct {
	ID     string
	Vector []float32
}

// Index supports nearest-neighbour lookup. Search must be safe for concurrent use.
type Index interface {
	Upsert(id string, vector []float32) error
	Search(vector []float32, k int) ([]Result, error)
	Len() int
	Metric() Metric
	Dimension() int
}

// FlatIndex compares the query against every stored vector.
type FlatIndex struct {
	mu        sync.RWMutex
	metric    Metric
	dimension int
	ids       []string
	vectors   [][]float32
	positions map[string]int
}

var _ Index = (*FlatIndex)(nil)

func NewFlatIndex(dimension int, metric Metric) *FlatIndex {
	return &FlatIndex{
		metric:    metric,
		dimension: dimension,
		positions: make(map[string]int),
	}
}

func (f *FlatIndex) Metric() Metric { return f.metric }

func (f *FlatIndex) Dimension() int { return f.dimension }

func (f *FlatIndex) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.ids)
}

// Upsert stores a copy of vector. Re-inserting an id keeps its original position.
func (f *FlatIndex) Upsert(id string, vector []float32) error {
	if id == "" {
		return eris.New("index: empty id")
	}
	if len(vector) != f.dimension {
		return eris.Errorf("index: vector has %d dimensions, want %d", len(vector), f.dimension)
	}
	v := make([]float32, len(vector))
	copy(v, vector)

	f.mu.Lock()
	defer f.mu.Unlock()

	if pos, ok := f.positions[id]; ok {
		f.vectors[pos] = v
		return nil
	}
	f.positions[id] = len(f.ids)
	f.ids = append(f.ids, id)
	f.vectors = append(f.vectors, v)
	return nil
}

// Search returns up to k results by ascending distance, ties in insertion order.
// k <= 0 returns every entry.
func (f *FlatIndex) Search(vector []float32, k int) ([]Result, error) {
	if len(vector) != f.dimension {
		return nil, eris.Errorf("index: query has %d dimensions, want %d", len(vector), f.dimension)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if len(f.ids) == 0 {
		return nil, errs.ErrEmptyIndex
	}

	results := make([]Result, len(f.ids))
	for i, stored := range f.vectors {
		results[i] = Result{ID: f.ids[i], Distance: f.distance(vector, stored), Position: i}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if k > 0 && k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// Entries returns the stored vectors in insertion order.
func (f *FlatIndex) Entries() []Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]Entry, len(f.ids))
	for i, id := range f.ids {
		v := make([]float32, len(f.vectors[i]))
		copy(v, f.vectors[i])
		out[i] = Entry{ID: id, Vector: v}
	}
	return out
}

func (f *FlatIndex) distance(a, b []float32) float64 {
	switch f.metric {
	case MetricCosine:
		return cosineDistance(a, b)
	default:
		return squaredL2(a, b)
	}
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// Similarity converts a distance into a similarity in [0,1].
func Similarity(metric Metric, distance float64) float64 {
	var s float64
	switch metric {
	case MetricCosine:
		s = 1 - distance
	default:
		s = 1 / (1 + distance)
	}
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
