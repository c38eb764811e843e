package engram

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"
)

// fakeEmbedder is a deterministic bag-of-words encoder: enough for tests
// that assert relative similarity ordering without a network call.
type fakeEmbedder struct {
	dim int
}

func newFakeEmbedder() *fakeEmbedder { return &fakeEmbedder{dim: 64} }

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	vec := make([]float32, f.dim)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv32(tok)
		vec[int(h)%f.dim] += 1
	}
	var norm float64
	for _, x := range vec {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }

func fnv32(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

// fakeReranker reorders candidates by substring overlap with the query,
// deterministic and network-free.
type fakeReranker struct{}

func (fakeReranker) Rerank(ctx context.Context, query string, candidates []string) ([]float64, error) {
	scores := make([]float64, len(candidates))
	q := strings.ToLower(query)
	for i, c := range candidates {
		if strings.Contains(strings.ToLower(c), q) {
			scores[i] = 1.0
		} else {
			scores[i] = 0.1
		}
	}
	return scores, nil
}

func newTestEngram(t *testing.T) *Engram {
	t.Helper()
	cfg := Config{
		DBPath:   filepath.Join(t.TempDir(), "test.db"),
		Embedder: newFakeEmbedder(),
		Reranker: fakeReranker{},
	}
	e, err := Init(cfg)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e
}
