package engram

import "context"

// EmbeddingProvider generates dense vector embeddings from text. Every
// implementation must return vectors of the same fixed dimension
// (EmbeddingDim by default) for the lifetime of a store, since kNN
// compares vectors positionally.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	Dimension() int
}

// CrossEncoderProvider re-scores a shortlist of candidates against a
// query, used as the optional rerank step of hybrid search (§4.4).
type CrossEncoderProvider interface {
	Rerank(ctx context.Context, query string, candidates []string) ([]float64, error)
}

// TypeInferencer guesses a MemoryType for content that arrives without
// one, used only by ingest (§6) — add always requires an explicit type.
type TypeInferencer interface {
	Infer(ctx context.Context, content string) (MemoryType, error)
}

// PatternProvider discovers recurring patterns across a set of memories
// during the consolidation Extract step (§4.7). The built-in
// implementation is a stable no-op: its result is never persisted.
type PatternProvider interface {
	Extract(ctx context.Context, memories []Memory) ([]string, error)
}
