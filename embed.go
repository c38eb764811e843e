package engram

import (
	"context"
	"sync"
)

// EmbeddingService wraps the configured EmbeddingProvider and optional
// CrossEncoderProvider behind a single call surface, resolving its
// concrete default (GeminiEmbedder) lazily and only once — callers that
// never search or write never pay for it.
type EmbeddingService struct {
	once     sync.Once
	embedder EmbeddingProvider
	reranker CrossEncoderProvider

	apiKey string
	dim    int
}

// NewEmbeddingService wraps caller-supplied providers, or arranges to
// build the default Gemini-backed embedder on first use if embedder is nil.
func NewEmbeddingService(embedder EmbeddingProvider, reranker CrossEncoderProvider, apiKey string, dim int) *EmbeddingService {
	return &EmbeddingService{embedder: embedder, reranker: reranker, apiKey: apiKey, dim: dim}
}

func (s *EmbeddingService) resolve() EmbeddingProvider {
	s.once.Do(func() {
		if s.embedder == nil {
			s.embedder = NewGeminiEmbedder(s.apiKey, s.dim)
		}
	})
	return s.embedder
}

// EmbedDocument embeds text destined for storage.
func (s *EmbeddingService) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.resolve().Embed(ctx, text, "RETRIEVAL_DOCUMENT")
	if err != nil {
		return nil, embeddingFailure(err)
	}
	return vec, nil
}

// EmbedQuery embeds text used to search stored memories.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vec, err := s.resolve().Embed(ctx, text, "RETRIEVAL_QUERY")
	if err != nil {
		return nil, embeddingFailure(err)
	}
	return vec, nil
}

// Dimension reports the configured embedding dimension.
func (s *EmbeddingService) Dimension() int {
	return s.resolve().Dimension()
}

// CanRerank reports whether a CrossEncoderProvider is configured.
func (s *EmbeddingService) CanRerank() bool {
	return s.reranker != nil
}

// Rerank delegates to the configured CrossEncoderProvider.
func (s *EmbeddingService) Rerank(ctx context.Context, query string, candidates []string) ([]float64, error) {
	if s.reranker == nil {
		return nil, nil
	}
	return s.reranker.Rerank(ctx, query, candidates)
}
