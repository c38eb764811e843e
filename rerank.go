package engram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaReranker scores (query, candidate) pairs via a local Ollama
// generate call, asking the model to emit a single relevance score.
// Implements CrossEncoderProvider. Grounded in the same HTTP-client
// shape as OllamaEmbedder; there is no dedicated cross-encoder endpoint
// in Ollama's API, so this prompts a chat model for a numeric score.
type OllamaReranker struct {
	host   string
	model  string
	client *http.Client
}

// NewOllamaReranker creates a cross-encoder reranker backed by a local
// Ollama chat model (e.g. "llama3.2").
func NewOllamaReranker(model string, opts ...OllamaOption) *OllamaReranker {
	r := &OllamaReranker{
		host:   "http://localhost:11434",
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		// OllamaOption is defined against OllamaEmbedder; reuse only the
		// host field it sets by re-applying it to a throwaway embedder.
		e := &OllamaEmbedder{host: r.host}
		opt(e)
		r.host = e.host
	}
	return r
}

// Rerank scores each candidate's relevance to query in [0,1].
func (r *OllamaReranker) Rerank(ctx context.Context, query string, candidates []string) ([]float64, error) {
	scores := make([]float64, len(candidates))
	for i, c := range candidates {
		s, err := r.scoreOne(ctx, query, c)
		if err != nil {
			return nil, fmt.Errorf("rerank candidate %d: %w", i, err)
		}
		scores[i] = s
	}
	return scores, nil
}

func (r *OllamaReranker) scoreOne(ctx context.Context, query, candidate string) (float64, error) {
	prompt := fmt.Sprintf(`On a scale from 0.0 to 1.0, how relevant is the passage to the query? Reply with ONLY the number.

Query: %s
Passage: %s`, query, candidate)

	reqBody := map[string]any{
		"model":  r.model,
		"prompt": prompt,
		"stream": false,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", r.host+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("ollama generate %d: %s", resp.StatusCode, string(body[:min(len(body), 200)]))
	}

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}

	var score float64
	if _, err := fmt.Sscanf(out.Response, "%f", &score); err != nil {
		return 0, fmt.Errorf("parse score from %q: %w", out.Response, err)
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}
