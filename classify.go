package engram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HeuristicTypeInferencer infers a MemoryType for content arriving
// without one (ingest only — add's type is always caller-supplied).
// It tries keyword heuristics first (zero-cost), falling back to Gemini
// for ambiguous content when an API key is configured. Implements
// TypeInferencer.
type HeuristicTypeInferencer struct {
	apiKey string
	client *http.Client
}

// NewHeuristicTypeInferencer creates a type inferencer. If apiKey is
// empty, only heuristic classification is used (no LLM fallback).
func NewHeuristicTypeInferencer(apiKey string) *HeuristicTypeInferencer {
	return &HeuristicTypeInferencer{
		apiKey: apiKey,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Infer determines the memory type for a piece of content.
func (c *HeuristicTypeInferencer) Infer(ctx context.Context, content string) (MemoryType, error) {
	t, confidence := c.heuristicInfer(content)
	if confidence >= 0.6 {
		return t, nil
	}

	if c.apiKey != "" {
		if geminiType, err := c.geminiInfer(ctx, content); err == nil {
			return geminiType, nil
		}
	}

	return t, nil // fall back to the heuristic guess even at low confidence
}

// heuristicInfer uses keyword matching to classify content into a type.
// Returns the best type and a confidence score (0.0-1.0).
func (c *HeuristicTypeInferencer) heuristicInfer(content string) (MemoryType, float64) {
	lower := strings.ToLower(content)

	scores := map[MemoryType]float64{
		TypeEpisode:    0,
		TypeFact:       0,
		TypePreference: 0,
		TypeDecision:   0,
		TypeReflex:     0,
	}

	episodeSignals := []string{
		"last time", "remember when", "yesterday", "came in", "visited",
		"was here", "stopped by", "showed up", "earlier", "that time",
		"the other day", "first time", "came back", "returned",
	}
	for _, s := range episodeSignals {
		if strings.Contains(lower, s) {
			scores[TypeEpisode] += 0.3
		}
	}

	factSignals := []string{
		"is a", "works at", "lives in", "speaks", "knows about",
		"was born", "located in", "consists of", "defined as",
	}
	for _, s := range factSignals {
		if strings.Contains(lower, s) {
			scores[TypeFact] += 0.3
		}
	}

	preferenceSignals := []string{
		"likes", "prefers", "favorite", "enjoys", "hates", "dislikes",
		"always wants", "would rather", "fan of", "into",
	}
	for _, s := range preferenceSignals {
		if strings.Contains(lower, s) {
			scores[TypePreference] += 0.3
		}
	}

	decisionSignals := []string{
		"decided to", "chose to", "we agreed", "the plan is",
		"going with", "settled on", "will use", "opted for",
	}
	for _, s := range decisionSignals {
		if strings.Contains(lower, s) {
			scores[TypeDecision] += 0.3
		}
	}

	reflexSignals := []string{
		"always respond", "every time this happens", "trigger",
		"whenever", "as a rule", "reflexively", "automatically",
	}
	for _, s := range reflexSignals {
		if strings.Contains(lower, s) {
			scores[TypeReflex] += 0.3
		}
	}

	best := TypeFact // default
	bestScore := 0.0
	for t, score := range scores {
		if score > bestScore {
			bestScore = score
			best = t
		}
	}

	confidence := bestScore
	if confidence > 1.0 {
		confidence = 1.0
	}
	return best, confidence
}

// geminiInfer uses Gemini to classify content when heuristics are ambiguous.
func (c *HeuristicTypeInferencer) geminiInfer(ctx context.Context, content string) (MemoryType, error) {
	url := "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash-lite:generateContent?key=" + c.apiKey

	prompt := `Classify this memory into exactly one type. Reply with ONLY the type name, nothing else.
Types: episode (a specific event), fact (a stable piece of knowledge), preference (a like/dislike), decision (a choice that was made), reflex (an always-trigger rule)

Memory: "` + content + `"`

	reqBody := map[string]any{
		"contents": []map[string]any{
			{"role": "user", "parts": []map[string]any{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"maxOutputTokens": 10,
			"temperature":     0.0,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return TypeFact, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return TypeFact, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return TypeFact, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return TypeFact, &classifyError{status: resp.StatusCode, body: string(body)}
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return TypeFact, err
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return TypeFact, &classifyError{body: "empty response"}
	}

	text := strings.TrimSpace(strings.ToLower(geminiResp.Candidates[0].Content.Parts[0].Text))
	switch {
	case strings.Contains(text, "episode"):
		return TypeEpisode, nil
	case strings.Contains(text, "preference"):
		return TypePreference, nil
	case strings.Contains(text, "decision"):
		return TypeDecision, nil
	case strings.Contains(text, "reflex"):
		return TypeReflex, nil
	case strings.Contains(text, "fact"):
		return TypeFact, nil
	default:
		return TypeFact, nil
	}
}

type classifyError struct {
	status int
	body   string
}

func (e *classifyError) Error() string {
	if e.status > 0 {
		return fmt.Sprintf("gemini classify %s: %s", http.StatusText(e.status), e.body)
	}
	return "gemini classify: " + e.body
}
