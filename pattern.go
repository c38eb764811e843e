package engram

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"
)

// GeminiPatternProvider discovers recurring patterns across a set of
// memories via Gemini. Implements PatternProvider. Consolidation's
// Extract step calls its provider with no memories and discards the
// result, so nothing this returns is logged or persisted (§4.7, §9).
type GeminiPatternProvider struct {
	apiKey string
	client *http.Client
}

// NewGeminiPatternProvider creates a pattern provider. If apiKey is
// empty, Extract always returns no patterns rather than erroring —
// pattern extraction is advisory, never required for consolidation to run.
func NewGeminiPatternProvider(apiKey string) *GeminiPatternProvider {
	return &GeminiPatternProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Extract asks Gemini to name recurring patterns across memories. It
// never errors on a missing key; it simply finds nothing.
func (p *GeminiPatternProvider) Extract(ctx context.Context, memories []Memory) ([]string, error) {
	if p.apiKey == "" || len(memories) == 0 {
		return nil, nil
	}

	var lines []string
	for _, m := range memories {
		lines = append(lines, "- "+m.Content)
	}

	prompt := `Identify up to 5 recurring patterns across these memories. Reply with one pattern per line, nothing else.

Memories:
` + strings.Join(lines, "\n")

	url := "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash-lite:generateContent?key=" + p.apiKey
	reqBody := map[string]any{
		"contents": []map[string]any{
			{"role": "user", "parts": []map[string]any{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"maxOutputTokens": 300,
			"temperature":     0.2,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &classifyError{status: resp.StatusCode, body: string(body)}
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
		return nil, err
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return nil, nil
	}

	var patterns []string
	for _, line := range strings.Split(geminiResp.Candidates[0].Content.Parts[0].Text, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		line = strings.TrimSpace(line)
		if line != "" {
			patterns = append(patterns, line)
		}
	}
	return patterns, nil
}

// NoopPatternProvider is the default PatternProvider: it finds nothing.
// Extract is explicitly specified as a stable no-op (§4.7); this is the
// default so a store with no Gemini key configured behaves identically.
type NoopPatternProvider struct{}

func (NoopPatternProvider) Extract(ctx context.Context, memories []Memory) ([]string, error) {
	return nil, nil
}
