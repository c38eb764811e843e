package engram

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Recall assembles a token-budgeted context window for agent consumption
// (§4.5): hybrid search, composite-score sort, budget packing, then a
// fixed Markdown render.
func (e *Engram) Recall(ctx context.Context, query string, opts RecallOptions) (RecallResult, error) {
	k := opts.K
	if k <= 0 {
		k = 10
	}
	budget := opts.Budget
	if budget <= 0 {
		budget = 4000
	}

	hits, err := e.SearchHybrid(ctx, query, HybridOptions{K: k, Type: opts.Type})
	if err != nil {
		return RecallResult{}, err
	}

	for i := range hits {
		hits[i].Score = CompositeScore(hits[i].Score, hits[i].Memory.Importance, hits[i].Memory.Strength, RecencyBonus(hits[i].Memory.LastAccessedAt))
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })

	result := RecallResult{}

	if opts.SessionID != "" {
		sess, err := e.store.GetSession(opts.SessionID)
		if err != nil {
			return RecallResult{}, err
		}
		if sess != nil && sess.Summary != "" {
			result.SessionContext = sess
			result.TotalTokensEstimate += estimateTokens(sess.Summary)
		}
	}

	var packed []SearchHit
	for i, h := range hits {
		rendered := renderMemoryBlock(h.Memory)
		tokens := estimateTokens(rendered)
		if i > 0 && result.TotalTokensEstimate+tokens > budget {
			break
		}
		packed = append(packed, h)
		result.TotalTokensEstimate += tokens
	}
	result.Memories = packed

	return result, nil
}

// estimateTokens approximates token count for a rendered block using
// the ⌈length/3.5⌉ estimator (§4.5).
func estimateTokens(s string) int {
	return int(math.Ceil(float64(len(s)) / 3.5))
}

func renderMemoryBlock(m Memory) string {
	return fmt.Sprintf("[%s] %s\n%s", m.Type, m.Title, m.Content)
}

// RenderMarkdown produces the fixed Markdown layout a Recall result is
// presented to an agent in (§4.5).
func RenderMarkdown(r RecallResult) string {
	var b strings.Builder

	if r.SessionContext != nil {
		b.WriteString("## Session Context\n\n")
		b.WriteString(r.SessionContext.Summary)
		b.WriteString("\n\n")
	}

	b.WriteString("## Relevant Memories\n\n")
	for _, h := range r.Memories {
		fmt.Fprintf(&b, "### [%s] %s\n\n%s\n\n", h.Memory.Type, h.Memory.Title, h.Memory.Content)
	}

	fmt.Fprintf(&b, "_%d memories | ~%d tokens_\n", len(r.Memories), r.TotalTokensEstimate)
	return b.String()
}
