package engram

import (
	"context"
	"sort"
)

// SearchSemantic embeds the query and ranks memories by cosine
// similarity (§4.4).
func (e *Engram) SearchSemantic(ctx context.Context, query string, opts SearchOptions) ([]SearchHit, error) {
	k := opts.K
	if k <= 0 {
		k = 10
	}
	since, err := parseSince(opts.Since)
	if err != nil {
		return nil, err
	}

	vec, err := e.embed.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := e.store.KNN(vec, 2*k, opts.Type, since, opts.IncludeArchived, nil)
	if err != nil {
		return nil, err
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// SearchFTS runs a BM25-ranked lexical search (§4.4). Archived memories
// are never returned.
func (e *Engram) SearchFTS(query string, opts SearchOptions) ([]SearchHit, error) {
	k := opts.K
	if k <= 0 {
		k = 10
	}
	since, err := parseSince(opts.Since)
	if err != nil {
		return nil, err
	}
	return e.store.FTSSearch(query, k, opts.Type, since)
}

// rrfEntry accumulates a memory's fused score across the semantic and
// lexical result lists.
type rrfEntry struct {
	memory Memory
	score  float64
	order  int // first-seen rank, for stable tie-breaking
}

// SearchHybrid fuses semantic and lexical search via Reciprocal Rank
// Fusion with a quality-boost multiplier, optionally reranks the
// fused top results with a cross-encoder, and optionally expands the
// result set by walking the link graph (§4.4).
func (e *Engram) SearchHybrid(ctx context.Context, query string, opts HybridOptions) ([]SearchHit, error) {
	k := opts.K
	if k <= 0 {
		k = 10
	}
	rrfK := opts.RRFK
	if rrfK <= 0 {
		rrfK = 60
	}
	fetch := 3 * k
	if fetch < 20 {
		fetch = 20
	}
	since, err := parseSince(opts.Since)
	if err != nil {
		return nil, err
	}

	vec, err := e.embed.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	semantic, err := e.store.KNN(vec, fetch, opts.Type, since, false, nil)
	if err != nil {
		return nil, err
	}
	lexical, err := e.store.FTSSearch(query, fetch, opts.Type, since)
	if err != nil {
		return nil, err
	}

	fused := make(map[int64]*rrfEntry)
	order := 0
	addList := func(list []SearchHit) {
		for rank, hit := range list {
			qualityBoost := QualityBoost(hit.Memory.Importance, hit.Memory.Strength)
			contribution := qualityBoost * (1.0 / float64(rrfK+rank+1))
			if entry, ok := fused[hit.Memory.ID]; ok {
				entry.score += contribution
			} else {
				fused[hit.Memory.ID] = &rrfEntry{memory: hit.Memory, score: contribution, order: order}
				order++
			}
		}
	}
	addList(semantic)
	addList(lexical)

	entries := make([]*rrfEntry, 0, len(fused))
	for _, e := range fused {
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].order < entries[j].order
	})

	hits := make([]SearchHit, 0, len(entries))
	for _, en := range entries {
		hits = append(hits, SearchHit{Memory: en.memory, Score: en.score})
	}

	if opts.Rerank && e.embed.CanRerank() {
		rerankN := 2 * k
		if rerankN < 10 {
			rerankN = 10
		}
		if rerankN > len(hits) {
			rerankN = len(hits)
		}
		top := hits[:rerankN]
		candidates := make([]string, len(top))
		for i, h := range top {
			candidates[i] = h.Memory.Title + "\n" + h.Memory.Content
		}
		scores, err := e.embed.Rerank(ctx, query, candidates)
		if err != nil {
			return nil, err
		}
		for i := range top {
			top[i].Score = scores[i]
		}
		sort.SliceStable(top, func(i, j int) bool { return top[i].Score > top[j].Score })
		hits = top
	}

	if len(hits) > k {
		hits = hits[:k]
	}

	if opts.Hops > 0 {
		seedIDs := make([]int64, len(hits))
		for i, h := range hits {
			seedIDs[i] = h.Memory.ID
		}
		maxTotal := opts.MaxTotal
		if maxTotal <= 0 {
			maxTotal = k
		}
		expanded, _, err := expandGraph(e.store, seedIDs, opts.Hops)
		if err != nil {
			return nil, err
		}
		for _, id := range expanded {
			if len(hits) >= maxTotal {
				break
			}
			m, err := e.store.GetMemory(id, false)
			if err != nil {
				return nil, err
			}
			if m == nil {
				continue
			}
			hits = append(hits, SearchHit{Memory: *m, Score: -1})
		}
	}

	return hits, nil
}
