package engram

import (
	"context"
	"fmt"
	"math"
	"time"
)

const consolidationMetaKey = "last_consolidation_at"

// RunConsolidation executes the sleep cycle in order: decay, prune,
// merge, extract, boost (§4.7). Any sub-step failure aborts before
// last_consolidation_at is written, preserving idempotence.
func (e *Engram) RunConsolidation(ctx context.Context, opts ConsolidationOptions) (ConsolidationResult, error) {
	start := time.Now()
	opts = applyConsolidationDefaults(opts)

	permanent, err := e.store.PermanentMemoryIDs()
	if err != nil {
		return ConsolidationResult{}, err
	}
	lastRun, err := e.lastConsolidationAt()
	if err != nil {
		return ConsolidationResult{}, err
	}

	decayed, err := e.decay(opts, permanent, lastRun)
	if err != nil {
		return ConsolidationResult{}, err
	}
	pruned, err := e.prune(opts, permanent)
	if err != nil {
		return ConsolidationResult{}, err
	}
	merged, err := e.merge(ctx, opts)
	if err != nil {
		return ConsolidationResult{}, err
	}

	// Extract: stable no-op placeholder for future LLM-driven pattern
	// discovery (§4.7, §9). Never persists anything it returns.
	if _, err := e.pattern.Extract(ctx, nil); err != nil {
		return ConsolidationResult{}, err
	}

	boosted := 0
	if lastRun == nil || daysSinceLastConsolidation(lastRun) >= 1 {
		boosted, err = e.boost(opts)
		if err != nil {
			return ConsolidationResult{}, err
		}
	}

	result := ConsolidationResult{
		Decayed: decayed,
		Pruned:  pruned,
		Merged:  merged,
		Boosted: boosted,
		Elapsed: time.Since(start),
		DryRun:  opts.DryRun,
	}

	if !opts.DryRun {
		if err := e.store.SetMeta(consolidationMetaKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
			return ConsolidationResult{}, err
		}
	}

	return result, nil
}

func applyConsolidationDefaults(opts ConsolidationOptions) ConsolidationOptions {
	if opts.DecayRate == 0 {
		opts.DecayRate = 0.95
	}
	if opts.PruneThreshold == 0 {
		opts.PruneThreshold = 0.05
	}
	if opts.MergeThreshold == 0 {
		opts.MergeThreshold = 0.92
	}
	if opts.BoostFactor == 0 {
		opts.BoostFactor = 1.1
	}
	if opts.BoostMinAccess == 0 {
		opts.BoostMinAccess = 3
	}
	return opts
}

func (e *Engram) lastConsolidationAt() (*time.Time, error) {
	v, ok, err := e.store.GetMeta(consolidationMetaKey)
	if err != nil || !ok || v == "" {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, nil
	}
	return &t, nil
}

func daysSinceLastConsolidation(lastRun *time.Time) float64 {
	if lastRun == nil {
		return math.Inf(1)
	}
	return time.Since(*lastRun).Hours() / 24
}

// decay multiplies every non-archived, non-permanent memory's strength
// by decayRate^days, days measured from last_consolidation_at, falling
// back to last_accessed_at then created_at (§4.7).
func (e *Engram) decay(opts ConsolidationOptions, permanent map[int64]bool, lastRun *time.Time) (int, error) {
	memories, err := e.store.ActiveMemories("")
	if err != nil {
		return 0, err
	}
	count := 0
	for _, m := range memories {
		if permanent[m.ID] {
			continue
		}
		base := m.CreatedAt
		if m.LastAccessedAt != nil {
			base = *m.LastAccessedAt
		}
		if lastRun != nil {
			base = *lastRun
		}
		days := time.Since(base).Hours() / 24
		if days < 0 {
			days = 0
		}
		newStrength := m.Strength * math.Pow(opts.DecayRate, days)
		if opts.DryRun {
			count++
			continue
		}
		if err := e.store.SetStrength(m.ID, newStrength); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

// prune archives every non-permanent memory whose strength has fallen
// below pruneThreshold (§4.7).
func (e *Engram) prune(opts ConsolidationOptions, permanent map[int64]bool) (int, error) {
	memories, err := e.store.ActiveMemories("")
	if err != nil {
		return 0, err
	}
	count := 0
	for _, m := range memories {
		if permanent[m.ID] {
			continue
		}
		if m.Strength >= opts.PruneThreshold {
			continue
		}
		if opts.DryRun {
			count++
			continue
		}
		if err := e.store.ArchiveMemory(m.ID); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

// merge probes same-type neighbours for every non-archived memory and
// collapses pairs at or above mergeThreshold into the higher-scored
// member (§4.7). Iterates by ascending id for deterministic ordering.
func (e *Engram) merge(ctx context.Context, opts ConsolidationOptions) (int, error) {
	memories, err := e.store.ActiveMemories("")
	if err != nil {
		return 0, err
	}

	archived := make(map[int64]bool)
	count := 0

	for _, m := range memories {
		if archived[m.ID] || m.ContentEmbedding == nil {
			continue
		}
		neighbors, err := e.store.KNN(m.ContentEmbedding, 2, m.Type, nil, false, map[int64]bool{m.ID: true})
		if err != nil {
			return 0, err
		}
		for _, n := range neighbors {
			if archived[n.Memory.ID] || n.Memory.ID == m.ID {
				continue
			}
			if n.Score < opts.MergeThreshold {
				continue
			}
			other := n.Memory

			keep, remove := m, other
			keepScore := keep.Importance + 0.1*float64(keep.AccessCount)
			removeScore := remove.Importance + 0.1*float64(remove.AccessCount)
			if removeScore > keepScore {
				keep, remove = remove, keep
			}
			if archived[keep.ID] || archived[remove.ID] {
				continue
			}

			if opts.DryRun {
				archived[remove.ID] = true
				count++
				break
			}

			mergedContent := keep.Content + fmt.Sprintf("\n\n[Merged from: %s]\n%s", remove.Title, remove.Content)
			embedding, err := e.embed.EmbedDocument(ctx, keep.Title+"\n"+mergedContent)
			if err != nil {
				return 0, err
			}
			newImportance := math.Max(keep.Importance, remove.Importance)
			newStrength := math.Max(keep.Strength, remove.Strength)
			if err := e.store.ReplaceContent(keep.ID, keep.Title, mergedContent, embedding, newImportance, newStrength, remove.AccessCount); err != nil {
				return 0, err
			}
			if err := e.store.ArchiveMemory(remove.ID); err != nil {
				return 0, err
			}
			if err := e.store.RewriteLinks(remove.ID, keep.ID); err != nil {
				return 0, err
			}
			archived[remove.ID] = true
			count++
			break
		}
	}
	return count, nil
}

// boost multiplies strength by boostFactor, clamped to 1.0, for every
// non-archived memory with access_count ≥ boostMinAccess (§4.7).
func (e *Engram) boost(opts ConsolidationOptions) (int, error) {
	memories, err := e.store.ActiveMemories("")
	if err != nil {
		return 0, err
	}
	count := 0
	for _, m := range memories {
		if m.AccessCount < opts.BoostMinAccess {
			continue
		}
		newStrength := m.Strength * opts.BoostFactor
		if newStrength > 1.0 {
			newStrength = 1.0
		}
		if opts.DryRun {
			count++
			continue
		}
		if err := e.store.SetStrength(m.ID, newStrength); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

// ShouldConsolidate reports whether at least intervalDays have elapsed
// since the last consolidation run, or true if none has ever run.
func (e *Engram) ShouldConsolidate(intervalDays int) (bool, error) {
	lastRun, err := e.lastConsolidationAt()
	if err != nil {
		return false, err
	}
	if lastRun == nil {
		return true, nil
	}
	return daysSinceLastConsolidation(lastRun) >= float64(intervalDays), nil
}

// GetConsolidationPreview reports the ten weakest memories plus the
// would-merge count computed by a dry-run merge pass (§4.7).
func (e *Engram) GetConsolidationPreview(ctx context.Context) (ConsolidationPreview, error) {
	memories, err := e.store.ActiveMemories("")
	if err != nil {
		return ConsolidationPreview{}, err
	}

	sorted := append([]Memory{}, memories...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].Strength < sorted[j-1].Strength; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	weakest := sorted
	if len(weakest) > 10 {
		weakest = weakest[:10]
	}

	opts := applyConsolidationDefaults(ConsolidationOptions{DryRun: true})
	wouldMerge, err := e.merge(ctx, opts)
	if err != nil {
		return ConsolidationPreview{}, err
	}

	return ConsolidationPreview{Weakest: weakest, WouldMergeCount: wouldMerge}, nil
}
