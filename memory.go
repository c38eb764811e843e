package engram

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Add runs the 8-step write path (§4.3): exact-duplicate check, embed,
// merge-on-write, insert, tag application, explicit links, auto-link.
func (e *Engram) Add(ctx context.Context, in AddInput) (AddResult, error) {
	if err := validateMemoryType(in.Type); err != nil {
		return AddResult{}, err
	}
	if in.Importance == 0 {
		in.Importance = 0.5
	}
	if err := validateImportance(in.Importance); err != nil {
		return AddResult{}, err
	}
	if in.SourceType == "" {
		in.SourceType = SourceManual
	}

	// 1. Exact duplicate.
	if dup, err := e.store.FindExactDuplicate(in.Type, in.Title); err != nil {
		return AddResult{}, err
	} else if dup != nil {
		if err := e.store.TouchAccess(dup.ID, nil, nil, nil); err != nil {
			return AddResult{}, err
		}
		if err := e.applyTags(dup.ID, in.Title, in.Content, in.Tags, in.NoAutoTag); err != nil {
			return AddResult{}, err
		}
		return AddResult{ID: dup.ID, Status: StatusDuplicate}, nil
	}

	// 2. Embed.
	embedding, err := e.embed.EmbedDocument(ctx, in.Title+"\n"+in.Content)
	if err != nil {
		return AddResult{}, err
	}

	// 3. Semantic near-duplicate / merge-on-write. kNN is always served by
	// the brute-force fallback (§4.1), so this step never degrades to a
	// no-op the way an engine with no substitute for a vector index would.
	neighbors, err := e.store.KNN(embedding, 1, in.Type, nil, false, nil)
	if err != nil {
		return AddResult{}, err
	}
	if len(neighbors) > 0 && neighbors[0].Score >= e.config.MergeThreshold {
		kept := neighbors[0].Memory
		mergedContent := kept.Content
		if !strings.Contains(kept.Content, in.Content) {
			mergedContent = kept.Content + "\n\n---\n" + in.Content
		}
		title := kept.Title
		if len(in.Title) > len(title) {
			title = in.Title
		}

		mergedEmbedding, err := e.embed.EmbedDocument(ctx, title+"\n"+mergedContent)
		if err != nil {
			return AddResult{}, err
		}
		newStrength := kept.Strength * 1.1
		if newStrength > 1.0 {
			newStrength = 1.0
		}
		if err := e.store.ReplaceContent(kept.ID, title, mergedContent, mergedEmbedding, kept.Importance, newStrength, 1); err != nil {
			return AddResult{}, err
		}
		if err := e.applyTags(kept.ID, title, mergedContent, in.Tags, in.NoAutoTag); err != nil {
			return AddResult{}, err
		}
		return AddResult{ID: kept.ID, Status: StatusMerged, MergedInto: kept.ID}, nil
	}

	// 4. Insert.
	mem := Memory{
		Type:                 in.Type,
		Title:                in.Title,
		Content:              in.Content,
		ContentEmbedding:     embedding,
		Importance:           in.Importance,
		Strength:             1.0,
		SourceConversationID: in.SourceConversationID,
		SourceType:           in.SourceType,
	}
	id, err := e.store.InsertMemory(mem)
	if err != nil {
		return AddResult{}, err
	}

	// 5. Tag application.
	if err := e.applyTags(id, in.Title, in.Content, in.Tags, in.NoAutoTag); err != nil {
		return AddResult{}, err
	}

	// 6. Explicit links.
	for _, l := range in.Links {
		if err := validateLinkRelation(l.Relation); err != nil {
			return AddResult{}, err
		}
		if err := e.store.InsertLink(id, l.TargetID, l.Relation, 0.5); err != nil {
			return AddResult{}, err
		}
	}

	// 7. Auto-link (default on).
	if !in.NoAutoLink {
		probeK := e.config.MaxAutoLinks + e.config.AutoLinkBuffer
		auto, err := e.store.KNN(embedding, probeK, in.Type, nil, false, map[int64]bool{id: true})
		if err != nil {
			return AddResult{}, err
		}
		linked := 0
		for _, n := range auto {
			if linked >= e.config.MaxAutoLinks {
				break
			}
			if n.Score < e.config.AutoLinkThreshold {
				continue
			}
			rounded := float64(int(n.Score*100+0.5)) / 100
			if err := e.store.InsertLinkIfAbsent(id, n.Memory.ID, RelRelatedTo, rounded); err != nil {
				return AddResult{}, err
			}
			linked++
		}
	}

	return AddResult{ID: id, Status: StatusCreated}, nil
}

// applyTags upserts the caller-supplied tags and, unless disabled, the
// auto-suggested candidates extracted from title+content (§4.3 step 5).
func (e *Engram) applyTags(memoryID int64, title, content string, explicit []string, noAutoTag bool) error {
	all := append([]string{}, explicit...)
	if !noAutoTag {
		all = append(all, SuggestTags(title+"\n"+content)...)
	}
	for _, name := range all {
		tagID, err := e.store.UpsertTag(name)
		if err != nil {
			return err
		}
		if err := e.store.AddMemoryTag(memoryID, tagID); err != nil {
			return err
		}
	}
	return nil
}

// Ingest is the batch write path used by ingest records that may omit a
// type; it infers one via the configured TypeInferencer and otherwise
// behaves exactly like Add.
func (e *Engram) Ingest(ctx context.Context, in AddInput) (AddResult, error) {
	if in.Type == "" {
		inferred, err := e.typeInferencer.Infer(ctx, in.Title+"\n"+in.Content)
		if err != nil {
			return AddResult{}, err
		}
		in.Type = inferred
	}
	return e.Add(ctx, in)
}

// Get loads a memory by id, including its tags.
func (e *Engram) Get(id int64, includeArchived bool) (*Memory, error) {
	m, err := e.store.GetMemory(id, includeArchived)
	if err != nil || m == nil {
		return m, err
	}
	tags, err := e.store.ListMemoryTags(id)
	if err != nil {
		return nil, err
	}
	m.Tags = tags
	return m, nil
}

// Update applies a partial patch (§4.3): re-embeds when title or content
// changes. Returns false if the memory does not exist.
func (e *Engram) Update(ctx context.Context, id int64, patch UpdatePatch) (bool, error) {
	if patch.Importance != nil {
		if err := validateImportance(*patch.Importance); err != nil {
			return false, err
		}
	}

	var embedding []float32
	if patch.Title != nil || patch.Content != nil {
		existing, err := e.store.GetMemory(id, true)
		if err != nil {
			return false, err
		}
		if existing == nil {
			return false, nil
		}
		title, content := existing.Title, existing.Content
		if patch.Title != nil {
			title = *patch.Title
		}
		if patch.Content != nil {
			content = *patch.Content
		}
		vec, err := e.embed.EmbedDocument(ctx, title+"\n"+content)
		if err != nil {
			return false, err
		}
		embedding = vec
	}

	return e.store.UpdateMemory(id, patch, embedding)
}

// Delete hard-deletes a memory; cascades remove tag joins, links and
// access log entries.
func (e *Engram) Delete(id int64) (bool, error) {
	return e.store.DeleteMemory(id)
}

// AddTag attaches a normalized tag to a memory.
func (e *Engram) AddTag(memoryID int64, name string) error {
	tagID, err := e.store.UpsertTag(name)
	if err != nil {
		return err
	}
	return e.store.AddMemoryTag(memoryID, tagID)
}

// RemoveTag detaches a tag from a memory, if present.
func (e *Engram) RemoveTag(memoryID int64, name string) error {
	return e.store.RemoveMemoryTag(memoryID, name)
}

// ListTags returns a memory's tags.
func (e *Engram) ListTags(memoryID int64) ([]string, error) {
	return e.store.ListMemoryTags(memoryID)
}

// MarkPermanent tags (or untags) a memory with the literal "permanent"
// tag, exempting it from decay and prune.
func (e *Engram) MarkPermanent(memoryID int64, permanent bool) error {
	if permanent {
		return e.AddTag(memoryID, PermanentTag)
	}
	return e.RemoveTag(memoryID, PermanentTag)
}

// Link creates (or replaces) a directed edge between two memories.
func (e *Engram) Link(sourceID, targetID int64, relation LinkRelation) error {
	if err := validateLinkRelation(relation); err != nil {
		return err
	}
	return e.store.InsertLink(sourceID, targetID, relation, 0.5)
}

// Export dumps every non-archived memory in ascending id order (oldest
// first), for the CLI's `export` verb.
func (e *Engram) Export() ([]Memory, error) {
	return e.store.ActiveMemories("")
}

// parseSince compiles a "{N}{h|d|w|m}" duration expression into an
// absolute time relative to now, per §4.4.
func parseSince(since string) (*time.Time, error) {
	if since == "" {
		return nil, nil
	}
	if len(since) < 2 {
		return nil, invalidArgument("since", fmt.Sprintf("malformed duration %q", since))
	}
	unit := since[len(since)-1]
	numPart := since[:len(since)-1]
	var n int
	if _, err := fmt.Sscanf(numPart, "%d", &n); err != nil {
		return nil, invalidArgument("since", fmt.Sprintf("malformed duration %q", since))
	}

	var d time.Duration
	switch unit {
	case 'h':
		d = time.Duration(n) * time.Hour
	case 'd':
		d = time.Duration(n) * 24 * time.Hour
	case 'w':
		d = time.Duration(n) * 7 * 24 * time.Hour
	case 'm':
		d = time.Duration(n) * 30 * 24 * time.Hour
	default:
		return nil, invalidArgument("since", fmt.Sprintf("unknown unit %q in %q", string(unit), since))
	}

	t := time.Now().Add(-d)
	return &t, nil
}
