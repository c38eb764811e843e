package engram

import (
	"context"
	"testing"
)

func seedSearchFixtures(t *testing.T, e *Engram) (goID, catID int64) {
	t.Helper()
	ctx := context.Background()
	go1, err := e.Add(ctx, AddInput{Type: TypeFact, Title: "Go channels", Content: "Channels provide communication between goroutines in Go."})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	cat, err := e.Add(ctx, AddInput{Type: TypeFact, Title: "Cats", Content: "Cats are small domesticated carnivorous mammals."})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	return go1.ID, cat.ID
}

func TestSearchSemanticRanksRelevantFirst(t *testing.T) {
	e := newTestEngram(t)
	goID, _ := seedSearchFixtures(t, e)

	hits, err := e.SearchSemantic(context.Background(), "goroutines channels Go", SearchOptions{K: 5})
	if err != nil {
		t.Fatalf("SearchSemantic: %v", err)
	}
	if len(hits) == 0 || hits[0].Memory.ID != goID {
		t.Fatalf("expected top hit %d, got %+v", goID, hits)
	}
}

func TestSearchFTSMatchesLexically(t *testing.T) {
	e := newTestEngram(t)
	goID, _ := seedSearchFixtures(t, e)

	hits, err := e.SearchFTS("channels goroutines", SearchOptions{K: 5})
	if err != nil {
		t.Fatalf("SearchFTS: %v", err)
	}
	if len(hits) == 0 || hits[0].Memory.ID != goID {
		t.Fatalf("expected top hit %d, got %+v", goID, hits)
	}
}

func TestSearchHybridFusesLists(t *testing.T) {
	e := newTestEngram(t)
	goID, _ := seedSearchFixtures(t, e)

	hits, err := e.SearchHybrid(context.Background(), "Go channels goroutines", HybridOptions{K: 5})
	if err != nil {
		t.Fatalf("SearchHybrid: %v", err)
	}
	if len(hits) == 0 || hits[0].Memory.ID != goID {
		t.Fatalf("expected top hit %d, got %+v", goID, hits)
	}
}

func TestSearchHybridRerank(t *testing.T) {
	e := newTestEngram(t)
	seedSearchFixtures(t, e)

	hits, err := e.SearchHybrid(context.Background(), "Go channels goroutines", HybridOptions{K: 5, Rerank: true})
	if err != nil {
		t.Fatalf("SearchHybrid (rerank): %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("expected hits")
	}
}

func TestSearchHybridGraphExpansion(t *testing.T) {
	e := newTestEngram(t)
	ctx := context.Background()
	seed, err := e.Add(ctx, AddInput{Type: TypeFact, Title: "seed", Content: "unique seed content about rockets", NoAutoLink: true})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	linked, err := e.Add(ctx, AddInput{Type: TypeFact, Title: "linked", Content: "completely unrelated orchard topic", NoAutoLink: true})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := e.Link(seed.ID, linked.ID, RelRelatedTo); err != nil {
		t.Fatalf("Link: %v", err)
	}

	hits, err := e.SearchHybrid(ctx, "unique seed content about rockets", HybridOptions{K: 1, Hops: 1, MaxTotal: 2})
	if err != nil {
		t.Fatalf("SearchHybrid: %v", err)
	}
	found := false
	for _, h := range hits {
		if h.Memory.ID == linked.ID {
			found = true
			if h.Score != -1 {
				t.Errorf("expanded hit score = %v, want sentinel -1", h.Score)
			}
		}
	}
	if !found {
		t.Fatalf("expected graph-expanded neighbor %d in %+v", linked.ID, hits)
	}
}
