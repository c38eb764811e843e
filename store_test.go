package engram

import (
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testMemory(typ MemoryType, title, content string) Memory {
	return Memory{
		Type:             typ,
		Title:            title,
		Content:          content,
		ContentEmbedding: []float32{0.1, 0.2, 0.3},
		Importance:       0.5,
		Strength:         1.0,
		SourceType:       SourceManual,
	}
}

func TestVectorEncodeDecode(t *testing.T) {
	original := []float32{1.0, -0.5, 0.333, 0, 42.0}
	encoded := EncodeVector(original)
	decoded := DecodeVector(encoded)

	if len(decoded) != len(original) {
		t.Fatalf("length mismatch: %d vs %d", len(decoded), len(original))
	}
	for i := range original {
		if original[i] != decoded[i] {
			t.Errorf("index %d: expected %f, got %f", i, original[i], decoded[i])
		}
	}
}

func TestVectorEncodeDecodeEmpty(t *testing.T) {
	encoded := EncodeVector(nil)
	decoded := DecodeVector(encoded)
	if len(decoded) != 0 {
		t.Errorf("expected empty, got %d elements", len(decoded))
	}
}

func TestNewStoreCreatesDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "nested", "test.db")
	s, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Close()
}

func TestVectorIndexAlwaysFallsBack(t *testing.T) {
	s := testStore(t)
	if s.VectorIndexAvailable() {
		t.Error("no ANN extension is registered in this build; expected fallback to exact scan")
	}
}

func TestInsertAndGetMemory(t *testing.T) {
	s := testStore(t)

	id, err := s.InsertMemory(testMemory(TypeFact, "favorite color", "the player's favorite color is blue"))
	if err != nil {
		t.Fatal(err)
	}
	if id <= 0 {
		t.Fatal("expected positive id")
	}

	m, err := s.GetMemory(id, false)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil {
		t.Fatal("expected memory, got nil")
	}
	if m.Title != "favorite color" {
		t.Errorf("title mismatch: %s", m.Title)
	}
	if len(m.ContentEmbedding) != 3 {
		t.Errorf("expected embedding to round-trip, got %d dims", len(m.ContentEmbedding))
	}
}

func TestGetMemoryExcludesArchivedByDefault(t *testing.T) {
	s := testStore(t)
	id, _ := s.InsertMemory(testMemory(TypeFact, "old fact", "stale"))
	s.ArchiveMemory(id)

	m, err := s.GetMemory(id, false)
	if err != nil {
		t.Fatal(err)
	}
	if m != nil {
		t.Error("expected archived memory to be hidden")
	}

	m, err = s.GetMemory(id, true)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil {
		t.Error("expected archived memory to be visible with includeArchived=true")
	}
}

func TestFindExactDuplicate(t *testing.T) {
	s := testStore(t)
	s.InsertMemory(testMemory(TypeFact, "shared title", "content A"))

	dup, err := s.FindExactDuplicate(TypeFact, "shared title")
	if err != nil {
		t.Fatal(err)
	}
	if dup == nil {
		t.Fatal("expected duplicate match")
	}

	none, err := s.FindExactDuplicate(TypePreference, "shared title")
	if err != nil {
		t.Fatal(err)
	}
	if none != nil {
		t.Error("type mismatch should not count as duplicate")
	}
}

func TestUpdateMemoryPartialPatch(t *testing.T) {
	s := testStore(t)
	id, _ := s.InsertMemory(testMemory(TypeFact, "t", "c"))

	newImportance := 0.9
	ok, err := s.UpdateMemory(id, UpdatePatch{Importance: &newImportance}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected update to match a row")
	}

	m, _ := s.GetMemory(id, false)
	if m.Importance != 0.9 {
		t.Errorf("expected importance 0.9, got %.2f", m.Importance)
	}
	if m.Content != "c" {
		t.Errorf("unpatched content should be unchanged, got %q", m.Content)
	}
}

func TestUpdateMemoryMissingRow(t *testing.T) {
	s := testStore(t)
	v := 0.5
	ok, err := s.UpdateMemory(9999, UpdatePatch{Importance: &v}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected no match for nonexistent id")
	}
}

func TestReplaceContent(t *testing.T) {
	s := testStore(t)
	id, _ := s.InsertMemory(testMemory(TypeFact, "old", "old content"))

	if err := s.ReplaceContent(id, "new", "new content", []float32{0.9, 0.9, 0.9}, 0.8, 0.7, 1); err != nil {
		t.Fatal(err)
	}

	m, _ := s.GetMemory(id, false)
	if m.Title != "new" || m.Content != "new content" {
		t.Errorf("replace did not take effect: %+v", m)
	}
	if m.AccessCount != 1 {
		t.Errorf("expected access count bumped to 1, got %d", m.AccessCount)
	}
}

func TestDeleteMemory(t *testing.T) {
	s := testStore(t)
	id, _ := s.InsertMemory(testMemory(TypeFact, "t", "c"))

	ok, err := s.DeleteMemory(id)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected deletion to match")
	}

	m, _ := s.GetMemory(id, true)
	if m != nil {
		t.Error("expected memory to be gone")
	}
}

func TestTouchAccessBumpsCountAndLogs(t *testing.T) {
	s := testStore(t)
	id, _ := s.InsertMemory(testMemory(TypeFact, "t", "c"))

	sessionID := "sess-1"
	query := "t"
	score := 0.8
	if err := s.TouchAccess(id, &sessionID, &query, &score); err != nil {
		t.Fatal(err)
	}

	m, _ := s.GetMemory(id, false)
	if m.AccessCount != 1 {
		t.Errorf("expected access count 1, got %d", m.AccessCount)
	}
	if m.LastAccessedAt == nil {
		t.Error("expected last_accessed_at to be set")
	}

	mems, err := s.SessionMemories(sessionID)
	if err != nil {
		t.Fatal(err)
	}
	if len(mems) != 1 || mems[0].ID != id {
		t.Errorf("expected session to report the touched memory, got %+v", mems)
	}
}

func TestKNNRanksBySimilarity(t *testing.T) {
	s := testStore(t)

	near := testMemory(TypeFact, "near", "c")
	near.ContentEmbedding = []float32{1, 0, 0}
	far := testMemory(TypeFact, "far", "c")
	far.ContentEmbedding = []float32{0, 1, 0}

	idNear, _ := s.InsertMemory(near)
	idFar, _ := s.InsertMemory(far)
	_ = idFar

	hits, err := s.KNN([]float32{1, 0, 0}, 5, "", nil, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Memory.ID != idNear {
		t.Errorf("expected closest vector first, got id %d", hits[0].Memory.ID)
	}
}

func TestKNNExcludesArchivedByDefault(t *testing.T) {
	s := testStore(t)
	id, _ := s.InsertMemory(testMemory(TypeFact, "t", "c"))
	s.ArchiveMemory(id)

	hits, err := s.KNN([]float32{0.1, 0.2, 0.3}, 5, "", nil, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected archived memory excluded, got %d hits", len(hits))
	}
}

func TestFTSSearchMatchesContent(t *testing.T) {
	s := testStore(t)
	s.InsertMemory(testMemory(TypeFact, "Tokyo trip", "the player visited Tokyo last week"))
	s.InsertMemory(testMemory(TypeFact, "unrelated", "something about pizza"))

	hits, err := s.FTSSearch("Tokyo", 5, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 match, got %d", len(hits))
	}
	if hits[0].Memory.Title != "Tokyo trip" {
		t.Errorf("unexpected match: %s", hits[0].Memory.Title)
	}
}

func TestTagUpsertAndJoin(t *testing.T) {
	s := testStore(t)
	id, _ := s.InsertMemory(testMemory(TypeFact, "t", "c"))

	tagID, err := s.UpsertTag("  Important ")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.AddMemoryTag(id, tagID); err != nil {
		t.Fatal(err)
	}
	// idempotent re-add
	if err := s.AddMemoryTag(id, tagID); err != nil {
		t.Fatal(err)
	}

	tags, err := s.ListMemoryTags(id)
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 1 || tags[0] != "important" {
		t.Errorf("expected normalized single tag, got %v", tags)
	}
}

func TestIsPermanentTag(t *testing.T) {
	s := testStore(t)
	id, _ := s.InsertMemory(testMemory(TypeFact, "t", "c"))

	perm, _ := s.IsPermanent(id)
	if perm {
		t.Error("expected not permanent before tagging")
	}

	tagID, _ := s.UpsertTag(PermanentTag)
	s.AddMemoryTag(id, tagID)

	perm, _ = s.IsPermanent(id)
	if !perm {
		t.Error("expected permanent after tagging")
	}
}

func TestLinkInsertAndNeighbors(t *testing.T) {
	s := testStore(t)
	a, _ := s.InsertMemory(testMemory(TypeFact, "a", "c"))
	b, _ := s.InsertMemory(testMemory(TypeFact, "b", "c"))

	if err := s.InsertLink(a, b, RelRelatedTo, 0.6); err != nil {
		t.Fatal(err)
	}

	neighbors, err := s.LinkedNeighborIDs(a)
	if err != nil {
		t.Fatal(err)
	}
	if len(neighbors) != 1 || neighbors[0] != b {
		t.Errorf("expected neighbor %d, got %v", b, neighbors)
	}

	// Link is directed at the table level but LinkedNeighborIDs is bidirectional.
	neighborsFromB, err := s.LinkedNeighborIDs(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(neighborsFromB) != 1 || neighborsFromB[0] != a {
		t.Errorf("expected reverse neighbor %d, got %v", a, neighborsFromB)
	}
}

func TestInsertLinkIfAbsentDoesNotOverwrite(t *testing.T) {
	s := testStore(t)
	a, _ := s.InsertMemory(testMemory(TypeFact, "a", "c"))
	b, _ := s.InsertMemory(testMemory(TypeFact, "b", "c"))

	s.InsertLink(a, b, RelRelatedTo, 0.9)
	if err := s.InsertLinkIfAbsent(a, b, RelContradicts, 0.1); err != nil {
		t.Fatal(err)
	}

	neighbors, _ := s.LinkedNeighborIDs(a)
	if len(neighbors) != 1 {
		t.Fatalf("expected exactly one edge, got %d", len(neighbors))
	}
	var rel string
	if err := s.db.QueryRow(`SELECT relation FROM links WHERE source_id = ? AND target_id = ?`, a, b).Scan(&rel); err != nil {
		t.Fatal(err)
	}
	if rel != string(RelRelatedTo) {
		t.Errorf("expected existing relation %q kept, got %q", RelRelatedTo, rel)
	}
}

func TestRewriteLinksRepointsEdges(t *testing.T) {
	s := testStore(t)
	a, _ := s.InsertMemory(testMemory(TypeFact, "a", "c"))
	b, _ := s.InsertMemory(testMemory(TypeFact, "b", "c"))
	c, _ := s.InsertMemory(testMemory(TypeFact, "c", "c"))

	s.InsertLink(a, b, RelRelatedTo, 0.5)
	s.InsertLink(c, a, RelCausedBy, 0.5)

	if err := s.RewriteLinks(a, c); err != nil {
		t.Fatal(err)
	}

	neighborsOfC, err := s.LinkedNeighborIDs(c)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, id := range neighborsOfC {
		if id == b {
			found = true
		}
	}
	if !found {
		t.Errorf("expected c to inherit a's edge to b, got %v", neighborsOfC)
	}

	// The self-loop c->a->c must not survive as c->c.
	for _, id := range neighborsOfC {
		if id == c {
			t.Error("rewrite should not create a self-loop")
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := testStore(t)
	if err := s.UpsertSession("sess-1", "exploring tokyo"); err != nil {
		t.Fatal(err)
	}

	sess, err := s.GetSession("sess-1")
	if err != nil {
		t.Fatal(err)
	}
	if sess == nil || sess.Title != "exploring tokyo" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if sess.EndedAt != nil {
		t.Error("expected ended_at nil before End")
	}

	if err := s.EndSession("sess-1", "player explored tokyo and bought souvenirs", []float32{0.1, 0.2}); err != nil {
		t.Fatal(err)
	}

	sess, _ = s.GetSession("sess-1")
	if sess.EndedAt == nil {
		t.Error("expected ended_at set after End")
	}
	if sess.Summary == "" {
		t.Error("expected summary to be stored")
	}
}

func TestListSessionsOrdersMostRecentFirst(t *testing.T) {
	s := testStore(t)
	s.UpsertSession("s1", "first")
	time.Sleep(1100 * time.Millisecond)
	s.UpsertSession("s2", "second")

	sessions, err := s.ListSessions(nil, nil, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "s2" {
		t.Errorf("expected most recent session first, got %s", sessions[0].ID)
	}
}

func TestSystemMetaRoundTrip(t *testing.T) {
	s := testStore(t)
	if err := s.SetMeta("last_consolidation_at", "2026-07-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := s.GetMeta("last_consolidation_at")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || v != "2026-07-01T00:00:00Z" {
		t.Errorf("unexpected meta round-trip: %q, %v", v, ok)
	}

	_, ok, err = s.GetMeta("does_not_exist")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("expected missing key to report ok=false")
	}
}

func TestActiveMemoriesExcludesArchived(t *testing.T) {
	s := testStore(t)
	s.InsertMemory(testMemory(TypeFact, "live", "c"))
	archivedID, _ := s.InsertMemory(testMemory(TypeFact, "dead", "c"))
	s.ArchiveMemory(archivedID)

	active, err := s.ActiveMemories("")
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 {
		t.Errorf("expected 1 active memory, got %d", len(active))
	}
}

func TestPermanentMemoryIDs(t *testing.T) {
	s := testStore(t)
	id, _ := s.InsertMemory(testMemory(TypeFact, "t", "c"))
	tagID, _ := s.UpsertTag(PermanentTag)
	s.AddMemoryTag(id, tagID)

	ids, err := s.PermanentMemoryIDs()
	if err != nil {
		t.Fatal(err)
	}
	if !ids[id] {
		t.Errorf("expected %d marked permanent, got %v", id, ids)
	}
}

func TestSetStrengthAndArchive(t *testing.T) {
	s := testStore(t)
	id, _ := s.InsertMemory(testMemory(TypeFact, "t", "c"))

	if err := s.SetStrength(id, 0.2); err != nil {
		t.Fatal(err)
	}
	m, _ := s.GetMemory(id, false)
	if m.Strength != 0.2 {
		t.Errorf("expected strength 0.2, got %.2f", m.Strength)
	}

	if err := s.ArchiveMemory(id); err != nil {
		t.Fatal(err)
	}
	m, _ = s.GetMemory(id, false)
	if m != nil {
		t.Error("expected archived memory hidden from default Get")
	}
}

func TestDaysSinceUnit(t *testing.T) {
	d := DaysSince(time.Now())
	if d > 0.001 {
		t.Errorf("expected ~0 days, got %.4f", d)
	}
}
