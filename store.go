package engram

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteTimeLayout matches the format SQLite's datetime('now') produces,
// so columns round-trip through time.Parse without a timezone suffix.
const sqliteTimeLayout = "2006-01-02 15:04:05"

func math32bits(f float32) uint32     { return math.Float32bits(f) }
func math32frombits(b uint32) float32 { return math.Float32frombits(b) }

// Store wraps a single SQLite connection for cognitive memory persistence.
// A single connection enforces the single-writer semantics §5 assumes;
// ordering between concurrent callers is left to SQLite's own
// serialization of statements against that one connection.
type Store struct {
	db                   *sql.DB
	vectorIndexAvailable bool
}

// NewStore opens (or creates) the SQLite database at path and runs
// migrations. It attempts to build a vector index; failure is tolerated
// and recorded as a permanent brute-force-fallback flag rather than
// surfaced as an error (§4.1, §7 VectorIndexUnavailable).
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, storageUnavailable("mkdir", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, storageUnavailable("open", err)
	}

	// Single connection: correctness of dedup/merge is only guaranteed
	// within one serialized stream of statements, per §5.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, storageUnavailable("migrate", err)
	}
	s.vectorIndexAvailable = s.tryBuildVectorIndex()
	if !s.vectorIndexAvailable {
		log().Trace().Msg("[engram] vector index unavailable, falling back to exact cosine scan")
	}
	return s, nil
}

// VectorIndexAvailable reports whether a native ANN index backs kNN
// queries. In this build it is always false: modernc.org/sqlite carries
// no vector extension, so the fallback documented in §4.1 is permanent
// rather than transient. The flag and the query shape are kept so that
// swapping in an ANN-capable SQLite build later only touches this file.
func (s *Store) VectorIndexAvailable() bool { return s.vectorIndexAvailable }

// tryBuildVectorIndex attempts to create a native vector index. No such
// virtual table module is registered by modernc.org/sqlite, so this
// always fails; the attempt is kept (rather than hard-coded false) so
// the behavior documented in §4.1 — "attempted, failure tolerated" — is
// literally exercised, not merely asserted.
func (s *Store) tryBuildVectorIndex() bool {
	_, err := s.db.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS memories_vec_idx USING vec0(content_embedding float[1024])`)
	return err == nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS system_meta (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		return err
	}

	version := 0
	s.db.QueryRow(`SELECT CAST(value AS INTEGER) FROM system_meta WHERE key = 'schema_version'`).Scan(&version)

	if version < 1 {
		stmts := []string{
			`CREATE TABLE memories (
				id                     INTEGER PRIMARY KEY AUTOINCREMENT,
				type                   TEXT    NOT NULL CHECK (type IN ('reflex','episode','fact','preference','decision','session_summary')),
				title                  TEXT    NOT NULL,
				content                TEXT    NOT NULL,
				content_embedding      BLOB,
				importance             REAL    NOT NULL DEFAULT 0.5 CHECK (importance >= 0 AND importance <= 1),
				strength               REAL    NOT NULL DEFAULT 1.0 CHECK (strength >= 0 AND strength <= 1),
				access_count           INTEGER NOT NULL DEFAULT 0,
				last_accessed_at       TEXT,
				created_at             TEXT    NOT NULL DEFAULT (datetime('now')),
				updated_at             TEXT    NOT NULL DEFAULT (datetime('now')),
				source_conversation_id TEXT,
				source_type            TEXT    NOT NULL DEFAULT 'manual' CHECK (source_type IN ('manual','auto','migration')),
				archived               INTEGER NOT NULL DEFAULT 0
			)`,
			`CREATE INDEX idx_memories_type ON memories(type)`,
			`CREATE INDEX idx_memories_archived ON memories(archived)`,
			`CREATE INDEX idx_memories_title ON memories(type, title)`,

			`CREATE TABLE tags (
				id   INTEGER PRIMARY KEY AUTOINCREMENT,
				name TEXT NOT NULL UNIQUE
			)`,

			`CREATE TABLE memory_tags (
				memory_id INTEGER NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
				tag_id    INTEGER NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
				UNIQUE(memory_id, tag_id)
			)`,
			`CREATE INDEX idx_memory_tags_memory ON memory_tags(memory_id)`,
			`CREATE INDEX idx_memory_tags_tag ON memory_tags(tag_id)`,

			`CREATE TABLE links (
				source_id  INTEGER NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
				target_id  INTEGER NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
				relation   TEXT    NOT NULL CHECK (relation IN ('related_to','caused_by','evolved_from','contradicts','supersedes')),
				strength   REAL    NOT NULL DEFAULT 0.5,
				created_at TEXT    NOT NULL DEFAULT (datetime('now')),
				PRIMARY KEY (source_id, target_id)
			)`,
			`CREATE INDEX idx_links_target ON links(target_id)`,

			`CREATE TABLE sessions (
				id                TEXT PRIMARY KEY,
				title             TEXT NOT NULL DEFAULT '',
				summary           TEXT NOT NULL DEFAULT '',
				summary_embedding BLOB,
				started_at        TEXT NOT NULL DEFAULT (datetime('now')),
				ended_at          TEXT
			)`,

			`CREATE TABLE access_log (
				id              INTEGER PRIMARY KEY AUTOINCREMENT,
				memory_id       INTEGER NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
				session_id      TEXT,
				query           TEXT,
				relevance_score REAL,
				accessed_at     TEXT NOT NULL DEFAULT (datetime('now'))
			)`,
			`CREATE INDEX idx_access_log_memory ON access_log(memory_id)`,
			`CREATE INDEX idx_access_log_session ON access_log(session_id)`,

			`CREATE VIRTUAL TABLE memories_fts USING fts5(
				title, content, type,
				content='memories', content_rowid='id'
			)`,
			`CREATE TRIGGER memories_ai AFTER INSERT ON memories BEGIN
				INSERT INTO memories_fts(rowid, title, content, type) VALUES (new.id, new.title, new.content, new.type);
			END`,
			`CREATE TRIGGER memories_ad AFTER DELETE ON memories BEGIN
				INSERT INTO memories_fts(memories_fts, rowid, title, content, type) VALUES ('delete', old.id, old.title, old.content, old.type);
			END`,
			`CREATE TRIGGER memories_au AFTER UPDATE ON memories BEGIN
				INSERT INTO memories_fts(memories_fts, rowid, title, content, type) VALUES ('delete', old.id, old.title, old.content, old.type);
				INSERT INTO memories_fts(rowid, title, content, type) VALUES (new.id, new.title, new.content, new.type);
			END`,
		}
		for _, stmt := range stmts {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("migration v1: %w (%s)", err, stmt)
			}
		}
		now := time.Now().UTC().Format(sqliteTimeLayout)
		if _, err := s.db.Exec(`INSERT INTO system_meta (key, value) VALUES ('schema_version','1'), ('created_at', ?)`, now); err != nil {
			return err
		}
	}

	return nil
}

// --- Vector encoding ---

// EncodeVector converts a float32 slice to a little-endian byte blob.
// The conversion is a reinterpretation of the in-memory layout, not a
// copy of semantically distinct data (§9 Vector blobs).
func EncodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		bits := math32bits(f)
		buf[i*4+0] = byte(bits)
		buf[i*4+1] = byte(bits >> 8)
		buf[i*4+2] = byte(bits >> 16)
		buf[i*4+3] = byte(bits >> 24)
	}
	return buf
}

// DecodeVector converts a little-endian byte blob back to a float32 slice.
func DecodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		bits := uint32(b[i*4+0]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
		v[i] = math32frombits(bits)
	}
	return v
}

// --- Memory CRUD ---

// InsertMemory stores a new memory row (with its embedding) and returns
// its assigned id.
func (s *Store) InsertMemory(m Memory) (int64, error) {
	now := time.Now().UTC().Format(sqliteTimeLayout)
	res, err := s.db.Exec(`
		INSERT INTO memories (type, title, content, content_embedding, importance, strength,
			access_count, last_accessed_at, created_at, updated_at,
			source_conversation_id, source_type, archived)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(m.Type), m.Title, m.Content, EncodeVector(m.ContentEmbedding), m.Importance, m.Strength,
		m.AccessCount, nullableTime(m.LastAccessedAt), now, now,
		m.SourceConversationID, string(m.SourceType), boolToInt(m.Archived),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// FindExactDuplicate returns a non-archived memory sharing type and
// title, or nil if none exists (§4.3 step 1).
func (s *Store) FindExactDuplicate(t MemoryType, title string) (*Memory, error) {
	row := s.db.QueryRow(`
		SELECT `+memorySelectCols+`
		FROM memories m
		WHERE m.archived = 0 AND m.type = ? AND m.title = ?
		ORDER BY m.id ASC LIMIT 1`, string(t), title)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// GetMemory loads a memory by id. includeArchived allows the explicit
// inspection path (§3) to see archived rows; every other caller should
// pass false.
func (s *Store) GetMemory(id int64, includeArchived bool) (*Memory, error) {
	q := `SELECT ` + memorySelectCols + ` FROM memories m WHERE m.id = ?`
	if !includeArchived {
		q += ` AND m.archived = 0`
	}
	row := s.db.QueryRow(q, id)
	m, err := scanMemory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateMemory applies a partial patch. embedding is non-nil only when
// title or content changed and the caller has already re-embedded.
// Returns false if the memory does not exist.
func (s *Store) UpdateMemory(id int64, patch UpdatePatch, embedding []float32) (bool, error) {
	sets := []string{}
	args := []any{}

	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Content != nil {
		sets = append(sets, "content = ?")
		args = append(args, *patch.Content)
	}
	if embedding != nil {
		sets = append(sets, "content_embedding = ?")
		args = append(args, EncodeVector(embedding))
	}
	if patch.Importance != nil {
		sets = append(sets, "importance = ?")
		args = append(args, *patch.Importance)
	}
	if patch.Strength != nil {
		sets = append(sets, "strength = ?")
		args = append(args, *patch.Strength)
	}
	if patch.Archived != nil {
		sets = append(sets, "archived = ?")
		args = append(args, boolToInt(*patch.Archived))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(sqliteTimeLayout))
	args = append(args, id)

	res, err := s.db.Exec(`UPDATE memories SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ReplaceContent rewrites a memory's title/content/embedding and bumps
// importance/strength/access_count as part of merge-on-write or
// consolidation merge. Used instead of UpdateMemory because merge
// always touches every one of these fields together.
func (s *Store) ReplaceContent(id int64, title, content string, embedding []float32, importance, strength float64, addAccessCount int) error {
	now := time.Now().UTC().Format(sqliteTimeLayout)
	_, err := s.db.Exec(`
		UPDATE memories
		SET title = ?, content = ?, content_embedding = ?, importance = ?, strength = ?,
		    access_count = access_count + ?, last_accessed_at = ?, updated_at = ?
		WHERE id = ?`,
		title, content, EncodeVector(embedding), importance, strength, addAccessCount, now, now, id,
	)
	return err
}

// DeleteMemory hard-deletes a memory; cascades remove tag joins, links
// and access log entries via foreign keys.
func (s *Store) DeleteMemory(id int64) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// TouchAccess advances last_accessed_at/access_count and appends an
// access_log row. It is used by explicit access logging and the
// write-path duplicate branch; the merge paths advance the same two
// columns through ReplaceContent instead, without an access_log row.
func (s *Store) TouchAccess(memoryID int64, sessionID *string, query *string, score *float64) error {
	now := time.Now().UTC().Format(sqliteTimeLayout)
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		UPDATE memories SET access_count = access_count + 1, last_accessed_at = ? WHERE id = ?`,
		now, memoryID,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO access_log (memory_id, session_id, query, relevance_score, accessed_at)
		VALUES (?, ?, ?, ?, ?)`,
		memoryID, sessionID, query, score, now,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// --- Row scanning ---

type rowScanner interface {
	Scan(dest ...any) error
}

const memorySelectCols = `m.id, m.type, m.title, m.content, m.content_embedding, m.importance, m.strength,
	m.access_count, m.last_accessed_at, m.created_at, m.updated_at,
	m.source_conversation_id, m.source_type, m.archived`

func scanMemory(row rowScanner) (*Memory, error) {
	var m Memory
	var typ, sourceType string
	var lastAccessed, created, updated sql.NullString
	var archived int
	var embBlob []byte

	if err := row.Scan(
		&m.ID, &typ, &m.Title, &m.Content, &embBlob, &m.Importance, &m.Strength,
		&m.AccessCount, &lastAccessed, &created, &updated,
		&m.SourceConversationID, &sourceType, &archived,
	); err != nil {
		return nil, err
	}

	m.Type = MemoryType(typ)
	m.SourceType = SourceType(sourceType)
	m.Archived = archived != 0
	if embBlob != nil {
		m.ContentEmbedding = DecodeVector(embBlob)
	}
	if lastAccessed.Valid {
		t, _ := time.Parse(sqliteTimeLayout, lastAccessed.String)
		m.LastAccessedAt = &t
	}
	m.CreatedAt, _ = time.Parse(sqliteTimeLayout, created.String)
	m.UpdatedAt, _ = time.Parse(sqliteTimeLayout, updated.String)
	return &m, nil
}

func scanMemories(rows *sql.Rows) ([]Memory, error) {
	defer rows.Close()
	var out []Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// --- kNN (exact cosine fallback) ---

// KNN returns the k memories with highest cosine similarity to vec,
// restricted by type/since/archived filters. Since no ANN index is
// available in this build (VectorIndexAvailable is always false), this
// is always the brute-force exact scan described in §4.1: load
// candidate rows, score in Go, sort, truncate.
func (s *Store) KNN(vec []float32, k int, typeFilter MemoryType, since *time.Time, includeArchived bool, excludeIDs map[int64]bool) ([]SearchHit, error) {
	q := `SELECT ` + memorySelectCols + ` FROM memories m WHERE 1=1`
	args := []any{}
	if !includeArchived {
		q += ` AND m.archived = 0`
	}
	if typeFilter != "" {
		q += ` AND m.type = ?`
		args = append(args, string(typeFilter))
	}
	if since != nil {
		q += ` AND m.created_at >= ?`
		args = append(args, since.UTC().Format(sqliteTimeLayout))
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	candidates, err := scanMemories(rows)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(candidates))
	for _, m := range candidates {
		if excludeIDs[m.ID] || m.ContentEmbedding == nil {
			continue
		}
		hits = append(hits, SearchHit{Memory: m, Score: CosineSimilarity(vec, m.ContentEmbedding)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// --- FTS ---

// FTSSearch runs a BM25-ranked lexical match against memories_fts.
// Archived memories are never returned (§4.4).
func (s *Store) FTSSearch(query string, k int, typeFilter MemoryType, since *time.Time) ([]SearchHit, error) {
	q := `
		SELECT ` + memorySelectCols + `, bm25(memories_fts) AS rank
		FROM memories_fts
		JOIN memories m ON m.id = memories_fts.rowid
		WHERE memories_fts MATCH ? AND m.archived = 0`
	args := []any{query}
	if typeFilter != "" {
		q += ` AND m.type = ?`
		args = append(args, string(typeFilter))
	}
	if since != nil {
		q += ` AND m.created_at >= ?`
		args = append(args, since.UTC().Format(sqliteTimeLayout))
	}
	q += ` ORDER BY rank ASC LIMIT ?`
	args = append(args, k)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var bm25 float64
		m, err := scanMemoryWithTrailingFloat(rows, &bm25)
		if err != nil {
			return nil, err
		}
		// bm25() is negative-is-better; invert to a positive score so
		// callers treat every search primitive's Score the same way.
		hits = append(hits, SearchHit{Memory: *m, Score: -bm25})
	}
	return hits, rows.Err()
}

func scanMemoryWithTrailingFloat(rows *sql.Rows, f *float64) (*Memory, error) {
	var m Memory
	var typ, sourceType string
	var lastAccessed, created, updated sql.NullString
	var archived int
	var embBlob []byte

	if err := rows.Scan(
		&m.ID, &typ, &m.Title, &m.Content, &embBlob, &m.Importance, &m.Strength,
		&m.AccessCount, &lastAccessed, &created, &updated,
		&m.SourceConversationID, &sourceType, &archived,
		f,
	); err != nil {
		return nil, err
	}
	m.Type = MemoryType(typ)
	m.SourceType = SourceType(sourceType)
	m.Archived = archived != 0
	if embBlob != nil {
		m.ContentEmbedding = DecodeVector(embBlob)
	}
	if lastAccessed.Valid {
		t, _ := time.Parse(sqliteTimeLayout, lastAccessed.String)
		m.LastAccessedAt = &t
	}
	m.CreatedAt, _ = time.Parse(sqliteTimeLayout, created.String)
	m.UpdatedAt, _ = time.Parse(sqliteTimeLayout, updated.String)
	return &m, nil
}

// --- Tags ---

// UpsertTag normalizes (lowercase, trim) and inserts-or-finds a tag,
// returning its id.
func (s *Store) UpsertTag(name string) (int64, error) {
	name = normalizeTag(name)
	if _, err := s.db.Exec(`INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		return 0, err
	}
	var id int64
	err := s.db.QueryRow(`SELECT id FROM tags WHERE name = ?`, name).Scan(&id)
	return id, err
}

func normalizeTag(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AddMemoryTag idempotently joins a memory to a tag.
func (s *Store) AddMemoryTag(memoryID, tagID int64) error {
	_, err := s.db.Exec(`INSERT INTO memory_tags (memory_id, tag_id) VALUES (?, ?) ON CONFLICT(memory_id, tag_id) DO NOTHING`, memoryID, tagID)
	return err
}

// RemoveMemoryTag removes a memory/tag join if present.
func (s *Store) RemoveMemoryTag(memoryID int64, name string) error {
	_, err := s.db.Exec(`
		DELETE FROM memory_tags WHERE memory_id = ? AND tag_id = (SELECT id FROM tags WHERE name = ?)`,
		memoryID, normalizeTag(name),
	)
	return err
}

// ListMemoryTags returns a memory's tag names, alphabetically.
func (s *Store) ListMemoryTags(memoryID int64) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT t.name FROM tags t
		JOIN memory_tags mt ON mt.tag_id = t.id
		WHERE mt.memory_id = ? ORDER BY t.name`, memoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tags []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		tags = append(tags, n)
	}
	return tags, rows.Err()
}

// IsPermanent reports whether a memory carries the literal "permanent" tag.
func (s *Store) IsPermanent(memoryID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM memory_tags mt JOIN tags t ON t.id = mt.tag_id
		WHERE mt.memory_id = ? AND t.name = ?`, memoryID, PermanentTag).Scan(&n)
	return n > 0, err
}

// ListMemoriesByTag returns memory ids carrying a given tag.
func (s *Store) ListMemoriesByTag(name string) ([]int64, error) {
	rows, err := s.db.Query(`
		SELECT mt.memory_id FROM memory_tags mt JOIN tags t ON t.id = mt.tag_id WHERE t.name = ?`, normalizeTag(name))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Links ---

// InsertLink inserts or replaces a directed edge.
func (s *Store) InsertLink(sourceID, targetID int64, relation LinkRelation, strength float64) error {
	_, err := s.db.Exec(`
		INSERT INTO links (source_id, target_id, relation, strength, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_id, target_id) DO UPDATE SET relation = excluded.relation, strength = excluded.strength`,
		sourceID, targetID, string(relation), strength, time.Now().UTC().Format(sqliteTimeLayout),
	)
	return err
}

// InsertLinkIfAbsent inserts a directed edge only if one doesn't already
// exist between the pair, used by auto-link (§4.3 step 7: "ignore on conflict").
func (s *Store) InsertLinkIfAbsent(sourceID, targetID int64, relation LinkRelation, strength float64) error {
	_, err := s.db.Exec(`
		INSERT INTO links (source_id, target_id, relation, strength, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_id, target_id) DO NOTHING`,
		sourceID, targetID, string(relation), strength, time.Now().UTC().Format(sqliteTimeLayout),
	)
	return err
}

// LinkedNeighborIDs returns the ids reachable in one hop from memoryID,
// following links in both directions.
func (s *Store) LinkedNeighborIDs(memoryID int64) ([]int64, error) {
	rows, err := s.db.Query(`
		SELECT target_id FROM links WHERE source_id = ?
		UNION
		SELECT source_id FROM links WHERE target_id = ?`, memoryID, memoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RewriteLinks repoints every link touching oldID to newID, used when
// consolidation merges oldID away (§4.7 merge step).
func (s *Store) RewriteLinks(oldID, newID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT source_id, target_id, relation, strength FROM links WHERE source_id = ? OR target_id = ?`, oldID, oldID)
	if err != nil {
		return err
	}
	type edge struct {
		src, dst int64
		rel      string
		strength float64
	}
	var edges []edge
	for rows.Next() {
		var e edge
		if err := rows.Scan(&e.src, &e.dst, &e.rel, &e.strength); err != nil {
			rows.Close()
			return err
		}
		edges = append(edges, e)
	}
	rows.Close()

	if _, err := tx.Exec(`DELETE FROM links WHERE source_id = ? OR target_id = ?`, oldID, oldID); err != nil {
		return err
	}
	for _, e := range edges {
		src, dst := e.src, e.dst
		if src == oldID {
			src = newID
		}
		if dst == oldID {
			dst = newID
		}
		if src == dst {
			continue
		}
		if _, err := tx.Exec(`
			INSERT INTO links (source_id, target_id, relation, strength, created_at) VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(source_id, target_id) DO UPDATE SET relation = excluded.relation, strength = excluded.strength`,
			src, dst, e.rel, e.strength, time.Now().UTC().Format(sqliteTimeLayout),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// --- Sessions ---

// UpsertSession creates or replaces a session row with started_at = now.
func (s *Store) UpsertSession(id, title string) error {
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, title, started_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title, started_at = excluded.started_at, ended_at = NULL`,
		id, title, time.Now().UTC().Format(sqliteTimeLayout),
	)
	return err
}

// EndSession marks a session ended and stores its summary/embedding.
func (s *Store) EndSession(id, summary string, embedding []float32) error {
	var blob []byte
	if embedding != nil {
		blob = EncodeVector(embedding)
	}
	_, err := s.db.Exec(`
		UPDATE sessions SET ended_at = ?, summary = ?, summary_embedding = COALESCE(?, summary_embedding) WHERE id = ?`,
		time.Now().UTC().Format(sqliteTimeLayout), summary, blob, id,
	)
	return err
}

// GetSession loads a session by id, or nil if absent.
func (s *Store) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(`SELECT id, title, summary, summary_embedding, started_at, ended_at FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return sess, err
}

func scanSession(row rowScanner) (*Session, error) {
	var sess Session
	var summaryEmb []byte
	var started string
	var ended sql.NullString
	if err := row.Scan(&sess.ID, &sess.Title, &sess.Summary, &summaryEmb, &started, &ended); err != nil {
		return nil, err
	}
	if summaryEmb != nil {
		sess.SummaryEmbedding = DecodeVector(summaryEmb)
	}
	sess.StartedAt, _ = time.Parse(sqliteTimeLayout, started)
	if ended.Valid {
		t, _ := time.Parse(sqliteTimeLayout, ended.String)
		sess.EndedAt = &t
	}
	return &sess, nil
}

// ListSessions returns sessions ordered most-recent-first.
func (s *Store) ListSessions(since, until *time.Time, limit int) ([]Session, error) {
	q := `SELECT id, title, summary, summary_embedding, started_at, ended_at FROM sessions WHERE 1=1`
	args := []any{}
	if since != nil {
		q += ` AND started_at >= ?`
		args = append(args, since.UTC().Format(sqliteTimeLayout))
	}
	if until != nil {
		q += ` AND started_at <= ?`
		args = append(args, until.UTC().Format(sqliteTimeLayout))
	}
	q += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sess)
	}
	return out, rows.Err()
}

// SessionMemories returns the distinct memories accessed under a
// session, most-recently-accessed first.
func (s *Store) SessionMemories(sessionID string) ([]Memory, error) {
	rows, err := s.db.Query(`
		SELECT `+memorySelectCols+`
		FROM memories m
		WHERE m.id IN (
			SELECT DISTINCT memory_id FROM access_log WHERE session_id = ?
		)
		ORDER BY (SELECT MAX(accessed_at) FROM access_log a WHERE a.memory_id = m.id AND a.session_id = ?) DESC`,
		sessionID, sessionID,
	)
	if err != nil {
		return nil, err
	}
	return scanMemories(rows)
}

// --- System meta ---

// GetMeta returns a system_meta value and whether the key exists.
func (s *Store) GetMeta(key string) (string, bool, error) {
	var v sql.NullString
	err := s.db.QueryRow(`SELECT value FROM system_meta WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v.String, v.Valid, nil
}

// SetMeta upserts a system_meta value.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO system_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// --- Consolidation primitives ---

// ActiveMemories returns every non-archived memory (optionally filtered
// by type), including its embedding, for decay/merge/boost sweeps.
func (s *Store) ActiveMemories(typeFilter MemoryType) ([]Memory, error) {
	q := `SELECT ` + memorySelectCols + ` FROM memories m WHERE m.archived = 0`
	args := []any{}
	if typeFilter != "" {
		q += ` AND m.type = ?`
		args = append(args, string(typeFilter))
	}
	q += ` ORDER BY m.id ASC`
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	return scanMemories(rows)
}

// PermanentMemoryIDs returns the set of memory ids carrying the
// "permanent" tag, used to exempt rows from decay/prune.
func (s *Store) PermanentMemoryIDs() (map[int64]bool, error) {
	ids, err := s.ListMemoriesByTag(PermanentTag)
	if err != nil {
		return nil, err
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// SetStrength updates only a memory's strength, used by decay/boost.
func (s *Store) SetStrength(id int64, strength float64) error {
	_, err := s.db.Exec(`UPDATE memories SET strength = ? WHERE id = ?`, strength, id)
	return err
}

// ArchiveMemory sets archived=1 without touching any other column.
func (s *Store) ArchiveMemory(id int64) error {
	_, err := s.db.Exec(`UPDATE memories SET archived = 1, updated_at = ? WHERE id = ?`, time.Now().UTC().Format(sqliteTimeLayout), id)
	return err
}

// --- helpers ---

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(sqliteTimeLayout)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Close shuts down the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
