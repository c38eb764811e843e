// Package engram is a single-node cognitive memory engine for long-lived
// AI agents. It persists typed textual memories together with dense
// semantic embeddings and lexical indices, and exposes add/recall/search/
// link/sleep/session operations for reconstructing task-relevant context
// inside a finite token budget.
package engram

import "time"

// MemoryType classifies the kind of knowledge a memory holds.
type MemoryType string

const (
	TypeReflex         MemoryType = "reflex"
	TypeEpisode        MemoryType = "episode"
	TypeFact           MemoryType = "fact"
	TypePreference     MemoryType = "preference"
	TypeDecision       MemoryType = "decision"
	TypeSessionSummary MemoryType = "session_summary"
)

// validMemoryTypes is consulted before any mutation to reject unknown types.
var validMemoryTypes = map[MemoryType]bool{
	TypeReflex:         true,
	TypeEpisode:        true,
	TypeFact:           true,
	TypePreference:     true,
	TypeDecision:       true,
	TypeSessionSummary: true,
}

// SourceType records how a memory entered the store.
type SourceType string

const (
	SourceManual    SourceType = "manual"
	SourceAuto      SourceType = "auto"
	SourceMigration SourceType = "migration"
)

// LinkRelation describes the directed relationship a Link carries.
type LinkRelation string

const (
	RelRelatedTo   LinkRelation = "related_to"
	RelCausedBy    LinkRelation = "caused_by"
	RelEvolvedFrom LinkRelation = "evolved_from"
	RelContradicts LinkRelation = "contradicts"
	RelSupersedes  LinkRelation = "supersedes"
)

var validLinkRelations = map[LinkRelation]bool{
	RelRelatedTo:   true,
	RelCausedBy:    true,
	RelEvolvedFrom: true,
	RelContradicts: true,
	RelSupersedes:  true,
}

// PermanentTag marks a memory as exempt from decay and prune.
const PermanentTag = "permanent"

// EmbeddingDim is the fixed dimensionality of every stored embedding.
const EmbeddingDim = 1024

// Memory is the unit of stored knowledge.
type Memory struct {
	ID                   int64
	Type                 MemoryType
	Title                string
	Content              string
	ContentEmbedding     []float32 // nil only transiently, before the write path embeds it
	Importance           float64   // [0,1], default 0.5
	Strength             float64   // [0,1], default 1.0
	AccessCount          int
	LastAccessedAt       *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
	SourceConversationID *string
	SourceType           SourceType
	Archived             bool

	Tags []string // populated on read by callers that join tags; not authoritative storage
}

// Tag is a normalized (lowercased, trimmed) label joined to memories.
type Tag struct {
	ID   int64
	Name string
}

// Link is a directed edge between two memories.
type Link struct {
	SourceID  int64
	TargetID  int64
	Relation  LinkRelation
	Strength  float64
	CreatedAt time.Time
}

// Session groups memories accessed or created during one conversation.
type Session struct {
	ID               string
	Title            string
	Summary          string
	SummaryEmbedding []float32
	StartedAt        time.Time
	EndedAt          *time.Time
}

// AccessLogEntry records one read-side touch of a memory.
type AccessLogEntry struct {
	ID             int64
	MemoryID       int64
	SessionID      *string
	Query          *string
	RelevanceScore *float64
	AccessedAt     time.Time
}

// AddStatus reports the outcome of a write-path Add call.
type AddStatus string

const (
	StatusCreated   AddStatus = "created"
	StatusDuplicate AddStatus = "duplicate"
	StatusMerged    AddStatus = "merged"
)

// AddInput describes a new memory to write.
type AddInput struct {
	Type                 MemoryType
	Title                string
	Content              string
	Importance           float64 // 0 means "use default" (0.5)
	Tags                 []string
	Links                []LinkInput
	SourceConversationID *string
	SourceType           SourceType

	NoAutoLink bool // disables step 7 (auto-link) for this call
	NoAutoTag  bool // disables automatic tag-candidate extraction for this call
}

// LinkInput is a caller-supplied explicit link to create alongside a new memory.
type LinkInput struct {
	TargetID int64
	Relation LinkRelation
}

// AddResult is the return value of Add.
type AddResult struct {
	ID         int64
	Status     AddStatus
	MergedInto int64 // set iff Status == StatusMerged; equals ID
}

// UpdatePatch describes a partial update to an existing memory.
// Nil fields are left unchanged.
type UpdatePatch struct {
	Title      *string
	Content    *string
	Importance *float64
	Strength   *float64
	Archived   *bool
}

// SearchOptions filters and sizes a single-modality search.
type SearchOptions struct {
	K               int
	Type            MemoryType // empty means "all types"
	Since           string     // "{N}{h|d|w|m}"
	IncludeArchived bool
}

// HybridOptions filters and sizes a hybrid search.
type HybridOptions struct {
	K        int
	Type     MemoryType
	RRFK     int // default 60
	Rerank   bool
	Since    string
	Hops     int
	MaxTotal int // caller-supplied cap on combined result size after graph expansion
}

// SearchHit is one result from a search primitive.
type SearchHit struct {
	Memory
	Score float64 // cosine similarity, RRF score, bm25 score, rerank score, or -1 sentinel for graph expansion
}

// RecallOptions configures a Focus-of-Attention recall.
type RecallOptions struct {
	K         int
	Budget    int // token budget, default 4000
	Type      MemoryType
	SessionID string
}

// RecallResult is the assembled context returned by Recall.
type RecallResult struct {
	Memories            []SearchHit
	SessionContext      *Session
	TotalTokensEstimate int
}

// ConsolidationOptions configures one sleep-consolidation run.
type ConsolidationOptions struct {
	DecayRate      float64 // default 0.95
	PruneThreshold float64 // default 0.05
	MergeThreshold float64 // default 0.92
	BoostFactor    float64 // default 1.1
	BoostMinAccess int     // default 3
	DryRun         bool
}

// ConsolidationResult reports what one sleep-consolidation run did.
type ConsolidationResult struct {
	Decayed   int
	Pruned    int
	Merged    int
	Boosted   int
	Extracted int // always 0 today; see Extract step
	Elapsed   time.Duration
	DryRun    bool
}

// ConsolidationPreview reports what a dry-run merge/prune pass would do.
type ConsolidationPreview struct {
	Weakest         []Memory
	WouldMergeCount int
}

// Config bundles the dependencies and tunables an Engram instance needs.
type Config struct {
	// Storage
	DBPath string // default: "./data/engram.db"

	// Providers (nil = use defaults built from the fields below)
	Embedder        EmbeddingProvider
	Reranker        CrossEncoderProvider
	TypeInferencer  TypeInferencer
	PatternProvider PatternProvider

	// Write-path thresholds
	MergeThreshold    float64 // default 0.92
	AutoLinkThreshold float64 // default 0.7
	MaxAutoLinks      int     // default 3
	AutoLinkBuffer    int     // default 5, extra neighbours probed beyond MaxAutoLinks

	// Consolidation defaults
	Consolidation ConsolidationOptions

	// Legacy/convenience construction of default HTTP-backed providers
	GeminiAPIKey   string
	EmbedDimension int // default 1024

	resolved bool
}

// ApplyDefaults fills zero-valued fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.resolved {
		return
	}
	if c.DBPath == "" {
		c.DBPath = "./data/engram.db"
	}
	if c.EmbedDimension == 0 {
		c.EmbedDimension = EmbeddingDim
	}
	if c.MergeThreshold == 0 {
		c.MergeThreshold = 0.92
	}
	if c.AutoLinkThreshold == 0 {
		c.AutoLinkThreshold = 0.7
	}
	if c.MaxAutoLinks == 0 {
		c.MaxAutoLinks = 3
	}
	if c.AutoLinkBuffer == 0 {
		c.AutoLinkBuffer = 5
	}
	if c.Consolidation.DecayRate == 0 {
		c.Consolidation.DecayRate = 0.95
	}
	if c.Consolidation.PruneThreshold == 0 {
		c.Consolidation.PruneThreshold = 0.05
	}
	if c.Consolidation.MergeThreshold == 0 {
		c.Consolidation.MergeThreshold = c.MergeThreshold
	}
	if c.Consolidation.BoostFactor == 0 {
		c.Consolidation.BoostFactor = 1.1
	}
	if c.Consolidation.BoostMinAccess == 0 {
		c.Consolidation.BoostMinAccess = 3
	}
	c.resolved = true
}
