package engram

// Engram is a single-node cognitive memory engine: typed memories, tags,
// links, sessions and sleep-style consolidation over one SQLite store.
type Engram struct {
	store          *Store
	embed          *EmbeddingService
	typeInferencer TypeInferencer
	pattern        PatternProvider
	config         Config
}

// Init opens the store, runs migrations, and wires the configured (or
// default) providers. It does not start any background loop — callers
// that want cooperative consolidation call RunConsolidationLoop
// themselves (§9: no auto-started workers).
func Init(cfg Config) (*Engram, error) {
	cfg.ApplyDefaults()

	store, err := NewStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	typeInferencer := cfg.TypeInferencer
	if typeInferencer == nil {
		typeInferencer = NewHeuristicTypeInferencer(cfg.GeminiAPIKey)
	}
	pattern := cfg.PatternProvider
	if pattern == nil {
		pattern = NoopPatternProvider{}
	}

	return &Engram{
		store:          store,
		embed:          NewEmbeddingService(cfg.Embedder, cfg.Reranker, cfg.GeminiAPIKey, cfg.EmbedDimension),
		typeInferencer: typeInferencer,
		pattern:        pattern,
		config:         cfg,
	}, nil
}

// Close shuts down the underlying store.
func (e *Engram) Close() error {
	return e.store.Close()
}

// VectorIndexAvailable reports whether a native vector index backs
// kNN, for diagnostics only — callers never need to branch on it since
// the brute-force scan always serves as a working substitute.
func (e *Engram) VectorIndexAvailable() bool {
	return e.store.VectorIndexAvailable()
}
