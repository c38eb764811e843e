// engram-mcp exposes the engine as an MCP stdio server.
//
// Environment variables:
//
//	ENGRAM_DB_PATH   — SQLite database path (default: ./data/engram.db)
//	GEMINI_API_KEY   — Gemini API key for embeddings
//
// Usage:
//
//	go install github.com/engramhq/engram/cmd/engram-mcp
//	engram-mcp
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	engram "github.com/engramhq/engram"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	dbPath := os.Getenv("ENGRAM_DB_PATH")
	if dbPath == "" {
		dbPath = "./data/engram.db"
	}
	apiKey := os.Getenv("GEMINI_API_KEY")

	cfg := engram.Config{
		DBPath:       dbPath,
		GeminiAPIKey: apiKey,
	}

	e, err := engram.Init(cfg)
	if err != nil {
		log.Fatalf("engram init: %v", err)
	}
	defer e.Close()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "engram-mcp",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "remember",
		Description: "Store a memory through the write-path pipeline: exact-duplicate detection, embedding, merge-on-write, tagging, and auto-linking. Returns the memory id and whether it was created, a duplicate, or merged.",
	}, rememberHandler(e))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recall",
		Description: "Assemble a token-budgeted context window: hybrid search, composite scoring, and budget packing. Optionally prepends a session summary.",
	}, recallHandler(e))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search",
		Description: "Run raw semantic, lexical, or hybrid search without budget packing.",
	}, searchHandler(e))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "link",
		Description: "Create or replace a directed link between two memories.",
	}, linkHandler(e))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "mark_permanent",
		Description: "Tag or untag a memory as permanent, exempting it from decay and prune.",
	}, markPermanentHandler(e))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "session_start",
		Description: "Create or replace a session row.",
	}, sessionStartHandler(e))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "session_end",
		Description: "End a session, embedding and storing an optional summary.",
	}, sessionEndHandler(e))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "session_context",
		Description: "Retrieve a session plus the distinct memories accessed under it.",
	}, sessionContextHandler(e))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sleep",
		Description: "Run one sleep-consolidation cycle: decay, prune, merge, boost.",
	}, sleepHandler(e))

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("engram-mcp: %v", err)
	}
}

// --- Input types ---

type rememberInput struct {
	Type       string   `json:"type"                   jsonschema:"Memory type: reflex, episode, fact, preference, decision, session_summary"`
	Title      string   `json:"title"                  jsonschema:"Short title"`
	Content    string   `json:"content"                jsonschema:"Full memory content"`
	Tags       []string `json:"tags,omitempty"         jsonschema:"Explicit tags to attach"`
	Importance float64  `json:"importance,omitempty"   jsonschema:"Importance 0.0-1.0 (default 0.5)"`
	Permanent  bool     `json:"permanent,omitempty"    jsonschema:"Tag the memory permanent on creation"`
	NoAutoLink bool     `json:"no_auto_link,omitempty" jsonschema:"Skip the auto-link step"`
	NoAutoTag  bool     `json:"no_auto_tag,omitempty"  jsonschema:"Skip heuristic tag suggestion"`
	SessionID  string   `json:"session_id,omitempty"   jsonschema:"Conversation session id for access attribution"`
}

type recallInput struct {
	Query     string `json:"query"                jsonschema:"Query to recall context for"`
	K         int    `json:"k,omitempty"          jsonschema:"Candidate count before budget packing (default 10)"`
	Budget    int    `json:"budget,omitempty"     jsonschema:"Token budget (default 4000)"`
	Type      string `json:"type,omitempty"       jsonschema:"Filter to one memory type"`
	SessionID string `json:"session_id,omitempty" jsonschema:"Prepend this session's summary"`
}

type searchInput struct {
	Query  string `json:"query"            jsonschema:"Search query"`
	Mode   string `json:"mode,omitempty"   jsonschema:"hybrid, semantic, or fts (default hybrid)"`
	K      int    `json:"k,omitempty"      jsonschema:"Result count (default 10)"`
	Type   string `json:"type,omitempty"   jsonschema:"Filter to one memory type"`
	Rerank bool   `json:"rerank,omitempty" jsonschema:"Cross-encoder rerank the fused top results (hybrid only; skipped when no reranker is configured, and this server configures none)"`
	Since  string `json:"since,omitempty"  jsonschema:"Only memories created after this duration ago, e.g. 7d"`
	Hops   int    `json:"hops,omitempty"   jsonschema:"N-hop link-graph expansion (hybrid only)"`
}

type linkInput struct {
	SourceID int64  `json:"source_id" jsonschema:"Source memory id"`
	TargetID int64  `json:"target_id" jsonschema:"Target memory id"`
	Relation string `json:"relation"  jsonschema:"related_to, caused_by, evolved_from, contradicts, or supersedes"`
}

type markPermanentInput struct {
	MemoryID int64 `json:"memory_id"        jsonschema:"Memory id"`
	Remove   bool  `json:"remove,omitempty" jsonschema:"Remove the permanent tag instead of adding it"`
}

type sessionStartInput struct {
	ID    string `json:"id,omitempty"    jsonschema:"Session id; generated if omitted"`
	Title string `json:"title,omitempty" jsonschema:"Session title"`
}

type sessionEndInput struct {
	ID      string `json:"id"                jsonschema:"Session id"`
	Summary string `json:"summary,omitempty" jsonschema:"Session summary to embed and store"`
}

type sessionContextInput struct {
	ID string `json:"id" jsonschema:"Session id"`
}

type sleepInput struct {
	DryRun bool `json:"dry_run,omitempty" jsonschema:"Preview without mutating state"`
}

// --- Handlers ---

func rememberHandler(e *engram.Engram) func(context.Context, *mcp.CallToolRequest, rememberInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input rememberInput) (*mcp.CallToolResult, any, error) {
		result, err := e.Add(ctx, engram.AddInput{
			Type:       engram.MemoryType(input.Type),
			Title:      input.Title,
			Content:    input.Content,
			Tags:       input.Tags,
			Importance: input.Importance,
			NoAutoLink: input.NoAutoLink,
			NoAutoTag:  input.NoAutoTag,
		})
		if err != nil {
			return textResult(fmt.Sprintf("error: %v", err)), nil, nil
		}
		if input.Permanent {
			if err := e.MarkPermanent(result.ID, true); err != nil {
				return textResult(fmt.Sprintf("error: %v", err)), nil, nil
			}
		}
		if input.SessionID != "" {
			sid := input.SessionID
			if err := e.LogAccess(result.ID, &sid, nil, nil); err != nil {
				return textResult(fmt.Sprintf("error: %v", err)), nil, nil
			}
		}
		return textResult(jsonString(map[string]any{
			"id":          result.ID,
			"status":      result.Status,
			"merged_into": result.MergedInto,
		})), nil, nil
	}
}

func recallHandler(e *engram.Engram) func(context.Context, *mcp.CallToolRequest, recallInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input recallInput) (*mcp.CallToolResult, any, error) {
		result, err := e.Recall(ctx, input.Query, engram.RecallOptions{
			K:         input.K,
			Budget:    input.Budget,
			Type:      engram.MemoryType(input.Type),
			SessionID: input.SessionID,
		})
		if err != nil {
			return textResult(fmt.Sprintf("error: %v", err)), nil, nil
		}
		return textResult(engram.RenderMarkdown(result)), nil, nil
	}
}

func searchHandler(e *engram.Engram) func(context.Context, *mcp.CallToolRequest, searchInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input searchInput) (*mcp.CallToolResult, any, error) {
		mode := input.Mode
		if mode == "" {
			mode = "hybrid"
		}

		var hits []engram.SearchHit
		var err error
		switch mode {
		case "semantic":
			hits, err = e.SearchSemantic(ctx, input.Query, engram.SearchOptions{K: input.K, Type: engram.MemoryType(input.Type), Since: input.Since})
		case "fts":
			hits, err = e.SearchFTS(input.Query, engram.SearchOptions{K: input.K, Type: engram.MemoryType(input.Type), Since: input.Since})
		case "hybrid":
			hits, err = e.SearchHybrid(ctx, input.Query, engram.HybridOptions{
				K: input.K, Type: engram.MemoryType(input.Type), Since: input.Since,
				Rerank: input.Rerank, Hops: input.Hops,
			})
		default:
			return textResult(fmt.Sprintf("error: unknown mode %q", mode)), nil, nil
		}
		if err != nil {
			return textResult(fmt.Sprintf("error: %v", err)), nil, nil
		}

		out := make([]map[string]any, len(hits))
		for i, h := range hits {
			out[i] = searchHitToMap(h)
		}
		return textResult(jsonString(out)), nil, nil
	}
}

func linkHandler(e *engram.Engram) func(context.Context, *mcp.CallToolRequest, linkInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input linkInput) (*mcp.CallToolResult, any, error) {
		if err := e.Link(input.SourceID, input.TargetID, engram.LinkRelation(input.Relation)); err != nil {
			return textResult(fmt.Sprintf("error: %v", err)), nil, nil
		}
		return textResult(`{"status": "linked"}`), nil, nil
	}
}

func markPermanentHandler(e *engram.Engram) func(context.Context, *mcp.CallToolRequest, markPermanentInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input markPermanentInput) (*mcp.CallToolResult, any, error) {
		if err := e.MarkPermanent(input.MemoryID, !input.Remove); err != nil {
			return textResult(fmt.Sprintf("error: %v", err)), nil, nil
		}
		return textResult(`{"status": "ok"}`), nil, nil
	}
}

func sessionStartHandler(e *engram.Engram) func(context.Context, *mcp.CallToolRequest, sessionStartInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input sessionStartInput) (*mcp.CallToolResult, any, error) {
		id, err := e.StartSession(input.ID, input.Title)
		if err != nil {
			return textResult(fmt.Sprintf("error: %v", err)), nil, nil
		}
		return textResult(jsonString(map[string]any{"id": id})), nil, nil
	}
}

func sessionEndHandler(e *engram.Engram) func(context.Context, *mcp.CallToolRequest, sessionEndInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input sessionEndInput) (*mcp.CallToolResult, any, error) {
		if err := e.EndSession(ctx, input.ID, input.Summary); err != nil {
			return textResult(fmt.Sprintf("error: %v", err)), nil, nil
		}
		return textResult(`{"status": "ended"}`), nil, nil
	}
}

func sessionContextHandler(e *engram.Engram) func(context.Context, *mcp.CallToolRequest, sessionContextInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input sessionContextInput) (*mcp.CallToolResult, any, error) {
		sess, memories, err := e.GetSessionContext(input.ID)
		if err != nil {
			return textResult(fmt.Sprintf("error: %v", err)), nil, nil
		}
		if sess == nil {
			return textResult(`{"error": "session not found"}`), nil, nil
		}
		out := make([]map[string]any, len(memories))
		for i, m := range memories {
			out[i] = memoryToMap(m)
		}
		return textResult(jsonString(map[string]any{
			"id":       sess.ID,
			"title":    sess.Title,
			"summary":  sess.Summary,
			"memories": out,
		})), nil, nil
	}
}

func sleepHandler(e *engram.Engram) func(context.Context, *mcp.CallToolRequest, sleepInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input sleepInput) (*mcp.CallToolResult, any, error) {
		result, err := e.RunConsolidation(ctx, engram.ConsolidationOptions{DryRun: input.DryRun})
		if err != nil {
			return textResult(fmt.Sprintf("error: %v", err)), nil, nil
		}
		return textResult(jsonString(map[string]any{
			"decayed": result.Decayed,
			"pruned":  result.Pruned,
			"merged":  result.Merged,
			"boosted": result.Boosted,
			"dry_run": result.DryRun,
		})), nil, nil
	}
}

// --- Helpers ---

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func memoryToMap(m engram.Memory) map[string]any {
	return map[string]any{
		"id":         m.ID,
		"type":       m.Type,
		"title":      m.Title,
		"content":    m.Content,
		"importance": m.Importance,
		"strength":   m.Strength,
		"created_at": m.CreatedAt,
	}
}

func searchHitToMap(h engram.SearchHit) map[string]any {
	m := memoryToMap(h.Memory)
	m["score"] = h.Score
	return m
}

func jsonString(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "marshal: %v"}`, err)
	}
	return string(data)
}
