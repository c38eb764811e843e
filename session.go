package engram

import (
	"context"

	"github.com/google/uuid"
)

// StartSession creates or replaces a session row. If id is empty a new
// uuid is generated (§4.6).
func (e *Engram) StartSession(id, title string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if err := e.store.UpsertSession(id, title); err != nil {
		return "", err
	}
	return id, nil
}

// EndSession marks a session ended and, if a summary is given, embeds
// and stores it alongside the summary text (§4.6).
func (e *Engram) EndSession(ctx context.Context, id, summary string) error {
	var embedding []float32
	if summary != "" {
		vec, err := e.embed.EmbedDocument(ctx, summary)
		if err != nil {
			return err
		}
		embedding = vec
	}
	return e.store.EndSession(id, summary, embedding)
}

// GetSessionContext returns a session plus the distinct memories
// accessed under it, most-recently-accessed first (§4.6).
func (e *Engram) GetSessionContext(id string) (*Session, []Memory, error) {
	sess, err := e.store.GetSession(id)
	if err != nil || sess == nil {
		return sess, nil, err
	}
	mems, err := e.store.SessionMemories(id)
	if err != nil {
		return nil, nil, err
	}
	return sess, mems, nil
}

// ListSessions returns sessions ordered most-recent-first.
func (e *Engram) ListSessions(since, until *string, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	sinceT, err := parseSince(derefOrEmpty(since))
	if err != nil {
		return nil, err
	}
	untilT, err := parseSince(derefOrEmpty(until))
	if err != nil {
		return nil, err
	}
	return e.store.ListSessions(sinceT, untilT, limit)
}

// LogAccess records an access against a memory, optionally attributing
// it to a session and search query (§4.6).
func (e *Engram) LogAccess(memoryID int64, sessionID, query *string, score *float64) error {
	return e.store.TouchAccess(memoryID, sessionID, query, score)
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
