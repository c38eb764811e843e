package engram

import (
	"context"
	"time"
)

// RunConsolidationLoop runs RunConsolidation on a ticker until ctx is
// cancelled. Unlike the teacher's decay worker, this is never started
// from Init: the caller owns the ticker's goroutine and thread, per
// the cooperative-task model (spec.md §9). Callers opt in by calling
// this explicitly; neither cmd/engram nor cmd/engram-mcp calls it.
func (e *Engram) RunConsolidationLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := e.RunConsolidation(ctx, e.config.Consolidation); err != nil {
				log().Error().Err(err).Msg("consolidation sweep failed")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
