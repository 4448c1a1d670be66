package sync

import (
	"time"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/config"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/store"
)

// defaultLookback is the transaction window used when there is no watermark
// to catch up from.
const defaultLookback = 24 * time.Hour

// Window is the inclusive time range a cycle fetches transactions for.
type Window struct {
	From time.Time
	To   time.Time
}

// ComputeWindow derives the fetch range for a cycle starting at now.
//
// When catch-up is enabled and the watermark is stale by more than one
// polling interval, the window starts at the watermark so records that
// arrived while the process was down are recovered. The start is clamped to
// at most MaxCatchupDays in the past so a long outage cannot produce an
// unbounded request.
func ComputeWindow(now time.Time, state store.SyncState, cfg config.SyncConfig) Window {
	from := now.Add(-defaultLookback)

	if cfg.CatchupEnabled && state.LastSuccessfulSync != nil {
		if now.Sub(*state.LastSuccessfulSync) > cfg.PollingInterval {
			from = *state.LastSuccessfulSync
			if floor := now.AddDate(0, 0, -cfg.MaxCatchupDays); from.Before(floor) {
				from = floor
			}
		}
	}

	return Window{From: from, To: now}
}
