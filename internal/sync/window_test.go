package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/config"
	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/store"
)

func syncCfg() config.SyncConfig {
	return config.SyncConfig{
		PollingInterval: time.Minute,
		CatchupEnabled:  true,
		MaxCatchupDays:  7,
	}
}

func TestComputeWindowFirstRun(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	win := ComputeWindow(now, store.SyncState{}, syncCfg())

	assert.True(t, win.From.Equal(now.Add(-24*time.Hour)))
	assert.True(t, win.To.Equal(now))
}

func TestComputeWindowFreshWatermark(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-30 * time.Second)

	win := ComputeWindow(now, store.SyncState{LastSuccessfulSync: &last}, syncCfg())

	// Within one polling interval there is nothing to catch up on.
	assert.True(t, win.From.Equal(now.Add(-24*time.Hour)))
}

func TestComputeWindowCatchup(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-48 * time.Hour)

	win := ComputeWindow(now, store.SyncState{LastSuccessfulSync: &last}, syncCfg())

	assert.True(t, win.From.Equal(last))
	assert.True(t, win.To.Equal(now))
}

func TestComputeWindowCatchupClamped(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	last := now.AddDate(0, 0, -30)

	win := ComputeWindow(now, store.SyncState{LastSuccessfulSync: &last}, syncCfg())

	// A 30 day gap is clamped to the 7 day ceiling.
	assert.True(t, win.From.Equal(now.AddDate(0, 0, -7)))
}

func TestComputeWindowCatchupDisabled(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-48 * time.Hour)

	cfg := syncCfg()
	cfg.CatchupEnabled = false
	win := ComputeWindow(now, store.SyncState{LastSuccessfulSync: &last}, cfg)

	assert.True(t, win.From.Equal(now.Add(-24*time.Hour)))
}
