package monitoring

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/kauecodify/PIX-ORCHESTRED-DATABASE/internal/store"
)

// lowDiskThreshold marks the backup volume as degraded when crossed.
const lowDiskThreshold = 0.95

// Health is the point-in-time health report served by the operator API.
type Health struct {
	Status          string     `json:"status"`
	StoreReachable  bool       `json:"storeReachable"`
	BackupDiskUsage float64    `json:"backupDiskUsage"`
	BackupDiskFree  uint64     `json:"backupDiskFree"`
	LastSync        *time.Time `json:"lastSync"`
	CheckedAt       time.Time  `json:"checkedAt"`
}

// HealthChecker probes the store and the backup volume.
type HealthChecker struct {
	store     *store.Store
	backupDir string
}

// NewHealthChecker creates a checker for the given store and backup location.
func NewHealthChecker(st *store.Store, backupDir string) *HealthChecker {
	return &HealthChecker{store: st, backupDir: backupDir}
}

// Check runs all probes. It always returns a report; Status is "ok",
// "degraded" or "unavailable".
func (h *HealthChecker) Check(ctx context.Context) Health {
	report := Health{Status: "ok", CheckedAt: time.Now().UTC()}

	state, err := h.store.ReadSyncState(ctx)
	if err != nil {
		report.Status = "unavailable"
	} else {
		report.StoreReachable = true
		report.LastSync = state.LastSuccessfulSync
	}

	if usage, err := disk.UsageWithContext(ctx, h.backupDir); err == nil {
		report.BackupDiskUsage = usage.UsedPercent / 100
		report.BackupDiskFree = usage.Free
		if report.BackupDiskUsage > lowDiskThreshold && report.Status == "ok" {
			report.Status = "degraded"
		}
	}

	return report
}
