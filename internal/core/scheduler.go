package core

// Audit log archiving runs on a ticker: entries older than the hot window
// move from audit_log to audit_log_archive, then archived entries past the
// retention period are purged. Failures are logged and retried on the next
// tick.

import (
	"context"
	"log/slog"
	"time"

	"github.com/JonMunkholm/quizadmin/internal/config"
)

// ArchiveScheduler moves and purges audit entries.
type ArchiveScheduler struct {
	store AuditStore
	cfg   config.ArchiveConfig
	now   func() time.Time
}

// NewArchiveScheduler creates a scheduler for s using cfg.
func NewArchiveScheduler(s AuditStore, cfg config.ArchiveConfig) *ArchiveScheduler {
	return &ArchiveScheduler{store: s, cfg: cfg, now: time.Now}
}

// ArchiveRun is the outcome of one archive cycle.
type ArchiveRun struct {
	Archived int64
	Purged   int64
}

// Start runs one cycle immediately, then one every CheckInterval, until ctx
// is cancelled.
func (a *ArchiveScheduler) Start(ctx context.Context) {
	slog.Info("archive scheduler started",
		"hot_retention_days", a.cfg.HotRetentionDays,
		"archive_retention_years", a.cfg.ArchiveRetentionYears,
		"batch_size", a.cfg.BatchSize,
	)

	a.RunOnce(ctx)

	ticker := time.NewTicker(a.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("archive scheduler stopped")
			return
		case <-ticker.C:
			a.RunOnce(ctx)
		}
	}
}

// RunOnce performs one archive and purge cycle. A failed step is logged
// and its count left at zero.
func (a *ArchiveScheduler) RunOnce(ctx context.Context) ArchiveRun {
	start := a.now()
	var run ArchiveRun

	hotCutoff := start.AddDate(0, 0, -a.cfg.HotRetentionDays)
	archived, err := a.store.ArchiveAudit(ctx, hotCutoff, a.cfg.BatchSize)
	if err != nil {
		slog.Error("audit archive failed", "error", err)
	} else {
		run.Archived = archived
	}

	purgeCutoff := start.AddDate(-a.cfg.ArchiveRetentionYears, 0, 0)
	purged, err := a.store.PurgeAuditArchive(ctx, purgeCutoff)
	if err != nil {
		slog.Error("audit purge failed", "error", err)
	} else {
		run.Purged = purged
	}

	slog.Info("archive job completed",
		"entries_archived", run.Archived,
		"entries_purged", run.Purged,
		"duration_ms", a.now().Sub(start).Milliseconds(),
	)
	return run
}
