package core

// scheduler.go runs background maintenance.
//
// The orphan sweeper removes blobs that have no metadata row. Uploads roll
// back their own blobs on failure, but a crash between the blob write and
// the metadata insert can still leave one behind. Blobs younger than the
// grace period are skipped so in-flight uploads and staged imports are
// never touched.

import (
	"context"
	"log/slog"
	"time"
)

// SweepConfig controls the orphan sweeper. Zero fields take the defaults.
type SweepConfig struct {
	Interval    time.Duration // How often to run (default: 1h)
	GracePeriod time.Duration // Minimum blob age before it may be swept (default: 1h)
}

const (
	defaultSweepInterval = time.Hour
	defaultSweepGrace    = time.Hour
)

// StartOrphanSweeper runs a sweep immediately and then every Interval until
// ctx is cancelled.
func (s *Service) StartOrphanSweeper(ctx context.Context, cfg SweepConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultSweepInterval
	}
	if cfg.GracePeriod <= 0 {
		cfg.GracePeriod = defaultSweepGrace
	}

	slog.Info("orphan sweeper started",
		"interval", cfg.Interval.String(),
		"grace_period", cfg.GracePeriod.String(),
	)

	s.runSweep(ctx, cfg.GracePeriod)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("orphan sweeper stopped")
			return
		case <-ticker.C:
			s.runSweep(ctx, cfg.GracePeriod)
		}
	}
}

func (s *Service) runSweep(ctx context.Context, grace time.Duration) {
	start := time.Now()
	removed, err := s.SweepOrphans(ctx, grace)
	if err != nil {
		slog.Error("orphan sweep failed", "error", err, "removed", removed)
		return
	}
	slog.Info("orphan sweep completed",
		"removed", removed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// SweepOrphans deletes blobs older than grace that have no metadata and
// returns how many were removed. Blobs whose names were not produced by the
// namer are left alone.
func (s *Service) SweepOrphans(ctx context.Context, grace time.Duration) (int, error) {
	blobs, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().Add(-grace)
	removed := 0
	for _, b := range blobs {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if !ValidStorageID(b.ID) || b.ModTime.After(cutoff) {
			continue
		}

		known, err := s.files.Exists(ctx, b.ID)
		if err != nil {
			return removed, err
		}
		if known {
			continue
		}

		if err := s.store.Delete(ctx, b.ID); err != nil {
			slog.Warn("orphan delete failed", "storage_id", b.ID, "error", err)
			continue
		}
		slog.Debug("orphan removed", "storage_id", b.ID, "size", b.Size)
		removed++
	}
	return removed, nil
}
