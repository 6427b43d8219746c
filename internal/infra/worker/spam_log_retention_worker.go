package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/realty-leads/internal/entity"
)

// SpamLogRetentionWorker periodically deletes spam verdicts older than the
// retention period.
type SpamLogRetentionWorker struct {
	repo         entity.SpamLogRepositoryInterface
	retention    time.Duration
	tickInterval time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

func NewSpamLogRetentionWorker(repo entity.SpamLogRepositoryInterface, retention time.Duration, logger *zap.Logger) *SpamLogRetentionWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SpamLogRetentionWorker{
		repo:         repo,
		retention:    retention,
		tickInterval: time.Hour,
		logger:       logger,
		now:          time.Now,
	}
}

func (w *SpamLogRetentionWorker) Start(ctx context.Context) {
	w.logger.Info("🕒 spam log retention worker started", zap.Duration("retention", w.retention))

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.purge(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("⚠️ spam log retention worker stopped")
			return
		case <-ticker.C:
			w.purge(ctx)
		}
	}
}

func (w *SpamLogRetentionWorker) purge(ctx context.Context) {
	cutoff := w.now().Add(-w.retention)
	n, err := w.repo.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		w.logger.Error("❌ failed to purge spam log", zap.Time("cutoff", cutoff), zap.Error(err))
		return
	}
	if n > 0 {
		w.logger.Info("✅ spam log purged", zap.Int64("rows", n), zap.Time("cutoff", cutoff))
	}
}
