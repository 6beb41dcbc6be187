package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"factorymanager.io/manager/internal/pkg/logger"
)

// DefaultActionLogRetention applies when no retention is configured.
const DefaultActionLogRetention = 30 * 24 * time.Hour

// ActionLogRetentionArgs is a periodic maintenance job that drops old
// action log entries.
type ActionLogRetentionArgs struct{}

// Kind returns the job kind identifier for action log retention.
func (ActionLogRetentionArgs) Kind() string { return "action_log_retention" }

// InsertOpts ensures at most one retention job is enqueued within the same day.
func (ActionLogRetentionArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 1,
		UniqueOpts: river.UniqueOpts{
			ByPeriod: 24 * time.Hour,
			ByQueue:  true,
			ByArgs:   true,
		},
	}
}

// ActionLogPurger deletes action log entries older than a retention window.
type ActionLogPurger interface {
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

// ActionLogRetentionWorker purges expired action log entries.
type ActionLogRetentionWorker struct {
	river.WorkerDefaults[ActionLogRetentionArgs]
	purger    ActionLogPurger
	retention time.Duration
}

// NewActionLogRetentionWorker creates a retention worker. Non-positive
// retention falls back to DefaultActionLogRetention.
func NewActionLogRetentionWorker(purger ActionLogPurger, retention time.Duration) *ActionLogRetentionWorker {
	if retention <= 0 {
		retention = DefaultActionLogRetention
	}
	return &ActionLogRetentionWorker{purger: purger, retention: retention}
}

// Work removes expired entries.
func (w *ActionLogRetentionWorker) Work(ctx context.Context, _ *river.Job[ActionLogRetentionArgs]) error {
	if w == nil || w.purger == nil {
		return fmt.Errorf("action log retention worker is not initialized")
	}
	deleted, err := w.purger.Purge(ctx, w.retention)
	if err != nil {
		return fmt.Errorf("purge action log older than %s: %w", w.retention, err)
	}
	logger.Info("Action log retention completed",
		zap.Int64("deleted_rows", deleted),
		zap.Duration("retention", w.retention),
	)
	return nil
}
