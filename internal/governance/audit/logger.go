// Package audit implements the action log: one append-only record per
// quota evaluation.
//
// Writes are fire-and-forget. A failed or dropped write is logged and never
// reaches the request that produced it.
package audit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/pkg/logger"
	"factorymanager.io/manager/internal/pkg/worker"
	"factorymanager.io/manager/internal/repository"
)

// DefaultWriteTimeout bounds one detached write.
const DefaultWriteTimeout = 5 * time.Second

// Submitter runs detached tasks. *worker.Pools satisfies it.
type Submitter interface {
	SubmitDetached(name worker.PoolName, task worker.Task) error
}

// Logger writes action log entries.
type Logger struct {
	repo         repository.ActionLogRepository
	pool         Submitter
	now          func() time.Time
	writeTimeout time.Duration
}

// Option configures a Logger.
type Option func(*Logger)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// NewLogger creates an action Logger. A nil pool makes Append write inline.
func NewLogger(repo repository.ActionLogRepository, pool Submitter, opts ...Option) *Logger {
	l := &Logger{
		repo:         repo,
		pool:         pool,
		now:          time.Now,
		writeTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records entry without blocking the caller and without returning
// an error.
func (l *Logger) Append(entry domain.ActionLogEntry) {
	if err := l.stamp(&entry); err != nil {
		logger.Warn("Action log entry dropped", zap.String("principal_id", entry.PrincipalID), zap.Error(err))
		return
	}

	write := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, l.writeTimeout)
		defer cancel()
		_ = l.LogAction(ctx, &entry)
	}

	if l.pool == nil {
		write(context.Background())
		return
	}
	if err := l.pool.SubmitDetached(worker.PoolAudit, write); err != nil {
		logger.Warn("Action log entry dropped: audit pool unavailable",
			zap.String("principal_id", entry.PrincipalID),
			zap.String("resource", entry.Resource),
			zap.Error(err),
		)
	}
}

// LogAction writes entry synchronously.
func (l *Logger) LogAction(ctx context.Context, entry *domain.ActionLogEntry) error {
	if err := l.stamp(entry); err != nil {
		return err
	}
	if err := l.repo.Append(ctx, entry); err != nil {
		logger.Error("Failed to write action log",
			zap.String("principal_id", entry.PrincipalID),
			zap.String("resource", entry.Resource),
			zap.String("outcome", string(entry.Outcome)),
			zap.Error(err),
		)
		return fmt.Errorf("write action log: %w", err)
	}
	logger.Debug("Action recorded",
		zap.String("principal_id", entry.PrincipalID),
		zap.String("method", entry.Method),
		zap.String("resource", entry.Resource),
		zap.String("outcome", string(entry.Outcome)),
		zap.Int("num_of_actions", entry.NumOfActions),
	)
	return nil
}

// Recent returns a principal's newest entries first.
func (l *Logger) Recent(ctx context.Context, principalID string, limit int) ([]*domain.ActionLogEntry, error) {
	return l.repo.ListByPrincipal(ctx, principalID, limit)
}

// Purge deletes entries older than retention and returns how many went.
func (l *Logger) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	return l.repo.DeleteBefore(ctx, l.now().Add(-retention))
}

func (l *Logger) stamp(entry *domain.ActionLogEntry) error {
	if entry.ID == "" {
		id, err := domain.NewID()
		if err != nil {
			return err
		}
		entry.ID = id
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now().UTC()
	}
	return nil
}
