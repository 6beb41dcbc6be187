package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/pkg/worker"
	"factorymanager.io/manager/internal/repository/memory"
)

const principalID = "5f8d0d55b54764421b7156c9"

func entry() domain.ActionLogEntry {
	return domain.ActionLogEntry{
		PrincipalID: principalID,
		Resource:    "/api/v1/shifts",
		Method:      "GET",
		Operation:   domain.OpReadAll,
		Chargeable:  true,
		Outcome:     domain.OutcomeAdmitted,
		MaxActions:  10,
	}
}

func TestAppend_InlineWithoutPool(t *testing.T) {
	store := memory.New()
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	l := NewLogger(store.Repositories().ActionLogs, nil, WithClock(func() time.Time { return now }))

	l.Append(entry())

	got, err := l.Recent(context.Background(), principalID, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, domain.IsValidID(got[0].ID))
	assert.Equal(t, now, got[0].CreatedAt)
}

func TestAppend_FailureIsSwallowed(t *testing.T) {
	store := memory.New()
	store.FailNext("actionLogs.Append", errors.New("disk full"))
	l := NewLogger(store.Repositories().ActionLogs, nil)

	assert.NotPanics(t, func() { l.Append(entry()) })

	got, err := l.Recent(context.Background(), principalID, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAppend_ThroughAuditPool(t *testing.T) {
	store := memory.New()
	pools, err := worker.NewPools(context.Background(), worker.PoolConfig{GeneralPoolSize: 1, AuditPoolSize: 2})
	require.NoError(t, err)
	l := NewLogger(store.Repositories().ActionLogs, pools)

	l.Append(entry())
	pools.Shutdown() // waits for the detached write

	got, err := l.Recent(context.Background(), principalID, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

type rejectingPool struct{}

func (rejectingPool) SubmitDetached(worker.PoolName, worker.Task) error {
	return worker.ErrPoolClosed
}

func TestAppend_PoolRejectionDropsEntry(t *testing.T) {
	store := memory.New()
	l := NewLogger(store.Repositories().ActionLogs, rejectingPool{})

	l.Append(entry())

	got, err := l.Recent(context.Background(), principalID, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPurge(t *testing.T) {
	store := memory.New()
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	l := NewLogger(store.Repositories().ActionLogs, nil, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	old := entry()
	old.CreatedAt = now.Add(-48 * time.Hour)
	require.NoError(t, l.LogAction(ctx, &old))
	fresh := entry()
	require.NoError(t, l.LogAction(ctx, &fresh))

	n, err := l.Purge(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
