package quota

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/repository"
	"factorymanager.io/manager/internal/repository/memory"
	"factorymanager.io/manager/internal/repository/storetest"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newGate(t *testing.T) (*Gate, *memory.Store, *clock) {
	t.Helper()
	mem := memory.New()
	clk := &clock{now: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)}
	return NewGate(mem.Repositories().Quota, time.UTC, WithClock(clk.Now)), mem, clk
}

func TestEvaluate_MaxThreeThenNextDay(t *testing.T) {
	gate, mem, clk := newGate(t)
	ctx := context.Background()
	p := storetest.NewPrincipal(t, mem.Repositories(), "alice", 3, 3, gate.Today())

	for i := 0; i < 3; i++ {
		dec, err := gate.Evaluate(ctx, p.ID, true)
		require.NoError(t, err)
		assert.True(t, dec.Admitted, "request %d", i+1)
		assert.Equal(t, 2-i, dec.Remaining)
	}

	dec, err := gate.Evaluate(ctx, p.ID, true)
	require.NoError(t, err)
	assert.False(t, dec.Admitted)
	assert.Equal(t, ReasonExhausted, dec.Reason)
	assert.Equal(t, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC), dec.ResetAt)

	clk.Advance(24 * time.Hour)
	dec, err = gate.Evaluate(ctx, p.ID, true)
	require.NoError(t, err)
	assert.True(t, dec.Admitted)
	assert.Equal(t, 2, dec.Remaining)
	assert.Equal(t, 3, dec.MaxActions)
}

func TestEvaluate_StaleDateResetsBeforeExhaustionCheck(t *testing.T) {
	gate, mem, _ := newGate(t)
	p := storetest.NewPrincipal(t, mem.Repositories(), "bob", 5, 0, gate.Today().AddDays(-3))

	dec, err := gate.Evaluate(context.Background(), p.ID, true)
	require.NoError(t, err)
	assert.True(t, dec.Admitted)
	assert.Equal(t, 4, dec.Remaining)
}

func TestEvaluate_NonChargeable(t *testing.T) {
	gate, mem, _ := newGate(t)
	ctx := context.Background()
	p := storetest.NewPrincipal(t, mem.Repositories(), "carol", 2, 2, gate.Today())

	dec, err := gate.Evaluate(ctx, p.ID, false)
	require.NoError(t, err)
	assert.True(t, dec.Admitted)
	assert.Equal(t, 2, dec.Remaining)

	exhausted := storetest.NewPrincipal(t, mem.Repositories(), "dave", 2, 0, gate.Today())
	dec, err = gate.Evaluate(ctx, exhausted.ID, false)
	require.NoError(t, err)
	assert.False(t, dec.Admitted, "exhaustion applies to every request")
}

func TestEvaluate_ZeroMaximumAlwaysRejects(t *testing.T) {
	gate, mem, clk := newGate(t)
	p := storetest.NewPrincipal(t, mem.Repositories(), "erin", 0, 0, gate.Today().AddDays(-1))

	for i := 0; i < 2; i++ {
		dec, err := gate.Evaluate(context.Background(), p.ID, true)
		require.NoError(t, err)
		assert.False(t, dec.Admitted)
		clk.Advance(24 * time.Hour)
	}
}

func TestEvaluate_ConcurrentExactlyN(t *testing.T) {
	const n = 20
	gate, mem, _ := newGate(t)
	p := storetest.NewPrincipal(t, mem.Repositories(), "frank", n, n, gate.Today())

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 3*n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dec, err := gate.Evaluate(context.Background(), p.ID, true)
			if err == nil && dec.Admitted {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(n), admitted.Load())
	state, err := gate.Refresh(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, state.NumOfActions)
}

// racingStore reports a lost decrement after a successful reset check.
type racingStore struct {
	repository.QuotaStore
}

func (racingStore) Consume(_ context.Context, id string) (domain.QuotaState, bool, error) {
	return domain.QuotaState{PrincipalID: id}, false, nil
}

func TestEvaluate_LostRaceIsRejection(t *testing.T) {
	mem := memory.New()
	today := domain.DateOf(time.Now(), time.UTC)
	p := storetest.NewPrincipal(t, mem.Repositories(), "gina", 1, 1, today)
	gate := NewGate(racingStore{mem.Repositories().Quota}, nil)

	dec, err := gate.Evaluate(context.Background(), p.ID, true)
	require.NoError(t, err)
	assert.False(t, dec.Admitted)
	assert.Equal(t, ReasonLostRace, dec.Reason)
	assert.Equal(t, 0, dec.Remaining)
}

func TestEvaluate_StoreFailureChargesNothing(t *testing.T) {
	gate, mem, _ := newGate(t)
	ctx := context.Background()
	p := storetest.NewPrincipal(t, mem.Repositories(), "hank", 2, 2, gate.Today())

	mem.FailNext("quota.Consume", repository.ErrUnavailable)
	_, err := gate.Evaluate(ctx, p.ID, true)
	require.ErrorIs(t, err, repository.ErrUnavailable)

	state, err := gate.Refresh(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, state.NumOfActions)
}

func TestEvaluate_UnknownPrincipal(t *testing.T) {
	gate, _, _ := newGate(t)
	_, err := gate.Evaluate(context.Background(), "5f8d0d55b54764421b7156c9", true)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestToday_UsesGateTimezone(t *testing.T) {
	tokyo := time.FixedZone("UTC+9", 9*60*60)
	at := time.Date(2026, 10, 17, 20, 0, 0, 0, time.UTC)
	gate := NewGate(memory.New().Repositories().Quota, tokyo, WithClock(func() time.Time { return at }))

	assert.Equal(t, "2026-10-18", gate.Today().String())
}
