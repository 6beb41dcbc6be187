// Package storetest is a behavioral test suite every repository.Store
// implementation must pass.
package storetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/repository"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) repository.Store

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Principals", func(t *testing.T) { testPrincipals(t, newStore(t)) })
	t.Run("QuotaResetAndConsume", func(t *testing.T) { testQuotaResetAndConsume(t, newStore(t)) })
	t.Run("QuotaConcurrentConsume", func(t *testing.T) { testQuotaConcurrentConsume(t, newStore(t)) })
	t.Run("EmployeeShiftSets", func(t *testing.T) { testEmployeeShiftSets(t, newStore(t)) })
	t.Run("ConcurrentAddIsIdempotent", func(t *testing.T) { testConcurrentAdd(t, newStore(t)) })
	t.Run("BulkClears", func(t *testing.T) { testBulkClears(t, newStore(t)) })
	t.Run("ShiftSchedule", func(t *testing.T) { testShiftSchedule(t, newStore(t)) })
	t.Run("ActionLogs", func(t *testing.T) { testActionLogs(t, newStore(t)) })
	t.Run("Sweep", func(t *testing.T) { testSweep(t, newStore(t)) })
}

func newID(t *testing.T) string {
	t.Helper()
	id, err := domain.NewID()
	require.NoError(t, err)
	return id
}

// NewPrincipal inserts a principal with the given quota.
func NewPrincipal(t *testing.T, s repository.Store, username string, max, num int, last domain.Date) *domain.Principal {
	t.Helper()
	p := &domain.Principal{
		ID:               newID(t),
		FullName:         "Test User",
		Username:         username,
		PasswordHash:     "hash",
		MaxActionsPerDay: max,
		NumOfActions:     num,
		LastActionDate:   last,
	}
	require.NoError(t, s.Principals.Create(context.Background(), p))
	return p
}

func newEmployee(t *testing.T, s repository.Store) *domain.Employee {
	t.Helper()
	e := &domain.Employee{ID: newID(t), FirstName: "Dana", LastName: "Levi", StartWorkYear: 2015}
	require.NoError(t, s.Employees.Create(context.Background(), e))
	return e
}

func newShift(t *testing.T, s repository.Store) *domain.Shift {
	t.Helper()
	sh := &domain.Shift{ID: newID(t), Date: domain.Date{Year: 2026, Month: time.October, Day: 17}, StartingHour: 8, EndingHour: 16}
	require.NoError(t, s.Shifts.Create(context.Background(), sh))
	return sh
}

func testPrincipals(t *testing.T, s repository.Store) {
	ctx := context.Background()
	today := domain.Date{Year: 2026, Month: time.October, Day: 17}
	p := NewPrincipal(t, s, "dana_l", 10, 10, today)

	got, err := s.Principals.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "dana_l", got.Username)
	assert.Equal(t, today, got.LastActionDate)

	got, err = s.Principals.GetByUsername(ctx, "dana_l")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	dup := *p
	dup.ID = newID(t)
	err = s.Principals.Create(ctx, &dup)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	_, err = s.Principals.GetByID(ctx, newID(t))
	assert.ErrorIs(t, err, repository.ErrNotFound)

	NewPrincipal(t, s, "avi_k", 5, 5, today)
	all, err := s.Principals.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "avi_k", all[0].Username)
}

func testQuotaResetAndConsume(t *testing.T, s repository.Store) {
	ctx := context.Background()
	yesterday := domain.Date{Year: 2026, Month: time.October, Day: 16}
	today := yesterday.AddDays(1)
	p := NewPrincipal(t, s, "quota_user", 3, 0, yesterday)

	state, err := s.Quota.ResetIfStale(ctx, p.ID, today)
	require.NoError(t, err)
	assert.Equal(t, 3, state.NumOfActions)
	assert.Equal(t, today, state.LastActionDate)

	state, ok, err := s.Quota.Consume(ctx, p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, state.NumOfActions)

	// Same day: no reset.
	state, err = s.Quota.ResetIfStale(ctx, p.ID, today)
	require.NoError(t, err)
	assert.Equal(t, 2, state.NumOfActions)

	for i := 0; i < 2; i++ {
		_, ok, err = s.Quota.Consume(ctx, p.ID)
		require.NoError(t, err)
		require.True(t, ok)
	}
	state, ok, err = s.Quota.Consume(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, state.NumOfActions)

	// A caller whose clock is still on yesterday does not refill.
	state, err = s.Quota.ResetIfStale(ctx, p.ID, yesterday)
	require.NoError(t, err)
	assert.Equal(t, 0, state.NumOfActions)
	assert.Equal(t, today, state.LastActionDate)

	_, err = s.Quota.ResetIfStale(ctx, newID(t), today)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testQuotaConcurrentConsume(t *testing.T, s repository.Store) {
	ctx := context.Background()
	today := domain.Date{Year: 2026, Month: time.October, Day: 17}
	const quota = 20
	p := NewPrincipal(t, s, "busy_user", quota, quota, today)

	var admitted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < quota*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := s.Quota.Consume(ctx, p.ID)
			if err == nil && ok {
				admitted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(quota), admitted.Load())
	got, err := s.Principals.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.NumOfActions)
}

func testEmployeeShiftSets(t *testing.T, s repository.Store) {
	ctx := context.Background()
	e := newEmployee(t, s)
	sh := newShift(t, s)

	got, err := s.Employees.AddShift(ctx, e.ID, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{sh.ID}, got.ShiftIDs)

	got, err = s.Employees.AddShift(ctx, e.ID, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{sh.ID}, got.ShiftIDs)

	shGot, err := s.Shifts.AddEmployee(ctx, sh.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{e.ID}, shGot.EmployeeIDs)

	got, err = s.Employees.RemoveShift(ctx, e.ID, sh.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ShiftIDs)

	got, err = s.Employees.RemoveShift(ctx, e.ID, sh.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ShiftIDs)

	_, err = s.Employees.AddShift(ctx, newID(t), sh.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	n, err := s.Shifts.PullEmployee(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	shGot, err = s.Shifts.Get(ctx, sh.ID)
	require.NoError(t, err)
	assert.Empty(t, shGot.EmployeeIDs)
}

func testConcurrentAdd(t *testing.T, s repository.Store) {
	ctx := context.Background()
	e := newEmployee(t, s)
	sh := newShift(t, s)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Employees.AddShift(ctx, e.ID, sh.ID)
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Shifts.AddEmployee(ctx, sh.ID, e.ID)
		}()
	}
	wg.Wait()

	gotE, err := s.Employees.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{sh.ID}, gotE.ShiftIDs)
	gotS, err := s.Shifts.Get(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{e.ID}, gotS.EmployeeIDs)
}

func testBulkClears(t *testing.T, s repository.Store) {
	ctx := context.Background()
	e := newEmployee(t, s)
	other := newEmployee(t, s)

	d := &domain.Department{ID: newID(t), Name: "Engineering", ManagerID: &e.ID}
	require.NoError(t, s.Departments.Create(ctx, d))
	d2 := &domain.Department{ID: newID(t), Name: "Sales", ManagerID: &other.ID}
	require.NoError(t, s.Departments.Create(ctx, d2))

	_, err := s.Employees.SetDepartment(ctx, e.ID, &d.ID)
	require.NoError(t, err)
	_, err = s.Employees.SetDepartment(ctx, other.ID, &d.ID)
	require.NoError(t, err)

	byDept, err := s.Employees.List(ctx, repository.EmployeeFilter{DepartmentID: &d.ID})
	require.NoError(t, err)
	assert.Len(t, byDept, 2)

	n, err := s.Departments.ClearManager(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	gotD, err := s.Departments.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Nil(t, gotD.ManagerID)
	gotD2, err := s.Departments.Get(ctx, d2.ID)
	require.NoError(t, err)
	require.NotNil(t, gotD2.ManagerID)

	n, err = s.Employees.ClearDepartment(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	byDept, err = s.Employees.List(ctx, repository.EmployeeFilter{DepartmentID: &d.ID})
	require.NoError(t, err)
	assert.Empty(t, byDept)

	named, err := s.Departments.List(ctx, repository.DepartmentFilter{Name: "Sales"})
	require.NoError(t, err)
	require.Len(t, named, 1)
	assert.Equal(t, d2.ID, named[0].ID)

	require.NoError(t, s.Departments.Delete(ctx, d.ID))
	assert.ErrorIs(t, s.Departments.Delete(ctx, d.ID), repository.ErrNotFound)
}

func testShiftSchedule(t *testing.T, s repository.Store) {
	ctx := context.Background()
	sh := newShift(t, s)
	next := sh.Date.AddDays(1)

	got, err := s.Shifts.UpdateSchedule(ctx, sh.ID, next, 6, 14)
	require.NoError(t, err)
	assert.Equal(t, next, got.Date)
	assert.Equal(t, 6, got.StartingHour)

	onDay, err := s.Shifts.List(ctx, repository.ShiftFilter{Date: &next})
	require.NoError(t, err)
	require.Len(t, onDay, 1)

	require.NoError(t, s.Shifts.Delete(ctx, sh.ID))
	_, err = s.Shifts.Get(ctx, sh.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = s.Shifts.AddEmployee(ctx, sh.ID, newID(t))
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func testActionLogs(t *testing.T, s repository.Store) {
	ctx := context.Background()
	principalID := newID(t)
	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.ActionLogs.Append(ctx, &domain.ActionLogEntry{
			ID:           newID(t),
			PrincipalID:  principalID,
			Resource:     "/api/v1/employees",
			Method:       "GET",
			Operation:    domain.OpReadAll,
			Chargeable:   true,
			Outcome:      domain.OutcomeAdmitted,
			MaxActions:   10,
			NumOfActions: 9 - i,
			ActionDate:   domain.DateOf(base, time.UTC),
			CreatedAt:    base.Add(time.Duration(i) * time.Hour),
		}))
	}

	entries, err := s.ActionLogs.ListByPrincipal(ctx, principalID, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 7, entries[0].NumOfActions)

	n, err := s.ActionLogs.DeleteBefore(ctx, base.Add(90*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	entries, err = s.ActionLogs.ListByPrincipal(ctx, principalID, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func testSweep(t *testing.T, s repository.Store) {
	ctx := context.Background()
	e := newEmployee(t, s)
	sh := newShift(t, s)
	ghost := newID(t)

	_, err := s.Employees.AddShift(ctx, e.ID, sh.ID)
	require.NoError(t, err)
	_, err = s.Employees.AddShift(ctx, e.ID, ghost)
	require.NoError(t, err)
	_, err = s.Shifts.AddEmployee(ctx, sh.ID, e.ID)
	require.NoError(t, err)
	_, err = s.Shifts.AddEmployee(ctx, sh.ID, ghost)
	require.NoError(t, err)
	_, err = s.Employees.SetDepartment(ctx, e.ID, &ghost)
	require.NoError(t, err)
	require.NoError(t, s.Departments.Create(ctx, &domain.Department{ID: newID(t), Name: "QA", ManagerID: &ghost}))

	res, err := s.Sweeper.SweepDanglingReferences(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.EmployeeShiftRefs)
	assert.Equal(t, int64(1), res.ShiftEmployeeRefs)
	assert.Equal(t, int64(1), res.DepartmentManagerRefs)
	assert.Equal(t, int64(1), res.EmployeeDepartmentRef)
	assert.Equal(t, int64(4), res.Total())

	gotE, err := s.Employees.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{sh.ID}, gotE.ShiftIDs)
	assert.Nil(t, gotE.DepartmentID)

	res, err = s.Sweeper.SweepDanglingReferences(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Total())
}
