package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/repository"
	"factorymanager.io/manager/internal/repository/memory"
	"factorymanager.io/manager/internal/usecase"
)

func newJob[T river.JobArgs](args T) *river.Job[T] {
	return &river.Job[T]{JobRow: &rivertype.JobRow{ID: 1, Attempt: 1}, Args: args}
}

func seedPair(t *testing.T, store repository.Store) (*domain.Employee, *domain.Shift) {
	t.Helper()
	ctx := context.Background()
	empID, err := domain.NewID()
	require.NoError(t, err)
	shiftID, err := domain.NewID()
	require.NoError(t, err)
	emp := &domain.Employee{ID: empID, FirstName: "Ada", LastName: "Byron", StartWorkYear: 2010, ShiftIDs: []string{}}
	sh := &domain.Shift{ID: shiftID, Date: domain.Date{Year: 2026, Month: 10, Day: 20}, StartingHour: 8, EndingHour: 16, EmployeeIDs: []string{}}
	require.NoError(t, store.Employees.Create(ctx, emp))
	require.NoError(t, store.Shifts.Create(ctx, sh))
	return emp, sh
}

func TestJobKinds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "mirror_repair", MirrorRepairArgs{}.Kind())
	assert.Equal(t, "reference_sweep", ReferenceSweepArgs{}.Kind())
	assert.Equal(t, "action_log_retention", ActionLogRetentionArgs{}.Kind())

	opts := MirrorRepairArgs{}.InsertOpts()
	assert.Equal(t, river.QueueDefault, opts.Queue)
	assert.True(t, opts.UniqueOpts.ByArgs)

	retention := ActionLogRetentionArgs{}.InsertOpts()
	assert.Equal(t, 1, retention.MaxAttempts)
	assert.Equal(t, 24*time.Hour, retention.UniqueOpts.ByPeriod)
}

func TestMirrorRepairWorker_ConvergesDriftedPair(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.New().Repositories()
	emp, sh := seedPair(t, store)

	// Employee side written, shift side lost.
	_, err := store.Employees.AddShift(ctx, emp.ID, sh.ID)
	require.NoError(t, err)

	w := NewMirrorRepairWorker(usecase.NewCoordinator(store))
	require.NoError(t, w.Work(ctx, newJob(MirrorRepairArgs{EmployeeID: emp.ID, ShiftID: sh.ID, Op: usecase.MirrorAssign})))

	gotShift, err := store.Shifts.Get(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{emp.ID}, gotShift.EmployeeIDs)

	// Replaying is a no-op.
	require.NoError(t, w.Work(ctx, newJob(MirrorRepairArgs{EmployeeID: emp.ID, ShiftID: sh.ID, Op: usecase.MirrorAssign})))
	gotEmp, err := store.Employees.Get(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{sh.ID}, gotEmp.ShiftIDs)
}

func TestMirrorRepairWorker_Unassign(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.New().Repositories()
	emp, sh := seedPair(t, store)

	// Employee side removed, shift side still lists the employee.
	_, err := store.Shifts.AddEmployee(ctx, sh.ID, emp.ID)
	require.NoError(t, err)

	w := NewMirrorRepairWorker(usecase.NewCoordinator(store))
	require.NoError(t, w.Work(ctx, newJob(MirrorRepairArgs{EmployeeID: emp.ID, ShiftID: sh.ID, Op: usecase.MirrorUnassign})))

	gotShift, err := store.Shifts.Get(ctx, sh.ID)
	require.NoError(t, err)
	assert.Empty(t, gotShift.EmployeeIDs)
}

func TestMirrorRepairWorker_CancelsWhenEntityGone(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.New().Repositories()
	emp, sh := seedPair(t, store)
	require.NoError(t, store.Employees.Delete(ctx, emp.ID))

	w := NewMirrorRepairWorker(usecase.NewCoordinator(store))
	err := w.Work(ctx, newJob(MirrorRepairArgs{EmployeeID: emp.ID, ShiftID: sh.ID, Op: usecase.MirrorAssign}))
	var cancelErr *rivertype.JobCancelError
	assert.True(t, errors.As(err, &cancelErr), "want JobCancel, got %v", err)

	err = w.Work(ctx, newJob(MirrorRepairArgs{EmployeeID: emp.ID, ShiftID: sh.ID, Op: "swap"}))
	assert.True(t, errors.As(err, &cancelErr), "want JobCancel for unknown op, got %v", err)
}

func TestMirrorRepairWorker_RetriesStoreFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := memory.New()
	store := mem.Repositories()
	emp, sh := seedPair(t, store)
	_, err := store.Employees.AddShift(ctx, emp.ID, sh.ID)
	require.NoError(t, err)
	mem.FailNext("shifts.AddEmployee", repository.ErrUnavailable)

	w := NewMirrorRepairWorker(usecase.NewCoordinator(store))
	err = w.Work(ctx, newJob(MirrorRepairArgs{EmployeeID: emp.ID, ShiftID: sh.ID, Op: usecase.MirrorAssign}))
	require.Error(t, err)
	var cancelErr *rivertype.JobCancelError
	assert.False(t, errors.As(err, &cancelErr))

	require.NoError(t, w.Work(ctx, newJob(MirrorRepairArgs{EmployeeID: emp.ID, ShiftID: sh.ID, Op: usecase.MirrorAssign})))
}

func isCancel(err error) bool {
	var cancelErr *rivertype.JobCancelError
	return errors.As(err, &cancelErr)
}

func TestMirrorRepairWorker_SkipsAssignUndoneByLaterUnassign(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := memory.New()
	store := mem.Repositories()
	emp, sh := seedPair(t, store)

	ins := &fakeInserter{}
	coord := usecase.NewCoordinator(store)
	coord.SetRepairScheduler(NewRiverRepairScheduler(ins))

	mem.FailNext("shifts.AddEmployee", repository.ErrUnavailable)
	_, err := coord.AssignEmployeeToShift(ctx, emp.ID, sh.ID)
	require.Error(t, err)
	require.Len(t, ins.args, 1)
	queued := ins.args[0].(MirrorRepairArgs)
	assert.Equal(t, usecase.MirrorAssign, queued.Op)

	_, err = coord.UnassignEmployeeFromShift(ctx, emp.ID, sh.ID)
	require.NoError(t, err)

	err = NewMirrorRepairWorker(coord).Work(ctx, newJob(queued))
	assert.True(t, isCancel(err), "want JobCancel, got %v", err)

	gotEmp, err := store.Employees.Get(ctx, emp.ID)
	require.NoError(t, err)
	assert.Empty(t, gotEmp.ShiftIDs)
	gotShift, err := store.Shifts.Get(ctx, sh.ID)
	require.NoError(t, err)
	assert.Empty(t, gotShift.EmployeeIDs)
}

func TestMirrorRepairWorker_SkipsUnassignUndoneByLaterAssign(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := memory.New()
	store := mem.Repositories()
	emp, sh := seedPair(t, store)

	ins := &fakeInserter{}
	coord := usecase.NewCoordinator(store)
	coord.SetRepairScheduler(NewRiverRepairScheduler(ins))
	_, err := coord.AssignEmployeeToShift(ctx, emp.ID, sh.ID)
	require.NoError(t, err)

	mem.FailNext("shifts.RemoveEmployee", repository.ErrUnavailable)
	_, err = coord.UnassignEmployeeFromShift(ctx, emp.ID, sh.ID)
	require.Error(t, err)
	require.Len(t, ins.args, 1)
	queued := ins.args[0].(MirrorRepairArgs)
	assert.Equal(t, usecase.MirrorUnassign, queued.Op)

	_, err = coord.AssignEmployeeToShift(ctx, emp.ID, sh.ID)
	require.NoError(t, err)

	err = NewMirrorRepairWorker(coord).Work(ctx, newJob(queued))
	assert.True(t, isCancel(err), "want JobCancel, got %v", err)

	gotEmp, err := store.Employees.Get(ctx, emp.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{sh.ID}, gotEmp.ShiftIDs)
	gotShift, err := store.Shifts.Get(ctx, sh.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{emp.ID}, gotShift.EmployeeIDs)
}

func TestMirrorRepairWorker_ConvergedUnassignIsNoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := memory.New().Repositories()
	emp, sh := seedPair(t, store)

	w := NewMirrorRepairWorker(usecase.NewCoordinator(store))
	require.NoError(t, w.Work(ctx, newJob(MirrorRepairArgs{EmployeeID: emp.ID, ShiftID: sh.ID, Op: usecase.MirrorUnassign})))
}

func TestWorkers_Uninitialized(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var repair *MirrorRepairWorker
	err := repair.Work(ctx, newJob(MirrorRepairArgs{}))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not initialized"))

	err = (&ReferenceSweepWorker{}).Work(ctx, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not initialized"))

	err = (&ActionLogRetentionWorker{}).Work(ctx, nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not initialized"))
}

type fakeInserter struct {
	args []river.JobArgs
	err  error
}

func (f *fakeInserter) Insert(_ context.Context, args river.JobArgs, _ *river.InsertOpts) (*rivertype.JobInsertResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.args = append(f.args, args)
	return &rivertype.JobInsertResult{Job: &rivertype.JobRow{ID: int64(len(f.args))}}, nil
}

func TestRiverRepairScheduler(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	ins := &fakeInserter{}
	s := NewRiverRepairScheduler(ins)
	require.NoError(t, s.ScheduleMirrorRepair(ctx, "e1", "s1", usecase.MirrorUnassign))
	require.Len(t, ins.args, 1)
	assert.Equal(t, MirrorRepairArgs{EmployeeID: "e1", ShiftID: "s1", Op: usecase.MirrorUnassign}, ins.args[0])

	failing := NewRiverRepairScheduler(&fakeInserter{err: errors.New("queue down")})
	assert.Error(t, failing.ScheduleMirrorRepair(ctx, "e1", "s1", usecase.MirrorAssign))
}

func TestReferenceSweepWorker(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mem := memory.New()
	store := mem.Repositories()
	emp, sh := seedPair(t, store)
	_, err := store.Employees.AddShift(ctx, emp.ID, sh.ID)
	require.NoError(t, err)
	require.NoError(t, store.Shifts.Delete(ctx, sh.ID))

	w := NewReferenceSweepWorker(store.Sweeper)
	require.NoError(t, w.Work(ctx, newJob(ReferenceSweepArgs{})))

	got, err := store.Employees.Get(ctx, emp.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ShiftIDs)

	mem.FailNext("sweeper.SweepDanglingReferences", repository.ErrUnavailable)
	assert.Error(t, w.Work(ctx, newJob(ReferenceSweepArgs{})))
}

type fakePurger struct {
	retention time.Duration
	deleted   int64
}

func (f *fakePurger) Purge(_ context.Context, retention time.Duration) (int64, error) {
	f.retention = retention
	return f.deleted, nil
}

func TestActionLogRetentionWorker(t *testing.T) {
	t.Parallel()

	t.Run("defaults when non-positive", func(t *testing.T) {
		w := NewActionLogRetentionWorker(&fakePurger{}, 0)
		assert.Equal(t, DefaultActionLogRetention, w.retention)
	})

	t.Run("purges with configured retention", func(t *testing.T) {
		p := &fakePurger{deleted: 4}
		w := NewActionLogRetentionWorker(p, 48*time.Hour)
		require.NoError(t, w.Work(context.Background(), newJob(ActionLogRetentionArgs{})))
		assert.Equal(t, 48*time.Hour, p.retention)
	})
}

func TestPeriodicJobs(t *testing.T) {
	t.Parallel()
	assert.Len(t, PeriodicJobs(time.Hour), 2)
	assert.Len(t, PeriodicJobs(0), 1)
}
