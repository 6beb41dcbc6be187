package jobs

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"factorymanager.io/manager/internal/pkg/logger"
	"factorymanager.io/manager/internal/repository"
)

// ReferenceSweepArgs is a periodic job that removes ids pointing at
// deleted records, left behind by cascades that were never retried.
type ReferenceSweepArgs struct{}

// Kind returns the job kind identifier for the reference sweep.
func (ReferenceSweepArgs) Kind() string { return "reference_sweep" }

// InsertOpts keeps a single sweep queued at a time.
func (ReferenceSweepArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 3,
		UniqueOpts: river.UniqueOpts{
			ByQueue: true,
			ByArgs:  true,
		},
	}
}

// ReferenceSweepWorker runs the store's dangling reference sweep.
type ReferenceSweepWorker struct {
	river.WorkerDefaults[ReferenceSweepArgs]
	sweeper repository.ReferenceSweeper
}

// NewReferenceSweepWorker creates a ReferenceSweepWorker.
func NewReferenceSweepWorker(sweeper repository.ReferenceSweeper) *ReferenceSweepWorker {
	return &ReferenceSweepWorker{sweeper: sweeper}
}

// Work sweeps once.
func (w *ReferenceSweepWorker) Work(ctx context.Context, _ *river.Job[ReferenceSweepArgs]) error {
	if w == nil || w.sweeper == nil {
		return fmt.Errorf("reference sweep worker is not initialized")
	}
	res, err := w.sweeper.SweepDanglingReferences(ctx)
	if err != nil {
		return fmt.Errorf("sweep dangling references: %w", err)
	}

	fields := []zap.Field{
		zap.Int64("employee_shift_refs", res.EmployeeShiftRefs),
		zap.Int64("shift_employee_refs", res.ShiftEmployeeRefs),
		zap.Int64("department_manager_refs", res.DepartmentManagerRefs),
		zap.Int64("employee_department_refs", res.EmployeeDepartmentRef),
	}
	if res.Total() > 0 {
		logger.Warn("Reference sweep removed dangling ids", fields...)
	} else {
		logger.Debug("Reference sweep found nothing", fields...)
	}
	return nil
}
