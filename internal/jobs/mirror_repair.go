package jobs

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/pkg/logger"
	"factorymanager.io/manager/internal/usecase"
)

// MirrorRepairArgs re-drives an assignment whose mirror write failed.
type MirrorRepairArgs struct {
	EmployeeID string           `json:"employee_id"`
	ShiftID    string           `json:"shift_id"`
	Op         usecase.MirrorOp `json:"op"`
}

// Kind returns the job kind identifier for mirror repair.
func (MirrorRepairArgs) Kind() string { return "mirror_repair" }

// InsertOpts dedupes repairs of the same pair while one is pending.
func (MirrorRepairArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue:       river.QueueDefault,
		MaxAttempts: 10,
		UniqueOpts: river.UniqueOpts{
			ByArgs:  true,
			ByQueue: true,
		},
	}
}

// MirrorRepairer reads and idempotently rewrites both sides of an assignment.
type MirrorRepairer interface {
	Membership(ctx context.Context, employeeID, shiftID string) (usecase.Membership, error)
	AssignEmployeeToShift(ctx context.Context, employeeID, shiftID string) (*domain.Employee, error)
	UnassignEmployeeFromShift(ctx context.Context, employeeID, shiftID string) (*domain.Employee, error)
}

// MirrorRepairWorker converges employee.shifts and shift.employees for one pair.
type MirrorRepairWorker struct {
	river.WorkerDefaults[MirrorRepairArgs]
	repairer MirrorRepairer
}

// NewMirrorRepairWorker creates a MirrorRepairWorker.
func NewMirrorRepairWorker(repairer MirrorRepairer) *MirrorRepairWorker {
	return &MirrorRepairWorker{repairer: repairer}
}

// Work finishes a half-applied operation. A pair whose sides already agree
// is left alone: both present after an assign, or both absent after an
// unassign, means the pair converged; the opposite means a later call
// superseded the queued one, and the job is cancelled instead of undoing
// it. A pair whose employee no longer exists is cancelled.
func (w *MirrorRepairWorker) Work(ctx context.Context, job *river.Job[MirrorRepairArgs]) error {
	if w == nil || w.repairer == nil {
		return fmt.Errorf("mirror repair worker is not initialized")
	}
	args := job.Args
	log := logger.FromContext(ctx).With(
		zap.Int64("job_id", job.ID),
		zap.Int("attempt", job.Attempt),
		zap.String("employee_id", args.EmployeeID),
		zap.String("shift_id", args.ShiftID),
		zap.String("op", string(args.Op)),
	)
	if args.Op != usecase.MirrorAssign && args.Op != usecase.MirrorUnassign {
		return river.JobCancel(fmt.Errorf("unknown mirror op %q", args.Op))
	}

	state, err := w.repairer.Membership(ctx, args.EmployeeID, args.ShiftID)
	if err != nil {
		return w.fail(log, args, err)
	}
	if state.Converged() {
		if state.OnEmployee == (args.Op == usecase.MirrorAssign) {
			log.Info("Mirror already converged")
			return nil
		}
		log.Info("Mirror repair superseded by a later operation")
		return river.JobCancel(fmt.Errorf("%s %s/%s superseded", args.Op, args.EmployeeID, args.ShiftID))
	}

	if args.Op == usecase.MirrorAssign {
		_, err = w.repairer.AssignEmployeeToShift(ctx, args.EmployeeID, args.ShiftID)
	} else {
		_, err = w.repairer.UnassignEmployeeFromShift(ctx, args.EmployeeID, args.ShiftID)
	}
	if err != nil {
		return w.fail(log, args, err)
	}

	log.Info("Mirror repaired")
	return nil
}

func (w *MirrorRepairWorker) fail(log *zap.Logger, args MirrorRepairArgs, err error) error {
	if isPermanent(err) {
		log.Info("Mirror repair cancelled", zap.Error(err))
		return river.JobCancel(err)
	}
	return fmt.Errorf("repair %s %s/%s: %w", args.Op, args.EmployeeID, args.ShiftID, err)
}

// RiverRepairScheduler enqueues mirror repairs on River.
type RiverRepairScheduler struct {
	inserter Inserter
}

// NewRiverRepairScheduler creates a scheduler backed by inserter.
func NewRiverRepairScheduler(inserter Inserter) *RiverRepairScheduler {
	return &RiverRepairScheduler{inserter: inserter}
}

// ScheduleMirrorRepair implements usecase.RepairScheduler.
func (s *RiverRepairScheduler) ScheduleMirrorRepair(ctx context.Context, employeeID, shiftID string, op usecase.MirrorOp) error {
	res, err := s.inserter.Insert(ctx, MirrorRepairArgs{EmployeeID: employeeID, ShiftID: shiftID, Op: op}, nil)
	if err != nil {
		return fmt.Errorf("enqueue mirror repair: %w", err)
	}
	if res != nil && res.UniqueSkippedAsDuplicate {
		logger.FromContext(ctx).Debug("Mirror repair already pending",
			zap.String("employee_id", employeeID),
			zap.String("shift_id", shiftID),
		)
	}
	return nil
}
