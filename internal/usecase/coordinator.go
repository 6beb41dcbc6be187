// Package usecase provides the multi-entity operations of the service.
//
// The Coordinator keeps Employee, Department and Shift consistent without
// cross-record transactions. Every write it issues is a single-record
// atomic store operation, and every write is idempotent:
//
//	assign      set union on Employee.shifts and Shift.employees
//	unassign    set difference on both sets
//	cascade     dependents first, root record last
//
// When a sequence stops half way the caller gets PARTIAL_ASSIGNMENT or
// PARTIAL_CASCADE naming the entity and step. Repeating the same call
// finishes the work; there is no rollback path.
package usecase

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"factorymanager.io/manager/internal/domain"
	apperrors "factorymanager.io/manager/internal/pkg/errors"
	"factorymanager.io/manager/internal/pkg/logger"
	"factorymanager.io/manager/internal/repository"
)

// MirrorOp names the assignment operation a repair job re-drives.
type MirrorOp string

const (
	MirrorAssign   MirrorOp = "assign"
	MirrorUnassign MirrorOp = "unassign"
)

// Partial failure steps.
const (
	StepEmployeeShifts     = "employee.shifts"
	StepShiftEmployees     = "shift.employees"
	StepPullFromShifts     = "shifts.employees.pull"
	StepPullFromEmployees  = "employees.shifts.pull"
	StepDepartmentManager  = "department.manager"
	StepEmployeeDepartment = "employee.department"
	StepDeleteRoot         = "delete"
)

// RepairScheduler enqueues a background retry of a partially applied
// assignment.
type RepairScheduler interface {
	ScheduleMirrorRepair(ctx context.Context, employeeID, shiftID string, op MirrorOp) error
}

// Coordinator implements the relationship operations.
type Coordinator struct {
	employees   repository.EmployeeRepository
	departments repository.DepartmentRepository
	shifts      repository.ShiftRepository
	repairs     RepairScheduler
}

// NewCoordinator creates a Coordinator over one store.
func NewCoordinator(store repository.Store) *Coordinator {
	return &Coordinator{
		employees:   store.Employees,
		departments: store.Departments,
		shifts:      store.Shifts,
	}
}

// SetRepairScheduler enables background retries of partial assignments.
func (c *Coordinator) SetRepairScheduler(s RepairScheduler) {
	c.repairs = s
}

func employeeNotFound(id string) func() *apperrors.AppError {
	return func() *apperrors.AppError { return apperrors.ErrEmployeeNotFound(id) }
}

func shiftNotFound(id string) func() *apperrors.AppError {
	return func() *apperrors.AppError { return apperrors.ErrShiftNotFound(id) }
}

func departmentNotFound(id string) func() *apperrors.AppError {
	return func() *apperrors.AppError { return apperrors.ErrDepartmentNotFound(id) }
}

func validatePair(employeeID, shiftID string) error {
	if err := domain.ValidateID("employeeId", employeeID); err != nil {
		return err
	}
	return domain.ValidateID("shiftId", shiftID)
}

// AssignEmployeeToShift adds the shift to the employee, then the employee
// to the shift. It returns the updated employee.
func (c *Coordinator) AssignEmployeeToShift(ctx context.Context, employeeID, shiftID string) (*domain.Employee, error) {
	if err := validatePair(employeeID, shiftID); err != nil {
		return nil, err
	}
	if _, err := c.shifts.Get(ctx, shiftID); err != nil {
		return nil, repository.AppError(err, shiftNotFound(shiftID))
	}

	emp, err := c.employees.AddShift(ctx, employeeID, shiftID)
	if err != nil {
		return nil, repository.AppError(err, employeeNotFound(employeeID))
	}
	if _, err := c.shifts.AddEmployee(ctx, shiftID, employeeID); err != nil {
		return nil, c.partialAssignment(ctx, employeeID, shiftID, StepShiftEmployees, MirrorAssign, err)
	}
	return emp, nil
}

// AddEmployeeToShift is AssignEmployeeToShift written from the shift side
// first. It returns the updated shift.
func (c *Coordinator) AddEmployeeToShift(ctx context.Context, shiftID, employeeID string) (*domain.Shift, error) {
	if err := validatePair(employeeID, shiftID); err != nil {
		return nil, err
	}
	if _, err := c.employees.Get(ctx, employeeID); err != nil {
		return nil, repository.AppError(err, employeeNotFound(employeeID))
	}

	sh, err := c.shifts.AddEmployee(ctx, shiftID, employeeID)
	if err != nil {
		return nil, repository.AppError(err, shiftNotFound(shiftID))
	}
	if _, err := c.employees.AddShift(ctx, employeeID, shiftID); err != nil {
		return nil, c.partialAssignment(ctx, employeeID, shiftID, StepEmployeeShifts, MirrorAssign, err)
	}
	return sh, nil
}

// UnassignEmployeeFromShift removes the shift from the employee, then the
// employee from the shift. A shift that no longer exists only needs the
// employee side cleaned.
func (c *Coordinator) UnassignEmployeeFromShift(ctx context.Context, employeeID, shiftID string) (*domain.Employee, error) {
	if err := validatePair(employeeID, shiftID); err != nil {
		return nil, err
	}

	emp, err := c.employees.RemoveShift(ctx, employeeID, shiftID)
	if err != nil {
		return nil, repository.AppError(err, employeeNotFound(employeeID))
	}
	if _, err := c.shifts.RemoveEmployee(ctx, shiftID, employeeID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, c.partialAssignment(ctx, employeeID, shiftID, StepShiftEmployees, MirrorUnassign, err)
	}
	return emp, nil
}

// RemoveEmployeeFromShift is UnassignEmployeeFromShift written from the
// shift side first. It returns the updated shift.
func (c *Coordinator) RemoveEmployeeFromShift(ctx context.Context, shiftID, employeeID string) (*domain.Shift, error) {
	if err := validatePair(employeeID, shiftID); err != nil {
		return nil, err
	}

	sh, err := c.shifts.RemoveEmployee(ctx, shiftID, employeeID)
	if err != nil {
		return nil, repository.AppError(err, shiftNotFound(shiftID))
	}
	if _, err := c.employees.RemoveShift(ctx, employeeID, shiftID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, c.partialAssignment(ctx, employeeID, shiftID, StepEmployeeShifts, MirrorUnassign, err)
	}
	return sh, nil
}

// Membership reports which side of an employee/shift pair lists the other.
type Membership struct {
	OnEmployee bool
	OnShift    bool
}

// Converged reports whether both sides agree.
func (m Membership) Converged() bool { return m.OnEmployee == m.OnShift }

// Membership reads both sides of the pair. A missing shift reads as not
// listing the employee; a missing employee is EMPLOYEE_NOT_FOUND.
func (c *Coordinator) Membership(ctx context.Context, employeeID, shiftID string) (Membership, error) {
	if err := validatePair(employeeID, shiftID); err != nil {
		return Membership{}, err
	}
	emp, err := c.employees.Get(ctx, employeeID)
	if err != nil {
		return Membership{}, repository.AppError(err, employeeNotFound(employeeID))
	}
	m := Membership{OnEmployee: slices.Contains(emp.ShiftIDs, shiftID)}

	sh, err := c.shifts.Get(ctx, shiftID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return Membership{}, repository.AppError(err, shiftNotFound(shiftID))
	default:
		m.OnShift = slices.Contains(sh.EmployeeIDs, employeeID)
	}
	return m, nil
}

func (c *Coordinator) partialAssignment(ctx context.Context, employeeID, shiftID, step string, op MirrorOp, cause error) error {
	log := logger.FromContext(ctx)
	log.Warn("Assignment partially applied",
		zap.String("employee_id", employeeID),
		zap.String("shift_id", shiftID),
		zap.String("step", step),
		zap.String("op", string(op)),
		zap.Error(cause),
	)
	if c.repairs != nil {
		if err := c.repairs.ScheduleMirrorRepair(ctx, employeeID, shiftID, op); err != nil {
			log.Warn("Failed to schedule mirror repair",
				zap.String("employee_id", employeeID),
				zap.String("shift_id", shiftID),
				zap.Error(err),
			)
		}
	}
	return apperrors.ErrPartialAssignment(employeeID, shiftID, step, cause)
}

// ReassignDepartment points the employee at departmentID, or clears it when
// nil. The previous department's manager is left as is.
func (c *Coordinator) ReassignDepartment(ctx context.Context, employeeID string, departmentID *string) (*domain.Employee, error) {
	if err := domain.ValidateID("employeeId", employeeID); err != nil {
		return nil, err
	}
	if departmentID != nil {
		if err := domain.ValidateID("departmentId", *departmentID); err != nil {
			return nil, err
		}
		if _, err := c.departments.Get(ctx, *departmentID); err != nil {
			return nil, repository.AppError(err, departmentNotFound(*departmentID))
		}
	}
	emp, err := c.employees.SetDepartment(ctx, employeeID, departmentID)
	if err != nil {
		return nil, repository.AppError(err, employeeNotFound(employeeID))
	}
	return emp, nil
}

// DeleteEmployee removes the employee from every shift, clears every
// department it manages, then deletes it. It returns the deleted record.
func (c *Coordinator) DeleteEmployee(ctx context.Context, employeeID string) (*domain.Employee, error) {
	if err := domain.ValidateID("id", employeeID); err != nil {
		return nil, err
	}
	emp, err := c.employees.Get(ctx, employeeID)
	if err != nil {
		return nil, repository.AppError(err, employeeNotFound(employeeID))
	}

	cascade := newCascade(ctx, "employee", employeeID)
	for _, shiftID := range emp.ShiftIDs {
		if _, err := c.shifts.RemoveEmployee(ctx, shiftID, employeeID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, cascade.fail(StepShiftEmployees, shiftID, err)
		}
	}
	// Shifts whose mirror drifted still reference the employee.
	if _, err := c.shifts.PullEmployee(ctx, employeeID); err != nil {
		return nil, cascade.fail(StepPullFromShifts, employeeID, err)
	}
	if _, err := c.departments.ClearManager(ctx, employeeID); err != nil {
		return nil, cascade.fail(StepDepartmentManager, employeeID, err)
	}
	if err := c.employees.Delete(ctx, employeeID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, cascade.fail(StepDeleteRoot, employeeID, err)
	}
	return emp, nil
}

// DeleteDepartment clears the department on every employee in it, then
// deletes it. Shifts are untouched.
func (c *Coordinator) DeleteDepartment(ctx context.Context, departmentID string) (*domain.Department, error) {
	if err := domain.ValidateID("id", departmentID); err != nil {
		return nil, err
	}
	dept, err := c.departments.Get(ctx, departmentID)
	if err != nil {
		return nil, repository.AppError(err, departmentNotFound(departmentID))
	}

	cascade := newCascade(ctx, "department", departmentID)
	if _, err := c.employees.ClearDepartment(ctx, departmentID); err != nil {
		return nil, cascade.fail(StepEmployeeDepartment, departmentID, err)
	}
	if err := c.departments.Delete(ctx, departmentID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, cascade.fail(StepDeleteRoot, departmentID, err)
	}
	return dept, nil
}

// DeleteShift removes the shift from every employee working it, then
// deletes it, so no employee is left referencing a missing shift.
func (c *Coordinator) DeleteShift(ctx context.Context, shiftID string) (*domain.Shift, error) {
	if err := domain.ValidateID("id", shiftID); err != nil {
		return nil, err
	}
	sh, err := c.shifts.Get(ctx, shiftID)
	if err != nil {
		return nil, repository.AppError(err, shiftNotFound(shiftID))
	}

	cascade := newCascade(ctx, "shift", shiftID)
	for _, employeeID := range sh.EmployeeIDs {
		if _, err := c.employees.RemoveShift(ctx, employeeID, shiftID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, cascade.fail(StepEmployeeShifts, employeeID, err)
		}
	}
	if _, err := c.employees.PullShift(ctx, shiftID); err != nil {
		return nil, cascade.fail(StepPullFromEmployees, shiftID, err)
	}
	if err := c.shifts.Delete(ctx, shiftID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, cascade.fail(StepDeleteRoot, shiftID, err)
	}
	return sh, nil
}

type cascade struct {
	ctx    context.Context
	root   string
	rootID string
}

func newCascade(ctx context.Context, root, rootID string) cascade {
	return cascade{ctx: ctx, root: root, rootID: rootID}
}

func (c cascade) fail(step, entityID string, cause error) error {
	logger.FromContext(c.ctx).Warn("Cascade partially applied",
		zap.String("root", c.root),
		zap.String("root_id", c.rootID),
		zap.String("step", step),
		zap.String("entity_id", entityID),
		zap.Error(cause),
	)
	return apperrors.ErrPartialCascade(c.root, c.rootID, step, entityID, cause)
}
