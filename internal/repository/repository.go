// Package repository defines the entity store contracts.
//
// Every method is a single atomic operation on one record (or one
// statement over many records). No method spans records transactionally;
// multi-entity consistency is the relationship coordinator's job.
package repository

import (
	"context"
	"errors"
	"time"

	"factorymanager.io/manager/internal/domain"
)

// Store errors. Implementations wrap driver errors with these.
var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicate   = errors.New("duplicate record")
	ErrUnavailable = errors.New("store unavailable")
)

// PrincipalRepository stores principals.
type PrincipalRepository interface {
	Create(ctx context.Context, p *domain.Principal) error
	GetByID(ctx context.Context, id string) (*domain.Principal, error)
	GetByUsername(ctx context.Context, username string) (*domain.Principal, error)
	List(ctx context.Context) ([]*domain.Principal, error)
}

// QuotaStore holds the per-principal daily counter.
type QuotaStore interface {
	// ResetIfStale sets numOfActions to maxActionsPerDay and
	// lastActionDate to today when the stored date differs from today,
	// as one compare-and-set keyed on the stored date. It returns the
	// state after the call.
	ResetIfStale(ctx context.Context, principalID string, today domain.Date) (domain.QuotaState, error)

	// Consume decrements numOfActions by one if it is above zero, in one
	// round trip. ok is false when nothing was decremented.
	Consume(ctx context.Context, principalID string) (state domain.QuotaState, ok bool, err error)
}

// EmployeeFilter narrows List. Zero value lists everything.
type EmployeeFilter struct {
	DepartmentID *string
}

// EmployeeFields are the scalar fields writable through Update.
type EmployeeFields struct {
	FirstName     string
	LastName      string
	StartWorkYear int
}

// EmployeeRepository stores employees.
type EmployeeRepository interface {
	Create(ctx context.Context, e *domain.Employee) error
	Get(ctx context.Context, id string) (*domain.Employee, error)
	List(ctx context.Context, filter EmployeeFilter) ([]*domain.Employee, error)
	Update(ctx context.Context, id string, fields EmployeeFields) (*domain.Employee, error)
	Delete(ctx context.Context, id string) error

	SetDepartment(ctx context.Context, id string, departmentID *string) (*domain.Employee, error)
	// ClearDepartment unsets department on every employee referencing departmentID.
	ClearDepartment(ctx context.Context, departmentID string) (int64, error)

	// AddShift is an idempotent set union on shifts.
	AddShift(ctx context.Context, id, shiftID string) (*domain.Employee, error)
	// RemoveShift is an idempotent set difference on shifts.
	RemoveShift(ctx context.Context, id, shiftID string) (*domain.Employee, error)
	// PullShift removes shiftID from every employee's shifts.
	PullShift(ctx context.Context, shiftID string) (int64, error)
}

// DepartmentFilter narrows List.
type DepartmentFilter struct {
	Name string
}

// DepartmentRepository stores departments.
type DepartmentRepository interface {
	Create(ctx context.Context, d *domain.Department) error
	Get(ctx context.Context, id string) (*domain.Department, error)
	List(ctx context.Context, filter DepartmentFilter) ([]*domain.Department, error)
	Update(ctx context.Context, id, name string, managerID *string) (*domain.Department, error)
	Delete(ctx context.Context, id string) error

	// ClearManager unsets manager on every department managed by employeeID.
	ClearManager(ctx context.Context, employeeID string) (int64, error)
}

// ShiftFilter narrows List.
type ShiftFilter struct {
	Date *domain.Date
}

// ShiftRepository stores shifts.
type ShiftRepository interface {
	Create(ctx context.Context, s *domain.Shift) error
	Get(ctx context.Context, id string) (*domain.Shift, error)
	List(ctx context.Context, filter ShiftFilter) ([]*domain.Shift, error)
	UpdateSchedule(ctx context.Context, id string, date domain.Date, startingHour, endingHour int) (*domain.Shift, error)
	Delete(ctx context.Context, id string) error

	// AddEmployee is an idempotent set union on employees.
	AddEmployee(ctx context.Context, id, employeeID string) (*domain.Shift, error)
	// RemoveEmployee is an idempotent set difference on employees.
	RemoveEmployee(ctx context.Context, id, employeeID string) (*domain.Shift, error)
	// PullEmployee removes employeeID from every shift's employees.
	PullEmployee(ctx context.Context, employeeID string) (int64, error)
}

// ActionLogRepository persists quota evaluations.
type ActionLogRepository interface {
	Append(ctx context.Context, entry *domain.ActionLogEntry) error
	ListByPrincipal(ctx context.Context, principalID string, limit int) ([]*domain.ActionLogEntry, error)
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SweepResult counts references removed by a sweep.
type SweepResult struct {
	EmployeeShiftRefs     int64
	ShiftEmployeeRefs     int64
	DepartmentManagerRefs int64
	EmployeeDepartmentRef int64
}

// Total returns the number of references removed.
func (r SweepResult) Total() int64 {
	return r.EmployeeShiftRefs + r.ShiftEmployeeRefs + r.DepartmentManagerRefs + r.EmployeeDepartmentRef
}

// ReferenceSweeper removes ids that point at records which no longer exist.
type ReferenceSweeper interface {
	SweepDanglingReferences(ctx context.Context) (SweepResult, error)
}

// Store bundles the repositories of one backend.
type Store struct {
	Principals  PrincipalRepository
	Quota       QuotaStore
	Employees   EmployeeRepository
	Departments DepartmentRepository
	Shifts      ShiftRepository
	ActionLogs  ActionLogRepository
	Sweeper     ReferenceSweeper
}
