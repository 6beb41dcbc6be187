package service

import (
	"context"

	"go.uber.org/zap"

	"factorymanager.io/manager/internal/domain"
	apperrors "factorymanager.io/manager/internal/pkg/errors"
	"factorymanager.io/manager/internal/pkg/logger"
	"factorymanager.io/manager/internal/repository"
	"factorymanager.io/manager/internal/usecase"
)

// ShiftService handles shift CRUD.
type ShiftService struct {
	shifts    repository.ShiftRepository
	employees repository.EmployeeRepository
	coord     *usecase.Coordinator
}

// NewShiftService creates a ShiftService.
func NewShiftService(store repository.Store, coord *usecase.Coordinator) *ShiftService {
	return &ShiftService{shifts: store.Shifts, employees: store.Employees, coord: coord}
}

func shiftNotFound(id string) func() *apperrors.AppError {
	return func() *apperrors.AppError { return apperrors.ErrShiftNotFound(id) }
}

// List returns shifts, optionally on one date.
func (s *ShiftService) List(ctx context.Context, filter repository.ShiftFilter) ([]*domain.Shift, error) {
	shs, err := s.shifts.List(ctx, filter)
	if err != nil {
		return nil, repository.AppError(err, nil)
	}
	return shs, nil
}

// Get returns one shift.
func (s *ShiftService) Get(ctx context.Context, id string) (*domain.Shift, error) {
	if err := domain.ValidateID("id", id); err != nil {
		return nil, err
	}
	sh, err := s.shifts.Get(ctx, id)
	if err != nil {
		return nil, repository.AppError(err, shiftNotFound(id))
	}
	return sh, nil
}

// Create adds a shift. Initial employees are checked before anything is
// written, then assigned through the coordinator once the shift exists.
// If an assignment fails the new shift is deleted again, mirrors included,
// so repeating the call cannot leave a duplicate. If that delete fails too
// the caller gets PARTIAL_CASCADE naming the shift to delete.
func (s *ShiftService) Create(ctx context.Context, in domain.ShiftInput) (*domain.Shift, error) {
	date, start, end, err := in.Parse()
	if err != nil {
		return nil, err
	}
	for _, employeeID := range in.EmployeeIDs {
		if _, err := s.employees.Get(ctx, employeeID); err != nil {
			return nil, repository.AppError(err, employeeNotFound(employeeID))
		}
	}

	id, err := domain.NewID()
	if err != nil {
		return nil, err
	}
	sh := &domain.Shift{ID: id, Date: date, StartingHour: start, EndingHour: end, EmployeeIDs: []string{}}
	if err := s.shifts.Create(ctx, sh); err != nil {
		return nil, repository.AppError(err, nil)
	}

	for _, employeeID := range in.EmployeeIDs {
		updated, err := s.coord.AddEmployeeToShift(ctx, sh.ID, employeeID)
		if err != nil {
			return nil, s.abandon(ctx, sh.ID, employeeID, err)
		}
		sh = updated
	}
	return sh, nil
}

func (s *ShiftService) abandon(ctx context.Context, shiftID, employeeID string, cause error) error {
	log := logger.FromContext(ctx).With(
		zap.String("shift_id", shiftID),
		zap.String("employee_id", employeeID),
	)
	if _, err := s.coord.DeleteShift(ctx, shiftID); err != nil {
		log.Error("Failed to remove shift after initial assignment failed",
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return err
	}
	log.Warn("Shift creation rolled back, initial assignment failed", zap.Error(cause))
	return cause
}

// Update replaces date and hours. Employees are never touched here.
func (s *ShiftService) Update(ctx context.Context, id string, in domain.ShiftInput) (*domain.Shift, error) {
	if err := domain.ValidateID("id", id); err != nil {
		return nil, err
	}
	date, start, end, err := in.Parse()
	if err != nil {
		return nil, err
	}
	sh, err := s.shifts.UpdateSchedule(ctx, id, date, start, end)
	if err != nil {
		return nil, repository.AppError(err, shiftNotFound(id))
	}
	return sh, nil
}

// AddEmployee adds an employee to the shift, shift side first.
func (s *ShiftService) AddEmployee(ctx context.Context, id, employeeID string) (*domain.Shift, error) {
	return s.coord.AddEmployeeToShift(ctx, id, employeeID)
}

// RemoveEmployee removes an employee from the shift, shift side first.
func (s *ShiftService) RemoveEmployee(ctx context.Context, id, employeeID string) (*domain.Shift, error) {
	return s.coord.RemoveEmployeeFromShift(ctx, id, employeeID)
}

// Delete removes the shift and every employee reference to it.
func (s *ShiftService) Delete(ctx context.Context, id string) (*domain.Shift, error) {
	return s.coord.DeleteShift(ctx, id)
}
