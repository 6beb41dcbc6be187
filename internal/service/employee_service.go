package service

import (
	"context"

	"factorymanager.io/manager/internal/domain"
	apperrors "factorymanager.io/manager/internal/pkg/errors"
	"factorymanager.io/manager/internal/repository"
	"factorymanager.io/manager/internal/usecase"
)

// EmployeeService handles employee CRUD. Relationship changes go through
// the coordinator.
type EmployeeService struct {
	employees   repository.EmployeeRepository
	departments repository.DepartmentRepository
	coord       *usecase.Coordinator
}

// NewEmployeeService creates an EmployeeService.
func NewEmployeeService(store repository.Store, coord *usecase.Coordinator) *EmployeeService {
	return &EmployeeService{employees: store.Employees, departments: store.Departments, coord: coord}
}

func employeeNotFound(id string) func() *apperrors.AppError {
	return func() *apperrors.AppError { return apperrors.ErrEmployeeNotFound(id) }
}

// List returns employees, optionally filtered by department.
func (s *EmployeeService) List(ctx context.Context, filter repository.EmployeeFilter) ([]*domain.Employee, error) {
	if filter.DepartmentID != nil {
		if err := domain.ValidateID("department_id", *filter.DepartmentID); err != nil {
			return nil, err
		}
	}
	es, err := s.employees.List(ctx, filter)
	if err != nil {
		return nil, repository.AppError(err, nil)
	}
	return es, nil
}

// Get returns one employee.
func (s *EmployeeService) Get(ctx context.Context, id string) (*domain.Employee, error) {
	if err := domain.ValidateID("id", id); err != nil {
		return nil, err
	}
	e, err := s.employees.Get(ctx, id)
	if err != nil {
		return nil, repository.AppError(err, employeeNotFound(id))
	}
	return e, nil
}

// Create adds an employee, optionally in a department.
func (s *EmployeeService) Create(ctx context.Context, in domain.EmployeeInput) (*domain.Employee, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	if in.DepartmentID != nil {
		if _, err := s.departments.Get(ctx, *in.DepartmentID); err != nil {
			return nil, repository.AppError(err, departmentNotFound(*in.DepartmentID))
		}
	}
	id, err := domain.NewID()
	if err != nil {
		return nil, err
	}
	e := &domain.Employee{
		ID:            id,
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		StartWorkYear: in.StartWorkYear,
		DepartmentID:  in.DepartmentID,
		ShiftIDs:      []string{},
	}
	if err := s.employees.Create(ctx, e); err != nil {
		return nil, repository.AppError(err, nil)
	}
	return e, nil
}

// Update replaces the scalar fields. A departmentId in the input is applied
// as a reassignment; shifts are never touched.
func (s *EmployeeService) Update(ctx context.Context, id string, in domain.EmployeeInput) (*domain.Employee, error) {
	if err := domain.ValidateID("id", id); err != nil {
		return nil, err
	}
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	if in.DepartmentID != nil {
		if _, err := s.departments.Get(ctx, *in.DepartmentID); err != nil {
			return nil, repository.AppError(err, departmentNotFound(*in.DepartmentID))
		}
	}
	e, err := s.employees.Update(ctx, id, repository.EmployeeFields{
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		StartWorkYear: in.StartWorkYear,
	})
	if err != nil {
		return nil, repository.AppError(err, employeeNotFound(id))
	}
	if in.DepartmentID != nil {
		return s.coord.ReassignDepartment(ctx, id, in.DepartmentID)
	}
	return e, nil
}

// ReassignDepartment moves the employee to departmentID, or out of any
// department when nil.
func (s *EmployeeService) ReassignDepartment(ctx context.Context, id string, departmentID *string) (*domain.Employee, error) {
	return s.coord.ReassignDepartment(ctx, id, departmentID)
}

// AssignShift adds the employee to a shift, employee side first.
func (s *EmployeeService) AssignShift(ctx context.Context, id, shiftID string) (*domain.Employee, error) {
	return s.coord.AssignEmployeeToShift(ctx, id, shiftID)
}

// UnassignShift removes the employee from a shift, employee side first.
func (s *EmployeeService) UnassignShift(ctx context.Context, id, shiftID string) (*domain.Employee, error) {
	return s.coord.UnassignEmployeeFromShift(ctx, id, shiftID)
}

// Delete removes an employee and every reference to it.
func (s *EmployeeService) Delete(ctx context.Context, id string) (*domain.Employee, error) {
	return s.coord.DeleteEmployee(ctx, id)
}
