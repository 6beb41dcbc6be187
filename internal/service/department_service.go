package service

import (
	"context"

	"factorymanager.io/manager/internal/domain"
	apperrors "factorymanager.io/manager/internal/pkg/errors"
	"factorymanager.io/manager/internal/repository"
	"factorymanager.io/manager/internal/usecase"
)

// DepartmentService handles department CRUD.
type DepartmentService struct {
	departments repository.DepartmentRepository
	employees   repository.EmployeeRepository
	coord       *usecase.Coordinator
}

// NewDepartmentService creates a DepartmentService.
func NewDepartmentService(store repository.Store, coord *usecase.Coordinator) *DepartmentService {
	return &DepartmentService{departments: store.Departments, employees: store.Employees, coord: coord}
}

func departmentNotFound(id string) func() *apperrors.AppError {
	return func() *apperrors.AppError { return apperrors.ErrDepartmentNotFound(id) }
}

// checkManager verifies a manager reference points at an existing employee.
func (s *DepartmentService) checkManager(ctx context.Context, managerID *string) error {
	if managerID == nil {
		return nil
	}
	if _, err := s.employees.Get(ctx, *managerID); err != nil {
		return repository.AppError(err, func() *apperrors.AppError { return apperrors.ErrEmployeeNotFound(*managerID) })
	}
	return nil
}

// List returns departments, optionally filtered by exact name.
func (s *DepartmentService) List(ctx context.Context, filter repository.DepartmentFilter) ([]*domain.Department, error) {
	ds, err := s.departments.List(ctx, filter)
	if err != nil {
		return nil, repository.AppError(err, nil)
	}
	return ds, nil
}

// Get returns one department.
func (s *DepartmentService) Get(ctx context.Context, id string) (*domain.Department, error) {
	if err := domain.ValidateID("id", id); err != nil {
		return nil, err
	}
	d, err := s.departments.Get(ctx, id)
	if err != nil {
		return nil, repository.AppError(err, departmentNotFound(id))
	}
	return d, nil
}

// Create adds a department.
func (s *DepartmentService) Create(ctx context.Context, in domain.DepartmentInput) (*domain.Department, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	if err := s.checkManager(ctx, in.ManagerID); err != nil {
		return nil, err
	}
	id, err := domain.NewID()
	if err != nil {
		return nil, err
	}
	d := &domain.Department{ID: id, Name: in.Name, ManagerID: in.ManagerID}
	if err := s.departments.Create(ctx, d); err != nil {
		return nil, repository.AppError(err, nil)
	}
	return d, nil
}

// Update replaces the name and manager.
func (s *DepartmentService) Update(ctx context.Context, id string, in domain.DepartmentInput) (*domain.Department, error) {
	if err := domain.ValidateID("id", id); err != nil {
		return nil, err
	}
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	if err := s.checkManager(ctx, in.ManagerID); err != nil {
		return nil, err
	}
	d, err := s.departments.Update(ctx, id, in.Name, in.ManagerID)
	if err != nil {
		return nil, repository.AppError(err, departmentNotFound(id))
	}
	return d, nil
}

// Delete removes a department through the coordinator.
func (s *DepartmentService) Delete(ctx context.Context, id string) (*domain.Department, error) {
	return s.coord.DeleteDepartment(ctx, id)
}
