package memory

import (
	"context"
	"fmt"
	"sort"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/repository"
)

type employeeRepo struct{ s *Store }

func cloneEmployee(e *domain.Employee) *domain.Employee {
	c := *e
	c.DepartmentID = cloneStringPtr(e.DepartmentID)
	c.ShiftIDs = cloneIDs(e.ShiftIDs)
	return &c
}

func (r *employeeRepo) Create(_ context.Context, e *domain.Employee) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("employees.Create"); err != nil {
		return err
	}
	if _, ok := r.s.employees[e.ID]; ok {
		return fmt.Errorf("create employee: %w", repository.ErrDuplicate)
	}
	r.s.employees[e.ID] = cloneEmployee(e)
	return nil
}

func (r *employeeRepo) Get(_ context.Context, id string) (*domain.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("employees.Get"); err != nil {
		return nil, err
	}
	e, ok := r.s.employees[id]
	if !ok {
		return nil, notFound("get employee", id)
	}
	return cloneEmployee(e), nil
}

func (r *employeeRepo) List(_ context.Context, filter repository.EmployeeFilter) ([]*domain.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("employees.List"); err != nil {
		return nil, err
	}
	out := []*domain.Employee{}
	for _, id := range sortedKeys(r.s.employees) {
		e := r.s.employees[id]
		if filter.DepartmentID != nil && (e.DepartmentID == nil || *e.DepartmentID != *filter.DepartmentID) {
			continue
		}
		out = append(out, cloneEmployee(e))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LastName != out[j].LastName {
			return out[i].LastName < out[j].LastName
		}
		return out[i].FirstName < out[j].FirstName
	})
	return out, nil
}

// mutate applies fn to employee id under the lock and returns a copy.
func (r *employeeRepo) mutate(op, id string, fn func(e *domain.Employee)) (*domain.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(op); err != nil {
		return nil, err
	}
	e, ok := r.s.employees[id]
	if !ok {
		return nil, notFound(op, id)
	}
	fn(e)
	return cloneEmployee(e), nil
}

func (r *employeeRepo) Update(_ context.Context, id string, f repository.EmployeeFields) (*domain.Employee, error) {
	return r.mutate("employees.Update", id, func(e *domain.Employee) {
		e.FirstName = f.FirstName
		e.LastName = f.LastName
		e.StartWorkYear = f.StartWorkYear
	})
}

func (r *employeeRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("employees.Delete"); err != nil {
		return err
	}
	if _, ok := r.s.employees[id]; !ok {
		return notFound("delete employee", id)
	}
	delete(r.s.employees, id)
	return nil
}

func (r *employeeRepo) SetDepartment(_ context.Context, id string, departmentID *string) (*domain.Employee, error) {
	return r.mutate("employees.SetDepartment", id, func(e *domain.Employee) {
		e.DepartmentID = cloneStringPtr(departmentID)
	})
}

func (r *employeeRepo) ClearDepartment(_ context.Context, departmentID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("employees.ClearDepartment"); err != nil {
		return 0, err
	}
	var n int64
	for _, e := range r.s.employees {
		if e.DepartmentID != nil && *e.DepartmentID == departmentID {
			e.DepartmentID = nil
			n++
		}
	}
	return n, nil
}

func (r *employeeRepo) AddShift(_ context.Context, id, shiftID string) (*domain.Employee, error) {
	return r.mutate("employees.AddShift", id, func(e *domain.Employee) {
		e.ShiftIDs = addID(e.ShiftIDs, shiftID)
	})
}

func (r *employeeRepo) RemoveShift(_ context.Context, id, shiftID string) (*domain.Employee, error) {
	return r.mutate("employees.RemoveShift", id, func(e *domain.Employee) {
		e.ShiftIDs, _ = removeID(e.ShiftIDs, shiftID)
	})
}

func (r *employeeRepo) PullShift(_ context.Context, shiftID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("employees.PullShift"); err != nil {
		return 0, err
	}
	var n int64
	for _, e := range r.s.employees {
		var removed bool
		if e.ShiftIDs, removed = removeID(e.ShiftIDs, shiftID); removed {
			n++
		}
	}
	return n, nil
}
