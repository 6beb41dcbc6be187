package memory

import (
	"context"
	"fmt"
	"sort"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/repository"
)

type departmentRepo struct{ s *Store }

func cloneDepartment(d *domain.Department) *domain.Department {
	c := *d
	c.ManagerID = cloneStringPtr(d.ManagerID)
	return &c
}

func (r *departmentRepo) Create(_ context.Context, d *domain.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("departments.Create"); err != nil {
		return err
	}
	if _, ok := r.s.departments[d.ID]; ok {
		return fmt.Errorf("create department: %w", repository.ErrDuplicate)
	}
	r.s.departments[d.ID] = cloneDepartment(d)
	return nil
}

func (r *departmentRepo) Get(_ context.Context, id string) (*domain.Department, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("departments.Get"); err != nil {
		return nil, err
	}
	d, ok := r.s.departments[id]
	if !ok {
		return nil, notFound("get department", id)
	}
	return cloneDepartment(d), nil
}

func (r *departmentRepo) List(_ context.Context, filter repository.DepartmentFilter) ([]*domain.Department, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("departments.List"); err != nil {
		return nil, err
	}
	out := []*domain.Department{}
	for _, id := range sortedKeys(r.s.departments) {
		d := r.s.departments[id]
		if filter.Name != "" && d.Name != filter.Name {
			continue
		}
		out = append(out, cloneDepartment(d))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *departmentRepo) Update(_ context.Context, id, name string, managerID *string) (*domain.Department, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("departments.Update"); err != nil {
		return nil, err
	}
	d, ok := r.s.departments[id]
	if !ok {
		return nil, notFound("update department", id)
	}
	d.Name = name
	d.ManagerID = cloneStringPtr(managerID)
	return cloneDepartment(d), nil
}

func (r *departmentRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("departments.Delete"); err != nil {
		return err
	}
	if _, ok := r.s.departments[id]; !ok {
		return notFound("delete department", id)
	}
	delete(r.s.departments, id)
	return nil
}

func (r *departmentRepo) ClearManager(_ context.Context, employeeID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("departments.ClearManager"); err != nil {
		return 0, err
	}
	var n int64
	for _, d := range r.s.departments {
		if d.ManagerID != nil && *d.ManagerID == employeeID {
			d.ManagerID = nil
			n++
		}
	}
	return n, nil
}
