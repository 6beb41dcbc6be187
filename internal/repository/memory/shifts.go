package memory

import (
	"context"
	"fmt"
	"sort"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/repository"
)

type shiftRepo struct{ s *Store }

func cloneShift(sh *domain.Shift) *domain.Shift {
	c := *sh
	c.EmployeeIDs = cloneIDs(sh.EmployeeIDs)
	return &c
}

func (r *shiftRepo) Create(_ context.Context, sh *domain.Shift) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("shifts.Create"); err != nil {
		return err
	}
	if _, ok := r.s.shifts[sh.ID]; ok {
		return fmt.Errorf("create shift: %w", repository.ErrDuplicate)
	}
	r.s.shifts[sh.ID] = cloneShift(sh)
	return nil
}

func (r *shiftRepo) Get(_ context.Context, id string) (*domain.Shift, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("shifts.Get"); err != nil {
		return nil, err
	}
	sh, ok := r.s.shifts[id]
	if !ok {
		return nil, notFound("get shift", id)
	}
	return cloneShift(sh), nil
}

func (r *shiftRepo) List(_ context.Context, filter repository.ShiftFilter) ([]*domain.Shift, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("shifts.List"); err != nil {
		return nil, err
	}
	out := []*domain.Shift{}
	for _, id := range sortedKeys(r.s.shifts) {
		sh := r.s.shifts[id]
		if filter.Date != nil && !sh.Date.Equal(*filter.Date) {
			continue
		}
		out = append(out, cloneShift(sh))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Time().Before(out[j].Date.Time())
		}
		return out[i].StartingHour < out[j].StartingHour
	})
	return out, nil
}

func (r *shiftRepo) mutate(op, id string, fn func(sh *domain.Shift)) (*domain.Shift, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault(op); err != nil {
		return nil, err
	}
	sh, ok := r.s.shifts[id]
	if !ok {
		return nil, notFound(op, id)
	}
	fn(sh)
	return cloneShift(sh), nil
}

func (r *shiftRepo) UpdateSchedule(_ context.Context, id string, date domain.Date, startingHour, endingHour int) (*domain.Shift, error) {
	return r.mutate("shifts.UpdateSchedule", id, func(sh *domain.Shift) {
		sh.Date = date
		sh.StartingHour = startingHour
		sh.EndingHour = endingHour
	})
}

func (r *shiftRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("shifts.Delete"); err != nil {
		return err
	}
	if _, ok := r.s.shifts[id]; !ok {
		return notFound("delete shift", id)
	}
	delete(r.s.shifts, id)
	return nil
}

func (r *shiftRepo) AddEmployee(_ context.Context, id, employeeID string) (*domain.Shift, error) {
	return r.mutate("shifts.AddEmployee", id, func(sh *domain.Shift) {
		sh.EmployeeIDs = addID(sh.EmployeeIDs, employeeID)
	})
}

func (r *shiftRepo) RemoveEmployee(_ context.Context, id, employeeID string) (*domain.Shift, error) {
	return r.mutate("shifts.RemoveEmployee", id, func(sh *domain.Shift) {
		sh.EmployeeIDs, _ = removeID(sh.EmployeeIDs, employeeID)
	})
}

func (r *shiftRepo) PullEmployee(_ context.Context, employeeID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("shifts.PullEmployee"); err != nil {
		return 0, err
	}
	var n int64
	for _, sh := range r.s.shifts {
		var removed bool
		if sh.EmployeeIDs, removed = removeID(sh.EmployeeIDs, employeeID); removed {
			n++
		}
	}
	return n, nil
}
