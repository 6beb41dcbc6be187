package memory

import (
	"context"
	"sort"
	"time"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/repository"
)

type actionLogRepo struct{ s *Store }

func (r *actionLogRepo) Append(_ context.Context, e *domain.ActionLogEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("actionLogs.Append"); err != nil {
		return err
	}
	c := *e
	r.s.actionLogs = append(r.s.actionLogs, &c)
	return nil
}

func (r *actionLogRepo) ListByPrincipal(_ context.Context, principalID string, limit int) ([]*domain.ActionLogEntry, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("actionLogs.ListByPrincipal"); err != nil {
		return nil, err
	}
	out := []*domain.ActionLogEntry{}
	for _, e := range r.s.actionLogs {
		if e.PrincipalID == principalID {
			c := *e
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *actionLogRepo) DeleteBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.fault("actionLogs.DeleteBefore"); err != nil {
		return 0, err
	}
	kept := r.s.actionLogs[:0]
	var n int64
	for _, e := range r.s.actionLogs {
		if e.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	r.s.actionLogs = kept
	return n, nil
}

type sweeper struct{ s *Store }

func (w *sweeper) SweepDanglingReferences(_ context.Context) (repository.SweepResult, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	var res repository.SweepResult
	if err := w.s.fault("sweeper.SweepDanglingReferences"); err != nil {
		return res, err
	}

	for _, e := range w.s.employees {
		kept := e.ShiftIDs[:0]
		dirty := false
		for _, sid := range e.ShiftIDs {
			if _, ok := w.s.shifts[sid]; ok {
				kept = append(kept, sid)
			} else {
				dirty = true
			}
		}
		e.ShiftIDs = kept
		if dirty {
			res.EmployeeShiftRefs++
		}
		if e.DepartmentID != nil {
			if _, ok := w.s.departments[*e.DepartmentID]; !ok {
				e.DepartmentID = nil
				res.EmployeeDepartmentRef++
			}
		}
	}
	for _, sh := range w.s.shifts {
		kept := sh.EmployeeIDs[:0]
		dirty := false
		for _, eid := range sh.EmployeeIDs {
			if _, ok := w.s.employees[eid]; ok {
				kept = append(kept, eid)
			} else {
				dirty = true
			}
		}
		sh.EmployeeIDs = kept
		if dirty {
			res.ShiftEmployeeRefs++
		}
	}
	for _, d := range w.s.departments {
		if d.ManagerID != nil {
			if _, ok := w.s.employees[*d.ManagerID]; !ok {
				d.ManagerID = nil
				res.DepartmentManagerRefs++
			}
		}
	}
	return res, nil
}
