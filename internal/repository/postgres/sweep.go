package postgres

import (
	"context"

	"factorymanager.io/manager/internal/repository"
)

// Sweeper implements repository.ReferenceSweeper. Each statement rewrites
// only rows holding a dangling id, one row at a time under its row lock.
type Sweeper struct {
	q querier
}

func (s *Sweeper) SweepDanglingReferences(ctx context.Context) (repository.SweepResult, error) {
	var res repository.SweepResult

	steps := []struct {
		op   string
		sql  string
		dest *int64
	}{
		{
			op: "sweep employee shift refs",
			sql: `UPDATE employees e
				SET shift_ids = ARRAY(SELECT sid FROM unnest(e.shift_ids) AS sid WHERE EXISTS (SELECT 1 FROM shifts s WHERE s.id = sid))
				WHERE EXISTS (SELECT 1 FROM unnest(e.shift_ids) AS sid WHERE NOT EXISTS (SELECT 1 FROM shifts s WHERE s.id = sid))`,
			dest: &res.EmployeeShiftRefs,
		},
		{
			op: "sweep shift employee refs",
			sql: `UPDATE shifts s
				SET employee_ids = ARRAY(SELECT eid FROM unnest(s.employee_ids) AS eid WHERE EXISTS (SELECT 1 FROM employees e WHERE e.id = eid))
				WHERE EXISTS (SELECT 1 FROM unnest(s.employee_ids) AS eid WHERE NOT EXISTS (SELECT 1 FROM employees e WHERE e.id = eid))`,
			dest: &res.ShiftEmployeeRefs,
		},
		{
			op: "sweep department manager refs",
			sql: `UPDATE departments d SET manager_id = NULL
				WHERE d.manager_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM employees e WHERE e.id = d.manager_id)`,
			dest: &res.DepartmentManagerRefs,
		},
		{
			op: "sweep employee department refs",
			sql: `UPDATE employees e SET department_id = NULL
				WHERE e.department_id IS NOT NULL AND NOT EXISTS (SELECT 1 FROM departments d WHERE d.id = e.department_id)`,
			dest: &res.EmployeeDepartmentRef,
		},
	}

	for _, step := range steps {
		tag, err := s.q.Exec(ctx, step.sql)
		if err != nil {
			return res, classify(step.op, err)
		}
		*step.dest = tag.RowsAffected()
	}
	return res, nil
}
