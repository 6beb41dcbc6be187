package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/repository"
)

// EmployeeRepo implements repository.EmployeeRepository.
type EmployeeRepo struct {
	q querier
}

const employeeColumns = `id, first_name, last_name, start_work_year, department_id, shift_ids`

func scanEmployee(row pgx.Row) (*domain.Employee, error) {
	var e domain.Employee
	if err := row.Scan(&e.ID, &e.FirstName, &e.LastName, &e.StartWorkYear, &e.DepartmentID, &e.ShiftIDs); err != nil {
		return nil, err
	}
	e.ShiftIDs = nonNilIDs(e.ShiftIDs)
	return &e, nil
}

func (r *EmployeeRepo) one(ctx context.Context, op, sql string, args ...any) (*domain.Employee, error) {
	e, err := scanEmployee(r.q.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, classify(op, err)
	}
	return e, nil
}

func (r *EmployeeRepo) Create(ctx context.Context, e *domain.Employee) error {
	e.ShiftIDs = nonNilIDs(e.ShiftIDs)
	_, err := r.q.Exec(ctx, `
		INSERT INTO employees (id, first_name, last_name, start_work_year, department_id, shift_ids)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.FirstName, e.LastName, e.StartWorkYear, e.DepartmentID, e.ShiftIDs,
	)
	return classify("create employee", err)
}

func (r *EmployeeRepo) Get(ctx context.Context, id string) (*domain.Employee, error) {
	return r.one(ctx, "get employee", `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id)
}

func (r *EmployeeRepo) List(ctx context.Context, filter repository.EmployeeFilter) ([]*domain.Employee, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+employeeColumns+` FROM employees
		WHERE ($1::text IS NULL OR department_id = $1)
		ORDER BY last_name, first_name, id`, filter.DepartmentID)
	if err != nil {
		return nil, classify("list employees", err)
	}
	defer rows.Close()

	out := []*domain.Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, classify("scan employee", err)
		}
		out = append(out, e)
	}
	return out, classify("list employees", rows.Err())
}

func (r *EmployeeRepo) Update(ctx context.Context, id string, f repository.EmployeeFields) (*domain.Employee, error) {
	return r.one(ctx, "update employee", `
		UPDATE employees SET first_name = $2, last_name = $3, start_work_year = $4
		WHERE id = $1
		RETURNING `+employeeColumns, id, f.FirstName, f.LastName, f.StartWorkYear)
}

func (r *EmployeeRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	return expectRow("delete employee", tag, err)
}

func (r *EmployeeRepo) SetDepartment(ctx context.Context, id string, departmentID *string) (*domain.Employee, error) {
	return r.one(ctx, "set employee department", `
		UPDATE employees SET department_id = $2 WHERE id = $1
		RETURNING `+employeeColumns, id, departmentID)
}

func (r *EmployeeRepo) ClearDepartment(ctx context.Context, departmentID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `UPDATE employees SET department_id = NULL WHERE department_id = $1`, departmentID)
	if err != nil {
		return 0, classify("clear employee department", err)
	}
	return tag.RowsAffected(), nil
}

func (r *EmployeeRepo) AddShift(ctx context.Context, id, shiftID string) (*domain.Employee, error) {
	return r.one(ctx, "add employee shift", `
		UPDATE employees
		SET shift_ids = CASE WHEN $2::text = ANY(shift_ids) THEN shift_ids ELSE array_append(shift_ids, $2::text) END
		WHERE id = $1
		RETURNING `+employeeColumns, id, shiftID)
}

func (r *EmployeeRepo) RemoveShift(ctx context.Context, id, shiftID string) (*domain.Employee, error) {
	return r.one(ctx, "remove employee shift", `
		UPDATE employees SET shift_ids = array_remove(shift_ids, $2::text)
		WHERE id = $1
		RETURNING `+employeeColumns, id, shiftID)
}

func (r *EmployeeRepo) PullShift(ctx context.Context, shiftID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE employees SET shift_ids = array_remove(shift_ids, $1::text)
		WHERE $1::text = ANY(shift_ids)`, shiftID)
	if err != nil {
		return 0, classify("pull shift from employees", err)
	}
	return tag.RowsAffected(), nil
}
