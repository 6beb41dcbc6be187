package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/repository"
)

// DepartmentRepo implements repository.DepartmentRepository.
type DepartmentRepo struct {
	q querier
}

func scanDepartment(row pgx.Row) (*domain.Department, error) {
	var d domain.Department
	if err := row.Scan(&d.ID, &d.Name, &d.ManagerID); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *DepartmentRepo) Create(ctx context.Context, d *domain.Department) error {
	_, err := r.q.Exec(ctx, `INSERT INTO departments (id, name, manager_id) VALUES ($1, $2, $3)`,
		d.ID, d.Name, d.ManagerID)
	return classify("create department", err)
}

func (r *DepartmentRepo) Get(ctx context.Context, id string) (*domain.Department, error) {
	d, err := scanDepartment(r.q.QueryRow(ctx, `SELECT id, name, manager_id FROM departments WHERE id = $1`, id))
	if err != nil {
		return nil, classify("get department", err)
	}
	return d, nil
}

func (r *DepartmentRepo) List(ctx context.Context, filter repository.DepartmentFilter) ([]*domain.Department, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, name, manager_id FROM departments
		WHERE ($1::text = '' OR name = $1)
		ORDER BY name, id`, filter.Name)
	if err != nil {
		return nil, classify("list departments", err)
	}
	defer rows.Close()

	out := []*domain.Department{}
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, classify("scan department", err)
		}
		out = append(out, d)
	}
	return out, classify("list departments", rows.Err())
}

func (r *DepartmentRepo) Update(ctx context.Context, id, name string, managerID *string) (*domain.Department, error) {
	d, err := scanDepartment(r.q.QueryRow(ctx, `
		UPDATE departments SET name = $2, manager_id = $3 WHERE id = $1
		RETURNING id, name, manager_id`, id, name, managerID))
	if err != nil {
		return nil, classify("update department", err)
	}
	return d, nil
}

func (r *DepartmentRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM departments WHERE id = $1`, id)
	return expectRow("delete department", tag, err)
}

func (r *DepartmentRepo) ClearManager(ctx context.Context, employeeID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `UPDATE departments SET manager_id = NULL WHERE manager_id = $1`, employeeID)
	if err != nil {
		return 0, classify("clear department manager", err)
	}
	return tag.RowsAffected(), nil
}
