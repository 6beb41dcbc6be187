package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/repository"
)

// ShiftRepo implements repository.ShiftRepository.
type ShiftRepo struct {
	q querier
}

const shiftColumns = `id, date, starting_hour, ending_hour, employee_ids`

func scanShift(row pgx.Row) (*domain.Shift, error) {
	var (
		s    domain.Shift
		date time.Time
	)
	if err := row.Scan(&s.ID, &date, &s.StartingHour, &s.EndingHour, &s.EmployeeIDs); err != nil {
		return nil, err
	}
	s.Date = domain.DateFromTime(date)
	s.EmployeeIDs = nonNilIDs(s.EmployeeIDs)
	return &s, nil
}

func (r *ShiftRepo) one(ctx context.Context, op, sql string, args ...any) (*domain.Shift, error) {
	s, err := scanShift(r.q.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, classify(op, err)
	}
	return s, nil
}

func (r *ShiftRepo) Create(ctx context.Context, s *domain.Shift) error {
	s.EmployeeIDs = nonNilIDs(s.EmployeeIDs)
	_, err := r.q.Exec(ctx, `
		INSERT INTO shifts (id, date, starting_hour, ending_hour, employee_ids)
		VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.Date.Time(), s.StartingHour, s.EndingHour, s.EmployeeIDs,
	)
	return classify("create shift", err)
}

func (r *ShiftRepo) Get(ctx context.Context, id string) (*domain.Shift, error) {
	return r.one(ctx, "get shift", `SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id)
}

func (r *ShiftRepo) List(ctx context.Context, filter repository.ShiftFilter) ([]*domain.Shift, error) {
	var date *time.Time
	if filter.Date != nil {
		t := filter.Date.Time()
		date = &t
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE ($1::date IS NULL OR date = $1)
		ORDER BY date, starting_hour, id`, date)
	if err != nil {
		return nil, classify("list shifts", err)
	}
	defer rows.Close()

	out := []*domain.Shift{}
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, classify("scan shift", err)
		}
		out = append(out, s)
	}
	return out, classify("list shifts", rows.Err())
}

func (r *ShiftRepo) UpdateSchedule(ctx context.Context, id string, date domain.Date, startingHour, endingHour int) (*domain.Shift, error) {
	return r.one(ctx, "update shift", `
		UPDATE shifts SET date = $2, starting_hour = $3, ending_hour = $4
		WHERE id = $1
		RETURNING `+shiftColumns, id, date.Time(), startingHour, endingHour)
}

func (r *ShiftRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM shifts WHERE id = $1`, id)
	return expectRow("delete shift", tag, err)
}

func (r *ShiftRepo) AddEmployee(ctx context.Context, id, employeeID string) (*domain.Shift, error) {
	return r.one(ctx, "add shift employee", `
		UPDATE shifts
		SET employee_ids = CASE WHEN $2::text = ANY(employee_ids) THEN employee_ids ELSE array_append(employee_ids, $2::text) END
		WHERE id = $1
		RETURNING `+shiftColumns, id, employeeID)
}

func (r *ShiftRepo) RemoveEmployee(ctx context.Context, id, employeeID string) (*domain.Shift, error) {
	return r.one(ctx, "remove shift employee", `
		UPDATE shifts SET employee_ids = array_remove(employee_ids, $2::text)
		WHERE id = $1
		RETURNING `+shiftColumns, id, employeeID)
}

func (r *ShiftRepo) PullEmployee(ctx context.Context, employeeID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE shifts SET employee_ids = array_remove(employee_ids, $1::text)
		WHERE $1::text = ANY(employee_ids)`, employeeID)
	if err != nil {
		return 0, classify("pull employee from shifts", err)
	}
	return tag.RowsAffected(), nil
}
