// Package postgres implements the entity store on PostgreSQL via pgx.
//
// Set membership lives in TEXT[] columns. Union and difference are single
// UPDATE statements (array_append guarded by ANY, array_remove), so each
// is atomic on its row and idempotent.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"factorymanager.io/manager/internal/repository"
)

// querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ querier = (*pgxpool.Pool)(nil)

// NewStore returns the repositories backed by pool.
func NewStore(pool *pgxpool.Pool) repository.Store {
	return newStore(pool)
}

func newStore(q querier) repository.Store {
	return repository.Store{
		Principals:  &PrincipalRepo{q: q},
		Quota:       &QuotaRepo{q: q},
		Employees:   &EmployeeRepo{q: q},
		Departments: &DepartmentRepo{q: q},
		Shifts:      &ShiftRepo{q: q},
		ActionLogs:  &ActionLogRepo{q: q},
		Sweeper:     &Sweeper{q: q},
	}
}

const uniqueViolation = "23505"

// classify wraps driver errors with the repository sentinels.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == uniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, repository.ErrDuplicate, pgErr.ConstraintName)
		// 08: connection exception, 53: insufficient resources,
		// 57014: statement timeout, 57P0x: admin shutdown.
		case len(pgErr.Code) >= 2 && (pgErr.Code[:2] == "08" || pgErr.Code[:2] == "53"),
			pgErr.Code == "57014", pgErr.Code == "57P01", pgErr.Code == "57P02", pgErr.Code == "57P03":
			return fmt.Errorf("%s: %w: %v", op, repository.ErrUnavailable, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	var netErr net.Error
	if pgconn.Timeout(err) || errors.As(err, &netErr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %v", op, repository.ErrUnavailable, err)
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return fmt.Errorf("%s: %w: %v", op, repository.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// expectRow turns a zero-row command into ErrNotFound.
func expectRow(op string, tag pgconn.CommandTag, err error) error {
	if err != nil {
		return classify(op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, repository.ErrNotFound)
	}
	return nil
}

func nonNilIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
