package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"factorymanager.io/manager/internal/domain"
)

// PrincipalRepo implements repository.PrincipalRepository.
type PrincipalRepo struct {
	q querier
}

const principalColumns = `id, full_name, username, password_hash, max_actions_per_day, num_of_actions, last_action_date, created_at`

func scanPrincipal(row pgx.Row) (*domain.Principal, error) {
	var (
		p    domain.Principal
		last time.Time
	)
	if err := row.Scan(&p.ID, &p.FullName, &p.Username, &p.PasswordHash,
		&p.MaxActionsPerDay, &p.NumOfActions, &last, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.LastActionDate = domain.DateFromTime(last)
	return &p, nil
}

func (r *PrincipalRepo) Create(ctx context.Context, p *domain.Principal) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO principals (id, full_name, username, password_hash, max_actions_per_day, num_of_actions, last_action_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		p.ID, p.FullName, p.Username, p.PasswordHash, p.MaxActionsPerDay, p.NumOfActions, p.LastActionDate.Time(),
	).Scan(&p.CreatedAt)
	return classify("create principal", err)
}

func (r *PrincipalRepo) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	p, err := scanPrincipal(r.q.QueryRow(ctx, `SELECT `+principalColumns+` FROM principals WHERE id = $1`, id))
	return p, classify("get principal", err)
}

func (r *PrincipalRepo) GetByUsername(ctx context.Context, username string) (*domain.Principal, error) {
	p, err := scanPrincipal(r.q.QueryRow(ctx, `SELECT `+principalColumns+` FROM principals WHERE username = $1`, username))
	return p, classify("get principal by username", err)
}

func (r *PrincipalRepo) List(ctx context.Context) ([]*domain.Principal, error) {
	rows, err := r.q.Query(ctx, `SELECT `+principalColumns+` FROM principals ORDER BY username`)
	if err != nil {
		return nil, classify("list principals", err)
	}
	defer rows.Close()

	out := []*domain.Principal{}
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, classify("scan principal", err)
		}
		out = append(out, p)
	}
	return out, classify("list principals", rows.Err())
}

// QuotaRepo implements repository.QuotaStore on the principals table.
type QuotaRepo struct {
	q querier
}

func scanQuota(row pgx.Row) (domain.QuotaState, error) {
	var (
		s    domain.QuotaState
		last time.Time
	)
	if err := row.Scan(&s.PrincipalID, &s.MaxActionsPerDay, &s.NumOfActions, &last); err != nil {
		return domain.QuotaState{}, err
	}
	s.LastActionDate = domain.DateFromTime(last)
	return s, nil
}

func (r *QuotaRepo) ResetIfStale(ctx context.Context, principalID string, today domain.Date) (domain.QuotaState, error) {
	// Compare-and-set keyed on the stored date: only one concurrent caller
	// per day can match, and a caller whose clock is behind never refills
	// a counter already moved to a later day.
	s, err := scanQuota(r.q.QueryRow(ctx, `
		UPDATE principals
		SET num_of_actions = max_actions_per_day, last_action_date = $2
		WHERE id = $1 AND last_action_date < $2
		RETURNING id, max_actions_per_day, num_of_actions, last_action_date`,
		principalID, today.Time(),
	))
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.QuotaState{}, classify("reset quota", err)
	}

	// Not stale (or unknown principal). A fresh statement sees the latest commit.
	s, err = scanQuota(r.q.QueryRow(ctx, `
		SELECT id, max_actions_per_day, num_of_actions, last_action_date
		FROM principals WHERE id = $1`, principalID))
	return s, classify("read quota", err)
}

func (r *QuotaRepo) Consume(ctx context.Context, principalID string) (domain.QuotaState, bool, error) {
	s, err := scanQuota(r.q.QueryRow(ctx, `
		UPDATE principals
		SET num_of_actions = num_of_actions - 1
		WHERE id = $1 AND num_of_actions > 0
		RETURNING id, max_actions_per_day, num_of_actions, last_action_date`,
		principalID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuotaState{PrincipalID: principalID}, false, nil
	}
	if err != nil {
		return domain.QuotaState{}, false, classify("consume quota", err)
	}
	return s, true, nil
}
