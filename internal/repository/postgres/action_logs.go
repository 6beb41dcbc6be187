package postgres

import (
	"context"
	"time"

	"factorymanager.io/manager/internal/domain"
)

// ActionLogRepo implements repository.ActionLogRepository.
type ActionLogRepo struct {
	q querier
}

func (r *ActionLogRepo) Append(ctx context.Context, e *domain.ActionLogEntry) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO action_logs (id, principal_id, resource, method, operation, chargeable, outcome, reason,
			max_actions, num_of_actions, action_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		e.ID, e.PrincipalID, e.Resource, e.Method, string(e.Operation), e.Chargeable, string(e.Outcome), e.Reason,
		e.MaxActions, e.NumOfActions, e.ActionDate.Time(), e.CreatedAt,
	)
	return classify("append action log", err)
}

func (r *ActionLogRepo) ListByPrincipal(ctx context.Context, principalID string, limit int) ([]*domain.ActionLogEntry, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, principal_id, resource, method, operation, chargeable, outcome, reason,
			max_actions, num_of_actions, action_date, created_at
		FROM action_logs
		WHERE principal_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, principalID, limit)
	if err != nil {
		return nil, classify("list action logs", err)
	}
	defer rows.Close()

	out := []*domain.ActionLogEntry{}
	for rows.Next() {
		var (
			e         domain.ActionLogEntry
			operation string
			outcome   string
			date      time.Time
		)
		if err := rows.Scan(&e.ID, &e.PrincipalID, &e.Resource, &e.Method, &operation, &e.Chargeable, &outcome,
			&e.Reason, &e.MaxActions, &e.NumOfActions, &date, &e.CreatedAt); err != nil {
			return nil, classify("scan action log", err)
		}
		e.Operation = domain.Operation(operation)
		e.Outcome = domain.Outcome(outcome)
		e.ActionDate = domain.DateFromTime(date)
		out = append(out, &e)
	}
	return out, classify("list action logs", rows.Err())
}

func (r *ActionLogRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM action_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, classify("delete action logs", err)
	}
	return tag.RowsAffected(), nil
}
