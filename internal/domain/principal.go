package domain

import "time"

// Principal is an authenticated user of the service. Its quota fields are
// mutated only by the quota gate.
type Principal struct {
	ID               string    `json:"id"`
	FullName         string    `json:"fullName"`
	Username         string    `json:"username"`
	PasswordHash     string    `json:"-"`
	MaxActionsPerDay int       `json:"maxActionsPerDay"`
	NumOfActions     int       `json:"numOfActions"`
	LastActionDate   Date      `json:"lastActionDate"`
	CreatedAt        time.Time `json:"createdAt"`
}

// QuotaState is the per-principal counter persisted by the quota store.
type QuotaState struct {
	PrincipalID      string
	MaxActionsPerDay int
	NumOfActions     int
	LastActionDate   Date
}

// Exhausted reports whether no actions remain.
func (q QuotaState) Exhausted() bool {
	return q.NumOfActions <= 0
}

// Stale reports whether the counter belongs to a day other than today.
func (q QuotaState) Stale(today Date) bool {
	return !q.LastActionDate.Equal(today)
}
