package domain

import "time"

// Operation classifies a request for the chargeable policy.
type Operation string

const (
	OpReadAll Operation = "read-all"
	OpReadOne Operation = "read-one"
	OpCreate  Operation = "create"
	OpUpdate  Operation = "update"
	OpDelete  Operation = "delete"
	OpOther   Operation = "other"
)

// Outcome of a quota evaluation.
type Outcome string

const (
	OutcomeAdmitted Outcome = "admitted"
	OutcomeRejected Outcome = "rejected"
)

// ActionLogEntry records one quota evaluation.
type ActionLogEntry struct {
	ID           string    `json:"id"`
	PrincipalID  string    `json:"principalId"`
	Resource     string    `json:"resource"`
	Method       string    `json:"method"`
	Operation    Operation `json:"operation"`
	Chargeable   bool      `json:"chargeable"`
	Outcome      Outcome   `json:"outcome"`
	Reason       string    `json:"reason,omitempty"`
	MaxActions   int       `json:"maxActions"`
	NumOfActions int       `json:"numOfActions"`
	ActionDate   Date      `json:"actionDate"`
	CreatedAt    time.Time `json:"createdAt"`
}
