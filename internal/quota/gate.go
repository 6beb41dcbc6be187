// Package quota implements the per-principal daily action quota.
//
// A principal holds one counter, numOfActions, refilled to maxActionsPerDay
// the first time it is evaluated on a new calendar day. There is no
// background timer: every evaluation runs the reset check first.
//
// All mutations are single-record atomic store operations:
//
//	ResetIfStale  compare-and-set keyed on the stored date
//	Consume       conditional decrement ("decrement if > 0")
//
// so concurrent evaluations for one principal serialize in the store and
// the counter never goes below zero or above the maximum.
package quota

import (
	"context"
	"time"

	"go.uber.org/zap"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/pkg/logger"
	"factorymanager.io/manager/internal/repository"
)

// Rejection reasons recorded in the action log.
const (
	ReasonExhausted  = "quota exhausted"
	ReasonLostRace   = "quota exhausted by concurrent request"
	ReasonStoreError = "quota store error"
)

// Decision is the outcome of one evaluation.
type Decision struct {
	PrincipalID string
	Admitted    bool
	Chargeable  bool
	Reason      string
	// Remaining is numOfActions after the decision.
	Remaining  int
	MaxActions int
	Today      domain.Date
	// ResetAt is the start of the next day in the gate's timezone.
	ResetAt time.Time
}

// Gate evaluates requests against the quota store.
type Gate struct {
	store repository.QuotaStore
	loc   *time.Location
	now   func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// NewGate creates a Gate. loc decides where calendar days begin; nil means UTC.
func NewGate(store repository.QuotaStore, loc *time.Location, opts ...Option) *Gate {
	if loc == nil {
		loc = time.UTC
	}
	g := &Gate{store: store, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Today returns the current calendar date in the gate's timezone.
func (g *Gate) Today() domain.Date {
	return domain.DateOf(g.now(), g.loc)
}

// Evaluate runs the reset check, the exhaustion check and, for chargeable
// requests, the conditional decrement. A rejection is a Decision with
// Admitted false; the error is reserved for store failures, in which case
// nothing was charged.
func (g *Gate) Evaluate(ctx context.Context, principalID string, chargeable bool) (Decision, error) {
	today := g.Today()
	dec := Decision{
		PrincipalID: principalID,
		Chargeable:  chargeable,
		Today:       today,
		ResetAt:     today.AddDays(1).StartIn(g.loc),
	}

	state, err := g.store.ResetIfStale(ctx, principalID, today)
	if err != nil {
		return dec, err
	}
	dec.MaxActions = state.MaxActionsPerDay
	dec.Remaining = state.NumOfActions

	if state.Exhausted() {
		dec.Reason = ReasonExhausted
		return dec, nil
	}
	if !chargeable {
		dec.Admitted = true
		return dec, nil
	}

	after, ok, err := g.store.Consume(ctx, principalID)
	if err != nil {
		return dec, err
	}
	if !ok {
		logger.FromContext(ctx).Debug("Quota decrement lost race",
			zap.String("principal_id", principalID),
		)
		dec.Remaining = 0
		dec.Reason = ReasonLostRace
		return dec, nil
	}
	dec.Admitted = true
	dec.Remaining = after.NumOfActions
	dec.MaxActions = after.MaxActionsPerDay
	return dec, nil
}

// Refresh runs only the reset check and returns the current state. Login
// and the identity routes use it to report quota without charging.
func (g *Gate) Refresh(ctx context.Context, principalID string) (domain.QuotaState, error) {
	return g.store.ResetIfStale(ctx, principalID, g.Today())
}
