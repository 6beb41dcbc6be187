// Package access implements the request authorizer: credential
// verification, then the quota gate, then the action log.
package access

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"factorymanager.io/manager/internal/domain"
	apperrors "factorymanager.io/manager/internal/pkg/errors"
	"factorymanager.io/manager/internal/pkg/logger"
	"factorymanager.io/manager/internal/quota"
	"factorymanager.io/manager/internal/repository"
)

// CredentialVerifier resolves a bearer token to a principal id. It returns
// an InvalidCredential or ExpiredCredential AppError on failure.
type CredentialVerifier interface {
	Verify(token string) (principalID string, err error)
}

// ActionSink receives one entry per evaluation. Append must not block.
type ActionSink interface {
	Append(entry domain.ActionLogEntry)
}

// Evaluator is the quota gate contract used here.
type Evaluator interface {
	Evaluate(ctx context.Context, principalID string, chargeable bool) (quota.Decision, error)
}

// Authorizer is the only hot-path caller of the quota gate.
type Authorizer struct {
	verifier CredentialVerifier
	gate     Evaluator
	actions  ActionSink
}

// NewAuthorizer creates an Authorizer. actions may be nil.
func NewAuthorizer(verifier CredentialVerifier, gate Evaluator, actions ActionSink) *Authorizer {
	return &Authorizer{verifier: verifier, gate: gate, actions: actions}
}

// Authorize verifies token and charges the request. It returns the
// admitted principal id and the decision.
func (a *Authorizer) Authorize(ctx context.Context, token, resourcePath, method, route string) (string, quota.Decision, error) {
	principalID, err := a.verifier.Verify(token)
	if err != nil {
		if _, ok := apperrors.IsAppError(err); ok {
			return "", quota.Decision{}, err
		}
		return "", quota.Decision{}, apperrors.ErrInvalidCredential(err)
	}
	dec, err := a.AuthorizeAndCharge(ctx, principalID, resourcePath, method, route)
	return principalID, dec, err
}

// AuthorizeAndCharge classifies the request, evaluates it against the
// principal's quota and records the outcome. It returns nil when admitted
// and a QuotaExhausted AppError when rejected.
func (a *Authorizer) AuthorizeAndCharge(ctx context.Context, principalID, resourcePath, method, route string) (quota.Decision, error) {
	op := quota.ClassifyRequest(method, route)
	chargeable := quota.Chargeable(op, resourcePath)
	log := logger.FromContext(ctx)

	dec, err := a.gate.Evaluate(ctx, principalID, chargeable)
	if err != nil {
		a.record(principalID, resourcePath, method, op, chargeable, dec, quota.ReasonStoreError)
		if errors.Is(err, repository.ErrNotFound) {
			// Token outlived its principal.
			return dec, apperrors.ErrInvalidCredential(err)
		}
		log.Error("Quota evaluation failed",
			zap.String("principal_id", principalID),
			zap.String("resource", resourcePath),
			zap.Error(err),
		)
		return dec, repository.AppError(err, nil)
	}

	a.record(principalID, resourcePath, method, op, chargeable, dec, dec.Reason)
	if !dec.Admitted {
		log.Info("Request rejected: quota exhausted",
			zap.String("principal_id", principalID),
			zap.String("method", method),
			zap.String("resource", resourcePath),
			zap.Int("max_actions", dec.MaxActions),
		)
		return dec, apperrors.ErrQuotaExhausted(principalID, dec.ResetAt)
	}
	return dec, nil
}

func (a *Authorizer) record(principalID, resource, method string, op domain.Operation, chargeable bool, dec quota.Decision, reason string) {
	if a.actions == nil {
		return
	}
	outcome := domain.OutcomeRejected
	if dec.Admitted {
		outcome = domain.OutcomeAdmitted
		reason = ""
	}
	a.actions.Append(domain.ActionLogEntry{
		PrincipalID:  principalID,
		Resource:     resource,
		Method:       method,
		Operation:    op,
		Chargeable:   chargeable,
		Outcome:      outcome,
		Reason:       reason,
		MaxActions:   dec.MaxActions,
		NumOfActions: dec.Remaining,
		ActionDate:   dec.Today,
	})
}
