// Package service provides business logic services for the factory manager.
//
// Services validate input, call the store or the relationship coordinator
// and map store failures onto AppErrors. They never manage transactions.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"factorymanager.io/manager/internal/domain"
	apperrors "factorymanager.io/manager/internal/pkg/errors"
	"factorymanager.io/manager/internal/pkg/logger"
	"factorymanager.io/manager/internal/repository"
)

// DefaultActionHistoryLimit bounds Actions when no limit is given.
const DefaultActionHistoryLimit = 50

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(principalID, fullName string) (token string, expiresAt time.Time, err error)
}

// QuotaRefresher runs the quota reset check without charging.
type QuotaRefresher interface {
	Refresh(ctx context.Context, principalID string) (domain.QuotaState, error)
	Today() domain.Date
}

// ActionHistory reads the action log.
type ActionHistory interface {
	Recent(ctx context.Context, principalID string, limit int) ([]*domain.ActionLogEntry, error)
}

// PrincipalConfig holds registration defaults.
type PrincipalConfig struct {
	DefaultMaxActions int
	BcryptCost        int
}

// LoginResult is returned by Login.
type LoginResult struct {
	Token            string    `json:"token"`
	FullName         string    `json:"fullName"`
	MaxActionsPerDay int       `json:"maxActionsPerDay"`
	NumOfActions     int       `json:"numOfActions"`
	ExpiresAt        time.Time `json:"-"`
}

// PrincipalService handles registration, login and the identity resource.
type PrincipalService struct {
	principals repository.PrincipalRepository
	quota      QuotaRefresher
	tokens     TokenIssuer
	history    ActionHistory
	cfg        PrincipalConfig
}

// NewPrincipalService creates a PrincipalService.
func NewPrincipalService(
	principals repository.PrincipalRepository,
	quota QuotaRefresher,
	tokens TokenIssuer,
	history ActionHistory,
	cfg PrincipalConfig,
) *PrincipalService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &PrincipalService{
		principals: principals,
		quota:      quota,
		tokens:     tokens,
		history:    history,
		cfg:        cfg,
	}
}

func principalNotFound(id string) func() *apperrors.AppError {
	return func() *apperrors.AppError { return apperrors.ErrPrincipalNotFound(id) }
}

// Register creates a principal with a full quota for today.
func (s *PrincipalService) Register(ctx context.Context, in domain.RegisterInput) (*domain.Principal, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	hash, err := HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	id, err := domain.NewID()
	if err != nil {
		return nil, err
	}

	maxActions := s.cfg.DefaultMaxActions
	if in.MaxActionsPerDay != nil {
		maxActions = *in.MaxActionsPerDay
	}
	p := &domain.Principal{
		ID:               id,
		FullName:         in.FullName,
		Username:         in.Username,
		PasswordHash:     hash,
		MaxActionsPerDay: maxActions,
		NumOfActions:     maxActions,
		LastActionDate:   s.quota.Today(),
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.principals.Create(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.ErrUsernameTaken(in.Username)
		}
		return nil, repository.AppError(err, nil)
	}

	logger.FromContext(ctx).Info("Principal registered",
		zap.String("principal_id", p.ID),
		zap.String("username", p.Username),
		zap.Int("max_actions_per_day", p.MaxActionsPerDay),
	)
	return p, nil
}

// Login checks the password, runs the quota reset check and issues a
// session token. Logging in never consumes quota.
func (s *PrincipalService) Login(ctx context.Context, in domain.LoginInput) (*LoginResult, error) {
	if err := domain.Validate(in); err != nil {
		return nil, err
	}
	p, err := s.principals.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, repository.AppError(err, principalNotFound(in.Username))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(in.Password)); err != nil {
		logger.FromContext(ctx).Info("Login rejected: wrong password", zap.String("principal_id", p.ID))
		return nil, apperrors.ErrWrongPassword()
	}

	state, err := s.quota.Refresh(ctx, p.ID)
	if err != nil {
		return nil, repository.AppError(err, principalNotFound(p.ID))
	}
	token, expiresAt, err := s.tokens.Issue(p.ID, p.FullName)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &LoginResult{
		Token:            token,
		FullName:         p.FullName,
		MaxActionsPerDay: state.MaxActionsPerDay,
		NumOfActions:     state.NumOfActions,
		ExpiresAt:        expiresAt,
	}, nil
}

// List returns every principal.
func (s *PrincipalService) List(ctx context.Context) ([]*domain.Principal, error) {
	ps, err := s.principals.List(ctx)
	if err != nil {
		return nil, repository.AppError(err, nil)
	}
	return ps, nil
}

// Me returns the principal with its current quota state.
func (s *PrincipalService) Me(ctx context.Context, principalID string) (*domain.Principal, error) {
	p, err := s.principals.GetByID(ctx, principalID)
	if err != nil {
		return nil, repository.AppError(err, principalNotFound(principalID))
	}
	state, err := s.quota.Refresh(ctx, principalID)
	if err != nil {
		return nil, repository.AppError(err, principalNotFound(principalID))
	}
	p.MaxActionsPerDay = state.MaxActionsPerDay
	p.NumOfActions = state.NumOfActions
	p.LastActionDate = state.LastActionDate
	return p, nil
}

// Actions returns the caller's own action log, newest first.
func (s *PrincipalService) Actions(ctx context.Context, callerID, principalID string, limit int) ([]*domain.ActionLogEntry, error) {
	if err := domain.ValidateID("id", principalID); err != nil {
		return nil, err
	}
	if callerID != principalID {
		return nil, apperrors.Forbidden(apperrors.CodeForbidden, "action history is only visible to its owner")
	}
	if limit <= 0 {
		limit = DefaultActionHistoryLimit
	}
	entries, err := s.history.Recent(ctx, principalID, limit)
	if err != nil {
		return nil, repository.AppError(err, nil)
	}
	return entries, nil
}

// HashPassword hashes a password with bcrypt.
func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
