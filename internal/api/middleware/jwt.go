package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "factorymanager.io/manager/internal/pkg/errors"
)

// ErrJWTSigningKeyMissing is returned when no key is configured to verify tokens.
var ErrJWTSigningKeyMissing = errors.New("jwt signing key is not configured")

// JWTClaims are the claims of a session token.
type JWTClaims struct {
	PrincipalID string `json:"id"`
	FullName    string `json:"fullName"`
	jwt.RegisteredClaims
}

// JWTConfig holds JWT signing configuration.
type JWTConfig struct {
	SigningKey []byte
	// VerificationKeys are previous signing keys still accepted during rotation.
	VerificationKeys [][]byte
	Issuer           string
	ExpiresIn        time.Duration
	// Now overrides the clock for issuing and validating.
	Now func() time.Time
}

func (cfg JWTConfig) now() time.Time {
	if cfg.Now != nil {
		return cfg.Now()
	}
	return time.Now()
}

// GenerateToken creates a signed JWT for the given principal.
func GenerateToken(cfg JWTConfig, principalID, fullName string) (string, time.Time, error) {
	if len(cfg.SigningKey) == 0 {
		return "", time.Time{}, ErrJWTSigningKeyMissing
	}
	now := cfg.now()
	expiresAt := now.Add(cfg.ExpiresIn)

	jti, err := newTokenID()
	if err != nil {
		return "", time.Time{}, err
	}
	claims := JWTClaims{
		PrincipalID: principalID,
		FullName:    fullName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			Subject:   principalID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(cfg.SigningKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return tokenString, expiresAt, nil
}

// Issue implements service.TokenIssuer.
func (cfg JWTConfig) Issue(principalID, fullName string) (string, time.Time, error) {
	return GenerateToken(cfg, principalID, fullName)
}

// ValidateToken parses tokenString and checks signature, issuer and expiry.
// The signing key is tried first, then each verification key.
func (cfg JWTConfig) ValidateToken(_ context.Context, tokenString string) (*JWTClaims, error) {
	keys := make([][]byte, 0, 1+len(cfg.VerificationKeys))
	if len(cfg.SigningKey) > 0 {
		keys = append(keys, cfg.SigningKey)
	}
	for _, k := range cfg.VerificationKeys {
		if len(k) > 0 {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: %w", jwt.ErrTokenUnverifiable, ErrJWTSigningKeyMissing)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(cfg.now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	var lastErr error
	for _, key := range keys {
		claims := &JWTClaims{}
		_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return key, nil
		}, opts...)
		if err == nil {
			return claims, nil
		}
		lastErr = err
		if !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			break
		}
	}
	return nil, lastErr
}

// Verify implements access.CredentialVerifier.
func (cfg JWTConfig) Verify(tokenString string) (string, error) {
	claims, err := cfg.ValidateToken(context.Background(), tokenString)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", apperrors.ErrExpiredCredential(err)
		}
		return "", apperrors.ErrInvalidCredential(err)
	}
	if claims.PrincipalID == "" {
		return "", apperrors.ErrInvalidCredential(errors.New("token carries no principal id"))
	}
	return claims.PrincipalID, nil
}

func newTokenID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}
	return id.String(), nil
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
