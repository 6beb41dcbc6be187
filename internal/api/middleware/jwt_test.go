package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "factorymanager.io/manager/internal/pkg/errors"
)

const principalID = "5f8d0d55b54764421b7156c9"

func TestJWTConfigValidateToken_Success(t *testing.T) {
	cfg := JWTConfig{
		SigningKey: []byte("test-signing-key-1234567890123456"),
		Issuer:     "factory-manager",
		ExpiresIn:  time.Hour,
	}

	token, expiresAt, err := GenerateToken(cfg, principalID, "Ada Lovelace")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := cfg.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, principalID, claims.PrincipalID)
	assert.Equal(t, "Ada Lovelace", claims.FullName)
	assert.NotEmpty(t, claims.ID)
	require.NotNil(t, claims.NotBefore)
}

func TestJWTConfigValidateToken_RejectsInvalidIssuer(t *testing.T) {
	issuerCfg := JWTConfig{
		SigningKey: []byte("issuer-key-123456789012345678901234"),
		Issuer:     "factory-manager",
		ExpiresIn:  time.Hour,
	}
	token, _, err := GenerateToken(issuerCfg, principalID, "Ada Lovelace")
	require.NoError(t, err)

	validatorCfg := JWTConfig{
		SigningKey: issuerCfg.SigningKey,
		Issuer:     "other-issuer",
	}
	_, err = validatorCfg.ValidateToken(context.Background(), token)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func TestJWTConfigValidateToken_SupportsVerificationKeyRotation(t *testing.T) {
	oldKey := []byte("old-key-123456789012345678901234567890")
	newKey := []byte("new-key-123456789012345678901234567890")

	token, _, err := GenerateToken(JWTConfig{
		SigningKey: oldKey,
		Issuer:     "factory-manager",
		ExpiresIn:  time.Hour,
	}, principalID, "Ada Lovelace")
	require.NoError(t, err)

	claims, err := JWTConfig{
		SigningKey:       newKey,
		VerificationKeys: [][]byte{oldKey},
		Issuer:           "factory-manager",
	}.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, principalID, claims.PrincipalID)

	_, err = JWTConfig{SigningKey: newKey, Issuer: "factory-manager"}.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestJWTConfigValidateToken_RejectsNoneSigningMethod(t *testing.T) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodNone, JWTClaims{
		PrincipalID: principalID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "factory-manager",
			Subject:   principalID,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = JWTConfig{
		SigningKey: []byte("signing-key-123456789012345678901234"),
		Issuer:     "factory-manager",
	}.ValidateToken(context.Background(), tokenString)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestJWTConfigValidateToken_RequiresSigningKey(t *testing.T) {
	token, _, err := GenerateToken(JWTConfig{
		SigningKey: []byte("key-to-sign-valid-token-1234567890123456"),
		Issuer:     "factory-manager",
		ExpiresIn:  time.Hour,
	}, principalID, "Ada Lovelace")
	require.NoError(t, err)

	_, err = JWTConfig{Issuer: "factory-manager"}.ValidateToken(context.Background(), token)
	require.Error(t, err)
	assert.ErrorIs(t, err, jwt.ErrTokenUnverifiable)
	assert.ErrorIs(t, err, ErrJWTSigningKeyMissing)
}

func TestJWTConfigVerify_MapsFailures(t *testing.T) {
	issued := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	now := issued
	cfg := JWTConfig{
		SigningKey: []byte("verify-key-1234567890123456789012345"),
		Issuer:     "factory-manager",
		ExpiresIn:  time.Hour,
		Now:        func() time.Time { return now },
	}
	token, _, err := cfg.Issue(principalID, "Ada Lovelace")
	require.NoError(t, err)

	id, err := cfg.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, principalID, id)

	_, err = cfg.Verify("not.a.token")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidCredential))

	now = issued.Add(2 * time.Hour)
	_, err = cfg.Verify(token)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeExpiredCredential))
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := bearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.want, got, tt.header)
	}
}
