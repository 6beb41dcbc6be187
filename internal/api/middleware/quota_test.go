package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/governance/access"
	"factorymanager.io/manager/internal/quota"
	"factorymanager.io/manager/internal/repository/memory"
	"factorymanager.io/manager/internal/repository/storetest"
)

func TestAuthorize_Middleware(t *testing.T) {
	mem := memory.New()
	gate := quota.NewGate(mem.Repositories().Quota, time.UTC)
	p := storetest.NewPrincipal(t, mem.Repositories(), "alice", 1, 1, domain.DateOf(time.Now(), time.UTC))
	jwtCfg := JWTConfig{
		SigningKey: []byte("middleware-key-12345678901234567890"),
		Issuer:     "factory-manager",
		ExpiresIn:  time.Hour,
	}
	token, _, err := jwtCfg.Issue(p.ID, p.FullName)
	require.NoError(t, err)

	router := gin.New()
	router.Use(RequestID(), ErrorHandler())
	api := router.Group("/api/v1", Authorize(access.NewAuthorizer(jwtCfg, gate, nil)))
	api.GET("/shifts", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"principal": GetPrincipalID(c.Request.Context())})
	})
	api.GET("/users/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"principal": GetPrincipalID(c.Request.Context())})
	})

	do := func(path, authHeader string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := do("/api/v1/shifts", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_CREDENTIAL")

	w = do("/api/v1/shifts", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), p.ID)
	assert.Equal(t, "0", w.Header().Get(QuotaRemainingHeader))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = do("/api/v1/shifts", "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "QUOTA_EXHAUSTED")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Identity resource still rejected once exhausted, but never charged.
	w = do("/api/v1/users/me", "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
