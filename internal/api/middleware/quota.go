package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"factorymanager.io/manager/internal/governance/access"
	apperrors "factorymanager.io/manager/internal/pkg/errors"
)

// QuotaRemainingHeader reports numOfActions after the request was charged.
const QuotaRemainingHeader = "X-Quota-Remaining"

var errMissingBearer = errors.New("missing or malformed bearer authorization header")

// Authorize verifies the bearer token and charges the request against the
// principal's daily quota. Rejected requests are aborted with the error
// left for ErrorHandler.
func Authorize(auth *access.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			_ = c.Error(apperrors.ErrInvalidCredential(errMissingBearer))
			c.Abort()
			return
		}

		principalID, dec, err := auth.Authorize(c.Request.Context(), token, c.Request.URL.Path, c.Request.Method, c.FullPath())
		if dec.Admitted || apperrors.HasCode(err, apperrors.CodeQuotaExhausted) {
			c.Header(QuotaRemainingHeader, strconv.Itoa(dec.Remaining))
		}
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(string(ctxKeyPrincipalID), principalID)
		c.Request = c.Request.WithContext(SetPrincipalContext(c.Request.Context(), principalID))
		c.Next()
	}
}
