// Package middleware provides HTTP middleware for the factory manager API.
package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "factorymanager.io/manager/internal/pkg/errors"
	"factorymanager.io/manager/internal/pkg/logger"
)

// ErrorHandler renders the last error added via c.Error() as
// {code, message, params, field_errors, retryable}.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		log := logger.FromContext(c.Request.Context())

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			fields := []zap.Field{
				zap.String("code", appErr.Code),
				zap.String("message", appErr.Message),
				zap.Int("status", appErr.HTTPStatus),
				zap.Error(appErr.Err),
			}
			if appErr.HTTPStatus >= http.StatusInternalServerError {
				log.Error("Request error", fields...)
			} else {
				log.Warn("Request error", fields...)
			}
			if appErr.Code == apperrors.CodeQuotaExhausted {
				setRetryAfter(c, appErr)
			}
			c.JSON(appErr.HTTPStatus, appErr)
			return
		}

		log.Error("Unhandled request error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    apperrors.CodeInternal,
			"message": "An internal error occurred",
		})
	}
}

func setRetryAfter(c *gin.Context, appErr *apperrors.AppError) {
	raw, _ := appErr.Params["reset_at"].(string)
	resetAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return
	}
	secs := int(math.Ceil(time.Until(resetAt).Seconds()))
	if secs < 1 {
		secs = 1
	}
	c.Header("Retry-After", strconv.Itoa(secs))
}
