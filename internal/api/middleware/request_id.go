package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"factorymanager.io/manager/internal/pkg/logger"
)

type contextKey string

const (
	// RequestIDHeader is the HTTP header for request tracing.
	RequestIDHeader = "X-Request-ID"

	ctxKeyRequestID   contextKey = "request_id"
	ctxKeyPrincipalID contextKey = "principal_id"
)

// RequestID injects a unique request ID into the context and response header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			id, _ := uuid.NewV7()
			rid = id.String()
		}
		c.Set(string(ctxKeyRequestID), rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		ctx := context.WithValue(c.Request.Context(), ctxKeyRequestID, rid)
		ctx = logger.ContextWith(ctx, zap.String("request_id", rid))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetRequestID extracts request ID from context.
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// SetPrincipalContext stores the authenticated principal in ctx.
func SetPrincipalContext(ctx context.Context, principalID string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyPrincipalID, principalID)
	return logger.ContextWith(ctx, zap.String("principal_id", principalID))
}

// GetPrincipalID extracts the authenticated principal id from context.
func GetPrincipalID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyPrincipalID).(string); ok {
		return v
	}
	return ""
}
