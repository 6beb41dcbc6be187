package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"factorymanager.io/manager/internal/api/handlers"
	"factorymanager.io/manager/internal/api/middleware"
	"factorymanager.io/manager/internal/config"
	"factorymanager.io/manager/internal/governance/access"
	apperrors "factorymanager.io/manager/internal/pkg/errors"
)

// APIBasePath prefixes every route.
const APIBasePath = "/api/v1"

var defaultAllowedOrigins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}

func newRouter(cfg *config.Config, server *handlers.Server, auth *access.Authorizer) (*gin.Engine, error) {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.ErrorHandler())
	router.Use(cors.New(buildCORSConfig(cfg)))

	if cfg.Server.OpenAPIValidation {
		validator, err := middleware.NewOpenAPIValidator(APIBasePath)
		if err != nil {
			return nil, fmt.Errorf("openapi validator: %w", err)
		}
		router.Use(validator)
	}

	v1 := router.Group(APIBasePath)
	server.RegisterPublic(v1)
	server.RegisterProtected(v1.Group("", middleware.Authorize(auth)))

	router.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperrors.NotFound(apperrors.CodeRouteNotFound, "Route not found"))
	})
	return router, nil
}

// buildCORSConfig drops wildcard origins unless explicitly allowed and
// falls back to the local allowlist when nothing is left. A wildcard never
// travels with credentials.
func buildCORSConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, middleware.QuotaRemainingHeader, "Retry-After"},
		AllowCredentials: cfg.Server.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}

	if cfg.Server.UnsafeAllowAllOrigins {
		c.AllowAllOrigins = true
		c.AllowCredentials = false
		return c
	}

	origins := make([]string, 0, len(cfg.Server.AllowedOrigins))
	for _, o := range cfg.Server.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "" || o == "*" {
			continue
		}
		origins = append(origins, o)
	}
	if len(origins) == 0 {
		origins = append(origins, defaultAllowedOrigins...)
	}
	c.AllowOrigins = origins
	return c
}
