package modules

import (
	"strings"

	"factorymanager.io/manager/internal/api/handlers"
	"factorymanager.io/manager/internal/api/middleware"
	"factorymanager.io/manager/internal/config"
)

// NewJWTConfig builds the token settings from security and session config.
func NewJWTConfig(cfg *config.Config) middleware.JWTConfig {
	verificationKeys := make([][]byte, 0, len(cfg.Security.JWTVerificationKeys))
	for _, key := range cfg.Security.JWTVerificationKeys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		verificationKeys = append(verificationKeys, []byte(key))
	}
	return middleware.JWTConfig{
		SigningKey:       []byte(cfg.Security.SessionSecret),
		VerificationKeys: verificationKeys,
		Issuer:           cfg.Session.Issuer,
		ExpiresIn:        cfg.Session.Lifetime,
	}
}

// NewServerDeps builds base server deps then lets each module contribute its services.
func NewServerDeps(infra *Infrastructure, mods []Module) handlers.ServerDeps {
	deps := handlers.ServerDeps{
		Readiness: infra.Readiness(),
	}
	for _, mod := range mods {
		if mod == nil {
			continue
		}
		mod.ContributeServerDeps(&deps)
	}
	return deps
}
