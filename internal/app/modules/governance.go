package modules

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"

	"factorymanager.io/manager/internal/api/handlers"
	"factorymanager.io/manager/internal/api/middleware"
	"factorymanager.io/manager/internal/governance/access"
	"factorymanager.io/manager/internal/jobs"
	"factorymanager.io/manager/internal/quota"
	"factorymanager.io/manager/internal/service"
)

// GovernanceModule owns principals, the quota gate and the request authorizer.
type GovernanceModule struct {
	infra      *Infrastructure
	gate       *quota.Gate
	authorizer *access.Authorizer
	principals *service.PrincipalService
}

// NewGovernanceModule wires the quota gate against the infrastructure's quota store.
func NewGovernanceModule(infra *Infrastructure, jwtCfg middleware.JWTConfig) *GovernanceModule {
	cfg := infra.Config
	gate := quota.NewGate(infra.Store.Quota, infra.Location)
	return &GovernanceModule{
		infra:      infra,
		gate:       gate,
		authorizer: access.NewAuthorizer(jwtCfg, gate, infra.ActionLogs),
		principals: service.NewPrincipalService(infra.Store.Principals, gate, jwtCfg, infra.ActionLogs, service.PrincipalConfig{
			DefaultMaxActions: cfg.Quota.DefaultMaxActions,
			BcryptCost:        cfg.Security.BcryptCost,
		}),
	}
}

// Authorizer returns the request authorizer mounted on protected routes.
func (m *GovernanceModule) Authorizer() *access.Authorizer { return m.authorizer }

func (m *GovernanceModule) Name() string { return "governance" }

func (m *GovernanceModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	deps.Principals = m.principals
}

func (m *GovernanceModule) RegisterWorkers(workers *river.Workers) error {
	w := jobs.NewActionLogRetentionWorker(m.infra.ActionLogs, m.infra.Config.ActionLog.Retention)
	if err := river.AddWorkerSafely(workers, w); err != nil {
		return fmt.Errorf("register action log retention worker: %w", err)
	}
	return nil
}

func (m *GovernanceModule) Shutdown(context.Context) error { return nil }
