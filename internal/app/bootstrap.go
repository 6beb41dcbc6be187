// Package app is the composition root. Bootstrap only orchestrates; the
// wiring of each slice lives in package modules.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/riverqueue/river"

	"factorymanager.io/manager/internal/api/handlers"
	"factorymanager.io/manager/internal/app/modules"
	"factorymanager.io/manager/internal/config"
	"factorymanager.io/manager/internal/infrastructure"
	"factorymanager.io/manager/internal/jobs"
	"factorymanager.io/manager/internal/pkg/worker"
)

// Application holds composed application dependencies.
type Application struct {
	Config  *config.Config
	Router  *gin.Engine
	DB      *infrastructure.DatabaseClients
	Infra   *modules.Infrastructure
	Pools   *worker.Pools
	Modules []modules.Module
}

// Bootstrap initializes all dependencies using module-oriented manual DI.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Application, error) {
	infra, err := modules.NewInfrastructure(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init infrastructure: %w", err)
	}

	governance := modules.NewGovernanceModule(infra, modules.NewJWTConfig(cfg))
	allModules := []modules.Module{
		governance,
		modules.NewWorkforceModule(infra),
	}

	workers := river.NewWorkers()
	for _, mod := range allModules {
		if err := mod.RegisterWorkers(workers); err != nil {
			infra.Close()
			return nil, fmt.Errorf("register %s workers: %w", mod.Name(), err)
		}
	}
	if err := infra.InitRiver(workers, jobs.PeriodicJobs(cfg.River.SweepInterval)); err != nil {
		infra.Close()
		return nil, fmt.Errorf("init river workers: %w", err)
	}
	for _, mod := range allModules {
		if aware, ok := mod.(modules.RiverAware); ok {
			aware.AttachRiver(infra.RiverClient)
		}
	}

	server := handlers.NewServer(modules.NewServerDeps(infra, allModules))
	router, err := newRouter(cfg, server, governance.Authorizer())
	if err != nil {
		infra.Close()
		return nil, fmt.Errorf("build router: %w", err)
	}

	return &Application{
		Config:  cfg,
		Router:  router,
		DB:      infra.DB,
		Infra:   infra,
		Pools:   infra.Pools,
		Modules: allModules,
	}, nil
}
