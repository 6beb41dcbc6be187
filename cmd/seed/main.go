// Package main seeds principals, departments, employees and shifts from a
// YAML file. Running it twice with the same file changes nothing.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"factorymanager.io/manager/internal/config"
	"factorymanager.io/manager/internal/infrastructure"
	"factorymanager.io/manager/internal/pkg/logger"
	"factorymanager.io/manager/internal/quota"
	"factorymanager.io/manager/internal/repository/postgres"
	"factorymanager.io/manager/internal/service"
	"factorymanager.io/manager/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	path := flag.String("f", "seed.yaml", "seed file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	file, err := loadSeedFile(*path)
	if err != nil {
		return err
	}

	ctx := context.Background()

	db, err := infrastructure.NewDatabaseClients(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if _, err := infrastructure.MigrateSchema(ctx, db.Pool); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}

	loc, err := cfg.Quota.Location()
	if err != nil {
		return fmt.Errorf("quota timezone: %w", err)
	}
	store := postgres.NewStore(db.Pool)
	gate := quota.NewGate(store.Quota, loc)
	coord := usecase.NewCoordinator(store)

	s := &seeder{
		principals: service.NewPrincipalService(store.Principals, gate, nil, nil, service.PrincipalConfig{
			DefaultMaxActions: cfg.Quota.DefaultMaxActions,
			BcryptCost:        cfg.Security.BcryptCost,
		}),
		departments: service.NewDepartmentService(store, coord),
		employees:   service.NewEmployeeService(store, coord),
		shifts:      service.NewShiftService(store, coord),
	}

	logger.Info("Starting data seeding...", zap.String("file", *path))
	sum, err := s.apply(ctx, file)
	if err != nil {
		return err
	}
	logger.Info("Data seeding completed successfully",
		zap.Int("principals_created", sum.Principals),
		zap.Int("departments_created", sum.Departments),
		zap.Int("employees_created", sum.Employees),
		zap.Int("shifts_created", sum.Shifts),
		zap.Int("assignments", sum.Assignments),
	)
	return nil
}

func loadSeedFile(path string) (*SeedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var file SeedFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return &file, nil
}
