package modules

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"

	"factorymanager.io/manager/internal/api/handlers"
	"factorymanager.io/manager/internal/jobs"
	"factorymanager.io/manager/internal/service"
	"factorymanager.io/manager/internal/usecase"
)

// WorkforceModule owns departments, employees, shifts and the relationship
// coordinator that keeps their references consistent.
type WorkforceModule struct {
	infra       *Infrastructure
	coord       *usecase.Coordinator
	departments *service.DepartmentService
	employees   *service.EmployeeService
	shifts      *service.ShiftService
}

// NewWorkforceModule creates the coordinator and the entity services.
func NewWorkforceModule(infra *Infrastructure) *WorkforceModule {
	coord := usecase.NewCoordinator(infra.Store)
	return &WorkforceModule{
		infra:       infra,
		coord:       coord,
		departments: service.NewDepartmentService(infra.Store, coord),
		employees:   service.NewEmployeeService(infra.Store, coord),
		shifts:      service.NewShiftService(infra.Store, coord),
	}
}

func (m *WorkforceModule) Name() string { return "workforce" }

func (m *WorkforceModule) ContributeServerDeps(deps *handlers.ServerDeps) {
	deps.Departments = m.departments
	deps.Employees = m.employees
	deps.Shifts = m.shifts
}

func (m *WorkforceModule) RegisterWorkers(workers *river.Workers) error {
	if err := river.AddWorkerSafely(workers, jobs.NewMirrorRepairWorker(m.coord)); err != nil {
		return fmt.Errorf("register mirror repair worker: %w", err)
	}
	if err := river.AddWorkerSafely(workers, jobs.NewReferenceSweepWorker(m.infra.Store.Sweeper)); err != nil {
		return fmt.Errorf("register reference sweep worker: %w", err)
	}
	return nil
}

// AttachRiver routes partial assignments to the mirror repair queue.
func (m *WorkforceModule) AttachRiver(inserter RiverInserter) {
	m.coord.SetRepairScheduler(jobs.NewRiverRepairScheduler(inserter))
}

func (m *WorkforceModule) Shutdown(context.Context) error { return nil }
