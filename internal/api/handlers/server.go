// Package handlers implements the HTTP handlers of the factory manager API.
//
// Handlers bind parameters, call a service and render the result. Errors are
// attached with c.Error and rendered by middleware.ErrorHandler.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"factorymanager.io/manager/internal/service"
)

// ReadinessCheck reports whether one dependency is reachable.
type ReadinessCheck func(ctx context.Context) error

// Server holds the services behind the API.
type Server struct {
	principals  *service.PrincipalService
	departments *service.DepartmentService
	employees   *service.EmployeeService
	shifts      *service.ShiftService
	readiness   map[string]ReadinessCheck
}

// ServerDeps holds all dependencies for creating a Server.
type ServerDeps struct {
	Principals  *service.PrincipalService
	Departments *service.DepartmentService
	Employees   *service.EmployeeService
	Shifts      *service.ShiftService
	// Readiness maps a dependency name to its probe.
	Readiness map[string]ReadinessCheck
}

// NewServer creates a new Server with all dependencies.
func NewServer(deps ServerDeps) *Server {
	return &Server{
		principals:  deps.Principals,
		departments: deps.Departments,
		employees:   deps.Employees,
		shifts:      deps.Shifts,
		readiness:   deps.Readiness,
	}
}

// RegisterPublic mounts the routes that need no credential.
func (s *Server) RegisterPublic(r gin.IRoutes) {
	r.GET("/health/live", s.GetLiveness)
	r.GET("/health/ready", s.GetReadiness)
	r.POST("/users/register", s.Register)
	r.POST("/users/login", s.Login)
}

// RegisterProtected mounts the routes served behind Authorize.
func (s *Server) RegisterProtected(r gin.IRoutes) {
	r.GET("/users", s.ListUsers)
	r.GET("/users/me", s.GetCurrentUser)
	r.GET("/users/:id/actions", s.ListUserActions)

	r.GET("/departments", s.ListDepartments)
	r.POST("/departments", s.CreateDepartment)
	r.GET("/departments/:id", s.GetDepartment)
	r.PUT("/departments/:id", s.UpdateDepartment)
	r.DELETE("/departments/:id", s.DeleteDepartment)

	r.GET("/employees", s.ListEmployees)
	r.POST("/employees", s.CreateEmployee)
	r.GET("/employees/:id", s.GetEmployee)
	r.PUT("/employees/:id", s.UpdateEmployee)
	r.DELETE("/employees/:id", s.DeleteEmployee)
	r.PUT("/employees/:id/department", s.ReassignEmployeeDepartment)
	r.POST("/employees/:id/shifts/:shiftId", s.AssignEmployeeShift)
	r.DELETE("/employees/:id/shifts/:shiftId", s.UnassignEmployeeShift)

	r.GET("/shifts", s.ListShifts)
	r.POST("/shifts", s.CreateShift)
	r.GET("/shifts/:id", s.GetShift)
	r.PUT("/shifts/:id", s.UpdateShift)
	r.DELETE("/shifts/:id", s.DeleteShift)
	r.POST("/shifts/:id/employees/:employeeId", s.AddShiftEmployee)
	r.DELETE("/shifts/:id/employees/:employeeId", s.RemoveShiftEmployee)
}

// fail hands err to ErrorHandler.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
}
