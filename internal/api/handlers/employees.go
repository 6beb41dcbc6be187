package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/repository"
)

// departmentAssignment is the body of PUT /employees/{id}/department.
// A null or missing departmentId detaches the employee.
type departmentAssignment struct {
	DepartmentID *string `json:"departmentId"`
}

// ListEmployees handles GET /employees.
func (s *Server) ListEmployees(c *gin.Context) {
	var filter repository.EmployeeFilter
	if !queryParam(c, "department_id", &filter.DepartmentID) {
		return
	}
	es, err := s.employees.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, es)
}

// GetEmployee handles GET /employees/{id}.
func (s *Server) GetEmployee(c *gin.Context) {
	id, ok := pathString(c, "id")
	if !ok {
		return
	}
	e, err := s.employees.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// CreateEmployee handles POST /employees.
func (s *Server) CreateEmployee(c *gin.Context) {
	var in domain.EmployeeInput
	if !bindBody(c, &in) {
		return
	}
	e, err := s.employees.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// UpdateEmployee handles PUT /employees/{id}.
func (s *Server) UpdateEmployee(c *gin.Context) {
	id, ok := pathString(c, "id")
	if !ok {
		return
	}
	var in domain.EmployeeInput
	if !bindBody(c, &in) {
		return
	}
	e, err := s.employees.Update(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// DeleteEmployee handles DELETE /employees/{id}.
func (s *Server) DeleteEmployee(c *gin.Context) {
	id, ok := pathString(c, "id")
	if !ok {
		return
	}
	e, err := s.employees.Delete(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// ReassignEmployeeDepartment handles PUT /employees/{id}/department.
func (s *Server) ReassignEmployeeDepartment(c *gin.Context) {
	id, ok := pathString(c, "id")
	if !ok {
		return
	}
	var body departmentAssignment
	if !bindBody(c, &body) {
		return
	}
	e, err := s.employees.ReassignDepartment(c.Request.Context(), id, body.DepartmentID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// AssignEmployeeShift handles POST /employees/{id}/shifts/{shiftId}.
func (s *Server) AssignEmployeeShift(c *gin.Context) {
	id, ok := pathString(c, "id")
	if !ok {
		return
	}
	shiftID, ok := pathString(c, "shiftId")
	if !ok {
		return
	}
	e, err := s.employees.AssignShift(c.Request.Context(), id, shiftID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// UnassignEmployeeShift handles DELETE /employees/{id}/shifts/{shiftId}.
func (s *Server) UnassignEmployeeShift(c *gin.Context) {
	id, ok := pathString(c, "id")
	if !ok {
		return
	}
	shiftID, ok := pathString(c, "shiftId")
	if !ok {
		return
	}
	e, err := s.employees.UnassignShift(c.Request.Context(), id, shiftID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}
