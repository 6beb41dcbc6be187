package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"factorymanager.io/manager/internal/domain"
	apperrors "factorymanager.io/manager/internal/pkg/errors"
	"factorymanager.io/manager/internal/repository"
)

// ListShifts handles GET /shifts.
func (s *Server) ListShifts(c *gin.Context) {
	var raw *string
	if !queryParam(c, "date", &raw) {
		return
	}
	var filter repository.ShiftFilter
	if raw != nil {
		d, err := domain.ParseDate(*raw)
		if err != nil {
			fail(c, apperrors.ErrValidation("date", "must be a YYYY-MM-DD date"))
			return
		}
		filter.Date = &d
	}
	list, err := s.shifts.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetShift handles GET /shifts/{id}.
func (s *Server) GetShift(c *gin.Context) {
	id, ok := pathString(c, "id")
	if !ok {
		return
	}
	sh, err := s.shifts.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sh)
}

// CreateShift handles POST /shifts.
func (s *Server) CreateShift(c *gin.Context) {
	var in domain.ShiftInput
	if !bindBody(c, &in) {
		return
	}
	sh, err := s.shifts.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sh)
}

// UpdateShift handles PUT /shifts/{id}.
func (s *Server) UpdateShift(c *gin.Context) {
	id, ok := pathString(c, "id")
	if !ok {
		return
	}
	var in domain.ShiftInput
	if !bindBody(c, &in) {
		return
	}
	sh, err := s.shifts.Update(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sh)
}

// DeleteShift handles DELETE /shifts/{id}.
func (s *Server) DeleteShift(c *gin.Context) {
	id, ok := pathString(c, "id")
	if !ok {
		return
	}
	sh, err := s.shifts.Delete(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sh)
}

// AddShiftEmployee handles POST /shifts/{id}/employees/{employeeId}.
func (s *Server) AddShiftEmployee(c *gin.Context) {
	id, ok := pathString(c, "id")
	if !ok {
		return
	}
	employeeID, ok := pathString(c, "employeeId")
	if !ok {
		return
	}
	sh, err := s.shifts.AddEmployee(c.Request.Context(), id, employeeID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sh)
}

// RemoveShiftEmployee handles DELETE /shifts/{id}/employees/{employeeId}.
func (s *Server) RemoveShiftEmployee(c *gin.Context) {
	id, ok := pathString(c, "id")
	if !ok {
		return
	}
	employeeID, ok := pathString(c, "employeeId")
	if !ok {
		return
	}
	sh, err := s.shifts.RemoveEmployee(c.Request.Context(), id, employeeID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sh)
}
