package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/repository"
)

// ListDepartments handles GET /departments.
func (s *Server) ListDepartments(c *gin.Context) {
	var filter repository.DepartmentFilter
	if !queryParam(c, "name", &filter.Name) {
		return
	}
	ds, err := s.departments.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ds)
}

// GetDepartment handles GET /departments/{id}.
func (s *Server) GetDepartment(c *gin.Context) {
	id, ok := pathString(c, "id")
	if !ok {
		return
	}
	d, err := s.departments.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// CreateDepartment handles POST /departments.
func (s *Server) CreateDepartment(c *gin.Context) {
	var in domain.DepartmentInput
	if !bindBody(c, &in) {
		return
	}
	d, err := s.departments.Create(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// UpdateDepartment handles PUT /departments/{id}.
func (s *Server) UpdateDepartment(c *gin.Context) {
	id, ok := pathString(c, "id")
	if !ok {
		return
	}
	var in domain.DepartmentInput
	if !bindBody(c, &in) {
		return
	}
	d, err := s.departments.Update(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// DeleteDepartment handles DELETE /departments/{id}.
func (s *Server) DeleteDepartment(c *gin.Context) {
	id, ok := pathString(c, "id")
	if !ok {
		return
	}
	d, err := s.departments.Delete(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
