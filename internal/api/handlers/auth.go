package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"factorymanager.io/manager/internal/api/middleware"
	"factorymanager.io/manager/internal/domain"
)

// Register handles POST /users/register.
func (s *Server) Register(c *gin.Context) {
	var in domain.RegisterInput
	if !bindBody(c, &in) {
		return
	}
	p, err := s.principals.Register(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// Login handles POST /users/login.
func (s *Server) Login(c *gin.Context) {
	var in domain.LoginInput
	if !bindBody(c, &in) {
		return
	}
	res, err := s.principals.Login(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ListUsers handles GET /users.
func (s *Server) ListUsers(c *gin.Context) {
	ps, err := s.principals.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ps)
}

// GetCurrentUser handles GET /users/me.
func (s *Server) GetCurrentUser(c *gin.Context) {
	p, err := s.principals.Me(c.Request.Context(), middleware.GetPrincipalID(c.Request.Context()))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListUserActions handles GET /users/{id}/actions.
func (s *Server) ListUserActions(c *gin.Context) {
	id, ok := pathString(c, "id")
	if !ok {
		return
	}
	var limit int
	if !queryParam(c, "limit", &limit) {
		return
	}
	ctx := c.Request.Context()
	entries, err := s.principals.Actions(ctx, middleware.GetPrincipalID(ctx), id, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}
