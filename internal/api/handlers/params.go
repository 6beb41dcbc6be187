package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"

	apperrors "factorymanager.io/manager/internal/pkg/errors"
)

// pathString binds a required simple-style path parameter.
func pathString(c *gin.Context, name string) (string, bool) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, c.Param(name), &v, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		fail(c, apperrors.ErrValidation(name, err.Error()))
		return "", false
	}
	return v, true
}

// queryParam binds an optional form-style query parameter into dest.
func queryParam(c *gin.Context, name string, dest interface{}) bool {
	if err := runtime.BindQueryParameter("form", true, false, name, c.Request.URL.Query(), dest); err != nil {
		fail(c, apperrors.ErrValidation(name, err.Error()))
		return false
	}
	return true
}

// bindBody decodes the JSON request body into dest.
func bindBody(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		fail(c, apperrors.ErrValidation("body", "request body must be a valid JSON object"))
		return false
	}
	return true
}
