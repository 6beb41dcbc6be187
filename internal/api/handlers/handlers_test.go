package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"factorymanager.io/manager/internal/api/middleware"
	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/governance/audit"
	"factorymanager.io/manager/internal/quota"
	"factorymanager.io/manager/internal/repository/memory"
	"factorymanager.io/manager/internal/service"
	"factorymanager.io/manager/internal/usecase"
)

type testAPI struct {
	router    *gin.Engine
	mem       *memory.Store
	principal string
}

func newTestAPI(t *testing.T, readiness map[string]ReadinessCheck) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := memory.New()
	store := mem.Repositories()
	gate := quota.NewGate(store.Quota, time.UTC)
	coord := usecase.NewCoordinator(store)
	jwtCfg := middleware.JWTConfig{
		SigningKey: []byte("handlers-test-key-0123456789abcdef"),
		Issuer:     "factory-manager",
		ExpiresIn:  time.Hour,
	}
	srv := NewServer(ServerDeps{
		Principals: service.NewPrincipalService(store.Principals, gate, jwtCfg, audit.NewLogger(store.ActionLogs, nil),
			service.PrincipalConfig{DefaultMaxActions: 5, BcryptCost: bcrypt.MinCost}),
		Departments: service.NewDepartmentService(store, coord),
		Employees:   service.NewEmployeeService(store, coord),
		Shifts:      service.NewShiftService(store, coord),
		Readiness:   readiness,
	})

	api := &testAPI{mem: mem}
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.ErrorHandler())
	v1 := router.Group("/api/v1")
	srv.RegisterPublic(v1)
	protected := v1.Group("", func(c *gin.Context) {
		c.Request = c.Request.WithContext(middleware.SetPrincipalContext(c.Request.Context(), api.principal))
		c.Next()
	})
	srv.RegisterProtected(protected)
	api.router = router
	return api
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/v1"+path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Code      string                 `json:"code"`
	Params    map[string]interface{} `json:"params"`
	Retryable bool                   `json:"retryable"`
}

func TestAuthRoutes(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodPost, "/users/register", map[string]interface{}{
		"fullName": "Grace Hopper", "username": "grace", "password": "Cobol1959",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	p := decode[domain.Principal](t, w)
	assert.Equal(t, 5, p.NumOfActions)
	assert.NotContains(t, w.Body.String(), "Cobol1959")
	assert.NotContains(t, w.Body.String(), "password")

	w = api.do(t, http.MethodPost, "/users/login", map[string]string{"username": "grace", "password": "Cobol1959"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decode[service.LoginResult](t, w)
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, "Grace Hopper", login.FullName)

	w = api.do(t, http.MethodPost, "/users/login", map[string]string{"username": "grace", "password": "nope"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "WRONG_PASSWORD", decode[errorBody](t, w).Code)

	w = api.do(t, http.MethodPost, "/users/login", map[string]string{"username": "ghost", "password": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	api.principal = p.ID
	w = api.do(t, http.MethodGet, "/users/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, p.ID, decode[domain.Principal](t, w).ID)

	w = api.do(t, http.MethodGet, "/users/"+p.ID+"/actions?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, http.MethodGet, "/users/5f8d0d55b54764421b7156c9/actions", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = api.do(t, http.MethodGet, "/users/"+p.ID+"/actions?limit=lots", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWorkforceRoutes(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodPost, "/departments", map[string]string{"name": "Assembly"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	dept := decode[domain.Department](t, w)

	w = api.do(t, http.MethodPost, "/employees", map[string]interface{}{
		"firstName": "Ada", "lastName": "Byron", "startWorkYear": 2015, "departmentId": dept.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	emp := decode[domain.Employee](t, w)
	assert.Equal(t, []string{}, emp.ShiftIDs)

	w = api.do(t, http.MethodPost, "/shifts", map[string]interface{}{
		"date": "2026-10-20", "startingHour": 6, "endingHour": 14,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sh := decode[domain.Shift](t, w)

	w = api.do(t, http.MethodPost, "/employees/"+emp.ID+"/shifts/"+sh.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{sh.ID}, decode[domain.Employee](t, w).ShiftIDs)

	w = api.do(t, http.MethodGet, "/shifts/"+sh.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{emp.ID}, decode[domain.Shift](t, w).EmployeeIDs)

	w = api.do(t, http.MethodGet, "/shifts?date=2026-10-20", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Shift](t, w), 1)

	w = api.do(t, http.MethodGet, "/shifts?date=tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = api.do(t, http.MethodGet, "/employees?department_id="+dept.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]domain.Employee](t, w), 1)

	w = api.do(t, http.MethodPut, "/employees/"+emp.ID+"/department", map[string]interface{}{"departmentId": nil})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Nil(t, decode[domain.Employee](t, w).DepartmentID)

	w = api.do(t, http.MethodDelete, "/shifts/"+sh.ID+"/employees/"+emp.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[domain.Shift](t, w).EmployeeIDs)

	w = api.do(t, http.MethodDelete, "/employees/"+emp.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, emp.ID, decode[domain.Employee](t, w).ID)

	w = api.do(t, http.MethodGet, "/employees/"+emp.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "EMPLOYEE_NOT_FOUND", decode[errorBody](t, w).Code)
}

func TestWorkforceRoutes_Errors(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodGet, "/departments/not-an-id", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", decode[errorBody](t, w).Code)

	w = api.do(t, http.MethodPost, "/shifts", map[string]interface{}{
		"date": "2026-10-20", "startingHour": 10, "endingHour": 9,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/departments", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPartialAssignmentIsRetryable(t *testing.T) {
	api := newTestAPI(t, nil)

	w := api.do(t, http.MethodPost, "/employees", map[string]interface{}{
		"firstName": "Ada", "lastName": "Byron", "startWorkYear": 2015,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	emp := decode[domain.Employee](t, w)
	w = api.do(t, http.MethodPost, "/shifts", map[string]interface{}{
		"date": "2026-10-20", "startingHour": 6, "endingHour": 14,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	sh := decode[domain.Shift](t, w)

	api.mem.FailNext("shifts.AddEmployee", errors.New("connection reset"))
	w = api.do(t, http.MethodPost, "/employees/"+emp.ID+"/shifts/"+sh.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	body := decode[errorBody](t, w)
	assert.Equal(t, "PARTIAL_ASSIGNMENT", body.Code)
	assert.True(t, body.Retryable)

	w = api.do(t, http.MethodPost, "/employees/"+emp.ID+"/shifts/"+sh.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = api.do(t, http.MethodGet, "/shifts/"+sh.ID, nil)
	assert.Equal(t, []string{emp.ID}, decode[domain.Shift](t, w).EmployeeIDs)
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
	})
	w := api.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = api.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	degraded := newTestAPI(t, map[string]ReadinessCheck{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("dial tcp: refused") },
	})
	w = degraded.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	h := decode[Health](t, w)
	assert.Equal(t, HealthStatusDegraded, h.Status)
	assert.Equal(t, "error", h.Checks["redis"])
}
