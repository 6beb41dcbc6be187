package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"factorymanager.io/manager/internal/domain"
)

func TestClassifyRequest(t *testing.T) {
	tests := []struct {
		method string
		route  string
		want   domain.Operation
	}{
		{"GET", "/api/v1/shifts", domain.OpReadAll},
		{"GET", "/api/v1/shifts/:id", domain.OpReadOne},
		{"GET", "/api/v1/shifts/:id/", domain.OpReadOne},
		{"POST", "/api/v1/shifts", domain.OpCreate},
		{"POST", "/api/v1/employees/:id/shifts/:shiftId", domain.OpCreate},
		{"PUT", "/api/v1/employees/:id", domain.OpUpdate},
		{"PATCH", "/api/v1/employees/:id", domain.OpUpdate},
		{"DELETE", "/api/v1/departments/:id", domain.OpDelete},
		{"HEAD", "/api/v1/departments", domain.OpOther},
		{"OPTIONS", "/api/v1/departments", domain.OpOther},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.route, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyRequest(tt.method, tt.route))
		})
	}
}

func TestChargeable(t *testing.T) {
	tests := []struct {
		name string
		op   domain.Operation
		path string
		want bool
	}{
		{"read all employees", domain.OpReadAll, "/api/v1/employees", true},
		{"read one shift", domain.OpReadOne, "/api/v1/shifts/5f8d0d55b54764421b7156c9", true},
		{"create department", domain.OpCreate, "/api/v1/departments", true},
		{"update", domain.OpUpdate, "/api/v1/employees/5f8d0d55b54764421b7156c9", true},
		{"delete", domain.OpDelete, "/api/v1/shifts/5f8d0d55b54764421b7156c9", true},
		{"options", domain.OpOther, "/api/v1/shifts", false},
		{"list principals", domain.OpReadAll, "/api/v1/users", false},
		{"me", domain.OpReadOne, "/api/v1/users/me", false},
		{"login", domain.OpCreate, "/api/v1/users/login", false},
		{"prefix lookalike", domain.OpReadAll, "/api/v1/usersettings", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Chargeable(tt.op, tt.path))
		})
	}
}
