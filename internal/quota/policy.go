package quota

import (
	"net/http"
	"strings"

	"factorymanager.io/manager/internal/domain"
)

// IdentityPrefix is the principal resource. Requests under it never consume quota.
const IdentityPrefix = "/api/v1/users"

// ClassifyRequest maps an HTTP method and matched route template
// ("/api/v1/shifts/:id") to an operation.
func ClassifyRequest(method, route string) domain.Operation {
	switch method {
	case http.MethodGet:
		if lastSegmentIsParam(route) {
			return domain.OpReadOne
		}
		return domain.OpReadAll
	case http.MethodPost:
		return domain.OpCreate
	case http.MethodPut, http.MethodPatch:
		return domain.OpUpdate
	case http.MethodDelete:
		return domain.OpDelete
	default:
		return domain.OpOther
	}
}

// Chargeable reports whether op on resourcePath consumes one action.
func Chargeable(op domain.Operation, resourcePath string) bool {
	if IsIdentityResource(resourcePath) {
		return false
	}
	switch op {
	case domain.OpReadAll, domain.OpReadOne, domain.OpCreate, domain.OpUpdate, domain.OpDelete:
		return true
	default:
		return false
	}
}

// IsIdentityResource reports whether path addresses the principal resource.
func IsIdentityResource(path string) bool {
	return path == IdentityPrefix || strings.HasPrefix(path, IdentityPrefix+"/")
}

func lastSegmentIsParam(route string) bool {
	route = strings.TrimSuffix(route, "/")
	i := strings.LastIndexByte(route, '/')
	return i >= 0 && strings.HasPrefix(route[i+1:], ":")
}
