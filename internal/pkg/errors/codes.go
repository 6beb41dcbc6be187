package errors

import (
	"net/http"
	"time"
)

// Credential error codes.
const (
	CodeInvalidCredential = "INVALID_CREDENTIAL"
	CodeExpiredCredential = "EXPIRED_CREDENTIAL"
	CodeWrongPassword     = "WRONG_PASSWORD"
	CodeForbidden         = "FORBIDDEN"
)

// Quota error codes.
const (
	CodeQuotaExhausted = "QUOTA_EXHAUSTED"
)

// Validation error codes.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeUsernameTaken    = "USERNAME_TAKEN"
)

// Relationship error codes.
const (
	CodePartialAssignment = "PARTIAL_ASSIGNMENT"
	CodePartialCascade    = "PARTIAL_CASCADE"
)

// Not-found error codes.
const (
	CodePrincipalNotFound  = "PRINCIPAL_NOT_FOUND"
	CodeEmployeeNotFound   = "EMPLOYEE_NOT_FOUND"
	CodeDepartmentNotFound = "DEPARTMENT_NOT_FOUND"
	CodeShiftNotFound      = "SHIFT_NOT_FOUND"
	CodeRouteNotFound      = "ROUTE_NOT_FOUND"
)

// Infrastructure error codes.
const (
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

// ErrInvalidCredential reports a bearer token that is missing, malformed or badly signed.
func ErrInvalidCredential(err error) *AppError {
	return Wrap(err, CodeInvalidCredential, "invalid credential", http.StatusUnauthorized)
}

// ErrExpiredCredential reports a bearer token past its expiry.
func ErrExpiredCredential(err error) *AppError {
	return Wrap(err, CodeExpiredCredential, "credential expired", http.StatusUnauthorized)
}

// ErrWrongPassword reports a login with a known username and a wrong password.
func ErrWrongPassword() *AppError {
	return Forbidden(CodeWrongPassword, "wrong password")
}

// ErrUsernameTaken reports a registration for an existing username.
func ErrUsernameTaken(username string) *AppError {
	return Conflict(CodeUsernameTaken, "username already taken").WithParams(map[string]interface{}{"username": username})
}

// ErrQuotaExhausted reports a principal with no remaining actions today.
// resetAt is the start of the next calendar day in the quota timezone.
func ErrQuotaExhausted(principalID string, resetAt time.Time) *AppError {
	return Forbidden(CodeQuotaExhausted, "daily action quota exhausted").WithParams(map[string]interface{}{
		"principal_id": principalID,
		"reset_at":     resetAt.Format(time.RFC3339),
	})
}

// ErrValidation reports one invalid input field.
func ErrValidation(field, reason string) *AppError {
	return ErrValidationFields([]FieldError{{Field: field, Code: CodeValidationFailed, Message: reason}})
}

// ErrValidationFields reports several invalid input fields.
func ErrValidationFields(fields []FieldError) *AppError {
	msg := "validation failed"
	if len(fields) == 1 {
		msg = "validation failed: " + fields[0].Field + ": " + fields[0].Message
	}
	return BadRequest(CodeValidationFailed, msg).WithFieldErrors(fields)
}

// ErrPartialAssignment reports an assignment whose first side was written but
// whose mirror write failed. Repeating the same call completes it.
func ErrPartialAssignment(employeeID, shiftID, step string, err error) *AppError {
	return Wrap(err, CodePartialAssignment, "assignment only partially applied", http.StatusConflict).
		WithParams(map[string]interface{}{
			"employee_id": employeeID,
			"shift_id":    shiftID,
			"step":        step,
		}).
		AsRetryable()
}

// ErrPartialCascade reports a cascading delete that stopped after some steps
// completed. Repeating the same call completes it.
func ErrPartialCascade(root, rootID, step, entityID string, err error) *AppError {
	return Wrap(err, CodePartialCascade, "cascade only partially applied", http.StatusConflict).
		WithParams(map[string]interface{}{
			"root":      root,
			"root_id":   rootID,
			"step":      step,
			"entity_id": entityID,
		}).
		AsRetryable()
}

// ErrStoreUnavailable reports a store that could not be reached or timed out.
func ErrStoreUnavailable(err error) *AppError {
	return Wrap(err, CodeStoreUnavailable, "store unavailable", http.StatusServiceUnavailable).AsRetryable()
}

// ErrEmployeeNotFound creates an employee not found error.
func ErrEmployeeNotFound(id string) *AppError {
	return NotFound(CodeEmployeeNotFound, "employee not found").WithParams(map[string]interface{}{"id": id})
}

// ErrDepartmentNotFound creates a department not found error.
func ErrDepartmentNotFound(id string) *AppError {
	return NotFound(CodeDepartmentNotFound, "department not found").WithParams(map[string]interface{}{"id": id})
}

// ErrShiftNotFound creates a shift not found error.
func ErrShiftNotFound(id string) *AppError {
	return NotFound(CodeShiftNotFound, "shift not found").WithParams(map[string]interface{}{"id": id})
}

// ErrPrincipalNotFound creates a principal not found error.
func ErrPrincipalNotFound(id string) *AppError {
	return NotFound(CodePrincipalNotFound, "user not found").WithParams(map[string]interface{}{"id": id})
}
