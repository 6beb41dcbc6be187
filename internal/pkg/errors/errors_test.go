package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "without wrapped error",
			err:  New("SHIFT_NOT_FOUND", "shift not found", http.StatusNotFound),
			want: "SHIFT_NOT_FOUND: shift not found",
		},
		{
			name: "with wrapped error",
			err:  Wrap(fmt.Errorf("db error"), "DB_ERROR", "database failure", http.StatusInternalServerError),
			want: "DB_ERROR: database failure: db error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap(inner, "CODE", "msg", 500)

	assert.True(t, errors.Is(appErr, inner))
}

func TestIsAppErrorAndHasCode(t *testing.T) {
	wrapped := fmt.Errorf("wrapped: %w", ErrShiftNotFound("abc"))

	got, ok := IsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeShiftNotFound, got.Code)
	assert.True(t, HasCode(wrapped, CodeShiftNotFound))
	assert.False(t, HasCode(wrapped, CodeEmployeeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeShiftNotFound))
}

func TestDomainConstructors(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name          string
		err           *AppError
		wantCode      string
		wantStatus    int
		wantRetryable bool
	}{
		{"invalid credential", ErrInvalidCredential(cause), CodeInvalidCredential, http.StatusUnauthorized, false},
		{"expired credential", ErrExpiredCredential(cause), CodeExpiredCredential, http.StatusUnauthorized, false},
		{"quota exhausted", ErrQuotaExhausted("p", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)), CodeQuotaExhausted, http.StatusForbidden, false},
		{"validation", ErrValidation("startingHour", "must be before endingHour"), CodeValidationFailed, http.StatusBadRequest, false},
		{"partial assignment", ErrPartialAssignment("e", "s", "shift.employees", cause), CodePartialAssignment, http.StatusConflict, true},
		{"partial cascade", ErrPartialCascade("employee", "e", "clear_manager", "d", cause), CodePartialCascade, http.StatusConflict, true},
		{"store unavailable", ErrStoreUnavailable(cause), CodeStoreUnavailable, http.StatusServiceUnavailable, true},
		{"employee not found", ErrEmployeeNotFound("e"), CodeEmployeeNotFound, http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus)
			assert.Equal(t, tt.wantRetryable, tt.err.Retryable)
		})
	}
}

func TestErrValidation_CarriesField(t *testing.T) {
	err := ErrValidation("firstName", "must match ^[a-zA-Z\\s]{2,50}$")

	require.Len(t, err.FieldErrors, 1)
	assert.Equal(t, "firstName", err.FieldErrors[0].Field)
	assert.Contains(t, err.Message, "firstName")
}

func TestErrPartialCascade_Params(t *testing.T) {
	err := ErrPartialCascade("employee", "e1", "unassign_shifts", "s1", errors.New("timeout"))

	assert.Equal(t, "employee", err.Params["root"])
	assert.Equal(t, "e1", err.Params["root_id"])
	assert.Equal(t, "unassign_shifts", err.Params["step"])
	assert.Equal(t, "s1", err.Params["entity_id"])
}
