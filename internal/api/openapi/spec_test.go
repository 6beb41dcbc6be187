package openapi

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	doc, err := Load()
	require.NoError(t, err)
	require.NotNil(t, doc.Paths.Find("/shifts/{id}/employees/{employeeId}"))
	require.NotNil(t, doc.Paths.Find("/users/login"))
}
