package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factorymanager.io/manager/internal/domain"
	"factorymanager.io/manager/internal/repository"
	"factorymanager.io/manager/internal/repository/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.Store {
		return New().Repositories()
	})
}

func TestFailNext(t *testing.T) {
	s := New()
	repos := s.Repositories()
	ctx := context.Background()

	e := &domain.Employee{ID: "5f8d0d55b54764421b7156c9", FirstName: "Dana", LastName: "Levi", StartWorkYear: 2015}
	require.NoError(t, repos.Employees.Create(ctx, e))

	boom := errors.New("boom")
	s.FailNext("employees.Get", boom)

	_, err := repos.Employees.Get(ctx, e.ID)
	assert.ErrorIs(t, err, boom)

	// Only the next call fails.
	_, err = repos.Employees.Get(ctx, e.ID)
	assert.NoError(t, err)
}

func TestReturnedEntitiesAreCopies(t *testing.T) {
	repos := New().Repositories()
	ctx := context.Background()

	e := &domain.Employee{ID: "5f8d0d55b54764421b7156c9", FirstName: "Dana", LastName: "Levi", StartWorkYear: 2015}
	require.NoError(t, repos.Employees.Create(ctx, e))
	_, err := repos.Employees.AddShift(ctx, e.ID, "6f8d0d55b54764421b7156c9")
	require.NoError(t, err)

	got, err := repos.Employees.Get(ctx, e.ID)
	require.NoError(t, err)
	got.ShiftIDs[0] = "mutated"

	again, err := repos.Employees.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "6f8d0d55b54764421b7156c9", again.ShiftIDs[0])
}
