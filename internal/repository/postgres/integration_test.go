//go:build integration

package postgres

import (
	"testing"

	"factorymanager.io/manager/internal/repository"
	"factorymanager.io/manager/internal/repository/storetest"
	"factorymanager.io/manager/internal/testutil"
)

func TestStoreContract_Container(t *testing.T) {
	dsn := testutil.StartPostgres(t)
	storetest.Run(t, func(t *testing.T) repository.Store {
		return NewStore(testutil.OpenPGXPool(t, dsn, t.Name()))
	})
}
