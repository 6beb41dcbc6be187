package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"factorymanager.io/manager/internal/repository"
	"factorymanager.io/manager/internal/repository/storetest"
	"factorymanager.io/manager/internal/testutil"
)

func TestStoreContract(t *testing.T) {
	dsn := testutil.PostgresDSN(t)
	storetest.Run(t, func(t *testing.T) repository.Store {
		return NewStore(testutil.OpenPGXPool(t, dsn, t.Name()))
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", pgx.ErrNoRows, repository.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, repository.ErrDuplicate},
		{"statement timeout", &pgconn.PgError{Code: "57014"}, repository.ErrUnavailable},
		{"connection failure", &pgconn.PgError{Code: "08006"}, repository.ErrUnavailable},
		{"deadline", context.DeadlineExceeded, repository.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify("op", tt.err), tt.want)
		})
	}

	plain := errors.New("syntax")
	got := classify("op", plain)
	assert.ErrorIs(t, got, plain)
	assert.NotErrorIs(t, got, repository.ErrUnavailable)
	assert.Nil(t, classify("op", nil))
}
