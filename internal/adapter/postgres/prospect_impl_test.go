package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/prospector/internal/repository"
)

func TestMapWriteError(t *testing.T) {
	assert.NoError(t, mapWriteError(nil))

	tests := []struct {
		constraint string
		field      string
	}{
		{"prospects_phone_key", "phone"},
		{"prospects_email_key", "email"},
		{"prospects_site_key", "site"},
		{"prospects_pkey", "id"},
	}
	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			pgErr := &pgconn.PgError{Code: uniqueViolation, ConstraintName: tt.constraint}
			err := mapWriteError(pgErr)

			assert.ErrorIs(t, err, repository.ErrDuplicate)
			var dup *repository.DuplicateConstraintError
			require.ErrorAs(t, err, &dup)
			assert.Equal(t, tt.field, dup.Field)
		})
	}
}

func TestMapWriteError_OtherErrors(t *testing.T) {
	err := mapWriteError(&pgconn.PgError{Code: "23502", ConstraintName: "prospects_name"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, repository.ErrDuplicate)

	plain := errors.New("connection reset")
	assert.ErrorIs(t, mapWriteError(plain), plain)
}
