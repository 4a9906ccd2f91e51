package errors

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := NotFound("job not found")
	assert.Equal(t, "job not found", err.Error())

	wrapped := Wrap(errors.New("boom"), ErrCodeInternal, "query failed")
	assert.Equal(t, "query failed: boom", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(cause, ErrCodeInternal, "wrapped")
	assert.ErrorIs(t, err, cause)
}

func TestWrap_NilError(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "should be nil"))
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *AppError
		code  ErrorCode
		check func(error) bool
	}{
		{"not found", NotFound("x"), ErrCodeNotFound, IsNotFound},
		{"not found formatted", NotFoundf("job %s", "j1"), ErrCodeNotFound, IsNotFound},
		{"forbidden", Forbidden("denied"), ErrCodeForbidden, IsForbidden},
		{"conflict", Conflict("dup"), ErrCodeConflict, IsConflict},
		{"validation", Validation("bad"), ErrCodeValidation, IsValidation},
		{"validation field", ValidationField("type", "bad"), ErrCodeValidation, IsValidation},
		{"internal", Internal("boom"), ErrCodeInternal, IsInternal},
		{"internal formatted", Internalf("boom %d", 2), ErrCodeInternal, IsInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.True(t, tt.check(tt.err))
		})
	}
}

func TestIsHelpers_ThroughWrapping(t *testing.T) {
	inner := NotFound("job not found")
	outer := fmt.Errorf("service: %w", inner)
	assert.True(t, IsNotFound(outer))
	assert.False(t, IsConflict(outer))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeForbidden, GetCode(Forbidden("no")))
	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetCode(nil))
}

func TestGetField(t *testing.T) {
	assert.Equal(t, "type", GetField(ValidationField("type", "bad")))
	assert.Equal(t, "", GetField(Validation("bad")))
}

func TestMapDBError(t *testing.T) {
	tests := []struct {
		name     string
		in       error
		wantCode ErrorCode
	}{
		{"nil", nil, ""},
		{"no rows", sql.ErrNoRows, ErrCodeNotFound},
		{"deadline", context.DeadlineExceeded, ErrCodeTimeout},
		{"canceled", context.Canceled, ErrCodeCanceled},
		{
			"unique violation",
			&pgconn.PgError{Code: pgerrcode.UniqueViolation, Detail: "Key (id)=(j1) already exists."},
			ErrCodeConflict,
		},
		{
			"foreign key violation",
			&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation},
			ErrCodeValidation,
		},
		{
			"not null violation",
			&pgconn.PgError{Code: pgerrcode.NotNullViolation, ColumnName: "owner_id"},
			ErrCodeValidation,
		},
		{
			"check violation",
			&pgconn.PgError{Code: pgerrcode.CheckViolation, ColumnName: "status"},
			ErrCodeValidation,
		},
		{
			"invalid text representation",
			&pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation},
			ErrCodeValidation,
		},
		{
			"other pg error",
			&pgconn.PgError{Code: pgerrcode.SerializationFailure},
			ErrCodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := MapDBError(tt.in)
			if tt.in == nil {
				assert.NoError(t, out)
				return
			}
			var appErr *AppError
			require.ErrorAs(t, out, &appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.ErrorIs(t, out, tt.in)
		})
	}
}

func TestMapDBError_PassthroughUnknown(t *testing.T) {
	plain := errors.New("not a db error")
	assert.Same(t, plain, MapDBError(plain))
}

func TestUniqueViolationField(t *testing.T) {
	tests := []struct {
		name  string
		pgErr *pgconn.PgError
		want  string
	}{
		{"column name set", &pgconn.PgError{ColumnName: "task_id"}, "task_id"},
		{"from detail", &pgconn.PgError{Detail: "Key (owner_id)=(u1) already exists."}, "owner_id"},
		{"from constraint", &pgconn.PgError{ConstraintName: "jobs_id_key"}, "id"},
		{"ambiguous constraint", &pgconn.PgError{ConstraintName: "jobs_owner_id_task_id_key"}, ""},
		{"nothing", &pgconn.PgError{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, uniqueViolationField(tt.pgErr))
		})
	}
}
