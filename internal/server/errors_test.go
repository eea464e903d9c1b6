package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/fitness-coach/internal/persistence"
	"github.com/jonathan/fitness-coach/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "userId", Message: "is required"}
	assert.Equal(t, "validation error: userId - is required", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))

	err = &ErrValidation{Message: "invalid JSON body"}
	assert.Equal(t, "validation error: invalid JSON body", err.Error())
}

func TestErrAccessDenied(t *testing.T) {
	userID := uuid.New()
	err := &ErrAccessDenied{UserID: userID}
	assert.Equal(t, "program generation is not available for user "+userID.String(), err.Error())
	assert.Equal(t, http.StatusForbidden, HTTPStatus(err))
}

func TestErrProgramNotFound(t *testing.T) {
	id := uuid.New()
	err := &ErrProgramNotFound{ProgramID: id}
	assert.Equal(t, "program not found: "+id.String(), err.Error())
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
}

func TestHTTPStatus(t *testing.T) {
	type sample struct {
		Name string `validate:"required"`
	}
	fieldErr := validator.New().Struct(sample{})
	require.Error(t, fieldErr)

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "ErrValidation",
			err:      &ErrValidation{Field: "profile", Message: "required"},
			expected: http.StatusBadRequest,
		},
		{
			name:     "wrapped ErrValidation",
			err:      fmt.Errorf("decode: %w", &ErrValidation{Message: "bad"}),
			expected: http.StatusBadRequest,
		},
		{
			name:     "validator field errors",
			err:      fieldErr,
			expected: http.StatusBadRequest,
		},
		{
			name:     "program validation",
			err:      &validation.ValidationFailed{Errors: []validation.FieldError{{Field: "phases", Message: "empty"}}},
			expected: http.StatusBadRequest,
		},
		{
			name:     "ErrForbidden",
			err:      &ErrForbidden{Reason: "user mismatch"},
			expected: http.StatusForbidden,
		},
		{
			name:     "not owner",
			err:      &persistence.PersistenceFailed{Op: persistence.OpProgram, Cause: persistence.ErrNotOwner},
			expected: http.StatusForbidden,
		},
		{
			name:     "ErrProgramNotFound",
			err:      &ErrProgramNotFound{ProgramID: uuid.New()},
			expected: http.StatusNotFound,
		},
		{
			name:     "Unknown error",
			err:      assert.AnError,
			expected: http.StatusInternalServerError,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}
