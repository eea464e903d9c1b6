// Package server provides the HTTP API of the program generation service.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/fitness-coach/internal/persistence"
	"github.com/jonathan/fitness-coach/internal/validation"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation error: %s", e.Message)
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrForbidden indicates the caller may not act for the requested user
type ErrForbidden struct {
	Reason string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Reason)
}

// ErrAccessDenied indicates the access policy refused a generation run
type ErrAccessDenied struct {
	UserID uuid.UUID
}

func (e *ErrAccessDenied) Error() string {
	return fmt.Sprintf("program generation is not available for user %s", e.UserID)
}

// ErrProgramNotFound indicates a program id that does not exist
type ErrProgramNotFound struct {
	ProgramID uuid.UUID
}

func (e *ErrProgramNotFound) Error() string {
	return fmt.Sprintf("program not found: %s", e.ProgramID)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusInternalServerError
	}

	var (
		validationErr *ErrValidation
		forbiddenErr  *ErrForbidden
		deniedErr     *ErrAccessDenied
		notFoundErr   *ErrProgramNotFound
		fieldsErr     validator.ValidationErrors
		programErr    *validation.ValidationFailed
	)
	switch {
	case errors.As(err, &validationErr), errors.As(err, &fieldsErr), errors.As(err, &programErr):
		return http.StatusBadRequest
	case errors.As(err, &forbiddenErr), errors.As(err, &deniedErr), errors.Is(err, persistence.ErrNotOwner):
		return http.StatusForbidden
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
