package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/devsecops-visualizer/internal/chat"
	"github.com/jonathan/devsecops-visualizer/internal/pipeline"
)

// ErrNotFound indicates a missing stage, incident, run or session.
type ErrNotFound struct {
	Kind string
	ID   string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrInvalidCredentials indicates a wrong operator password.
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid credentials"
}

// ErrAuthDisabled indicates that operator authentication is not configured.
type ErrAuthDisabled struct{}

func (e *ErrAuthDisabled) Error() string {
	return "operator authentication is not configured"
}

// validationError converts validator output into an *ErrValidation.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		ve := verrs[0]
		return &ErrValidation{Field: ve.Field(), Message: ve.Tag()}
	}
	return &ErrValidation{Field: "body", Message: err.Error()}
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound   *ErrNotFound
		validation *ErrValidation
		creds      *ErrInvalidCredentials
		disabled   *ErrAuthDisabled
	)
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		return http.StatusConflict
	case errors.As(err, &notFound), errors.Is(err, chat.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &creds):
		return http.StatusUnauthorized
	case errors.As(err, &disabled):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
