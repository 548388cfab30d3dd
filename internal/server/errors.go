package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/catalog-agent/internal/jobs"
	"github.com/jonathan/catalog-agent/internal/llm"
	"github.com/jonathan/catalog-agent/internal/orchestrator"
	"github.com/jonathan/catalog-agent/internal/products"
	"github.com/jonathan/catalog-agent/internal/types"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var verr *ErrValidation
	var fieldErrs validator.ValidationErrors

	switch {
	case errors.As(err, &verr), errors.As(err, &fieldErrs):
		return http.StatusBadRequest
	case errors.Is(err, llm.ErrUnknownProvider),
		errors.Is(err, orchestrator.ErrNoProviders),
		errors.Is(err, orchestrator.ErrNoBrandPersona):
		return http.StatusBadRequest
	case errors.Is(err, products.ErrNotFound), errors.Is(err, jobs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, products.ErrAnalysisInProgress), errors.Is(err, types.ErrNotPublishable):
		return http.StatusConflict
	case errors.Is(err, orchestrator.ErrShuttingDown):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// errorMessage hides internal details behind a generic message for 5xx answers.
func errorMessage(status int, err error) string {
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		return http.StatusText(status)
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Sprintf("validation error: %s failed on %s", fe.Field(), fe.Tag())
	}
	return err.Error()
}
