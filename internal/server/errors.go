// Package server provides the HTTP API for reviewing and committing tailored profiles.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/resume-review/internal/db"
	"github.com/jonathan/resume-review/internal/fetch"
	"github.com/jonathan/resume-review/internal/llm"
	"github.com/jonathan/resume-review/internal/localstore"
	"github.com/jonathan/resume-review/internal/review"
	"github.com/jonathan/resume-review/internal/schemas"
	"github.com/jonathan/resume-review/internal/tailoring"
)

// RequestError is a malformed or incomplete request
type RequestError struct {
	Message string
	Cause   error
}

func (e *RequestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}

func badRequest(cause error, format string, args ...any) error {
	return &RequestError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		reqErr    *RequestError
		fields    validator.ValidationErrors
		pathErr   *review.PathError
		invalid   *schemas.ValidationError
		stateErr  *review.StateError
		upstream  *llm.UpstreamError
		malformed *llm.MalformedResponseError
		fetchErr  *fetch.Error
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &reqErr), errors.As(err, &fields), errors.As(err, &pathErr),
		errors.Is(err, fetch.ErrUnsupportedURL), errors.Is(err, tailoring.ErrJobURLUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, tailoring.ErrProfileNotFound), errors.Is(err, review.ErrSessionNotFound),
		errors.Is(err, db.ErrNotFound), errors.Is(err, localstore.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &stateErr), errors.Is(err, review.ErrReviewActive),
		errors.Is(err, tailoring.ErrGenerationInFlight):
		return http.StatusConflict
	case errors.As(err, &invalid):
		return http.StatusUnprocessableEntity
	case errors.As(err, &upstream), errors.As(err, &malformed), errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error string `json:"error"`
	Path  string `json:"path,omitempty"`
}

func errorBodyFor(err error, status int) errorBody {
	if status == http.StatusInternalServerError {
		return errorBody{Error: "internal server error"}
	}
	body := errorBody{Error: err.Error()}
	var invalid *schemas.ValidationError
	if errors.As(err, &invalid) {
		body.Path = invalid.Path()
	}
	var pathErr *review.PathError
	if errors.As(err, &pathErr) {
		body.Path = pathErr.Path
	}
	return body
}
