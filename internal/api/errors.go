package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/npezzotti/go-curio/internal/adapter"
	"github.com/npezzotti/go-curio/internal/auth"
	"github.com/npezzotti/go-curio/internal/feedback"
	"github.com/npezzotti/go-curio/internal/guard"
	"github.com/npezzotti/go-curio/internal/placement"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func newApiError(code int, err error) *ApiError {
	msg := lower(http.StatusText(code))
	if err != nil {
		msg = err.Error()
	}
	return &ApiError{StatusCode: code, Message: msg, Err: err}
}

func NewBadRequestError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusBadRequest,
		Message:    lower(http.StatusText(http.StatusBadRequest)),
	}
}

func NewNotFoundError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusNotFound,
		Message:    lower(http.StatusText(http.StatusNotFound)),
	}
}

func NewInternalServerError(err error) *ApiError {
	return &ApiError{
		StatusCode: http.StatusInternalServerError,
		Message:    lower(http.StatusText(http.StatusInternalServerError)),
		Err:        err,
	}
}

func NewUnauthorizedError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusUnauthorized,
		Message:    lower(http.StatusText(http.StatusUnauthorized)),
	}
}

func NewServiceUnavailableError() *ApiError {
	return &ApiError{
		StatusCode: http.StatusServiceUnavailable,
		Message:    lower(http.StatusText(http.StatusServiceUnavailable)),
	}
}

// errorFrom maps a service error onto the response a client sees. Causes
// of internal errors are not exposed.
func errorFrom(err error) *ApiError {
	switch {
	case errors.Is(err, adapter.ErrNotFound):
		return NewNotFoundError()
	case errors.Is(err, adapter.ErrNoSession),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return newApiError(http.StatusUnauthorized, rootCause(err))
	case errors.Is(err, adapter.ErrInvalid),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, feedback.ErrEmptyMessage),
		errors.Is(err, placement.ErrNotImage),
		errors.Is(err, placement.ErrEmptyUpload):
		return newApiError(http.StatusBadRequest, err)
	case errors.Is(err, placement.ErrTooLarge):
		return newApiError(http.StatusRequestEntityTooLarge, err)
	case errors.Is(err, guard.ErrBusy),
		errors.Is(err, auth.ErrEmailTaken):
		return newApiError(http.StatusConflict, err)
	case errors.Is(err, feedback.ErrSendFailed):
		return newApiError(http.StatusBadGateway, feedback.ErrSendFailed)
	case errors.Is(err, auth.ErrResetUnavailable):
		return newApiError(http.StatusServiceUnavailable, err)
	default:
		return NewInternalServerError(err)
	}
}

// rootCause keeps token parsing details out of responses.
func rootCause(err error) error {
	for _, known := range []error{adapter.ErrNoSession, auth.ErrInvalidCredentials, auth.ErrInvalidToken} {
		if errors.Is(err, known) {
			return known
		}
	}
	return err
}
