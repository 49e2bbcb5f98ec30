// Package apperr defines the scheduling error kinds and their mapping to
// HTTP responses. Callers classify errors with errors.As only.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Kind names used in the error envelope.
const (
	KindValidation = "validation"
	KindConflict   = "conflict"
	KindState      = "invalid_state"
	KindPastDate   = "past_date"
	KindNotFound   = "not_found"
	KindInternal   = "internal"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field-level violation found in one request.
type ValidationError struct {
	Fields []FieldError
}

func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Err returns nil when no violation was collected.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		if f.Field == "" {
			parts = append(parts, f.Message)
			continue
		}
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ConflictError reports that the requested time range is taken.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	if e.Message == "" {
		return "time slot conflicts with an existing appointment"
	}
	return e.Message
}

// StateError reports a status transition the state machine does not allow.
type StateError struct {
	Current   string
	Requested string
	Reason    string
}

func (e *StateError) Error() string {
	msg := fmt.Sprintf("cannot change status from %s to %s", e.Current, e.Requested)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// PastDateError reports an operation on a date or time that has elapsed.
type PastDateError struct {
	Message string
}

func (e *PastDateError) Error() string {
	if e.Message == "" {
		return "date is in the past"
	}
	return e.Message
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// StorageError wraps a persistence failure. It is never one of the domain
// kinds above.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError unless it is nil or already one of the
// domain kinds, which pass through unchanged.
func Storage(op string, err error) error {
	if err == nil || IsDomain(err) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsDomain reports whether err is a validation, conflict, state, past-date or
// not-found error.
func IsDomain(err error) bool {
	var (
		ve *ValidationError
		ce *ConflictError
		se *StateError
		pe *PastDateError
		ne *NotFoundError
	)
	return errors.As(err, &ve) || errors.As(err, &ce) || errors.As(err, &se) ||
		errors.As(err, &pe) || errors.As(err, &ne)
}

// Retryable reports whether the caller may retry after refreshing its view,
// which is only the case for slot conflicts.
func Retryable(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// Body is the JSON error envelope.
type Body struct {
	Error Detail `json:"error"`
}

type Detail struct {
	Kind    string       `json:"kind"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}

// Classify returns the HTTP status and envelope for err.
func Classify(err error) (int, Body) {
	var (
		ve *ValidationError
		ce *ConflictError
		se *StateError
		pe *PastDateError
		ne *NotFoundError
		he *echo.HTTPError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, Body{Detail{Kind: KindValidation, Message: ve.Error(), Fields: ve.Fields}}
	case errors.As(err, &ce):
		return http.StatusConflict, Body{Detail{Kind: KindConflict, Message: ce.Error()}}
	case errors.As(err, &se):
		return http.StatusConflict, Body{Detail{Kind: KindState, Message: se.Error()}}
	case errors.As(err, &pe):
		return http.StatusUnprocessableEntity, Body{Detail{Kind: KindPastDate, Message: pe.Error()}}
	case errors.As(err, &ne):
		return http.StatusNotFound, Body{Detail{Kind: KindNotFound, Message: ne.Error()}}
	case errors.As(err, &he):
		return he.Code, Body{Detail{Kind: kindForStatus(he.Code), Message: fmt.Sprint(he.Message)}}
	default:
		return http.StatusInternalServerError, Body{Detail{Kind: KindInternal, Message: "internal server error"}}
	}
}

func kindForStatus(code int) string {
	switch code {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusServiceUnavailable:
		return "unavailable"
	}
	if code >= 500 {
		return KindInternal
	}
	return "error"
}

// ToHTTP converts err into an echo.HTTPError carrying the envelope.
func ToHTTP(err error) *echo.HTTPError {
	code, body := Classify(err)
	return echo.NewHTTPError(code, body).SetInternal(err)
}

// HTTPErrorHandler renders every handler error with the envelope. Storage
// failures are logged by the request logger and reported as 500.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if body, ok := he.Message.(Body); ok {
			writeBody(c, he.Code, body)
			return
		}
	}
	code, body := Classify(err)
	writeBody(c, code, body)
}

func writeBody(c echo.Context, code int, body Body) {
	var err error
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, body)
	}
	if err != nil {
		c.Logger().Error(err)
	}
}
