package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		kind string
	}{
		{"validation", NewValidation("duration", "out of range"), http.StatusBadRequest, KindValidation},
		{"conflict", &ConflictError{}, http.StatusConflict, KindConflict},
		{"state", &StateError{Current: "ATTENDED", Requested: "CONFIRMED"}, http.StatusConflict, KindState},
		{"past", &PastDateError{}, http.StatusUnprocessableEntity, KindPastDate},
		{"not found", &NotFoundError{Resource: "appointment", ID: "x"}, http.StatusNotFound, KindNotFound},
		{"wrapped conflict", fmt.Errorf("create: %w", &ConflictError{}), http.StatusConflict, KindConflict},
		{"storage", Storage("insert appointment", errors.New("connection reset")), http.StatusInternalServerError, KindInternal},
		{"plain", errors.New("boom"), http.StatusInternalServerError, KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := Classify(tt.err)
			if code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, code)
			}
			if body.Error.Kind != tt.kind {
				t.Errorf("expected kind %q, got %q", tt.kind, body.Error.Kind)
			}
		})
	}
}

func TestStorage(t *testing.T) {
	err := Storage("select", errors.New("timeout"))
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "select" {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if IsDomain(err) {
		t.Error("storage failure must not be a domain kind")
	}

	conflict := &ConflictError{}
	if got := Storage("insert", conflict); got != conflict {
		t.Errorf("domain errors should pass through, got %v", got)
	}
	if Storage("noop", nil) != nil {
		t.Error("expected nil for nil cause")
	}
	if again := Storage("outer", err); again != err {
		t.Error("storage errors should not be wrapped twice")
	}
}

func TestValidationError_Collects(t *testing.T) {
	v := &ValidationError{}
	if v.Err() != nil {
		t.Fatal("empty validation should be nil")
	}
	v.Add("monday.close_time", "must be after open_time")
	v.Add("friday.visit_minutes", "must be between 15 and 480")
	err := v.Err()
	if err == nil {
		t.Fatal("expected error")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || len(ve.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(fmt.Errorf("wrap: %w", &ConflictError{})) {
		t.Error("conflict should be retryable")
	}
	if Retryable(&StateError{}) {
		t.Error("state error should not be retryable")
	}
}

func TestHTTPErrorHandler_Envelope(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(ToHTTP(NewValidation("patient_id", "is required")), c)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body Body
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Kind != KindValidation {
		t.Errorf("expected validation kind, got %q", body.Error.Kind)
	}
	if len(body.Error.Fields) != 1 || body.Error.Fields[0].Field != "patient_id" {
		t.Errorf("unexpected fields: %+v", body.Error.Fields)
	}
}

func TestHTTPErrorHandler_EchoError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	HTTPErrorHandler(echo.NewHTTPError(http.StatusForbidden, "insufficient permissions"), c)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	var body Body
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error.Kind != "forbidden" || body.Error.Message != "insufficient permissions" {
		t.Errorf("unexpected body: %+v", body)
	}
}
