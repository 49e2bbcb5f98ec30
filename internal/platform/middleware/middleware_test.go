package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/odonto/odonto/internal/platform/apperr"
	"github.com/odonto/odonto/internal/platform/auth"
)

func TestRequestID_GeneratesNew(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		rid := c.Get("request_id").(string)
		if rid == "" {
			t.Error("expected request_id to be generated")
		}
		return c.String(http.StatusOK, "ok")
	}

	if err := RequestID()(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "my-custom-id")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		if rid := c.Get("request_id").(string); rid != "my-custom-id" {
			t.Errorf("expected my-custom-id, got %s", rid)
		}
		return c.String(http.StatusOK, "ok")
	}

	RequestID()(handler)(c)

	if rec.Header().Get(RequestIDHeader) != "my-custom-id" {
		t.Errorf("expected my-custom-id in response header, got %s", rec.Header().Get(RequestIDHeader))
	}
}

func TestLogger_AttachesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "req-42")

	handler := func(c echo.Context) error {
		zerolog.Ctx(c.Request().Context()).Info().Msg("inside handler")
		return c.String(http.StatusOK, "ok")
	}

	if err := Logger(zerolog.New(&buf))(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}
	for _, line := range lines {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		if entry["request_id"] != "req-42" {
			t.Errorf("expected request_id on every line, got %v", entry)
		}
	}
	if !strings.Contains(lines[1], `"status":200`) {
		t.Errorf("expected status in access log, got %s", lines[1])
	}
}

func TestLogger_ErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())

	handler := func(c echo.Context) error {
		return apperr.ToHTTP(apperr.Storage("insert appointment", errors.New("connection reset")))
	}
	Logger(zerolog.New(&buf))(handler)(c)

	out := buf.String()
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, `"status":500`) {
		t.Errorf("expected error level with 500, got %s", out)
	}
	if !strings.Contains(out, "connection reset") {
		t.Errorf("expected storage cause in log, got %s", out)
	}
}

func TestRecovery_CatchesPanic(t *testing.T) {
	logger := zerolog.New(os.Stderr).With().Logger()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	handler := func(c echo.Context) error {
		panic("test panic")
	}

	err := Recovery(logger)(handler)(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", httpErr.Code)
	}
}

func TestRecovery_PassesThrough(t *testing.T) {
	logger := zerolog.New(os.Stderr).With().Logger()
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/ok", nil), httptest.NewRecorder())

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	if err := Recovery(logger)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAudit_RecordsWrites(t *testing.T) {
	var entries []AuditEntry
	recorder := AuditRecorderFunc(func(e AuditEntry) error {
		entries = append(entries, e)
		return nil
	})

	e := echo.New()
	id := "7b0c5f7e-8a55-4b7a-9c43-1f2b3c4d5e6f"
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/"+id+"/cancel", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), "user-1", []string{auth.RoleReceptionist}))
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set("request_id", "req-abc")

	handler := func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
	if err := Audit(zerolog.Nop(), recorder)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	got := entries[0]
	if got.Resource != "appointments" || got.ResourceID != id || got.Action != "create" {
		t.Errorf("unexpected entry: %+v", got)
	}
	if got.UserID != "user-1" || got.RequestID != "req-abc" {
		t.Errorf("expected identity and request id, got %+v", got)
	}
}

func TestAudit_SkipsReads(t *testing.T) {
	called := false
	recorder := AuditRecorderFunc(func(AuditEntry) error {
		called = true
		return nil
	})
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil), httptest.NewRecorder())

	Audit(zerolog.Nop(), recorder)(func(c echo.Context) error { return nil })(c)
	if called {
		t.Error("reads should not be audited")
	}
}

func TestExtractResource(t *testing.T) {
	tests := []struct {
		path, resource, id string
	}{
		{"/api/v1/appointments", "appointments", ""},
		{"/api/v1/practitioners/7b0c5f7e-8a55-4b7a-9c43-1f2b3c4d5e6f/office-hours", "practitioners", "7b0c5f7e-8a55-4b7a-9c43-1f2b3c4d5e6f"},
		{"/api/v1/reminders/stats", "reminders", ""},
		{"/api/v1/", "unknown", ""},
	}
	for _, tt := range tests {
		resource, id := extractResource(tt.path)
		if resource != tt.resource || id != tt.id {
			t.Errorf("%s: got (%s, %s), want (%s, %s)", tt.path, resource, id, tt.resource, tt.id)
		}
	}
}
