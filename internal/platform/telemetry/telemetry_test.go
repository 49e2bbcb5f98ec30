package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
)

func TestSetup_Disabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), Config{Enabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown: %v", err)
	}
	if otel.GetTextMapPropagator() == nil {
		t.Error("expected propagator to be installed")
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{SampleRatio: 3}
	cfg.applyDefaults()
	if cfg.ServiceName != "odonto-server" {
		t.Errorf("expected default service name, got %q", cfg.ServiceName)
	}
	if cfg.SampleRatio != 1 {
		t.Errorf("expected ratio clamped to 1, got %v", cfg.SampleRatio)
	}
}

func TestMiddleware_PassesThrough(t *testing.T) {
	e := echo.New()
	e.Use(Middleware("odonto-test"))
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestMiddleware_ReturnsHandlerError(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/x", nil), httptest.NewRecorder())
	want := errors.New("boom")
	err := Middleware("odonto-test")(func(echo.Context) error { return want })(c)
	if !errors.Is(err, want) {
		t.Errorf("expected handler error, got %v", err)
	}
}

func TestTraceID_NoSpan(t *testing.T) {
	if id := TraceID(context.Background()); id != "" {
		t.Errorf("expected empty trace id, got %q", id)
	}
}
