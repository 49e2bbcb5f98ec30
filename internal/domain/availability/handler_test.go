package availability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestHandler_ComputeSlots(t *testing.T) {
	svc, busy, pid := setup(t)
	busy.add(monday, "09:00", "09:30")
	h := NewHandler(svc)
	h.now = func() time.Time { return weekAgo }
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/?date=2026-03-02&duration=30", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(pid.String())

	if err := h.ComputeSlots(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp slotsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Slots) != 7 {
		t.Errorf("expected 7 slots, got %d", len(resp.Slots))
	}
	if resp.Slots[0].Start.String() != "08:00" {
		t.Errorf("unexpected first slot: %+v", resp.Slots[0])
	}
}

func TestHandler_ComputeSlots_Invalid(t *testing.T) {
	svc, _, pid := setup(t)
	h := NewHandler(svc)
	e := echo.New()

	tests := []struct {
		name  string
		id    string
		query string
	}{
		{"bad id", "nope", "?date=2026-03-02&duration=30"},
		{"missing date", pid.String(), "?duration=30"},
		{"short duration", pid.String(), "?date=2026-03-02&duration=10"},
		{"zero duration", pid.String(), "?date=2026-03-02&duration=0"},
		{"non-numeric duration", pid.String(), "?date=2026-03-02&duration=half"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil), httptest.NewRecorder())
			c.SetParamNames("id")
			c.SetParamValues(tt.id)
			err := h.ComputeSlots(c)
			httpErr, ok := err.(*echo.HTTPError)
			if !ok {
				t.Fatalf("expected echo.HTTPError, got %T", err)
			}
			if httpErr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", httpErr.Code)
			}
		})
	}
}
