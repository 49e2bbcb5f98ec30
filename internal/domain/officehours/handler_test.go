package officehours

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	return NewHandler(newTestService()), echo.New()
}

func weekJSON(t *testing.T, entries []Entry) string {
	t.Helper()
	b, err := json.Marshal(upsertWeekRequest{Entries: entries})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestHandler_UpsertWeek(t *testing.T) {
	h, e := newTestHandler()
	pid := uuid.New()
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(weekJSON(t, standardWeek())))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(pid.String())

	if err := h.UpsertWeek(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	var resp weekResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Days) != 7 || resp.Days[0].OpenTime.String() != "08:00" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandler_UpsertWeek_Invalid(t *testing.T) {
	h, e := newTestHandler()
	entries := standardWeek()
	entries[Tuesday].VisitMinutes = 5
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(weekJSON(t, entries)))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.UpsertWeek(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", httpErr.Code)
	}
}

func TestHandler_UpsertWeek_BadTime(t *testing.T) {
	h, e := newTestHandler()
	body := `{"entries":[{"weekday":0,"open_time":"8am","close_time":"12:00","visit_minutes":30,"active":true}]}`
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if err := h.UpsertWeek(c); err == nil {
		t.Error("expected error for malformed time")
	}
}

func TestHandler_ListWeek(t *testing.T) {
	h, e := newTestHandler()
	pid := uuid.New()
	h.svc.UpsertWeek(context.Background(), pid, standardWeek())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(pid.String())

	if err := h.ListWeek(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp weekResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Days) != 7 {
		t.Errorf("expected 7 days, got %d", len(resp.Days))
	}
}

func TestHandler_ListWeek_InvalidID(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if err := h.ListWeek(c); err == nil {
		t.Error("expected error for invalid id")
	}
}
