package reminder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/odonto/odonto/internal/platform/notification"
)

func newRequest(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_Record(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, uuid.New(), "09:00")
	h := NewHandler(f.tracker, nil)
	e := echo.New()

	c, rec := newRequest(e, http.MethodPost, "/", `{"recipient":"BOTH","success":false,"error":"mailbox full"}`)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.Record(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var got Record
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Recipient != RecipientBoth || got.Success || got.Error != "mailbox full" {
		t.Errorf("unexpected record: %+v", got)
	}

	c, _ = newRequest(e, http.MethodPost, "/", `{"recipient":"NOBODY","success":true}`)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	httpErr, ok := h.Record(c).(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", httpErr)
	}
}

func TestHandler_Dispatch(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, uuid.New(), "09:00")
	sender := &notification.MockSender{}
	h := NewHandler(f.tracker, newTestDispatcher(f, sender))
	e := echo.New()

	c, rec := newRequest(e, http.MethodPost, "/", `{"recipient":"PRACTITIONER"}`)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.Dispatch(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Record
	json.Unmarshal(rec.Body.Bytes(), &got)
	if !got.Success || len(sender.Calls()) != 1 {
		t.Errorf("expected one successful delivery, got %+v", got)
	}
}

func TestHandler_Stats(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, uuid.New(), "09:00")
	f.tracker.Record(context.Background(), a.ID, RecipientPatient, Outcome{Success: true})
	h := NewHandler(f.tracker, nil)
	e := echo.New()

	c, rec := newRequest(e, http.MethodGet, "/reminders/stats?practitioner_id="+f.pid.String(), "")
	if err := h.Stats(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var stats Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalSent != 1 || stats.ByRecipient[RecipientPatient] != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	c, _ = newRequest(e, http.MethodGet, "/reminders/stats?practitioner_id=nope", "")
	if httpErr, ok := h.Stats(c).(*echo.HTTPError); !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", httpErr)
	}
}

func TestHandler_ListByAppointment(t *testing.T) {
	f := newFixture(t)
	a := f.book(t, uuid.New(), "09:00")
	f.tracker.Record(context.Background(), a.ID, RecipientPatient, Outcome{Success: true})
	h := NewHandler(f.tracker, nil)
	e := echo.New()

	c, rec := newRequest(e, http.MethodGet, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.ListByAppointment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var records []Record
	json.Unmarshal(rec.Body.Bytes(), &records)
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
}
