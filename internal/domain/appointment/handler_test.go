package appointment

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/odonto/odonto/pkg/pagination"
)

func newTestHandler(t *testing.T) (*Handler, *fixture, *echo.Echo) {
	f := newFixture(t)
	return NewHandler(f.svc), f, echo.New()
}

func jsonContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func expectCode(t *testing.T, err error, code int) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
}

func TestHandler_Create(t *testing.T) {
	h, f, e := newTestHandler(t)
	body := `{"patient_id":"` + f.patientID.String() + `","practitioner_id":"` + f.pid.String() +
		`","date":"2026-03-02","start_time":"09:00","consult_type":"first-visit","reason":"toothache"}`
	c, rec := jsonContext(e, http.MethodPost, "/", body)

	if err := h.Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var a Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &a); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if a.Status != StatusScheduled || a.EndTime.String() != "09:30" {
		t.Errorf("unexpected appointment: %+v", a)
	}
}

func TestHandler_Create_Errors(t *testing.T) {
	h, f, e := newTestHandler(t)
	f.book(t, monday, "09:00")

	tests := []struct {
		name string
		body string
		code int
	}{
		{"malformed", `{"date":"tomorrow"}`, http.StatusBadRequest},
		{"missing fields", `{"consult_type":"cleaning"}`, http.StatusBadRequest},
		{"conflict", `{"patient_id":"` + uuid.NewString() + `","practitioner_id":"` + f.pid.String() +
			`","date":"2026-03-02","start_time":"09:00","consult_type":"cleaning"}`, http.StatusConflict},
		{"past", `{"patient_id":"` + uuid.NewString() + `","practitioner_id":"` + f.pid.String() +
			`","date":"2026-02-23","start_time":"09:00","consult_type":"cleaning"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := jsonContext(e, http.MethodPost, "/", tt.body)
			expectCode(t, h.Create(c), tt.code)
		})
	}
}

func TestHandler_Get(t *testing.T) {
	h, f, e := newTestHandler(t)
	a := f.book(t, monday, "09:00")

	c, rec := jsonContext(e, http.MethodGet, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	c, _ = jsonContext(e, http.MethodGet, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())
	expectCode(t, h.Get(c), http.StatusNotFound)

	c, _ = jsonContext(e, http.MethodGet, "/", "")
	c.SetParamNames("id")
	c.SetParamValues("abc")
	expectCode(t, h.Get(c), http.StatusBadRequest)
}

func TestHandler_List(t *testing.T) {
	h, f, e := newTestHandler(t)
	f.book(t, monday, "08:00")
	f.book(t, monday, "08:30")
	f.book(t, tuesday, "08:00")

	target := "/appointments?practitioner_id=" + f.pid.String() + "&from=2026-03-02&to=2026-03-02&limit=1"
	c, rec := jsonContext(e, http.MethodGet, target, "")
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		pagination.Response
		Data []Appointment `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 || len(resp.Data) != 1 || !resp.HasMore {
		t.Errorf("unexpected page: total=%d len=%d has_more=%v", resp.Total, len(resp.Data), resp.HasMore)
	}
	if resp.Links == nil || !strings.Contains(resp.Links.Next, "offset=1") {
		t.Errorf("expected next link, got %+v", resp.Links)
	}

	c, _ = jsonContext(e, http.MethodGet, "/appointments?status=LATE", "")
	expectCode(t, h.List(c), http.StatusBadRequest)
}

func TestHandler_ChangeStatus(t *testing.T) {
	h, f, e := newTestHandler(t)
	a := f.book(t, monday, "09:00")

	c, rec := jsonContext(e, http.MethodPatch, "/", `{"status":"CONFIRMED"}`)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.ChangeStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	c, _ = jsonContext(e, http.MethodPatch, "/", `{"status":"ATTENDED"}`)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	expectCode(t, h.ChangeStatus(c), http.StatusConflict)
}

func TestHandler_Cancel(t *testing.T) {
	h, f, e := newTestHandler(t)
	a := f.book(t, monday, "09:00")

	c, _ := jsonContext(e, http.MethodPost, "/", `{}`)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	expectCode(t, h.Cancel(c), http.StatusBadRequest)

	c, rec := jsonContext(e, http.MethodPost, "/", `{"reason":"moving city"}`)
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.Cancel(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Appointment
	json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Status != StatusCancelled || got.CancellationReason != "moving city" {
		t.Errorf("unexpected appointment: %+v", got)
	}
}

func TestHandler_Delete(t *testing.T) {
	h, f, e := newTestHandler(t)
	a := f.book(t, monday, "09:00")

	c, rec := jsonContext(e, http.MethodDelete, "/", "")
	c.SetParamNames("id")
	c.SetParamValues(a.ID.String())
	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}
