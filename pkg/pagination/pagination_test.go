package pagination

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextFor(target string) echo.Context {
	e := echo.New()
	return e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(contextFor("/appointments"))
	if p.Limit != DefaultLimit {
		t.Errorf("expected limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := FromContext(contextFor("/appointments?limit=50&offset=10"))
	if p.Limit != 50 || p.Offset != 10 {
		t.Errorf("unexpected params: %+v", p)
	}
}

func TestFromContext_Clamped(t *testing.T) {
	p := FromContext(contextFor("/appointments?limit=500&offset=-5"))
	if p.Limit != MaxLimit {
		t.Errorf("expected limit %d, got %d", MaxLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestParams_Bounds(t *testing.T) {
	tests := []struct {
		p          Params
		total      int
		start, end int
	}{
		{Params{Limit: 10, Offset: 0}, 25, 0, 10},
		{Params{Limit: 10, Offset: 20}, 25, 20, 25},
		{Params{Limit: 10, Offset: 30}, 25, 25, 25},
		{Params{Limit: 10, Offset: 0}, 0, 0, 0},
	}
	for _, tt := range tests {
		start, end := tt.p.Bounds(tt.total)
		if start != tt.start || end != tt.end {
			t.Errorf("Bounds(%+v, %d) = (%d, %d), want (%d, %d)", tt.p, tt.total, start, end, tt.start, tt.end)
		}
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 50, 20, 0)
	if resp.Total != 50 || !resp.HasMore {
		t.Errorf("unexpected response: %+v", resp)
	}
	if NewResponse(nil, 20, 20, 0).HasMore {
		t.Error("expected HasMore false on last page")
	}
}

func TestResponse_WithLinks(t *testing.T) {
	u, _ := url.Parse("/api/v1/appointments?status=CONFIRMED&limit=10&offset=10")
	resp := NewResponse(nil, 35, 10, 10).WithLinks(u)
	if resp.Links == nil {
		t.Fatal("expected links")
	}
	if resp.Links.Next != "/api/v1/appointments?limit=10&offset=20&status=CONFIRMED" {
		t.Errorf("unexpected next: %s", resp.Links.Next)
	}
	if resp.Links.Previous != "/api/v1/appointments?limit=10&offset=0&status=CONFIRMED" {
		t.Errorf("unexpected previous: %s", resp.Links.Previous)
	}
}

func TestResponse_WithLinks_SinglePage(t *testing.T) {
	u, _ := url.Parse("/api/v1/appointments")
	if resp := NewResponse(nil, 3, 20, 0).WithLinks(u); resp.Links != nil {
		t.Errorf("expected no links, got %+v", resp.Links)
	}
}
