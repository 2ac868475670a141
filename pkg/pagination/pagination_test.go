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
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(contextFor("/patient/appointments"))
	if p.Limit != DefaultLimit {
		t.Errorf("expected limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := FromContext(contextFor("/patient/appointments?limit=50&offset=10"))
	if p.Limit != 50 || p.Offset != 10 {
		t.Errorf("expected 50/10, got %d/%d", p.Limit, p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	p := FromContext(contextFor("/clinics?limit=500"))
	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_InvalidValues(t *testing.T) {
	p := FromContext(contextFor("/clinics?limit=abc&offset=-5"))
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("expected defaults, got %d/%d", p.Limit, p.Offset)
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 50, Params{Limit: 20, Offset: 0})
	if resp.Total != 50 || resp.Limit != 20 || resp.Offset != 0 {
		t.Errorf("unexpected response %+v", resp)
	}
	if !resp.HasMore {
		t.Error("expected HasMore=true")
	}

	last := NewResponse(nil, 50, Params{Limit: 20, Offset: 40})
	if last.HasMore {
		t.Error("expected HasMore=false on last page")
	}
}

func TestResponse_WithLinks(t *testing.T) {
	u, _ := url.Parse("/doctor/appointments?date=2030-01-15&limit=10&offset=10")
	resp := NewResponse(nil, 35, Params{Limit: 10, Offset: 10}).WithLinks(u)

	if resp.Links == nil {
		t.Fatal("expected links")
	}
	if resp.Links.Next != "/doctor/appointments?date=2030-01-15&limit=10&offset=20" {
		t.Errorf("unexpected next link %q", resp.Links.Next)
	}
	if resp.Links.Previous != "/doctor/appointments?date=2030-01-15&limit=10&offset=0" {
		t.Errorf("unexpected previous link %q", resp.Links.Previous)
	}
}

func TestResponse_WithLinks_SinglePage(t *testing.T) {
	u, _ := url.Parse("/clinics")
	resp := NewResponse(nil, 3, Params{Limit: 20}).WithLinks(u)
	if resp.Links != nil {
		t.Errorf("expected no links, got %+v", resp.Links)
	}
}

func TestParams_PreviousOffset(t *testing.T) {
	tests := []struct {
		offset, limit, want int
	}{
		{40, 20, 20},
		{10, 20, 0},
		{0, 20, 0},
	}
	for _, tt := range tests {
		p := Params{Limit: tt.limit, Offset: tt.offset}
		if got := p.PreviousOffset(); got != tt.want {
			t.Errorf("PreviousOffset(%d,%d) = %d, want %d", tt.offset, tt.limit, got, tt.want)
		}
	}
}
