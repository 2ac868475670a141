package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRedisRateLimiter_FailOpen(t *testing.T) {
	rdb := unreachableRedis()
	defer rdb.Close()

	rl := NewRedisRateLimiter(rdb, 5, time.Minute, "test")
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/clinics", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	err := rl.Middleware(zerolog.Nop(), true)(func(c echo.Context) error {
		called = true
		return c.String(http.StatusOK, "ok")
	})(c)
	if err != nil {
		t.Fatalf("expected request to pass, got %v", err)
	}
	if !called {
		t.Error("expected handler to run when failing open")
	}
}

func TestRedisRateLimiter_FailClosed(t *testing.T) {
	rdb := unreachableRedis()
	defer rdb.Close()

	rl := NewRedisRateLimiter(rdb, 5, time.Minute, "test")
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/clinics", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	err := rl.Middleware(zerolog.Nop(), false)(func(c echo.Context) error {
		t.Error("handler should not run")
		return nil
	})(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %v", err)
	}
}

func TestNewRedisRateLimiter_Defaults(t *testing.T) {
	rl := NewRedisRateLimiter(nil, 0, 0, " ")
	if rl.limit != 60 || rl.window != time.Minute || rl.prefix != "rl" {
		t.Errorf("unexpected defaults: %+v", rl)
	}
}

func TestScriptCount(t *testing.T) {
	tests := []struct {
		in      interface{}
		want    int64
		wantErr bool
	}{
		{int64(3), 3, false},
		{7, 7, false},
		{"12", 12, false},
		{"x", 0, true},
		{3.5, 0, true},
	}
	for _, tt := range tests {
		got, err := scriptCount(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("scriptCount(%v) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("scriptCount(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
