package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func newTestLimiter(t *testing.T, r rate.Limit, burst int) *IPRateLimiter {
	t.Helper()
	rl := NewIPRateLimiter(r, burst)
	t.Cleanup(rl.Stop)
	return rl
}

func TestRateLimitMiddleware_AllowsWithinLimit(t *testing.T) {
	rl := newTestLimiter(t, rate.Every(time.Second), 5)
	handler := rl.Middleware()(okHandler())

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPut, "/api/sessions/abc/query", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
}

func TestRateLimitMiddleware_BlocksExcessRequests(t *testing.T) {
	rl := newTestLimiter(t, rate.Every(2*time.Second), 2)
	handler := rl.Middleware()(okHandler())

	// Exhaust burst
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
	req.RemoteAddr = "10.0.0.1:12345"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] != "too many requests" {
		t.Fatalf("expected 'too many requests', got %q", body["error"])
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("expected Retry-After: 2, got %q", rec.Header().Get("Retry-After"))
	}
}

func TestRateLimitMiddleware_PerIPIsolation(t *testing.T) {
	rl := newTestLimiter(t, rate.Every(time.Second), 1)
	handler := rl.Middleware()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "1.1.1.1:1234"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("IP A first request: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("IP A second request: expected 429, got %d", rec.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.RemoteAddr = "2.2.2.2:1234"
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("IP B first request: expected 200, got %d", rec2.Code)
	}
}

func TestEvictIdle(t *testing.T) {
	rl := newTestLimiter(t, rate.Every(time.Second), 1)
	rl.getLimiter("10.0.0.1")
	rl.getLimiter("10.0.0.2")

	if n := rl.evictIdle(time.Now().Add(-time.Hour)); n != 0 {
		t.Fatalf("expected nothing evicted, got %d", n)
	}
	if n := rl.evictIdle(time.Now().Add(time.Second)); n != 2 {
		t.Fatalf("expected 2 evicted, got %d", n)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{name: "x-forwarded-for", headers: map[string]string{"X-Forwarded-For": "203.0.113.50, 70.41.3.18"}, want: "203.0.113.50"},
		{name: "x-real-ip", headers: map[string]string{"X-Real-IP": "198.51.100.10"}, want: "198.51.100.10"},
		{name: "remote addr", remote: "192.0.2.1:54321", want: "192.0.2.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if tt.remote != "" {
				req.RemoteAddr = tt.remote
			}
			if got := getClientIP(req); got != tt.want {
				t.Fatalf("expected %s, got %q", tt.want, got)
			}
		})
	}
}
