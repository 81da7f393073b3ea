package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func limitedHandler(rl *IPRateLimiter) http.HandlerFunc {
	return RateLimitHandlerFunc(rl, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signin", nil)
	req.RemoteAddr = addr
	return req
}

func TestRateLimit_AllowsWithinBurst(t *testing.T) {
	rl := NewIPRateLimiter(rate.Every(time.Second), 5)
	handler := limitedHandler(rl)

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler(rec, requestFrom("192.168.1.1:12345"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
}

func TestRateLimit_BlocksWhenExhausted(t *testing.T) {
	rl := NewIPRateLimiter(rate.Every(time.Second), 2)
	handler := limitedHandler(rl)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler(rec, requestFrom("10.0.0.1:12345"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler(rec, requestFrom("10.0.0.1:12345"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] == "" {
		t.Error("expected error message in body")
	}
}

func TestRateLimit_TracksIPsIndependently(t *testing.T) {
	rl := NewIPRateLimiter(rate.Every(time.Second), 1)
	handler := limitedHandler(rl)

	rec := httptest.NewRecorder()
	handler(rec, requestFrom("10.0.0.1:1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("first ip: expected 200, got %d", rec.Code)
	}

	// A different address has its own bucket
	rec = httptest.NewRecorder()
	handler(rec, requestFrom("10.0.0.2:1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("second ip: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler(rec, requestFrom("10.0.0.1:1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("first ip again: expected 429, got %d", rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr", "203.0.113.9:4321", nil, "203.0.113.9"},
		{"x-forwarded-for single", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "198.51.100.7"}, "198.51.100.7"},
		{"x-forwarded-for chain", "10.0.0.1:1", map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.2"}, "198.51.100.7"},
		{"x-real-ip", "10.0.0.1:1", map[string]string{"X-Real-IP": "198.51.100.9"}, "198.51.100.9"},
	}

	for _, tt := range tests {
		req := requestFrom(tt.remoteAddr)
		for k, v := range tt.headers {
			req.Header.Set(k, v)
		}
		if got := clientIP(req); got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, got)
		}
	}
}
