package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsAllowedOrigin(t *testing.T) {
	allowed := []string{
		"http://localhost",
		"https://localhost:3000",
		"http://127.0.0.1:8090",
		"http://192.168.1.50:19006",
		"http://10.0.0.7",
		"http://172.16.0.1:8080",
		"http://169.254.1.1",
		"http://shield.local",
		"http://mediabox:8090",
	}
	for _, origin := range allowed {
		if !IsAllowedOrigin(origin) {
			t.Errorf("expected %q to be allowed", origin)
		}
	}

	blocked := []string{
		"http://example.com",
		"https://evil.com",
		"http://image.tmdb.org.evil.com",
		"http://8.8.8.8",
		"http://172.32.0.1", // just past the RFC1918 172 block
		"",
		"not-a-url",
	}
	for _, origin := range blocked {
		if IsAllowedOrigin(origin) {
			t.Errorf("expected %q to be blocked", origin)
		}
	}
}

func TestRouter_HealthAndCORS(t *testing.T) {
	router := NewRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://192.168.1.50:19006")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://192.168.1.50:19006" {
		t.Errorf("expected origin reflected, got %q", got)
	}

	// Public origins get no CORS headers
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.com")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no CORS header for public origin, got %q", got)
	}
}

func TestRouter_Preflight(t *testing.T) {
	router := NewRouter()

	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "http://localhost:19006")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != allowedHeaders {
		t.Errorf("unexpected allow-headers %q", got)
	}
}
