package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	mw := RateLimit(1, 3)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/appointments", nil)
		req.Header.Set("X-Real-Ip", "10.0.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d rejected within burst: %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/appointments", nil)
	req.Header.Set("X-Real-Ip", "10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("rejection should be JSON like every other error, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), `"error"`) {
		t.Errorf("rejection body = %q, want JSON error", rec.Body.String())
	}
}

func TestRateLimitIsolatesClients(t *testing.T) {
	limiter := NewRateLimiter(1, 1)

	if !limiter.Allow("10.0.0.1") {
		t.Fatal("first request should pass")
	}
	if limiter.Allow("10.0.0.1") {
		t.Fatal("second request from same ip should be limited")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Fatal("different ip should have its own bucket")
	}
}
