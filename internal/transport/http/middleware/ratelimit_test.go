package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"miluim/internal/requestctx"
)

func noContent() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRateLimitSeparatesSubjects(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())

	anon := httptest.NewRequest(http.MethodPost, "/api/v1/payments", nil)
	anon.RemoteAddr = "198.51.100.11:2222"
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, anon)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}

	ctx := requestctx.WithSubject(context.Background(), "admin")
	admin := httptest.NewRequest(http.MethodPost, "/api/v1/payments", nil).WithContext(ctx)
	admin.RemoteAddr = "198.51.100.11:2223"
	rec = httptest.NewRecorder()
	limited.ServeHTTP(rec, admin)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected authenticated request to use its own bucket, got %d", rec.Code)
	}

	again := httptest.NewRequest(http.MethodPost, "/api/v1/payments", nil)
	again.RemoteAddr = "198.51.100.11:4444"
	rec = httptest.NewRecorder()
	limited.ServeHTTP(rec, again)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected anonymous retry to be throttled by ip, got %d", rec.Code)
	}
}

func TestRateLimitHonoursForwardedFor(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())

	first := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	first.Header.Set("X-Forwarded-For", "203.0.113.10, 10.0.0.1")
	limited.ServeHTTP(httptest.NewRecorder(), first)

	second := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	second.Header.Set("X-Forwarded-For", "203.0.113.10")
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, second)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected forwarded client to be throttled, got %d", rec.Code)
	}
}

func TestRateLimitWindowReset(t *testing.T) {
	limited := RateLimit(1, 40*time.Millisecond)(noContent())

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", nil)
		req.RemoteAddr = "192.0.2.20:1111"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(); code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", code)
	}
	time.Sleep(50 * time.Millisecond)
	if code := send(); code != http.StatusNoContent {
		t.Fatalf("expected request after window reset to pass, got %d", code)
	}
}

func TestRateLimitReturnsRetryMetadata(t *testing.T) {
	limited := RateLimit(1, time.Minute)(noContent())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", nil)
		req.RemoteAddr = "192.0.2.30:1234"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		if i == 0 {
			continue
		}
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected throttled response, got %d", rec.Code)
		}
		if rec.Header().Get("Retry-After") == "" {
			t.Fatal("expected Retry-After header")
		}
		if rec.Header().Get("X-RateLimit-Reset") == "" {
			t.Fatal("expected X-RateLimit-Reset header")
		}
	}
}

func TestSensitiveRateLimitScope(t *testing.T) {
	limited := SensitiveRateLimit(4, time.Minute)(noContent())

	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/reconciliation", nil)
		req.RemoteAddr = "198.51.100.40:8888"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected read request %d to bypass sensitive limits, got %d", i+1, rec.Code)
		}
	}

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/import/attendance", nil)
		req.RemoteAddr = "198.51.100.41:9999"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		if i < 2 && rec.Code != http.StatusNoContent {
			t.Fatalf("expected import %d to pass, got %d", i+1, rec.Code)
		}
		if i == 2 && rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected third import to be throttled, got %d", rec.Code)
		}
	}

	first := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", nil)
	first.RemoteAddr = "198.51.100.42:1"
	limited.ServeHTTP(httptest.NewRecorder(), first)
	second := httptest.NewRequest(http.MethodPost, "/api/v1/auth/token", nil)
	second.RemoteAddr = "198.51.100.42:2"
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, second)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second login to be throttled, got %d", rec.Code)
	}
}
