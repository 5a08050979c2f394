package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func serve(mw echo.MiddlewareFunc, handler echo.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	e := echo.New()
	e.Use(mw)
	e.GET("/*", handler)
	e.POST("/*", handler)
	e.DELETE("/*", handler)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequestID_GeneratesWhenAbsent(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := serve(RequestID(), okHandler, req)

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a generated request ID in the response")
	}
}

func TestRequestID_HonorsIncomingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id")
	rec := serve(RequestID(), okHandler, req)

	if got := rec.Header().Get("X-Request-ID"); got != "upstream-id" {
		t.Errorf("expected upstream ID to propagate, got %q", got)
	}
}

func TestRateLimit_RejectsWhenBucketEmpty(t *testing.T) {
	cfg := RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 2}
	e := echo.New()
	e.Use(RateLimit(cfg))
	e.GET("/", okHandler)

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes[i] = rec.Code
		if i == 2 {
			if rec.Header().Get("Retry-After") == "" {
				t.Error("expected Retry-After on rejection")
			}
		}
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("requests within burst should pass: %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst exhausted, got %d", codes[2])
	}
}

func TestRequestTimeout_SlowHandlerGets504(t *testing.T) {
	slow := func(c echo.Context) error {
		select {
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		case <-time.After(time.Second):
			return c.String(http.StatusOK, "too late")
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := serve(RequestTimeout(20*time.Millisecond), slow, req)

	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", rec.Code)
	}
}

func TestRequestTimeout_FastHandlerUnaffected(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := serve(RequestTimeout(time.Second), okHandler, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := serve(SecurityHeaders(), okHandler, req)

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestAudit_RecordsFHIRAccess(t *testing.T) {
	var entries []AuditEntry
	recorder := AuditRecorderFunc(func(e AuditEntry) error {
		entries = append(entries, e)
		return nil
	})

	req := httptest.NewRequest(http.MethodDelete, "/fhir/connections/c1?patientId=p1", nil)
	serve(Audit(zerolog.Nop(), recorder), okHandler, req)

	if len(entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Action != "delete" {
		t.Errorf("action = %s", entry.Action)
	}
	if entry.PatientID != "p1" {
		t.Errorf("patientId = %s", entry.PatientID)
	}
	if entry.Path != "/fhir/connections/c1" {
		t.Errorf("path = %s", entry.Path)
	}
	if entry.StatusCode != http.StatusOK {
		t.Errorf("status = %d", entry.StatusCode)
	}
}

func TestAudit_SkipsNonFHIRPaths(t *testing.T) {
	var entries []AuditEntry
	recorder := AuditRecorderFunc(func(e AuditEntry) error {
		entries = append(entries, e)
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	serve(Audit(zerolog.Nop(), recorder), okHandler, req)

	if len(entries) != 0 {
		t.Errorf("expected no audit entries for /health, got %d", len(entries))
	}
}

func TestHTTPMethodToAction(t *testing.T) {
	tests := map[string]string{
		"GET":    "read",
		"POST":   "create",
		"PUT":    "update",
		"DELETE": "delete",
		"TRACE":  "trace",
	}
	for method, want := range tests {
		if got := httpMethodToAction(method); got != want {
			t.Errorf("httpMethodToAction(%s) = %s, want %s", method, got, want)
		}
	}
}
