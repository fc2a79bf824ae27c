package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/gestcare/gestcare/internal/platform/auth"
)

func TestRequestID_Generates(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var rid string
	handler := func(c echo.Context) error {
		rid, _ = c.Get("request_id").(string)
		return nil
	}
	if err := RequestID()(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rid == "" {
		t.Fatal("expected a generated request id")
	}
	if rec.Header().Get(RequestIDHeader) != rid {
		t.Errorf("expected response header %q, got %q", rid, rec.Header().Get(RequestIDHeader))
	}
}

func TestRequestID_ReusesIncoming(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := RequestID()(func(echo.Context) error { return nil })(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(RequestIDHeader) != "abc-123" {
		t.Errorf("expected incoming id to be reused, got %q", rec.Header().Get(RequestIDHeader))
	}
}

func TestLogger_WritesRequestLine(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/profile", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "rid-1")

	handler := func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "missing")
	}
	if err := Logger(logger)(handler)(c); err != nil {
		t.Fatalf("expected error to be handled, got %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"request_id":"rid-1"`, `"path":"/api/v1/profile"`, `"status":404`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in log line %s", want, out)
		}
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestRecovery(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	req = req.WithContext(auth.WithUser(req.Context(), "patient-42", []string{"patient"}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/dashboard")
	c.Set("request_id", "req-1")

	var buf bytes.Buffer
	err := Recovery(zerolog.New(&buf))(func(echo.Context) error { panic("boom") })(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 HTTPError, got %v", err)
	}
	line := buf.String()
	for _, want := range []string{`"user_id":"patient-42"`, `"route":"/api/v1/dashboard"`, `"request_id":"req-1"`, `"panic":"boom"`} {
		if !strings.Contains(line, want) {
			t.Errorf("expected %s in log line %s", want, line)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := SecurityHeaders()(func(echo.Context) error { return nil })(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected nosniff header")
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("expected no-store header")
	}
}
