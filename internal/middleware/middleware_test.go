package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		enableHSTS bool
		tls        bool
		wantHSTS   bool
	}{
		{name: "plain http", enableHSTS: true, tls: false, wantHSTS: false},
		{name: "tls without hsts", enableHSTS: false, tls: true, wantHSTS: false},
		{name: "tls with hsts", enableHSTS: true, tls: true, wantHSTS: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest("GET", "/healthz", nil)
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			}
			w := httptest.NewRecorder()
			SecurityHeaders(tt.enableHSTS)(okHandler).ServeHTTP(w, req)

			if w.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("Expected nosniff header")
			}
			if w.Header().Get("Content-Security-Policy") != "default-src 'none'" {
				t.Error("Expected restrictive CSP")
			}
			if got := w.Header().Get("Strict-Transport-Security") != ""; got != tt.wantHSTS {
				t.Errorf("HSTS set = %v, want %v", got, tt.wantHSTS)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		wantStatus  int
	}{
		{name: "GET passes", method: "GET", wantStatus: http.StatusOK},
		{name: "POST without body passes", method: "POST", wantStatus: http.StatusOK},
		{name: "POST json", method: "POST", body: `{}`, contentType: "application/json", wantStatus: http.StatusOK},
		{name: "POST json with charset", method: "POST", body: `{}`, contentType: "application/json; charset=utf-8", wantStatus: http.StatusOK},
		{name: "POST form", method: "POST", body: `a=b`, contentType: "application/x-www-form-urlencoded", wantStatus: http.StatusUnsupportedMediaType},
		{name: "POST missing content type", method: "POST", body: `{}`, wantStatus: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, "/api/v1/projects/1/stats", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			ContentType(okHandler).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 32)))
	w := httptest.NewRecorder()
	MaxRequestSize(16)(okHandler).ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader("{}"))
	w = httptest.NewRecorder()
	MaxRequestSize(0)(okHandler).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected small body to pass, got %d", w.Code)
	}
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
			w.WriteHeader(http.StatusOK)
		}
	})

	w := httptest.NewRecorder()
	Timeout(10*time.Millisecond)(slow).ServeHTTP(w, httptest.NewRequest("GET", "/", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 on timeout, got %d", w.Code)
	}
}

func TestParseOrigins(t *testing.T) {
	t.Parallel()

	got := ParseOrigins(" http://localhost:3000, https://stats.example.com ,,http://localhost:3000")
	want := []string{"http://localhost:3000", "https://stats.example.com"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseOrigins() = %v, want %v", got, want)
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	handler := CORS("https://stats.example.com")(okHandler)

	tests := []struct {
		name       string
		origin     string
		wantOrigin string
	}{
		{name: "allowed origin", origin: "https://stats.example.com", wantOrigin: "https://stats.example.com"},
		{name: "other origin", origin: "https://evil.example.com", wantOrigin: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest("GET", "/api/v1/runs/x", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/projects/42/stats", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	CORS("http://localhost:3000")(okHandler).ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected 204 for preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Methods") != http.MethodPost {
		t.Errorf("Expected POST to be allowed, got %q", w.Header().Get("Access-Control-Allow-Methods"))
	}
}

func TestRateLimit_Memory(t *testing.T) {
	t.Parallel()

	mw, err := RateLimit(nil, "2-M")
	if err != nil {
		t.Fatalf("RateLimit failed: %v", err)
	}
	handler := mw(okHandler)

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/api/v1/runs/x", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		statuses = append(statuses, w.Code)
	}
	if want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}; !reflect.DeepEqual(statuses, want) {
		t.Errorf("Statuses = %v, want %v", statuses, want)
	}

	req := httptest.NewRequest("GET", "/api/v1/runs/x", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected a different client to have its own budget, got %d", w.Code)
	}
}

func TestRateLimit_InvalidRate(t *testing.T) {
	t.Parallel()

	if _, err := RateLimit(nil, "lots"); err == nil {
		t.Error("Expected invalid rate format to be rejected")
	}
}
