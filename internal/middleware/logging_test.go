package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		method        string
		path          string
		handlerStatus int
		wantLevel     zapcore.Level
	}{
		{name: "GET run", method: "GET", path: "/api/v1/runs/abc", handlerStatus: http.StatusOK, wantLevel: zapcore.InfoLevel},
		{name: "POST stats", method: "POST", path: "/api/v1/projects/42/stats", handlerStatus: http.StatusAccepted, wantLevel: zapcore.InfoLevel},
		{name: "not found", method: "GET", path: "/notfound", handlerStatus: http.StatusNotFound, wantLevel: zapcore.InfoLevel},
		{name: "server error", method: "GET", path: "/healthz", handlerStatus: http.StatusServiceUnavailable, wantLevel: zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.DebugLevel)
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.handlerStatus)
			})

			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			Logging(zap.New(core))(handler).ServeHTTP(w, req)

			if w.Code != tt.handlerStatus {
				t.Errorf("Expected status %d, got %d", tt.handlerStatus, w.Code)
			}
			entries := logs.FilterMessage("http_request").All()
			if len(entries) != 1 {
				t.Fatalf("Expected one http_request entry, got %d", len(entries))
			}
			if entries[0].Level != tt.wantLevel {
				t.Errorf("Expected level %s, got %s", tt.wantLevel, entries[0].Level)
			}
			fields := entries[0].ContextMap()
			if fields["path"] != tt.path {
				t.Errorf("Expected path %q, got %v", tt.path, fields["path"])
			}
			if fields["status_code"] != int64(tt.handlerStatus) {
				t.Errorf("Expected status_code %d, got %v", tt.handlerStatus, fields["status_code"])
			}
		})
	}
}

func TestLoggingResponseWriter(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("test"))
		w.WriteHeader(http.StatusCreated) // ignored, header already sent
	})

	w := httptest.NewRecorder()
	Logging(zap.New(core))(handler).ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

	if w.Code != http.StatusOK {
		t.Errorf("Expected implicit status 200, got %d", w.Code)
	}
	fields := logs.All()[0].ContextMap()
	if fields["bytes"] != int64(4) {
		t.Errorf("Expected 4 bytes logged, got %v", fields["bytes"])
	}
	if fields["status_code"] != int64(http.StatusOK) {
		t.Errorf("Expected status_code 200 logged, got %v", fields["status_code"])
	}
}
