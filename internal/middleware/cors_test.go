package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
		wantCreds  string
		wantStatus int
	}{
		{"explicit origin", []string{"http://localhost:3000"}, "http://localhost:3000", http.MethodGet, "http://localhost:3000", "true", http.StatusTeapot},
		{"wildcard", []string{"*"}, "http://evil.example", http.MethodGet, "http://evil.example", "", http.StatusTeapot},
		{"extension pattern", []string{"chrome-extension://*"}, "chrome-extension://abcdef", http.MethodGet, "chrome-extension://abcdef", "", http.StatusTeapot},
		{"not allowed", []string{"http://localhost:3000"}, "http://evil.example", http.MethodGet, "", "", http.StatusTeapot},
		{"no origin", []string{"*"}, "", http.MethodGet, "", "", http.StatusTeapot},
		{"preflight", []string{"*"}, "http://localhost:3000", http.MethodOptions, "http://localhost:3000", "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/report", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			CORS(tt.allowed)(next).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := w.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCreds {
				t.Errorf("Allow-Credentials = %q, want %q", got, tt.wantCreds)
			}
		})
	}
}

func TestCORSExposesContentDisposition(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/export", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	CORS([]string{"*"})(http.NotFoundHandler()).ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Expose-Headers"); got != "Content-Disposition" {
		t.Errorf("Expose-Headers = %q", got)
	}
}
