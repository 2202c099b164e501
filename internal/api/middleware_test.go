package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// passthrough is a simple handler that writes a 200 OK response.
var passthrough = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRequestID(t *testing.T) {
	tests := []struct {
		name            string
		requestID       string
		wantRequestID   string
		wantReqIDPrefix string
	}{
		{
			name:          "echoes provided X-Request-Id",
			requestID:     "my-custom-request-id",
			wantRequestID: "my-custom-request-id",
		},
		{
			name:            "generates X-Request-Id starting with req_ when none provided",
			wantReqIDPrefix: "req_",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.requestID != "" {
				req.Header.Set("X-Request-Id", tt.requestID)
			}
			rr := httptest.NewRecorder()

			RequestID(passthrough).ServeHTTP(rr, req)

			gotReqID := rr.Header().Get("X-Request-Id")
			if tt.wantRequestID != "" && gotReqID != tt.wantRequestID {
				t.Errorf("X-Request-Id = %q, want %q", gotReqID, tt.wantRequestID)
			}
			if tt.wantReqIDPrefix != "" {
				if !strings.HasPrefix(gotReqID, tt.wantReqIDPrefix) {
					t.Errorf("X-Request-Id = %q, want prefix %q", gotReqID, tt.wantReqIDPrefix)
				}
				if len(gotReqID) <= len(tt.wantReqIDPrefix) {
					t.Errorf("X-Request-Id = %q is too short; expected prefix %q followed by a UUID", gotReqID, tt.wantReqIDPrefix)
				}
			}
		})
	}
}

func TestNoStore(t *testing.T) {
	rr := httptest.NewRecorder()
	NoStore(passthrough).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))

	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
}

func TestValidateContentType(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{"POST with application/json passes through", http.MethodPost, "application/json", http.StatusOK},
		{"POST with charset passes through", http.MethodPost, "application/json; charset=utf-8", http.StatusOK},
		{"POST with no Content-Type passes through", http.MethodPost, "", http.StatusOK},
		{"POST with text/plain returns 400", http.MethodPost, "text/plain", http.StatusBadRequest},
		{"GET with invalid Content-Type passes through", http.MethodGet, "text/plain", http.StatusOK},
		{"DELETE with invalid Content-Type passes through", http.MethodDelete, "text/plain", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rr := httptest.NewRecorder()

			ValidateContentType(passthrough).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusBadRequest {
				body := rr.Body.String()
				if !strings.Contains(body, "invalid_request") || !strings.Contains(body, "Unsupported Content-Type") {
					t.Errorf("unexpected error body %q", body)
				}
			}
		})
	}
}
