package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "nil", err: nil, expectedStatus: http.StatusOK},
		{name: "key error", err: NewKeyError(ReasonInvalidKey, "", "empty"), expectedStatus: http.StatusBadRequest},
		{name: "protocol error", err: NewProtocolError("bad", 0), expectedStatus: http.StatusBadGateway},
		{name: "service error", err: NewServiceError("broker", "down", nil), expectedStatus: http.StatusServiceUnavailable},
		{name: "closed", err: ErrClosed, expectedStatus: http.StatusServiceUnavailable},
		{name: "invalid input", err: ErrInvalidInput, expectedStatus: http.StatusBadRequest},
		{name: "standard error", err: errors.New("x"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status := StatusCode(tt.err); status != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, status)
			}
		})
	}
}

func TestToHTTPError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		httpErr := ToHTTPError(nil, "trace-1")
		if httpErr.Status != http.StatusOK || httpErr.Code != CodeOK {
			t.Errorf("Unexpected success mapping: %+v", httpErr)
		}
	})

	t.Run("key error details", func(t *testing.T) {
		httpErr := ToHTTPError(NewKeyError(ReasonDuplicateKey, "a", "duplicate key"), "trace-2")
		if httpErr.Status != http.StatusBadRequest {
			t.Errorf("Expected status %d, got %d", http.StatusBadRequest, httpErr.Status)
		}
		if httpErr.Details["reason"] != string(ReasonDuplicateKey) {
			t.Errorf("Expected reason detail, got %v", httpErr.Details)
		}
		if httpErr.Details["field"] != "key" {
			t.Errorf("Expected field detail, got %v", httpErr.Details)
		}
		if httpErr.TraceID != "trace-2" {
			t.Errorf("Expected trace ID to be set")
		}
	})

	t.Run("service error details", func(t *testing.T) {
		httpErr := ToHTTPError(NewServiceError("broker", "down", nil), "")
		if httpErr.Details["service"] != "broker" {
			t.Errorf("Expected service detail, got %v", httpErr.Details)
		}
	})
}

func TestWriteHTTPError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteHTTPError(w, NewKeyError(ReasonInvalidKey, "", "empty key"), "trace")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	var body HTTPError
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body.Code != CodeValidation || body.Message != "empty key" {
		t.Errorf("Unexpected body: %+v", body)
	}
}

func BenchmarkToHTTPError(b *testing.B) {
	err := NewKeyError(ReasonInvalidKey, "", "empty")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ToHTTPError(err, "trace")
	}
}
