package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/nimart/internal/model"
)

func TestWriteErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		apiErr     *model.APIError
		want       ErrorResponseBody
	}{
		{
			name:       "提供者なし",
			statusCode: http.StatusNotFound,
			apiErr:     model.NewProviderNotFoundError("p1"),
		},
		{
			name:       "OTP不一致",
			statusCode: http.StatusBadRequest,
			apiErr:     model.NewInvalidOTPError(),
		},
		{
			name:       "未認証",
			statusCode: http.StatusUnauthorized,
			apiErr:     model.NewUnauthorizedError(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteErrorResponse(w, tt.statusCode, tt.apiErr)

			if w.Code != tt.statusCode {
				t.Errorf("status = %d, want %d", w.Code, tt.statusCode)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
			if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
				t.Errorf("Cache-Control = %q, want no-store", cc)
			}

			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response body: %v", err)
			}
			if body.Code != tt.apiErr.Code || body.Message != tt.apiErr.Message ||
				body.Category != tt.apiErr.Category || body.Action != tt.apiErr.Action {
				t.Errorf("body = %+v, want fields of %+v", body, tt.apiErr)
			}
		})
	}
}

func TestNewErrorResponseBody_FillsEmptyMessage(t *testing.T) {
	body := NewErrorResponseBody(&model.APIError{Code: "X", Category: "system"})
	if body.Message != model.GenericErrorMessage {
		t.Errorf("message = %q, want generic message", body.Message)
	}
}

func TestWriteInternalServerError_ReturnsSystemError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteInternalServerError(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}

	var raw map[string]string
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	for _, field := range []string{"code", "message", "category", "action"} {
		if raw[field] == "" {
			t.Errorf("field %q should be present and non-empty", field)
		}
	}
	if raw["code"] != "INTERNAL_ERROR" || raw["message"] != model.GenericErrorMessage {
		t.Errorf("body = %v", raw)
	}
}
