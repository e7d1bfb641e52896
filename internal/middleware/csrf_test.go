package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/nimart/internal/cookie"
)

func TestCSRFMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		cookie     string
		header     string
		wantStatus int
	}{
		{"GETは検証しない", http.MethodGet, "", "", http.StatusOK},
		{"一致するトークン", http.MethodPost, "tok", "tok", http.StatusOK},
		{"Cookie欠落", http.MethodPost, "", "tok", http.StatusForbidden},
		{"ヘッダー欠落", http.MethodPost, "tok", "", http.StatusForbidden},
		{"不一致", http.MethodPost, "tok", "other", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewCSRFMiddleware(discardLogger())(okHandler())

			req := httptest.NewRequest(tt.method, "/api/auth/logout", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(CSRFHeaderName, tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusForbidden {
				var body ErrorResponseBody
				if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
					t.Fatalf("failed to decode body: %v", err)
				}
				if body.Code != "CSRF_VALIDATION_FAILED" {
					t.Errorf("code = %q", body.Code)
				}
			}
		})
	}
}

// TestCSRFTokenHandler_WithChiRouter はトークン取得エンドポイントがchi.Routerで動作することを検証する。
func TestCSRFTokenHandler_WithChiRouter(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/csrf-token", NewCSRFTokenHandler(cookie.Options{Secure: true}, discardLogger()).ServeHTTP)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(body.Token) != 64 {
		t.Errorf("token length = %d, want 64", len(body.Token))
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CSRFCookieName || cookies[0].Value != body.Token {
		t.Fatalf("cookies = %+v", cookies)
	}
	if cookies[0].HttpOnly {
		t.Error("CSRF cookie must be readable by JavaScript")
	}
	if !cookies[0].Secure {
		t.Error("CSRF cookie should honor the Secure option")
	}
}

func TestCSRFTokenHandler_ReusesExistingCookie(t *testing.T) {
	handler := NewCSRFTokenHandler(cookie.Options{}, discardLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: "existing"})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["token"] != "existing" {
		t.Errorf("token = %q, want existing", body["token"])
	}
	if len(w.Result().Cookies()) != 0 {
		t.Error("existing cookie should not be rewritten")
	}
}

func TestRecoveryMiddleware_ReturnsUnifiedError(t *testing.T) {
	handler := NewRecoveryMiddleware(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/protected", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("code = %q, want INTERNAL_ERROR", body.Code)
	}
}
