package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/nimart/internal/model"
	"github.com/hitoshi/nimart/internal/otp"
)

func decodeOTPResult(t *testing.T, w *httptest.ResponseRecorder) otp.Result {
	t.Helper()
	var res otp.Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return res
}

func TestOTPHandler_Send_Success(t *testing.T) {
	var gotType otp.Type
	svc := &mockOTPService{
		sendFn: func(ctx context.Context, address string, otpType otp.Type) (*otp.Result, error) {
			gotType = otpType
			return &otp.Result{Success: true, Message: "Verification code sent to your email"}, nil
		},
	}
	h := NewOTPHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/send-otp", jsonBody(`{"email":"ada@example.com","type":"signup"}`))
	w := httptest.NewRecorder()
	h.Send(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	res := decodeOTPResult(t, w)
	if !res.Success || res.Message != "Verification code sent to your email" {
		t.Errorf("result = %+v", res)
	}
	if gotType != otp.TypeSignup {
		t.Errorf("type = %q, want signup", gotType)
	}
}

func TestOTPHandler_Send_InvalidBody(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"メール欠落", `{"type":"signup"}`},
		{"種別欠落", `{"email":"ada@example.com"}`},
		{"未知の種別", `{"email":"ada@example.com","type":"magic"}`},
		{"不正なJSON", `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOTPHandler(&mockOTPService{
				sendFn: func(ctx context.Context, address string, otpType otp.Type) (*otp.Result, error) {
					t.Error("Send should not be called")
					return nil, nil
				},
			}, discardLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/send-otp", jsonBody(tt.body))
			w := httptest.NewRecorder()
			h.Send(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if res := decodeOTPResult(t, w); res.Success || res.Message == "" {
				t.Errorf("result = %+v", res)
			}
		})
	}
}

func TestOTPHandler_Send_InternalErrorUsesFriendlyMessage(t *testing.T) {
	svc := &mockOTPService{
		sendFn: func(ctx context.Context, address string, otpType otp.Type) (*otp.Result, error) {
			return nil, errors.New("failed to store otp: pq: duplicate key value violates unique constraint")
		},
	}
	h := NewOTPHandler(svc, discardLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/send-otp", jsonBody(`{"email":"ada@example.com","type":"login"}`))
	w := httptest.NewRecorder()
	h.Send(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	res := decodeOTPResult(t, w)
	if res.Success {
		t.Error("success should be false")
	}
	if res.Message != "This record already exists" {
		t.Errorf("message = %q", res.Message)
	}
}

func TestOTPHandler_Verify_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"期限切れ", model.NewOTPExpiredError(), http.StatusBadRequest, "Verification code has expired."},
		{"不一致", model.NewInvalidOTPError(), http.StatusBadRequest, "Invalid verification code."},
		{"内部エラー", errors.New("boom"), http.StatusInternalServerError, model.GenericErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockOTPService{
				verifyFn: func(ctx context.Context, address string, otpType otp.Type, code string) (*otp.Result, error) {
					return nil, tt.err
				},
			}
			h := NewOTPHandler(svc, discardLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/verify-otp", jsonBody(`{"email":"ada@example.com","type":"signup","code":"12345678"}`))
			w := httptest.NewRecorder()
			h.Verify(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if res := decodeOTPResult(t, w); res.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", res.Message, tt.wantMsg)
			}
		})
	}
}

func TestOTPHandler_Verify_RejectsMalformedCode(t *testing.T) {
	h := NewOTPHandler(&mockOTPService{}, discardLogger())

	for _, code := range []string{"1234", "abcdefgh", "123456789"} {
		req := httptest.NewRequest(http.MethodPost, "/api/verify-otp", jsonBody(`{"email":"ada@example.com","type":"signup","code":"`+code+`"}`))
		w := httptest.NewRecorder()
		h.Verify(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("code %q: status = %d, want %d", code, w.Code, http.StatusBadRequest)
		}
	}
}
