package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/nimart/internal/model"
	"github.com/hitoshi/nimart/internal/otp"
)

// OTPServiceInterface はOTPハンドラーが必要とするサービスインターフェース。
type OTPServiceInterface interface {
	Send(ctx context.Context, address string, otpType otp.Type) (*otp.Result, error)
	Verify(ctx context.Context, address string, otpType otp.Type, code string) (*otp.Result, error)
}

// OTPHandler はメール認証コードのHTTPハンドラー。
// レスポンスは成功・失敗とも {success, message} の形に揃える。
type OTPHandler struct {
	service OTPServiceInterface
	logger  *slog.Logger
}

// NewOTPHandler はOTPHandlerを生成する。
func NewOTPHandler(service OTPServiceInterface, logger *slog.Logger) *OTPHandler {
	return &OTPHandler{service: service, logger: logger}
}

type sendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Type  string `json:"type" validate:"required,oneof=signup login password_reset email_verification"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Type  string `json:"type" validate:"required,oneof=signup login password_reset email_verification"`
	Code  string `json:"code" validate:"required,numeric,len=8"`
}

// Send は認証コードを生成してメールで送る。
// POST /api/send-otp
func (h *OTPHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if apiErr := decodeAndValidate(r, &req); apiErr != nil {
		writeJSON(w, http.StatusBadRequest, otp.Result{Message: apiErr.Message})
		return
	}

	res, err := h.service.Send(r.Context(), req.Email, otp.Type(req.Type))
	if err != nil {
		h.writeFailure(w, "send", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Verify は認証コードを検証する。
// POST /api/verify-otp
func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if apiErr := decodeAndValidate(r, &req); apiErr != nil {
		writeJSON(w, http.StatusBadRequest, otp.Result{Message: apiErr.Message})
		return
	}

	res, err := h.service.Verify(r.Context(), req.Email, otp.Type(req.Type), req.Code)
	if err != nil {
		h.writeFailure(w, "verify", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeFailure はAPIErrorならそのメッセージを対応するステータスで、
// それ以外は汎用メッセージを500で返す。
func (h *OTPHandler) writeFailure(w http.ResponseWriter, op string, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeJSON(w, mapAPIErrorToHTTPStatus(apiErr), otp.Result{Message: apiErr.Message})
		return
	}

	h.logger.Error("otp operation failed",
		slog.String("op", op),
		slog.String("error", err.Error()),
	)
	writeJSON(w, http.StatusInternalServerError, otp.Result{Message: model.FriendlyMessage(err)})
}
