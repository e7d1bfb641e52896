package otp

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/nimart/internal/email"
	"github.com/hitoshi/nimart/internal/model"
	"github.com/hitoshi/nimart/internal/repository"
)

// SendRecorder はコード送信結果のメトリクスを記録する。
type SendRecorder interface {
	RecordOTPSent(otpType string, success bool)
}

// Config はServiceの設定。
type Config struct {
	From     string        // 送信元アドレス（例: "Nimart <noreply@nimart.ng>"）
	Validity time.Duration // ゼロの場合はDefaultValidity
}

// Result はsend-otp・verify-otpのレスポンスボディ。
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Service はワンタイムコードの発行・送信・検証を行う。
type Service struct {
	repo     repository.OTPRepository
	mailer   email.Sender
	recorder SendRecorder
	logger   *slog.Logger
	from     string
	validity time.Duration
	now      func() time.Time
	generate func() (string, error)
}

// NewService はServiceを生成する。
func NewService(repo repository.OTPRepository, mailer email.Sender, recorder SendRecorder, logger *slog.Logger, cfg Config) *Service {
	validity := cfg.Validity
	if validity <= 0 {
		validity = DefaultValidity
	}
	return &Service{
		repo:     repo,
		mailer:   mailer,
		recorder: recorder,
		logger:   logger,
		from:     cfg.From,
		validity: validity,
		now:      time.Now,
		generate: GenerateCode,
	}
}

// Send は新しいコードを生成して保存し、メールで送信する。
// 同じメールアドレスと種別の既存コードは上書きされ、無効になる。
func (s *Service) Send(ctx context.Context, address string, otpType Type) (*Result, error) {
	address = normalizeEmail(address)
	if address == "" {
		return nil, model.NewInvalidRequestError("email is required")
	}
	if _, ok := ParseType(string(otpType)); !ok {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("unknown otp type %q", otpType))
	}

	code, err := s.generate()
	if err != nil {
		s.recorder.RecordOTPSent(string(otpType), false)
		return nil, err
	}

	now := s.now()
	rec := &model.OTPRecord{
		ID:        uuid.NewString(),
		Email:     address,
		Type:      string(otpType),
		Code:      code,
		ExpiresAt: now.Add(s.validity),
		CreatedAt: now,
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		s.recorder.RecordOTPSent(string(otpType), false)
		return nil, fmt.Errorf("failed to store otp: %w", err)
	}

	rendered, err := email.RenderOTP(code, string(otpType), s.validity)
	if err != nil {
		s.recorder.RecordOTPSent(string(otpType), false)
		return nil, err
	}

	messageID, err := s.mailer.Send(ctx, email.Message{
		From:    s.from,
		To:      []string{address},
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
		Text:    rendered.Text,
	})
	if err != nil {
		s.recorder.RecordOTPSent(string(otpType), false)
		return nil, fmt.Errorf("failed to send otp email: %w", err)
	}

	s.recorder.RecordOTPSent(string(otpType), true)
	s.logger.Info("otp sent",
		slog.String("otp_type", string(otpType)),
		slog.String("message_id", messageID),
	)

	return &Result{Success: true, Message: "Verification code sent to your email"}, nil
}

// Verify はコードを検証し、一致すれば使用済みにする。
// 一致しない場合と使用済みの場合はINVALID_OTP、期限切れの場合はOTP_EXPIREDを返す。
// 不一致がMaxVerifyAttempts回に達したコードは、正しいコードでも以後は検証できない。
func (s *Service) Verify(ctx context.Context, address string, otpType Type, code string) (*Result, error) {
	address = normalizeEmail(address)
	if _, ok := ParseType(string(otpType)); !ok {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("unknown otp type %q", otpType))
	}

	rec, err := s.repo.FindActive(ctx, address, string(otpType))
	if err != nil {
		return nil, fmt.Errorf("failed to load otp: %w", err)
	}
	if rec == nil {
		return nil, model.NewInvalidOTPError()
	}

	now := s.now()
	if !now.Before(rec.ExpiresAt) {
		return nil, model.NewOTPExpiredError()
	}
	if rec.Attempts >= MaxVerifyAttempts {
		return nil, model.NewInvalidOTPError()
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(code)), []byte(rec.Code)) != 1 {
		attempts, err := s.repo.RecordFailedAttempt(ctx, rec.ID, MaxVerifyAttempts, now)
		if err != nil {
			return nil, fmt.Errorf("failed to record otp attempt: %w", err)
		}
		if attempts >= MaxVerifyAttempts {
			s.logger.Warn("otp invalidated after repeated failures",
				slog.String("otp_type", string(otpType)),
				slog.Int("attempts", attempts),
			)
		}
		return nil, model.NewInvalidOTPError()
	}

	consumed, err := s.repo.MarkConsumed(ctx, rec.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to consume otp: %w", err)
	}
	if !consumed {
		return nil, model.NewInvalidOTPError()
	}

	return &Result{Success: true, Message: "Code verified successfully"}, nil
}

// PurgeExpired は期限切れまたは使用済みのコードを削除し、削除件数を返す。
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now())
}

func normalizeEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
