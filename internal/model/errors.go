// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, marketplace, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeProviderNotFound     = "PROVIDER_NOT_FOUND"
	ErrCodeProfileNotFound      = "PROFILE_NOT_FOUND"
	ErrCodeInvalidRating        = "INVALID_RATING"
	ErrCodeInvalidOTP           = "INVALID_OTP"
	ErrCodeOTPExpired           = "OTP_EXPIRED"
	ErrCodeInvalidURL           = "INVALID_URL"
	ErrCodeUnknownState         = "UNKNOWN_STATE"
	ErrCodeNotificationNotFound = "NOTIFICATION_NOT_FOUND"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication required.",
		Category: "auth",
		Action:   "Please sign in and try again.",
	}
}

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("Invalid request: %s", reason),
		Category: "validation",
		Action:   "Check the submitted fields and try again.",
	}
}

// NewProviderNotFoundError はサービス提供者未検出エラーを生成する。
func NewProviderNotFoundError(providerID string) *APIError {
	return &APIError{
		Code:     ErrCodeProviderNotFound,
		Message:  fmt.Sprintf("Provider not found: %s", providerID),
		Category: "marketplace",
		Action:   "Check the provider link or browse the marketplace.",
	}
}

// NewProfileNotFoundError はプロフィール未検出エラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "User profile not found.",
		Category: "auth",
		Action:   "Complete your registration or sign in again.",
	}
}

// NewInvalidRatingError は評価値が範囲外の場合のエラーを生成する。
func NewInvalidRatingError(rating int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRating,
		Message:  fmt.Sprintf("Invalid rating: %d", rating),
		Category: "validation",
		Action:   "Ratings must be between 1 and 5.",
	}
}

// NewInvalidOTPError はワンタイムコード不一致エラーを生成する。
func NewInvalidOTPError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidOTP,
		Message:  "Invalid verification code.",
		Category: "auth",
		Action:   "Check the code sent to your email and try again.",
	}
}

// NewOTPExpiredError はワンタイムコード期限切れエラーを生成する。
func NewOTPExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeOTPExpired,
		Message:  "Verification code has expired.",
		Category: "auth",
		Action:   "Request a new code.",
	}
}

// NewInvalidURLError は無効なURLエラーを生成する。
func NewInvalidURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidURL,
		Message:  fmt.Sprintf("Invalid URL: %s", reason),
		Category: "validation",
		Action:   "Enter a public http:// or https:// address.",
	}
}

// NewUnknownStateError は州名が座標テーブルに存在しない場合のエラーを生成する。
func NewUnknownStateError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownState,
		Message:  fmt.Sprintf("Unknown state: %s", name),
		Category: "validation",
		Action:   "Use one of the 36 states or the FCT.",
	}
}

// NewNotificationNotFoundError は通知未検出エラーを生成する。
func NewNotificationNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeNotificationNotFound,
		Message:  fmt.Sprintf("Notification not found: %s", id),
		Category: "marketplace",
		Action:   "Reload your notifications.",
	}
}

// GenericErrorMessage はどのパターンにも一致しない外部エラーに返す文言。
const GenericErrorMessage = "Something went wrong. Please try again."

// friendlyMessages は外部サービスの生エラー文言（部分一致）とユーザー向け文言の対応表。
// 先頭から順に評価し、最初に一致したものを使う。
var friendlyMessages = []struct {
	substr  string
	message string
}{
	{"Invalid login credentials", "Invalid email or password"},
	{"Email not confirmed", "Please verify your email before signing in"},
	{"User already registered", "An account with this email already exists"},
	{"Token has expired or is invalid", "Your verification code has expired or is invalid"},
	{"Password should be at least", "Password must be at least 6 characters"},
	{"Email rate limit exceeded", "Too many attempts. Please wait a few minutes and try again"},
	{"For security purposes, you can only request this", "Please wait a moment before requesting another code"},
	{"Unable to validate email address", "Please enter a valid email address"},
	{"User not found", "No account found with this email"},
	{"JWT expired", "Your session has expired. Please sign in again"},
	{"duplicate key value", "This record already exists"},
	{"network", "Network error. Please check your connection"},
}

// FriendlyMessage は外部サービス（認証・DB・メール）のエラーを
// ユーザー向けの一般的な文言に変換する。
// 一致しない場合とnilの場合はGenericErrorMessageを返す。
func FriendlyMessage(err error) string {
	if err == nil {
		return GenericErrorMessage
	}
	raw := err.Error()
	for _, fm := range friendlyMessages {
		if strings.Contains(raw, fm.substr) {
			return fm.message
		}
	}
	return GenericErrorMessage
}
