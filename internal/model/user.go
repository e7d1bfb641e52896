// Package model はドメインモデルを定義する。
package model

import "time"

// Profile はprofilesテーブルのユーザープロフィールを表す。
// ユーザーIDは認証プロバイダーが発行したものをそのまま使う。
type Profile struct {
	ID        string
	Email     string
	FullName  string
	Phone     string
	UserType  string
	State     string
	LGA       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Review はサービス提供者へのレビューを表す。
type Review struct {
	ID         string
	ProviderID string
	CustomerID string
	Rating     int
	Comment    string // サニタイズ済み
	CreatedAt  time.Time
}

// Notification はアプリ内通知を表す。
type Notification struct {
	ID        string
	UserID    string
	Type      string
	Title     string
	Message   string
	IsRead    bool
	CreatedAt time.Time
}

// 通知種別
const (
	NotificationTypeNewReview = "new_review"
	NotificationTypeContact   = "contact_view"
	NotificationTypeSystem    = "system"
)

// OTPRecord はotp_storageテーブルのワンタイムコードを表す。
type OTPRecord struct {
	ID         string
	Email      string
	Type       string
	Code       string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	Attempts   int // 検証失敗回数
	CreatedAt  time.Time
}
