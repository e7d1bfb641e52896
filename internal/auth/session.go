// Package auth は外部認証プロバイダー（GoTrue互換API）のクライアントと、
// セッションの取得・更新・サインアウト、認証状態変化イベントの購読を提供する。
package auth

import (
	"strings"
	"time"
)

// UserType はユーザー種別を表す。
type UserType string

const (
	// UserTypeCustomer はサービス利用者。メタデータ欠落時のデフォルト。
	UserTypeCustomer UserType = "customer"
	// UserTypeProvider はサービス提供者。
	UserTypeProvider UserType = "provider"
)

// Metadata はセッションのuser_metadataを検証済みの型付きレコードにしたもの。
type Metadata struct {
	UserType   UserType
	ProviderID string // 任意
}

// ParseMetadata は認証プロバイダーが返すuser_metadataを正規化する。
// user_typeが欠落・不明な値・文字列以外の場合はcustomerとして扱う。
func ParseMetadata(raw map[string]any) Metadata {
	md := Metadata{UserType: UserTypeCustomer}
	if raw == nil {
		return md
	}

	if v, ok := raw["user_type"].(string); ok {
		switch UserType(strings.ToLower(strings.TrimSpace(v))) {
		case UserTypeProvider:
			md.UserType = UserTypeProvider
		case UserTypeCustomer:
			md.UserType = UserTypeCustomer
		}
	}

	if v, ok := raw["provider_id"].(string); ok {
		md.ProviderID = strings.TrimSpace(v)
	}

	return md
}

// User は認証プロバイダー上のユーザーを表す。
type User struct {
	ID       string
	Email    string
	Metadata Metadata
}

// Session は認証プロバイダーが発行したセッション。
// アプリケーションは読み取るだけで、自ら構築はしない。
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	User         User

	// Refreshed はGetSessionがこのリクエストでトークンを更新し、
	// TOKEN_REFRESHEDを1件以上のリスナーへ配信済みであることを示す。
	Refreshed bool
}

// Expired はセッションのアクセストークンが期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
