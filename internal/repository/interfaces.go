// Package repository はデータ永続化のインターフェースを定義する。
// テーブルは外部のマネージドPostgresが所有し、ここでは単純な等価条件の参照・挿入・更新のみを行う。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/nimart/internal/model"
)

// ProfileRepository はユーザープロフィールの永続化インターフェース。
type ProfileRepository interface {
	// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Profile, error)
}

// ProviderRepository はサービス提供者の永続化インターフェース。
type ProviderRepository interface {
	// FindByID は指定IDの提供者を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Provider, error)

	// FindByUserID はユーザーIDに紐づく提供者を取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Provider, error)

	// List は州・サービス種別で絞り込んだ提供者一覧を評価の高い順に返す。
	List(ctx context.Context, filter model.ProviderFilter) ([]*model.Provider, error)

	// FindContact は提供者の連絡先を取得する。見つからない場合はnilを返す。
	FindContact(ctx context.Context, providerID string) (*model.ProviderContact, error)

	// UpdateWebsite は提供者のWebサイトURLを更新する。
	UpdateWebsite(ctx context.Context, providerID, website string) error
}

// ReviewRepository はレビューの永続化インターフェース。
type ReviewRepository interface {
	// Create はレビューを作成し、提供者の評価平均とレビュー数を再計算する。
	Create(ctx context.Context, review *model.Review) error

	// ListByProvider は提供者のレビューを新しい順に返す。
	ListByProvider(ctx context.Context, providerID string, limit int) ([]*model.Review, error)
}

// NotificationRepository はアプリ内通知の永続化インターフェース。
type NotificationRepository interface {
	// Create は通知を作成する。
	Create(ctx context.Context, n *model.Notification) error

	// ListByUserID はユーザーの通知を新しい順に返す。
	ListByUserID(ctx context.Context, userID string, limit int) ([]*model.Notification, error)

	// MarkRead は通知を既読にする。該当する通知が無い場合はfalseを返す。
	MarkRead(ctx context.Context, userID, id string) (bool, error)
}

// OTPRepository はワンタイムコードの永続化インターフェース。
type OTPRepository interface {
	// Upsert はメールアドレスと種別ごとに1件のコードを保存する。既存のコードは上書きされる。
	Upsert(ctx context.Context, rec *model.OTPRecord) error

	// FindActive はメールアドレスと種別で未使用のコードを取得する。見つからない場合はnilを返す。
	FindActive(ctx context.Context, email, otpType string) (*model.OTPRecord, error)

	// MarkConsumed はコードを使用済みにする。既に使用済みの場合はfalseを返す。
	MarkConsumed(ctx context.Context, id string, at time.Time) (bool, error)

	// RecordFailedAttempt は検証失敗回数を1増やし、増加後の回数を返す。
	// 回数がmaxAttemptsに達したコードは使用済みになる。
	RecordFailedAttempt(ctx context.Context, id string, maxAttempts int, at time.Time) (int, error)

	// DeleteExpired は期限切れまたは使用済みのコードを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// CatalogRepository は州・サービス種別のマスタデータの参照インターフェース。
type CatalogRepository interface {
	ListStates(ctx context.Context) ([]model.State, error)
	ListServices(ctx context.Context) ([]model.Service, error)
}
