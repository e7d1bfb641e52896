// Package model はドメインモデルを定義する。
package model

import "time"

// Provider はマーケットプレイスに掲載されるサービス提供者を表す。
// providersテーブルの読み書き用DTO。
type Provider struct {
	ID           string
	UserID       string
	BusinessName string
	ServiceType  string
	State        string
	LGA          string
	Description  string
	Website      string
	IsVerified   bool
	Rating       float64
	ReviewCount  int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProviderContact はサービス提供者の連絡先情報を表す。
// 認証済みリクエストにのみ返却する。
type ProviderContact struct {
	ProviderID string
	Phone      string
	Email      string
	WhatsApp   string
	Address    string
}

// ProviderFilter はサービス提供者一覧の絞り込み条件。
// 空文字のフィールドは条件に含めない。
type ProviderFilter struct {
	State       string
	ServiceType string
	Limit       int
}

// State はstatesテーブルの州レコードを表す。
type State struct {
	ID   int
	Name string
}

// Service はservicesテーブルのサービス種別レコードを表す。
type Service struct {
	ID   int
	Name string
	Slug string
}
