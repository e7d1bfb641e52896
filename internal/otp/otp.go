// Package otp はメールで送るワンタイムコードの発行と検証を提供する。
// コードはメールアドレスと種別ごとに1件だけotp_storageに保持する。
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Type はワンタイムコードの用途。
type Type string

const (
	TypeSignup            Type = "signup"
	TypeLogin             Type = "login"
	TypePasswordReset     Type = "password_reset"
	TypeEmailVerification Type = "email_verification"
)

// ParseType は文字列を既知のTypeに変換する。未知の値の場合はfalseを返す。
func ParseType(s string) (Type, bool) {
	switch t := Type(s); t {
	case TypeSignup, TypeLogin, TypePasswordReset, TypeEmailVerification:
		return t, true
	}
	return "", false
}

const (
	// CodeLength はコードの桁数。
	CodeLength = 8
	// DefaultValidity はコードの有効期間。
	DefaultValidity = 10 * time.Minute
	// MaxVerifyAttempts はコードが無効になるまでの検証失敗回数。
	MaxVerifyAttempts = 5
)

var (
	codeMin   = big.NewInt(10_000_000)
	codeRange = big.NewInt(90_000_000)
)

// GenerateCode は先頭が0にならない8桁の数字コードを暗号論的乱数で生成する。
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeRange)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return n.Add(n, codeMin).String(), nil
}
