package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired はアクセストークンの有効期限切れを表す。
var ErrTokenExpired = errors.New("access token expired")

// AccessClaims は認証プロバイダーが発行するアクセストークンのクレーム。
type AccessClaims struct {
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// TokenVerifier はアクセストークン（HS256）をプロジェクトのJWTシークレットで検証する。
type TokenVerifier struct {
	secret []byte
	now    func() time.Time
}

// NewTokenVerifier はTokenVerifierを生成する。
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// Verify はアクセストークンを検証し、ユーザーと有効期限を返す。
// 期限切れの場合はErrTokenExpiredを返す。
func (v *TokenVerifier) Verify(token string) (*User, time.Time, error) {
	var claims AccessClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, time.Time{}, ErrTokenExpired
		}
		return nil, time.Time{}, fmt.Errorf("invalid access token: %w", err)
	}

	if claims.Subject == "" {
		return nil, time.Time{}, fmt.Errorf("invalid access token: missing subject")
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return &User{
		ID:       claims.Subject,
		Email:    claims.Email,
		Metadata: ParseMetadata(claims.UserMetadata),
	}, expiresAt, nil
}
