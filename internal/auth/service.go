package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/nimart/internal/cookie"
)

// refreshTokenMaxAge はリフレッシュトークンCookieの有効期間（秒）。
const refreshTokenMaxAge = cookie.DefaultMaxAge

// Provider は認証プロバイダーAPIのうちセッション管理に使う操作。
// *Client が実装する。
type Provider interface {
	SendOneTimeCode(ctx context.Context, email string, metadata map[string]any) error
	VerifyOneTimeCode(ctx context.Context, email, code string) (*Session, error)
	GetUser(ctx context.Context, accessToken string) (*User, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Verifier はアクセストークンをローカルで検証する。
// *TokenVerifier が実装する。
type Verifier interface {
	Verify(token string) (*User, time.Time, error)
}

// Service はCookieに保存されたトークンを元に現在のセッションを扱う。
// セッション取得・サインイン・サインアウトと、認証状態変化イベントの発行を担う。
type Service struct {
	provider Provider
	verifier Verifier
	events   *Dispatcher
	logger   *slog.Logger
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(provider Provider, verifier Verifier, events *Dispatcher, logger *slog.Logger) *Service {
	return &Service{
		provider: provider,
		verifier: verifier,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// OnAuthStateChange はリスナーを登録し、解除用のハンドルを返す。
func (s *Service) OnAuthStateChange(l Listener) *Subscription {
	return s.events.Subscribe(l)
}

// GetSession はCookieのトークンから現在のセッションを取得する。
// セッションが無い場合は (nil, nil) を返す。
// アクセストークンが期限切れでリフレッシュトークンがある場合は更新し、
// 新しいトークンをCookieに書き込んだうえでTOKEN_REFRESHEDを発行する。
func (s *Service) GetSession(ctx context.Context, jar cookie.Jar) (*Session, error) {
	access, hasAccess := jar.Get(cookie.AccessToken)
	refresh, hasRefresh := jar.Get(cookie.RefreshToken)

	if hasAccess {
		user, expiresAt, err := s.verifier.Verify(access)
		if err == nil {
			return &Session{
				AccessToken:  access,
				RefreshToken: refresh,
				ExpiresAt:    expiresAt,
				User:         *user,
			}, nil
		}
		if !errors.Is(err, ErrTokenExpired) {
			s.logger.Warn("discarding invalid access token", slog.String("error", err.Error()))
			return nil, nil
		}
	}

	if !hasRefresh {
		return nil, nil
	}

	sess, err := s.provider.RefreshSession(ctx, refresh)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	storeTokens(jar, sess, s.now())
	delivered := s.events.Publish(ctx, Event{Type: EventTokenRefreshed, Session: sess, Cookies: jar})
	sess.Refreshed = delivered > 0

	return sess, nil
}

// GetUser はBearerトークンに対応するユーザーをプロバイダーに問い合わせて取得する。
func (s *Service) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}
	user, err := s.provider.GetUser(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// SignInWithOneTimeCode はサインイン用のワンタイムコードを送信させる。
// userTypeは新規ユーザー作成時のメタデータとして渡す。
func (s *Service) SignInWithOneTimeCode(ctx context.Context, email string, userType UserType) error {
	var md map[string]any
	if userType != "" {
		md = map[string]any{"user_type": string(userType)}
	}
	if err := s.provider.SendOneTimeCode(ctx, email, md); err != nil {
		return fmt.Errorf("failed to send sign-in code: %w", err)
	}
	return nil
}

// VerifyOneTimeCode はワンタイムコードを検証してセッションを確立する。
// トークンをCookieに保存し、SIGNED_INを発行する。
func (s *Service) VerifyOneTimeCode(ctx context.Context, jar cookie.Jar, email, code string) (*Session, error) {
	sess, err := s.provider.VerifyOneTimeCode(ctx, email, code)
	if err != nil {
		return nil, fmt.Errorf("failed to verify sign-in code: %w", err)
	}

	storeTokens(jar, sess, s.now())
	s.events.Publish(ctx, Event{Type: EventSignedIn, Session: sess, Cookies: jar})

	s.logger.Info("user signed in", slog.String("user_id", sess.User.ID))
	return sess, nil
}

// SignOut はプロバイダー側のセッションを無効化する。
// Cookieのクリアは呼び出し側のクリーンアップ処理で行う。
func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	if err := s.provider.SignOut(ctx, accessToken); err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

// NotifySignedOut はSIGNED_OUTを発行する。
func (s *Service) NotifySignedOut(ctx context.Context, jar cookie.Jar) {
	s.events.Publish(ctx, Event{Type: EventSignedOut, Cookies: jar})
}

// storeTokens はセッションのトークンをCookieに保存する。
func storeTokens(jar cookie.Jar, sess *Session, now time.Time) {
	accessMaxAge := int(sess.ExpiresAt.Sub(now).Seconds())
	if accessMaxAge <= 0 {
		accessMaxAge = 3600
	}
	jar.Set(cookie.AccessToken, sess.AccessToken, accessMaxAge)
	if sess.RefreshToken != "" {
		jar.Set(cookie.RefreshToken, sess.RefreshToken, refreshTokenMaxAge)
	}
}
