// Package session は認証プロバイダーのセッション状態をフラグCookieへ反映する同期処理を提供する。
// ルートガードは認証プロバイダーに問い合わせられないため、ここで書いたCookieだけで認可判断を行う。
package session

import (
	"context"
	"log/slog"

	"github.com/hitoshi/nimart/internal/auth"
	"github.com/hitoshi/nimart/internal/cookie"
	"github.com/hitoshi/nimart/internal/model"
)

// ProviderLookup はユーザーIDからサービス提供者レコードを検索する。
// 見つからない場合は (nil, nil) を返す。
type ProviderLookup interface {
	FindByUserID(ctx context.Context, userID string) (*model.Provider, error)
}

// Synchronizer はセッションからフラグCookieを導出して書き込む。
// Cookieの内容は常に最新のセッションの純関数となる。
type Synchronizer struct {
	providers ProviderLookup
	logger    *slog.Logger
}

// NewSynchronizer はSynchronizerを生成する。
func NewSynchronizer(providers ProviderLookup, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		providers: providers,
		logger:    logger,
	}
}

// Start は認証状態変化イベントを購読する。
// 戻り値のSubscriptionで購読を解除できる。
func (s *Synchronizer) Start(d *auth.Dispatcher) *auth.Subscription {
	return d.Subscribe(s)
}

// OnAuthStateChange はauth.Listenerを実装する。
// サインイン・サインアウト・トークン更新のいずれでも同じ導出を行う。
func (s *Synchronizer) OnAuthStateChange(ctx context.Context, ev auth.Event) {
	if ev.Cookies == nil {
		return
	}
	s.logger.Debug("auth state changed", slog.String("event", string(ev.Type)))
	s.Sync(ctx, ev.Session, ev.Cookies)
}

// Sync はセッションからフラグCookieを導出する。
//
//   - セッションが無い: 3つのフラグCookieをすべてクリアする
//   - セッションがある: is-authenticated=true と user-type（欠落時はcustomer）を設定し、
//     providerの場合は提供者レコードを検索して見つかればprovider-idを設定する
//   - provider以外のセッション: 以前のセッションから残ったprovider-idをクリアする
//
// 提供者レコードの検索エラーはログに記録して無視する。主要な2つのCookieは常に設定される。
func (s *Synchronizer) Sync(ctx context.Context, sess *auth.Session, jar cookie.Jar) {
	if sess == nil || sess.User.ID == "" {
		cookie.ClearFlags(jar)
		return
	}

	userType := sess.User.Metadata.UserType
	if userType == "" {
		userType = auth.UserTypeCustomer
	}

	jar.Set(cookie.IsAuthenticated, "true", cookie.DefaultMaxAge)
	jar.Set(cookie.UserType, string(userType), cookie.DefaultMaxAge)

	if userType != auth.UserTypeProvider {
		if _, ok := jar.Get(cookie.ProviderID); ok {
			jar.Clear(cookie.ProviderID)
		}
		return
	}

	provider, err := s.providers.FindByUserID(ctx, sess.User.ID)
	if err != nil {
		s.logger.Error("failed to look up provider for session",
			slog.String("user_id", sess.User.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if provider == nil {
		return
	}

	jar.Set(cookie.ProviderID, provider.ID, cookie.DefaultMaxAge)
}

var _ auth.Listener = (*Synchronizer)(nil)
