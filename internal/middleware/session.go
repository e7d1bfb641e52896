// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/nimart/internal/auth"
	"github.com/hitoshi/nimart/internal/cookie"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	userIDContextKey  = contextKey("user_id")
	sessionContextKey = contextKey("session")
	jarContextKey     = contextKey("cookie_jar")
	holderContextKey  = contextKey("user_id_holder")
)

// userIDHolder は内側のミドルウェアで確定したユーザーIDを外側のミドルウェアへ伝える。
type userIDHolder struct {
	userID string
}

func contextWithUserIDHolder(ctx context.Context, h *userIDHolder) context.Context {
	return context.WithValue(ctx, holderContextKey, h)
}

// SessionReader はCookieから現在のセッションを取得する。
// *auth.Service が実装する。
type SessionReader interface {
	GetSession(ctx context.Context, jar cookie.Jar) (*auth.Session, error)
}

// SessionSyncer はセッションからフラグCookieを導出する。
// *session.Synchronizer が実装する。
type SessionSyncer interface {
	Sync(ctx context.Context, sess *auth.Session, jar cookie.Jar)
}

// NewSessionSyncMiddleware はリクエストごとにセッションを読み取り、フラグCookieを同期するミドルウェアを返す。
// トークンCookieもフラグCookieも持たない匿名リクエストでは認証プロバイダーに触れずに通過させる。
// セッションが取得できた場合はユーザーIDとセッションをコンテキストに注入する。
// リクエスト用のcookie.Jarは常にコンテキストに格納し、後続のハンドラーと書き込みを共有する。
func NewSessionSyncMiddleware(sessions SessionReader, syncer SessionSyncer, opts cookie.Options, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			jar := cookie.NewHTTPJar(w, r, opts)
			ctx := ContextWithJar(r.Context(), jar)

			if !hasAnyAuthCookie(jar) {
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			sess, err := sessions.GetSession(ctx, jar)
			if err != nil {
				// リフレッシュに失敗したトークンは再利用できないため破棄する
				logger.Warn("failed to restore session",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				jar.Clear(cookie.AccessToken)
				jar.Clear(cookie.RefreshToken)
				sess = nil
			}

			// リフレッシュ時はTOKEN_REFRESHEDの配信先で同期済み
			if sess == nil || !sess.Refreshed {
				syncer.Sync(ctx, sess, jar)
			}

			if sess != nil {
				ctx = ContextWithSession(ctx, sess)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func hasAnyAuthCookie(jar cookie.Jar) bool {
	for _, name := range cookie.AllNames {
		if _, ok := jar.Get(name); ok {
			return true
		}
	}
	return false
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
// セッション同期ミドルウェアでセッションが確認できたリクエストでのみ有効。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID はコンテキストにユーザーIDを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	if h, ok := ctx.Value(holderContextKey).(*userIDHolder); ok {
		h.userID = userID
	}
	return context.WithValue(ctx, userIDContextKey, userID)
}

// SessionFromContext はセッション同期ミドルウェアが注入したセッションを返す。
func SessionFromContext(ctx context.Context) (*auth.Session, bool) {
	sess, ok := ctx.Value(sessionContextKey).(*auth.Session)
	return sess, ok && sess != nil
}

// ContextWithSession はコンテキストにセッションとそのユーザーIDを注入する。
func ContextWithSession(ctx context.Context, sess *auth.Session) context.Context {
	ctx = context.WithValue(ctx, sessionContextKey, sess)
	return ContextWithUserID(ctx, sess.User.ID)
}

// ContextWithJar はリクエスト用のcookie.Jarをコンテキストに格納する。
func ContextWithJar(ctx context.Context, jar cookie.Jar) context.Context {
	return context.WithValue(ctx, jarContextKey, jar)
}

// JarFor はコンテキストに格納されたJarを返す。
// 無い場合はリクエストとレスポンスから新しいHTTPJarを作る。
func JarFor(w http.ResponseWriter, r *http.Request, opts cookie.Options) cookie.Jar {
	if jar, ok := r.Context().Value(jarContextKey).(cookie.Jar); ok {
		return jar
	}
	return cookie.NewHTTPJar(w, r, opts)
}
