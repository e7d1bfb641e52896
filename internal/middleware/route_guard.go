package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/hitoshi/nimart/internal/cookie"
)

// LoginPath は未認証リクエストのリダイレクト先。
const LoginPath = "/login"

// staticExtensions は静的アセットとして扱う拡張子。
var staticExtensions = map[string]bool{
	".ico": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".svg": true, ".webp": true, ".css": true, ".js": true, ".map": true,
	".txt": true, ".xml": true, ".woff": true, ".woff2": true, ".ttf": true,
}

var staticPrefixes = []string{"/_next/", "/static/", "/favicon", "/images/"}

var publicExactPaths = map[string]bool{
	"/":                true,
	"/login":           true,
	"/signup":          true,
	"/marketplace":     true,
	"/about":           true,
	"/contact":         true,
	"/privacy":         true,
	"/terms":           true,
	"/faq":             true,
	"/how-it-works":    true,
	"/verify-otp":      true,
	"/forgot-password": true,
	"/reset-password":  true,
	"/robots.txt":      true,
	"/sitemap.xml":     true,
	"/health":          true,
	"/metrics":         true,
}

var publicPrefixes = []string{"/auth/", "/services"}

var publicAPIPaths = map[string]bool{
	"/api/send-otp":   true,
	"/api/verify-otp": true,
	"/api/sitemap":    true,
	"/api/states":     true,
	"/api/services":   true,
	"/api/providers":  true,
	"/api/distance":   true,
	"/api/location":   true,
	"/api/csrf-token": true,
}

var publicAPIPrefixes = []string{"/api/auth/"}

// RedirectRecorder はリダイレクト件数の記録先。
type RedirectRecorder interface {
	RecordGuardRedirect()
}

// NewRouteGuardMiddleware はパスを公開・保護に分類し、未認証の保護パスへのリクエストを
// /login?redirect=<元のパス> へ307でリダイレクトするミドルウェアを返す。
// 判定はis-authenticated Cookieだけで行い、ユーザー種別による制限はかけない。
func NewRouteGuardMiddleware(recorder RedirectRecorder, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := r.URL.Path
			if IsStaticAsset(p) || IsPublicPath(p) || IsPublicAPIPath(r.Method, p) {
				next.ServeHTTP(w, r)
				return
			}

			if isAuthenticated(r) {
				next.ServeHTTP(w, r)
				return
			}

			logger.Debug("redirecting unauthenticated request", slog.String("path", p))
			recorder.RecordGuardRedirect()
			http.Redirect(w, r, LoginRedirectURL(p), http.StatusTemporaryRedirect)
		})
	}
}

// LoginRedirectURL は元のパスをredirectクエリに載せたログインURLを返す。
func LoginRedirectURL(original string) string {
	return LoginPath + "?" + url.Values{"redirect": {original}}.Encode()
}

// isAuthenticated はis-authenticated Cookieを確認する。
// 同一リクエストでセッション同期が書き込んだ値があればそちらを優先する。
func isAuthenticated(r *http.Request) bool {
	if jar, ok := r.Context().Value(jarContextKey).(cookie.Jar); ok {
		return cookie.ReadFlags(jar).Authenticated
	}
	c, err := r.Cookie(cookie.IsAuthenticated)
	return err == nil && c.Value == "true"
}

// IsStaticAsset は拡張子または予約済みプレフィックスで静的アセットを判定する。
func IsStaticAsset(p string) bool {
	for _, prefix := range staticPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return staticExtensions[strings.ToLower(path.Ext(p))]
}

// IsPublicPath は公開ページかどうかを判定する。
// 完全一致、プレフィックス一致、動的パターン /providers/:id と /services/:id のいずれか。
func IsPublicPath(p string) bool {
	if publicExactPaths[p] {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return matchesDynamic(p, "/providers/") || matchesDynamic(p, "/services/")
}

// matchesDynamic は prefix の後ろにちょうど1つの空でないセグメントが続くかを判定する。
func matchesDynamic(p, prefix string) bool {
	rest, ok := strings.CutPrefix(p, prefix)
	if !ok {
		return false
	}
	rest = strings.TrimSuffix(rest, "/")
	return rest != "" && !strings.Contains(rest, "/")
}

// IsPublicAPIPath は認証不要のAPIパスかどうかを判定する。
// 提供者の詳細・レビュー一覧はGETのみ公開し、連絡先はBearerトークンで別途保護する。
func IsPublicAPIPath(method, p string) bool {
	if publicAPIPaths[p] {
		return true
	}
	for _, prefix := range publicAPIPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}

	rest, ok := strings.CutPrefix(p, "/api/providers/")
	if !ok {
		return false
	}
	segs := strings.Split(strings.TrimSuffix(rest, "/"), "/")
	if segs[0] == "" {
		return false
	}
	switch {
	case len(segs) == 1:
		return method == http.MethodGet
	case len(segs) == 2 && segs[1] == "reviews":
		return method == http.MethodGet
	case len(segs) == 2 && segs[1] == "contact":
		return true
	}
	return false
}
