// Package cookie はブラウザ側に保持する認証フラグCookieの読み書きを提供する。
// ルートガードは認証プロバイダーに直接問い合わせず、ここで書かれたCookieだけを見て判定する。
package cookie

import (
	"net/http"
	"sync"
	"time"
)

// Cookie名
const (
	IsAuthenticated = "is-authenticated"
	UserType        = "user-type"
	ProviderID      = "provider-id"
	AccessToken     = "sb-access-token"
	RefreshToken    = "sb-refresh-token"
)

// DefaultMaxAge はフラグCookieの有効期間（7日、秒）。
const DefaultMaxAge = 7 * 24 * 60 * 60

// FlagNames はセッション同期で導出される3つのフラグCookie。
var FlagNames = []string{IsAuthenticated, UserType, ProviderID}

// AllNames はログアウト時にクリアする全Cookie。
var AllNames = []string{IsAuthenticated, UserType, ProviderID, AccessToken, RefreshToken}

// Jar は名前付きCookieの読み書きを抽象化する。
type Jar interface {
	// Get はCookieの値を返す。存在しない、または空の場合はfalseを返す。
	Get(name string) (string, bool)
	// Set はCookieを書き込む。maxAgeは秒。
	Set(name, value string, maxAge int)
	// Clear は空値・過去の有効期限でCookieを上書きする。
	Clear(name string)
}

// Options はSet-Cookie属性の設定。
type Options struct {
	Domain string
	Secure bool
}

// HTTPJar はリクエストのCookieを読み取り、レスポンスにSet-Cookieを書き込むJar。
// 書き込みはmutexで保護されており、並行するクリーンアップ処理から呼び出せる。
type HTTPJar struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	r       *http.Request
	opts    Options
	pending map[string]string
}

// NewHTTPJar はHTTPJarを生成する。
func NewHTTPJar(w http.ResponseWriter, r *http.Request, opts Options) *HTTPJar {
	return &HTTPJar{
		w:       w,
		r:       r,
		opts:    opts,
		pending: make(map[string]string),
	}
}

// Get はCookieの値を返す。
// 同一リクエスト内で書き込んだ値がある場合はそれを優先する。
func (j *HTTPJar) Get(name string) (string, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if v, ok := j.pending[name]; ok {
		return v, v != ""
	}
	c, err := j.r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Set はSet-Cookieヘッダーを追加する。
func (j *HTTPJar) Set(name, value string, maxAge int) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.pending[name] = value
	http.SetCookie(j.w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   j.opts.Domain,
		MaxAge:   maxAge,
		Secure:   j.opts.Secure,
		HttpOnly: isHTTPOnly(name),
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear はCookieを空値・Unixエポックの有効期限で上書きする。
func (j *HTTPJar) Clear(name string) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.pending[name] = ""
	http.SetCookie(j.w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   j.opts.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   j.opts.Secure,
		HttpOnly: isHTTPOnly(name),
		SameSite: http.SameSiteLaxMode,
	})
}

// isHTTPOnly はトークンCookieのみHttpOnlyにする。
// フラグCookieはフロントエンドのJavaScriptからも参照される。
func isHTTPOnly(name string) bool {
	return name == AccessToken || name == RefreshToken
}

var _ Jar = (*HTTPJar)(nil)
