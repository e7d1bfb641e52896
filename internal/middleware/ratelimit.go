package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// 制限種別（メトリクスのラベルにも使用する）
const (
	LimitTypeGeneral   = "general"
	LimitTypeOTPSend   = "otp_send"
	LimitTypeOTPVerify = "otp_verify"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）
	GeneralBurst    int           // API全般のバーストサイズ
	OTPSendRate     rate.Limit    // OTP送信のレート（req/sec）
	OTPSendBurst    int           // OTP送信のバーストサイズ
	OTPVerifyRate   rate.Limit    // コード検証のレート（req/sec）
	OTPVerifyBurst  int           // コード検証のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/IP、OTP送信 5 req/10min/IP、コード検証 10 req/10min/IP
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(120.0 / 60.0),
		GeneralBurst:    120,
		OTPSendRate:     rate.Every(2 * time.Minute),
		OTPSendBurst:    5,
		OTPVerifyRate:   rate.Every(time.Minute),
		OTPVerifyBurst:  10,
		CleanupInterval: 5 * time.Minute,
	}
}

// RateLimitRecorder はレート制限による拒否の記録先。
type RateLimitRecorder interface {
	RecordRateLimited(limitType string)
}

// clientLimiter はクライアントごとのレートリミッターとアクセス時刻を保持する。
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet はクライアントキーごとのリミッターの集合。
type limiterSet struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	entries map[string]*clientLimiter
}

func newLimiterSet(limit rate.Limit, burst int) *limiterSet {
	return &limiterSet{
		limit:   limit,
		burst:   burst,
		entries: make(map[string]*clientLimiter),
	}
}

func (s *limiterSet) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cl, ok := s.entries[key]; ok {
		cl.lastAccess = now
		return cl.limiter
	}
	cl := &clientLimiter{
		limiter:    rate.NewLimiter(s.limit, s.burst),
		lastAccess: now,
	}
	s.entries[key] = cl
	return cl.limiter
}

func (s *limiterSet) evict(now time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cl := range s.entries {
		if now.Sub(cl.lastAccess) > ttl {
			delete(s.entries, key)
		}
	}
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RateLimiter はクライアントIPごとのレート制限を管理する。
// API全般、OTP送信、コード検証をそれぞれ独立に制限する。
type RateLimiter struct {
	config   RateLimiterConfig
	recorder RateLimitRecorder
	logger   *slog.Logger

	general   *limiterSet
	otpSend   *limiterSet
	otpVerify *limiterSet

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig, recorder RateLimitRecorder, logger *slog.Logger) *RateLimiter {
	rl := &RateLimiter{
		config:    config,
		recorder:  recorder,
		logger:    logger,
		general:   newLimiterSet(config.GeneralRate, config.GeneralBurst),
		otpSend:   newLimiterSet(config.OTPSendRate, config.OTPSendBurst),
		otpVerify: newLimiterSet(config.OTPVerifyRate, config.OTPVerifyBurst),
		stopCh:    make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.general, LimitTypeGeneral)
}

// OTPSendMiddleware はOTP送信専用のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) OTPSendMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.otpSend, LimitTypeOTPSend)
}

// OTPVerifyMiddleware はコード検証（verify-otp、auth/verify）専用のレート制限ミドルウェアを返す。
// 8桁コードの総当たりを1IPあたりの試行回数で抑える。
func (rl *RateLimiter) OTPVerifyMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.otpVerify, LimitTypeOTPVerify)
}

func (rl *RateLimiter) middleware(set *limiterSet, limitType string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)
			if !set.get(key, time.Now()).Allow() {
				rl.recorder.RecordRateLimited(limitType)
				rl.logger.Warn("rate limit exceeded",
					slog.String("client_ip", key),
					slog.String("limit_type", limitType),
				)
				writeRateLimitResponse(w, set.limit)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.len()
}

// OTPSendLimiterCount は現在管理されているOTP送信リミッターのエントリ数を返す。
func (rl *RateLimiter) OTPSendLimiterCount() int {
	return rl.otpSend.len()
}

// OTPVerifyLimiterCount は現在管理されているコード検証リミッターのエントリ数を返す。
func (rl *RateLimiter) OTPVerifyLimiterCount() int {
	return rl.otpVerify.len()
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup(now time.Time) {
	ttl := rl.config.CleanupInterval * 2
	rl.general.evict(now, ttl)
	rl.otpSend.evict(now, ttl)
	rl.otpVerify.evict(now, ttl)
}

// ClientIP はリクエスト元のIPアドレスを返す。
// chiのRealIPミドルウェアの後に配置すると、プロキシヘッダーの値がRemoteAddrに反映される。
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     "RATE_LIMIT_EXCEEDED",
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Please wait and retry after the specified time.",
	})
}
