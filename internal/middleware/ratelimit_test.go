package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

type mockRateLimitRecorder struct {
	limited []string
}

func (m *mockRateLimitRecorder) RecordRateLimited(limitType string) {
	m.limited = append(m.limited, limitType)
}

func newTestLimiter(t *testing.T, cfg RateLimiterConfig) (*RateLimiter, *mockRateLimitRecorder) {
	t.Helper()
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Minute
	}
	rec := &mockRateLimitRecorder{}
	rl := NewRateLimiter(cfg, rec, discardLogger())
	t.Cleanup(rl.Stop)
	return rl, rec
}

func requestFrom(ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/send-otp", nil)
	req.RemoteAddr = ip + ":54321"
	return req
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitMiddleware_AllowsRequestsWithinBurst(t *testing.T) {
	rl, _ := newTestLimiter(t, RateLimiterConfig{GeneralRate: 2, GeneralBurst: 5, OTPSendRate: 1, OTPSendBurst: 1})
	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom("10.0.0.1"))
		if w.Code != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Code, http.StatusOK)
		}
	}
}

func TestRateLimitMiddleware_Returns429WithRetryAfter(t *testing.T) {
	rl, rec := newTestLimiter(t, RateLimiterConfig{GeneralRate: 0.5, GeneralBurst: 1, OTPSendRate: 1, OTPSendBurst: 1})
	handler := rl.GeneralMiddleware()(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.2"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("10.0.0.2"))

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || retryAfter != 2 {
		t.Errorf("Retry-After = %q, want 2", w.Header().Get("Retry-After"))
	}

	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Code != "RATE_LIMIT_EXCEEDED" {
		t.Errorf("code = %q, want RATE_LIMIT_EXCEEDED", body.Code)
	}
	if len(rec.limited) != 1 || rec.limited[0] != LimitTypeGeneral {
		t.Errorf("recorded = %v, want [general]", rec.limited)
	}
}

func TestRateLimitMiddleware_IsolatesClientIPs(t *testing.T) {
	rl, _ := newTestLimiter(t, RateLimiterConfig{GeneralRate: 0.1, GeneralBurst: 1, OTPSendRate: 1, OTPSendBurst: 1})
	handler := rl.GeneralMiddleware()(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.3"))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestFrom("10.0.0.4"))
	if w.Code != http.StatusOK {
		t.Errorf("second client status = %d, want %d", w.Code, http.StatusOK)
	}
	if rl.GeneralLimiterCount() != 2 {
		t.Errorf("limiter count = %d, want 2", rl.GeneralLimiterCount())
	}
}

func TestOTPSendRateLimit_IndependentFromGeneral(t *testing.T) {
	rl, rec := newTestLimiter(t, RateLimiterConfig{GeneralRate: 10, GeneralBurst: 10, OTPSendRate: rate.Every(time.Minute), OTPSendBurst: 1})
	handler := rl.GeneralMiddleware()(rl.OTPSendMiddleware()(okHandler()))

	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, requestFrom("10.0.0.5"))
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, requestFrom("10.0.0.5"))

	if w1.Code != http.StatusOK {
		t.Errorf("first status = %d, want %d", w1.Code, http.StatusOK)
	}
	if w2.Code != http.StatusTooManyRequests {
		t.Errorf("second status = %d, want %d", w2.Code, http.StatusTooManyRequests)
	}
	if sec, err := strconv.Atoi(w2.Header().Get("Retry-After")); err != nil || sec < 60 || sec > 61 {
		t.Errorf("Retry-After = %q, want about 60", w2.Header().Get("Retry-After"))
	}
	if len(rec.limited) != 1 || rec.limited[0] != LimitTypeOTPSend {
		t.Errorf("recorded = %v, want [otp_send]", rec.limited)
	}
	if rl.OTPSendLimiterCount() != 1 {
		t.Errorf("otp limiter count = %d, want 1", rl.OTPSendLimiterCount())
	}
}

func TestRateLimiter_CleanupRemovesExpiredEntries(t *testing.T) {
	rl, _ := newTestLimiter(t, RateLimiterConfig{GeneralRate: 1, GeneralBurst: 1, OTPSendRate: 1, OTPSendBurst: 1, OTPVerifyRate: 1, OTPVerifyBurst: 1, CleanupInterval: time.Minute})
	rl.GeneralMiddleware()(okHandler()).ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.6"))
	rl.OTPSendMiddleware()(okHandler()).ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.6"))
	rl.OTPVerifyMiddleware()(okHandler()).ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.6"))

	rl.cleanup(time.Now())
	if rl.GeneralLimiterCount() != 1 {
		t.Errorf("fresh entry should survive cleanup, count = %d", rl.GeneralLimiterCount())
	}

	rl.cleanup(time.Now().Add(3 * time.Minute))
	if rl.GeneralLimiterCount() != 0 || rl.OTPSendLimiterCount() != 0 || rl.OTPVerifyLimiterCount() != 0 {
		t.Errorf("counts = %d/%d/%d, want 0/0/0", rl.GeneralLimiterCount(), rl.OTPSendLimiterCount(), rl.OTPVerifyLimiterCount())
	}
}

func TestOTPVerifyRateLimit_IndependentFromSend(t *testing.T) {
	rl, rec := newTestLimiter(t, RateLimiterConfig{
		GeneralRate: 10, GeneralBurst: 10,
		OTPSendRate: rate.Every(time.Minute), OTPSendBurst: 1,
		OTPVerifyRate: rate.Every(time.Minute), OTPVerifyBurst: 2,
	})
	send := rl.OTPSendMiddleware()(okHandler())
	verify := rl.OTPVerifyMiddleware()(okHandler())

	send.ServeHTTP(httptest.NewRecorder(), requestFrom("10.0.0.8"))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		verify.ServeHTTP(w, requestFrom("10.0.0.8"))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("verify within burst = %v, want 200s", codes[:2])
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("verify over burst = %d, want %d", codes[2], http.StatusTooManyRequests)
	}
	if len(rec.limited) != 1 || rec.limited[0] != LimitTypeOTPVerify {
		t.Errorf("recorded = %v, want [%s]", rec.limited, LimitTypeOTPVerify)
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl, _ := newTestLimiter(t, DefaultRateLimiterConfig())
	rl.Stop()
	rl.Stop()
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:1234"
	if got := ClientIP(req); got != "192.0.2.10" {
		t.Errorf("ClientIP = %q, want 192.0.2.10", got)
	}
	req.RemoteAddr = "192.0.2.11"
	if got := ClientIP(req); got != "192.0.2.11" {
		t.Errorf("ClientIP = %q, want 192.0.2.11", got)
	}
}

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()
	if cfg.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", cfg.GeneralBurst)
	}
	if cfg.OTPSendBurst != 5 {
		t.Errorf("OTPSendBurst = %d, want 5", cfg.OTPSendBurst)
	}
	if cfg.OTPSendRate >= cfg.GeneralRate {
		t.Error("OTP send rate should be stricter than the general rate")
	}
	if cfg.OTPVerifyBurst != 10 || cfg.OTPVerifyRate >= cfg.GeneralRate {
		t.Errorf("OTPVerify = %v/%d, want a stricter rate with burst 10", cfg.OTPVerifyRate, cfg.OTPVerifyBurst)
	}
}
