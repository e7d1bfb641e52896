// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はメトリクス記録のインターフェース。
// ミドルウェアやサービス層から利用する。
type Recorder interface {
	RecordHTTPRequest(method string, statusCode int, duration time.Duration)
	RecordGuardRedirect()
	RecordRateLimited(limitType string)
	RecordOTPSent(otpType string, success bool)
	RecordEmailSent(success bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests   *prometheus.CounterVec
	httpLatency    prometheus.Histogram
	guardRedirects prometheus.Counter
	rateLimited    *prometheus.CounterVec
	otpSent        *prometheus.CounterVec
	emailSent      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nimart_http_requests_total",
			Help: "メソッド・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "status_code"}),
		httpLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "nimart_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		guardRedirects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nimart_guard_redirects_total",
			Help: "未認証のためログインページへリダイレクトしたリクエスト数",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nimart_rate_limited_total",
			Help: "レート制限により拒否したリクエスト数",
		}, []string{"limit_type"}),
		otpSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nimart_otp_sent_total",
			Help: "OTP送信の結果別件数",
		}, []string{"type", "result"}),
		emailSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nimart_email_sent_total",
			Help: "メール送信APIの呼び出し結果別件数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.guardRedirects,
		c.rateLimited,
		c.otpSent,
		c.emailSent,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの件数と処理時間を記録する。
func (c *Collector) RecordHTTPRequest(method string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.Observe(duration.Seconds())
}

// RecordGuardRedirect はルートガードによるリダイレクトを記録する。
func (c *Collector) RecordGuardRedirect() {
	c.guardRedirects.Inc()
}

// RecordRateLimited はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimited(limitType string) {
	c.rateLimited.WithLabelValues(limitType).Inc()
}

// RecordOTPSent はOTP送信の結果を記録する。
func (c *Collector) RecordOTPSent(otpType string, success bool) {
	c.otpSent.WithLabelValues(otpType, result(success)).Inc()
}

// RecordEmailSent はメール送信の結果を記録する。
func (c *Collector) RecordEmailSent(success bool) {
	c.emailSent.WithLabelValues(result(success)).Inc()
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// Nop は何も記録しないRecorder。テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordHTTPRequest(string, int, time.Duration) {}
func (Nop) RecordGuardRedirect()                         {}
func (Nop) RecordRateLimited(string)                     {}
func (Nop) RecordOTPSent(string, bool)                   {}
func (Nop) RecordEmailSent(bool)                         {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
