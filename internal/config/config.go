// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// requiredVars は起動に必須の環境変数。1つでも欠けていれば起動を中止する。
var requiredVars = []string{
	"DATABASE_URL",
	"SUPABASE_URL",
	"SUPABASE_ANON_KEY",
	"SUPABASE_JWT_SECRET",
	"RESEND_API_KEY",
	"NEXT_PUBLIC_APP_URL",
}

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL       string        `env:"DATABASE_URL,required"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"10"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`

	// Auth provider
	SupabaseURL       string `env:"SUPABASE_URL,required"`
	SupabaseAnonKey   string `env:"SUPABASE_ANON_KEY,required"`
	SupabaseJWTSecret string `env:"SUPABASE_JWT_SECRET,required"`

	// Email
	ResendAPIKey string        `env:"RESEND_API_KEY,required"`
	ResendAPIURL string        `env:"RESEND_API_URL" envDefault:"https://api.resend.com"`
	EmailFrom    string        `env:"EMAIL_FROM" envDefault:"Nimart <noreply@nimart.ng>"`
	OTPValidity  time.Duration `env:"OTP_VALIDITY" envDefault:"10m"`

	// External HTTP
	ExternalHTTPTimeout time.Duration `env:"EXTERNAL_HTTP_TIMEOUT" envDefault:"10s"`
	GeolocationEndpoint string        `env:"GEOLOCATION_ENDPOINT"`

	// Rate Limit
	RateLimitGeneral   int `env:"RATE_LIMIT_GENERAL" envDefault:"120"`   // req/min
	RateLimitOTPSend   int `env:"RATE_LIMIT_OTP_SEND" envDefault:"30"`   // req/hour
	RateLimitOTPVerify int `env:"RATE_LIMIT_OTP_VERIFY" envDefault:"60"` // req/hour

	// Worker
	OTPCleanupInterval time.Duration `env:"OTP_CLEANUP_INTERVAL" envDefault:"1h"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Server
	ServerPort      string        `env:"SERVER_PORT" envDefault:"8080"`
	AppURL          string        `env:"NEXT_PUBLIC_APP_URL,required"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Cookie
	CookieDomain string `env:"COOKIE_DOMAIN"`
	CookieSecure bool // NEXT_PUBLIC_APP_URLがhttpsの場合にtrue

	// CORS
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN"` // カンマ区切りで複数指定可。空ならNEXT_PUBLIC_APP_URL
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合は、欠けている変数名をすべて列挙したエラーを返す。
func Load() (*Config, error) {
	var missing []string
	for _, key := range requiredVars {
		if strings.TrimSpace(os.Getenv(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.AppURL = strings.TrimRight(cfg.AppURL, "/")
	cfg.CookieSecure = strings.HasPrefix(cfg.AppURL, "https://")
	if cfg.CORSAllowedOrigin == "" {
		cfg.CORSAllowedOrigin = cfg.AppURL
	}

	if cfg.RateLimitGeneral <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_GENERAL must be positive: %d", cfg.RateLimitGeneral)
	}
	if cfg.RateLimitOTPSend <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_OTP_SEND must be positive: %d", cfg.RateLimitOTPSend)
	}
	if cfg.RateLimitOTPVerify <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_OTP_VERIFY must be positive: %d", cfg.RateLimitOTPVerify)
	}

	return cfg, nil
}
