package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/nimart/internal/cookie"
	"github.com/hitoshi/nimart/internal/metrics"
	"github.com/hitoshi/nimart/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger   *slog.Logger
	Recorder metrics.Recorder

	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Cookies           cookie.Options
	Sessions          middleware.SessionReader
	SessionSyncer     middleware.SessionSyncer

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証・OTP
	AuthService AuthServiceInterface
	Profiles    ProfileFinder
	OTPService  OTPServiceInterface

	// マーケットプレイス
	ProviderService     ProviderServiceInterface
	ReviewService       ReviewServiceInterface
	NotificationService NotificationServiceInterface
	Locators            LocatorFactory

	// SEO
	Sitemap SitemapGenerator
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RealIP → SecurityHeaders → Logging → Recovery → CORS → RateLimit(General)
//	→ SessionSync → RouteGuard
//
// セッション同期はルートガードより前に置き、同一リクエスト内で更新された
// フラグCookieをガードが参照できるようにする。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var recorder metrics.Recorder = metrics.Nop{}
	if deps.Recorder != nil {
		recorder = deps.Recorder
	}

	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, recorder))
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.GeneralMiddleware())
	}
	r.Use(middleware.NewSessionSyncMiddleware(deps.Sessions, deps.SessionSyncer, deps.Cookies, logger))
	r.Use(middleware.NewRouteGuardMiddleware(recorder, logger))

	csrf := middleware.NewCSRFMiddleware(logger)
	otpLimit := func(next http.Handler) http.Handler { return next }
	verifyLimit := otpLimit
	if deps.RateLimiter != nil {
		otpLimit = deps.RateLimiter.OTPSendMiddleware()
		verifyLimit = deps.RateLimiter.OTPVerifyMiddleware()
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.Profiles, deps.Cookies, logger)
	otpHandler := NewOTPHandler(deps.OTPService, logger)
	providerHandler := NewProviderHandler(deps.ProviderService, deps.AuthService, logger)
	reviewHandler := NewReviewHandler(deps.ReviewService)
	notificationHandler := NewNotificationHandler(deps.NotificationService)
	geoHandler := NewGeoHandler(deps.Locators)
	seoHandler := NewSEOHandler(deps.Sitemap, logger)

	// --- 運用・クローラー向け ---
	r.Get("/health", Health(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Get("/robots.txt", seoHandler.Robots)
	r.Get("/sitemap.xml", seoHandler.SitemapXML)

	r.Route("/api", func(r chi.Router) {
		r.Get("/csrf-token", middleware.NewCSRFTokenHandler(deps.Cookies, logger).ServeHTTP)
		r.Get("/sitemap", seoHandler.APISitemap)

		// 認証・OTP
		r.Get("/protected", authHandler.Protected)
		r.Route("/auth", func(r chi.Router) {
			r.With(otpLimit).Post("/login", authHandler.Login)
			r.With(verifyLimit).Post("/verify", authHandler.Verify)
			r.With(csrf).Post("/logout", authHandler.Logout)
		})
		r.With(otpLimit).Post("/send-otp", otpHandler.Send)
		r.With(verifyLimit).Post("/verify-otp", otpHandler.Verify)

		// カタログ・位置
		r.Get("/states", providerHandler.ListStates)
		r.Get("/services", providerHandler.ListServices)
		r.Get("/distance", geoHandler.Distance)
		r.Get("/location", geoHandler.Location)

		// 提供者・レビュー
		r.Route("/providers", func(r chi.Router) {
			r.Get("/", providerHandler.ListProviders)
			r.With(csrf).Put("/me/website", providerHandler.UpdateWebsite)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", providerHandler.GetProvider)
				r.Get("/contact", providerHandler.Contact)
				r.Get("/reviews", reviewHandler.ListReviews)
				r.With(csrf).Post("/reviews", reviewHandler.CreateReview)
			})
		})

		// 通知
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.ListNotifications)
			r.With(csrf).Post("/{id}/read", notificationHandler.MarkRead)
		})
	})

	return r
}
