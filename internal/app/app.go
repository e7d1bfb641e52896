package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/nimart/internal/auth"
	"github.com/hitoshi/nimart/internal/config"
	"github.com/hitoshi/nimart/internal/cookie"
	"github.com/hitoshi/nimart/internal/database"
	"github.com/hitoshi/nimart/internal/email"
	"github.com/hitoshi/nimart/internal/geo"
	"github.com/hitoshi/nimart/internal/handler"
	"github.com/hitoshi/nimart/internal/logger"
	"github.com/hitoshi/nimart/internal/metrics"
	"github.com/hitoshi/nimart/internal/middleware"
	"github.com/hitoshi/nimart/internal/notification"
	"github.com/hitoshi/nimart/internal/otp"
	"github.com/hitoshi/nimart/internal/provider"
	"github.com/hitoshi/nimart/internal/repository"
	"github.com/hitoshi/nimart/internal/review"
	"github.com/hitoshi/nimart/internal/security"
	"github.com/hitoshi/nimart/internal/seo"
	"github.com/hitoshi/nimart/internal/session"
	"github.com/hitoshi/nimart/internal/worker/cleanup"
)

// dbPingTimeout は起動時のDB疎通確認のタイムアウト。
const dbPingTimeout = 5 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 設定読み込み前にログを使えるようにする
	logger.SetupDefault(w, slog.LevelInfo)

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	if cmd == CommandHelp {
		PrintUsage(w)
		return nil
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("app_url", cfg.AppURL),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// openDatabase はプール設定付きでDBを開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.Ping(context.Background(), db, dbPingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// runServe はAPIサーバーモードで起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	server, cleanupFn := newAPIServer(cfg, db, slog.Default())
	defer cleanupFn()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// newAPIServer は全依存関係をワイヤリングしたHTTPサーバーを構築する。
// 戻り値の関数はレートリミッターの停止とセッション同期の購読解除を行う。
func newAPIServer(cfg *config.Config, db *sql.DB, log *slog.Logger) (*http.Server, func()) {
	// メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewCollector(registry)

	// リポジトリ
	profileRepo := repository.NewPostgresProfileRepo(db)
	providerRepo := repository.NewPostgresProviderRepo(db)
	reviewRepo := repository.NewPostgresReviewRepo(db)
	notificationRepo := repository.NewPostgresNotificationRepo(db)
	otpRepo := repository.NewPostgresOTPRepo(db)
	catalogRepo := repository.NewPostgresCatalogRepo(db)

	// セキュリティ
	ssrfGuard := security.NewSSRFGuard()
	sanitizer := security.NewContentSanitizer()

	// 外部API。認証プロバイダーとメールAPIは設定で固定された宛先のため通常のクライアントを使う
	externalClient := &http.Client{Timeout: cfg.ExternalHTTPTimeout}

	dispatcher := auth.NewDispatcher()
	authClient := auth.NewClient(externalClient, log, auth.ClientConfig{
		BaseURL: cfg.SupabaseURL,
		APIKey:  cfg.SupabaseAnonKey,
	})
	authService := auth.NewService(authClient, auth.NewTokenVerifier(cfg.SupabaseJWTSecret), dispatcher, log)

	mailer := email.NewClient(externalClient, log, recorder, email.ClientConfig{
		BaseURL: cfg.ResendAPIURL,
		APIKey:  cfg.ResendAPIKey,
	})
	otpService := otp.NewService(otpRepo, mailer, recorder, log, otp.Config{
		From:     cfg.EmailFrom,
		Validity: cfg.OTPValidity,
	})

	// ドメインサービス
	notificationService := notification.NewService(notificationRepo, log)
	providerService := provider.NewService(providerRepo, catalogRepo, ssrfGuard, notificationService)
	reviewService := review.NewService(reviewRepo, providerRepo, sanitizer, notificationService)

	synchronizer := session.NewSynchronizer(providerRepo, log)
	subscription := synchronizer.Start(dispatcher)

	// 位置推定APIは利用者のIPごとに呼び出すため、SSRF対策済みクライアントを使う
	var locators handler.LocatorFactory
	if cfg.GeolocationEndpoint != "" {
		geoClient := ssrfGuard.NewSafeClient(cfg.ExternalHTTPTimeout)
		locators = func(r *http.Request) geo.Locator {
			return geo.NewIPLocator(geoClient, cfg.GeolocationEndpoint, middleware.ClientIP(r))
		}
	}

	// 設定値はreq/min・req/hour単位なのでreq/secに変換する
	rlCfg := middleware.DefaultRateLimiterConfig()
	rlCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rlCfg.GeneralBurst = cfg.RateLimitGeneral
	rlCfg.OTPSendRate = rate.Limit(float64(cfg.RateLimitOTPSend) / 3600.0)
	rlCfg.OTPVerifyRate = rate.Limit(float64(cfg.RateLimitOTPVerify) / 3600.0)
	rateLimiter := middleware.NewRateLimiter(rlCfg, recorder, log)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		Recorder:          recorder,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Cookies: cookie.Options{
			Domain: cfg.CookieDomain,
			Secure: cfg.CookieSecure,
		},
		Sessions:      authService,
		SessionSyncer: synchronizer,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(registry),

		AuthService: authService,
		Profiles:    profileRepo,
		OTPService:  otpService,

		ProviderService:     providerService,
		ReviewService:       reviewService,
		NotificationService: notificationService,
		Locators:            locators,

		Sitemap: seo.NewGenerator(cfg.AppURL, nil),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server, func() {
		rateLimiter.Stop()
		subscription.Unsubscribe()
	}
}

// runWorker はワーカーモードで起動する。
// 期限切れワンタイムコードの削除ジョブを定期実行し、
// SIGINTまたはSIGTERMシグナルを受信すると停止する。
func runWorker(cfg *config.Config) error {
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	// PurgeExpiredはメール送信を行わないため、送信系の依存は持たせない
	otpService := otp.NewService(repository.NewPostgresOTPRepo(db), nil, metrics.Nop{}, slog.Default(), otp.Config{
		From:     cfg.EmailFrom,
		Validity: cfg.OTPValidity,
	})
	job := cleanup.NewCleanupJob(otpService, slog.Default())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	slog.Info("worker starting",
		slog.Duration("otp_cleanup_interval", cfg.OTPCleanupInterval),
	)

	// ブロッキング。シグナル受信でctxがキャンセルされると戻る
	job.Start(ctx, cfg.OTPCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.SchemaVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// 解析できない場合は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
