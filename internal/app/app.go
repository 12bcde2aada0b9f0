// Package app はアプリケーションの初期化と起動モードごとのワイヤリングを行う。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/phillycal/internal/api"
	"github.com/hitoshi/phillycal/internal/config"
	"github.com/hitoshi/phillycal/internal/gateway"
	"github.com/hitoshi/phillycal/internal/localdata"
	"github.com/hitoshi/phillycal/internal/logger"
	"github.com/hitoshi/phillycal/internal/metrics"
	"github.com/hitoshi/phillycal/internal/notify"
	"github.com/hitoshi/phillycal/internal/offline"
	"github.com/hitoshi/phillycal/internal/refresh"
	"github.com/hitoshi/phillycal/internal/saves"
	"github.com/hitoshi/phillycal/internal/security"
	"github.com/hitoshi/phillycal/internal/session"
	"github.com/hitoshi/phillycal/internal/store"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. 設定読み込み前でもログを使えるよう、まずはデフォルトレベルで初期化する
	logger.SetupDefault(w, "info")

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたレベルでログを構成し直す
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("GATEWAY_PORT")
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
		slog.String("port", cfg.GatewayPort),
		slog.String("backend", cfg.BackendBaseURL),
		slog.String("asset_version", cfg.AssetVersion),
	)

	switch cmd {
	case CommandInstall:
		return runInstall(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はローカルゲートウェイモードで起動する。
// バックエンドAPIクライアント・インメモリストア・端末ローカル状態・
// オフラインキャッシュをワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. バックエンドAPIクライアント
	client, err := api.NewClient(cfg.BackendBaseURL, cfg.RequestTimeout, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create backend client: %w", err)
	}

	// 2. 端末ローカル状態とインメモリストア
	local, err := localdata.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open local data store: %w", err)
	}
	eventStore := store.New()

	slog.Info("local data opened",
		slog.String("dir", cfg.DataDir),
		slog.String("device_id", local.DeviceID()),
	)

	// 3. 保存状態とセッション
	reconciler := saves.NewReconciler(client, local, slog.Default())

	limiterCfg := session.DefaultOTPLimiterConfig()
	if cfg.OTPSendPerMinute > 0 {
		limiterCfg.SendRate = rate.Limit(float64(cfg.OTPSendPerMinute) / 60.0)
		limiterCfg.SendBurst = cfg.OTPSendPerMinute
	}
	limiter := session.NewOTPLimiter(limiterCfg)
	defer limiter.Stop()

	sessionMgr := session.NewManager(client, reconciler, limiter, slog.Default())

	// 4. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 5. リフレッシュワーカー
	refresher := refresh.NewWorker(client, eventStore, collector, slog.Default())

	// 6. セキュリティサービス
	sanitizer := security.NewEventSanitizer()
	linkGuard := security.NewLinkGuard()

	// 7. オフラインキャッシュワーカー
	// アセット取得はSSRF防止付きクライアントで行う
	cacheStore, err := offline.NewFileStore(filepath.Join(cfg.DataDir, "offline"))
	if err != nil {
		return fmt.Errorf("failed to open offline cache store: %w", err)
	}
	offlineWorker := offline.NewWorker(
		cacheStore,
		linkGuard.NewSafeClient(cfg.RequestTimeout),
		offline.WorkerConfig{
			Version:  cfg.AssetVersion,
			Manifest: assetManifest(cfg.BackendBaseURL),
		},
		collector,
		slog.Default(),
	)

	// 8. ハンドラーとルーターの構築
	notices := notify.NewBuffer()

	deps := &gateway.RouterDeps{
		PageOrigin: cfg.PageOrigin,
		Logger:     slog.Default(),
		Gatherer:   registry,

		View:    gateway.NewViewHandler(eventStore, refresher, client, reconciler, sanitizer, linkGuard),
		Saves:   gateway.NewSavesHandler(reconciler, notices, collector),
		Auth:    gateway.NewAuthHandler(sessionMgr, notices, collector),
		Admin:   gateway.NewAdminHandler(client, sessionMgr, notices),
		Offline: gateway.NewOfflineHandler(offlineWorker, cfg.BackendBaseURL),
		Notices: gateway.NewNoticesHandler(notices),
	}

	router := gateway.NewRouter(deps)

	// バックグラウンド処理のライフサイクル
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 9. 起動時のセッション復元と初回同期
	// サーバー起動をブロックしないようバックグラウンドで行う。
	go func() {
		restoreCtx, restoreCancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		defer restoreCancel()
		sessionMgr.Restore(restoreCtx)
	}()

	// 10. オフラインキャッシュ世代のインストールとアクティベーション
	// 失敗してもサービス本体は継続する。次回起動で再試行される。
	go func() {
		if err := offlineWorker.Install(ctx); err != nil {
			slog.Warn("offline cache install failed",
				slog.String("generation", offlineWorker.Generation()),
				slog.String("error", err.Error()),
			)
			return
		}
		if err := offlineWorker.Activate(ctx); err != nil {
			slog.Warn("offline cache activation failed", slog.String("error", err.Error()))
			return
		}
		slog.Info("offline cache activated", slog.String("generation", offlineWorker.Generation()))
	}()

	// 11. 定期リフレッシュワーカー
	go refresher.Start(ctx, cfg.RefreshInterval)

	// 12. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.GatewayPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("gateway server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down gateway server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("gateway server stopped gracefully")
	return nil
}

// runInstall はオフラインキャッシュ世代の事前取得のみを行って終了する。
// 取得に成功した場合は旧世代を削除してアクティベーションまで行う。
func runInstall(cfg *config.Config) error {
	cacheStore, err := offline.NewFileStore(filepath.Join(cfg.DataDir, "offline"))
	if err != nil {
		return fmt.Errorf("failed to open offline cache store: %w", err)
	}

	linkGuard := security.NewLinkGuard()
	collector := metrics.NewCollector(prometheus.NewRegistry())
	worker := offline.NewWorker(
		cacheStore,
		linkGuard.NewSafeClient(cfg.RequestTimeout),
		offline.WorkerConfig{
			Version:  cfg.AssetVersion,
			Manifest: assetManifest(cfg.BackendBaseURL),
		},
		collector,
		slog.Default(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := worker.Install(ctx); err != nil {
		return fmt.Errorf("offline cache install failed: %w", err)
	}
	if err := worker.Activate(ctx); err != nil {
		return fmt.Errorf("offline cache activation failed: %w", err)
	}

	slog.Info("offline cache installed", slog.String("generation", worker.Generation()))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// assetManifest はインストール時に事前取得する固定アセットURLを組み立てる。
func assetManifest(baseURL string) []string {
	return []string{
		baseURL + "/",
		baseURL + "/assets/styles.css",
		baseURL + "/assets/app.js",
	}
}
