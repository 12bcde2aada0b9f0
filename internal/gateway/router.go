// Package gateway はクライアント状態をページへ公開するローカルHTTPサーフェスを
// 提供する。フィルタ済み・日別グルーピング済みのビュー、フィルタ操作、
// 保存トグル、認証コマンド、管理者操作、一過性通知の排出を含む。
package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/phillycal/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"log/slog"

	"github.com/hitoshi/phillycal/internal/metrics"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	PageOrigin string
	Logger     *slog.Logger
	Gatherer   prometheus.Gatherer

	View    *ViewHandler
	Saves   *SavesHandler
	Auth    *AuthHandler
	Admin   *AdminHandler
	Offline *OfflineHandler
	Notices *NoticesHandler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成した
// chi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.PageOrigin))

	// ヘルスチェックとメトリクス
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler(deps.Gatherer))

	// ビューとフィルタ
	r.Get("/view", deps.View.GetView)
	r.Get("/options", deps.View.GetOptions)
	r.Get("/stats", deps.View.GetStats)
	r.Route("/filters", func(r chi.Router) {
		r.Get("/", deps.View.GetFilters)
		r.Put("/", deps.View.PutFilters)
		r.Post("/clear", deps.View.ClearFilters)
	})
	r.Post("/refresh", deps.View.Refresh)
	r.Route("/hero", func(r chi.Router) {
		r.Get("/", deps.View.GetHero)
		r.Post("/dismiss", deps.View.DismissHero)
	})

	// 保存状態
	r.Route("/saves", func(r chi.Router) {
		r.Get("/", deps.Saves.List)
		r.Post("/{id}/toggle", deps.Saves.Toggle)
		r.Post("/migrate", deps.Saves.Migrate)
	})

	// 認証
	r.Route("/auth", func(r chi.Router) {
		r.Get("/me", deps.Auth.Me)
		r.Post("/request-code", deps.Auth.RequestCode)
		r.Post("/resend", deps.Auth.Resend)
		r.Post("/verify", deps.Auth.Verify)
		r.Post("/logout", deps.Auth.Logout)
	})

	// 管理者
	r.Route("/admin", func(r chi.Router) {
		r.Put("/token", deps.Admin.SetToken)
		r.Delete("/token", deps.Admin.ClearToken)
		r.Post("/events", deps.Admin.CreateEvent)
		r.Put("/events/{id}", deps.Admin.UpdateEvent)
		r.Delete("/events/{id}", deps.Admin.DeleteEvent)
		r.Post("/scrape", deps.Admin.TriggerScrape)
	})

	// オフラインキャッシュ経由のアセットとイベントペイロード
	r.Get("/offline/events", deps.Offline.Events)
	r.Get("/offline/assets/*", deps.Offline.Asset)

	// 一過性通知の排出
	r.Get("/notifications", deps.Notices.Drain)

	return r
}
