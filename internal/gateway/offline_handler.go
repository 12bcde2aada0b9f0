package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/phillycal/internal/offline"
)

// OfflineFetcher はオフラインキャッシュワーカーの取得インターフェース。
// offline.Workerが実装する。
type OfflineFetcher interface {
	Fetch(ctx context.Context, url string) (*offline.CachedResponse, error)
	BustURL(url string) string
}

// OfflineHandler はオフラインキャッシュ経由の取得を公開するHTTPハンドラー。
// ページのメモリ状態には一切触れず、URLキーのキャッシュストレージのみを
// 参照する。バックエンド到達不能時には最後にキャッシュできたペイロードを返す。
type OfflineHandler struct {
	worker  OfflineFetcher
	baseURL string
}

// NewOfflineHandler はOfflineHandlerを生成する。
func NewOfflineHandler(worker OfflineFetcher, backendBaseURL string) *OfflineHandler {
	return &OfflineHandler{
		worker:  worker,
		baseURL: strings.TrimRight(backendBaseURL, "/"),
	}
}

// Events はイベントペイロードをキャッシュ優先で返す。
// オンライン時の初回取得が現行世代へ書き込まれ、以降のオフライン時には
// その最終成功ペイロードが返る。
// GET /offline/events
func (h *OfflineHandler) Events(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.baseURL+"/events/upcoming")
}

// Asset は固定アセットをキャッシュ優先で返す。
// URLにはバージョントークンのキャッシュバスターが付与される。
// GET /offline/assets/*
func (h *OfflineHandler) Asset(w http.ResponseWriter, r *http.Request) {
	rest := chi.URLParam(r, "*")
	h.serve(w, r, h.worker.BustURL(h.baseURL+"/"+rest))
}

// serve はワーカー経由の取得結果をそのまま応答へ書き込む。
func (h *OfflineHandler) serve(w http.ResponseWriter, r *http.Request, url string) {
	resp, err := h.worker.Fetch(r.Context(), url)
	if err != nil {
		slog.Warn("オフラインキャッシュ経由の取得に失敗しました",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
		http.Error(w, "offline and not cached", http.StatusServiceUnavailable)
		return
	}

	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Body)
}
