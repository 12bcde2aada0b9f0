package gateway

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/phillycal/internal/metrics"
	"github.com/hitoshi/phillycal/internal/model"
	"github.com/hitoshi/phillycal/internal/notify"
)

// SaveService は保存状態リコンサイラのインターフェース。
// saves.Reconcilerが実装する。
type SaveService interface {
	ToggleSave(ctx context.Context, eventID int64) (bool, error)
	ActiveIDs() []int64
	MigrateBookmarks(ctx context.Context) error
}

// SavesHandler は保存状態関連のHTTPハンドラー。
type SavesHandler struct {
	service SaveService
	notices *notify.Buffer
	metrics metrics.MetricsCollector
}

// NewSavesHandler はSavesHandlerを生成する。
func NewSavesHandler(service SaveService, notices *notify.Buffer, collector metrics.MetricsCollector) *SavesHandler {
	return &SavesHandler{
		service: service,
		notices: notices,
		metrics: collector,
	}
}

// List は現在の権威層（匿名ブックマークまたはサーバー保存）のIDを返す。
// GET /saves
func (h *SavesHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"event_ids": h.service.ActiveIDs(),
	})
}

// Toggle は保存状態をトグルする。
// 認証済みの場合はサーバー確認後にのみ状態が変わる。失敗時は状態を変えずに
// 一過性通知を積む（自動リトライはしない）。
// POST /saves/{id}/toggle
func (h *SavesHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}

	saved, err := h.service.ToggleSave(r.Context(), id)
	if err != nil {
		h.metrics.RecordSaveFailed()

		var clientErr *model.ClientError
		if errors.As(err, &clientErr) {
			h.notices.Push(notify.LevelError, clientErr.Category, clientErr.Message)
			writeClientError(w, http.StatusBadGateway, clientErr)
			return
		}
		h.notices.Push(notify.LevelError, "save", err.Error())
		http.Error(w, "save toggle failed", http.StatusBadGateway)
		return
	}

	h.metrics.RecordSaveConfirmed()
	writeJSON(w, http.StatusOK, map[string]any{
		"event_id": id,
		"saved":    saved,
	})
}

// Migrate は匿名ブックマークのサーバー移行を明示的に再試行する。
// 未確認IDが残っている場合の回復経路。
// POST /saves/migrate
func (h *SavesHandler) Migrate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.MigrateBookmarks(r.Context()); err != nil {
		h.notices.Push(notify.LevelError, "save", "ブックマークの移行に失敗しました。未移行分は保持されています。")
		writeJSON(w, http.StatusOK, map[string]any{"success": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
