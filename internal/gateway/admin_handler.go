package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/phillycal/internal/model"
	"github.com/hitoshi/phillycal/internal/notify"
)

// AdminAPI は管理者の変更系エンドポイントのインターフェース。
// api.Clientの部分集合として定義する。
type AdminAPI interface {
	CreateEvent(ctx context.Context, token string, payload model.EventPayload) error
	UpdateEvent(ctx context.Context, token string, id int64, payload model.EventPayload) error
	DeleteEvent(ctx context.Context, token string, id int64) error
	TriggerScrape(ctx context.Context, token string) (int, error)
}

// AdminSession は管理者トークンの保持と認可エラー処理のインターフェース。
// session.Managerが実装する。
type AdminSession interface {
	SetAdminToken(token string)
	AdminToken() string
	HasAdmin() bool
	HandleAdminError(err error) error
}

// AdminHandler は管理者操作のHTTPハンドラー。
// 変更系リクエストはfire-and-forget: 自動リトライはせず、失敗は一過性通知として
// 表面化する。401/403は即座のローカル管理者セッション破棄を引き起こす。
type AdminHandler struct {
	api     AdminAPI
	session AdminSession
	notices *notify.Buffer
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(adminAPI AdminAPI, adminSession AdminSession, notices *notify.Buffer) *AdminHandler {
	return &AdminHandler{
		api:     adminAPI,
		session: adminSession,
		notices: notices,
	}
}

// SetToken は管理者トークンを現在のプロセスに保持する。永続化はしない。
// PUT /admin/token {token}
func (h *AdminHandler) SetToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}

	h.session.SetAdminToken(body.Token)
	w.WriteHeader(http.StatusNoContent)
}

// ClearToken は管理者トークンを破棄する。
// DELETE /admin/token
func (h *AdminHandler) ClearToken(w http.ResponseWriter, r *http.Request) {
	h.session.SetAdminToken("")
	w.WriteHeader(http.StatusNoContent)
}

// CreateEvent はイベントを作成する。
// POST /admin/events
func (h *AdminHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	h.runMutation(w, r, func(ctx context.Context, token string) error {
		return h.api.CreateEvent(ctx, token, payload)
	})
}

// UpdateEvent はイベントを更新する。
// PUT /admin/events/{id}
func (h *AdminHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}
	payload, ok := h.decodePayload(w, r)
	if !ok {
		return
	}
	h.runMutation(w, r, func(ctx context.Context, token string) error {
		return h.api.UpdateEvent(ctx, token, id, payload)
	})
}

// DeleteEvent はイベントを削除する。
// DELETE /admin/events/{id}
func (h *AdminHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid event id", http.StatusBadRequest)
		return
	}
	h.runMutation(w, r, func(ctx context.Context, token string) error {
		return h.api.DeleteEvent(ctx, token, id)
	})
}

// TriggerScrape はスクレイピングを起動し、追加件数を返す。
// POST /admin/scrape
func (h *AdminHandler) TriggerScrape(w http.ResponseWriter, r *http.Request) {
	if !h.session.HasAdmin() {
		writeClientError(w, http.StatusUnauthorized, &model.ClientError{
			Code:     model.ErrCodeAdminTokenMissing,
			Message:  "管理者トークンが設定されていません",
			Category: "admin",
			Action:   "管理者トークンを入力してください。",
		})
		return
	}

	added, err := h.api.TriggerScrape(r.Context(), h.session.AdminToken())
	if err != nil {
		h.handleMutationError(w, err)
		return
	}

	h.notices.Push(notify.LevelInfo, "admin", "スクレイピングを実行しました")
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"total_added": added,
	})
}

// decodePayload はイベントペイロードをデコードし、カテゴリを検証する。
func (h *AdminHandler) decodePayload(w http.ResponseWriter, r *http.Request) (model.EventPayload, bool) {
	var payload model.EventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return payload, false
	}
	if _, ok := model.ParseCategory(payload.Category); !ok {
		writeClientError(w, http.StatusBadRequest, model.NewInvalidCategoryError(payload.Category))
		return payload, false
	}
	return payload, true
}

// runMutation は管理者の変更操作を共通処理で実行する。
func (h *AdminHandler) runMutation(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, token string) error) {
	if !h.session.HasAdmin() {
		writeClientError(w, http.StatusUnauthorized, &model.ClientError{
			Code:     model.ErrCodeAdminTokenMissing,
			Message:  "管理者トークンが設定されていません",
			Category: "admin",
			Action:   "管理者トークンを入力してください。",
		})
		return
	}

	if err := fn(r.Context(), h.session.AdminToken()); err != nil {
		h.handleMutationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleMutationError は変更操作のエラーを処理する。
// 認可エラーの場合はセッションマネージャがトークンを破棄済みで、
// ユーザー向け通知を積んで401を返す。
func (h *AdminHandler) handleMutationError(w http.ResponseWriter, err error) {
	handled := h.session.HandleAdminError(err)

	var clientErr *model.ClientError
	if errors.As(handled, &clientErr) && clientErr.Code == model.ErrCodeAdminUnauthorized {
		h.notices.Push(notify.LevelError, "admin", "管理者セッションが無効になりました。再ログインしてください。")
		writeClientError(w, http.StatusUnauthorized, clientErr)
		return
	}

	h.notices.Push(notify.LevelError, "admin", handled.Error())
	http.Error(w, "admin mutation failed", http.StatusBadGateway)
}
