package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/phillycal/internal/metrics"
	"github.com/hitoshi/phillycal/internal/model"
	"github.com/hitoshi/phillycal/internal/notify"
)

// SessionService はアイデンティティセッションマネージャのインターフェース。
// session.Managerが実装する。
type SessionService interface {
	State() model.SessionState
	CurrentUser() *model.User
	RequestCode(ctx context.Context, email string) error
	ResendCode(ctx context.Context) error
	VerifyCode(ctx context.Context, code string) error
	Logout(ctx context.Context)
}

// AuthHandler はユーザーセッション関連のHTTPハンドラー。
type AuthHandler struct {
	service SessionService
	notices *notify.Buffer
	metrics metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service SessionService, notices *notify.Buffer, collector metrics.MetricsCollector) *AuthHandler {
	return &AuthHandler{
		service: service,
		notices: notices,
		metrics: collector,
	}
}

// Me は現在のローカルセッション状態を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"state": h.service.State(),
		"user":  h.service.CurrentUser(),
	})
}

// RequestCode はワンタイムコードの送付を要求する。
// POST /auth/request-code {email}
func (h *AuthHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}

	if err := h.service.RequestCode(r.Context(), body.Email); err != nil {
		h.writeAuthError(w, err)
		return
	}

	h.metrics.RecordOTPSent()
	writeJSON(w, http.StatusOK, map[string]any{"state": h.service.State()})
}

// Resend はコードを再送する。新しいコードが以前のコードを無効化する。
// POST /auth/resend
func (h *AuthHandler) Resend(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResendCode(r.Context()); err != nil {
		h.writeAuthError(w, err)
		return
	}

	h.metrics.RecordOTPSent()
	writeJSON(w, http.StatusOK, map[string]any{"state": h.service.State()})
}

// Verify はワンタイムコードを検証する。
// 失敗時は状態がCODE_SENTのまま残り、無制限に再試行できる。
// POST /auth/verify {code}
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Code == "" {
		http.Error(w, "code is required", http.StatusBadRequest)
		return
	}

	if err := h.service.VerifyCode(r.Context(), body.Code); err != nil {
		h.writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"state": h.service.State(),
		"user":  h.service.CurrentUser(),
	})
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"state": h.service.State()})
}

// writeAuthError は認証系エラーを統一フォーマットで応答し、通知を積む。
func (h *AuthHandler) writeAuthError(w http.ResponseWriter, err error) {
	var clientErr *model.ClientError
	if errors.As(err, &clientErr) {
		h.notices.Push(notify.LevelError, clientErr.Category, clientErr.Message)

		status := http.StatusBadRequest
		switch clientErr.Code {
		case model.ErrCodeOTPThrottled:
			status = http.StatusTooManyRequests
		case model.ErrCodeOTPSendFailed:
			status = http.StatusBadGateway
		case model.ErrCodeOTPVerifyFailed:
			status = http.StatusUnauthorized
		}
		writeClientError(w, status, clientErr)
		return
	}

	h.notices.Push(notify.LevelError, "auth", err.Error())
	http.Error(w, "auth operation failed", http.StatusBadGateway)
}
