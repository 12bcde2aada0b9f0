package gateway

import (
	"net/http"

	"github.com/hitoshi/phillycal/internal/notify"
)

// NoticesHandler は一過性通知の排出を公開するHTTPハンドラー。
type NoticesHandler struct {
	buffer *notify.Buffer
}

// NewNoticesHandler はNoticesHandlerを生成する。
func NewNoticesHandler(buffer *notify.Buffer) *NoticesHandler {
	return &NoticesHandler{buffer: buffer}
}

// Drain は保持中の通知をすべて返してバッファを空にする。
// GET /notifications
func (h *NoticesHandler) Drain(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"notifications": h.buffer.Drain(),
	})
}
