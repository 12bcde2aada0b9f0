package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/phillycal/internal/middleware"
	"github.com/hitoshi/phillycal/internal/model"
)

// writeJSON はJSON応答を書き込む共通処理。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// writeClientError は統一エラーフォーマットで応答を書き込む。
func writeClientError(w http.ResponseWriter, statusCode int, err *model.ClientError) {
	middleware.WriteErrorResponse(w, statusCode, err)
}
