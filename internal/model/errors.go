// Package model はドメインモデルを定義する。
package model

import "fmt"

// ClientError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
// このコアのエラーはすべて操作単位に閉じ、プロセスを停止させない。
type ClientError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, admin, network, validation, save
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *ClientError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeBackendUnreachable = "BACKEND_UNREACHABLE"
	ErrCodeInvalidResponse    = "INVALID_RESPONSE"
	ErrCodeAdminUnauthorized  = "ADMIN_UNAUTHORIZED"
	ErrCodeAdminTokenMissing  = "ADMIN_TOKEN_MISSING"
	ErrCodeOTPSendFailed      = "OTP_SEND_FAILED"
	ErrCodeOTPVerifyFailed    = "OTP_VERIFY_FAILED"
	ErrCodeOTPThrottled       = "OTP_THROTTLED"
	ErrCodeSaveFailed         = "SAVE_FAILED"
	ErrCodeNotAuthenticated   = "NOT_AUTHENTICATED"
	ErrCodeInvalidCategory    = "INVALID_CATEGORY"
	ErrCodeInvalidStateChange = "INVALID_STATE_CHANGE"
)

// NewBackendUnreachableError はバックエンド到達不能エラーを生成する。
// 読み取り系の呼び出し元は空状態表示へ縮退する。
func NewBackendUnreachableError(cause error) *ClientError {
	return &ClientError{
		Code:     ErrCodeBackendUnreachable,
		Message:  fmt.Sprintf("バックエンドに接続できませんでした: %v", cause),
		Category: "network",
		Action:   "接続状態を確認して再読み込みしてください。",
	}
}

// NewAdminUnauthorizedError は管理者トークンの認可失敗エラーを生成する。
// このエラーを受けた呼び出し元は管理者セッションを即座に破棄する。
func NewAdminUnauthorizedError(status int) *ClientError {
	return &ClientError{
		Code:     ErrCodeAdminUnauthorized,
		Message:  fmt.Sprintf("管理者トークンが拒否されました (HTTP %d)", status),
		Category: "admin",
		Action:   "管理者トークンを再入力してください。",
	}
}

// NewOTPVerifyFailedError はワンタイムコード検証失敗エラーを生成する。
// 検証は無制限に再試行できる。
func NewOTPVerifyFailedError(reason string) *ClientError {
	if reason == "" {
		reason = "コードが一致しません"
	}
	return &ClientError{
		Code:     ErrCodeOTPVerifyFailed,
		Message:  reason,
		Category: "auth",
		Action:   "コードを確認して再入力するか、再送してください。",
	}
}

// NewSaveFailedError は保存操作の失敗エラーを生成する。
// ローカルミラーはサーバー確認後にのみ更新されるため、状態は変化しない。
func NewSaveFailedError(eventID int64, cause error) *ClientError {
	return &ClientError{
		Code:     ErrCodeSaveFailed,
		Message:  fmt.Sprintf("イベント %d の保存操作に失敗しました: %v", eventID, cause),
		Category: "save",
		Action:   "時間をおいて再度お試しください。",
	}
}

// NewInvalidCategoryError は無効なカテゴリエラーを生成する。
func NewInvalidCategoryError(raw string) *ClientError {
	return &ClientError{
		Code:     ErrCodeInvalidCategory,
		Message:  fmt.Sprintf("無効なカテゴリです: %s", raw),
		Category: "validation",
		Action:   "カテゴリには running、artsAndCulture、music、foodAndDrink、community、other のいずれかを指定してください。",
	}
}

// NewNotAuthenticatedError は未認証での認証必須操作エラーを生成する。
func NewNotAuthenticatedError() *ClientError {
	return &ClientError{
		Code:     ErrCodeNotAuthenticated,
		Message:  "この操作にはログインが必要です",
		Category: "auth",
		Action:   "メールアドレスでログインしてください。",
	}
}
