// Package model はドメインモデルを定義する。
package model

// User は認証済みのサービス利用ユーザーを表す。
// セッションCookieはサーバーが管理するため、クライアント側は
// /auth/me の応答から得たユーザー情報のみを保持する。
type User struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}

// SessionState はユーザーセッションの状態機械における状態を表す。
//
// 遷移: ANONYMOUS → (コード要求) → CODE_SENT → (検証成功) → AUTHENTICATED
// → (ログアウト) → ANONYMOUS。
// CODE_SENTからの再送はCODE_SENTに再入し、新コードが旧コードを無効化する。
// 検証失敗はCODE_SENTに留まる（試行回数の上限はサーバー側の責務）。
type SessionState string

const (
	// SessionAnonymous は未認証状態。
	SessionAnonymous SessionState = "anonymous"
	// SessionCodeSent はワンタイムコード送信済みで検証待ちの状態。
	SessionCodeSent SessionState = "code_sent"
	// SessionAuthenticated は認証済み状態。
	SessionAuthenticated SessionState = "authenticated"
)
