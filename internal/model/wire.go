// Package model はドメインモデルを定義する。
package model

// WireEvent はバックエンドAPIのJSON表現におけるイベントを表す。
// タイムスタンプ欄は2種類のワイヤ表現（ISO風文字列と疑似RFC-2822文字列）の
// いずれかを取りうるため、文字列のまま保持しlocaldateパッケージで解釈する。
type WireEvent struct {
	ID                   int64  `json:"id"`
	Title                string `json:"title"`
	Description          string `json:"description"`
	StartDate            string `json:"start_date"`
	EndDate              string `json:"end_date"`
	Location             string `json:"location"`
	Category             string `json:"category"`
	Price                string `json:"price"`
	Source               string `json:"source"`
	SourceURL            string `json:"source_url"`
	RegistrationDeadline string `json:"registration_deadline,omitempty"`
}

// EventsResponse は GET /events/upcoming の応答。
type EventsResponse struct {
	Success bool        `json:"success"`
	Events  []WireEvent `json:"events"`
	Error   string      `json:"error,omitempty"`
}

// Stats はイベント統計を表す。
type Stats struct {
	TotalEvents    int `json:"total_events"`
	UpcomingEvents int `json:"upcoming_events"`
}

// StatsResponse は GET /stats の応答。
type StatsResponse struct {
	Success bool   `json:"success"`
	Stats   Stats  `json:"stats"`
	Error   string `json:"error,omitempty"`
}

// MutationResponse は管理者の作成・更新・削除系エンドポイントの応答。
type MutationResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ScrapeResponse は POST /scrape の応答。
type ScrapeResponse struct {
	Success    bool   `json:"success"`
	TotalAdded int    `json:"total_added"`
	Error      string `json:"error,omitempty"`
}

// AuthMeResponse は GET /auth/me の応答。
type AuthMeResponse struct {
	LoggedIn bool  `json:"logged_in"`
	User     *User `json:"user,omitempty"`
}

// SendOTPRequest は POST /auth/send-otp のリクエストボディ。
type SendOTPRequest struct {
	Email string `json:"email"`
}

// VerifyOTPRequest は POST /auth/verify-otp のリクエストボディ。
type VerifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyOTPResponse は POST /auth/verify-otp の応答。
type VerifyOTPResponse struct {
	Success bool   `json:"success"`
	User    *User  `json:"user,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SavesResponse は GET|POST /profile/saves の応答。
// EventIDsには操作後のサーバー側保存セット全体が含まれる。
type SavesResponse struct {
	Success  bool    `json:"success"`
	EventIDs []int64 `json:"event_ids,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// SaveBatchRequest は POST /profile/saves のリクエストボディ。
// 保存セットへの冪等な一括追加を表す。既に保存済みのIDが含まれていても
// 重複は作成されない。
type SaveBatchRequest struct {
	EventIDs []int64 `json:"event_ids"`
}

// EventPayload は管理者のイベント作成・更新リクエストボディ。
type EventPayload struct {
	Title                string `json:"title"`
	Description          string `json:"description,omitempty"`
	StartDate            string `json:"start_date"`
	EndDate              string `json:"end_date,omitempty"`
	Location             string `json:"location"`
	Category             string `json:"category"`
	Price                string `json:"price,omitempty"`
	Source               string `json:"source,omitempty"`
	SourceURL            string `json:"source_url,omitempty"`
	RegistrationDeadline string `json:"registration_deadline,omitempty"`
}

// ToEvent はWireEventをドメインモデルに変換する。
// 未知のカテゴリはCategoryOtherに割り当て、第2戻り値でその旨を返す。
func (w WireEvent) ToEvent() (Event, bool) {
	cat, ok := ParseCategory(w.Category)
	if !ok {
		cat = CategoryOther
	}
	return Event{
		ID:                   w.ID,
		Title:                w.Title,
		Description:          w.Description,
		StartDate:            w.StartDate,
		EndDate:              w.EndDate,
		Location:             w.Location,
		Category:             cat,
		Price:                w.Price,
		Source:               w.Source,
		SourceURL:            w.SourceURL,
		RegistrationDeadline: w.RegistrationDeadline,
	}, ok
}
