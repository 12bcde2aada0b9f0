// Package model はドメインモデルを定義する。
package model

import "strings"

// Event はカレンダーに表示されるイベントを表す。
// スクレイピングまたは管理者の手動登録によりバックエンドで生成され、
// クライアントはREST API経由で取得する。
// IDは同一論理イベントの再取得をまたいで安定であることが保証される。
type Event struct {
	ID                   int64
	Title                string
	Description          string // 生マークアップを含む可能性がある（表示前にサニタイズ必須）
	StartDate            string // Eastern現地のwall-clock。ゾーン表記は信頼できない
	EndDate              string
	Location             string
	Category             Category
	Price                string
	Source               string
	SourceURL            string
	RegistrationDeadline string // 空の場合は締切なし
}

// Category はイベントカテゴリの閉じた列挙を表す。
type Category string

const (
	// CategoryRunning はランニング・スポーツ系イベント。
	CategoryRunning Category = "running"
	// CategoryArtsAndCulture はアート・文化系イベント。
	CategoryArtsAndCulture Category = "artsAndCulture"
	// CategoryMusic は音楽系イベント。
	CategoryMusic Category = "music"
	// CategoryFoodAndDrink は飲食系イベント。
	CategoryFoodAndDrink Category = "foodAndDrink"
	// CategoryCommunity はコミュニティ系イベント。
	CategoryCommunity Category = "community"
	// CategoryOther は上記いずれにも該当しないイベント。
	CategoryOther Category = "other"
)

// allCategories は有効なカテゴリの一覧。ParseCategoryの検証に使用する。
var allCategories = []Category{
	CategoryRunning,
	CategoryArtsAndCulture,
	CategoryMusic,
	CategoryFoodAndDrink,
	CategoryCommunity,
	CategoryOther,
}

// Categories は有効なカテゴリ一覧のコピーを返す。
func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

// ParseCategory は文字列をCategoryに検証付きで変換する。
// 未知の値の場合は第2戻り値がfalseになる（暗黙のデフォルトは行わない）。
// 大文字小文字は区別しない。
func ParseCategory(s string) (Category, bool) {
	for _, c := range allCategories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}
