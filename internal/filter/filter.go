// Package filter はイベント一覧に対する純粋な述語合成パイプラインを提供する。
//
// 5つの独立した軸（カテゴリ、月、ソース、地区、自由テキスト検索）を
// 論理ANDで合成する。Applyは入力順を保存し、状態を一切持たない。
package filter

import (
	"strings"

	"github.com/hitoshi/phillycal/internal/localdate"
	"github.com/hitoshi/phillycal/internal/model"
	"github.com/hitoshi/phillycal/internal/security"
)

// All は軸が未選択（全件通過）であることを表すセンチネル値。
const All = "all"

// Filters は5軸のフィルタ状態を表す。
// ゼロ値ではなくDefault()で初期化すること。
type Filters struct {
	Category     string // Category値の文字列表現または"all"
	Month        string // "YYYY-MM"または"all"
	Source       string // ソース名の完全一致または"all"
	Neighborhood string // 地区名または"all"
	Query        string // 自由テキスト検索。空なら無効
}

// Default は全軸未選択のフィルタ状態を返す。
func Default() Filters {
	return Filters{
		Category:     All,
		Month:        All,
		Source:       All,
		Neighborhood: All,
	}
}

// EventMonthKey はイベントの開始日から月キー（"YYYY-MM"）を導出する。
func EventMonthKey(e model.Event) string {
	return localdate.MonthKey(localdate.Parse(e.StartDate))
}

// Apply はフィルタ状態を適用したイベント一覧を返す。
// イベントは5つの述語すべてを独立に満たす場合にのみ残る。
// 出力は入力順を保存する（ソートしない）。
func Apply(events []model.Event, f Filters) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if Matches(e, f) {
			out = append(out, e)
		}
	}
	return out
}

// Matches はイベントが全述語の論理ANDを満たすかを判定する。
func Matches(e model.Event, f Filters) bool {
	return matchesCategory(e, f.Category) &&
		matchesMonth(e, f.Month) &&
		matchesSource(e, f.Source) &&
		matchesNeighborhood(e, f.Neighborhood) &&
		matchesQuery(e, f.Query)
}

// matchesCategory はカテゴリの等価一致を判定する。
func matchesCategory(e model.Event, category string) bool {
	if category == All || category == "" {
		return true
	}
	return string(e.Category) == category
}

// matchesMonth は開始日由来の月キーとの等価一致を判定する。
func matchesMonth(e model.Event, month string) bool {
	if month == All || month == "" {
		return true
	}
	return EventMonthKey(e) == month
}

// matchesSource はトリム済みソース名の完全一致を判定する。
func matchesSource(e model.Event, source string) bool {
	if source == All || source == "" {
		return true
	}
	return strings.TrimSpace(e.Source) == strings.TrimSpace(source)
}

// matchesNeighborhood は地区キーワードによる位置部分一致を判定する。
// 未知の地区名は対応表にエントリがないため、どのイベントにもマッチしない。
func matchesNeighborhood(e model.Event, name string) bool {
	if name == All || name == "" {
		return true
	}
	n, ok := LookupNeighborhood(name)
	if !ok {
		return false
	}
	return n.matches(e.Location)
}

// matchesQuery はタイトル・説明文・位置のいずれかに対する
// 大文字小文字を区別しない部分一致を判定する。
// 説明文はマークアップを除去したテキストに対して照合する。
func matchesQuery(e model.Event, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(e.Title), q) {
		return true
	}
	if strings.Contains(strings.ToLower(security.ExtractText(e.Description)), q) {
		return true
	}
	return strings.Contains(strings.ToLower(e.Location), q)
}
