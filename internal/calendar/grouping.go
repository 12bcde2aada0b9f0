// Package calendar はフィルタ済みイベント一覧をカレンダー日単位の
// バケットへ射影する純粋なグルーピング処理を提供する。
package calendar

import (
	"sort"
	"time"

	"github.com/hitoshi/phillycal/internal/localdate"
	"github.com/hitoshi/phillycal/internal/model"
)

// Entry はバケット内の1イベントの表示用射影を表す。
type Entry struct {
	Event     model.Event
	TimeLabel string // 整形済みローカル開始時刻。時分が00:00なら"Time TBD"
}

// DayGroup は1カレンダー日分のバケットを表す。
type DayGroup struct {
	Key     string // ローカル日付 "YYYY-MM-DD"
	IsToday bool   // 今日のローカル日付に一致するバケットに立つ
	Entries []Entry
}

// GroupByDay はイベント一覧を開始日のローカルカレンダー日でバケットに分割する。
//
// 性質:
//   - 分割である: 各イベントはちょうど1つのバケットに属する
//   - バケットは日キーの昇順に並ぶ
//   - バケット内はパイプラインの出力順（取得順）を維持する。時刻順ではない
//
// nowは「今日」フラグの判定に使用する。
func GroupByDay(events []model.Event, now time.Time) []DayGroup {
	buckets := make(map[string][]Entry)
	for _, e := range events {
		start := localdate.Parse(e.StartDate)
		key := localdate.DayKey(start)
		buckets[key] = append(buckets[key], Entry{
			Event:     e,
			TimeLabel: localdate.TimeLabel(start),
		})
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	todayKey := localdate.DayKey(now)

	groups := make([]DayGroup, 0, len(keys))
	for _, k := range keys {
		groups = append(groups, DayGroup{
			Key:     k,
			IsToday: k == todayKey,
			Entries: buckets[k],
		})
	}
	return groups
}
