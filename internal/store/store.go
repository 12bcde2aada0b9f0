// Package store はクライアント状態のうちイベント一覧と派生フィルタ選択肢、
// および現在のフィルタ値を所有する明示的な状態オブジェクトを提供する。
//
// グローバル変数は持たない。状態はStoreインスタンスに閉じ、フィルタリングや
// グルーピングは純関数（filter.Apply / calendar.GroupByDay）に状態を渡して行う。
package store

import (
	"sort"
	"sync"

	"github.com/hitoshi/phillycal/internal/filter"
	"github.com/hitoshi/phillycal/internal/model"
)

// Store はフェッチ済みイベント一覧と派生選択肢、現在のフィルタ値を保持する。
//
// イベント一覧はフェッチごとに総入れ替えされる（増分マージはしない）。
// 定期リフレッシュと手動リフレッシュが重なった場合、後に解決した応答が
// 先の応答を上書きする（リクエスト開始順とは無関係）。ロックはメモリ安全の
// ためだけに存在し、順序は保証しない。
type Store struct {
	mu      sync.RWMutex
	events  []model.Event
	months  []string // 派生: 重複排除済みの"YYYY-MM"昇順
	sources []string // 派生: 重複排除済みの非空ソース名昇順
	filters filter.Filters
}

// New は空のStoreを生成する。フィルタは全軸とも未選択（"all"相当）で初期化される。
func New() *Store {
	return &Store{
		filters: filter.Default(),
	}
}

// Replace はイベント一覧を総入れ替えし、派生選択肢を再計算する。
// ソース選択は"all"にリセットされる。他のフィルタ軸は維持される。
func (s *Store) Replace(events []model.Event) {
	months := deriveMonths(events)
	sources := deriveSources(events)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
	s.months = months
	s.sources = sources
	s.filters.Source = filter.All
}

// Snapshot は現在のイベント一覧のコピーを取得順のまま返す。
func (s *Store) Snapshot() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Months は派生済みの月選択肢（"YYYY-MM"昇順）を返す。
func (s *Store) Months() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.months))
	copy(out, s.months)
	return out
}

// Sources は派生済みのソース選択肢（昇順）を返す。
func (s *Store) Sources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.sources))
	copy(out, s.sources)
	return out
}

// Filters は現在のフィルタ値を返す。
func (s *Store) Filters() filter.Filters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters
}

// SetFilters はフィルタ値を置き換える。
// フィルタ値はフェッチをまたいで維持され、明示的な変更・クリアでのみ変わる
// （例外はReplaceによるソース選択のリセット）。
func (s *Store) SetFilters(f filter.Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = f
}

// ClearFilters は全フィルタ軸を未選択に戻す。
func (s *Store) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = filter.Default()
}

// Filtered は現在のフィルタ値を適用したイベント一覧を返す。
// 出力はStoreの取得順を保存する（ソートしない）。
func (s *Store) Filtered() []model.Event {
	s.mu.RLock()
	events := s.events
	f := s.filters
	s.mu.RUnlock()
	return filter.Apply(events, f)
}

// deriveMonths はイベント一覧から重複排除済みの月キー一覧を昇順で導出する。
func deriveMonths(events []model.Event) []string {
	seen := make(map[string]struct{})
	for _, e := range events {
		seen[filter.EventMonthKey(e)] = struct{}{}
	}
	months := make([]string, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Strings(months)
	return months
}

// deriveSources はイベント一覧から重複排除済みの非空ソース名一覧を昇順で導出する。
func deriveSources(events []model.Event) []string {
	seen := make(map[string]struct{})
	for _, e := range events {
		if e.Source == "" {
			continue
		}
		seen[e.Source] = struct{}{}
	}
	sources := make([]string, 0, len(seen))
	for src := range seen {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	return sources
}
