// Package saves は匿名ブックマークと認証済み保存の二層を整合させる
// 保存状態リコンサイラを提供する。
//
// 状態遷移は純粋なリデューサ（State + Action → State）として定義し、
// I/Oを行うエフェクト層（Reconciler）と分離する。これによりネットワークなしで
// 決定的な状態遷移テストができる。
package saves

// State は保存状態の不変スナップショットを表す。
// どちらの層が権威かは現在のアイデンティティ状態のみで決まる:
// 匿名→Bookmarks、認証済み→Saves。常に一方のみが権威である。
type State struct {
	Authenticated bool
	Bookmarks     map[int64]struct{} // 匿名層: 端末ローカル、順序なし
	Saves         map[int64]struct{} // 認証層: サーバー所有ミラー、順序なし
}

// NewState は空の匿名状態を返す。
func NewState() State {
	return State{
		Bookmarks: map[int64]struct{}{},
		Saves:     map[int64]struct{}{},
	}
}

// Action は保存状態への遷移入力を表す。
// エフェクト層がサーバー確認の結果を対応するActionへ変換して
// リデューサに還元する。
type Action interface {
	isAction()
}

// BookmarkToggled は匿名ブックマークのローカルトグルを表す。
// 楽観的に適用される（失敗しえない）。
type BookmarkToggled struct {
	EventID int64
}

// SaveConfirmed はサーバーが保存の追加/削除を確認したことを表す。
// ミラーはサーバー確認後にのみ更新される（楽観的更新はしない）。
type SaveConfirmed struct {
	EventID int64
	Saved   bool
}

// ServerSetLoaded はサーバー側保存セットの読み込み完了を表す。
// ミラーを与えられたセットで総入れ替えする。
type ServerSetLoaded struct {
	EventIDs []int64
}

// Authenticated は認証成立を表す。権威層がSavesに切り替わる。
type Authenticated struct{}

// MigrationConfirmed はブックマーク一括移行の全量確認を表す。
// 確認が取れた場合にのみ匿名セットをクリアする。
// 部分的な失敗時にはこのActionは発行されず、未確認IDは保持される。
type MigrationConfirmed struct {
	ServerSet []int64 // 移行後のサーバー側保存セット全体
}

// LoggedOut はログアウトを表す。ミラーを破棄し匿名層へ戻る。
type LoggedOut struct{}

func (BookmarkToggled) isAction()    {}
func (SaveConfirmed) isAction()      {}
func (ServerSetLoaded) isAction()    {}
func (Authenticated) isAction()      {}
func (MigrationConfirmed) isAction() {}
func (LoggedOut) isAction()          {}

// Reduce は状態とActionから次の状態を導出する純関数。
// 入力のStateは変更せず、新しいStateを返す。
func Reduce(s State, a Action) State {
	next := clone(s)

	switch act := a.(type) {
	case BookmarkToggled:
		if _, ok := next.Bookmarks[act.EventID]; ok {
			delete(next.Bookmarks, act.EventID)
		} else {
			next.Bookmarks[act.EventID] = struct{}{}
		}

	case SaveConfirmed:
		if act.Saved {
			next.Saves[act.EventID] = struct{}{}
		} else {
			delete(next.Saves, act.EventID)
		}

	case ServerSetLoaded:
		next.Saves = toSet(act.EventIDs)

	case Authenticated:
		next.Authenticated = true

	case MigrationConfirmed:
		next.Saves = toSet(act.ServerSet)
		next.Bookmarks = map[int64]struct{}{}

	case LoggedOut:
		next.Authenticated = false
		next.Saves = map[int64]struct{}{}
	}

	return next
}

// ActiveSet は現在の権威層のIDセットを返す。
func (s State) ActiveSet() map[int64]struct{} {
	if s.Authenticated {
		return s.Saves
	}
	return s.Bookmarks
}

// Contains は指定IDが現在の権威層に含まれるかを返す。
func (s State) Contains(eventID int64) bool {
	_, ok := s.ActiveSet()[eventID]
	return ok
}

func clone(s State) State {
	return State{
		Authenticated: s.Authenticated,
		Bookmarks:     cloneSet(s.Bookmarks),
		Saves:         cloneSet(s.Saves),
	}
}

func cloneSet(src map[int64]struct{}) map[int64]struct{} {
	dst := make(map[int64]struct{}, len(src))
	for k := range src {
		dst[k] = struct{}{}
	}
	return dst
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
