package saves

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/hitoshi/phillycal/internal/model"
)

// SaveAPI はリコンサイラが必要とするサーバー保存セット操作のインターフェース。
// api.Clientの部分集合として定義する。
type SaveAPI interface {
	// ListSaves はサーバー側保存セットを取得する。
	ListSaves(ctx context.Context) ([]int64, error)
	// AddSaves は保存セットへIDを冪等に一括追加し、操作後のセット全体を返す。
	AddSaves(ctx context.Context, ids []int64) ([]int64, error)
	// DeleteSave は保存セットからIDを除去する。
	DeleteSave(ctx context.Context, id int64) error
}

// BookmarkStore は匿名ブックマークの端末ローカル永続化インターフェース。
// localdata.Storeの部分集合として定義する。
type BookmarkStore interface {
	Bookmarks() []int64
	SetBookmarks(ids []int64) error
}

// Reconciler は保存状態のエフェクト層。
// リデューサへのAction発行と、その前後のサーバーI/O・ローカル永続化を担う。
//
// 権威層は現在のアイデンティティ状態のみで選択される:
// 匿名ならブックマークセット、認証済みならサーバー保存セット。
type Reconciler struct {
	mu       sync.RWMutex
	state    State
	apiSaves SaveAPI
	local    BookmarkStore
	logger   *slog.Logger
}

// NewReconciler はReconcilerを生成し、端末ローカルのブックマークを読み込む。
func NewReconciler(apiSaves SaveAPI, local BookmarkStore, logger *slog.Logger) *Reconciler {
	state := NewState()
	state.Saves = map[int64]struct{}{}
	state.Bookmarks = toSet(local.Bookmarks())
	return &Reconciler{
		state:    state,
		apiSaves: apiSaves,
		local:    local,
		logger:   logger,
	}
}

// Snapshot は現在の保存状態のコピーを返す。
func (r *Reconciler) Snapshot() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return clone(r.state)
}

// ActiveIDs は現在の権威層のIDを昇順で返す。
func (r *Reconciler) ActiveIDs() []int64 {
	snap := r.Snapshot()
	ids := make([]int64, 0, len(snap.ActiveSet()))
	for id := range snap.ActiveSet() {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// IsSaved は指定IDが現在の権威層に含まれるかを返す。
func (r *Reconciler) IsSaved(eventID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Contains(eventID)
}

// ToggleSave は保存状態をトグルする。
//
// 認証済みの場合はサーバーへ追加/削除を発行し、サーバー確認後にのみ
// ローカルミラーを更新する（楽観的更新はしない）。失敗時は状態を変えずに
// エラーを返す。
// 匿名の場合はブックマークトグルに委譲する。これは純ローカルで楽観的であり、
// 失敗しえない。
// 戻り値はトグル後に保存されているかどうか。
func (r *Reconciler) ToggleSave(ctx context.Context, eventID int64) (bool, error) {
	r.mu.RLock()
	authed := r.state.Authenticated
	saved := r.state.Contains(eventID)
	r.mu.RUnlock()

	if !authed {
		return r.toggleBookmark(eventID), nil
	}

	if saved {
		if err := r.apiSaves.DeleteSave(ctx, eventID); err != nil {
			return true, model.NewSaveFailedError(eventID, err)
		}
		r.apply(SaveConfirmed{EventID: eventID, Saved: false})
		return false, nil
	}

	if _, err := r.apiSaves.AddSaves(ctx, []int64{eventID}); err != nil {
		return false, model.NewSaveFailedError(eventID, err)
	}
	r.apply(SaveConfirmed{EventID: eventID, Saved: true})
	return true, nil
}

// toggleBookmark は匿名ブックマークをローカルでトグルする。
// ディスクへの永続化失敗は警告ログのみで、メモリ上のトグルは成立する。
func (r *Reconciler) toggleBookmark(eventID int64) bool {
	r.apply(BookmarkToggled{EventID: eventID})

	r.mu.RLock()
	saved := r.state.Contains(eventID)
	r.mu.RUnlock()

	if err := r.persistBookmarks(); err != nil {
		r.logger.Warn("ブックマークの永続化に失敗しました",
			slog.Int64("event_id", eventID),
			slog.String("error", err.Error()),
		)
	}
	return saved
}

// OnAuthenticated は認証成立時の処理を行う。
// サーバー側保存セットを読み込んだ後、匿名ブックマークを移行する。
// 保存セットの読み込み失敗は移行を中断する（ブックマークは保持される）。
func (r *Reconciler) OnAuthenticated(ctx context.Context) error {
	r.apply(Authenticated{})

	ids, err := r.apiSaves.ListSaves(ctx)
	if err != nil {
		return fmt.Errorf("サーバー保存セットの読み込みに失敗しました: %w", err)
	}
	r.apply(ServerSetLoaded{EventIDs: ids})

	return r.MigrateBookmarks(ctx)
}

// MigrateBookmarks は匿名ブックマークセットをサーバー保存セットへ移行する。
//
// 2段階プロトコル:
//  1. ブックマーク全IDを1回の冪等な一括リクエストとして送信する
//  2. 全量確認が取れた場合にのみローカルの匿名セットをクリアする
//
// 一括リクエストが失敗した場合、未確認IDはローカルに保持され、次回の
// 認証時や明示的な再試行で再送される。既にサーバー保存セットに存在する
// IDを再移行しても重複は生じない（サーバー側で冪等）。
func (r *Reconciler) MigrateBookmarks(ctx context.Context) error {
	r.mu.RLock()
	pending := make([]int64, 0, len(r.state.Bookmarks))
	for id := range r.state.Bookmarks {
		pending = append(pending, id)
	}
	r.mu.RUnlock()

	if len(pending) == 0 {
		return nil
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })

	serverSet, err := r.apiSaves.AddSaves(ctx, pending)
	if err != nil {
		r.logger.Warn("ブックマーク移行の一括送信に失敗しました。未確認IDを保持します",
			slog.Int("pending_count", len(pending)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("ブックマーク移行に失敗しました: %w", err)
	}

	r.apply(MigrationConfirmed{ServerSet: serverSet})

	if err := r.persistBookmarks(); err != nil {
		r.logger.Warn("移行後のブックマーククリアの永続化に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	r.logger.Info("ブックマークをサーバー保存セットへ移行しました",
		slog.Int("migrated_count", len(pending)),
		slog.Int("server_set_size", len(serverSet)),
	)
	return nil
}

// OnLoggedOut はログアウト時の処理を行う。
// サーバーミラーを破棄し、匿名層へ戻る。
func (r *Reconciler) OnLoggedOut() {
	r.apply(LoggedOut{})
}

// apply はActionをリデューサに還元して状態を進める。
func (r *Reconciler) apply(a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = Reduce(r.state, a)
}

// persistBookmarks は現在のブックマークセットを端末ローカルへ書き出す。
func (r *Reconciler) persistBookmarks() error {
	r.mu.RLock()
	ids := make([]int64, 0, len(r.state.Bookmarks))
	for id := range r.state.Bookmarks {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return r.local.SetBookmarks(ids)
}
