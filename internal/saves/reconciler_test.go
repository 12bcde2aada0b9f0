package saves

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

// --- テスト用モック ---

// mockSaveAPI はSaveAPIのモック。
type mockSaveAPI struct {
	listSavesFn  func(ctx context.Context) ([]int64, error)
	addSavesFn   func(ctx context.Context, ids []int64) ([]int64, error)
	deleteSaveFn func(ctx context.Context, id int64) error

	addCalls [][]int64
}

func (m *mockSaveAPI) ListSaves(ctx context.Context) ([]int64, error) {
	if m.listSavesFn != nil {
		return m.listSavesFn(ctx)
	}
	return nil, nil
}

func (m *mockSaveAPI) AddSaves(ctx context.Context, ids []int64) ([]int64, error) {
	m.addCalls = append(m.addCalls, append([]int64(nil), ids...))
	if m.addSavesFn != nil {
		return m.addSavesFn(ctx, ids)
	}
	return ids, nil
}

func (m *mockSaveAPI) DeleteSave(ctx context.Context, id int64) error {
	if m.deleteSaveFn != nil {
		return m.deleteSaveFn(ctx, id)
	}
	return nil
}

// mockBookmarkStore はBookmarkStoreのインメモリモック。
type mockBookmarkStore struct {
	ids       []int64
	setFn     func(ids []int64) error
	setCalled int
}

func (m *mockBookmarkStore) Bookmarks() []int64 {
	return append([]int64(nil), m.ids...)
}

func (m *mockBookmarkStore) SetBookmarks(ids []int64) error {
	m.setCalled++
	if m.setFn != nil {
		return m.setFn(ids)
	}
	m.ids = append([]int64(nil), ids...)
	return nil
}

var _ SaveAPI = (*mockSaveAPI)(nil)
var _ BookmarkStore = (*mockBookmarkStore)(nil)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestReconciler_LoadsLocalBookmarksOnStartup は起動時に端末ローカルの
// ブックマークが読み込まれることをテストする。
func TestReconciler_LoadsLocalBookmarksOnStartup(t *testing.T) {
	local := &mockBookmarkStore{ids: []int64{3, 1}}
	r := NewReconciler(&mockSaveAPI{}, local, testLogger())

	got := r.ActiveIDs()
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("ActiveIDs = %v, want [1 3]", got)
	}
}

// TestReconciler_ToggleSave_AnonymousIsOptimistic は匿名トグルが純ローカルで
// 即座に成立し、永続化されることをテストする。
func TestReconciler_ToggleSave_AnonymousIsOptimistic(t *testing.T) {
	local := &mockBookmarkStore{}
	api := &mockSaveAPI{
		addSavesFn: func(ctx context.Context, ids []int64) ([]int64, error) {
			t.Error("anonymous toggle must not reach the server")
			return nil, nil
		},
	}
	r := NewReconciler(api, local, testLogger())

	saved, err := r.ToggleSave(context.Background(), 42)
	if err != nil {
		t.Fatalf("ToggleSave returned error: %v", err)
	}
	if !saved {
		t.Error("expected saved = true after toggle on")
	}
	if len(local.ids) != 1 || local.ids[0] != 42 {
		t.Errorf("persisted bookmarks = %v, want [42]", local.ids)
	}

	saved, err = r.ToggleSave(context.Background(), 42)
	if err != nil {
		t.Fatalf("ToggleSave returned error: %v", err)
	}
	if saved {
		t.Error("expected saved = false after toggle off")
	}
	if len(local.ids) != 0 {
		t.Errorf("persisted bookmarks = %v, want []", local.ids)
	}
}

// TestReconciler_ToggleSave_AnonymousSurvivesPersistFailure はディスク書き込み
// 失敗でもメモリ上のトグルが成立することをテストする。
func TestReconciler_ToggleSave_AnonymousSurvivesPersistFailure(t *testing.T) {
	local := &mockBookmarkStore{
		setFn: func(ids []int64) error { return errors.New("disk full") },
	}
	r := NewReconciler(&mockSaveAPI{}, local, testLogger())

	saved, err := r.ToggleSave(context.Background(), 7)
	if err != nil {
		t.Fatalf("ToggleSave returned error: %v", err)
	}
	if !saved || !r.IsSaved(7) {
		t.Error("in-memory toggle must succeed even when persistence fails")
	}
}

// TestReconciler_ToggleSave_AuthenticatedConfirmsBeforeMirror は認証済みトグルが
// サーバー確認後にのみミラーを更新することをテストする。
func TestReconciler_ToggleSave_AuthenticatedConfirmsBeforeMirror(t *testing.T) {
	api := &mockSaveAPI{}
	mirrorAtCall := false
	r := NewReconciler(api, &mockBookmarkStore{}, testLogger())
	api.addSavesFn = func(ctx context.Context, ids []int64) ([]int64, error) {
		// サーバー呼び出し時点ではミラーは未更新でなければならない
		mirrorAtCall = r.IsSaved(9)
		return ids, nil
	}

	if err := r.OnAuthenticated(context.Background()); err != nil {
		t.Fatalf("OnAuthenticated returned error: %v", err)
	}

	saved, err := r.ToggleSave(context.Background(), 9)
	if err != nil {
		t.Fatalf("ToggleSave returned error: %v", err)
	}
	if mirrorAtCall {
		t.Error("mirror must not be updated before server confirmation")
	}
	if !saved || !r.IsSaved(9) {
		t.Error("mirror must be updated after server confirmation")
	}
}

// TestReconciler_ToggleSave_AuthenticatedFailureLeavesStateUnchanged は
// サーバー失敗時に状態が変化せずエラーが返されることをテストする。
func TestReconciler_ToggleSave_AuthenticatedFailureLeavesStateUnchanged(t *testing.T) {
	api := &mockSaveAPI{
		addSavesFn: func(ctx context.Context, ids []int64) ([]int64, error) {
			return nil, errors.New("backend down")
		},
	}
	r := NewReconciler(api, &mockBookmarkStore{}, testLogger())
	if err := r.OnAuthenticated(context.Background()); err != nil {
		t.Fatalf("OnAuthenticated returned error: %v", err)
	}

	saved, err := r.ToggleSave(context.Background(), 9)
	if err == nil {
		t.Fatal("expected error from failed server toggle")
	}
	if saved || r.IsSaved(9) {
		t.Error("state must not change when server rejects the toggle")
	}
}

// TestReconciler_OnAuthenticated_LoadsServerSetAndMigrates は認証成立時に
// サーバー保存セットの読み込みとブックマーク移行が行われることをテストする。
func TestReconciler_OnAuthenticated_LoadsServerSetAndMigrates(t *testing.T) {
	local := &mockBookmarkStore{ids: []int64{10, 20}}
	api := &mockSaveAPI{
		listSavesFn: func(ctx context.Context) ([]int64, error) {
			return []int64{5}, nil
		},
		addSavesFn: func(ctx context.Context, ids []int64) ([]int64, error) {
			// 冪等マージ後のセット全体を返す
			return []int64{5, 10, 20}, nil
		},
	}
	r := NewReconciler(api, local, testLogger())

	if err := r.OnAuthenticated(context.Background()); err != nil {
		t.Fatalf("OnAuthenticated returned error: %v", err)
	}

	if len(api.addCalls) != 1 {
		t.Fatalf("AddSaves calls = %d, want 1 (single idempotent batch)", len(api.addCalls))
	}
	batch := api.addCalls[0]
	if len(batch) != 2 || batch[0] != 10 || batch[1] != 20 {
		t.Errorf("batch = %v, want [10 20]", batch)
	}

	got := r.ActiveIDs()
	want := []int64{5, 10, 20}
	if len(got) != len(want) {
		t.Fatalf("ActiveIDs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ActiveIDs[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	// ローカルのブックマークは全量確認後にクリアされている
	if len(local.ids) != 0 {
		t.Errorf("local bookmarks = %v, want [] after confirmed migration", local.ids)
	}
}

// TestReconciler_MigrateBookmarks_FailureRetainsPending は一括送信の失敗時に
// 未確認IDがローカルに保持され、再試行が可能なことをテストする。
func TestReconciler_MigrateBookmarks_FailureRetainsPending(t *testing.T) {
	local := &mockBookmarkStore{ids: []int64{1, 2}}
	failing := true
	api := &mockSaveAPI{
		addSavesFn: func(ctx context.Context, ids []int64) ([]int64, error) {
			if failing {
				return nil, errors.New("network down")
			}
			return ids, nil
		},
	}
	r := NewReconciler(api, local, testLogger())
	r.apply(Authenticated{})

	if err := r.MigrateBookmarks(context.Background()); err == nil {
		t.Fatal("expected migration failure")
	}

	// ブックマークは保持されたまま
	snap := r.Snapshot()
	if len(snap.Bookmarks) != 2 {
		t.Errorf("bookmarks = %d entries, want 2 (pending must be retained)", len(snap.Bookmarks))
	}

	// 再試行で同じバッチが再送され、今度は成功する
	failing = false
	if err := r.MigrateBookmarks(context.Background()); err != nil {
		t.Fatalf("retry returned error: %v", err)
	}
	if len(api.addCalls) != 2 {
		t.Fatalf("AddSaves calls = %d, want 2", len(api.addCalls))
	}
	if len(api.addCalls[0]) != 2 || len(api.addCalls[1]) != 2 {
		t.Errorf("both batches must carry the full pending set: %v", api.addCalls)
	}
	if snap := r.Snapshot(); len(snap.Bookmarks) != 0 {
		t.Errorf("bookmarks = %d entries, want 0 after confirmed retry", len(snap.Bookmarks))
	}
}

// TestReconciler_MigrateBookmarks_EmptyIsNoop は移行対象がない場合に
// サーバーへ一切リクエストしないことをテストする。
func TestReconciler_MigrateBookmarks_EmptyIsNoop(t *testing.T) {
	api := &mockSaveAPI{}
	r := NewReconciler(api, &mockBookmarkStore{}, testLogger())
	r.apply(Authenticated{})

	if err := r.MigrateBookmarks(context.Background()); err != nil {
		t.Fatalf("MigrateBookmarks returned error: %v", err)
	}
	if len(api.addCalls) != 0 {
		t.Errorf("AddSaves calls = %d, want 0", len(api.addCalls))
	}
}

// TestReconciler_OnLoggedOut はログアウトでミラーが破棄され匿名層へ戻る
// ことをテストする。
func TestReconciler_OnLoggedOut(t *testing.T) {
	api := &mockSaveAPI{
		listSavesFn: func(ctx context.Context) ([]int64, error) {
			return []int64{5}, nil
		},
	}
	r := NewReconciler(api, &mockBookmarkStore{}, testLogger())
	if err := r.OnAuthenticated(context.Background()); err != nil {
		t.Fatalf("OnAuthenticated returned error: %v", err)
	}
	if !r.IsSaved(5) {
		t.Fatal("expected server save visible while authenticated")
	}

	r.OnLoggedOut()

	if r.IsSaved(5) {
		t.Error("server mirror must be discarded on logout")
	}
	snap := r.Snapshot()
	if snap.Authenticated {
		t.Error("expected anonymous state after logout")
	}
}
