// Package offline はネットワーク境界で動作するオフラインキャッシュワーカーを
// 提供する。バージョントークンで命名された単一のキャッシュ世代を維持し、
// オフライン時には最後に取得できたペイロードを返す。
//
// ワーカーはページ側のメモリ状態（フィルタや保存状態）を一切参照しない。
// ページとの協調はURLキーのキャッシュストレージのみを介して行われる。
package offline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CachedResponse はキャッシュされた1応答を表す。
type CachedResponse struct {
	Body        []byte    `json:"body"`
	ContentType string    `json:"content_type"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Store は世代別・URLキーのキャッシュストレージのインターフェース。
// テストではインメモリ実装を注入する。
type Store interface {
	// Get は指定世代からURLキーの応答を取得する。ミスの場合はnilを返す。
	Get(ctx context.Context, generation, url string) (*CachedResponse, error)
	// Put は指定世代へURLキーの応答を書き込む。
	Put(ctx context.Context, generation, url string, resp *CachedResponse) error
	// Generations は存在する世代名の一覧を返す。
	Generations(ctx context.Context) ([]string, error)
	// DeleteGeneration は世代を丸ごと削除する。
	DeleteGeneration(ctx context.Context, generation string) error
}

// MemoryStore はStoreのインメモリ実装。テスト用。
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]*CachedResponse // generation → url → response
}

// NewMemoryStore は空のMemoryStoreを生成する。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]*CachedResponse)}
}

// Get は指定世代からURLキーの応答を取得する。
func (m *MemoryStore) Get(_ context.Context, generation, url string) (*CachedResponse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	gen, ok := m.data[generation]
	if !ok {
		return nil, nil
	}
	return gen[url], nil
}

// Put は指定世代へURLキーの応答を書き込む。
func (m *MemoryStore) Put(_ context.Context, generation, url string, resp *CachedResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[generation] == nil {
		m.data[generation] = make(map[string]*CachedResponse)
	}
	m.data[generation][url] = resp
	return nil
}

// Generations は存在する世代名の一覧を返す。
func (m *MemoryStore) Generations(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.data))
	for g := range m.data {
		out = append(out, g)
	}
	return out, nil
}

// DeleteGeneration は世代を丸ごと削除する。
func (m *MemoryStore) DeleteGeneration(_ context.Context, generation string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, generation)
	return nil
}

// FileStore はStoreのファイル実装。
// 世代ごとのディレクトリ配下に、URLのSHA-256をファイル名としてJSONで保存する。
type FileStore struct {
	root string
}

// NewFileStore はrootDir配下にキャッシュを置くFileStoreを生成する。
func NewFileStore(rootDir string) (*FileStore, error) {
	if err := os.MkdirAll(rootDir, 0o700); err != nil {
		return nil, fmt.Errorf("キャッシュディレクトリの作成に失敗しました: %w", err)
	}
	return &FileStore{root: rootDir}, nil
}

// Get は指定世代からURLキーの応答を取得する。
func (f *FileStore) Get(_ context.Context, generation, url string) (*CachedResponse, error) {
	raw, err := os.ReadFile(f.entryPath(generation, url))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("キャッシュエントリの読み込みに失敗しました: %w", err)
	}
	var resp CachedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		// 壊れたエントリはミスとして扱う
		return nil, nil
	}
	return &resp, nil
}

// Put は指定世代へURLキーの応答を書き込む。
func (f *FileStore) Put(_ context.Context, generation, url string, resp *CachedResponse) error {
	dir := filepath.Join(f.root, generation)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("世代ディレクトリの作成に失敗しました: %w", err)
	}
	encoded, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("キャッシュエントリのエンコードに失敗しました: %w", err)
	}
	path := f.entryPath(generation, url)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o600); err != nil {
		return fmt.Errorf("キャッシュエントリの書き込みに失敗しました: %w", err)
	}
	return os.Rename(tmp, path)
}

// Generations は存在する世代名の一覧を返す。
func (f *FileStore) Generations(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("キャッシュディレクトリの読み取りに失敗しました: %w", err)
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// DeleteGeneration は世代を丸ごと削除する。
func (f *FileStore) DeleteGeneration(_ context.Context, generation string) error {
	return os.RemoveAll(filepath.Join(f.root, generation))
}

// entryPath はURLキーに対応するエントリのファイルパスを返す。
func (f *FileStore) entryPath(generation, url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(f.root, generation, hex.EncodeToString(sum[:]))
}
