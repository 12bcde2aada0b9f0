// Package localdata は端末ローカルの永続状態を提供する。
// 匿名ブックマークのIDセットとデバイスIDをJSONファイル1枚に保持する。
// サーバー側ストレージとは独立しており、ログイン遷移時の移行処理からのみ
// サーバー側へ合流する。
package localdata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// fileName は状態ファイルの名前。DATA_DIR直下に置かれる。
const fileName = "state.json"

// fileData は状態ファイルのJSON表現。
type fileData struct {
	DeviceID  string  `json:"device_id"`
	Bookmarks []int64 `json:"bookmarks"`
}

// Store は端末ローカル状態のファイルストア。
// 書き込みは一時ファイル+renameで原子的に行う。
type Store struct {
	mu   sync.Mutex
	path string
	data fileData
}

// Open はDATA_DIR配下の状態ファイルを読み込んでStoreを生成する。
// ファイルが存在しない場合は新しいデバイスIDで初期化する。
// 壊れたファイルは初期状態として扱う（端末ローカル状態の破損は非致命）。
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("データディレクトリの作成に失敗しました: %w", err)
	}

	s := &Store{path: filepath.Join(dataDir, fileName)}

	raw, err := os.ReadFile(s.path)
	if err == nil {
		if jsonErr := json.Unmarshal(raw, &s.data); jsonErr != nil {
			s.data = fileData{}
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("状態ファイルの読み込みに失敗しました: %w", err)
	}

	if s.data.DeviceID == "" {
		s.data.DeviceID = uuid.New().String()
		if err := s.flushLocked(); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// DeviceID はこの端末の匿名識別子を返す。
func (s *Store) DeviceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DeviceID
}

// Bookmarks はブックマークIDセットのコピーを返す。
func (s *Store) Bookmarks() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, len(s.data.Bookmarks))
	copy(out, s.data.Bookmarks)
	return out
}

// SetBookmarks はブックマークIDセットを置き換えて永続化する。
func (s *Store) SetBookmarks(ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Bookmarks = append([]int64(nil), ids...)
	return s.flushLocked()
}

// flushLocked は状態を一時ファイルへ書き出してrenameする。muを保持して呼ぶこと。
func (s *Store) flushLocked() error {
	encoded, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("状態のエンコードに失敗しました: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, encoded, 0o600); err != nil {
		return fmt.Errorf("状態ファイルの書き込みに失敗しました: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("状態ファイルの置き換えに失敗しました: %w", err)
	}
	return nil
}
