// Package notify は一過性のユーザー向け通知を提供する。
// 変更系リクエストの失敗はここに積まれ、ページのエラー表示として排出される。
// どの失敗もプロセスを停止させず、発生させた操作の範囲に閉じる。
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// maxBuffered は保持する通知の上限。超過分は古いものから捨てる。
const maxBuffered = 50

// Level は通知の重要度を表す。
type Level string

const (
	// LevelInfo は情報通知。
	LevelInfo Level = "info"
	// LevelError はエラー通知。
	LevelError Level = "error"
)

// Notice は1件の一過性通知を表す。
type Notice struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Category  string    `json:"category"` // model.ClientErrorのカテゴリに対応
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Buffer は通知の有限バッファ。排出されるまで保持する。
type Buffer struct {
	mu      sync.Mutex
	notices []Notice
}

// NewBuffer は空のBufferを生成する。
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Push は通知を追加する。上限を超えた場合は最古の通知を捨てる。
func (b *Buffer) Push(level Level, category, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.notices = append(b.notices, Notice{
		ID:        uuid.New().String(),
		Level:     level,
		Category:  category,
		Message:   message,
		CreatedAt: time.Now(),
	})
	if len(b.notices) > maxBuffered {
		b.notices = b.notices[len(b.notices)-maxBuffered:]
	}
}

// Drain は保持中の通知をすべて返し、バッファを空にする。
func (b *Buffer) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := b.notices
	b.notices = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}
