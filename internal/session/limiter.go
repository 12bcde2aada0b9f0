package session

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// OTPLimiterConfig はコード送付スロットリングの設定を保持する。
// コード検証には上限を設けない（検証の試行制限はサーバー側の責務）。
type OTPLimiterConfig struct {
	SendRate        rate.Limit    // コード送付のレート（req/sec）
	SendBurst       int           // コード送付のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultOTPLimiterConfig はデフォルトのスロットリング設定を返す。
// メールアドレスごとに毎分3回までの送付を許す。
func DefaultOTPLimiterConfig() OTPLimiterConfig {
	return OTPLimiterConfig{
		SendRate:        rate.Limit(3.0 / 60.0),
		SendBurst:       3,
		CleanupInterval: 5 * time.Minute,
	}
}

// emailLimiter はメールアドレスごとのレートリミッターとアクセス時刻を保持する。
type emailLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// OTPLimiter はメールアドレスごとにコード送付をスロットリングする。
type OTPLimiter struct {
	config OTPLimiterConfig

	mu       sync.Mutex
	limiters map[string]*emailLimiter

	stopCh chan struct{}
}

// NewOTPLimiter は新しいOTPLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewOTPLimiter(config OTPLimiterConfig) *OTPLimiter {
	l := &OTPLimiter{
		config:   config,
		limiters: make(map[string]*emailLimiter),
		stopCh:   make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (l *OTPLimiter) Stop() {
	close(l.stopCh)
}

// AllowSend は指定メールアドレスへのコード送付が許可されるかを判定する。
func (l *OTPLimiter) AllowSend(email string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	el, ok := l.limiters[email]
	if !ok {
		el = &emailLimiter{
			limiter: rate.NewLimiter(l.config.SendRate, l.config.SendBurst),
		}
		l.limiters[email] = el
	}
	el.lastAccess = time.Now()
	return el.limiter.Allow()
}

// cleanupLoop は一定間隔で長時間未使用のエントリを破棄する。
func (l *OTPLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * l.config.CleanupInterval)
			l.mu.Lock()
			for email, el := range l.limiters {
				if el.lastAccess.Before(cutoff) {
					delete(l.limiters, email)
				}
			}
			l.mu.Unlock()
		}
	}
}
