// Package session はアイデンティティセッションマネージャを提供する。
//
// 互いに独立した2つの資格情報を管理する:
//   - 管理者モード: プロセス存続中のみメモリに保持されるベアラートークン。
//     変更系リクエストで401/403を受けた時点で即座にローカル破棄される。
//   - ユーザーセッション: メール宛ワンタイムコードによるチャレンジ方式。
//     セッションCookie自体はサーバーとAPIクライアントのcookiejarが管理し、
//     本パッケージは状態機械とユーザー情報のみを持つ。
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/phillycal/internal/api"
	"github.com/hitoshi/phillycal/internal/model"
)

// AuthAPI はマネージャが必要とする認証エンドポイントのインターフェース。
// api.Clientの部分集合として定義する。
type AuthAPI interface {
	Me(ctx context.Context) (*model.User, bool, error)
	SendOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (*model.User, error)
	Logout(ctx context.Context) error
}

// SaveHook は認証状態の変化を保存状態リコンサイラへ伝える
// インターフェース。saves.Reconcilerが実装する。
type SaveHook interface {
	// OnAuthenticated は認証成立時に呼ばれる。サーバー保存セットの読み込みと
	// 匿名ブックマークの移行を行う。
	OnAuthenticated(ctx context.Context) error
	// OnLoggedOut はログアウト時に呼ばれる。サーバーミラーを破棄する。
	OnLoggedOut()
}

// Manager はアイデンティティ状態を所有する。
type Manager struct {
	mu           sync.RWMutex
	state        model.SessionState
	user         *model.User
	pendingEmail string // CODE_SENT中の検証対象メールアドレス
	adminToken   string // メモリのみ。永続化しない

	authAPI  AuthAPI
	saveHook SaveHook
	limiter  *OTPLimiter
	logger   *slog.Logger
}

// NewManager はManagerを生成する。初期状態はANONYMOUS。
func NewManager(authAPI AuthAPI, saveHook SaveHook, limiter *OTPLimiter, logger *slog.Logger) *Manager {
	return &Manager{
		state:    model.SessionAnonymous,
		authAPI:  authAPI,
		saveHook: saveHook,
		limiter:  limiter,
		logger:   logger,
	}
}

// State は現在のセッション状態を返す。
func (m *Manager) State() model.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// CurrentUser は認証済みユーザーを返す。未認証の場合はnil。
func (m *Manager) CurrentUser() *model.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// RequestCode はワンタイムコードの送付を要求し、CODE_SENTへ遷移する。
// ANONYMOUSからのみ開始できる。スロットリングに達した場合は送付せずに
// エラーを返す（状態は変わらない）。
func (m *Manager) RequestCode(ctx context.Context, email string) error {
	m.mu.RLock()
	state := m.state
	m.mu.RUnlock()

	if state != model.SessionAnonymous {
		return &model.ClientError{
			Code:     model.ErrCodeInvalidStateChange,
			Message:  fmt.Sprintf("状態 %s からはコードを要求できません", state),
			Category: "auth",
			Action:   "先にログアウトしてください。",
		}
	}

	return m.sendCode(ctx, email)
}

// ResendCode はCODE_SENT中にコードを再送する。CODE_SENTに再入し、
// 新しいコードが以前のコードを無効化する（無効化自体はサーバー側の動作）。
func (m *Manager) ResendCode(ctx context.Context) error {
	m.mu.RLock()
	state := m.state
	email := m.pendingEmail
	m.mu.RUnlock()

	if state != model.SessionCodeSent {
		return &model.ClientError{
			Code:     model.ErrCodeInvalidStateChange,
			Message:  "再送できるのはコード送信済みの状態のみです",
			Category: "auth",
			Action:   "先にメールアドレスを入力してコードを要求してください。",
		}
	}

	return m.sendCode(ctx, email)
}

// sendCode はスロットリングを通した上でコード送付を実行し、
// 成功時にCODE_SENTへ遷移（または再入）する。
func (m *Manager) sendCode(ctx context.Context, email string) error {
	if !m.limiter.AllowSend(email) {
		return &model.ClientError{
			Code:     model.ErrCodeOTPThrottled,
			Message:  "コードの送付回数が多すぎます",
			Category: "auth",
			Action:   "しばらく待ってから再度お試しください。",
		}
	}

	if err := m.authAPI.SendOTP(ctx, email); err != nil {
		m.logger.Error("コード送付に失敗しました",
			slog.String("error", err.Error()),
		)
		return &model.ClientError{
			Code:     model.ErrCodeOTPSendFailed,
			Message:  "コードの送付に失敗しました",
			Category: "auth",
			Action:   "メールアドレスを確認して再度お試しください。",
		}
	}

	m.mu.Lock()
	m.state = model.SessionCodeSent
	m.pendingEmail = email
	m.mu.Unlock()

	m.logger.Info("ワンタイムコードを送付しました")
	return nil
}

// VerifyCode はワンタイムコードを検証する。
// 成功時はAUTHENTICATEDへ遷移し、保存セットの読み込みとブックマーク移行を
// 起動する。失敗時はCODE_SENTに留まり、無制限に再試行できる。
func (m *Manager) VerifyCode(ctx context.Context, code string) error {
	m.mu.RLock()
	state := m.state
	email := m.pendingEmail
	m.mu.RUnlock()

	if state != model.SessionCodeSent {
		return &model.ClientError{
			Code:     model.ErrCodeInvalidStateChange,
			Message:  "検証できるのはコード送信済みの状態のみです",
			Category: "auth",
			Action:   "先にコードを要求してください。",
		}
	}

	user, err := m.authAPI.VerifyOTP(ctx, email, code)
	if err != nil {
		// 状態はCODE_SENTのまま。再試行もコード再送も可能
		if errors.Is(err, api.ErrOTPRejected) {
			return model.NewOTPVerifyFailedError("")
		}
		return model.NewOTPVerifyFailedError(fmt.Sprintf("検証リクエストに失敗しました: %v", err))
	}

	m.mu.Lock()
	m.state = model.SessionAuthenticated
	m.user = user
	m.pendingEmail = ""
	m.mu.Unlock()

	m.logger.Info("ログインしました", slog.Int64("user_id", user.ID))

	// 保存セット読み込みと移行の失敗はログイン自体を失敗させない
	if err := m.saveHook.OnAuthenticated(ctx); err != nil {
		m.logger.Warn("保存状態の整合処理に失敗しました",
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// Logout はセッションを破棄してANONYMOUSへ遷移する。
// サーバー側セッションの破棄失敗はローカルのログアウトを妨げない。
func (m *Manager) Logout(ctx context.Context) {
	if err := m.authAPI.Logout(ctx); err != nil {
		m.logger.Warn("サーバーセッションの破棄に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	m.mu.Lock()
	m.state = model.SessionAnonymous
	m.user = nil
	m.pendingEmail = ""
	m.mu.Unlock()

	m.saveHook.OnLoggedOut()
	m.logger.Info("ログアウトしました")
}

// Restore は起動時にサーバーへの「who am I」照会からセッション有効性を
// 再導出する。有効ならAUTHENTICATEDを復元し、保存セットの読み込みを起動する。
// 照会失敗はANONYMOUSのまま縮退する（非致命）。
func (m *Manager) Restore(ctx context.Context) {
	user, loggedIn, err := m.authAPI.Me(ctx)
	if err != nil {
		m.logger.Warn("セッション照会に失敗しました。匿名のまま継続します",
			slog.String("error", err.Error()),
		)
		return
	}
	if !loggedIn {
		return
	}

	m.mu.Lock()
	m.state = model.SessionAuthenticated
	m.user = user
	m.mu.Unlock()

	m.logger.Info("セッションを復元しました", slog.Int64("user_id", user.ID))

	if err := m.saveHook.OnAuthenticated(ctx); err != nil {
		m.logger.Warn("保存状態の整合処理に失敗しました",
			slog.String("error", err.Error()),
		)
	}
}

// SetAdminToken は管理者トークンをメモリに保持する。
// トークンはプロセス存続中のみ有効で、永続化されない。
func (m *Manager) SetAdminToken(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adminToken = token
}

// AdminToken は現在の管理者トークンを返す。未設定の場合は空文字列。
func (m *Manager) AdminToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.adminToken
}

// HasAdmin は管理者トークンが保持されているかを返す。
func (m *Manager) HasAdmin() bool {
	return m.AdminToken() != ""
}

// HandleAdminError は管理者の変更系呼び出しのエラーを処理する。
// 401/403（api.ErrUnauthorized）の場合はトークンを即座に破棄し、
// ユーザー向けのClientErrorへ変換して返す。それ以外のエラーはそのまま返す。
func (m *Manager) HandleAdminError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, api.ErrUnauthorized) {
		m.mu.Lock()
		m.adminToken = ""
		m.mu.Unlock()
		m.logger.Warn("管理者トークンが拒否されたためローカル破棄しました")
		return model.NewAdminUnauthorizedError(0)
	}
	return err
}
