// Package api はバックエンドREST APIのクライアントを提供する。
// イベント取得、統計、管理者の変更系、OTP認証、保存セット操作を含む。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/phillycal/internal/model"
)

// adminTokenHeader は管理者の変更系リクエストに付与するヘッダー名。
const adminTokenHeader = "X-Admin-Token"

// ErrUnauthorized は管理者トークンが401/403で拒否されたことを表す。
// 呼び出し元（セッションマネージャ）はこれを受けて即座にローカルの
// 管理者セッションを破棄する。
var ErrUnauthorized = errors.New("admin token rejected")

// ErrOTPRejected はワンタイムコードの検証がサーバーに拒否されたことを表す。
// 状態機械はCODE_SENTに留まり、再試行できる。
var ErrOTPRejected = errors.New("otp verification rejected")

// Client はバックエンドAPIのHTTPクライアント。
// サーバー管理のセッションCookieはcookiejarが保持する。
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient はClientの新しいインスタンスを生成する。
// セッションCookie保持のためcookiejarを内蔵したHTTPクライアントを構築する。
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookiejarの生成に失敗しました: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		logger: logger,
	}, nil
}

// NewClientWithHTTPClient はHTTPクライアントを差し替えてClientを生成する。
// テストでhttptestサーバーのClientを注入するために使用する。
func NewClientWithHTTPClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// FetchUpcoming は GET /events/upcoming でイベント一覧を取得する。
// 読み取り系の失敗は呼び出し元で空状態表示へ縮退させる。
func (c *Client) FetchUpcoming(ctx context.Context) ([]model.WireEvent, error) {
	var resp model.EventsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/events/upcoming", "", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("イベント取得がサーバーに拒否されました: %s", resp.Error)
	}
	return resp.Events, nil
}

// FetchStats は GET /stats でイベント統計を取得する。
func (c *Client) FetchStats(ctx context.Context) (model.Stats, error) {
	var resp model.StatsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/stats", "", nil, &resp); err != nil {
		return model.Stats{}, err
	}
	if !resp.Success {
		return model.Stats{}, fmt.Errorf("統計取得がサーバーに拒否されました: %s", resp.Error)
	}
	return resp.Stats, nil
}

// CreateEvent は POST /events でイベントを作成する（管理者）。
func (c *Client) CreateEvent(ctx context.Context, token string, payload model.EventPayload) error {
	return c.doAdminMutation(ctx, http.MethodPost, "/events", token, payload)
}

// UpdateEvent は PUT /events/:id でイベントを更新する（管理者）。
func (c *Client) UpdateEvent(ctx context.Context, token string, id int64, payload model.EventPayload) error {
	return c.doAdminMutation(ctx, http.MethodPut, fmt.Sprintf("/events/%d", id), token, payload)
}

// DeleteEvent は DELETE /events/:id でイベントを削除する（管理者）。
func (c *Client) DeleteEvent(ctx context.Context, token string, id int64) error {
	return c.doAdminMutation(ctx, http.MethodDelete, fmt.Sprintf("/events/%d", id), token, nil)
}

// TriggerScrape は POST /scrape でスクレイピングを起動する（管理者）。
// 追加されたイベント数を返す。
func (c *Client) TriggerScrape(ctx context.Context, token string) (int, error) {
	var resp model.ScrapeResponse
	if err := c.doJSON(ctx, http.MethodPost, "/scrape", token, nil, &resp); err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, fmt.Errorf("スクレイピング起動がサーバーに拒否されました: %s", resp.Error)
	}
	return resp.TotalAdded, nil
}

// Me は GET /auth/me でセッションの有効性を確認する。
// ログイン済みであればユーザー情報とtrueを返す。
func (c *Client) Me(ctx context.Context) (*model.User, bool, error) {
	var resp model.AuthMeResponse
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", "", nil, &resp); err != nil {
		return nil, false, err
	}
	if !resp.LoggedIn || resp.User == nil {
		return nil, false, nil
	}
	return resp.User, true, nil
}

// SendOTP は POST /auth/send-otp でワンタイムコードの送付を要求する。
// コードの生成とメール配送はサーバー側の責務。
func (c *Client) SendOTP(ctx context.Context, email string) error {
	var resp model.MutationResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/send-otp", "", model.SendOTPRequest{Email: email}, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("コード送付がサーバーに拒否されました: %s", resp.Error)
	}
	return nil
}

// VerifyOTP は POST /auth/verify-otp でワンタイムコードを検証する。
// 成功時はユーザー情報を返し、セッションCookieはcookiejarに保持される。
// サーバーに拒否された場合はErrOTPRejectedをラップしたエラーを返す。
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (*model.User, error) {
	var resp model.VerifyOTPResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/verify-otp", "", model.VerifyOTPRequest{Email: email, Code: code}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.User == nil {
		return nil, fmt.Errorf("%w: %s", ErrOTPRejected, resp.Error)
	}
	return resp.User, nil
}

// Logout は POST /auth/logout でサーバーセッションを破棄する。
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/auth/logout", "", nil, nil)
}

// ListSaves は GET /profile/saves でサーバー側保存セットを取得する。
func (c *Client) ListSaves(ctx context.Context) ([]int64, error) {
	var resp model.SavesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/profile/saves", "", nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("保存セット取得がサーバーに拒否されました: %s", resp.Error)
	}
	return resp.EventIDs, nil
}

// AddSaves は POST /profile/saves で保存セットへIDを一括追加する。
// サーバー側で冪等に処理され、応答には操作後の保存セット全体が含まれる。
func (c *Client) AddSaves(ctx context.Context, ids []int64) ([]int64, error) {
	var resp model.SavesResponse
	if err := c.doJSON(ctx, http.MethodPost, "/profile/saves", "", model.SaveBatchRequest{EventIDs: ids}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("保存がサーバーに拒否されました: %s", resp.Error)
	}
	return resp.EventIDs, nil
}

// DeleteSave は DELETE /profile/saves/:id で保存セットからIDを除去する。
func (c *Client) DeleteSave(ctx context.Context, id int64) error {
	var resp model.SavesResponse
	if err := c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/profile/saves/%d", id), "", nil, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("保存解除がサーバーに拒否されました: %s", resp.Error)
	}
	return nil
}

// doAdminMutation は管理者の変更系エンドポイントを呼び出す共通処理。
func (c *Client) doAdminMutation(ctx context.Context, method, path, token string, body any) error {
	var resp model.MutationResponse
	if err := c.doJSON(ctx, method, path, token, body, &resp); err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("変更操作がサーバーに拒否されました: %s", resp.Error)
	}
	return nil
}

// doJSON はJSONリクエストを送信し、応答をoutにデコードする。
// tokenが非空の場合はX-Admin-Tokenヘッダーを付与する。
// 401/403の応答はErrUnauthorizedをラップしたエラーになる。
// outがnilの場合は応答ボディを読み捨てる。
func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out any) error {
	reqURL, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("リクエストURLの構築に失敗しました: %w", err)
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(adminTokenHeader, token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("バックエンドAPIの呼び出しに失敗しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return model.NewBackendUnreachableError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.logger.Warn("バックエンドAPIが認可エラーを返しました",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("%w (HTTP %d)", ErrUnauthorized, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("バックエンドAPIがエラーステータスを返しました",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("バックエンドAPIがステータス %d を返しました", resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}
