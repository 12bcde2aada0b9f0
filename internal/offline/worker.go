package offline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// WorkerConfig はキャッシュワーカーの設定。
// バージョントークンとキャッシュキー方針は埋め込みリテラルではなく
// 明示的な設定入力とする（テストで偽ストアを注入できる）。
type WorkerConfig struct {
	// Version は世代名とアセットのクエリ文字列キャッシュバスターの
	// 両方に埋め込まれるバージョントークン。
	Version string
	// Manifest はインストール時に事前取得する固定アセットURL
	// （ドキュメントルート、スタイルシート、スクリプト）。
	Manifest []string
	// EventsPathMarkers はネットワーク応答を現行世代へ書き込む対象と
	// なるパスの部分文字列。これに該当しない応答は書き込まずに素通しする。
	EventsPathMarkers []string
}

// generationPrefix は世代名の接頭辞。
const generationPrefix = "phillycal-"

// CacheMetrics はワーカーが記録するメトリクスのインターフェース。
// metrics.Collectorの部分集合として定義する。
type CacheMetrics interface {
	RecordCacheHit()
	RecordCacheMiss()
}

// Worker はネットワーク境界のオフラインキャッシュワーカー。
// ページのイベントループとは独立したコンテキストで動作し、
// ページとは共有キャッシュストレージのみで協調する。
type Worker struct {
	store      Store
	httpClient *http.Client
	config     WorkerConfig
	metrics    CacheMetrics
	logger     *slog.Logger
}

// NewWorker はWorkerを生成する。
func NewWorker(store Store, httpClient *http.Client, config WorkerConfig, metrics CacheMetrics, logger *slog.Logger) *Worker {
	if len(config.EventsPathMarkers) == 0 {
		config.EventsPathMarkers = []string{"/events"}
	}
	return &Worker{
		store:      store,
		httpClient: httpClient,
		config:     config,
		metrics:    metrics,
		logger:     logger,
	}
}

// Generation は現行世代のキャッシュ名を返す。
func (w *Worker) Generation() string {
	return generationPrefix + w.config.Version
}

// BustURL はアセットURLにバージョントークンのキャッシュバスターを付与する。
func (w *Worker) BustURL(url string) string {
	sep := "?"
	if strings.Contains(url, "?") {
		sep = "&"
	}
	return url + sep + "v=" + w.config.Version
}

// Install はマニフェストの固定アセットを現行世代へ事前取得する。
// 1件でも取得に失敗した場合はエラーを返す（インストール失敗）。
func (w *Worker) Install(ctx context.Context) error {
	for _, raw := range w.config.Manifest {
		url := w.BustURL(raw)
		resp, err := w.fetchNetwork(ctx, url)
		if err != nil {
			return fmt.Errorf("マニフェストの事前取得に失敗しました (%s): %w", raw, err)
		}
		if err := w.store.Put(ctx, w.Generation(), url, resp); err != nil {
			return fmt.Errorf("マニフェストのキャッシュ書き込みに失敗しました (%s): %w", raw, err)
		}
	}

	w.logger.Info("オフラインキャッシュをインストールしました",
		slog.String("generation", w.Generation()),
		slog.Int("manifest_count", len(w.config.Manifest)),
	)
	return nil
}

// Fetch はキャッシュ優先でURLを取得する。
//
// 現行世代にヒットすればそれを返す。ミスの場合はネットワークへフォール
// バックし、イベント系パスの応答のみ現行世代へ書き込む。それ以外の応答は
// 書き込まずに素通しする。ネットワークも失敗した場合はエラーを返す
// （キャッシュ済みのURLであれば先にヒットしているため、ここに到達する
// のは未キャッシュのURLのみ）。
func (w *Worker) Fetch(ctx context.Context, url string) (*CachedResponse, error) {
	cached, err := w.store.Get(ctx, w.Generation(), url)
	if err != nil {
		w.logger.Warn("キャッシュ照会に失敗しました。ネットワークへフォールバックします",
			slog.String("url", url),
			slog.String("error", err.Error()),
		)
	}
	if cached != nil {
		w.metrics.RecordCacheHit()
		return cached, nil
	}

	w.metrics.RecordCacheMiss()
	resp, err := w.fetchNetwork(ctx, url)
	if err != nil {
		return nil, err
	}

	if w.isEventsBearing(url) {
		if putErr := w.store.Put(ctx, w.Generation(), url, resp); putErr != nil {
			w.logger.Warn("ネットワーク応答のキャッシュ書き込みに失敗しました",
				slog.String("url", url),
				slog.String("error", putErr.Error()),
			)
		}
	}

	return resp, nil
}

// Activate は現行世代以外のすべての世代を削除する。
// これが唯一の退避機構であり、サイズや経過時間による退避は行わない。
func (w *Worker) Activate(ctx context.Context) error {
	generations, err := w.store.Generations(ctx)
	if err != nil {
		return fmt.Errorf("世代一覧の取得に失敗しました: %w", err)
	}

	current := w.Generation()
	deleted := 0
	for _, g := range generations {
		if g == current {
			continue
		}
		if err := w.store.DeleteGeneration(ctx, g); err != nil {
			return fmt.Errorf("旧世代の削除に失敗しました (%s): %w", g, err)
		}
		deleted++
	}

	w.logger.Info("オフラインキャッシュを有効化しました",
		slog.String("generation", current),
		slog.Int("deleted_generations", deleted),
	)
	return nil
}

// isEventsBearing はURLがイベント系パスに該当するかを判定する。
func (w *Worker) isEventsBearing(url string) bool {
	for _, marker := range w.config.EventsPathMarkers {
		if strings.Contains(url, marker) {
			return true
		}
	}
	return false
}

// fetchNetwork はネットワークからURLを取得してCachedResponseへ変換する。
func (w *Worker) fetchNetwork(ctx context.Context, url string) (*CachedResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ネットワーク取得に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ネットワーク取得がステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("応答ボディの読み取りに失敗しました: %w", err)
	}

	return &CachedResponse{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FetchedAt:   time.Now(),
	}, nil
}
