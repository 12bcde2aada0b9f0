// Package refresh はイベント一覧の定期リフレッシュワーカーを提供する。
//
// 固定間隔（既定5分）のティッカーでページの存続期間中発火し続ける。
// バックオフ、ジッタ、可視性による一時停止は行わない。
// 定期リフレッシュと手動リフレッシュの間に相互排他はなく、
// 後に解決した応答がストアを上書きする。
package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/phillycal/internal/model"
)

// EventsAPI はワーカーが必要とするイベント取得のインターフェース。
// api.Clientの部分集合として定義する。
type EventsAPI interface {
	FetchUpcoming(ctx context.Context) ([]model.WireEvent, error)
}

// EventStore はワーカーが書き込むイベントストアのインターフェース。
type EventStore interface {
	Replace(events []model.Event)
}

// RefreshMetrics はワーカーが記録するメトリクスのインターフェース。
type RefreshMetrics interface {
	RecordRefreshSuccess(eventCount int)
	RecordRefreshFailure()
	RecordRefreshLatency(duration time.Duration)
}

// Worker はイベント一覧の定期リフレッシュを実行する。
type Worker struct {
	eventsAPI EventsAPI
	store     EventStore
	metrics   RefreshMetrics
	logger    *slog.Logger
}

// NewWorker はWorkerの新しいインスタンスを生成する。
func NewWorker(eventsAPI EventsAPI, store EventStore, metrics RefreshMetrics, logger *slog.Logger) *Worker {
	return &Worker{
		eventsAPI: eventsAPI,
		store:     store,
		metrics:   metrics,
		logger:    logger,
	}
}

// Start は固定間隔のティッカーでワーカーを起動する。
// コンテキストがキャンセルされるまで実行を継続する。起動直後に1回実行する。
func (w *Worker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("リフレッシュワーカーを開始しました",
		slog.Duration("interval", interval),
	)

	if err := w.RunOnce(ctx); err != nil {
		w.logger.Error("リフレッシュに失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("リフレッシュワーカーを停止しました")
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("リフレッシュに失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はイベント一覧を1回取得してストアを総入れ替えする。
// 取得失敗時はストアを変更しない（呼び出し元の表示は前回値または空状態）。
func (w *Worker) RunOnce(ctx context.Context) error {
	start := time.Now()

	wireEvents, err := w.eventsAPI.FetchUpcoming(ctx)
	if err != nil {
		w.metrics.RecordRefreshFailure()
		return err
	}

	events := make([]model.Event, 0, len(wireEvents))
	unknownCategories := 0
	for _, we := range wireEvents {
		e, known := we.ToEvent()
		if !known {
			unknownCategories++
		}
		events = append(events, e)
	}

	w.store.Replace(events)

	duration := time.Since(start)
	w.metrics.RecordRefreshSuccess(len(events))
	w.metrics.RecordRefreshLatency(duration)

	if unknownCategories > 0 {
		w.logger.Warn("未知のカテゴリをotherに割り当てました",
			slog.Int("count", unknownCategories),
		)
	}

	w.logger.Info("イベント一覧をリフレッシュしました",
		slog.Int("event_count", len(events)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
	return nil
}
