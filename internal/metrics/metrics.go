// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// リフレッシュワーカーやリコンサイラから利用する。
type MetricsCollector interface {
	RecordRefreshSuccess(eventCount int)
	RecordRefreshFailure()
	RecordRefreshLatency(duration time.Duration)
	RecordCacheHit()
	RecordCacheMiss()
	RecordSaveConfirmed()
	RecordSaveFailed()
	RecordOTPSent()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	refreshSuccess prometheus.Counter
	refreshFail    prometheus.Counter
	refreshLatency prometheus.Histogram
	eventsLoaded   prometheus.Gauge
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	savesConfirmed prometheus.Counter
	savesFailed    prometheus.Counter
	otpSent        prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		refreshSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phillycal_refresh_success_total",
			Help: "イベントリフレッシュ成功の合計数",
		}),
		refreshFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phillycal_refresh_fail_total",
			Help: "イベントリフレッシュ失敗の合計数",
		}),
		refreshLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "phillycal_refresh_latency_seconds",
			Help:    "イベントリフレッシュのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		eventsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "phillycal_events_loaded",
			Help: "直近のリフレッシュで読み込まれたイベント数",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phillycal_offline_cache_hits_total",
			Help: "オフラインキャッシュヒットの合計数",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phillycal_offline_cache_misses_total",
			Help: "オフラインキャッシュミスの合計数",
		}),
		savesConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phillycal_saves_confirmed_total",
			Help: "サーバー確認済み保存操作の合計数",
		}),
		savesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phillycal_saves_failed_total",
			Help: "失敗した保存操作の合計数",
		}),
		otpSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phillycal_otp_sent_total",
			Help: "送付要求したワンタイムコードの合計数",
		}),
	}

	reg.MustRegister(
		c.refreshSuccess,
		c.refreshFail,
		c.refreshLatency,
		c.eventsLoaded,
		c.cacheHits,
		c.cacheMisses,
		c.savesConfirmed,
		c.savesFailed,
		c.otpSent,
	)

	return c
}

// RecordRefreshSuccess はリフレッシュ成功と読み込みイベント数を記録する。
func (c *Collector) RecordRefreshSuccess(eventCount int) {
	c.refreshSuccess.Inc()
	c.eventsLoaded.Set(float64(eventCount))
}

// RecordRefreshFailure はリフレッシュ失敗を記録する。
func (c *Collector) RecordRefreshFailure() {
	c.refreshFail.Inc()
}

// RecordRefreshLatency はリフレッシュのレイテンシを記録する。
func (c *Collector) RecordRefreshLatency(duration time.Duration) {
	c.refreshLatency.Observe(duration.Seconds())
}

// RecordCacheHit はオフラインキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit() {
	c.cacheHits.Inc()
}

// RecordCacheMiss はオフラインキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss() {
	c.cacheMisses.Inc()
}

// RecordSaveConfirmed はサーバー確認済み保存操作を記録する。
func (c *Collector) RecordSaveConfirmed() {
	c.savesConfirmed.Inc()
}

// RecordSaveFailed は保存操作の失敗を記録する。
func (c *Collector) RecordSaveFailed() {
	c.savesFailed.Inc()
}

// RecordOTPSent はワンタイムコードの送付要求を記録する。
func (c *Collector) RecordOTPSent() {
	c.otpSent.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
