package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue はレジストリから指定メトリクスのカウンタ値を取得するヘルパー。
func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("%s metric not found", name)
	return 0
}

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

// TestRecordRefreshSuccess_IncrementsCounterAndGauge はリフレッシュ成功カウンタと
// 読み込みイベント数ゲージが更新されることを検証する。
func TestRecordRefreshSuccess_IncrementsCounterAndGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRefreshSuccess(120)
	c.RecordRefreshSuccess(85)

	if val := counterValue(t, reg, "phillycal_refresh_success_total"); val != 2 {
		t.Errorf("refresh_success_total = %v, want 2", val)
	}

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	found := false
	for _, mf := range metrics {
		if mf.GetName() == "phillycal_events_loaded" {
			found = true
			val := mf.GetMetric()[0].GetGauge().GetValue()
			if val != 85 {
				t.Errorf("events_loaded = %v, want 85 (last refresh wins)", val)
			}
		}
	}
	if !found {
		t.Error("phillycal_events_loaded metric not found")
	}
}

// TestRecordRefreshFailure_IncrementsCounter はリフレッシュ失敗カウンタが増加することを検証する。
func TestRecordRefreshFailure_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRefreshFailure()

	if val := counterValue(t, reg, "phillycal_refresh_fail_total"); val != 1 {
		t.Errorf("refresh_fail_total = %v, want 1", val)
	}
}

// TestRecordRefreshLatency_ObservesHistogram はレイテンシヒストグラムに観測値が
// 記録されることを検証する。
func TestRecordRefreshLatency_ObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRefreshLatency(150 * time.Millisecond)
	c.RecordRefreshLatency(300 * time.Millisecond)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "phillycal_refresh_latency_seconds" {
			found = true
			count := mf.GetMetric()[0].GetHistogram().GetSampleCount()
			if count != 2 {
				t.Errorf("sample count = %d, want 2", count)
			}
		}
	}
	if !found {
		t.Error("phillycal_refresh_latency_seconds metric not found")
	}
}

// TestCacheAndSaveCounters はキャッシュ・保存・OTP系カウンタの増加を検証する。
func TestCacheAndSaveCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordCacheHit()
	c.RecordCacheHit()
	c.RecordCacheMiss()
	c.RecordSaveConfirmed()
	c.RecordSaveFailed()
	c.RecordOTPSent()

	tests := []struct {
		name string
		want float64
	}{
		{"phillycal_offline_cache_hits_total", 2},
		{"phillycal_offline_cache_misses_total", 1},
		{"phillycal_saves_confirmed_total", 1},
		{"phillycal_saves_failed_total", 1},
		{"phillycal_otp_sent_total", 1},
	}
	for _, tt := range tests {
		if val := counterValue(t, reg, tt.name); val != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, val, tt.want)
		}
	}
}

// TestHandler_ServesMetrics は/metricsハンドラーが登録済みメトリクスを公開することを検証する。
func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordRefreshSuccess(10)

	handler := Handler(reg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	if !strings.Contains(bodyStr, "phillycal_refresh_success_total") {
		t.Error("response should contain phillycal_refresh_success_total metric")
	}
	if !strings.Contains(bodyStr, "phillycal_events_loaded") {
		t.Error("response should contain phillycal_events_loaded metric")
	}
}
