package refresh

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/phillycal/internal/model"
)

// --- モック定義 ---

// mockEventsAPI はEventsAPIのモック実装。
type mockEventsAPI struct {
	fetchUpcomingFn func(ctx context.Context) ([]model.WireEvent, error)
}

func (m *mockEventsAPI) FetchUpcoming(ctx context.Context) ([]model.WireEvent, error) {
	if m.fetchUpcomingFn != nil {
		return m.fetchUpcomingFn(ctx)
	}
	return nil, nil
}

// mockEventStore はEventStoreのモック実装。
type mockEventStore struct {
	replaceCalls [][]model.Event
}

func (m *mockEventStore) Replace(events []model.Event) {
	m.replaceCalls = append(m.replaceCalls, events)
}

// mockRefreshMetrics はRefreshMetricsのモック実装。
type mockRefreshMetrics struct {
	successCount int
	successTotal int
	failureCount int
	latencyCount int
}

func (m *mockRefreshMetrics) RecordRefreshSuccess(eventCount int) {
	m.successCount++
	m.successTotal = eventCount
}

func (m *mockRefreshMetrics) RecordRefreshFailure() {
	m.failureCount++
}

func (m *mockRefreshMetrics) RecordRefreshLatency(duration time.Duration) {
	m.latencyCount++
}

var (
	_ EventsAPI      = (*mockEventsAPI)(nil)
	_ EventStore     = (*mockEventStore)(nil)
	_ RefreshMetrics = (*mockRefreshMetrics)(nil)
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- RunOnce テスト ---

func TestWorker_RunOnce_ReplacesStoreWithConvertedEvents(t *testing.T) {
	api := &mockEventsAPI{
		fetchUpcomingFn: func(ctx context.Context) ([]model.WireEvent, error) {
			return []model.WireEvent{
				{ID: 1, Title: "Fishtown 5K", StartDate: "2026-03-14T09:00:00", Category: "running"},
				{ID: 2, Title: "Jazz Night", StartDate: "2026-04-02T19:30:00", Category: "music"},
			}, nil
		},
	}
	store := &mockEventStore{}
	metrics := &mockRefreshMetrics{}
	w := NewWorker(api, store, metrics, testLogger())

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if len(store.replaceCalls) != 1 {
		t.Fatalf("Replace calls = %d, want 1", len(store.replaceCalls))
	}
	events := store.replaceCalls[0]
	if len(events) != 2 {
		t.Fatalf("events length = %d, want 2", len(events))
	}
	if events[0].Category != model.CategoryRunning {
		t.Errorf("events[0].Category = %q, want %q", events[0].Category, model.CategoryRunning)
	}
	if events[1].Title != "Jazz Night" {
		t.Errorf("events[1].Title = %q, want %q", events[1].Title, "Jazz Night")
	}

	if metrics.successCount != 1 {
		t.Errorf("success records = %d, want 1", metrics.successCount)
	}
	if metrics.successTotal != 2 {
		t.Errorf("recorded event count = %d, want 2", metrics.successTotal)
	}
	if metrics.latencyCount != 1 {
		t.Errorf("latency records = %d, want 1", metrics.latencyCount)
	}
}

func TestWorker_RunOnce_UnknownCategoryFallsBackToOther(t *testing.T) {
	api := &mockEventsAPI{
		fetchUpcomingFn: func(ctx context.Context) ([]model.WireEvent, error) {
			return []model.WireEvent{
				{ID: 1, Title: "Ghost Tour", StartDate: "2026-10-31T20:00:00", Category: "paranormal"},
			}, nil
		},
	}
	store := &mockEventStore{}
	w := NewWorker(api, store, &mockRefreshMetrics{}, testLogger())

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	events := store.replaceCalls[0]
	if len(events) != 1 {
		t.Fatalf("events length = %d, want 1", len(events))
	}
	// 未知のカテゴリは落とさずotherに割り当てる
	if events[0].Category != model.CategoryOther {
		t.Errorf("Category = %q, want %q", events[0].Category, model.CategoryOther)
	}
}

func TestWorker_RunOnce_FailureLeavesStoreUntouched(t *testing.T) {
	api := &mockEventsAPI{
		fetchUpcomingFn: func(ctx context.Context) ([]model.WireEvent, error) {
			return nil, errors.New("backend down")
		},
	}
	store := &mockEventStore{}
	metrics := &mockRefreshMetrics{}
	w := NewWorker(api, store, metrics, testLogger())

	if err := w.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error, got nil")
	}

	if len(store.replaceCalls) != 0 {
		t.Errorf("Replace calls = %d, want 0 on failure", len(store.replaceCalls))
	}
	if metrics.failureCount != 1 {
		t.Errorf("failure records = %d, want 1", metrics.failureCount)
	}
	if metrics.successCount != 0 {
		t.Errorf("success records = %d, want 0", metrics.successCount)
	}
}

func TestWorker_RunOnce_EmptyListReplacesWithEmpty(t *testing.T) {
	api := &mockEventsAPI{
		fetchUpcomingFn: func(ctx context.Context) ([]model.WireEvent, error) {
			return []model.WireEvent{}, nil
		},
	}
	store := &mockEventStore{}
	w := NewWorker(api, store, &mockRefreshMetrics{}, testLogger())

	if err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if len(store.replaceCalls) != 1 {
		t.Fatalf("Replace calls = %d, want 1", len(store.replaceCalls))
	}
	if len(store.replaceCalls[0]) != 0 {
		t.Errorf("events length = %d, want 0", len(store.replaceCalls[0]))
	}
}

// --- Start テスト ---

func TestWorker_Start_RunsImmediatelyAndStopsOnCancel(t *testing.T) {
	fetched := make(chan struct{}, 1)
	api := &mockEventsAPI{
		fetchUpcomingFn: func(ctx context.Context) ([]model.WireEvent, error) {
			select {
			case fetched <- struct{}{}:
			default:
			}
			return []model.WireEvent{}, nil
		},
	}
	w := NewWorker(api, &mockEventStore{}, &mockRefreshMetrics{}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx, time.Hour)
		close(done)
	}()

	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("expected an immediate refresh on start")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}
