package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/hitoshi/phillycal/internal/calendar"
	"github.com/hitoshi/phillycal/internal/filter"
	"github.com/hitoshi/phillycal/internal/model"
	"github.com/hitoshi/phillycal/internal/security"
	"github.com/hitoshi/phillycal/internal/store"
)

// Refresher は手動リフレッシュの実行インターフェース。
// refresh.Workerが実装する。
type Refresher interface {
	RunOnce(ctx context.Context) error
}

// StatsAPI は統計取得のインターフェース。api.Clientの部分集合。
type StatsAPI interface {
	FetchStats(ctx context.Context) (model.Stats, error)
}

// SavedChecker はイベントの保存状態参照のインターフェース。
// saves.Reconcilerが実装する。
type SavedChecker interface {
	IsSaved(eventID int64) bool
}

// ViewHandler はビュー・フィルタ・統計関連のHTTPハンドラー。
type ViewHandler struct {
	store     *store.Store
	refresher Refresher
	statsAPI  StatsAPI
	saved     SavedChecker
	sanitizer security.EventSanitizer
	linkGuard security.LinkGuardService

	heroMu        sync.Mutex
	heroDismissed bool // プロセス存続中のみ有効。永続化しない
}

// NewViewHandler はViewHandlerを生成する。
func NewViewHandler(
	st *store.Store,
	refresher Refresher,
	statsAPI StatsAPI,
	saved SavedChecker,
	sanitizer security.EventSanitizer,
	linkGuard security.LinkGuardService,
) *ViewHandler {
	return &ViewHandler{
		store:     st,
		refresher: refresher,
		statsAPI:  statsAPI,
		saved:     saved,
		sanitizer: sanitizer,
		linkGuard: linkGuard,
	}
}

// viewEntry はビュー応答の1イベント。
type viewEntry struct {
	ID                   int64  `json:"id"`
	Title                string `json:"title"`
	Description          string `json:"description"` // サニタイズ済み
	TimeLabel            string `json:"time_label"`
	Location             string `json:"location"`
	Category             string `json:"category"`
	Price                string `json:"price,omitempty"`
	Source               string `json:"source,omitempty"`
	SourceURL            string `json:"source_url,omitempty"` // 検証に失敗したURLは落とされる
	RegistrationDeadline string `json:"registration_deadline,omitempty"`
	Saved                bool   `json:"saved"`
}

// viewDay はビュー応答の1日分バケット。
type viewDay struct {
	Date    string      `json:"date"`
	IsToday bool        `json:"is_today"`
	Events  []viewEntry `json:"events"`
}

// viewResponse は GET /view の応答。
type viewResponse struct {
	Days       []viewDay `json:"days"`
	TotalShown int       `json:"total_shown"`
}

// GetView はフィルタ済み・日別グルーピング済みのカレンダービューを返す。
// GET /view
func (h *ViewHandler) GetView(w http.ResponseWriter, r *http.Request) {
	filtered := h.store.Filtered()
	groups := calendar.GroupByDay(filtered, time.Now())

	days := make([]viewDay, 0, len(groups))
	for _, g := range groups {
		entries := make([]viewEntry, 0, len(g.Entries))
		for _, entry := range g.Entries {
			entries = append(entries, h.renderEntry(entry))
		}
		days = append(days, viewDay{
			Date:    g.Key,
			IsToday: g.IsToday,
			Events:  entries,
		})
	}

	writeJSON(w, http.StatusOK, viewResponse{
		Days:       days,
		TotalShown: len(filtered),
	})
}

// renderEntry はイベントを表示用に射影する。
// 説明文はサニタイズし、検証に失敗したsource_urlは落とす。
func (h *ViewHandler) renderEntry(entry calendar.Entry) viewEntry {
	e := entry.Event

	sourceURL := e.SourceURL
	if sourceURL != "" {
		if err := h.linkGuard.ValidateURL(sourceURL); err != nil {
			slog.Warn("source_urlの検証に失敗したため除外しました",
				slog.Int64("event_id", e.ID),
				slog.String("error", err.Error()),
			)
			sourceURL = ""
		}
	}

	return viewEntry{
		ID:                   e.ID,
		Title:                e.Title,
		Description:          h.sanitizer.Sanitize(e.Description),
		TimeLabel:            entry.TimeLabel,
		Location:             e.Location,
		Category:             string(e.Category),
		Price:                e.Price,
		Source:               e.Source,
		SourceURL:            sourceURL,
		RegistrationDeadline: e.RegistrationDeadline,
		Saved:                h.saved.IsSaved(e.ID),
	}
}

// optionsResponse は GET /options の応答。
type optionsResponse struct {
	Categories    []model.Category `json:"categories"`
	Months        []string         `json:"months"`
	Sources       []string         `json:"sources"`
	Neighborhoods []string         `json:"neighborhoods"`
}

// GetOptions はフィルタ選択肢（カテゴリ、派生済み月・ソース、地区）を返す。
// GET /options
func (h *ViewHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	hoods := filter.Neighborhoods()
	names := make([]string, 0, len(hoods))
	for _, n := range hoods {
		names = append(names, n.Name)
	}

	writeJSON(w, http.StatusOK, optionsResponse{
		Categories:    model.Categories(),
		Months:        h.store.Months(),
		Sources:       h.store.Sources(),
		Neighborhoods: names,
	})
}

// filtersBody はフィルタ状態のJSON表現。
type filtersBody struct {
	Category     string `json:"category"`
	Month        string `json:"month"`
	Source       string `json:"source"`
	Neighborhood string `json:"neighborhood"`
	Query        string `json:"query"`
}

// GetFilters は現在のフィルタ状態を返す。
// GET /filters
func (h *ViewHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	f := h.store.Filters()
	writeJSON(w, http.StatusOK, filtersBody{
		Category:     f.Category,
		Month:        f.Month,
		Source:       f.Source,
		Neighborhood: f.Neighborhood,
		Query:        f.Query,
	})
}

// PutFilters はフィルタ状態を置き換える。
// 未知のカテゴリは明示的にエラーにする（暗黙のデフォルトはしない）。
// PUT /filters
func (h *ViewHandler) PutFilters(w http.ResponseWriter, r *http.Request) {
	var body filtersBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if body.Category != "" && body.Category != filter.All {
		if _, ok := model.ParseCategory(body.Category); !ok {
			writeClientError(w, http.StatusBadRequest, model.NewInvalidCategoryError(body.Category))
			return
		}
	}

	h.store.SetFilters(filter.Filters{
		Category:     defaultAll(body.Category),
		Month:        defaultAll(body.Month),
		Source:       defaultAll(body.Source),
		Neighborhood: defaultAll(body.Neighborhood),
		Query:        body.Query,
	})
	w.WriteHeader(http.StatusNoContent)
}

// ClearFilters は全フィルタ軸を未選択に戻す。
// POST /filters/clear
func (h *ViewHandler) ClearFilters(w http.ResponseWriter, r *http.Request) {
	h.store.ClearFilters()
	w.WriteHeader(http.StatusNoContent)
}

// Refresh は手動リフレッシュを実行する。
// 定期リフレッシュとの相互排他はなく、後に解決した応答が勝つ。
// 失敗時は前回のストア内容が維持される（空状態への縮退は初回のみ）。
// POST /refresh
func (h *ViewHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.refresher.RunOnce(r.Context()); err != nil {
		slog.Warn("手動リフレッシュに失敗しました",
			slog.String("error", err.Error()),
		)
		// 読み取り系の失敗は縮退のみ。ページは落とさない
		writeJSON(w, http.StatusOK, map[string]any{"success": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// GetStats はバックエンドのイベント統計を返す。
// 取得失敗時はゼロ値へ縮退する。
// GET /stats
func (h *ViewHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.statsAPI.FetchStats(r.Context())
	if err != nil {
		slog.Warn("統計取得に失敗しました",
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "stats": model.Stats{}})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

// GetHero はヒーロー表示の解除フラグを返す。
// GET /hero
func (h *ViewHandler) GetHero(w http.ResponseWriter, r *http.Request) {
	h.heroMu.Lock()
	dismissed := h.heroDismissed
	h.heroMu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"dismissed": dismissed})
}

// DismissHero はヒーロー表示を解除する。プロセス存続中のみ有効。
// POST /hero/dismiss
func (h *ViewHandler) DismissHero(w http.ResponseWriter, r *http.Request) {
	h.heroMu.Lock()
	h.heroDismissed = true
	h.heroMu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// defaultAll は空文字列を"all"に正規化する。
func defaultAll(v string) string {
	if v == "" {
		return filter.All
	}
	return v
}
