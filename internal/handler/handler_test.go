package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"smartdate/internal/cache"
	"smartdate/internal/dto"
	"smartdate/internal/logger"
	"smartdate/internal/model"

	"github.com/gorilla/mux"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(t.TempDir(), "debug")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

// fakeRepo records the filter it was queried with.
type fakeRepo struct {
	records []model.Record
	stats   *model.Stats
	err     error
	filter  dto.HistoryFilter
	since   time.Time
}

func (f *fakeRepo) Insert(_ context.Context, rec *model.Record) error {
	f.records = append(f.records, *rec)
	return f.err
}

func (f *fakeRepo) Recent(_ context.Context, filter dto.HistoryFilter) ([]model.Record, error) {
	f.filter = filter
	return f.records, f.err
}

func (f *fakeRepo) Stats(_ context.Context, since time.Time) (*model.Stats, error) {
	f.since = since
	return f.stats, f.err
}

func (f *fakeRepo) Close() error { return nil }

type fakeBroker bool

func (b fakeBroker) IsConnected() bool { return bool(b) }

// ===== Status =====

func TestStatusHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	StatusHandler()(rr, httptest.NewRequest(http.MethodGet, "/api", nil))

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if body["message"] != "API working" {
		t.Errorf("Unexpected message %v", body["message"])
	}
	if _, ok := body["time"]; !ok {
		t.Error("Expected time field")
	}
}

func TestHealthHandler(t *testing.T) {
	tests := []struct {
		name   string
		broker ConnectionChecker
		want   string
	}{
		{"connected", fakeBroker(true), `{"backend":true,"mqtt":true}`},
		{"disconnected", fakeBroker(false), `{"backend":true,"mqtt":false}`},
		{"no broker", nil, `{"backend":true,"mqtt":false}`},
	}

	for _, tt := range tests {
		rr := httptest.NewRecorder()
		HealthHandler(tt.broker)(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		if got := strings.TrimSpace(rr.Body.String()); got != tt.want {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}
}

// ===== Latest =====

func TestLatestHandler_NoData(t *testing.T) {
	rr := httptest.NewRecorder()
	LatestHandler(cache.NewMemoryCache(), newTestLogger(t))(rr, httptest.NewRequest(http.MethodGet, "/api/latest", nil))

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"error":"no data yet"}` {
		t.Errorf("Unexpected body %s", got)
	}
}

func TestLatestHandler_WithRecommendation(t *testing.T) {
	c := cache.NewMemoryCache()
	c.SetLatest(context.Background(), model.Record{Timestamp: 1700000000, Label: "alig", Confidence: 0.93})

	rr := httptest.NewRecorder()
	LatestHandler(c, newTestLogger(t))(rr, httptest.NewRequest(http.MethodGet, "/api/latest", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	var got dto.LatestDetection
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if got.Label != "alig" || got.Confidence != 0.93 {
		t.Errorf("Unexpected detection %+v", got)
	}
	if got.Recommendation == "" {
		t.Error("Expected a recommendation")
	}
}

// ===== History =====

func TestHistoryHandler_NoStore(t *testing.T) {
	rr := httptest.NewRecorder()
	HistoryHandler(nil, newTestLogger(t))(rr, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("Expected empty list, got %s", got)
	}
}

func TestHistoryHandler_Filter(t *testing.T) {
	repo := &fakeRepo{records: []model.Record{{Timestamp: 2, Label: "kenta", Confidence: 0.9}}}

	rr := httptest.NewRecorder()
	HistoryHandler(repo, newTestLogger(t))(rr, httptest.NewRequest(http.MethodGet, "/api/history?label=kenta&limit=5", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if repo.filter.Label != "kenta" || repo.filter.Limit != 5 {
		t.Errorf("Unexpected filter %+v", repo.filter)
	}

	var got []model.Record
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(got) != 1 || got[0].Label != "kenta" {
		t.Errorf("Unexpected records %+v", got)
	}
}

func TestHistoryHandler_BadLimitUsesDefault(t *testing.T) {
	repo := &fakeRepo{}
	HistoryHandler(repo, newTestLogger(t))(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/history?limit=abc", nil))

	if repo.filter.Limit != dto.MaxHistoryLimit {
		t.Errorf("Expected limit %d, got %d", dto.MaxHistoryLimit, repo.filter.Limit)
	}
}

func TestHistoryHandler_StoreError(t *testing.T) {
	repo := &fakeRepo{err: errors.New("disk full")}

	rr := httptest.NewRecorder()
	HistoryHandler(repo, newTestLogger(t))(rr, httptest.NewRequest(http.MethodGet, "/api/history", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rr.Code)
	}
}

// ===== Stats =====

func TestStatsHandler_NoStore(t *testing.T) {
	rr := httptest.NewRecorder()
	StatsHandler(nil, newTestLogger(t))(rr, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	if got := strings.TrimSpace(rr.Body.String()); got != "{}" {
		t.Errorf("Expected empty object, got %s", got)
	}
}

func TestStatsHandler_SinceMidnight(t *testing.T) {
	repo := &fakeRepo{stats: &model.Stats{
		Total:         3,
		Today:         1,
		AvgConfidence: 0.8,
		ByLabel:       []model.LabelCount{{Label: "alig", Count: 3}},
	}}

	rr := httptest.NewRecorder()
	StatsHandler(repo, newTestLogger(t))(rr, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rr.Code)
	}
	if h, m, s := repo.since.Clock(); h != 0 || m != 0 || s != 0 {
		t.Errorf("Expected local midnight, got %v", repo.since)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	for _, key := range []string{"total", "today", "avgConfidence", "byType"} {
		if _, ok := body[key]; !ok {
			t.Errorf("Missing %q in %s", key, rr.Body.String())
		}
	}
}

// ===== Snapshots =====

type fakeSnapshots struct {
	dir     string
	pending map[string][]byte
}

func (f fakeSnapshots) Path(name string) (string, bool) {
	if !strings.HasSuffix(name, ".jpg") || strings.Contains(name, "..") {
		return "", false
	}
	return filepath.Join(f.dir, name), true
}

func (f fakeSnapshots) Pending(name string) ([]byte, bool) {
	data, ok := f.pending[name]
	return data, ok
}

func serveSnapshot(store SnapshotSource, name string) *httptest.ResponseRecorder {
	r := mux.NewRouter()
	r.HandleFunc("/api/snapshots/{name}", SnapshotHandler(store))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/snapshots/"+name, nil))
	return rr
}

func TestSnapshotHandler(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "stored.jpg"), []byte("stored"), 0644); err != nil {
		t.Fatal(err)
	}
	store := fakeSnapshots{dir: dir, pending: map[string][]byte{"buffered.jpg": []byte("buffered")}}

	tests := []struct {
		name string
		code int
		body string
	}{
		{"stored.jpg", http.StatusOK, "stored"},
		{"buffered.jpg", http.StatusOK, "buffered"},
		{"missing.jpg", http.StatusNotFound, ""},
		{"notes.txt", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		rr := serveSnapshot(store, tt.name)
		if rr.Code != tt.code {
			t.Errorf("%s: expected %d, got %d", tt.name, tt.code, rr.Code)
		}
		if tt.body != "" && rr.Body.String() != tt.body {
			t.Errorf("%s: expected body %q, got %q", tt.name, tt.body, rr.Body.String())
		}
	}
}

// ===== Logs =====

func TestLogsHandlers(t *testing.T) {
	l := newTestLogger(t)
	l.Error("broker unreachable")

	r := mux.NewRouter()
	r.HandleFunc("/api/logs/{level}", ShowLogsHandler(l)).Methods(http.MethodGet)
	r.HandleFunc("/api/logs/{level}/clear", ClearLogsHandler(l)).Methods(http.MethodPost)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/logs/error", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "broker unreachable") {
		t.Errorf("Unexpected response %d %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/logs/trace", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown level, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/logs/error/clear", nil))
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/logs/error", nil))
	if strings.Contains(rr.Body.String(), "broker unreachable") {
		t.Error("Expected error log to be cleared")
	}
}
