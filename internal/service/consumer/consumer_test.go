package consumer

import (
	"context"
	"encoding/base64"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"smartdate/internal/cache"
	"smartdate/internal/dto"
	"smartdate/internal/logger"
	"smartdate/internal/model"
	"smartdate/internal/repository/csvlog"
)

type fakeMirror struct {
	mu      sync.Mutex
	records []model.Record
	err     error
}

func (m *fakeMirror) Insert(_ context.Context, rec *model.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, *rec)
	return nil
}

func (m *fakeMirror) Recent(context.Context, dto.HistoryFilter) ([]model.Record, error) {
	return m.records, nil
}

func (m *fakeMirror) Stats(context.Context, time.Time) (*model.Stats, error) {
	return &model.Stats{Total: int64(len(m.records))}, nil
}

func (m *fakeMirror) Close() error { return nil }

type failingTable struct{}

func (failingTable) Append(model.Record) error { return errors.New("disk full") }

type fakeSnapshots struct {
	data  []byte
	label string
}

func (s *fakeSnapshots) AddSnapshot(data []byte, label string, at time.Time) string {
	s.data, s.label = data, label
	return "snap.jpg"
}

type fakeBroadcaster struct {
	messages [][]byte
}

func (b *fakeBroadcaster) Broadcast(message []byte) {
	b.messages = append(b.messages, message)
}

// clock is a manually advanced wall clock.
type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(t.TempDir(), "debug")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestConsumer_RoundTripToTable(t *testing.T) {
	table := csvlog.NewTable(filepath.Join(t.TempDir(), "detections_log.csv"))
	mirror := &fakeMirror{}
	c := New(table, newTestLogger(t), WithMirrors(mirror))

	ok, err := c.HandleMessage(context.Background(), []byte(`{"label":"alig","confidence":0.912,"timestamp":1700000000.25}`))
	if err != nil || !ok {
		t.Fatalf("Expected acceptance, got ok=%v err=%v", ok, err)
	}

	rows, err := table.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	want := model.Record{Timestamp: 1700000000.25, Label: "alig", Confidence: 0.912}
	if len(rows) != 1 || rows[0] != want {
		t.Errorf("Expected %+v, got %+v", want, rows)
	}
	if len(mirror.records) != 1 || mirror.records[0] != want {
		t.Errorf("Mirror got %+v", mirror.records)
	}
}

func TestConsumer_Defaults(t *testing.T) {
	clk := &clock{now: time.Unix(1700000100, 0)}
	mirror := &fakeMirror{}
	c := New(&fakeTableRecorder{}, newTestLogger(t), WithMirrors(mirror), WithClock(clk.Now))

	if ok, err := c.HandleMessage(context.Background(), []byte(`{"label":"kenta"}`)); !ok || err != nil {
		t.Fatalf("Expected acceptance, got ok=%v err=%v", ok, err)
	}

	got := mirror.records[0]
	if got.Confidence != 0 || got.Timestamp != 1700000100 {
		t.Errorf("Expected defaults, got %+v", got)
	}
}

type fakeTableRecorder struct {
	records []model.Record
}

func (f *fakeTableRecorder) Append(rec model.Record) error {
	f.records = append(f.records, rec)
	return nil
}

func TestConsumer_TimestampFormats(t *testing.T) {
	tests := []struct {
		payload string
		want    float64
	}{
		{`{"label":"alig","timestamp":1700000000}`, 1700000000},
		{`{"label":"alig","timestamp":"1700000000.5"}`, 1700000000.5},
		{`{"label":"alig","timestamp":"2023-11-14T22:13:20Z"}`, 1700000000},
		{`{"label":"alig","timestamp":"2023-11-14T22:13:20.5"}`, 1700000000.5},
		{`{"label":"alig","timestamp":null}`, 1700000999},
	}

	clk := &clock{now: time.Unix(1700000999, 0)}
	for _, tt := range tests {
		table := &fakeTableRecorder{}
		c := New(table, newTestLogger(t), WithClock(clk.Now))
		if ok, err := c.HandleMessage(context.Background(), []byte(tt.payload)); !ok || err != nil {
			t.Errorf("%s: expected acceptance, got ok=%v err=%v", tt.payload, ok, err)
			continue
		}
		if got := table.records[0].Timestamp; got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.payload, tt.want, got)
		}
	}
}

func TestConsumer_MalformedDropped(t *testing.T) {
	payloads := []string{
		`not json`,
		`[1,2,3]`,
		`null`,
		`{"confidence":0.9}`,
		`{"label":""}`,
		`{"label":42}`,
		`{"label":"alig","confidence":"high"}`,
		`{"label":"alig","timestamp":"yesterday"}`,
	}

	table := &fakeTableRecorder{}
	c := New(table, newTestLogger(t))
	for _, p := range payloads {
		ok, err := c.HandleMessage(context.Background(), []byte(p))
		if ok {
			t.Errorf("%s: should not be accepted", p)
		}
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("%s: expected ErrMalformed, got %v", p, err)
		}
		c.OnMessage([]byte(p))
	}

	if len(table.records) != 0 {
		t.Errorf("Malformed messages reached the table: %+v", table.records)
	}
	if s := c.Stats(); s.Malformed != uint64(2*len(payloads)) {
		t.Errorf("Unexpected stats %+v", s)
	}
}

func TestConsumer_NoneThrottle(t *testing.T) {
	clk := &clock{now: time.Unix(1700000000, 0)}
	table := &fakeTableRecorder{}
	c := New(table, newTestLogger(t), WithNoneInterval(5*time.Second), WithClock(clk.Now))
	none := []byte(`{"label":"none","confidence":0,"timestamp":1}`)

	steps := []struct {
		advance time.Duration
		payload []byte
		want    bool
	}{
		{0, none, true},
		{time.Second, none, false},
		{time.Second, []byte(`{"label":"alig","confidence":0.9}`), true},
		{time.Second, none, false},
		{2 * time.Second, none, true},
		{4 * time.Second, none, false},
	}

	for i, s := range steps {
		clk.now = clk.now.Add(s.advance)
		ok, err := c.HandleMessage(context.Background(), s.payload)
		if err != nil {
			t.Fatalf("step %d: unexpected error %v", i, err)
		}
		if ok != s.want {
			t.Errorf("step %d: expected accepted=%v, got %v", i, s.want, ok)
		}
	}

	if len(table.records) != 3 {
		t.Errorf("Expected 3 rows, got %d", len(table.records))
	}
	if s := c.Stats(); s.Throttled != 3 || s.Accepted != 3 {
		t.Errorf("Unexpected stats %+v", s)
	}
}

func TestConsumer_MirrorFailureDoesNotBlock(t *testing.T) {
	table := &fakeTableRecorder{}
	broken := &fakeMirror{err: errors.New("connection refused")}
	healthy := &fakeMirror{}
	latest := cache.NewMemoryCache()
	c := New(table, newTestLogger(t), WithMirrors(broken, healthy), WithCache(latest))

	ok, err := c.HandleMessage(context.Background(), []byte(`{"label":"bessra","confidence":0.88,"timestamp":5}`))
	if !ok || err != nil {
		t.Fatalf("Expected acceptance despite mirror failure, got ok=%v err=%v", ok, err)
	}
	if len(table.records) != 1 || len(healthy.records) != 1 {
		t.Error("Table and healthy mirror should both have the record")
	}
	if rec, found, _ := latest.Latest(context.Background()); !found || rec.Label != "bessra" {
		t.Errorf("Latest cache not updated: %+v", rec)
	}
}

func TestConsumer_TableFailureSkipsMirrors(t *testing.T) {
	mirror := &fakeMirror{}
	latest := cache.NewMemoryCache()
	c := New(failingTable{}, newTestLogger(t), WithMirrors(mirror), WithCache(latest))

	ok, err := c.HandleMessage(context.Background(), []byte(`{"label":"alig","confidence":0.9}`))
	if ok || err == nil {
		t.Fatalf("Expected table failure, got ok=%v err=%v", ok, err)
	}
	if errors.Is(err, ErrMalformed) {
		t.Error("Table failure should not be reported as malformed")
	}
	if len(mirror.records) != 0 {
		t.Error("Record should not be mirrored after a table failure")
	}
	if _, found, _ := latest.Latest(context.Background()); found {
		t.Error("Latest cache should not be updated after a table failure")
	}
	c.OnMessage([]byte(`{"label":"alig"}`))
}

func TestConsumer_SnapshotAndBroadcast(t *testing.T) {
	snaps := &fakeSnapshots{}
	feed := &fakeBroadcaster{}
	mirror := &fakeMirror{}
	c := New(&fakeTableRecorder{}, newTestLogger(t), WithMirrors(mirror), WithSnapshots(snaps), WithBroadcaster(feed))

	img := base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff})
	payload := []byte(`{"label":"kintichi","confidence":0.95,"timestamp":10,"image":"` + img + `"}`)
	if ok, err := c.HandleMessage(context.Background(), payload); !ok || err != nil {
		t.Fatalf("Expected acceptance, got ok=%v err=%v", ok, err)
	}

	if snaps.label != "kintichi" || len(snaps.data) != 3 {
		t.Errorf("Snapshot not stored: %+v", snaps)
	}
	if mirror.records[0].Image != "snap.jpg" {
		t.Errorf("Expected snapshot name on the record, got %q", mirror.records[0].Image)
	}
	if len(feed.messages) != 1 {
		t.Fatalf("Expected one broadcast, got %d", len(feed.messages))
	}

	bad := []byte(`{"label":"kintichi","confidence":0.95,"image":"%%%"}`)
	if ok, err := c.HandleMessage(context.Background(), bad); !ok || err != nil {
		t.Errorf("Invalid image should not reject the record, got ok=%v err=%v", ok, err)
	}
	if mirror.records[1].Image != "" {
		t.Error("Invalid image should not produce a snapshot name")
	}
}
