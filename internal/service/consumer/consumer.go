// Package consumer logs accepted detection events: the CSV table first,
// then every configured mirror.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"smartdate/internal/dto"
	"smartdate/internal/logger"
	"smartdate/internal/model"
	"smartdate/internal/repository"
	"smartdate/internal/service/stabilizer"
)

const (
	defaultNoneInterval = 5 * time.Second
	mirrorTimeout       = 5 * time.Second
)

// Table is the primary append-only record.
type Table interface {
	Append(rec model.Record) error
}

// SnapshotStore keeps the image crop of an accepted event and returns the
// name it will be stored under.
type SnapshotStore interface {
	AddSnapshot(data []byte, label string, at time.Time) string
}

// Broadcaster pushes accepted records to live viewers.
type Broadcaster interface {
	Broadcast(message []byte)
}

// Stats counts message outcomes.
type Stats struct {
	Accepted  uint64
	Throttled uint64
	Malformed uint64
	Failed    uint64
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithMirrors adds secondary stores written after the table.
func WithMirrors(mirrors ...repository.DetectionRepository) Option {
	return func(c *Consumer) {
		for _, m := range mirrors {
			if m != nil {
				c.mirrors = append(c.mirrors, m)
			}
		}
	}
}

// WithCache sets the latest-detection cache.
func WithCache(cache repository.LatestCache) Option {
	return func(c *Consumer) { c.cache = cache }
}

// WithSnapshots sets where image crops are stored.
func WithSnapshots(store SnapshotStore) Option {
	return func(c *Consumer) { c.snapshots = store }
}

// WithBroadcaster sets the live viewer feed.
func WithBroadcaster(b Broadcaster) Option {
	return func(c *Consumer) { c.broadcaster = b }
}

// WithNoneInterval sets the minimum spacing of accepted "none" records.
func WithNoneInterval(d time.Duration) Option {
	return func(c *Consumer) { c.noneThrottle = stabilizer.NewThrottle(d) }
}

// WithClock replaces the wall clock used for defaults and throttling.
func WithClock(now func() time.Time) Option {
	return func(c *Consumer) { c.now = now }
}

// Consumer turns inbound payloads into persisted records.
type Consumer struct {
	table        Table
	logger       *logger.Logger
	mirrors      []repository.DetectionRepository
	cache        repository.LatestCache
	snapshots    SnapshotStore
	broadcaster  Broadcaster
	noneThrottle *stabilizer.Throttle
	now          func() time.Time

	mu    sync.Mutex
	stats Stats
}

// New creates a Consumer writing to table.
func New(table Table, logger *logger.Logger, opts ...Option) *Consumer {
	c := &Consumer{
		table:        table,
		logger:       logger,
		noneThrottle: stabilizer.NewThrottle(defaultNoneInterval),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HandleMessage processes one payload and reports whether it was accepted.
// Malformed payloads return an error wrapping ErrMalformed. A throttled
// "none" returns false with a nil error. A table failure is returned and the
// record is not mirrored; mirror failures are only logged.
func (c *Consumer) HandleMessage(ctx context.Context, payload []byte) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	msg, err := parseMessage(payload, now)
	if err != nil {
		c.stats.Malformed++
		return false, err
	}
	rec := msg.record

	if rec.Label == model.NoneLabel && !c.noneThrottle.Allow(now) {
		c.stats.Throttled++
		return false, nil
	}

	if err := c.table.Append(rec); err != nil {
		c.stats.Failed++
		return false, fmt.Errorf("failed to append record: %w", err)
	}

	if msg.image != "" && c.snapshots != nil {
		if data, err := decodeImage(msg.image); err != nil {
			c.logger.Warning("Ignoring image of %s event: %v", rec.Label, err)
		} else {
			rec.Image = c.snapshots.AddSnapshot(data, rec.Label, rec.Time())
		}
	}

	for _, m := range c.mirrors {
		mctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
		if err := m.Insert(mctx, &rec); err != nil {
			c.logger.Warning("Mirror insert failed for %s: %v", rec.Label, err)
		}
		cancel()
	}

	if c.cache != nil {
		if err := c.cache.SetLatest(ctx, rec); err != nil {
			c.logger.Warning("Failed to update latest detection: %v", err)
		}
	}

	if c.broadcaster != nil {
		if data, err := json.Marshal(dto.NewLatestDetection(rec)); err == nil {
			c.broadcaster.Broadcast(data)
		}
	}

	c.stats.Accepted++
	c.logger.Info("📥 %s → %s (%.3f)", formatTimestamp(rec.Timestamp), rec.Label, rec.Confidence)
	return true, nil
}

// OnMessage adapts HandleMessage to the broker callback. It logs and drops
// failures and never panics.
func (c *Consumer) OnMessage(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Recovered while handling message: %v", r)
		}
	}()

	if _, err := c.HandleMessage(context.Background(), payload); err != nil {
		if errors.Is(err, ErrMalformed) {
			c.logger.Warning("Dropping message: %v", err)
			return
		}
		c.logger.Error("Failed to log detection: %v", err)
	}
}

// Stats returns a snapshot of the counters.
func (c *Consumer) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func formatTimestamp(ts float64) string {
	return model.FromEpoch(ts).Format("2006-01-02 15:04:05")
}
