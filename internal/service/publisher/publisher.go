// Package publisher turns stabilizer decisions into wire events and hands
// them to the broker without blocking the frame loop.
package publisher

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"smartdate/internal/logger"
	"smartdate/internal/model"
)

const (
	defaultQueueSize    = 16
	defaultDrainTimeout = 3 * time.Second
)

// Sender delivers one serialized event to the broker.
type Sender interface {
	Publish(payload []byte) error
}

// Stats counts what happened to enqueued events.
type Stats struct {
	Published uint64
	Dropped   uint64 // queue full or publisher closed
	Failed    uint64 // rejected by the sender
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithQueueSize sets the queue capacity. Default: 16.
func WithQueueSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.queueSize = n
		}
	}
}

// WithRecommendation attaches the quality note to category events.
func WithRecommendation(enabled bool) Option {
	return func(p *Publisher) { p.recommend = enabled }
}

// WithDrainTimeout bounds how long Close waits for queued events.
func WithDrainTimeout(d time.Duration) Option {
	return func(p *Publisher) { p.drainTimeout = d }
}

// Publisher serializes events and sends them from a background goroutine.
// Delivery is at-most-once: a full queue drops the event.
type Publisher struct {
	sender       Sender
	logger       *logger.Logger
	queue        chan []byte
	done         chan struct{}
	queueSize    int
	drainTimeout time.Duration
	recommend    bool

	mu     sync.RWMutex // guards closed and the queue close
	closed bool

	statsMu sync.Mutex
	stats   Stats
}

// New creates a Publisher and starts its send loop.
func New(sender Sender, logger *logger.Logger, opts ...Option) *Publisher {
	p := &Publisher{
		sender:       sender,
		logger:       logger,
		queueSize:    defaultQueueSize,
		drainTimeout: defaultDrainTimeout,
		recommend:    true,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.queue = make(chan []byte, p.queueSize)
	p.done = make(chan struct{})
	go p.run()
	return p
}

// BuildEvent creates the wire event for a publishing decision. crop is an
// encoded JPEG and may be nil.
func BuildEvent(d model.Decision, crop []byte, recommend bool) model.DetectionEvent {
	ev := model.DetectionEvent{
		Label:      d.Label,
		Confidence: model.RoundConfidence(d.Confidence),
		Timestamp:  model.EpochSeconds(d.Time),
	}
	if len(crop) > 0 {
		ev.Image = base64.StdEncoding.EncodeToString(crop)
	}
	if recommend && d.Label != model.NoneLabel {
		ev.Recommendation = model.QualityNote(d.Confidence)
	}
	return ev
}

// NoneEvent creates the "nothing detected" event for now.
func NoneEvent(now time.Time) model.DetectionEvent {
	return model.DetectionEvent{
		Label:      model.NoneLabel,
		Confidence: 0,
		Timestamp:  model.EpochSeconds(now),
	}
}

// Publish enqueues the event for d. It never blocks.
func (p *Publisher) Publish(d model.Decision, crop []byte) {
	p.enqueue(BuildEvent(d, crop, p.recommend))
}

// PublishNone enqueues a "none" event stamped now. It never blocks.
func (p *Publisher) PublishNone(now time.Time) {
	p.enqueue(NoneEvent(now))
}

func (p *Publisher) enqueue(ev model.DetectionEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("Failed to encode event %s: %v", ev.Label, err)
		p.count(func(s *Stats) { s.Failed++ })
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.count(func(s *Stats) { s.Dropped++ })
		return
	}

	select {
	case p.queue <- payload:
	default:
		p.logger.Warning("Publish queue full, dropping %s event", ev.Label)
		p.count(func(s *Stats) { s.Dropped++ })
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	for payload := range p.queue {
		if err := p.sender.Publish(payload); err != nil {
			p.logger.Error("Failed to publish event: %v", err)
			p.count(func(s *Stats) { s.Failed++ })
			continue
		}
		p.count(func(s *Stats) { s.Published++ })
	}
}

func (p *Publisher) count(f func(*Stats)) {
	p.statsMu.Lock()
	f(&p.stats)
	p.statsMu.Unlock()
}

// Stats returns a snapshot of the counters.
func (p *Publisher) Stats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

// Close stops accepting events and waits for the queue to drain, up to the
// drain timeout.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-time.After(p.drainTimeout):
		return fmt.Errorf("failed to drain publish queue: %d events pending", len(p.queue))
	}
}
