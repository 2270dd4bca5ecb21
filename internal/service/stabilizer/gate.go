package stabilizer

import (
	"fmt"
	"time"

	"smartdate/internal/model"
)

// Classifier labels the region of the current frame bounded by box.
type Classifier interface {
	Classify(box model.Box) (label string, confidence float64, err error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(box model.Box) (string, float64, error)

// Classify calls f(box).
func (f ClassifierFunc) Classify(box model.Box) (string, float64, error) {
	return f(box)
}

// Gate enforces a minimum interval between classifier invocations.
type Gate struct {
	Interval time.Duration

	last      time.Time
	attempted bool
}

// NewGate creates a Gate allowing one classification per interval.
func NewGate(interval time.Duration) *Gate {
	return &Gate{Interval: interval}
}

// Classify runs c on box unless the box is degenerate or the interval since
// the previous attempt has not elapsed. A skipped call returns ok=false with a
// nil error and leaves the gate untouched. An attempt that reaches the
// classifier counts toward the interval even when the classifier fails.
func (g *Gate) Classify(c Classifier, box model.Box, now time.Time) (res model.ClassificationResult, ok bool, err error) {
	if box.Empty() {
		return res, false, nil
	}
	if !g.Ready(now) {
		return res, false, nil
	}

	g.last = now
	g.attempted = true

	label, confidence, err := c.Classify(box)
	if err != nil {
		return res, false, fmt.Errorf("failed to classify region: %w", err)
	}

	return model.ClassificationResult{
		Label:      label,
		Confidence: confidence,
		Time:       now,
	}, true, nil
}

// Ready reports whether a classification would be attempted at now.
func (g *Gate) Ready(now time.Time) bool {
	return !g.attempted || now.Sub(g.last) >= g.Interval
}
