package stabilizer

import (
	"time"

	"smartdate/internal/model"
)

// ConsensusState is the current run of identical labels.
// An empty Label means no run is in progress.
type ConsensusState struct {
	Label     string
	RunLength int
}

// Engine decides when a run of classifications is worth publishing.
type Engine struct {
	Consensus     int
	MinConfidence float64

	state ConsensusState
}

// NewEngine creates an Engine that publishes after consensus identical
// labels, the last of which has at least minConfidence.
func NewEngine(consensus int, minConfidence float64) *Engine {
	return &Engine{Consensus: consensus, MinConfidence: minConfidence}
}

// Observe folds one classification into the run and returns the decision.
// A publishing decision resets the run, so the same sighting has to rebuild
// consensus from scratch before it can be published again.
func (e *Engine) Observe(label string, confidence float64, now time.Time) model.Decision {
	if label == e.state.Label {
		e.state.RunLength++
	} else {
		e.state = ConsensusState{Label: label, RunLength: 1}
	}

	publish := confidence >= e.MinConfidence && e.state.RunLength >= e.Consensus
	if publish {
		e.Reset()
	}

	return model.Decision{
		Publish:    publish,
		Label:      label,
		Confidence: confidence,
		Time:       now,
	}
}

// State returns a copy of the current run.
func (e *Engine) State() ConsensusState {
	return e.state
}

// Reset drops the current run.
func (e *Engine) Reset() {
	e.state = ConsensusState{}
}
