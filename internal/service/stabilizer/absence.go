package stabilizer

import (
	"time"

	"smartdate/internal/model"
)

// Display is what the local preview should show for a frame.
type Display struct {
	Visible    bool
	Box        model.Box
	Label      string
	Confidence float64
	Sticky     bool // retained from an earlier frame
}

// DisplayMemory is the last detection shown, kept for the sticky window.
type DisplayMemory struct {
	Box        model.Box
	Label      string
	Confidence float64
	LastSeen   time.Time
}

// Absence handles frames where the selector found nothing.
type Absence struct {
	StickyTimeout time.Duration // <= 0 disables sticky display
	Throttle      *Throttle

	memory *DisplayMemory
}

// NewAbsence creates an Absence tracker.
func NewAbsence(stickyTimeout, noneInterval time.Duration) *Absence {
	return &Absence{
		StickyTimeout: stickyTimeout,
		Throttle:      NewThrottle(noneInterval),
	}
}

// Remember refreshes the display memory after a processed classification.
func (a *Absence) Remember(box model.Box, label string, confidence float64, now time.Time) {
	a.memory = &DisplayMemory{
		Box:        box,
		Label:      label,
		Confidence: confidence,
		LastSeen:   now,
	}
}

// Memory returns the current display memory, if any.
func (a *Absence) Memory() (DisplayMemory, bool) {
	if a.memory == nil {
		return DisplayMemory{}, false
	}
	return *a.memory, true
}

// Miss handles a frame without a detection. It returns the display for the
// frame and whether a "none" event should be emitted now.
func (a *Absence) Miss(now time.Time) (Display, bool) {
	if a.memory != nil && a.StickyTimeout > 0 && now.Sub(a.memory.LastSeen) <= a.StickyTimeout {
		return Display{
			Visible:    true,
			Box:        a.memory.Box,
			Label:      a.memory.Label,
			Confidence: a.memory.Confidence,
			Sticky:     true,
		}, false
	}

	a.memory = nil
	return Display{}, a.Throttle.Allow(now)
}
