package stabilizer

import (
	"image"

	"smartdate/internal/model"
)

// ShapeFilter rejects boxes that cannot plausibly contain a single date.
// Area bounds are fractions of the frame area.
type ShapeFilter struct {
	MinAspect float64
	MaxAspect float64
	MinArea   float64
	MaxArea   float64
}

// Accept reports whether box passes the filter for a frame of the given size.
// The area check is skipped when the frame size is unknown.
func (f ShapeFilter) Accept(box model.Box, frame image.Point) bool {
	w, h := box.Width(), box.Height()
	if w == 0 || h == 0 {
		return false
	}

	aspect := float64(w) / float64(h)
	if aspect < f.MinAspect || aspect > f.MaxAspect {
		return false
	}

	frameArea := frame.X * frame.Y
	if frameArea <= 0 {
		return true
	}
	ratio := float64(box.Area()) / float64(frameArea)
	return ratio >= f.MinArea && ratio <= f.MaxArea
}

// Selector picks the single most relevant detection of a frame.
type Selector struct {
	MinConfidence float64
	Shape         *ShapeFilter // nil disables shape filtering
}

// Select returns the highest-confidence detection that survives the
// confidence and shape filters. Ties keep the first candidate seen.
func (s Selector) Select(dets []model.Detection, frame image.Point) (model.Detection, bool) {
	var best model.Detection
	found := false

	for _, d := range dets {
		if d.Confidence < s.MinConfidence {
			continue
		}
		if s.Shape != nil && !s.Shape.Accept(d.Box, frame) {
			continue
		}
		if !found || d.Confidence > best.Confidence {
			best = d
			found = true
		}
	}

	return best, found
}
