package model

import (
	"image"
	"time"
)

// Box is an axis-aligned bounding box in frame pixel coordinates.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Width returns the horizontal extent of the box, or 0 for inverted boxes.
func (b Box) Width() int {
	if b.X2 <= b.X1 {
		return 0
	}
	return b.X2 - b.X1
}

// Height returns the vertical extent of the box, or 0 for inverted boxes.
func (b Box) Height() int {
	if b.Y2 <= b.Y1 {
		return 0
	}
	return b.Y2 - b.Y1
}

// Area returns the box area in pixels.
func (b Box) Area() int {
	return b.Width() * b.Height()
}

// Empty reports whether the box covers no pixels.
func (b Box) Empty() bool {
	return b.Area() == 0
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

// Detection is a single detector candidate for one frame.
type Detection struct {
	Box        Box
	Confidence float64
}

// ClassificationResult is the output of one classifier invocation.
type ClassificationResult struct {
	Label      string
	Confidence float64
	Time       time.Time
}

// Decision is what the stabilizer concluded about one classification.
// Only decisions with Publish set ever leave the process.
type Decision struct {
	Publish    bool
	Label      string
	Confidence float64
	Time       time.Time
}
