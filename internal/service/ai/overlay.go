package ai

import (
	"fmt"
	"image"
	"image/color"

	"smartdate/internal/service/stabilizer"

	"gocv.io/x/gocv"
)

var (
	confidentColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	uncertainColor = color.RGBA{R: 255, G: 140, B: 0, A: 0}
	absentColor    = color.RGBA{R: 255, G: 0, B: 0, A: 0}
)

// displayColor picks green for confident labels and orange otherwise.
func displayColor(d stabilizer.Display, classConf float64) color.RGBA {
	if d.Label != "" && d.Confidence >= classConf {
		return confidentColor
	}
	return uncertainColor
}

// displayText is the caption drawn above the box.
func displayText(d stabilizer.Display) string {
	if d.Label == "" {
		return "..."
	}
	return fmt.Sprintf("%s (%.2f)", d.Label, d.Confidence)
}

// DrawDisplay draws d onto frame.
func DrawDisplay(frame *gocv.Mat, d stabilizer.Display, classConf float64) error {
	if !d.Visible {
		return gocv.PutText(frame, "No date detected", image.Pt(30, 40), gocv.FontHersheySimplex, 1, absentColor, 2)
	}

	c := displayColor(d, classConf)
	thickness := 3
	if d.Sticky {
		thickness = 1
	}

	if err := gocv.Rectangle(frame, d.Box.Rect(), c, thickness); err != nil {
		return fmt.Errorf("failed to draw rectangle: %w", err)
	}
	pt := image.Pt(d.Box.X1, max(d.Box.Y1-10, 15))
	if err := gocv.PutText(frame, displayText(d), pt, gocv.FontHersheySimplex, 0.8, c, 2); err != nil {
		return fmt.Errorf("failed to draw text: %w", err)
	}
	return nil
}

// Preview is the local operator window.
type Preview struct {
	window    *gocv.Window
	classConf float64
}

// NewPreview opens a window titled title.
func NewPreview(title string, classConf float64) *Preview {
	return &Preview{window: gocv.NewWindow(title), classConf: classConf}
}

// Show draws d on frame, displays it and reports whether the operator
// pressed q.
func (p *Preview) Show(frame *gocv.Mat, d stabilizer.Display) (bool, error) {
	if err := DrawDisplay(frame, d, p.classConf); err != nil {
		return false, err
	}
	p.window.IMShow(*frame)
	return p.window.WaitKey(1)&0xFF == 'q', nil
}

// Close destroys the window.
func (p *Preview) Close() error {
	return p.window.Close()
}
