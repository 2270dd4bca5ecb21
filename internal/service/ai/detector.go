package ai

import (
	"fmt"
	"image"
	"os"

	"smartdate/internal/logger"
	"smartdate/internal/model"

	"gocv.io/x/gocv"
)

const (
	// DetectorInputSize is the square input of the YOLOv8 export.
	DetectorInputSize = 640
	// CandidateThreshold drops raw candidates before non-maximum suppression.
	CandidateThreshold = 0.25
	// NMSThreshold is the IoU above which overlapping candidates are merged.
	NMSThreshold = 0.7
)

// DetectorService runs a class-agnostic YOLOv8 ONNX model on frames.
type DetectorService struct {
	net       gocv.Net
	modelPath string
	logger    *logger.Logger
}

// NewDetectorService loads the ONNX model at modelPath.
func NewDetectorService(modelPath string, logger *logger.Logger) (*DetectorService, error) {
	service := &DetectorService{modelPath: modelPath, logger: logger}
	if err := service.initializeNet(); err != nil {
		return nil, err
	}
	return service, nil
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	net := gocv.ReadNetFromONNX(s.modelPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network %s", s.modelPath)
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.logger.Info("✅ Detector loaded: %s", s.modelPath)
	return nil
}

// Detect returns every candidate box of frame after non-maximum suppression,
// in frame pixel coordinates.
func (s *DetectorService) Detect(frame gocv.Mat) ([]model.Detection, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("frame is empty")
	}

	blob := gocv.BlobFromImage(frame, 1.0/255.0, image.Pt(DetectorInputSize, DetectorInputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	sizes := output.Size()
	if len(sizes) != 3 || sizes[1] < 5 {
		return nil, fmt.Errorf("unexpected detector output shape %v", sizes)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read detector output: %w", err)
	}

	scale := image.Pt(frame.Cols(), frame.Rows())
	boxes, scores := parseYOLOOutput(data, sizes[1], sizes[2], scale, CandidateThreshold)
	if len(boxes) == 0 {
		return nil, nil
	}

	keep := gocv.NMSBoxes(boxes, scores, CandidateThreshold, NMSThreshold)
	dets := make([]model.Detection, 0, len(keep))
	for _, i := range keep {
		r := boxes[i]
		dets = append(dets, model.Detection{
			Box:        model.Box{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y},
			Confidence: float64(scores[i]),
		})
	}
	return dets, nil
}

// parseYOLOOutput decodes a [1, 4+classes, anchors] YOLOv8 tensor. Each
// anchor column holds cx, cy, w, h in input pixels followed by class scores;
// the best class score is the candidate confidence. Boxes are scaled to a
// frame of size frame and clamped to it.
func parseYOLOOutput(data []float32, rows, anchors int, frame image.Point, threshold float32) ([]image.Rectangle, []float32) {
	if len(data) < rows*anchors {
		return nil, nil
	}

	sx := float32(frame.X) / DetectorInputSize
	sy := float32(frame.Y) / DetectorInputSize
	bounds := image.Rect(0, 0, frame.X, frame.Y)

	var boxes []image.Rectangle
	var scores []float32
	for a := 0; a < anchors; a++ {
		best := float32(0)
		for c := 4; c < rows; c++ {
			if v := data[c*anchors+a]; v > best {
				best = v
			}
		}
		if best < threshold {
			continue
		}

		cx, cy := data[a], data[anchors+a]
		w, h := data[2*anchors+a], data[3*anchors+a]
		r := image.Rect(
			int((cx-w/2)*sx), int((cy-h/2)*sy),
			int((cx+w/2)*sx), int((cy+h/2)*sy),
		).Intersect(bounds)
		if r.Empty() {
			continue
		}

		boxes = append(boxes, r)
		scores = append(scores, best)
	}
	return boxes, scores
}

// Close releases the network.
func (s *DetectorService) Close() error {
	return s.net.Close()
}
