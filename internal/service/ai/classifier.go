package ai

import (
	"fmt"
	"image"
	"os"

	"smartdate/internal/logger"
	"smartdate/internal/model"

	"gocv.io/x/gocv"
)

// ClassifierInputSize is the square input of the date classifier.
const ClassifierInputSize = 300

// ClassifierService labels date crops with an EfficientNet ONNX export.
// The export must take NCHW RGB input in the 0..255 range and end in a
// softmax over model.Labels.
type ClassifierService struct {
	net       gocv.Net
	modelPath string
	logger    *logger.Logger
}

// NewClassifierService loads the ONNX model at modelPath.
func NewClassifierService(modelPath string, logger *logger.Logger) (*ClassifierService, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network %s", modelPath)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable target: %w", err)
	}

	logger.Info("✅ Classifier loaded: %s", modelPath)
	return &ClassifierService{net: net, modelPath: modelPath, logger: logger}, nil
}

// Classify returns the most likely label of crop and its probability.
func (s *ClassifierService) Classify(crop gocv.Mat) (string, float64, error) {
	if crop.Empty() {
		return "", 0, fmt.Errorf("crop is empty")
	}

	blob := gocv.BlobFromImage(crop, 1.0, image.Pt(ClassifierInputSize, ClassifierInputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	if output.Total() != len(model.Labels) {
		return "", 0, fmt.Errorf("unexpected classifier output size %d, want %d", output.Total(), len(model.Labels))
	}

	_, maxVal, _, maxLoc := gocv.MinMaxLoc(output)
	label, err := model.LabelAt(maxLoc.X)
	if err != nil {
		return "", 0, err
	}
	return label, float64(maxVal), nil
}

// Close releases the network.
func (s *ClassifierService) Close() error {
	return s.net.Close()
}

// FrameClassifier classifies regions of the frame most recently passed to
// SetFrame. It satisfies stabilizer.Classifier.
type FrameClassifier struct {
	service *ClassifierService
	frame   gocv.Mat
}

// NewFrameClassifier wraps service.
func NewFrameClassifier(service *ClassifierService) *FrameClassifier {
	return &FrameClassifier{service: service}
}

// SetFrame sets the frame that subsequent Classify calls crop from. The
// frame is borrowed, not copied.
func (f *FrameClassifier) SetFrame(frame gocv.Mat) {
	f.frame = frame
}

// Classify crops box out of the current frame and labels it.
func (f *FrameClassifier) Classify(box model.Box) (string, float64, error) {
	r, ok := ClampBox(box, image.Pt(f.frame.Cols(), f.frame.Rows()))
	if !ok {
		return "", 0, fmt.Errorf("box %v outside frame", box)
	}

	roi := f.frame.Region(r)
	defer roi.Close()
	return f.service.Classify(roi)
}

// ClampBox intersects box with a frame of the given size.
func ClampBox(box model.Box, frame image.Point) (image.Rectangle, bool) {
	r := box.Rect().Intersect(image.Rect(0, 0, frame.X, frame.Y))
	return r, !r.Empty()
}

// EncodeCrop returns the region box of frame as JPEG bytes.
func EncodeCrop(frame gocv.Mat, box model.Box) ([]byte, error) {
	r, ok := ClampBox(box, image.Pt(frame.Cols(), frame.Rows()))
	if !ok {
		return nil, fmt.Errorf("box %v outside frame", box)
	}

	roi := frame.Region(r)
	defer roi.Close()

	buf, err := gocv.IMEncode(".jpg", roi)
	if err != nil {
		return nil, fmt.Errorf("failed to encode crop: %w", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}
