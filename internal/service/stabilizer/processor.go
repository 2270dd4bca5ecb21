package stabilizer

import (
	"image"
	"time"

	"smartdate/internal/config"
	"smartdate/internal/model"
)

// Kind classifies what happened to a frame.
type Kind int

const (
	// KindAbsent means no detection survived selection.
	KindAbsent Kind = iota
	// KindSkipped means a detection was found but the gate declined to classify.
	KindSkipped
	// KindObserved means the frame was classified without reaching consensus.
	KindObserved
	// KindPublish means the frame completed a publish-worthy run.
	KindPublish
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindSkipped:
		return "skipped"
	case KindObserved:
		return "observed"
	case KindPublish:
		return "publish"
	default:
		return "unknown"
	}
}

// Outcome is the result of processing one frame.
type Outcome struct {
	Kind      Kind
	Detection model.Detection // selected detection, zero for KindAbsent
	Decision  model.Decision  // set for KindObserved and KindPublish
	Display   Display
	EmitNone  bool // only for KindAbsent
}

// Processor runs one frame through selector, gate, engine and absence tracker.
type Processor struct {
	Selector Selector
	Gate     *Gate
	Engine   *Engine
	Absence  *Absence
}

// NewProcessor builds a Processor from the stabilizer settings.
func NewProcessor(cfg config.StabilizerConfig) *Processor {
	sel := Selector{MinConfidence: cfg.YoloConf}
	if cfg.ShapeFilter {
		sel.Shape = &ShapeFilter{
			MinAspect: cfg.MinAspect,
			MaxAspect: cfg.MaxAspect,
			MinArea:   cfg.MinArea,
			MaxArea:   cfg.MaxArea,
		}
	}

	return &Processor{
		Selector: sel,
		Gate:     NewGate(cfg.PredInterval),
		Engine:   NewEngine(cfg.Consensus, cfg.ClassConf),
		Absence:  NewAbsence(cfg.StickyTimeout, cfg.NoneInterval),
	}
}

// Process handles the detections of one frame. frame is the frame size in
// pixels and is only used by the shape filter. A classifier error leaves the
// engine and display memory untouched.
func (p *Processor) Process(dets []model.Detection, frame image.Point, c Classifier, now time.Time) (Outcome, error) {
	det, found := p.Selector.Select(dets, frame)
	if !found {
		display, emit := p.Absence.Miss(now)
		return Outcome{Kind: KindAbsent, Display: display, EmitNone: emit}, nil
	}

	res, ok, err := p.Gate.Classify(c, det.Box, now)
	if err != nil {
		return Outcome{Kind: KindSkipped, Detection: det, Display: p.pending(det)}, err
	}
	if !ok {
		return Outcome{Kind: KindSkipped, Detection: det, Display: p.pending(det)}, nil
	}

	decision := p.Engine.Observe(res.Label, res.Confidence, now)
	p.Absence.Remember(det.Box, res.Label, res.Confidence, now)

	kind := KindObserved
	if decision.Publish {
		kind = KindPublish
	}

	return Outcome{
		Kind:      kind,
		Detection: det,
		Decision:  decision,
		Display: Display{
			Visible:    true,
			Box:        det.Box,
			Label:      res.Label,
			Confidence: res.Confidence,
		},
	}, nil
}

// pending is the display for a detected but unclassified frame: the current
// box with the last known label.
func (p *Processor) pending(det model.Detection) Display {
	d := Display{Visible: true, Box: det.Box}
	if mem, ok := p.Absence.Memory(); ok {
		d.Label = mem.Label
		d.Confidence = mem.Confidence
	}
	return d
}
