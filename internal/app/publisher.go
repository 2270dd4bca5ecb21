package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"smartdate/internal/broker"
	"smartdate/internal/config"
	"smartdate/internal/logger"
	"smartdate/internal/service/ai"
	"smartdate/internal/service/publisher"
	"smartdate/internal/service/stabilizer"

	"gocv.io/x/gocv"
)

const (
	maxReadFailures = 30
	readRetryDelay  = 100 * time.Millisecond
)

// Publisher owns the camera loop: detect, classify, stabilize, publish.
type Publisher struct {
	config     *config.Config
	logger     *logger.Logger
	camera     *ai.Camera
	detector   *ai.DetectorService
	classifier *ai.ClassifierService
	frames     *ai.FrameClassifier
	processor  *stabilizer.Processor
	broker     *broker.Client
	events     *publisher.Publisher
	preview    *ai.Preview
}

// NewPublisher loads the models, opens the camera and connects to the
// broker. Any failure is returned and the acquired resources are released.
func NewPublisher(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*Publisher, error) {
	p := &Publisher{
		config:    cfg,
		logger:    logger,
		processor: stabilizer.NewProcessor(cfg.Stabilizer),
		broker:    broker.NewClient(cfg.Broker, "publisher", logger),
	}
	fail := func(err error) (*Publisher, error) {
		p.Close()
		return nil, err
	}

	var err error
	if p.detector, err = ai.NewDetectorService(cfg.Vision.DetectorModelPath, logger); err != nil {
		return fail(err)
	}
	if p.classifier, err = ai.NewClassifierService(cfg.Vision.ClassifierModelPath, logger); err != nil {
		return fail(err)
	}
	p.frames = ai.NewFrameClassifier(p.classifier)

	if p.camera, err = ai.OpenCamera(cfg.Vision.CameraIndex); err != nil {
		return fail(err)
	}

	if err = p.broker.Connect(ctx); err != nil {
		return fail(err)
	}
	p.events = publisher.New(p.broker, logger, publisher.WithQueueSize(cfg.Vision.PublishQueue))

	if cfg.Vision.ShowWindow {
		p.preview = ai.NewPreview("SmartDate", cfg.Stabilizer.ClassConf)
	}
	return p, nil
}

// Run processes frames until ctx is cancelled, the operator quits the
// preview or the camera stops delivering frames.
func (p *Publisher) Run(ctx context.Context) error {
	frame := gocv.NewMat()
	defer frame.Close()

	p.logger.Info("🚀 SmartDate publisher")
	p.logger.Info("📷 Camera: %d", p.config.Vision.CameraIndex)
	p.logger.Info("📡 Topic: %s", p.config.Broker.Topic)

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := p.camera.Read(&frame); err != nil {
			failures++
			if failures >= maxReadFailures {
				return fmt.Errorf("camera stopped delivering frames: %w", err)
			}
			time.Sleep(readRetryDelay)
			continue
		}
		failures = 0

		out, err := p.processFrame(frame, time.Now())
		if err != nil {
			p.logger.Warning("Frame processing error: %v", err)
		}

		if p.preview != nil {
			quit, err := p.preview.Show(&frame, out.Display)
			if err != nil {
				p.logger.Warning("Preview error: %v", err)
			}
			if quit {
				p.logger.Info("Preview closed by operator")
				return nil
			}
		}
	}
}

func (p *Publisher) processFrame(frame gocv.Mat, now time.Time) (stabilizer.Outcome, error) {
	dets, err := p.detector.Detect(frame)
	if err != nil {
		return stabilizer.Outcome{}, err
	}

	p.frames.SetFrame(frame)
	out, err := p.processor.Process(dets, image.Pt(frame.Cols(), frame.Rows()), p.frames, now)
	if err != nil {
		return out, fmt.Errorf("failed to classify detection: %w", err)
	}

	switch out.Kind {
	case stabilizer.KindPublish:
		var crop []byte
		if p.config.Vision.IncludeImage {
			if crop, err = ai.EncodeCrop(frame, out.Detection.Box); err != nil {
				p.logger.Warning("Publishing without image: %v", err)
			}
		}
		p.events.Publish(out.Decision, crop)
		p.logger.Info("📤 Published %s (%.3f)", out.Decision.Label, out.Decision.Confidence)

	case stabilizer.KindAbsent:
		if out.EmitNone {
			p.events.PublishNone(now)
			p.logger.Debug("📤 Published none")
		}
	}
	return out, nil
}

// Close releases the camera, drains the publish queue and disconnects.
func (p *Publisher) Close() error {
	var errs []error
	if p.camera != nil {
		errs = append(errs, p.camera.Close())
	}
	if p.preview != nil {
		errs = append(errs, p.preview.Close())
	}
	if p.events != nil {
		errs = append(errs, p.events.Close())
		stats := p.events.Stats()
		p.logger.Info("🛑 Publisher stopped: published=%d dropped=%d failed=%d",
			stats.Published, stats.Dropped, stats.Failed)
	}
	if p.broker != nil {
		p.broker.Disconnect()
	}
	if p.classifier != nil {
		errs = append(errs, p.classifier.Close())
	}
	if p.detector != nil {
		errs = append(errs, p.detector.Close())
	}
	return errors.Join(errs...)
}
