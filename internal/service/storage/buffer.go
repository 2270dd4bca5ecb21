package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"smartdate/internal/dto"
	"smartdate/internal/logger"
)

const (
	// DefaultBufferLimit limits how many snapshots per label are buffered before flushing.
	DefaultBufferLimit = 20
	// DefaultFlushInterval defines how often buffered snapshots are flushed to disk.
	DefaultFlushInterval = 10 * time.Second
)

// BufferService buffers event crops in memory and periodically flushes them to disk.
type BufferService struct {
	imagesDir   string
	limit       int
	images      []dto.BufferedImage
	bufferCount map[string]int
	mu          sync.Mutex
	logger      *logger.Logger
}

// NewBufferService creates a new BufferService writing into imagesDir.
func NewBufferService(imagesDir string, limit int, logger *logger.Logger) *BufferService {
	if limit <= 0 {
		limit = DefaultBufferLimit
	}
	return &BufferService{
		imagesDir:   imagesDir,
		limit:       limit,
		images:      make([]dto.BufferedImage, 0),
		bufferCount: make(map[string]int),
		logger:      logger,
	}
}

// Run flushes on every tick until ctx is done, then flushes once more.
func (s *BufferService) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.FlushImages()
		case <-ctx.Done():
			s.FlushImages()
			return nil
		}
	}
}

// SnapshotName is the file name used for a crop of label taken at.
func SnapshotName(label string, at time.Time) string {
	return fmt.Sprintf("%s_%s.jpg", at.Format("2006-01-02_15-04-05.000"), sanitize(label))
}

// AddSnapshot buffers a JPEG crop and returns the name it will be flushed
// under. Once a label reaches the buffer limit further crops are dropped
// until the next flush and an empty name is returned.
func (s *BufferService) AddSnapshot(data []byte, label string, at time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bufferCount[label] >= s.limit {
		s.logger.Warning("Snapshot buffer full for %s, dropping crop", label)
		return ""
	}

	name := SnapshotName(label, at)
	s.images = append(s.images, dto.BufferedImage{Filename: name, Label: label, Data: data})
	s.bufferCount[label]++
	s.logger.Debug("Buffer size for %s: %d/%d", label, s.bufferCount[label], s.limit)
	return name
}

// FlushImages writes buffered crops to disk and resets the buffer and per-label counters.
func (s *BufferService) FlushImages() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) == 0 {
		return
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return
	}

	savedCount := 0
	for _, image := range s.images {
		fullpath := filepath.Join(s.imagesDir, image.Filename)
		if err := os.WriteFile(fullpath, image.Data, 0644); err != nil {
			s.logger.Error("Error saving image %s: %v", image.Filename, err)
			continue
		}
		savedCount++
	}

	s.logger.Info("Flushed %d snapshots to disk", savedCount)
	s.images = s.images[:0]
	s.bufferCount = make(map[string]int)
}

// Path resolves a snapshot name inside the image directory. Names that
// would escape the directory or are not JPEG files are rejected.
func (s *BufferService) Path(name string) (string, bool) {
	if name == "" || name != filepath.Base(name) || !strings.HasSuffix(name, ".jpg") {
		return "", false
	}
	return filepath.Join(s.imagesDir, name), true
}

// Pending returns the buffered crop with the given name, if not yet flushed.
func (s *BufferService) Pending(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, image := range s.images {
		if image.Filename == name {
			return image.Data, true
		}
	}
	return nil, false
}

func sanitize(label string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, label)
}
