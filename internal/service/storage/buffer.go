package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"time"

	"faceattend/internal/config"
	"faceattend/internal/dto"
	"faceattend/internal/logger"
	"faceattend/internal/metrics"
)

const (
	// DefaultBufferLimit limits how many frames per student are buffered before flushing.
	DefaultBufferLimit = 10
	// DefaultFlushInterval defines how often (seconds) buffered frames are flushed to disk.
	DefaultFlushInterval = 30

	timestampLayout = "2006-01-02_15-04-05.000"
)

// BufferService keeps evidence frames of marked students in memory and
// periodically flushes them to disk.
type BufferService struct {
	imagesDir     string
	limit         int
	flushInterval time.Duration
	frames        []dto.BufferedFrame
	bufferCount   map[string]int
	mu            sync.Mutex
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

// NewBufferService creates a BufferService writing to cfg.ImageDirectory.
func NewBufferService(cfg *config.Config, logger *logger.Logger, m *metrics.Metrics) *BufferService {
	limit := cfg.ImageBufferLimit
	if limit <= 0 {
		limit = DefaultBufferLimit
	}
	interval := cfg.ImageFlushInterval
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &BufferService{
		imagesDir:     cfg.ImageDirectory,
		limit:         limit,
		flushInterval: time.Duration(interval) * time.Second,
		frames:        make([]dto.BufferedFrame, 0),
		bufferCount:   make(map[string]int),
		logger:        logger,
		metrics:       m,
	}
}

// Run flushes on every tick until ctx is done, then flushes once more.
func (s *BufferService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.FlushFrames()
			return
		case <-ticker.C:
			s.FlushFrames()
		}
	}
}

// AddFrame JPEG-encodes img and buffers it for studentID. Frames beyond the
// per-student limit are dropped until the next flush.
func (s *BufferService) AddFrame(img image.Image, studentID, name string) {
	s.mu.Lock()
	full := s.bufferCount[studentID] >= s.limit
	s.mu.Unlock()
	if full {
		return
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
		s.logger.Error("Failed to encode evidence frame for %s: %v", studentID, err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bufferCount[studentID] >= s.limit {
		return
	}
	s.frames = append(s.frames, dto.BufferedFrame{
		Timestamp: time.Now().Format(timestampLayout),
		StudentID: studentID,
		Name:      name,
		Data:      buf.Bytes(),
	})
	s.bufferCount[studentID]++
}

// Pending returns the number of buffered frames.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// FlushFrames writes buffered frames to disk and resets the buffer and per-student counters.
func (s *BufferService) FlushFrames() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.frames) == 0 {
		return
	}

	if err := os.MkdirAll(s.imagesDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return
	}

	savedCount := 0
	for _, frame := range s.frames {
		filename := fmt.Sprintf("%s_%s.jpg", frame.Timestamp, frame.StudentID)
		fullpath := filepath.Join(s.imagesDir, filename)

		if err := os.WriteFile(fullpath, frame.Data, 0644); err != nil {
			s.logger.Error("Error saving evidence frame %s: %v", filename, err)
			continue
		}
		savedCount++
	}

	s.logger.Info("Flushed %d evidence frames to disk", savedCount)
	s.metrics.EvidenceWritten(savedCount)
	s.frames = s.frames[:0]
	s.bufferCount = make(map[string]int)
}
