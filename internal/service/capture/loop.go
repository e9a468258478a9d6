// Package capture runs the camera session: it reads frames on a dedicated
// goroutine, feeds them to recognition and the attendance gate, and publishes
// annotated frames for display.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"faceattend/internal/logger"
	"faceattend/internal/metrics"
	"faceattend/internal/service/attendance"
	"faceattend/internal/service/camera"
	"faceattend/internal/service/recognition"
)

// DefaultStopTimeout bounds how long Stop waits for the capture goroutine.
const DefaultStopTimeout = time.Second

// noFrameBackoff is the pause after a read that produced no frame.
const noFrameBackoff = 10 * time.Millisecond

var (
	// ErrAlreadyRunning is returned by Start while a session is active.
	ErrAlreadyRunning = errors.New("capture already started")
	// ErrStillStopping is returned by Start when the previous goroutine has not exited yet.
	ErrStillStopping = errors.New("previous capture session still stopping")
)

// State is the capture session state.
type State int

const (
	StateStopped State = iota
	StateActive
	StateRecognizing
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateActive:
		return "active"
	case StateRecognizing:
		return "active+recognizing"
	default:
		return "unknown"
	}
}

// Recognizer produces per-face results for a frame.
type Recognizer interface {
	Recognize(frame image.Image) []recognition.Result
	ResetFrameCount()
}

// Gate decides whether a recognised student is marked.
type Gate interface {
	Offer(ctx context.Context, studentID, name string, now time.Time) attendance.Outcome
}

// Publisher receives the annotated frame after every cycle.
type Publisher interface {
	Publish(img image.Image, results []recognition.Result, label string, recognizing bool)
}

// EvidenceSink receives the annotated frame when a student is marked.
type EvidenceSink interface {
	AddFrame(img image.Image, studentID, name string)
}

// Options configures the camera session.
type Options struct {
	CameraIndex int
	Width       int
	Height      int
	StopTimeout time.Duration
}

// Loop owns the camera source and the capture goroutine.
type Loop struct {
	source    camera.Source
	pipeline  Recognizer
	gate      Gate
	publisher Publisher
	evidence  EvidenceSink
	opts      Options
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	mu          sync.Mutex
	started     bool
	cancel      context.CancelFunc
	done        chan struct{}
	released    chan struct{}
	running     atomic.Bool
	recognizing atomic.Bool
	lastErr     atomic.Pointer[error]
}

// NewLoop creates a stopped capture loop. evidence may be nil.
func NewLoop(source camera.Source, pipeline Recognizer, gate Gate, publisher Publisher, evidence EvidenceSink, opts Options, logger *logger.Logger, m *metrics.Metrics) *Loop {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	return &Loop{
		source:    source,
		pipeline:  pipeline,
		gate:      gate,
		publisher: publisher,
		evidence:  evidence,
		opts:      opts,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Start opens the camera and starts the capture goroutine. It fails with
// camera.ErrCameraUnavailable when the device cannot be opened.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return ErrAlreadyRunning
	}
	if l.released != nil {
		select {
		case <-l.released:
		case <-time.After(l.opts.StopTimeout):
			return ErrStillStopping
		}
	}

	if err := l.source.Open(l.opts.CameraIndex, l.opts.Width, l.opts.Height); err != nil {
		l.logger.Error("Failed to open camera %d: %v", l.opts.CameraIndex, err)
		if !errors.Is(err, camera.ErrCameraUnavailable) {
			err = fmt.Errorf("%w: %v", camera.ErrCameraUnavailable, err)
		}
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	l.released = make(chan struct{})
	l.lastErr.Store(nil)
	l.pipeline.ResetFrameCount()
	l.started = true
	l.running.Store(true)
	l.metrics.SetCaptureRunning(true)

	go l.run(runCtx, l.done)

	l.logger.Info("Capture started on camera %d (%dx%d)", l.opts.CameraIndex, l.opts.Width, l.opts.Height)
	return nil
}

// Stop signals the capture goroutine, waits for it up to the stop timeout,
// releases the camera and returns to the stopped state. If the goroutine has
// not exited in time the camera is released once it does.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.started {
		return
	}
	l.started = false
	l.cancel()

	done, released := l.done, l.released
	select {
	case <-done:
		l.release(released)
	case <-time.After(l.opts.StopTimeout):
		l.logger.Warning("Capture goroutine did not exit within %v", l.opts.StopTimeout)
		go func() {
			<-done
			l.release(released)
		}()
	}

	l.metrics.SetCaptureRunning(false)
	l.logger.Info("Capture stopped")
}

func (l *Loop) release(released chan struct{}) {
	defer close(released)
	if err := l.source.Release(); err != nil {
		l.logger.Warning("Failed to release camera: %v", err)
	}
}

// SetRecognition turns recognition on or off without interrupting capture.
func (l *Loop) SetRecognition(enabled bool) {
	l.recognizing.Store(enabled)
	l.logger.Info("Recognition enabled: %v", enabled)
}

// Recognizing reports whether recognition is enabled.
func (l *Loop) Recognizing() bool {
	return l.recognizing.Load()
}

// State reports the session state. A session whose goroutine ended on a
// camera failure stays Active until Stop is called.
func (l *Loop) State() State {
	l.mu.Lock()
	started := l.started
	l.mu.Unlock()

	switch {
	case !started:
		return StateStopped
	case l.recognizing.Load():
		return StateRecognizing
	default:
		return StateActive
	}
}

// Running reports whether the capture goroutine is alive.
func (l *Loop) Running() bool {
	return l.running.Load()
}

// Err returns the fatal error that ended the last session, if any.
func (l *Loop) Err() error {
	if p := l.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

func (l *Loop) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer l.running.Store(false)

	for {
		if ctx.Err() != nil {
			return
		}

		frame, err := l.source.Read()
		if ctx.Err() != nil {
			return
		}
		if frame == nil || err != nil {
			if err == nil || errors.Is(err, camera.ErrNoFrame) {
				l.metrics.Frame("empty")
				l.logger.Warning("Camera returned no frame: %v", err)
				if !sleep(ctx, noFrameBackoff) {
					return
				}
				continue
			}
			l.logger.Error("Camera read failed, capture halted: %v", err)
			l.lastErr.Store(&err)
			l.metrics.CaptureFailed()
			l.metrics.SetCaptureRunning(false)
			return
		}

		l.metrics.Frame("read")
		l.process(ctx, frame)
	}
}

// process runs recognition on one frame, offers every known face to the gate
// and publishes the annotated frame.
func (l *Loop) process(ctx context.Context, frame image.Image) {
	recognizing := l.recognizing.Load()

	var results []recognition.Result
	if recognizing {
		results = l.pipeline.Recognize(frame)
	}

	var marked []recognition.Result
	now := l.now()
	for _, r := range results {
		if !r.Known {
			continue
		}
		if l.gate.Offer(ctx, r.StudentID, r.Name, now) == attendance.Marked {
			marked = append(marked, r)
		}
	}

	annotated := Annotate(frame, results)
	if l.evidence != nil {
		for _, r := range marked {
			l.evidence.AddFrame(annotated, r.StudentID, r.Name)
		}
	}

	l.publisher.Publish(annotated, results, summary(results), recognizing)
}

// summary is the label shown for a frame: the first known name, otherwise
// Unknown when faces were seen.
func summary(results []recognition.Result) string {
	for _, r := range results {
		if r.Known {
			return r.Name
		}
	}
	if len(results) > 0 {
		return recognition.UnknownName
	}
	return ""
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
