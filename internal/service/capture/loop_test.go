package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"faceattend/internal/logger"
	"faceattend/internal/service/attendance"
	"faceattend/internal/service/camera"
	"faceattend/internal/service/recognition"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSource serves a fixed frame. Setting fatal makes the next Read fail;
// setting block makes Read wait until unblocked, after signalling entered.
type fakeSource struct {
	mu       sync.Mutex
	openErr  error
	opened   int
	released int
	reads    int
	fatal    error
	empty    bool
	block    chan struct{}
	entered  chan struct{}
}

func (s *fakeSource) Open(index, width, height int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return s.openErr
	}
	s.opened++
	return nil
}

func (s *fakeSource) Read() (image.Image, error) {
	s.mu.Lock()
	block, entered := s.block, s.entered
	s.mu.Unlock()
	if block != nil {
		if entered != nil {
			select {
			case entered <- struct{}{}:
			default:
			}
		}
		<-block
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.fatal != nil {
		return nil, s.fatal
	}
	if s.empty {
		return nil, camera.ErrNoFrame
	}
	time.Sleep(time.Millisecond)
	return image.NewRGBA(image.Rect(0, 0, 40, 40)), nil
}

func (s *fakeSource) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released++
	return nil
}

func (s *fakeSource) counts() (opened, released, reads int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened, s.released, s.reads
}

type fakeRecognizer struct {
	mu      sync.Mutex
	results []recognition.Result
	calls   int
	resets  int
}

func (r *fakeRecognizer) Recognize(frame image.Image) []recognition.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.results
}

func (r *fakeRecognizer) ResetFrameCount() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
}

func (r *fakeRecognizer) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeGate struct {
	mu     sync.Mutex
	offers []string
}

func (g *fakeGate) Offer(ctx context.Context, id, name string, now time.Time) attendance.Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.offers = append(g.offers, id)
	if len(g.offers) == 1 {
		return attendance.Marked
	}
	return attendance.SuppressedCooldown
}

func (g *fakeGate) offered() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.offers...)
}

type fakePublisher struct {
	mu    sync.Mutex
	count int
	last  image.Image
	label string
	recog bool
}

func (p *fakePublisher) Publish(img image.Image, results []recognition.Result, label string, recognizing bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	p.last = img
	p.label = label
	p.recog = recognizing
}

func (p *fakePublisher) published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

type fakeEvidence struct {
	mu  sync.Mutex
	ids []string
}

func (e *fakeEvidence) AddFrame(img image.Image, id, name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ids = append(e.ids, id)
}

type harness struct {
	src  *fakeSource
	rec  *fakeRecognizer
	gate *fakeGate
	pub  *fakePublisher
	ev   *fakeEvidence
	loop *Loop
}

func newHarness(results ...recognition.Result) *harness {
	h := &harness{
		src:  &fakeSource{},
		rec:  &fakeRecognizer{results: results},
		gate: &fakeGate{},
		pub:  &fakePublisher{},
		ev:   &fakeEvidence{},
	}
	h.loop = NewLoop(h.src, h.rec, h.gate, h.pub, h.ev,
		Options{Width: 40, Height: 40, StopTimeout: 200 * time.Millisecond}, logger.Discard(), nil)
	return h
}

func TestLoop_StartPublishesWithoutRecognition(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.loop.Start(context.Background()))
	defer h.loop.Stop()

	assert.Equal(t, StateActive, h.loop.State())
	assert.Eventually(t, func() bool { return h.pub.published() > 3 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, h.rec.callCount())
	assert.Empty(t, h.gate.offered())
}

func TestLoop_RecognitionOffersKnownFaces(t *testing.T) {
	h := newHarness(
		recognition.Result{StudentID: "S1", Name: "Alice", Known: true, Confidence: 0.7,
			Box: recognition.Box{Top: 5, Right: 30, Bottom: 30, Left: 5}},
		recognition.Result{Name: recognition.UnknownName},
	)
	require.NoError(t, h.loop.Start(context.Background()))
	h.loop.SetRecognition(true)
	assert.Equal(t, StateRecognizing, h.loop.State())

	require.Eventually(t, func() bool { return len(h.gate.offered()) >= 2 }, time.Second, 5*time.Millisecond)
	h.loop.Stop()

	for _, id := range h.gate.offered() {
		assert.Equal(t, "S1", id, "unknown faces are never offered")
	}
	h.ev.mu.Lock()
	assert.Equal(t, []string{"S1"}, h.ev.ids, "evidence only for the marked frame")
	h.ev.mu.Unlock()

	h.pub.mu.Lock()
	defer h.pub.mu.Unlock()
	assert.Equal(t, "Alice", h.pub.label)
	assert.True(t, h.pub.recog)
}

func TestLoop_ToggleRecognition(t *testing.T) {
	h := newHarness(recognition.Result{StudentID: "S1", Name: "Alice", Known: true})
	require.NoError(t, h.loop.Start(context.Background()))
	defer h.loop.Stop()

	h.loop.SetRecognition(true)
	require.Eventually(t, func() bool { return h.rec.callCount() > 0 }, time.Second, 5*time.Millisecond)

	h.loop.SetRecognition(false)
	assert.False(t, h.loop.Recognizing())
	assert.True(t, h.loop.Running(), "toggling does not stop capture")
}

func TestLoop_StopReleasesCamera(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.loop.Start(context.Background()))

	h.loop.Stop()

	opened, released, _ := h.src.counts()
	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, released)
	assert.Equal(t, StateStopped, h.loop.State())
	assert.False(t, h.loop.Running())

	h.loop.Stop() // no-op
	_, released, _ = h.src.counts()
	assert.Equal(t, 1, released)
}

func TestLoop_StartTwice(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.loop.Start(context.Background()))
	defer h.loop.Stop()

	assert.ErrorIs(t, h.loop.Start(context.Background()), ErrAlreadyRunning)
}

func TestLoop_CameraUnavailable(t *testing.T) {
	h := newHarness()
	h.src.openErr = errors.New("no such device")

	err := h.loop.Start(context.Background())

	assert.ErrorIs(t, err, camera.ErrCameraUnavailable)
	assert.Equal(t, StateStopped, h.loop.State())
	assert.False(t, h.loop.Running())
}

func TestLoop_EmptyFramesAreTransient(t *testing.T) {
	h := newHarness()
	h.src.empty = true
	require.NoError(t, h.loop.Start(context.Background()))
	defer h.loop.Stop()

	require.Eventually(t, func() bool {
		_, _, reads := h.src.counts()
		return reads > 3
	}, time.Second, 5*time.Millisecond)
	assert.True(t, h.loop.Running())
	assert.Zero(t, h.pub.published())

	h.src.mu.Lock()
	h.src.empty = false
	h.src.mu.Unlock()
	assert.Eventually(t, func() bool { return h.pub.published() > 0 }, time.Second, 5*time.Millisecond)
}

func TestLoop_FatalReadNeedsRestart(t *testing.T) {
	h := newHarness()
	boom := errors.New("device unplugged")
	h.src.fatal = boom
	require.NoError(t, h.loop.Start(context.Background()))

	require.Eventually(t, func() bool { return !h.loop.Running() }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, h.loop.Err(), boom)
	assert.Equal(t, StateActive, h.loop.State(), "stays active until stopped")
	assert.ErrorIs(t, h.loop.Start(context.Background()), ErrAlreadyRunning)

	h.loop.Stop()
	h.src.mu.Lock()
	h.src.fatal = nil
	h.src.mu.Unlock()

	require.NoError(t, h.loop.Start(context.Background()))
	assert.NoError(t, h.loop.Err())
	h.loop.Stop()
}

func TestLoop_StopIsBounded(t *testing.T) {
	h := newHarness()
	block := make(chan struct{})
	entered := make(chan struct{}, 1)
	h.src.block = block
	h.src.entered = entered
	require.NoError(t, h.loop.Start(context.Background()))

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("capture goroutine never reached Read")
	}

	start := time.Now()
	h.loop.Stop()
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond, "waits for the stop timeout")
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, StateStopped, h.loop.State())
	_, released, _ := h.src.counts()
	assert.Zero(t, released, "camera is released only after the goroutine exits")

	assert.ErrorIs(t, h.loop.Start(context.Background()), ErrStillStopping)
	opened, _, _ := h.src.counts()
	assert.Equal(t, 1, opened, "camera is not reopened while the old read is stuck")

	h.src.mu.Lock()
	h.src.block = nil
	h.src.mu.Unlock()
	close(block)

	assert.Eventually(t, func() bool {
		_, released, _ := h.src.counts()
		return released == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, h.loop.Start(context.Background()))
	h.loop.Stop()
}

func TestAnnotate_CopiesFrame(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 50, 50))
	results := []recognition.Result{{
		Name: "Alice", Known: true, Confidence: 0.8,
		Box: recognition.Box{Top: 10, Right: 40, Bottom: 40, Left: 10},
	}}

	out := Annotate(frame, results)

	assert.NotSame(t, frame, out)
	assert.Equal(t, color.RGBA{}, frame.RGBAAt(10, 10), "input untouched")
	assert.Equal(t, knownColor, out.RGBAAt(10, 10))
	assert.Equal(t, knownColor, out.RGBAAt(39, 20))
}

func TestAnnotate_UnknownColor(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 50, 50))
	out := Annotate(frame, []recognition.Result{{Name: recognition.UnknownName, Box: recognition.Box{Top: 0, Right: 30, Bottom: 30, Left: 0}}})
	assert.Equal(t, unknownColor, out.RGBAAt(0, 0))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "", summary(nil))
	assert.Equal(t, recognition.UnknownName, summary([]recognition.Result{{Name: recognition.UnknownName}}))
	assert.Equal(t, "Bob", summary([]recognition.Result{{Name: recognition.UnknownName}, {Name: "Bob", Known: true}}))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "active+recognizing", StateRecognizing.String())
}
