package recognition

import (
	"image"
	"sync/atomic"
	"time"

	"golang.org/x/image/draw"

	"faceattend/internal/logger"
	"faceattend/internal/metrics"
)

// DefaultStride is how often a frame is processed when no stride is configured.
const DefaultStride = 2

// downscale is the factor frames are shrunk by before encoding. Boxes are
// multiplied back by the same factor.
const downscale = 2

// Pipeline samples frames, encodes the faces in every processed frame and
// matches them against the gallery.
type Pipeline struct {
	encoder    Encoder
	gallery    *Gallery
	matcher    *Matcher
	stride     uint64
	frameCount atomic.Uint64
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

// NewPipeline creates a pipeline that processes every stride-th frame.
func NewPipeline(encoder Encoder, gallery *Gallery, matcher *Matcher, stride int, logger *logger.Logger, m *metrics.Metrics) *Pipeline {
	if stride < 1 {
		stride = DefaultStride
	}
	return &Pipeline{
		encoder: encoder,
		gallery: gallery,
		matcher: matcher,
		stride:  uint64(stride),
		logger:  logger,
		metrics: m,
	}
}

// Recognize counts the frame and, when it falls on the stride, returns one
// Result per face found in it. Skipped frames and encoder failures return an
// empty slice.
func (p *Pipeline) Recognize(frame image.Image) []Result {
	n := p.frameCount.Add(1)
	if n%p.stride != 0 {
		p.metrics.Frame("skipped")
		return []Result{}
	}
	if frame == nil {
		return []Result{}
	}
	p.metrics.Frame("processed")

	start := time.Now()
	defer func() { p.metrics.ObserveRecognition(time.Since(start).Seconds()) }()

	small := downsample(frame)
	faces, err := p.encoder.Recognize(small)
	if err != nil {
		p.logger.Error("Face encoding failed on frame %d: %v", n, err)
		return []Result{}
	}

	snap := p.gallery.Snapshot()
	offset := frame.Bounds().Min
	results := make([]Result, 0, len(faces))
	for _, f := range faces {
		m := p.matcher.Match(f.Embedding, snap)
		p.metrics.Face(m.Known)
		results = append(results, Result{
			Box:        f.Box.Scale(downscale, offset),
			StudentID:  m.StudentID,
			Name:       m.Name,
			Confidence: m.Confidence,
			Known:      m.Known,
		})
	}
	return results
}

// FrameCount returns the number of frames seen since the last reset.
func (p *Pipeline) FrameCount() uint64 {
	return p.frameCount.Load()
}

// ResetFrameCount restarts stride counting, so the next frame is frame 1.
func (p *Pipeline) ResetFrameCount() {
	p.frameCount.Store(0)
}

// Matcher returns the matcher used for tolerance changes.
func (p *Pipeline) Matcher() *Matcher {
	return p.matcher
}

// downsample shrinks img by downscale into a new RGBA image anchored at (0,0).
func downsample(img image.Image) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx()/downscale, b.Dy()/downscale
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
