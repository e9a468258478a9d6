// Package display hands annotated frames from the capture loop to viewers.
package display

import (
	"image"
	"image/draw"
	"sync"
	"time"

	"faceattend/internal/service/recognition"
)

// Frame is one published display state. Image is never written after publish.
type Frame struct {
	Seq         uint64
	Image       *image.RGBA
	Results     []recognition.Result
	Label       string
	Recognizing bool
	At          time.Time
}

// Mailbox is a single-slot store of the latest Frame. Publishing never blocks
// on readers and replaces whatever was there.
type Mailbox struct {
	mu     sync.RWMutex
	latest *Frame
	seq    uint64
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Publish stores a copy of img and results as the latest frame.
func (m *Mailbox) Publish(img image.Image, results []recognition.Result, label string, recognizing bool) {
	f := &Frame{
		Image:       cloneRGBA(img),
		Results:     append([]recognition.Result(nil), results...),
		Label:       label,
		Recognizing: recognizing,
		At:          time.Now(),
	}

	m.mu.Lock()
	m.seq++
	f.Seq = m.seq
	m.latest = f
	m.mu.Unlock()
}

// Latest returns the most recent frame, or nil when nothing was published.
func (m *Mailbox) Latest() *Frame {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Clear drops the stored frame.
func (m *Mailbox) Clear() {
	m.mu.Lock()
	m.latest = nil
	m.mu.Unlock()
}

func cloneRGBA(img image.Image) *image.RGBA {
	if img == nil {
		return nil
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}
