package display

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/jpeg"
	"time"

	"faceattend/internal/logger"
	"faceattend/internal/service/recognition"
)

// Message is the JSON payload pushed to viewers.
type Message struct {
	Seq         uint64               `json:"seq"`
	Image       string               `json:"image"`
	Label       string               `json:"label,omitempty"`
	Recognizing bool                 `json:"recognizing"`
	Results     []recognition.Result `json:"results"`
	Timestamp   string               `json:"timestamp"`
}

// Broadcaster polls the mailbox on a timer and pushes new frames to the hub.
// It never waits on the capture loop.
type Broadcaster struct {
	mailbox  *Mailbox
	hub      *HubService
	interval time.Duration
	logger   *logger.Logger
}

// NewBroadcaster creates a broadcaster that polls every interval.
func NewBroadcaster(mailbox *Mailbox, hub *HubService, interval time.Duration, logger *logger.Logger) *Broadcaster {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Broadcaster{mailbox: mailbox, hub: hub, interval: interval, logger: logger}
}

// Run pushes frames until ctx is done.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		f := b.mailbox.Latest()
		if f == nil || f.Seq == last || b.hub.ClientCount() == 0 {
			continue
		}
		last = f.Seq

		msg, err := Encode(f)
		if err != nil {
			b.logger.Error("Failed to encode display frame: %v", err)
			continue
		}
		b.hub.Broadcast(ctx, msg)
	}
}

// Encode renders f as a JSON Message with a base64 JPEG image.
func Encode(f *Frame) ([]byte, error) {
	var buf bytes.Buffer
	if f.Image != nil {
		if err := jpeg.Encode(&buf, f.Image, &jpeg.Options{Quality: 80}); err != nil {
			return nil, err
		}
	}

	results := f.Results
	if results == nil {
		results = []recognition.Result{}
	}
	return json.Marshal(Message{
		Seq:         f.Seq,
		Image:       base64.StdEncoding.EncodeToString(buf.Bytes()),
		Label:       f.Label,
		Recognizing: f.Recognizing,
		Results:     results,
		Timestamp:   f.At.Format(time.RFC3339),
	})
}
