package display

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceattend/internal/logger"
	"faceattend/internal/service/recognition"
)

func TestMailbox_PublishCopiesFrame(t *testing.T) {
	mb := NewMailbox()
	assert.Nil(t, mb.Latest())

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	results := []recognition.Result{{Name: "Alice", Known: true}}

	mb.Publish(img, results, "Alice", true)

	// mutate the originals after publishing
	img.Set(1, 1, color.RGBA{G: 200, A: 255})
	results[0].Name = "Mallory"

	f := mb.Latest()
	require.NotNil(t, f)
	assert.Equal(t, uint64(1), f.Seq)
	assert.Equal(t, color.RGBA{R: 200, A: 255}, f.Image.RGBAAt(1, 1))
	assert.Equal(t, "Alice", f.Results[0].Name)
	assert.True(t, f.Recognizing)
}

func TestMailbox_LatestWins(t *testing.T) {
	mb := NewMailbox()
	for i := 0; i < 5; i++ {
		mb.Publish(image.NewRGBA(image.Rect(0, 0, 2, 2)), nil, "", false)
	}
	assert.Equal(t, uint64(5), mb.Latest().Seq)

	mb.Clear()
	assert.Nil(t, mb.Latest())
}

func TestEncode(t *testing.T) {
	mb := NewMailbox()
	mb.Publish(image.NewRGBA(image.Rect(0, 0, 8, 8)), nil, "Unknown", false)

	data, err := Encode(mb.Latest())
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "Unknown", msg.Label)
	assert.NotNil(t, msg.Results)

	jpg, err := base64.StdEncoding.DecodeString(msg.Image)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, jpg[:2])
}

func TestHubAndBroadcaster(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHubService(logger.Discard(), nil)
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(ctx, conn)
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	mb := NewMailbox()
	mb.Publish(image.NewRGBA(image.Rect(0, 0, 8, 8)), []recognition.Result{{Name: "Alice", Known: true}}, "Alice", true)
	go NewBroadcaster(mb, hub, 10*time.Millisecond, logger.Discard()).Run(ctx)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := client.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, uint64(1), msg.Seq)
	assert.Equal(t, "Alice", msg.Label)
	require.Len(t, msg.Results, 1)
	assert.True(t, msg.Results[0].Known)
}
