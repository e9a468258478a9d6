package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"

	"faceattend/internal/logger"
	"faceattend/internal/service/display"
)

// Upgrader upgrades HTTP connections to WebSocket. The server listens on
// loopback by default, so any origin is accepted.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewWebsocketHandler handles viewer connections over WebSocket and
// registers them in the HubService to receive annotated frames. ctx is the
// server lifetime; the hub is left alone once it is done.
func ViewWebsocketHandler(ctx context.Context, hub *display.HubService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		if !hub.Register(ctx, connection) {
			connection.Close()
			return
		}
		defer hub.Unregister(ctx, connection)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer disconnected normally")
				} else {
					logger.Warning("Viewer disconnected with error: %v", err)
				}
				return
			}
		}
	}
}
