package notify

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Upgrader accepts connections from any origin, matching the CORS policy of the server.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocketHandler serves the feed over a WebSocket, one text message per snapshot.
func WebSocketHandler(feed *Feed, logger *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warnw("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		// The read loop only services control frames and detects the close.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		f := *feed
		f.Keepalive = pingPeriod
		err = f.Stream(ctx,
			func(data []byte) error {
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				return conn.WriteMessage(websocket.TextMessage, data)
			},
			func() error {
				return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			},
		)
		if err != nil {
			logger.Debugw("websocket feed ended", "error", err)
		}
	}
}
