package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/evcraddock/comment-wall/internal/logging"
	"github.com/evcraddock/comment-wall/internal/metrics"
	"github.com/evcraddock/comment-wall/internal/wall"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingEvery    = wsPongWait * 9 / 10
	wsReadLimit    = 4096
)

// resizeMessage is sent by a wall screen when its width changes.
type resizeMessage struct {
	Width float64 `json:"width"`
}

// handleWallSocket drives one wall screen. Each connection mounts its own
// wall and receives a wall.View frame after every change until it
// disconnects.
func (s *Server) handleWallSocket(w http.ResponseWriter, r *http.Request) {
	cfg := s.wallCfg
	cfg.Viewport = parseWidth(r.URL.Query().Get("width"), cfg.Viewport)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	metrics.WebsocketConnections.Inc()
	defer metrics.WebsocketConnections.Dec()

	reqID := logging.RequestIDFrom(r.Context())
	slog.Info("wall connected", "request_id", reqID, "viewport", cfg.Viewport)
	defer slog.Info("wall disconnected", "request_id", reqID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	screen := wall.New(s.store, cfg)
	views := make(chan wall.View)
	stop := screen.OnChange(func(v wall.View) {
		select {
		case views <- v:
		case <-ctx.Done():
		}
	})
	defer stop()

	if err := screen.Mount(ctx); err != nil {
		slog.Error("mounting wall", "request_id", reqID, "error", err)
		return
	}
	defer screen.Unmount()

	go func() {
		defer cancel()
		readResizes(conn, screen)
	}()

	if err := writeView(conn, screen.View()); err != nil {
		return
	}

	ping := time.NewTicker(wsPingEvery)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case v := <-views:
			if err := writeView(conn, v); err != nil {
				slog.Debug("wall write failed", "request_id", reqID, "error", err)
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readResizes applies width updates until the connection fails.
func readResizes(conn *websocket.Conn, screen *wall.Wall) {
	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		if messageType != websocket.TextMessage {
			continue
		}

		var msg resizeMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Debug("ignoring wall message", "error", err)
			continue
		}
		screen.SetViewport(msg.Width)
	}
}

func writeView(conn *websocket.Conn, v wall.View) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(v)
}
