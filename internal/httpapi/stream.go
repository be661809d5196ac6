package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	streamWriteTimeout = 5 * time.Second
	streamPingInterval = 30 * time.Second
)

// stream pushes the session state on connect and after every change. Client messages are
// not read; the stream ends when the client goes away or the session is closed.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	st, err := s.reg.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, nil)
		return
	}

	updates, cancel := s.reg.Subscribe(id)
	defer cancel()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		s.logger.Warn("ws_accept_failed", zap.String("session_id", id), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())
	s.logger.Debug("ws_connected", zap.String("session_id", id))

	if err := writeState(ctx, conn, st); err != nil {
		return
	}

	ping := time.NewTicker(streamPingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("ws_disconnected", zap.String("session_id", id))
			return
		case next, ok := <-updates:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "session closed")
				return
			}
			if err := writeState(ctx, conn, next); err != nil {
				if !errors.Is(err, context.Canceled) {
					s.logger.Debug("ws_write_failed", zap.String("session_id", id), zap.Error(err))
				}
				return
			}
		case <-ping.C:
			pctx, pcancel := context.WithTimeout(ctx, streamWriteTimeout)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				return
			}
		}
	}
}

func writeState(ctx context.Context, conn *websocket.Conn, v any) error {
	wctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return wsjson.Write(wctx, conn, v)
}
