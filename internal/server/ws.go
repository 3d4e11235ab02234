package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/verte-zerg/typeracer/internal/race"
)

// handleWatch streams room snapshots over a websocket until the room is
// gone or the client disconnects.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	snaps, err := s.races.Watch(ctx, roomID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Str("room", roomID).Msg("failed to upgrade websocket connection")
		return
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			// Best-effort close.
			_ = cerr
		}
	}()
	s.log.Debug().Str("room", roomID).Msg("websocket watcher connected")

	go s.readPump(conn, cancel)
	s.writePump(ctx, conn, snaps)
	s.log.Debug().Str("room", roomID).Msg("websocket watcher disconnected")
}

func (s *Server) writePump(ctx context.Context, conn *websocket.Conn, snaps <-chan race.Snapshot) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.writeClose(conn)
			return
		case snap, ok := <-snaps:
			if !ok {
				s.writeClose(conn)
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				s.log.Debug().Err(err).Msg("failed to write snapshot")
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Debug().Err(err).Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump only services pongs and close frames; clients send nothing else.
func (s *Server) readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(s.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug().Err(err).Msg("unexpected websocket close")
			}
			return
		}
	}
}

func (s *Server) writeClose(conn *websocket.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := conn.WriteMessage(websocket.CloseMessage, msg); err != nil {
		s.log.Debug().Err(err).Msg("failed to write close frame")
	}
}
