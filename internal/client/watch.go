package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/verte-zerg/typeracer/internal/api"
	"github.com/verte-zerg/typeracer/internal/race"
)

// Watch implements race.API by subscribing to the room's websocket. The
// channel closes when ctx is done, the room is gone or the connection drops.
func (c *Client) Watch(ctx context.Context, roomID string) (<-chan race.Snapshot, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.wsURL(roomID), nil)
	if err != nil {
		if resp != nil && resp.StatusCode >= http.StatusBadRequest {
			var apiErr api.ErrorResponse
			if derr := json.NewDecoder(resp.Body).Decode(&apiErr); derr == nil && apiErr.Code != "" {
				return nil, api.FromCode(apiErr)
			}
			return nil, fmt.Errorf("dial room watch: server returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("dial room watch: %w", err)
	}

	out := make(chan race.Snapshot, 1)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		case <-done:
		}
	}()
	go func() {
		defer close(out)
		defer close(done)
		defer func() {
			if cerr := conn.Close(); cerr != nil {
				// Best-effort close.
				_ = cerr
			}
		}()
		for {
			var snap race.Snapshot
			if err := conn.ReadJSON(&snap); err != nil {
				if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) && !errors.Is(err, context.Canceled) {
					c.log.Debug().Err(err).Str("room", roomID).Msg("room watch closed")
				}
				return
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
			if snap.Gone {
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) wsURL(roomID string) string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws/rooms/" + roomID
}
