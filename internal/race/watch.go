package race

import (
	"context"
	"errors"
	"fmt"
	"reflect"
)

// Watch streams room snapshots. The first snapshot is sent immediately;
// later ones only when something changed. Changes are picked up from bus
// notifications, with a periodic re-read as a fallback. When the room is
// deleted a final snapshot with Gone set is sent. The channel closes when
// ctx is done.
func (s *Service) Watch(ctx context.Context, roomID string) (<-chan Snapshot, error) {
	first, err := s.Snapshot(ctx, roomID)
	if err != nil {
		return nil, err
	}
	wctx, cancel := context.WithCancel(ctx)
	notes, err := s.bus.Subscribe(wctx, roomID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to subscribe to room: %w", err)
	}

	out := make(chan Snapshot, 1)
	go func() {
		defer close(out)
		defer cancel()
		ticker := s.clock.NewTicker(s.poll)
		defer ticker.Stop()

		last := first
		if !sendSnapshot(wctx, out, first) {
			return
		}
		for {
			select {
			case <-wctx.Done():
				return
			case _, ok := <-notes:
				if !ok {
					return
				}
			case <-ticker.Chan():
			}
			snap, err := s.Snapshot(wctx, roomID)
			if errors.Is(err, ErrRoomNotFound) {
				sendSnapshot(wctx, out, Snapshot{Room: last.Room, Gone: true})
				return
			}
			if err != nil {
				if wctx.Err() != nil {
					return
				}
				s.log.Warn().Err(err).Str("room", roomID).Msg("watch refresh failed")
				continue
			}
			if reflect.DeepEqual(last, snap) {
				continue
			}
			last = snap
			if !sendSnapshot(wctx, out, snap) {
				return
			}
		}
	}()
	return out, nil
}

func sendSnapshot(ctx context.Context, out chan<- Snapshot, snap Snapshot) bool {
	select {
	case out <- snap:
		return true
	case <-ctx.Done():
		return false
	}
}
