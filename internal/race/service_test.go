package race

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/verte-zerg/typeracer/internal/model"
	"github.com/verte-zerg/typeracer/internal/store"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

var (
	alice = model.Player{ID: "alice", Name: "Alice"}
	bob   = model.Player{ID: "bob", Name: "Bob"}
	carol = model.Player{ID: "carol", Name: "Carol"}
)

type fixedCorpus struct {
	text string
}

func (f fixedCorpus) Corpus(context.Context) (model.Corpus, error) {
	return model.Corpus{Text: f.text}, nil
}

type seqCodes struct {
	codes []string
	i     int
}

func (s *seqCodes) Next() string {
	code := s.codes[s.i%len(s.codes)]
	s.i++
	return code
}

func newTestService(t *testing.T, codes CodeGenerator) (*Service, *clockwork.FakeClock) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "typeracer.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	clock := clockwork.NewFakeClockAt(epoch)
	svc := NewService(st, fixedCorpus{text: "go go"}, Options{Codes: codes, Clock: clock})
	return svc, clock
}

// startedRoom returns a room with alice hosting and bob seated.
func startedRoom(t *testing.T, svc *Service) Created {
	t.Helper()
	ctx := context.Background()
	created, err := svc.CreateRoom(ctx, alice)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := svc.JoinRoom(ctx, created.Code, bob); err != nil {
		t.Fatalf("join room: %v", err)
	}
	return created
}

func TestRandomCodesProperties(t *testing.T) {
	gen := NewRandomCodes()
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		code := gen.Next()
		if !ValidCode(code) {
			t.Fatalf("invalid code %q", code)
		}
		seen[code] = struct{}{}
	}
	if len(seen) < 99 {
		t.Fatalf("expected at least 99 unique codes, got %d", len(seen))
	}
	for _, bad := range []string{"ABCDE", "ABCDEFG", "ABCDE0", "ABCDEI", "abcdef"} {
		if ValidCode(bad) {
			t.Fatalf("expected %q to be invalid", bad)
		}
	}
	if NormalizeCode(" abc234 ") != "ABC234" {
		t.Fatalf("unexpected normalized code")
	}
}

func TestCreateRoomSkipsTakenCodes(t *testing.T) {
	svc, _ := newTestService(t, &seqCodes{codes: []string{"AAAAAA", "AAAAAA", "BBBBBB"}})
	ctx := context.Background()
	first, err := svc.CreateRoom(ctx, alice)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	second, err := svc.CreateRoom(ctx, bob)
	if err != nil {
		t.Fatalf("create second room: %v", err)
	}
	if first.Code != "AAAAAA" || second.Code != "BBBBBB" {
		t.Fatalf("unexpected codes %q %q", first.Code, second.Code)
	}
	if first.Corpus != "go go" {
		t.Fatalf("expected shared corpus, got %q", first.Corpus)
	}
	snap, err := svc.Snapshot(ctx, first.RoomID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.Room.Status != model.StatusWaiting || snap.Room.HasGuest() || len(snap.Progress) != 1 {
		t.Fatalf("unexpected new room: %+v", snap)
	}
}

func TestCreateRoomCodesExhausted(t *testing.T) {
	svc, _ := newTestService(t, &seqCodes{codes: []string{"AAAAAA"}})
	ctx := context.Background()
	if _, err := svc.CreateRoom(ctx, alice); err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := svc.CreateRoom(ctx, bob); !errors.Is(err, ErrCodesExhausted) {
		t.Fatalf("expected ErrCodesExhausted, got %v", err)
	}
}

func TestJoinRoomGuards(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	created, err := svc.CreateRoom(ctx, alice)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	if _, err := svc.JoinRoom(ctx, "ZZZZZZ", bob); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if _, err := svc.JoinRoom(ctx, created.Code, alice); !errors.Is(err, ErrCannotJoinOwnRoom) {
		t.Fatalf("expected ErrCannotJoinOwnRoom, got %v", err)
	}
	joined, err := svc.JoinRoom(ctx, " "+strings.ToLower(created.Code)+" ", bob)
	if err != nil {
		t.Fatalf("join with lowercase code: %v", err)
	}
	if joined.Corpus != created.Corpus || joined.HostName != "Alice" || joined.RoomID != created.RoomID {
		t.Fatalf("unexpected join result: %+v", joined)
	}
	if _, err := svc.JoinRoom(ctx, created.Code, carol); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}

	if err := svc.StartCountdown(ctx, created.RoomID, alice.ID); err != nil {
		t.Fatalf("start countdown: %v", err)
	}
	if _, err := svc.JoinRoom(ctx, created.Code, carol); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
	if _, err := svc.JoinRoom(ctx, created.Code, alice); !errors.Is(err, ErrCannotJoinOwnRoom) {
		t.Fatalf("expected own-room check to win over status, got %v", err)
	}
}

func TestStartCountdownGuards(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	created, err := svc.CreateRoom(ctx, alice)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if err := svc.StartCountdown(ctx, created.RoomID, alice.ID); !errors.Is(err, ErrNoOpponent) {
		t.Fatalf("expected ErrNoOpponent, got %v", err)
	}
	if _, err := svc.JoinRoom(ctx, created.Code, bob); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := svc.StartCountdown(ctx, created.RoomID, bob.ID); !errors.Is(err, ErrNotHost) {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
	if err := svc.StartCountdown(ctx, "missing", alice.ID); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if err := svc.StartCountdown(ctx, created.RoomID, alice.ID); err != nil {
		t.Fatalf("start countdown: %v", err)
	}
	if err := svc.StartCountdown(ctx, created.RoomID, alice.ID); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestStartRacingRequiresCountdown(t *testing.T) {
	svc, clock := newTestService(t, nil)
	ctx := context.Background()
	created := startedRoom(t, svc)
	if _, err := svc.StartRacing(ctx, created.RoomID); !errors.Is(err, ErrNotInCountdown) {
		t.Fatalf("expected ErrNotInCountdown, got %v", err)
	}
	if err := svc.StartCountdown(ctx, created.RoomID, alice.ID); err != nil {
		t.Fatalf("start countdown: %v", err)
	}
	clock.Advance(3 * time.Second)
	start, err := svc.StartRacing(ctx, created.RoomID)
	if err != nil {
		t.Fatalf("start racing: %v", err)
	}
	if !start.Equal(epoch.Add(3 * time.Second)) {
		t.Fatalf("expected start stamped from the clock, got %v", start)
	}
	room, err := svc.Room(ctx, created.RoomID)
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	if room.Status != model.StatusRacing || room.StartTime == nil || !room.StartTime.Equal(start) {
		t.Fatalf("unexpected racing room: %+v", room)
	}
	if _, err := svc.StartRacing(ctx, created.RoomID); !errors.Is(err, ErrNotInCountdown) {
		t.Fatalf("expected second start to fail, got %v", err)
	}
}

func TestProgressAndFinish(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	created := startedRoom(t, svc)
	if err := svc.StartCountdown(ctx, created.RoomID, alice.ID); err != nil {
		t.Fatalf("start countdown: %v", err)
	}
	if _, err := svc.StartRacing(ctx, created.RoomID); err != nil {
		t.Fatalf("start racing: %v", err)
	}

	ok, err := svc.UpdateProgress(ctx, created.RoomID, alice.ID, 3, 36)
	if err != nil || !ok {
		t.Fatalf("expected progress update, got %v %v", ok, err)
	}
	if _, err := svc.UpdateProgress(ctx, created.RoomID, carol.ID, 1, 1); !errors.Is(err, ErrProgressNotFound) {
		t.Fatalf("expected ErrProgressNotFound, got %v", err)
	}

	if err := svc.FinishRace(ctx, created.RoomID, alice.ID, 60, 5); err != nil {
		t.Fatalf("finish: %v", err)
	}
	ok, err = svc.UpdateProgress(ctx, created.RoomID, alice.ID, 1, 1)
	if err != nil || ok {
		t.Fatalf("expected update after finish to be ignored, got %v %v", ok, err)
	}
	snap, err := svc.Snapshot(ctx, created.RoomID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	mine, _ := snap.ProgressOf(alice.ID)
	if !mine.Finished || mine.WPM != 60 || mine.CharsTyped != 5 || mine.FinishTime == nil {
		t.Fatalf("unexpected finished row: %+v", mine)
	}
	if snap.Room.Status != model.StatusRacing {
		t.Fatalf("room must keep racing until every row is done, got %s", snap.Room.Status)
	}

	if err := svc.FinishRace(ctx, created.RoomID, bob.ID, 30, 5); err != nil {
		t.Fatalf("finish guest: %v", err)
	}
	if err := svc.FinishRace(ctx, created.RoomID, bob.ID, 30, 5); err != nil {
		t.Fatalf("finish must be idempotent: %v", err)
	}
	room, err := svc.Room(ctx, created.RoomID)
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	if room.Status != model.StatusFinished {
		t.Fatalf("expected finished room, got %s", room.Status)
	}
}

func TestLeaveRaceWhileWaiting(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	created := startedRoom(t, svc)

	if err := svc.LeaveRace(ctx, created.RoomID, bob.ID); err != nil {
		t.Fatalf("guest leave: %v", err)
	}
	room, err := svc.Room(ctx, created.RoomID)
	if err != nil {
		t.Fatalf("room: %v", err)
	}
	if room.HasGuest() || room.Status != model.StatusWaiting {
		t.Fatalf("expected reopened room, got %+v", room)
	}
	if _, err := svc.JoinRoom(ctx, created.Code, carol); err != nil {
		t.Fatalf("expected seat to be free again: %v", err)
	}

	if err := svc.LeaveRace(ctx, created.RoomID, alice.ID); err != nil {
		t.Fatalf("host leave: %v", err)
	}
	if _, err := svc.Room(ctx, created.RoomID); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected room deleted, got %v", err)
	}
	if err := svc.LeaveRace(ctx, created.RoomID, carol.ID); err != nil {
		t.Fatalf("leaving a deleted room must succeed, got %v", err)
	}
}

func TestLeaveRaceWhileRacingFinishesRoom(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()
	created := startedRoom(t, svc)
	if err := svc.StartCountdown(ctx, created.RoomID, alice.ID); err != nil {
		t.Fatalf("start countdown: %v", err)
	}
	if _, err := svc.StartRacing(ctx, created.RoomID); err != nil {
		t.Fatalf("start racing: %v", err)
	}
	if err := svc.FinishRace(ctx, created.RoomID, alice.ID, 50, 5); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := svc.LeaveRace(ctx, created.RoomID, bob.ID); err != nil {
		t.Fatalf("leave: %v", err)
	}
	snap, err := svc.Snapshot(ctx, created.RoomID)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	gone, _ := snap.ProgressOf(bob.ID)
	if !gone.Disconnected || snap.Room.Status != model.StatusFinished {
		t.Fatalf("expected disconnected guest and finished room, got %+v", snap)
	}
}

func TestWatchStreamsChanges(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	created, err := svc.CreateRoom(ctx, alice)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	snaps, err := svc.Watch(ctx, created.RoomID)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	first := nextSnapshot(t, snaps)
	if first.Room.HasGuest() {
		t.Fatalf("unexpected guest in first snapshot")
	}

	if _, err := svc.JoinRoom(ctx, created.Code, bob); err != nil {
		t.Fatalf("join: %v", err)
	}
	joined := nextSnapshot(t, snaps)
	if joined.Room.GuestID != bob.ID || len(joined.Progress) != 2 {
		t.Fatalf("expected guest in snapshot, got %+v", joined)
	}

	if err := svc.LeaveRace(ctx, created.RoomID, alice.ID); err != nil {
		t.Fatalf("host leave: %v", err)
	}
	for {
		snap := nextSnapshot(t, snaps)
		if snap.Gone {
			if snap.Room.ID != created.RoomID {
				t.Fatalf("gone snapshot must name the room")
			}
			break
		}
	}
	if _, ok := <-snaps; ok {
		t.Fatalf("expected channel to close after the room is gone")
	}

	if _, err := svc.Watch(ctx, "missing"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func nextSnapshot(t *testing.T, snaps <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-snaps:
		if !ok {
			t.Fatalf("snapshot channel closed")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
	return Snapshot{}
}
