package race

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/verte-zerg/typeracer/internal/model"
	"github.com/verte-zerg/typeracer/internal/session"
)

func newRacers(t *testing.T) (*Service, *clockwork.FakeClock, *Racer, *Racer) {
	t.Helper()
	svc, clock := newTestService(t, nil)
	host := NewRacer(svc, alice, RacerOptions{Clock: clock})
	guest := NewRacer(svc, bob, RacerOptions{Clock: clock})
	ctx := context.Background()
	if err := host.Host(ctx); err != nil {
		t.Fatalf("host: %v", err)
	}
	if err := guest.Join(ctx, host.Code()); err != nil {
		t.Fatalf("join: %v", err)
	}
	return svc, clock, host, guest
}

// syncRacers flushes pending writes and applies the room snapshot.
func syncRacers(t *testing.T, svc *Service, racers ...*Racer) Snapshot {
	t.Helper()
	for _, r := range racers {
		r.Flush()
	}
	snap, err := svc.Snapshot(context.Background(), racers[0].RoomID())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	for _, r := range racers {
		r.Apply(snap)
	}
	return snap
}

// toRacing walks both racers through the countdown.
func toRacing(t *testing.T, svc *Service, host, guest *Racer) {
	t.Helper()
	ctx := context.Background()
	if err := host.StartCountdown(ctx); err != nil {
		t.Fatalf("start countdown: %v", err)
	}
	syncRacers(t, svc, host, guest)
	for i := 0; i < DefaultCountdown; i++ {
		host.CountdownTick()
		guest.CountdownTick()
	}
	syncRacers(t, svc, host, guest)
	if host.State() != Racing || guest.State() != Racing {
		t.Fatalf("expected both racing, got %s and %s", host.State(), guest.State())
	}
}

func typeAll(r *Racer, text string) {
	for _, ch := range text {
		r.Keystroke(ch)
	}
}

func TestRacerJoinRejectsMalformedCode(t *testing.T) {
	svc, clock := newTestService(t, nil)
	r := NewRacer(svc, bob, RacerOptions{Clock: clock})
	if err := r.Join(context.Background(), "bad"); !errors.Is(err, ErrRoomNotFound) {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
	if r.State() != Lobby || !errors.Is(r.Err(), ErrRoomNotFound) {
		t.Fatalf("expected lobby with error, got %s %v", r.State(), r.Err())
	}
	r.ClearErr()
	if r.Err() != nil {
		t.Fatalf("expected error cleared")
	}
}

func TestRacerWaitingRoom(t *testing.T) {
	_, _, host, guest := newRacers(t)
	if host.State() != Waiting || guest.State() != Waiting {
		t.Fatalf("expected both waiting")
	}
	if !host.IsHost() || guest.IsHost() {
		t.Fatalf("unexpected host flags")
	}
	if guest.Corpus() != host.Corpus() || guest.Corpus() != "go go" {
		t.Fatalf("expected shared corpus, got %q and %q", host.Corpus(), guest.Corpus())
	}
	if got := guest.Keystroke('g'); got != session.Ignored {
		t.Fatalf("keystrokes before the race must be ignored, got %v", got)
	}
	if err := guest.StartCountdown(context.Background()); !errors.Is(err, ErrNotHost) {
		t.Fatalf("expected ErrNotHost, got %v", err)
	}
}

func TestRacerCountdownOnlyHostStarts(t *testing.T) {
	svc, _, host, guest := newRacers(t)
	ctx := context.Background()
	if err := host.StartCountdown(ctx); err != nil {
		t.Fatalf("start countdown: %v", err)
	}
	syncRacers(t, svc, host, guest)
	if guest.State() != Countdown || guest.CountdownValue() != DefaultCountdown {
		t.Fatalf("expected guest in countdown at %d, got %s %d", DefaultCountdown, guest.State(), guest.CountdownValue())
	}
	for i := 0; i < DefaultCountdown; i++ {
		guest.CountdownTick()
	}
	if snap := syncRacers(t, svc, host, guest); snap.Room.Status != model.StatusCountdown {
		t.Fatalf("guest countdown must not start the race, got %s", snap.Room.Status)
	}
	for i := 0; i < DefaultCountdown; i++ {
		host.CountdownTick()
	}
	snap := syncRacers(t, svc, host, guest)
	if snap.Room.Status != model.StatusRacing || snap.Room.StartTime == nil {
		t.Fatalf("expected racing with a start time, got %+v", snap.Room)
	}
	if !guest.Session().Snapshot().StartedAt.Equal(*snap.Room.StartTime) {
		t.Fatalf("guest must adopt the shared start time")
	}
}

func TestRacerProgressThrottleAndOutcome(t *testing.T) {
	svc, clock, host, guest := newRacers(t)
	toRacing(t, svc, host, guest)

	typeAll(host, "go")
	snap := syncRacers(t, svc, host, guest)
	if p, _ := snap.ProgressOf(alice.ID); p.CharsTyped != 1 {
		t.Fatalf("expected only the first keystroke pushed, got %d", p.CharsTyped)
	}
	clock.Advance(600 * time.Millisecond)
	typeAll(host, " ")
	snap = syncRacers(t, svc, host, guest)
	if p, _ := snap.ProgressOf(alice.ID); p.CharsTyped != 3 {
		t.Fatalf("expected push after the interval, got %d", p.CharsTyped)
	}
	if opp, ok := guest.Opponent(); !ok || opp.Name != "Alice" || opp.CharsTyped != 3 {
		t.Fatalf("unexpected opponent view: %+v", opp)
	}

	clock.Advance(400 * time.Millisecond)
	typeAll(host, "go")
	if !host.Session().Done() {
		t.Fatalf("expected host session to finish on completion")
	}
	clock.Advance(time.Second)
	typeAll(guest, "go go")

	snap = syncRacers(t, svc, host, guest)
	if snap.Room.Status != model.StatusFinished {
		t.Fatalf("expected finished room, got %s", snap.Room.Status)
	}
	if host.State() != Finished || guest.State() != Finished {
		t.Fatalf("expected both finished")
	}
	if p, _ := snap.ProgressOf(alice.ID); p.WPM != 60 || !p.Finished {
		t.Fatalf("expected host final 60 wpm, got %+v", p)
	}
	if p, _ := snap.ProgressOf(bob.ID); p.WPM != 30 {
		t.Fatalf("expected guest final 30 wpm, got %+v", p)
	}
	if host.Outcome() != OutcomeWin || guest.Outcome() != OutcomeLose {
		t.Fatalf("unexpected outcomes %v / %v", host.Outcome(), guest.Outcome())
	}
	if host.Outcome().String() != "You win!" {
		t.Fatalf("unexpected outcome text %q", host.Outcome().String())
	}
}

func TestRacerOpponentLeavingForfeits(t *testing.T) {
	svc, clock, host, guest := newRacers(t)
	ctx := context.Background()
	toRacing(t, svc, host, guest)

	if err := guest.Leave(ctx); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if guest.State() != Lobby || guest.Session() != nil {
		t.Fatalf("expected guest back in the lobby")
	}
	clock.Advance(time.Second)
	typeAll(host, "go go")
	syncRacers(t, svc, host)
	if host.State() != Finished || host.Outcome() != OutcomeForfeit {
		t.Fatalf("expected forfeit win, got %s %v", host.State(), host.Outcome())
	}
}

func TestRacerRoomGone(t *testing.T) {
	_, _, host, guest := newRacers(t)
	roomID := guest.RoomID()
	guest.Apply(Snapshot{Room: model.Room{ID: roomID}, Gone: true})
	if guest.State() != Lobby || !errors.Is(guest.Err(), ErrRoomNotFound) {
		t.Fatalf("expected lobby with room-not-found, got %s %v", guest.State(), guest.Err())
	}
	host.Apply(Snapshot{Room: model.Room{ID: "other"}, Gone: true})
	if host.State() != Waiting {
		t.Fatalf("snapshots of other rooms must be ignored")
	}
}

func TestRacerGuestLeavingWaitingClearsOpponent(t *testing.T) {
	svc, _, host, guest := newRacers(t)
	syncRacers(t, svc, host, guest)
	if _, ok := host.Opponent(); !ok {
		t.Fatalf("expected the guest as opponent")
	}
	if err := guest.Leave(context.Background()); err != nil {
		t.Fatalf("leave: %v", err)
	}
	snap := syncRacers(t, svc, host)
	if snap.Room.GuestID != "" || len(snap.Progress) != 2 {
		t.Fatalf("expected a reopened room keeping the old row, got %+v", snap)
	}
	if opp, ok := host.Opponent(); ok {
		t.Fatalf("a departed guest must not count as opponent, got %+v", opp)
	}
	if err := host.StartCountdown(context.Background()); !errors.Is(err, ErrNoOpponent) {
		t.Fatalf("expected ErrNoOpponent, got %v", err)
	}
}

// slowProgress blocks progress pushes until release is closed.
type slowProgress struct {
	*Service
	release chan struct{}
}

func (s *slowProgress) UpdateProgress(ctx context.Context, roomID, participantID string, chars int, wpm float64) (bool, error) {
	select {
	case <-s.release:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	return s.Service.UpdateProgress(ctx, roomID, participantID, chars, wpm)
}

func TestRacerKeystrokeDoesNotWaitOnNetwork(t *testing.T) {
	svc, clock := newTestService(t, nil)
	api := &slowProgress{Service: svc, release: make(chan struct{})}
	host := NewRacer(api, alice, RacerOptions{Clock: clock})
	guest := NewRacer(svc, bob, RacerOptions{Clock: clock})
	ctx := context.Background()
	if err := host.Host(ctx); err != nil {
		t.Fatalf("host: %v", err)
	}
	if err := guest.Join(ctx, host.Code()); err != nil {
		t.Fatalf("join: %v", err)
	}
	toRacing(t, svc, host, guest)

	done := make(chan session.Outcome, 1)
	go func() {
		done <- host.Keystroke('g')
	}()
	select {
	case got := <-done:
		if got != session.Correct {
			t.Fatalf("expected correct keystroke, got %v", got)
		}
	case <-time.After(time.Second):
		close(api.release)
		t.Fatalf("keystroke waited on a blocked progress push")
	}

	close(api.release)
	snap := syncRacers(t, svc, host)
	if p, _ := snap.ProgressOf(alice.ID); p.CharsTyped != 1 {
		t.Fatalf("expected the push to land after release, got %d", p.CharsTyped)
	}
}

// flakyFinish fails the first FinishRace call.
type flakyFinish struct {
	*Service
	calls int
}

func (f *flakyFinish) FinishRace(ctx context.Context, roomID, participantID string, finalWPM float64, chars int) error {
	f.calls++
	if f.calls == 1 {
		return errors.New("connection reset")
	}
	return f.Service.FinishRace(ctx, roomID, participantID, finalWPM, chars)
}

func TestRacerRetriesFailedFinish(t *testing.T) {
	svc, clock := newTestService(t, nil)
	api := &flakyFinish{Service: svc}
	host := NewRacer(svc, alice, RacerOptions{Clock: clock})
	guest := NewRacer(api, bob, RacerOptions{Clock: clock})
	ctx := context.Background()
	if err := host.Host(ctx); err != nil {
		t.Fatalf("host: %v", err)
	}
	if err := guest.Join(ctx, host.Code()); err != nil {
		t.Fatalf("join: %v", err)
	}
	toRacing(t, svc, host, guest)

	clock.Advance(time.Second)
	typeAll(host, "go go")
	typeAll(guest, "go go")
	guest.Flush()
	if guest.Err() == nil {
		t.Fatalf("expected the failed finish to surface")
	}
	snap := syncRacers(t, svc, host)
	if snap.Room.Status != model.StatusRacing {
		t.Fatalf("room must wait for the guest's finish, got %s", snap.Room.Status)
	}

	guest.Tick()
	snap = syncRacers(t, svc, host, guest)
	if api.calls != 2 {
		t.Fatalf("expected one retry, got %d calls", api.calls)
	}
	if snap.Room.Status != model.StatusFinished || guest.State() != Finished {
		t.Fatalf("expected the retry to finish the room, got %s %s", snap.Room.Status, guest.State())
	}
	if guest.Err() != nil {
		t.Fatalf("a delivered finish must clear the error, got %v", guest.Err())
	}
}
