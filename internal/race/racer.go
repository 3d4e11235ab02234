package race

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/typeracer/internal/model"
	"github.com/verte-zerg/typeracer/internal/session"
)

const (
	// DefaultProgressInterval is the minimum gap between progress pushes.
	DefaultProgressInterval = 500 * time.Millisecond
	// DefaultCountdown is the number of visual countdown steps before Go.
	DefaultCountdown = 3
)

// State is the racer's local view of the race lifecycle.
type State int

// Racer states.
const (
	Lobby State = iota
	Waiting
	Countdown
	Racing
	Finished
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Countdown:
		return "countdown"
	case Racing:
		return "racing"
	case Finished:
		return "finished"
	default:
		return "lobby"
	}
}

// Outcome is the result of a finished race from the racer's side.
type Outcome int

// Race outcomes.
const (
	OutcomePending Outcome = iota
	OutcomeWin
	OutcomeLose
	OutcomeTie
	OutcomeForfeit
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "You win!"
	case OutcomeLose:
		return "You lose"
	case OutcomeTie:
		return "It's a tie"
	case OutcomeForfeit:
		return "You win! Opponent left"
	default:
		return "Waiting for opponent"
	}
}

// Standing is one side of the race as shown on screen.
type Standing struct {
	Name         string
	CharsTyped   int
	WPM          float64
	Finished     bool
	Disconnected bool
}

// RacerOptions configures a Racer. Zero values pick the defaults.
type RacerOptions struct {
	Clock            clockwork.Clock
	Logger           zerolog.Logger
	ProgressInterval time.Duration
	Countdown        int
	Window           int
	Duration         time.Duration
	WriteTimeout     time.Duration
}

// Racer drives one participant through a race. It owns a session in the
// finish-on-complete policy and mirrors it to the shared room through api.
// Progress, finish and race start writes are sent in the background so
// typing never waits on the network. All methods must be called from one
// goroutine.
type Racer struct {
	api      API
	player   model.Player
	clock    clockwork.Clock
	log      zerolog.Logger
	interval time.Duration
	steps    int
	window   int
	duration time.Duration

	state      State
	roomID     string
	code       string
	host       bool
	corpus     string
	session    *session.Session
	out        *outbox
	countdown  int
	lastPush   time.Time
	snap       Snapshot
	finishSent bool
	err        error
}

// NewRacer returns a racer in the Lobby.
func NewRacer(api API, player model.Player, opts RacerOptions) *Racer {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	if opts.Countdown <= 0 {
		opts.Countdown = DefaultCountdown
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	return &Racer{
		api:      api,
		player:   player,
		clock:    opts.Clock,
		log:      opts.Logger,
		interval: opts.ProgressInterval,
		steps:    opts.Countdown,
		window:   opts.Window,
		duration: opts.Duration,
		out:      newOutbox(opts.WriteTimeout),
	}
}

// Host creates a room and waits in it.
func (r *Racer) Host(ctx context.Context) error {
	if r.state != Lobby {
		return fmt.Errorf("cannot host from %s", r.state)
	}
	created, err := r.api.CreateRoom(ctx, r.player)
	if err != nil {
		return r.fail(err)
	}
	return r.enter(created.RoomID, created.Code, created.Corpus, true)
}

// Join takes the guest seat of the room with code.
func (r *Racer) Join(ctx context.Context, code string) error {
	if r.state != Lobby {
		return fmt.Errorf("cannot join from %s", r.state)
	}
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return r.fail(ErrRoomNotFound)
	}
	joined, err := r.api.JoinRoom(ctx, code, r.player)
	if err != nil {
		return r.fail(err)
	}
	return r.enter(joined.RoomID, joined.Code, joined.Corpus, false)
}

func (r *Racer) enter(roomID, code, corpus string, host bool) error {
	s, err := session.New(corpus, session.Options{
		Duration: r.duration,
		Window:   r.window,
		Policy:   session.PolicyFinishOnComplete,
		Clock:    r.clock,
	})
	if err != nil {
		return r.fail(err)
	}
	s.SetDisabled(true)
	r.state = Waiting
	r.roomID = roomID
	r.code = code
	r.host = host
	r.corpus = corpus
	r.session = s
	r.snap = Snapshot{}
	r.err = nil
	return nil
}

// StartCountdown asks the room to begin. Host only; the local state follows
// once the new room status is observed.
func (r *Racer) StartCountdown(ctx context.Context) error {
	if r.state != Waiting {
		return r.fail(ErrAlreadyStarted)
	}
	if !r.host {
		return r.fail(ErrNotHost)
	}
	if err := r.api.StartCountdown(ctx, r.roomID, r.player.ID); err != nil {
		return r.fail(err)
	}
	r.err = nil
	return nil
}

// Apply reconciles local state with an observed room snapshot.
func (r *Racer) Apply(snap Snapshot) {
	r.collect()
	if r.state == Lobby || snap.Room.ID != r.roomID {
		return
	}
	if snap.Gone {
		r.reset()
		r.err = ErrRoomNotFound
		return
	}
	r.snap = snap

	switch snap.Room.Status {
	case model.StatusCountdown:
		if r.state == Waiting {
			r.state = Countdown
			r.countdown = r.steps
		}
	case model.StatusRacing:
		if r.state == Waiting || r.state == Countdown {
			start := r.clock.Now()
			if snap.Room.StartTime != nil {
				start = *snap.Room.StartTime
			}
			r.session.SetStartTime(start)
			r.session.SetDisabled(false)
			r.state = Racing
		}
	case model.StatusFinished:
		if r.state != Finished {
			r.session.SetDisabled(true)
			r.state = Finished
		}
	}
	if r.state == Racing && r.session.Done() {
		r.finish()
	}
}

// CountdownTick advances the visual countdown by one step and returns the
// remaining steps. When it reaches zero the host starts the race.
func (r *Racer) CountdownTick() int {
	r.collect()
	if r.state != Countdown {
		return r.countdown
	}
	if r.countdown > 0 {
		r.countdown--
	}
	if r.countdown == 0 && r.host {
		roomID := r.roomID
		r.out.push(op{kind: opStart, room: roomID, run: func(ctx context.Context) error {
			_, err := r.api.StartRacing(ctx, roomID)
			return err
		}})
	}
	return r.countdown
}

// Keystroke feeds a typed character to the session while racing.
func (r *Racer) Keystroke(ch rune) session.Outcome {
	r.collect()
	if r.state != Racing {
		return session.Ignored
	}
	out := r.session.Keystroke(ch)
	if out == session.Correct {
		r.pushProgress()
	}
	if r.session.Done() {
		r.finish()
	}
	return out
}

// Tick advances the race clock by one second. A finish report that failed
// is resent on the next tick.
func (r *Racer) Tick() {
	r.collect()
	if r.state != Racing {
		return
	}
	r.session.Tick()
	if r.session.Done() {
		r.finish()
		return
	}
	r.pushProgress()
}

// Flush waits for queued room writes and applies their results.
func (r *Racer) Flush() {
	r.out.wait()
	r.collect()
}

func (r *Racer) pushProgress() {
	now := r.clock.Now()
	if !r.lastPush.IsZero() && now.Sub(r.lastPush) <= r.interval {
		return
	}
	r.lastPush = now
	roomID, id := r.roomID, r.player.ID
	chars, wpm := r.session.CharsTyped(), r.session.WPM()
	r.out.push(op{kind: opProgress, room: roomID, run: func(ctx context.Context) error {
		_, err := r.api.UpdateProgress(ctx, roomID, id, chars, wpm)
		return err
	}})
}

func (r *Racer) finish() {
	if r.finishSent {
		return
	}
	r.finishSent = true
	roomID, id := r.roomID, r.player.ID
	wpm, chars := r.session.WPM(), r.session.CharsTyped()
	r.out.push(op{kind: opFinish, room: roomID, run: func(ctx context.Context) error {
		return r.api.FinishRace(ctx, roomID, id, wpm, chars)
	}})
}

// collect applies the results of background writes for the current room.
func (r *Racer) collect() {
	for _, res := range r.out.take() {
		if res.room != r.roomID {
			continue
		}
		if res.err == nil {
			if res.kind == opFinish {
				r.err = nil
			}
			continue
		}
		switch res.kind {
		case opProgress:
			r.log.Debug().Err(res.err).Str("room", res.room).Msg("progress update dropped")
		case opFinish:
			r.log.Warn().Err(res.err).Str("room", res.room).Msg("failed to report finish")
			r.finishSent = false
			r.err = res.err
		case opStart:
			if errors.Is(res.err, ErrNotInCountdown) {
				continue
			}
			r.log.Warn().Err(res.err).Str("room", res.room).Msg("failed to start racing")
			r.err = res.err
		}
	}
}

// Leave disconnects from the current room and returns to the Lobby.
func (r *Racer) Leave(ctx context.Context) error {
	if r.state == Lobby {
		return nil
	}
	roomID := r.roomID
	r.out.discard()
	r.reset()
	if err := r.api.LeaveRace(ctx, roomID, r.player.ID); err != nil {
		r.log.Warn().Err(err).Str("room", roomID).Msg("failed to leave race")
		return err
	}
	return nil
}

// RaceAgain leaves the finished room; a new race starts from the Lobby.
func (r *Racer) RaceAgain(ctx context.Context) error {
	return r.Leave(ctx)
}

func (r *Racer) reset() {
	r.state = Lobby
	r.roomID = ""
	r.code = ""
	r.host = false
	r.corpus = ""
	r.session = nil
	r.countdown = 0
	r.lastPush = time.Time{}
	r.snap = Snapshot{}
	r.finishSent = false
	r.err = nil
}

func (r *Racer) fail(err error) error {
	r.err = err
	return err
}

// Outcome resolves the finished race. An opponent who disconnected forfeits.
func (r *Racer) Outcome() Outcome {
	if r.state != Finished {
		return OutcomePending
	}
	me := r.Self()
	opp, ok := r.Opponent()
	if ok && opp.Disconnected {
		return OutcomeForfeit
	}
	switch {
	case me.WPM > opp.WPM:
		return OutcomeWin
	case me.WPM < opp.WPM:
		return OutcomeLose
	default:
		return OutcomeTie
	}
}

// Self returns this racer's standing. Live session counters are preferred
// over the mirrored row, which lags by the push interval.
func (r *Racer) Self() Standing {
	st := Standing{Name: r.player.Name}
	if p, ok := r.snap.ProgressOf(r.player.ID); ok {
		st.CharsTyped = p.CharsTyped
		st.WPM = p.WPM
		st.Finished = p.Finished
		st.Disconnected = p.Disconnected
	}
	if r.session != nil && r.session.Started() {
		st.CharsTyped = r.session.CharsTyped()
		st.WPM = r.session.WPM()
	}
	return st
}

// Opponent returns the other participant's mirrored standing. It reports
// false while the guest seat is empty.
func (r *Racer) Opponent() (Standing, bool) {
	room := r.snap.Room
	oppID, name := room.GuestID, room.GuestName
	if !r.host {
		oppID, name = room.HostID, room.HostName
	}
	if oppID == "" {
		return Standing{}, false
	}
	st := Standing{Name: name}
	if p, ok := r.snap.ProgressOf(oppID); ok {
		st.CharsTyped = p.CharsTyped
		st.WPM = p.WPM
		st.Finished = p.Finished
		st.Disconnected = p.Disconnected
	}
	return st, true
}

// State returns the local lifecycle state.
func (r *Racer) State() State { return r.state }

// RoomID returns the current room id, empty in the Lobby.
func (r *Racer) RoomID() string { return r.roomID }

// Code returns the current room code.
func (r *Racer) Code() string { return r.code }

// IsHost reports whether this racer created the room.
func (r *Racer) IsHost() bool { return r.host }

// Corpus returns the shared race text.
func (r *Racer) Corpus() string { return r.corpus }

// CountdownValue returns the remaining countdown steps.
func (r *Racer) CountdownValue() int { return r.countdown }

// Session returns the typing session, nil in the Lobby.
func (r *Racer) Session() *session.Session { return r.session }

// Player returns the racer's identity.
func (r *Racer) Player() model.Player { return r.player }

// Err returns the last user-visible error.
func (r *Racer) Err() error { return r.err }

// ClearErr dismisses the last error.
func (r *Racer) ClearErr() { r.err = nil }
