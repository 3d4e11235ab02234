// Package race coordinates two-player typing races: the server-side room
// authority and the client-side racer state machine.
package race

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/typeracer/internal/bus"
	"github.com/verte-zerg/typeracer/internal/model"
)

const (
	maxCodeAttempts     = 100
	defaultPollInterval = 2 * time.Second
)

// errSkip aborts a guarded update without reporting an error.
var errSkip = errors.New("skip")

// Options configures a Service. Zero values pick the defaults.
type Options struct {
	Codes        CodeGenerator
	Clock        clockwork.Clock
	Bus          bus.Bus
	Logger       zerolog.Logger
	PollInterval time.Duration
}

// Service is the authority over shared room state. Every transition is
// guarded by the expected prior status.
type Service struct {
	store  Store
	corpus CorpusProvider
	codes  CodeGenerator
	clock  clockwork.Clock
	bus    bus.Bus
	log    zerolog.Logger
	poll   time.Duration
}

var _ API = (*Service)(nil)

// NewService wires a Service over store.
func NewService(store Store, corpus CorpusProvider, opts Options) *Service {
	if opts.Codes == nil {
		opts.Codes = NewRandomCodes()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Bus == nil {
		opts.Bus = bus.NewLocalBus()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Service{
		store:  store,
		corpus: corpus,
		codes:  opts.Codes,
		clock:  opts.Clock,
		bus:    opts.Bus,
		log:    opts.Logger,
		poll:   opts.PollInterval,
	}
}

// CreateRoom opens a Waiting room for host under a fresh code.
func (s *Service) CreateRoom(ctx context.Context, host model.Player) (Created, error) {
	corpus, err := s.corpus.Corpus(ctx)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return Created{}, ErrNoCorpus
		}
		return Created{}, fmt.Errorf("failed to load corpus: %w", err)
	}
	if strings.TrimSpace(corpus.Text) == "" {
		return Created{}, ErrNoCorpus
	}

	now := s.clock.Now()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := s.codes.Next()
		if _, err := s.store.RoomByCode(ctx, code); err == nil {
			continue
		} else if !errors.Is(err, model.ErrNotFound) {
			return Created{}, fmt.Errorf("failed to check room code: %w", err)
		}
		room := model.Room{
			ID:        uuid.NewString(),
			Code:      code,
			HostID:    host.ID,
			HostName:  host.Name,
			Status:    model.StatusWaiting,
			Corpus:    corpus.Text,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.store.CreateRoom(ctx, room); err != nil {
			if errors.Is(err, model.ErrConflict) {
				continue
			}
			return Created{}, fmt.Errorf("failed to create room: %w", err)
		}
		if err := s.store.PutProgress(ctx, newProgress(room.ID, host.ID, now)); err != nil {
			return Created{}, fmt.Errorf("failed to create host progress: %w", err)
		}
		s.log.Info().Str("room", room.ID).Str("code", code).Str("host", host.ID).Msg("room created")
		s.publish(ctx, room.ID)
		return Created{RoomID: room.ID, Code: code, Corpus: room.Corpus}, nil
	}
	return Created{}, ErrCodesExhausted
}

// JoinRoom seats guest in the Waiting room with code.
func (s *Service) JoinRoom(ctx context.Context, code string, guest model.Player) (Joined, error) {
	code = NormalizeCode(code)
	found, err := s.store.RoomByCode(ctx, code)
	if err != nil {
		return Joined{}, s.roomErr(err)
	}
	room, err := s.store.UpdateRoom(ctx, found.ID, func(r *model.Room) error {
		if r.HostID == guest.ID {
			return ErrCannotJoinOwnRoom
		}
		if r.Status != model.StatusWaiting {
			return ErrAlreadyStarted
		}
		if r.HasGuest() {
			return ErrRoomFull
		}
		r.GuestID = guest.ID
		r.GuestName = guest.Name
		r.UpdatedAt = s.clock.Now()
		return nil
	})
	if err != nil {
		return Joined{}, s.roomErr(err)
	}
	if err := s.store.PutProgress(ctx, newProgress(room.ID, guest.ID, s.clock.Now())); err != nil {
		return Joined{}, fmt.Errorf("failed to create guest progress: %w", err)
	}
	s.log.Info().Str("room", room.ID).Str("guest", guest.ID).Msg("guest joined")
	s.publish(ctx, room.ID)
	return Joined{RoomID: room.ID, Code: room.Code, Corpus: room.Corpus, HostName: room.HostName}, nil
}

// StartCountdown moves a full Waiting room to Countdown. Host only.
func (s *Service) StartCountdown(ctx context.Context, roomID, callerID string) error {
	_, err := s.store.UpdateRoom(ctx, roomID, func(r *model.Room) error {
		if r.HostID != callerID {
			return ErrNotHost
		}
		if !r.HasGuest() {
			return ErrNoOpponent
		}
		if r.Status != model.StatusWaiting {
			return ErrAlreadyStarted
		}
		r.Status = model.StatusCountdown
		r.UpdatedAt = s.clock.Now()
		return nil
	})
	if err != nil {
		return s.roomErr(err)
	}
	s.log.Info().Str("room", roomID).Msg("countdown started")
	s.publish(ctx, roomID)
	return nil
}

// StartRacing stamps the shared start time and moves Countdown to Racing.
func (s *Service) StartRacing(ctx context.Context, roomID string) (time.Time, error) {
	room, err := s.store.UpdateRoom(ctx, roomID, func(r *model.Room) error {
		if r.Status != model.StatusCountdown {
			return ErrNotInCountdown
		}
		now := s.clock.Now()
		r.Status = model.StatusRacing
		r.StartTime = &now
		r.UpdatedAt = now
		return nil
	})
	if err != nil {
		return time.Time{}, s.roomErr(err)
	}
	s.log.Info().Str("room", roomID).Time("start", *room.StartTime).Msg("race started")
	s.publish(ctx, roomID)
	return *room.StartTime, nil
}

// UpdateProgress mirrors a participant's live counters. It reports false
// without error once the row is finished or disconnected.
func (s *Service) UpdateProgress(ctx context.Context, roomID, participantID string, chars int, wpm float64) (bool, error) {
	_, err := s.store.UpdateProgress(ctx, roomID, participantID, func(p *model.Progress) error {
		if p.Done() {
			return errSkip
		}
		p.CharsTyped = chars
		p.WPM = wpm
		p.UpdatedAt = s.clock.Now()
		return nil
	})
	if errors.Is(err, errSkip) {
		return false, nil
	}
	if err != nil {
		return false, s.progressErr(err)
	}
	s.publish(ctx, roomID)
	return true, nil
}

// FinishRace records a participant's final result and finishes the room
// once every row is finished or disconnected.
func (s *Service) FinishRace(ctx context.Context, roomID, participantID string, finalWPM float64, chars int) error {
	_, err := s.store.UpdateProgress(ctx, roomID, participantID, func(p *model.Progress) error {
		now := s.clock.Now()
		p.CharsTyped = chars
		p.WPM = finalWPM
		p.Finished = true
		p.FinishTime = &now
		p.UpdatedAt = now
		return nil
	})
	if err != nil {
		return s.progressErr(err)
	}
	s.log.Info().Str("room", roomID).Str("participant", participantID).Float64("wpm", finalWPM).Msg("participant finished")
	if err := s.finishIfDone(ctx, roomID); err != nil {
		return err
	}
	s.publish(ctx, roomID)
	return nil
}

// LeaveRace disconnects a participant. A Waiting room is deleted when the
// host leaves and reopened when the guest leaves; started rooms keep their
// rows. Leaving a room that no longer exists is not an error.
func (s *Service) LeaveRace(ctx context.Context, roomID, participantID string) error {
	room, err := s.store.Room(ctx, roomID)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load room: %w", err)
	}

	_, err = s.store.UpdateProgress(ctx, roomID, participantID, func(p *model.Progress) error {
		p.Disconnected = true
		p.UpdatedAt = s.clock.Now()
		return nil
	})
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("failed to mark disconnected: %w", err)
	}

	msg := "participant disconnected"
	switch {
	case room.Status == model.StatusWaiting && room.HostID == participantID:
		if err := s.store.DeleteRoom(ctx, roomID); err != nil && !errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("failed to delete room: %w", err)
		}
		msg = "host left, room deleted"
	case room.Status == model.StatusWaiting && room.GuestID == participantID:
		_, err := s.store.UpdateRoom(ctx, roomID, func(r *model.Room) error {
			if r.Status != model.StatusWaiting || r.GuestID != participantID {
				return errSkip
			}
			r.GuestID = ""
			r.GuestName = ""
			r.UpdatedAt = s.clock.Now()
			return nil
		})
		if err != nil && !errors.Is(err, errSkip) && !errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("failed to clear guest: %w", err)
		}
		msg = "guest left, room reopened"
	case room.Status == model.StatusRacing:
		if err := s.finishIfDone(ctx, roomID); err != nil {
			return err
		}
	}
	s.log.Info().Str("room", roomID).Str("participant", participantID).Msg(msg)
	s.publish(ctx, roomID)
	return nil
}

// Room returns the current room record.
func (s *Service) Room(ctx context.Context, roomID string) (model.Room, error) {
	room, err := s.store.Room(ctx, roomID)
	if err != nil {
		return model.Room{}, s.roomErr(err)
	}
	return room, nil
}

// RoomByCode looks a room up by its (case-insensitive) code.
func (s *Service) RoomByCode(ctx context.Context, code string) (model.Room, error) {
	room, err := s.store.RoomByCode(ctx, NormalizeCode(code))
	if err != nil {
		return model.Room{}, s.roomErr(err)
	}
	return room, nil
}

// Snapshot returns the room together with its progress rows.
func (s *Service) Snapshot(ctx context.Context, roomID string) (Snapshot, error) {
	room, err := s.Room(ctx, roomID)
	if err != nil {
		return Snapshot{}, err
	}
	progress, err := s.store.ListProgress(ctx, roomID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to list progress: %w", err)
	}
	return Snapshot{Room: room, Progress: progress}, nil
}

// finishIfDone sets Finished when every progress row is terminal. Setting
// it twice is harmless.
func (s *Service) finishIfDone(ctx context.Context, roomID string) error {
	rows, err := s.store.ListProgress(ctx, roomID)
	if err != nil {
		return fmt.Errorf("failed to list progress: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	for _, p := range rows {
		if !p.Done() {
			return nil
		}
	}
	_, err = s.store.UpdateRoom(ctx, roomID, func(r *model.Room) error {
		if r.Status == model.StatusFinished {
			return errSkip
		}
		r.Status = model.StatusFinished
		r.UpdatedAt = s.clock.Now()
		return nil
	})
	if err != nil && !errors.Is(err, errSkip) {
		return s.roomErr(err)
	}
	if err == nil {
		s.log.Info().Str("room", roomID).Msg("race finished")
	}
	return nil
}

func (s *Service) publish(ctx context.Context, roomID string) {
	if err := s.bus.Publish(ctx, roomID); err != nil {
		s.log.Warn().Err(err).Str("room", roomID).Msg("failed to publish room change")
	}
}

func (s *Service) roomErr(err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return ErrRoomNotFound
	}
	return err
}

func (s *Service) progressErr(err error) error {
	if errors.Is(err, model.ErrNotFound) {
		return ErrProgressNotFound
	}
	return err
}

func newProgress(roomID, participantID string, now time.Time) model.Progress {
	return model.Progress{
		RoomID:        roomID,
		ParticipantID: participantID,
		UpdatedAt:     now,
	}
}
