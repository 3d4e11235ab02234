package score

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/typeracer/internal/model"
	"github.com/verte-zerg/typeracer/internal/stats"
)

// Leaderboard stores accepted scores.
type Leaderboard interface {
	AddScore(ctx context.Context, player model.Player, wpm float64, at time.Time) error
}

// History stores finished sessions with their mistake histogram.
type History interface {
	SaveSession(ctx context.Context, rec model.SessionRecord, mistakes []model.MistakeCount) (int64, error)
}

// Submission is a finished game as reported by a client.
type Submission struct {
	Player     model.Player         `json:"player"`
	Mode       model.SessionMode    `json:"mode"`
	Result     model.GameResult     `json:"result"`
	ErrorCount int                  `json:"errorCount"`
	Mistakes   []model.MistakeCount `json:"mistakes,omitempty"`
}

// Service validates submissions and persists the accepted ones.
type Service struct {
	validator   Validator
	leaderboard Leaderboard
	history     History
	log         zerolog.Logger
}

// NewService wires a Service. history may be nil.
func NewService(v Validator, leaderboard Leaderboard, history History, logger zerolog.Logger) *Service {
	return &Service{
		validator:   v,
		leaderboard: leaderboard,
		history:     history,
		log:         logger,
	}
}

// Submit validates sub and, when accepted, appends the recomputed score to
// the leaderboard and the session to the history. Rejected submissions are
// returned as *RejectedError and nothing is stored. A history failure after
// the score is stored is logged, not returned.
func (s *Service) Submit(ctx context.Context, sub Submission) (float64, error) {
	wpm, err := s.validator.Validate(sub.Result)
	if err != nil {
		s.log.Info().Str("player", sub.Player.ID).Err(err).Msg("score rejected")
		return 0, err
	}
	if err := s.leaderboard.AddScore(ctx, sub.Player, wpm, sub.Result.EndTime); err != nil {
		return 0, fmt.Errorf("failed to add score: %w", err)
	}
	if err := s.Record(ctx, sub); err != nil {
		s.log.Warn().Str("player", sub.Player.ID).Err(err).Msg("score accepted without history")
	}
	s.log.Info().Str("player", sub.Player.ID).Float64("wpm", wpm).Msg("score accepted")
	return wpm, nil
}

// Record appends sub to the history without touching the leaderboard. Races
// end before the leaderboard window and are stored this way.
func (s *Service) Record(ctx context.Context, sub Submission) error {
	if s.history == nil {
		return nil
	}
	if sub.Result.CharsTyped < 0 || sub.Result.CharsTyped > sub.Result.CorpusLength {
		return &RejectedError{Reason: ReasonExceedsCorpus}
	}
	if _, err := s.history.SaveSession(ctx, SessionRecord(sub), sub.Mistakes); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Practice stores sub in the history only and returns its recomputed WPM.
// Games of a non-standard length go through here.
func (s *Service) Practice(ctx context.Context, sub Submission) (float64, error) {
	if err := s.Record(ctx, sub); err != nil {
		return 0, err
	}
	return SessionRecord(sub).WPM, nil
}

// SessionRecord converts a submission into a history record. WPM is
// recomputed from the raw result.
func SessionRecord(sub Submission) model.SessionRecord {
	mode := sub.Mode
	if mode == "" {
		mode = model.ModeSolo
	}
	elapsed := sub.Result.EndTime.Sub(sub.Result.StartTime)
	return model.SessionRecord{
		UserID:       sub.Player.ID,
		Username:     sub.Player.Name,
		Mode:         mode,
		WPM:          stats.WPM(sub.Result.CharsTyped, elapsed),
		Accuracy:     stats.Accuracy(sub.Result.CorpusLength, sub.ErrorCount),
		CharsTyped:   sub.Result.CharsTyped,
		ErrorCount:   sub.ErrorCount,
		CorpusLength: sub.Result.CorpusLength,
		StartedAt:    sub.Result.StartTime,
		EndedAt:      sub.Result.EndTime,
	}
}
