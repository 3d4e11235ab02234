// Package score gates finished games before they reach the leaderboard.
package score

import (
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/typeracer/internal/model"
	"github.com/verte-zerg/typeracer/internal/stats"
)

const (
	// ExpectedDuration is the length of a leaderboard-eligible game.
	ExpectedDuration = 30 * time.Second
	// Tolerance is the allowed slack below the expected duration. Five
	// times as much is allowed above it.
	Tolerance = 2 * time.Second
	// MaxWPM is the highest accepted score.
	MaxWPM = 250.0
)

// Reason names why a submission was rejected.
type Reason string

// Rejection reasons, checked in this order.
const (
	ReasonTooShort       Reason = "TooShort"
	ReasonTooLong        Reason = "TooLong"
	ReasonNegativeChars  Reason = "NegativeChars"
	ReasonExceedsCorpus  Reason = "ExceedsCorpus"
	ReasonImplausibleWPM Reason = "ImplausibleWpm"
)

// RejectedError is returned for a submission that failed validation.
type RejectedError struct {
	Reason Reason
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("score rejected: %s", e.Reason)
}

// RejectionReason extracts the reason from a rejection anywhere in err's chain.
func RejectionReason(err error) (Reason, bool) {
	var rej *RejectedError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

// Validator recomputes a score from raw timing and character counts.
type Validator struct {
	Expected  time.Duration
	Tolerance time.Duration
	MaxWPM    float64
}

// DefaultValidator returns the validator for 30 second games.
func DefaultValidator() Validator {
	return Validator{
		Expected:  ExpectedDuration,
		Tolerance: Tolerance,
		MaxWPM:    MaxWPM,
	}
}

// Validate returns the recomputed WPM or a *RejectedError. Client-reported
// WPM is never consulted.
func (v Validator) Validate(res model.GameResult) (float64, error) {
	durationMs := res.EndTime.Sub(res.StartTime).Milliseconds()
	expectedMs := v.Expected.Milliseconds()
	toleranceMs := v.Tolerance.Milliseconds()

	switch {
	case durationMs < expectedMs-toleranceMs:
		return 0, &RejectedError{Reason: ReasonTooShort}
	case durationMs > expectedMs+5*toleranceMs:
		return 0, &RejectedError{Reason: ReasonTooLong}
	case res.CharsTyped < 0:
		return 0, &RejectedError{Reason: ReasonNegativeChars}
	case res.CharsTyped > res.CorpusLength:
		return 0, &RejectedError{Reason: ReasonExceedsCorpus}
	}

	wpm := stats.WPM(res.CharsTyped, time.Duration(durationMs)*time.Millisecond)
	if wpm > v.MaxWPM {
		return 0, &RejectedError{Reason: ReasonImplausibleWPM}
	}
	return wpm, nil
}
