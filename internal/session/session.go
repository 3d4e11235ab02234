// Package session implements a single timed typing game over a fixed corpus.
package session

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/verte-zerg/typeracer/internal/model"
	"github.com/verte-zerg/typeracer/internal/stats"
)

// ErrEmptyCorpus is returned when a session is created over blank text.
var ErrEmptyCorpus = errors.New("corpus is empty")

const (
	// DefaultDuration is the length of one game.
	DefaultDuration = 30 * time.Second
	// DefaultWindow is how many typed and pending characters are kept for display.
	DefaultWindow = 30
	// CompactWindow is the display window for narrow terminals.
	CompactWindow = 25
)

// Mode is the lifecycle stage of a session.
type Mode int

// Session modes.
const (
	Active Mode = iota
	SkippedToResults
	Finished
)

func (m Mode) String() string {
	switch m {
	case SkippedToResults:
		return "skipped"
	case Finished:
		return "finished"
	default:
		return "active"
	}
}

// Policy decides what happens when the corpus is completed before time runs out.
type Policy int

const (
	// PolicyFixed keeps the clock running for the whole duration (solo).
	PolicyFixed Policy = iota
	// PolicyFinishOnComplete ends the session as soon as the last character is typed (race).
	PolicyFinishOnComplete
)

// Outcome reports how a keystroke was judged.
type Outcome int

// Keystroke outcomes.
const (
	Ignored Outcome = iota
	Correct
	Incorrect
)

// Options configures a session. Zero values pick the defaults.
type Options struct {
	Duration time.Duration
	Window   int
	Policy   Policy
	Clock    clockwork.Clock
}

// Session is one typing game. It is not safe for concurrent use; callers
// serialize keystrokes and ticks on a single event loop.
type Session struct {
	corpus []rune
	opts   Options
	clock  clockwork.Clock

	cursor        int
	startedAt     time.Time
	endedAt       time.Time
	externalStart bool
	remaining     int
	charsTyped    int
	wordCount     int
	errorCount    int
	errors        map[rune]int
	samples       []float64
	wpm           float64
	mode          Mode
	lastIncorrect bool
	disabled      bool
}

// New creates a session over corpus.
func New(corpus string, opts Options) (*Session, error) {
	if strings.TrimSpace(corpus) == "" {
		return nil, ErrEmptyCorpus
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	s := &Session{
		corpus: []rune(corpus),
		opts:   opts,
		clock:  opts.Clock,
	}
	s.Reset()
	return s, nil
}

// Reset returns the session to its initial state over the same corpus.
func (s *Session) Reset() {
	s.cursor = 0
	s.startedAt = time.Time{}
	s.endedAt = time.Time{}
	s.externalStart = false
	s.remaining = int(s.opts.Duration / time.Second)
	s.charsTyped = 0
	s.wordCount = 0
	s.errorCount = 0
	s.errors = map[rune]int{}
	s.samples = nil
	s.wpm = 0
	s.mode = Active
	s.lastIncorrect = false
}

// SetDisabled stops keystrokes from being judged, e.g. before a race starts.
func (s *Session) SetDisabled(disabled bool) {
	s.disabled = disabled
}

// SetStartTime installs an externally agreed start instant. It replaces any
// locally stamped start; keystrokes earlier than it are ignored.
func (s *Session) SetStartTime(start time.Time) {
	if s.mode != Active {
		return
	}
	s.startedAt = start
	s.externalStart = true
}

// Keystroke judges one typed character against the current corpus position.
func (s *Session) Keystroke(r rune) Outcome {
	if s.mode != Active || s.disabled {
		return Ignored
	}
	now := s.clock.Now()
	if s.startedAt.IsZero() {
		s.startedAt = now
	} else if s.externalStart && now.Before(s.startedAt) {
		return Ignored
	}
	if s.remaining <= 0 || s.cursor >= len(s.corpus) {
		return Ignored
	}

	expected := s.corpus[s.cursor]
	if r != expected {
		s.lastIncorrect = true
		s.errorCount++
		s.errors[expected]++
		return Incorrect
	}

	s.lastIncorrect = false
	s.cursor++
	s.charsTyped++
	if s.cursor < len(s.corpus) && s.corpus[s.cursor] == ' ' {
		s.wordCount++
	}
	if s.cursor == len(s.corpus) && s.opts.Policy == PolicyFinishOnComplete {
		s.wpm = stats.WPM(s.charsTyped, now.Sub(s.startedAt))
		s.samples = append(s.samples, s.wpm)
		s.finish(now)
	}
	return Correct
}

// Tick advances the countdown by one second and samples WPM from the
// wall-clock time since start. It reports whether the session finished.
func (s *Session) Tick() bool {
	if s.mode != Active || s.startedAt.IsZero() || s.remaining <= 0 {
		return false
	}
	now := s.clock.Now()
	if now.Before(s.startedAt) {
		return false
	}
	s.remaining--
	s.wpm = stats.WPM(s.charsTyped, now.Sub(s.startedAt))
	s.samples = append(s.samples, s.wpm)
	if s.remaining == 0 {
		s.finish(now)
		return true
	}
	return false
}

// SkipToResults ends the session without a score. Skipped sessions are not
// eligible for the leaderboard.
func (s *Session) SkipToResults() {
	if s.mode != Active {
		return
	}
	s.mode = SkippedToResults
	s.remaining = 0
	s.wpm = 0
	s.samples = nil
	s.endedAt = s.clock.Now()
}

func (s *Session) finish(now time.Time) {
	s.mode = Finished
	s.remaining = 0
	s.endedAt = now
}

// Mode returns the lifecycle stage.
func (s *Session) Mode() Mode {
	return s.mode
}

// Started reports whether the session has a start time.
func (s *Session) Started() bool {
	return !s.startedAt.IsZero()
}

// Done reports whether the session accepts no more input.
func (s *Session) Done() bool {
	return s.mode != Active
}

// Corpus returns the full text.
func (s *Session) Corpus() string {
	return string(s.corpus)
}

// CharsTyped returns the number of correctly typed characters.
func (s *Session) CharsTyped() int {
	return s.charsTyped
}

// WPM returns the latest sampled WPM.
func (s *Session) WPM() float64 {
	return s.wpm
}

// Result returns the raw game data for score validation. It is only
// available for sessions that finished normally.
func (s *Session) Result() (model.GameResult, bool) {
	if s.mode != Finished {
		return model.GameResult{}, false
	}
	return model.GameResult{
		StartTime:    s.startedAt,
		EndTime:      s.endedAt,
		CharsTyped:   s.charsTyped,
		CorpusLength: len(s.corpus),
	}, true
}

// Accuracy returns the share of the corpus not missed.
func (s *Session) Accuracy() float64 {
	return stats.Accuracy(len(s.corpus), s.errorCount)
}

// Mistakes returns the error histogram keyed by the expected character.
func (s *Session) Mistakes() []model.MistakeCount {
	out := make([]model.MistakeCount, 0, len(s.errors))
	for r, count := range s.errors {
		out = append(out, model.MistakeCount{Char: string(r), Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Char < out[j].Char
		}
		return out[i].Count > out[j].Count
	})
	return out
}

// Record builds a history record for the finished session.
func (s *Session) Record(player model.Player, mode model.SessionMode) model.SessionRecord {
	return model.SessionRecord{
		UserID:       player.ID,
		Username:     player.Name,
		Mode:         mode,
		WPM:          s.wpm,
		Accuracy:     s.Accuracy(),
		CharsTyped:   s.charsTyped,
		ErrorCount:   s.errorCount,
		CorpusLength: len(s.corpus),
		StartedAt:    s.startedAt,
		EndedAt:      s.endedAt,
	}
}
