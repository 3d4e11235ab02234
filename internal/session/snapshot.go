package session

import "time"

// Snapshot is a read-only view of a session for rendering.
type Snapshot struct {
	Mode          Mode
	Cursor        int
	CorpusLength  int
	Current       rune
	Typed         string
	Pending       string
	LeftPad       int
	Incorrect     bool
	CharsTyped    int
	WordCount     int
	ErrorCount    int
	Errors        map[rune]int
	WPM           float64
	Samples       []float64
	Remaining     int
	Started       bool
	StartedAt     time.Time
	Accuracy      float64
	ExternalStart bool
}

// Snapshot copies the display state. Typed and Pending are bounded by the
// configured window; counters are exact.
func (s *Session) Snapshot() Snapshot {
	window := s.opts.Window
	typedFrom := s.cursor - window
	if typedFrom < 0 {
		typedFrom = 0
	}
	var current rune
	pendingFrom := s.cursor
	if s.cursor < len(s.corpus) {
		current = s.corpus[s.cursor]
		pendingFrom = s.cursor + 1
	}
	pendingTo := pendingFrom + window
	if pendingTo > len(s.corpus) {
		pendingTo = len(s.corpus)
	}
	leftPad := window - s.cursor
	if leftPad < 0 {
		leftPad = 0
	}

	errs := make(map[rune]int, len(s.errors))
	for r, c := range s.errors {
		errs[r] = c
	}
	samples := make([]float64, len(s.samples))
	copy(samples, s.samples)

	return Snapshot{
		Mode:          s.mode,
		Cursor:        s.cursor,
		CorpusLength:  len(s.corpus),
		Current:       current,
		Typed:         string(s.corpus[typedFrom:s.cursor]),
		Pending:       string(s.corpus[pendingFrom:pendingTo]),
		LeftPad:       leftPad,
		Incorrect:     s.lastIncorrect,
		CharsTyped:    s.charsTyped,
		WordCount:     s.wordCount,
		ErrorCount:    s.errorCount,
		Errors:        errs,
		WPM:           s.wpm,
		Samples:       samples,
		Remaining:     s.remaining,
		Started:       !s.startedAt.IsZero(),
		StartedAt:     s.startedAt,
		Accuracy:      s.Accuracy(),
		ExternalStart: s.externalStart,
	}
}
