package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/typeracer/internal/model"
	"github.com/verte-zerg/typeracer/internal/score"
	"github.com/verte-zerg/typeracer/internal/session"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func key(r rune) tea.KeyMsg {
	if r == ' ' {
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func typeKeys(m tea.Model, text string) []tea.Cmd {
	var cmds []tea.Cmd
	for _, r := range text {
		_, cmd := m.Update(key(r))
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}

type soloFixture struct {
	model   *SoloModel
	clock   *clockwork.FakeClock
	loads   int
	submits []score.Submission
	result  error
}

func newSoloFixture(t *testing.T, text string) *soloFixture {
	t.Helper()
	f := &soloFixture{clock: clockwork.NewFakeClockAt(epoch)}
	m, err := NewSolo(context.Background(), SoloOptions{
		Player: model.Player{ID: "u1", Name: "Ada"},
		Corpus: func(context.Context) (model.Corpus, error) {
			f.loads++
			return model.Corpus{Text: text, Reference: []float64{40, 45, 50}}, nil
		},
		Submit: func(_ context.Context, sub score.Submission) (float64, error) {
			f.submits = append(f.submits, sub)
			if f.result != nil {
				return 0, f.result
			}
			return 20, nil
		},
		Clock:  f.clock,
		Logger: zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("new solo: %v", err)
	}
	f.model = m
	return f
}

// runOut ticks the game to its end and returns the last command.
func (f *soloFixture) runOut() tea.Cmd {
	var cmd tea.Cmd
	for i := 0; i < 30; i++ {
		f.clock.Advance(time.Second)
		_, cmd = f.model.Update(tickMsg{gen: f.model.gen})
	}
	return cmd
}

func TestSoloFirstKeystrokeStartsClock(t *testing.T) {
	f := newSoloFixture(t, "ab cd")
	cmds := typeKeys(f.model, "a")
	if len(cmds) != 1 || !f.model.ticking {
		t.Fatalf("expected the first keystroke to schedule a tick, got %d commands", len(cmds))
	}
	if cmds = typeKeys(f.model, "b"); len(cmds) != 0 {
		t.Fatalf("expected a single tick loop, got %d extra commands", len(cmds))
	}
	if snap := f.model.session.Snapshot(); snap.CharsTyped != 2 || snap.Remaining != 30 {
		t.Fatalf("unexpected state: %+v", snap)
	}
}

func TestSoloSubmitsFinishedGame(t *testing.T) {
	f := newSoloFixture(t, "ab cd")
	typeKeys(f.model, "ab cx")
	cmd := f.runOut()
	if !f.model.session.Done() || cmd == nil {
		t.Fatalf("expected finished game with a submit command")
	}
	msg := cmd()
	if len(f.submits) != 1 {
		t.Fatalf("expected one submission, got %d", len(f.submits))
	}
	sub := f.submits[0]
	if sub.Mode != model.ModeSolo || sub.Player.ID != "u1" || sub.Result.CharsTyped != 4 || sub.Result.CorpusLength != 5 {
		t.Fatalf("unexpected submission: %+v", sub)
	}
	if sub.ErrorCount != 1 || len(sub.Mistakes) != 1 || sub.Mistakes[0].Char != "d" {
		t.Fatalf("expected the miss on d, got %+v", sub)
	}
	if got := sub.Result.EndTime.Sub(sub.Result.StartTime); got != 30*time.Second {
		t.Fatalf("expected a 30s game, got %v", got)
	}
	f.model.Update(msg)
	view := f.model.View()
	if !strings.Contains(view, "Score saved: 20.00 WPM") || !strings.Contains(view, "Results") {
		t.Fatalf("expected results with saved score, got %q", view)
	}
	if !strings.Contains(view, "Reference") {
		t.Fatalf("expected reference wpm in results, got %q", view)
	}
}

func TestSoloShowsRejection(t *testing.T) {
	f := newSoloFixture(t, "ab")
	f.result = &score.RejectedError{Reason: score.ReasonImplausibleWPM}
	typeKeys(f.model, "ab")
	cmd := f.runOut()
	f.model.Update(cmd())
	if !strings.Contains(f.model.status, string(score.ReasonImplausibleWPM)) {
		t.Fatalf("expected rejection reason in status, got %q", f.model.status)
	}
}

func TestSoloShowsSubmitFailure(t *testing.T) {
	f := newSoloFixture(t, "ab")
	f.result = errors.New("server down")
	typeKeys(f.model, "ab")
	cmd := f.runOut()
	f.model.Update(cmd())
	if !strings.Contains(f.model.status, "server down") {
		t.Fatalf("expected failure in status, got %q", f.model.status)
	}
}

func TestSoloSkipDoesNotSubmit(t *testing.T) {
	f := newSoloFixture(t, "ab cd")
	typeKeys(f.model, "ab")
	gen := f.model.gen
	f.model.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if f.model.session.Mode() != session.SkippedToResults {
		t.Fatalf("expected skipped session, got %v", f.model.session.Mode())
	}
	f.clock.Advance(time.Second)
	if _, cmd := f.model.Update(tickMsg{gen: gen}); cmd != nil {
		t.Fatalf("stale tick must be ignored")
	}
	if len(f.submits) != 0 {
		t.Fatalf("skipped game must not be submitted")
	}
	if view := f.model.View(); !strings.Contains(view, "Skipped") {
		t.Fatalf("expected skipped results, got %q", view)
	}
}

func TestSoloTabStartsNewGame(t *testing.T) {
	f := newSoloFixture(t, "ab cd")
	typeKeys(f.model, "ab")
	gen := f.model.gen
	f.model.Update(tea.KeyMsg{Type: tea.KeyTab})
	if f.loads != 2 {
		t.Fatalf("expected a fresh corpus, got %d loads", f.loads)
	}
	if f.model.gen == gen || f.model.session.Started() || f.model.ticking {
		t.Fatalf("expected a fresh game")
	}
}

func TestSoloIgnoresKeysAfterResults(t *testing.T) {
	f := newSoloFixture(t, "ab")
	f.model.Update(tea.KeyMsg{Type: tea.KeyCtrlS})
	if cmds := typeKeys(f.model, "ab"); len(cmds) != 0 {
		t.Fatalf("expected no commands after results")
	}
	if _, cmd := f.model.Update(tea.KeyMsg{Type: tea.KeyEsc}); cmd == nil {
		t.Fatalf("expected esc to quit from results")
	}
}

func TestSoloFooterFormats(t *testing.T) {
	f := newSoloFixture(t, "abcd")
	typeKeys(f.model, "abx")
	out := f.model.renderFooter(f.model.session.Snapshot())
	for _, want := range []string{"Progress 50%", "Errors 1", "tab restart"} {
		if !strings.Contains(out, want) {
			t.Fatalf("footer missing %q: %s", want, out)
		}
	}
}

func TestReferenceAt(t *testing.T) {
	ref := []float64{10, 20, 30}
	if got := referenceAt(ref, 2); got != 20 {
		t.Fatalf("expected 20, got %v", got)
	}
	if got := referenceAt(ref, 10); got != 30 {
		t.Fatalf("expected last value, got %v", got)
	}
	if got := referenceAt(nil, 3); got != 0 {
		t.Fatalf("expected 0 without reference, got %v", got)
	}
}
