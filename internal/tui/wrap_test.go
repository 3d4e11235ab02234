package tui

import (
	"strings"
	"testing"

	"github.com/verte-zerg/typeracer/internal/session"
)

func TestBuildStyledRunesCursor(t *testing.T) {
	snap := session.Snapshot{Typed: "a", Current: 'b'}
	runes := buildStyledRunes(snap)
	if len(runes) != 2 {
		t.Fatalf("expected 2 runes, got %d", len(runes))
	}
	if runes[0].s != correctStyle.Render("a") {
		t.Fatalf("expected correct style for first rune")
	}
	if runes[1].s != cursorStyle.Render("b") {
		t.Fatalf("expected cursor style for second rune")
	}
}

func TestBuildStyledRunesLeftPad(t *testing.T) {
	snap := session.Snapshot{LeftPad: 3, Current: 'a', Pending: "b"}
	runes := buildStyledRunes(snap)
	if len(runes) != 5 {
		t.Fatalf("expected 5 runes, got %d", len(runes))
	}
	for i := 0; i < 3; i++ {
		if runes[i].s != " " {
			t.Fatalf("expected padding at %d, got %q", i, runes[i].s)
		}
	}
}

func TestBuildStyledRunesNoCursorWhenComplete(t *testing.T) {
	snap := session.Snapshot{Typed: "a"}
	runes := buildStyledRunes(snap)
	if len(runes) != 1 {
		t.Fatalf("expected 1 rune, got %d", len(runes))
	}
	if runes[0].s != correctStyle.Render("a") {
		t.Fatalf("expected correct style for completed rune")
	}
}

func TestBuildStyledRunesFlagsMistype(t *testing.T) {
	snap := session.Snapshot{Typed: "a", Current: 'b', Incorrect: true}
	runes := buildStyledRunes(snap)
	if runes[1].s != incorrectStyle.Underline(true).Render("b") {
		t.Fatalf("expected incorrect style on the cursor")
	}
}

func TestBuildStyledRunesWordHighlighting(t *testing.T) {
	snap := session.Snapshot{Typed: "o", Current: 'n', Pending: "e two"}
	runes := buildStyledRunes(snap)
	if runes[0].s != correctStyle.Render("o") {
		t.Fatalf("expected correct style for typed rune")
	}
	if runes[2].s != currentWordStyle.Render("e") {
		t.Fatalf("expected current word style for untyped in current word")
	}
	if runes[4].s != pendingStyle.Render("t") {
		t.Fatalf("expected pending style for next word")
	}
	if runes[6].s != pendingStyle.Render("o") {
		t.Fatalf("expected pending style for next word")
	}
}

func TestBuildStyledRunesWrongSpaceDot(t *testing.T) {
	snap := session.Snapshot{Typed: "a", Current: ' ', Pending: "b", Incorrect: true}
	runes := buildStyledRunes(snap)
	if len(runes) != 3 {
		t.Fatalf("expected 3 runes, got %d", len(runes))
	}
	if runes[1].s != incorrectStyle.Underline(true).Render(string(wrongSpace)) {
		t.Fatalf("expected red dot for wrong space")
	}
	if !runes[1].isSpace {
		t.Fatalf("expected the dot to stay a break point")
	}
}

func TestWrapStyledRunesBreaksAtSpace(t *testing.T) {
	runes := make([]styledRune, 0, 7)
	for _, r := range "abc def" {
		runes = append(runes, styledRune{s: string(r), width: 1, isSpace: r == ' '})
	}
	out := wrapStyledRunes(runes, 5)
	if out != "abc\ndef" {
		t.Fatalf("expected wrap at space, got %q", out)
	}
	if got := wrapStyledRunes(runes, 0); strings.Contains(got, "\n") {
		t.Fatalf("expected no wrap without width, got %q", got)
	}
}
