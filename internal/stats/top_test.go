package stats

import (
	"testing"

	"github.com/verte-zerg/typeracer/internal/model"
)

func TestTopMistakes(t *testing.T) {
	mistakes := []model.MistakeCount{
		{Char: "b", Count: 3},
		{Char: "a", Count: 3},
		{Char: "c", Count: 1},
		{Char: "b", Count: 2},
	}
	top := TopMistakes(mistakes, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 chars, got %d", len(top))
	}
	if top[0].Char != "b" || top[0].Count != 5 || top[1].Char != "a" {
		t.Fatalf("unexpected order: %+v", top)
	}
	if all := TopMistakes(mistakes, 0); len(all) != 3 {
		t.Fatalf("expected all 3 chars, got %d", len(all))
	}
}

func TestWeakCharsSkipsSpace(t *testing.T) {
	weak := WeakChars([]model.MistakeCount{{Char: " ", Count: 9}, {Char: "q", Count: 2}}, 2)
	if _, ok := weak['q']; !ok {
		t.Fatalf("expected q to be weak")
	}
	if _, ok := weak[' ']; ok {
		t.Fatalf("space should not be weak")
	}
}

func TestSortLeaderboardByBest(t *testing.T) {
	entries := []model.LeaderboardEntry{
		{UserID: "1", Username: "ann", Scores: []float64{40, 55}},
		{UserID: "2", Username: "bob", Scores: []float64{72}},
		{UserID: "3", Username: "cat", Scores: []float64{55, 12}},
	}
	sorted := SortLeaderboard(entries)
	if sorted[0].Username != "bob" || sorted[1].Username != "ann" || sorted[2].Username != "cat" {
		t.Fatalf("unexpected order: %+v", sorted)
	}
	if sorted[0].Best != 72 || sorted[1].Best != 55 {
		t.Fatalf("unexpected best scores: %+v", sorted)
	}
}
