package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/typeracer/internal/model"
	"github.com/verte-zerg/typeracer/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "typeracer.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	player := model.Player{ID: "u1", Name: "Ada"}
	for i, wpm := range []float64{30, 50, 70} {
		start := time.Date(2024, 5, 1, 12, i, 0, 0, time.UTC)
		rec := model.SessionRecord{
			UserID:       player.ID,
			Username:     player.Name,
			Mode:         model.ModeSolo,
			WPM:          wpm,
			Accuracy:     0.9,
			CharsTyped:   100,
			ErrorCount:   i,
			CorpusLength: 120,
			StartedAt:    start,
			EndedAt:      start.Add(30 * time.Second),
		}
		mistakes := []model.MistakeCount{{Char: "a", Count: 1}, {Char: "b", Count: i + 1}}
		if _, err := st.SaveSession(ctx, rec, mistakes); err != nil {
			t.Fatalf("save session: %v", err)
		}
		if err := st.AddScore(ctx, player, wpm, rec.EndedAt); err != nil {
			t.Fatalf("add score: %v", err)
		}
	}
	if _, err := st.SaveSession(ctx, model.SessionRecord{
		UserID:    "u2",
		Username:  "Bob",
		Mode:      model.ModeRace,
		WPM:       99,
		StartedAt: time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC),
		EndedAt:   time.Date(2024, 5, 1, 13, 0, 30, 0, time.UTC),
	}, nil); err != nil {
		t.Fatalf("save other session: %v", err)
	}

	report, err := BuildReport(ctx, st, model.StatsConfig{UserID: "u1", Last: 2, Top: 1})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 2 || report.Sessions[0].WPM != 50 || report.Sessions[1].WPM != 70 {
		t.Fatalf("expected the last two sessions of u1, got %+v", report.Sessions)
	}
	if report.Summary.TotalRaces != 2 || report.Summary.BestWPM != 70 || report.Summary.AverageWPM != 60 {
		t.Fatalf("unexpected summary: %+v", report.Summary)
	}
	if len(report.Mistakes) != 1 || report.Mistakes[0].Char != "b" || report.Mistakes[0].Count != 5 {
		t.Fatalf("expected top mistake b=5, got %+v", report.Mistakes)
	}
	if len(report.Leaderboard) != 1 || report.Leaderboard[0].Best != 70 || len(report.Leaderboard[0].Scores) != 3 {
		t.Fatalf("unexpected leaderboard: %+v", report.Leaderboard)
	}
}

func TestBuildReportEmpty(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "typeracer.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	report, err := BuildReport(context.Background(), st, model.StatsConfig{})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 0 || report.Summary.TotalRaces != 0 || len(report.Mistakes) != 0 {
		t.Fatalf("expected empty report, got %+v", report)
	}
}
