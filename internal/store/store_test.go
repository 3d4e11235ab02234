package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/typeracer/internal/model"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "typeracer.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func testRoom(id, code string) model.Room {
	return model.Room{
		ID:        id,
		Code:      code,
		HostID:    "host",
		HostName:  "Host",
		Status:    model.StatusWaiting,
		Corpus:    "hello world",
		CreatedAt: t0,
		UpdatedAt: t0,
	}
}

func TestRoomRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if err := st.CreateRoom(ctx, testRoom("r1", "ABCDEF")); err != nil {
		t.Fatalf("create room: %v", err)
	}
	got, err := st.RoomByCode(ctx, "ABCDEF")
	if err != nil {
		t.Fatalf("room by code: %v", err)
	}
	if got.ID != "r1" || got.Status != model.StatusWaiting || got.StartTime != nil || !got.CreatedAt.Equal(t0) {
		t.Fatalf("unexpected room: %+v", got)
	}
	if _, err := st.Room(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateRoomDuplicateCode(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if err := st.CreateRoom(ctx, testRoom("r1", "ABCDEF")); err != nil {
		t.Fatalf("create room: %v", err)
	}
	if err := st.CreateRoom(ctx, testRoom("r2", "ABCDEF")); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUpdateRoomAbortsOnError(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if err := st.CreateRoom(ctx, testRoom("r1", "ABCDEF")); err != nil {
		t.Fatalf("create room: %v", err)
	}
	stop := errors.New("stop")
	_, err := st.UpdateRoom(ctx, "r1", func(r *model.Room) error {
		r.Status = model.StatusRacing
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected fn error, got %v", err)
	}
	got, _ := st.Room(ctx, "r1")
	if got.Status != model.StatusWaiting {
		t.Fatalf("aborted update must not be saved, got %s", got.Status)
	}

	start := t0.Add(time.Minute)
	updated, err := st.UpdateRoom(ctx, "r1", func(r *model.Room) error {
		r.Status = model.StatusRacing
		r.StartTime = &start
		r.GuestID = "guest"
		return nil
	})
	if err != nil {
		t.Fatalf("update room: %v", err)
	}
	got, _ = st.Room(ctx, "r1")
	if got.Status != model.StatusRacing || got.StartTime == nil || !got.StartTime.Equal(start) || got.GuestID != "guest" {
		t.Fatalf("unexpected stored room: %+v", got)
	}
	if updated.Status != model.StatusRacing {
		t.Fatalf("expected updated room returned, got %+v", updated)
	}
	if _, err := st.UpdateRoom(ctx, "missing", func(*model.Room) error { return nil }); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProgressLifecycle(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if err := st.CreateRoom(ctx, testRoom("r1", "ABCDEF")); err != nil {
		t.Fatalf("create room: %v", err)
	}
	for _, id := range []string{"host", "guest"} {
		if err := st.PutProgress(ctx, model.Progress{RoomID: "r1", ParticipantID: id, UpdatedAt: t0}); err != nil {
			t.Fatalf("put progress: %v", err)
		}
	}
	finish := t0.Add(30 * time.Second)
	if _, err := st.UpdateProgress(ctx, "r1", "guest", func(p *model.Progress) error {
		p.CharsTyped = 42
		p.WPM = 84
		p.Finished = true
		p.FinishTime = &finish
		return nil
	}); err != nil {
		t.Fatalf("update progress: %v", err)
	}
	rows, err := st.ListProgress(ctx, "r1")
	if err != nil {
		t.Fatalf("list progress: %v", err)
	}
	if len(rows) != 2 || rows[0].ParticipantID != "host" || rows[1].ParticipantID != "guest" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if !rows[1].Finished || rows[1].CharsTyped != 42 || rows[1].FinishTime == nil || !rows[1].FinishTime.Equal(finish) {
		t.Fatalf("unexpected guest row: %+v", rows[1])
	}
	if _, err := st.UpdateProgress(ctx, "r1", "nobody", func(*model.Progress) error { return nil }); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := st.DeleteRoom(ctx, "r1"); err != nil {
		t.Fatalf("delete room: %v", err)
	}
	rows, err = st.ListProgress(ctx, "r1")
	if err != nil || len(rows) != 0 {
		t.Fatalf("expected progress deleted with room, got %v %v", rows, err)
	}
	if err := st.DeleteRoom(ctx, "r1"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestLeaderboardAppendsScores(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	ann := model.Player{ID: "u1", Name: "ann"}
	bob := model.Player{ID: "u2", Name: "bob"}
	for _, sc := range []struct {
		p   model.Player
		wpm float64
	}{{ann, 40}, {bob, 55}, {ann, 62.5}, {ann, 50}} {
		if err := st.AddScore(ctx, sc.p, sc.wpm, t0); err != nil {
			t.Fatalf("add score: %v", err)
		}
	}
	if err := st.AddScore(ctx, model.Player{ID: "u1", Name: "annie"}, 10, t0); err != nil {
		t.Fatalf("add score: %v", err)
	}
	entries, err := st.Leaderboard(ctx)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if entries[0].Username != "annie" || len(entries[0].Scores) != 4 || entries[0].Best != 62.5 {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[0].Scores[0] != 40 || entries[0].Scores[3] != 10 {
		t.Fatalf("scores must keep submission order: %v", entries[0].Scores)
	}
}

func TestSessionsAndMistakes(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	var ids []int64
	for i := 0; i < 12; i++ {
		start := t0.Add(time.Duration(i) * time.Minute)
		rec := model.SessionRecord{
			UserID:       "u1",
			Username:     "ann",
			Mode:         model.ModeSolo,
			WPM:          float64(30 + i),
			Accuracy:     0.9,
			CharsTyped:   100,
			ErrorCount:   2,
			CorpusLength: 200,
			StartedAt:    start,
			EndedAt:      start.Add(30 * time.Second),
		}
		id, err := st.SaveSession(ctx, rec, []model.MistakeCount{{Char: "e", Count: 1}, {Char: " ", Count: i}})
		if err != nil {
			t.Fatalf("save session: %v", err)
		}
		ids = append(ids, id)
	}
	if _, err := st.SaveSession(ctx, model.SessionRecord{UserID: "u2", Mode: model.ModeRace, StartedAt: t0, EndedAt: t0}, nil); err != nil {
		t.Fatalf("save session: %v", err)
	}

	recent, err := st.RecentSessions(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("recent sessions: %v", err)
	}
	if len(recent) != 10 || recent[0].ID != ids[11] || recent[0].WPM != 41 {
		t.Fatalf("expected 10 newest sessions, got %d first %+v", len(recent), recent[0])
	}

	since := t0.Add(10 * time.Minute)
	all, err := st.ListSessions(ctx, model.StatsConfig{UserID: "u1", Since: &since})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(all) != 2 || all[0].ID != ids[10] || all[1].ID != ids[11] {
		t.Fatalf("unexpected filtered sessions: %+v", all)
	}

	mistakes, err := st.MistakesForSessions(ctx, ids[10:])
	if err != nil {
		t.Fatalf("mistakes: %v", err)
	}
	if len(mistakes) != 2 || mistakes[0].Char != " " || mistakes[0].Count != 21 || mistakes[1].Count != 2 {
		t.Fatalf("unexpected mistakes: %+v", mistakes)
	}
}

func TestCorpusRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if _, err := st.Corpus(ctx); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty corpus, got %v", err)
	}
	if err := st.SaveCorpus(ctx, model.Corpus{Text: "a b c", Reference: []float64{10, 20.5}}); err != nil {
		t.Fatalf("save corpus: %v", err)
	}
	if err := st.SaveCorpus(ctx, model.Corpus{Text: "d e f", Reference: []float64{1}}); err != nil {
		t.Fatalf("save corpus: %v", err)
	}
	c, err := st.Corpus(ctx)
	if err != nil {
		t.Fatalf("corpus: %v", err)
	}
	if c.Text != "d e f" || len(c.Reference) != 1 || c.Reference[0] != 1 {
		t.Fatalf("unexpected corpus: %+v", c)
	}
}
