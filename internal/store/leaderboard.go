package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/verte-zerg/typeracer/internal/model"
)

// AddScore appends an accepted score to the player's leaderboard entry,
// creating the entry on first use.
func (s *Store) AddScore(ctx context.Context, player model.Player, wpm float64, at time.Time) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(at)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO leaderboard (user_id, username, created_at, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (user_id) DO UPDATE SET username = excluded.username, updated_at = excluded.updated_at`,
			player.ID, player.Name, now, now,
		); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO leaderboard_scores (user_id, wpm, created_at) VALUES (?, ?, ?)`,
			player.ID, wpm, now,
		)
		return err
	})
}

// Leaderboard returns every entry with its scores in submission order.
func (s *Store) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT l.user_id, l.username, sc.wpm
		 FROM leaderboard l
		 LEFT JOIN leaderboard_scores sc ON sc.user_id = l.user_id
		 ORDER BY l.user_id, sc.id`)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var result []model.LeaderboardEntry
	for rows.Next() {
		var userID, username string
		var wpm sql.NullFloat64
		if err := rows.Scan(&userID, &username, &wpm); err != nil {
			return nil, err
		}
		if len(result) == 0 || result[len(result)-1].UserID != userID {
			result = append(result, model.LeaderboardEntry{UserID: userID, Username: username, Scores: []float64{}})
		}
		if !wpm.Valid {
			continue
		}
		entry := &result[len(result)-1]
		if len(entry.Scores) == 0 || wpm.Float64 > entry.Best {
			entry.Best = wpm.Float64
		}
		entry.Scores = append(entry.Scores, wpm.Float64)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
