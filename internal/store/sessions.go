package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/verte-zerg/typeracer/internal/model"
)

const sessionColumns = `id, user_id, username, mode, wpm, accuracy, chars_typed, error_count, corpus_length, started_at, ended_at`

// SaveSession stores a completed session and its mistake histogram.
func (s *Store) SaveSession(ctx context.Context, rec model.SessionRecord, mistakes []model.MistakeCount) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (user_id, username, mode, wpm, accuracy, chars_typed, error_count, corpus_length, started_at, ended_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.UserID, rec.Username, string(rec.Mode), rec.WPM, rec.Accuracy, rec.CharsTyped,
			rec.ErrorCount, rec.CorpusLength, formatTime(rec.StartedAt), formatTime(rec.EndedAt),
		)
		if err != nil {
			return err
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		if len(mistakes) == 0 {
			return nil
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO session_mistakes (session_id, char, count) VALUES (?, ?, ?)
			 ON CONFLICT (session_id, char) DO UPDATE SET count = count + excluded.count`)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, m := range mistakes {
			if _, err := stmt.ExecContext(ctx, id, m.Char, m.Count); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// ListSessions returns sessions filtered by stats config, oldest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionRecord, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.UserID != "" {
		clauses = append(clauses, "user_id = ?")
		args = append(args, cfg.UserID)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "ended_at >= ?")
		args = append(args, formatTime(*cfg.Since))
	}
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE %s ORDER BY ended_at ASC, id ASC`,
		sessionColumns, strings.Join(clauses, " AND "))
	return s.querySessions(ctx, query, args...)
}

// RecentSessions returns the newest limit sessions of a user, newest first.
func (s *Store) RecentSessions(ctx context.Context, userID string, limit int) ([]model.SessionRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = ? ORDER BY ended_at DESC, id DESC LIMIT ?`,
		userID, limit)
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]model.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var sessions []model.SessionRecord
	for rows.Next() {
		var rec model.SessionRecord
		var mode, startedAt, endedAt string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Username, &mode, &rec.WPM, &rec.Accuracy,
			&rec.CharsTyped, &rec.ErrorCount, &rec.CorpusLength, &startedAt, &endedAt); err != nil {
			return nil, err
		}
		rec.Mode = model.SessionMode(mode)
		if rec.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if rec.EndedAt, err = parseTime(endedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// MistakesForSessions sums the mistake histograms of the given sessions.
func (s *Store) MistakesForSessions(ctx context.Context, sessionIDs []int64) ([]model.MistakeCount, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(sessionIDs))
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT char, SUM(count) AS count
		FROM session_mistakes
		WHERE session_id IN (%s)
		GROUP BY char
		ORDER BY count DESC, char ASC`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var result []model.MistakeCount
	for rows.Next() {
		var m model.MistakeCount
		if err := rows.Scan(&m.Char, &m.Count); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
