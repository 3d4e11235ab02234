package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/verte-zerg/typeracer/internal/model"
)

const roomColumns = `id, code, host_id, host_name, guest_id, guest_name, status, corpus, start_time, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// CreateRoom inserts a new room. A taken code yields model.ErrConflict.
func (s *Store) CreateRoom(ctx context.Context, room model.Room) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (`+roomColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		room.ID, room.Code, room.HostID, room.HostName, room.GuestID, room.GuestName,
		string(room.Status), room.Corpus, formatNullTime(room.StartTime),
		formatTime(room.CreatedAt), formatTime(room.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("room code %s: %w", room.Code, model.ErrConflict)
	}
	return err
}

// Room loads a room by id.
func (s *Store) Room(ctx context.Context, id string) (model.Room, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	return scanRoom(row)
}

// RoomByCode loads a room by its code.
func (s *Store) RoomByCode(ctx context.Context, code string) (model.Room, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE code = ?`, code)
	return scanRoom(row)
}

// UpdateRoom reads the room, applies fn and writes it back in one
// transaction. An error from fn aborts without writing.
func (s *Store) UpdateRoom(ctx context.Context, id string, fn func(*model.Room) error) (model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var room model.Room
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		room, err = scanRoom(tx.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id))
		if err != nil {
			return err
		}
		if err := fn(&room); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE rooms SET guest_id = ?, guest_name = ?, status = ?, start_time = ?, updated_at = ? WHERE id = ?`,
			room.GuestID, room.GuestName, string(room.Status), formatNullTime(room.StartTime),
			formatTime(room.UpdatedAt), id,
		)
		return err
	})
	if err != nil {
		return model.Room{}, err
	}
	return room, nil
}

// DeleteRoom removes a room and its progress rows.
func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM race_progress WHERE room_id = ?`, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return model.ErrNotFound
		}
		return nil
	})
}

// PutProgress creates or resets a participant's progress row.
func (s *Store) PutProgress(ctx context.Context, p model.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO race_progress (room_id, participant_id, chars_typed, wpm, finished, finish_time, disconnected, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (room_id, participant_id) DO UPDATE SET
			chars_typed = excluded.chars_typed,
			wpm = excluded.wpm,
			finished = excluded.finished,
			finish_time = excluded.finish_time,
			disconnected = excluded.disconnected,
			updated_at = excluded.updated_at`,
		p.RoomID, p.ParticipantID, p.CharsTyped, p.WPM, boolInt(p.Finished),
		formatNullTime(p.FinishTime), boolInt(p.Disconnected), formatTime(p.UpdatedAt),
	)
	return err
}

// UpdateProgress applies fn to a participant's row in one transaction.
func (s *Store) UpdateProgress(ctx context.Context, roomID, participantID string, fn func(*model.Progress) error) (model.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p model.Progress
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		p, err = scanProgress(tx.QueryRowContext(ctx,
			`SELECT room_id, participant_id, chars_typed, wpm, finished, finish_time, disconnected, updated_at
			 FROM race_progress WHERE room_id = ? AND participant_id = ?`, roomID, participantID))
		if err != nil {
			return err
		}
		if err := fn(&p); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE race_progress SET chars_typed = ?, wpm = ?, finished = ?, finish_time = ?, disconnected = ?, updated_at = ?
			 WHERE room_id = ? AND participant_id = ?`,
			p.CharsTyped, p.WPM, boolInt(p.Finished), formatNullTime(p.FinishTime),
			boolInt(p.Disconnected), formatTime(p.UpdatedAt), roomID, participantID,
		)
		return err
	})
	if err != nil {
		return model.Progress{}, err
	}
	return p, nil
}

// ListProgress returns all progress rows of a room, oldest participant first.
func (s *Store) ListProgress(ctx context.Context, roomID string) ([]model.Progress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT room_id, participant_id, chars_typed, wpm, finished, finish_time, disconnected, updated_at
		 FROM race_progress WHERE room_id = ? ORDER BY rowid ASC`, roomID)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var result []model.Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func scanRoom(row rowScanner) (model.Room, error) {
	var room model.Room
	var status, createdAt, updatedAt string
	var startTime sql.NullString
	if err := row.Scan(&room.ID, &room.Code, &room.HostID, &room.HostName, &room.GuestID, &room.GuestName,
		&status, &room.Corpus, &startTime, &createdAt, &updatedAt); err != nil {
		return model.Room{}, notFound(err)
	}
	room.Status = model.RoomStatus(status)
	var err error
	if room.StartTime, err = parseNullTime(startTime); err != nil {
		return model.Room{}, err
	}
	if room.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Room{}, err
	}
	if room.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Room{}, err
	}
	return room, nil
}

func scanProgress(row rowScanner) (model.Progress, error) {
	var p model.Progress
	var finished, disconnected int
	var finishTime sql.NullString
	var updatedAt string
	if err := row.Scan(&p.RoomID, &p.ParticipantID, &p.CharsTyped, &p.WPM, &finished, &finishTime,
		&disconnected, &updatedAt); err != nil {
		return model.Progress{}, notFound(err)
	}
	p.Finished = finished != 0
	p.Disconnected = disconnected != 0
	var err error
	if p.FinishTime, err = parseNullTime(finishTime); err != nil {
		return model.Progress{}, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Progress{}, err
	}
	return p, nil
}
