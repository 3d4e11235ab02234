package race

import (
	"context"

	"github.com/verte-zerg/typeracer/internal/model"
)

// Store persists rooms and progress rows. Lookups return model.ErrNotFound
// for missing records and CreateRoom returns model.ErrConflict when the code
// is already taken.
type Store interface {
	CreateRoom(ctx context.Context, room model.Room) error
	Room(ctx context.Context, id string) (model.Room, error)
	RoomByCode(ctx context.Context, code string) (model.Room, error)
	// UpdateRoom applies fn to the current row and saves it atomically. An
	// error from fn aborts the update and is returned as is.
	UpdateRoom(ctx context.Context, id string, fn func(*model.Room) error) (model.Room, error)
	// DeleteRoom removes the room and all its progress rows.
	DeleteRoom(ctx context.Context, id string) error

	PutProgress(ctx context.Context, p model.Progress) error
	UpdateProgress(ctx context.Context, roomID, participantID string, fn func(*model.Progress) error) (model.Progress, error)
	ListProgress(ctx context.Context, roomID string) ([]model.Progress, error)
}

// CorpusProvider supplies the text a new room races on.
type CorpusProvider interface {
	Corpus(ctx context.Context) (model.Corpus, error)
}
