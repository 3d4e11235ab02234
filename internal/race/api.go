package race

import (
	"context"
	"time"

	"github.com/verte-zerg/typeracer/internal/model"
)

// Created is returned to the host of a new room.
type Created struct {
	RoomID string `json:"roomId"`
	Code   string `json:"code"`
	Corpus string `json:"corpus"`
}

// Joined is returned to a guest; it carries the shared corpus the guest
// does not otherwise have.
type Joined struct {
	RoomID   string `json:"roomId"`
	Code     string `json:"code"`
	Corpus   string `json:"corpus"`
	HostName string `json:"hostName"`
}

// Snapshot is one observed state of a room and its progress rows. Gone is
// set when the room no longer exists.
type Snapshot struct {
	Room     model.Room       `json:"room"`
	Progress []model.Progress `json:"progress"`
	Gone     bool             `json:"gone,omitempty"`
}

// ProgressOf returns the row of participantID.
func (s Snapshot) ProgressOf(participantID string) (model.Progress, bool) {
	for _, p := range s.Progress {
		if p.ParticipantID == participantID {
			return p, true
		}
	}
	return model.Progress{}, false
}

// API is the set of room operations a racer needs. *Service implements it
// in process and the HTTP client implements it remotely.
type API interface {
	CreateRoom(ctx context.Context, host model.Player) (Created, error)
	JoinRoom(ctx context.Context, code string, guest model.Player) (Joined, error)
	StartCountdown(ctx context.Context, roomID, callerID string) error
	StartRacing(ctx context.Context, roomID string) (time.Time, error)
	UpdateProgress(ctx context.Context, roomID, participantID string, chars int, wpm float64) (bool, error)
	FinishRace(ctx context.Context, roomID, participantID string, finalWPM float64, chars int) error
	LeaveRace(ctx context.Context, roomID, participantID string) error
	Snapshot(ctx context.Context, roomID string) (Snapshot, error)
	Watch(ctx context.Context, roomID string) (<-chan Snapshot, error)
}
