// Package api defines the JSON wire types of the race server and the
// mapping between errors and HTTP responses.
package api

import (
	"time"

	"github.com/verte-zerg/typeracer/internal/model"
)

// CreateRoomRequest opens a room for Player.
type CreateRoomRequest struct {
	Player model.Player `json:"player"`
}

// JoinRoomRequest takes the guest seat of the room with Code.
type JoinRoomRequest struct {
	Code   string       `json:"code"`
	Player model.Player `json:"player"`
}

// CountdownRequest starts the countdown on behalf of CallerID.
type CountdownRequest struct {
	CallerID string `json:"callerId"`
}

// StartResponse carries the shared start instant.
type StartResponse struct {
	StartTime time.Time `json:"startTime"`
}

// ProgressRequest mirrors a participant's live counters.
type ProgressRequest struct {
	ParticipantID string  `json:"participantId"`
	CharsTyped    int     `json:"charsTyped"`
	WPM           float64 `json:"wpm"`
}

// ProgressResponse reports whether the update was applied.
type ProgressResponse struct {
	Accepted bool `json:"accepted"`
}

// FinishRequest records a participant's final result.
type FinishRequest struct {
	ParticipantID string  `json:"participantId"`
	WPM           float64 `json:"wpm"`
	CharsTyped    int     `json:"charsTyped"`
}

// LeaveRequest disconnects ParticipantID.
type LeaveRequest struct {
	ParticipantID string `json:"participantId"`
}

// ScoreResponse carries the recomputed score.
type ScoreResponse struct {
	WPM float64 `json:"wpm"`
}

// StatusResponse is a generic acknowledgement.
type StatusResponse struct {
	Status string `json:"status"`
}

// UserResponse bundles a user's stats with the recent sessions.
type UserResponse struct {
	Stats    model.UserStats       `json:"stats"`
	Sessions []model.SessionRecord `json:"sessions"`
}
