// Package model defines shared data structures.
package model

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned by stores when a unique key is already taken.
	ErrConflict = errors.New("conflict")
)

// Player identifies a participant. The core never authenticates; the
// identity is supplied by configuration.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Corpus is the fixed text of one game plus a reference WPM series to race
// against.
type Corpus struct {
	Text      string    `json:"text"`
	Reference []float64 `json:"reference"`
}

// RoomStatus is the shared status both racers branch on.
type RoomStatus string

// Room statuses.
const (
	StatusWaiting   RoomStatus = "waiting"
	StatusCountdown RoomStatus = "countdown"
	StatusRacing    RoomStatus = "racing"
	StatusFinished  RoomStatus = "finished"
)

// Room is the shared record of a two-player race.
type Room struct {
	ID        string     `json:"id"`
	Code      string     `json:"code"`
	HostID    string     `json:"hostId"`
	HostName  string     `json:"hostName"`
	GuestID   string     `json:"guestId,omitempty"`
	GuestName string     `json:"guestName,omitempty"`
	Status    RoomStatus `json:"status"`
	Corpus    string     `json:"corpus"`
	StartTime *time.Time `json:"startTime,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// HasGuest reports whether a guest currently holds the second seat.
func (r Room) HasGuest() bool {
	return r.GuestID != ""
}

// Progress is one participant's mirrored race state.
type Progress struct {
	RoomID        string     `json:"roomId"`
	ParticipantID string     `json:"participantId"`
	CharsTyped    int        `json:"charsTyped"`
	WPM           float64    `json:"wpm"`
	Finished      bool       `json:"finished"`
	FinishTime    *time.Time `json:"finishTime,omitempty"`
	Disconnected  bool       `json:"disconnected"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Done reports whether the row is terminal.
func (p Progress) Done() bool {
	return p.Finished || p.Disconnected
}

// GameResult is the raw data a score is recomputed from.
type GameResult struct {
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	CharsTyped   int       `json:"charsTyped"`
	CorpusLength int       `json:"corpusLength"`
}

// LeaderboardEntry holds every accepted score of one player.
type LeaderboardEntry struct {
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Scores   []float64 `json:"scores"`
	Best     float64   `json:"best"`
}

// SessionMode tells how a recorded session was played.
type SessionMode string

// Session modes.
const (
	ModeSolo SessionMode = "solo"
	ModeRace SessionMode = "race"
)

// SessionRecord captures a completed game for history.
type SessionRecord struct {
	ID           int64       `json:"id"`
	UserID       string      `json:"userId"`
	Username     string      `json:"username"`
	Mode         SessionMode `json:"mode"`
	WPM          float64     `json:"wpm"`
	Accuracy     float64     `json:"accuracy"`
	CharsTyped   int         `json:"charsTyped"`
	ErrorCount   int         `json:"errorCount"`
	CorpusLength int         `json:"corpusLength"`
	StartedAt    time.Time   `json:"startedAt"`
	EndedAt      time.Time   `json:"endedAt"`
}

// MistakeCount is one entry of the error histogram, keyed by the expected
// character.
type MistakeCount struct {
	Char  string `json:"char"`
	Count int    `json:"count"`
}

// UserStats summarizes a player's history.
type UserStats struct {
	TotalRaces      int     `json:"totalRaces"`
	BestWPM         float64 `json:"bestWpm"`
	AverageWPM      float64 `json:"averageWpm"`
	AverageAccuracy float64 `json:"averageAccuracy"`
}

// StatsConfig defines filters for stats output.
type StatsConfig struct {
	UserID string
	Last   int
	Since  *time.Time
	Top    int
}
