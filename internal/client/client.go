// Package client talks to the race server over HTTP and websockets.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/typeracer/internal/api"
	"github.com/verte-zerg/typeracer/internal/model"
	"github.com/verte-zerg/typeracer/internal/race"
	"github.com/verte-zerg/typeracer/internal/score"
)

// DefaultTimeout bounds every HTTP round trip.
const DefaultTimeout = 10 * time.Second

// Client is a remote race.API plus score and history calls.
type Client struct {
	baseURL string
	http    *http.Client
	dialer  *websocket.Dialer
	log     zerolog.Logger
}

var _ race.API = (*Client)(nil)

// New returns a client for the server at baseURL.
func New(baseURL string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		dialer:  &websocket.Dialer{HandshakeTimeout: DefaultTimeout},
		log:     logger,
	}
}

// CreateRoom implements race.API.
func (c *Client) CreateRoom(ctx context.Context, host model.Player) (race.Created, error) {
	var out race.Created
	err := c.do(ctx, http.MethodPost, "/api/rooms", api.CreateRoomRequest{Player: host}, &out)
	return out, err
}

// JoinRoom implements race.API.
func (c *Client) JoinRoom(ctx context.Context, code string, guest model.Player) (race.Joined, error) {
	var out race.Joined
	err := c.do(ctx, http.MethodPost, "/api/rooms/join", api.JoinRoomRequest{Code: code, Player: guest}, &out)
	return out, err
}

// StartCountdown implements race.API.
func (c *Client) StartCountdown(ctx context.Context, roomID, callerID string) error {
	return c.do(ctx, http.MethodPost, roomPath(roomID, "countdown"), api.CountdownRequest{CallerID: callerID}, nil)
}

// StartRacing implements race.API.
func (c *Client) StartRacing(ctx context.Context, roomID string) (time.Time, error) {
	var out api.StartResponse
	if err := c.do(ctx, http.MethodPost, roomPath(roomID, "start"), struct{}{}, &out); err != nil {
		return time.Time{}, err
	}
	return out.StartTime, nil
}

// UpdateProgress implements race.API.
func (c *Client) UpdateProgress(ctx context.Context, roomID, participantID string, chars int, wpm float64) (bool, error) {
	var out api.ProgressResponse
	err := c.do(ctx, http.MethodPost, roomPath(roomID, "progress"), api.ProgressRequest{
		ParticipantID: participantID,
		CharsTyped:    chars,
		WPM:           wpm,
	}, &out)
	return out.Accepted, err
}

// FinishRace implements race.API.
func (c *Client) FinishRace(ctx context.Context, roomID, participantID string, finalWPM float64, chars int) error {
	return c.do(ctx, http.MethodPost, roomPath(roomID, "finish"), api.FinishRequest{
		ParticipantID: participantID,
		WPM:           finalWPM,
		CharsTyped:    chars,
	}, nil)
}

// LeaveRace implements race.API.
func (c *Client) LeaveRace(ctx context.Context, roomID, participantID string) error {
	return c.do(ctx, http.MethodPost, roomPath(roomID, "leave"), api.LeaveRequest{ParticipantID: participantID}, nil)
}

// Snapshot implements race.API.
func (c *Client) Snapshot(ctx context.Context, roomID string) (race.Snapshot, error) {
	var out race.Snapshot
	err := c.do(ctx, http.MethodGet, roomPath(roomID, ""), nil, &out)
	return out, err
}

// SubmitScore sends a finished solo game to the leaderboard gate.
func (c *Client) SubmitScore(ctx context.Context, sub score.Submission) (float64, error) {
	var out api.ScoreResponse
	if err := c.do(ctx, http.MethodPost, "/api/scores", sub, &out); err != nil {
		return 0, err
	}
	return out.WPM, nil
}

// RecordSession stores a game in the history only.
func (c *Client) RecordSession(ctx context.Context, sub score.Submission) error {
	return c.do(ctx, http.MethodPost, "/api/sessions", sub, nil)
}

// Leaderboard returns entries ordered by best score.
func (c *Client) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	var out []model.LeaderboardEntry
	err := c.do(ctx, http.MethodGet, "/api/leaderboard", nil, &out)
	return out, err
}

// User returns a player's stats and recent sessions.
func (c *Client) User(ctx context.Context, userID string) (api.UserResponse, error) {
	var out api.UserResponse
	err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(userID)+"/stats", nil, &out)
	return out, err
}

// Corpus returns the server's race text.
func (c *Client) Corpus(ctx context.Context) (model.Corpus, error) {
	var out model.Corpus
	err := c.do(ctx, http.MethodGet, "/api/corpus", nil, &out)
	return out, err
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func roomPath(roomID, action string) string {
	p := "/api/rooms/" + url.PathEscape(roomID)
	if action != "" {
		p += "/" + action
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			// Best-effort body close.
			_ = cerr
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Code == "" {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
		return api.FromCode(apiErr)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
