package api

import (
	"errors"
	"net/http"

	"github.com/verte-zerg/typeracer/internal/race"
	"github.com/verte-zerg/typeracer/internal/score"
)

// Stable error codes carried in ErrorResponse.Code.
const (
	CodeRoomNotFound      = "room_not_found"
	CodeProgressNotFound  = "progress_not_found"
	CodeAlreadyStarted    = "already_started"
	CodeRoomFull          = "room_full"
	CodeCannotJoinOwnRoom = "cannot_join_own_room"
	CodeNotHost           = "not_host"
	CodeNoOpponent        = "no_opponent"
	CodeNotInCountdown    = "not_in_countdown"
	CodeRejected          = "rejected"
	CodeBadRequest        = "bad_request"
	CodeNoCorpus          = "no_corpus"
	CodeUnavailable       = "unavailable"
	CodeInternal          = "internal"
)

// ErrBadRequest marks malformed requests.
var ErrBadRequest = errors.New("bad request")

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

type mapping struct {
	err    error
	code   string
	status int
}

var sentinels = []mapping{
	{race.ErrRoomNotFound, CodeRoomNotFound, http.StatusNotFound},
	{race.ErrProgressNotFound, CodeProgressNotFound, http.StatusNotFound},
	{race.ErrAlreadyStarted, CodeAlreadyStarted, http.StatusConflict},
	{race.ErrRoomFull, CodeRoomFull, http.StatusConflict},
	{race.ErrCannotJoinOwnRoom, CodeCannotJoinOwnRoom, http.StatusConflict},
	{race.ErrNotHost, CodeNotHost, http.StatusConflict},
	{race.ErrNoOpponent, CodeNoOpponent, http.StatusConflict},
	{race.ErrNotInCountdown, CodeNotInCountdown, http.StatusConflict},
	{race.ErrNoCorpus, CodeNoCorpus, http.StatusServiceUnavailable},
	{race.ErrCodesExhausted, CodeUnavailable, http.StatusServiceUnavailable},
	{ErrBadRequest, CodeBadRequest, http.StatusBadRequest},
}

// Error maps err to an HTTP status and response body. Unknown errors become
// a 500 without leaking their text.
func Error(err error) (int, ErrorResponse) {
	if reason, ok := score.RejectionReason(err); ok {
		return http.StatusUnprocessableEntity, ErrorResponse{
			Code:    CodeRejected,
			Message: err.Error(),
			Reason:  string(reason),
		}
	}
	for _, m := range sentinels {
		if errors.Is(err, m.err) {
			return m.status, ErrorResponse{Code: m.code, Message: m.err.Error()}
		}
	}
	return http.StatusInternalServerError, ErrorResponse{Code: CodeInternal, Message: "internal error"}
}

// FromCode rebuilds the error a response body stands for, so callers can
// use errors.Is and errors.As across the wire.
func FromCode(resp ErrorResponse) error {
	if resp.Code == CodeRejected {
		return &score.RejectedError{Reason: score.Reason(resp.Reason)}
	}
	for _, m := range sentinels {
		if m.code == resp.Code {
			return m.err
		}
	}
	if resp.Message != "" {
		return errors.New(resp.Message)
	}
	return errors.New(resp.Code)
}
