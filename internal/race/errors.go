package race

import "errors"

// Coordination errors. They leave room state unchanged.
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrAlreadyStarted    = errors.New("race has already started")
	ErrRoomFull          = errors.New("room is full")
	ErrCannotJoinOwnRoom = errors.New("cannot join your own room")
	ErrNotHost           = errors.New("only the host can start the race")
	ErrNoOpponent        = errors.New("waiting for an opponent to join")
	ErrNotInCountdown    = errors.New("race is not in countdown")
	ErrProgressNotFound  = errors.New("progress entry not found")
	ErrNoCorpus          = errors.New("no corpus available")
	ErrCodesExhausted    = errors.New("could not allocate a free room code")
)
