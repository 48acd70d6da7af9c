package game

import "errors"

var (
	// ErrGameNotFound occurs when a gameId is not in the store.
	ErrGameNotFound = errors.New("game not found")
	// ErrGameExists occurs when creating a session whose gameId is taken.
	ErrGameExists = errors.New("game already exists")
	// ErrGameCompleted occurs on any mutation of a terminal session.
	ErrGameCompleted = errors.New("game is no longer in progress")
	// ErrNotParticipant occurs when the actor does not belong to the game.
	ErrNotParticipant = errors.New("player is not a participant of this game")
	// ErrNotYourTurn occurs when the actor is not the current player.
	ErrNotYourTurn = errors.New("not your turn")
	// ErrInvalidMove occurs for out-of-bounds or occupied positions.
	ErrInvalidMove = errors.New("invalid move")
)

// ErrorCode maps a session/engine error to the wire error code used on
// /user/queue/errors and in HTTP envelopes.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrGameNotFound):
		return "GAME_NOT_FOUND"
	case errors.Is(err, ErrGameCompleted):
		return "GAME_COMPLETED"
	case errors.Is(err, ErrNotParticipant):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrNotYourTurn):
		return "NOT_YOUR_TURN"
	case errors.Is(err, ErrInvalidMove):
		return "INVALID_MOVE"
	default:
		return "INTERNAL_ERROR"
	}
}
