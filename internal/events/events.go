// Package events defines the wire envelopes and topics of the event log.
// Everything downstream of the live session path (persistence, stats,
// analytics) is rebuilt from these events.
package events

import "time"

// Topic names. queue-events uses a single constant key so all matchmaking
// traffic lands in one partition and ordering is total; the per-game
// topics key by gameId.
const (
	TopicQueueEvents = "queue-events"
	TopicMatchMade   = "match-created"
	TopicGameMoves   = "game-move-made"
	TopicDeadLetter  = "game-events-dlq"
)

// QueueKey is the constant partition key for queue-events.
const QueueKey = "global-queue"

// Queue event actions.
const (
	ActionPlayerJoined  = "PLAYER_JOINED"
	ActionPlayerLeft    = "PLAYER_LEFT"
	ActionPlayerTimeout = "PLAYER_TIMEOUT" // reserved, never produced in v1
)

// Match sources.
const (
	SourceMatchmaking     = "MATCHMAKING"
	SourceDirectChallenge = "DIRECT_CHALLENGE"
	SourceAIGame          = "AI_GAME"
)

// Actor types on move events.
const (
	ActorHuman = "HUMAN"
	ActorAI    = "AI"
)

// QueueEvent is one matchmaking queue mutation.
type QueueEvent struct {
	EventID  string    `json:"eventId"`
	PlayerID string    `json:"playerId"`
	Action   string    `json:"action"`
	At       time.Time `json:"at"`
}

// MatchCreatedEvent announces a new game, whatever its origin.
type MatchCreatedEvent struct {
	EventID      string    `json:"eventId"`
	GameID       string    `json:"gameId"`
	GameType     string    `json:"gameType"`
	Player1ID    string    `json:"player1Id"`
	Player2ID    string    `json:"player2Id,omitempty"`
	AIDifficulty string    `json:"aiDifficulty,omitempty"`
	Source       string    `json:"source"`
	At           time.Time `json:"at"`
}

// GameMoveEvent mirrors one applied move. Terminal transitions carry the
// final status and winner fields so tail consumers never need to replay
// the board to learn the outcome. A forfeit or TTL abandonment, which has
// no stone placement, is emitted with Row and Col set to -1 and the
// MoveNumber of the last real move; consumers must not record it as a
// move row.
type GameMoveEvent struct {
	EventID      string    `json:"eventId"`
	GameID       string    `json:"gameId"`
	MoveNumber   int       `json:"moveNumber"`
	ActorType    string    `json:"actorType"`
	PlayerID     string    `json:"playerId,omitempty"`
	AIDifficulty string    `json:"aiDifficulty,omitempty"`
	Row          int       `json:"row"`
	Col          int       `json:"col"`
	StoneColor   string    `json:"stoneColor"`
	TookMs       int64     `json:"tookMs"`
	BoardAfter   [][]int   `json:"boardAfter"`
	Status       string    `json:"status,omitempty"`
	WinnerType   string    `json:"winnerType,omitempty"`
	WinnerID     string    `json:"winnerId,omitempty"`
	At           time.Time `json:"at"`
}

// Terminal reports whether the event closed its game.
func (e GameMoveEvent) Terminal() bool {
	return e.Status == "COMPLETED" || e.Status == "ABANDONED"
}

// Marker reports whether the event is a terminal marker without a stone
// placement (forfeit or abandonment).
func (e GameMoveEvent) Marker() bool {
	return e.Row < 0 || e.Col < 0
}
