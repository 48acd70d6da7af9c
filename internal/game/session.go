package game

import (
	"time"
)

// BoardSize is the side length of the gomoku board.
const BoardSize = 15

// MaxMoves is the number of cells; a game with MaxMoves stones and no
// winner is a draw.
const MaxMoves = BoardSize * BoardSize

// WinLength is the number of consecutive same-color stones needed to win.
const WinLength = 5

// AIActor is the actor identifier used for AI moves in PvAI sessions.
const AIActor = "AI"

// GameType identifies the kind of opponent.
type GameType string

const (
	HumanVsHuman GameType = "HUMAN_VS_HUMAN"
	HumanVsAI    GameType = "HUMAN_VS_AI"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusAbandoned  Status = "ABANDONED"
)

// WinnerType identifies who ended the game.
type WinnerType string

const (
	WinnerNone    WinnerType = "NONE"
	WinnerPlayer1 WinnerType = "PLAYER1"
	WinnerPlayer2 WinnerType = "PLAYER2"
	WinnerAI      WinnerType = "AI"
	WinnerDraw    WinnerType = "DRAW"
)

// Difficulty levels accepted for the AI opponent.
var Difficulties = map[string]bool{
	"EASY":   true,
	"MEDIUM": true,
	"HARD":   true,
	"EXPERT": true,
}

// StoneColorOf returns the stone color for a player number.
func StoneColorOf(playerNumber int) string {
	if playerNumber == 1 {
		return "BLACK"
	}
	return "WHITE"
}

// Move is one entry in the session's move history.
type Move struct {
	MoveNumber int       `json:"moveNumber"`
	Actor      string    `json:"actor"` // player id, or "AI"
	Row        int       `json:"row"`
	Col        int       `json:"col"`
	StoneColor string    `json:"stoneColor"`
	TookMs     int64     `json:"tookMs"`
	At         time.Time `json:"at"`
}

// GameSession is the live authoritative state of one game. It is owned by
// the Store; all mutation goes through Store.UpdateWith.
type GameSession struct {
	GameID         string
	GameType       GameType
	Status         Status
	Player1ID      string // BLACK, always moves first
	Player2ID      string // empty for PvAI
	AIDifficulty   string // empty for PvP
	Board          [BoardSize][BoardSize]int
	CurrentPlayer  int // 1 or 2
	MoveCount      int
	MoveHistory    []Move
	WinnerType     WinnerType
	WinnerID       string
	StartedAt      time.Time
	LastActivityAt time.Time
	EndedAt        *time.Time
}

// NewSession creates a fresh IN_PROGRESS session. player2ID must be empty
// for PvAI games and difficulty empty for PvP games.
func NewSession(gameID string, gameType GameType, player1ID, player2ID, difficulty string) *GameSession {
	now := time.Now().UTC()
	return &GameSession{
		GameID:         gameID,
		GameType:       gameType,
		Status:         StatusInProgress,
		Player1ID:      player1ID,
		Player2ID:      player2ID,
		AIDifficulty:   difficulty,
		CurrentPlayer:  1,
		WinnerType:     WinnerNone,
		StartedAt:      now,
		LastActivityAt: now,
	}
}

// PlayerNumber resolves an actor to its player number, or 0 for
// non-participants. The AI is player 2 of a PvAI session.
func (s *GameSession) PlayerNumber(actorID string) int {
	switch {
	case actorID == s.Player1ID:
		return 1
	case s.GameType == HumanVsHuman && actorID == s.Player2ID:
		return 2
	case s.GameType == HumanVsAI && actorID == AIActor:
		return 2
	default:
		return 0
	}
}

// Terminal reports whether the session reached a terminal status.
func (s *GameSession) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusAbandoned
}

// Clone returns a deep copy. The board array copies by value; only the
// move history needs an explicit copy.
func (s *GameSession) Clone() *GameSession {
	c := *s
	c.MoveHistory = make([]Move, len(s.MoveHistory))
	copy(c.MoveHistory, s.MoveHistory)
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	return &c
}

// StateView is the client-facing projection of a GameSession.
type StateView struct {
	GameID        string     `json:"gameId"`
	GameType      GameType   `json:"gameType"`
	Status        Status     `json:"status"`
	Player1ID     string     `json:"player1Id"`
	Player2ID     string     `json:"player2Id,omitempty"`
	AIDifficulty  string     `json:"aiDifficulty,omitempty"`
	Board         [][]int    `json:"board"`
	CurrentPlayer int        `json:"currentPlayer"`
	MoveCount     int        `json:"moveCount"`
	WinnerType    WinnerType `json:"winnerType"`
	WinnerID      string     `json:"winnerId,omitempty"`
	StartedAt     time.Time  `json:"startedAt"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
	LastActivity  time.Time  `json:"lastActivity"`
}

// View builds the projection sent to clients and embedded in broadcasts.
func (s *GameSession) View() StateView {
	return StateView{
		GameID:        s.GameID,
		GameType:      s.GameType,
		Status:        s.Status,
		Player1ID:     s.Player1ID,
		Player2ID:     s.Player2ID,
		AIDifficulty:  s.AIDifficulty,
		Board:         BoardRows(s.Board),
		CurrentPlayer: s.CurrentPlayer,
		MoveCount:     s.MoveCount,
		WinnerType:    s.WinnerType,
		WinnerID:      s.WinnerID,
		StartedAt:     s.StartedAt,
		EndedAt:       s.EndedAt,
		LastActivity:  s.LastActivityAt,
	}
}

// BoardRows converts the fixed-size board array to the nested-slice shape
// used on the wire.
func BoardRows(board [BoardSize][BoardSize]int) [][]int {
	rows := make([][]int, BoardSize)
	for r := 0; r < BoardSize; r++ {
		rows[r] = make([]int, BoardSize)
		copy(rows[r], board[r][:])
	}
	return rows
}
