package game

import (
	"time"
)

// The four scan axes for win detection: horizontal, vertical and the two
// diagonals. Each axis is walked in both directions from the placed stone.
var axes = [4][2]int{
	{0, 1},  // horizontal
	{1, 0},  // vertical
	{1, 1},  // diagonal down-right
	{1, -1}, // diagonal down-left
}

// ApplyMove validates and applies a stone placement for actorID. Legality
// is checked in order: game in progress, actor is a participant, it is the
// actor's turn, position in bounds, cell empty. On success the stone is
// written, the move recorded, and termination detection runs; the turn
// switches unless the move ended the game.
//
// ApplyMove mutates s in place. Callers that need failure atomicity must
// pass a copy (Store.UpdateWith does).
func ApplyMove(s *GameSession, actorID string, row, col int) (*Move, error) {
	if s.Status != StatusInProgress {
		return nil, ErrGameCompleted
	}

	player := s.PlayerNumber(actorID)
	if player == 0 {
		return nil, ErrNotParticipant
	}
	if player != s.CurrentPlayer {
		return nil, ErrNotYourTurn
	}
	if row < 0 || row >= BoardSize || col < 0 || col >= BoardSize {
		return nil, ErrInvalidMove
	}
	if s.Board[row][col] != 0 {
		return nil, ErrInvalidMove
	}

	now := time.Now().UTC()
	tookMs := now.Sub(s.LastActivityAt).Milliseconds()
	if tookMs < 0 {
		tookMs = 0
	}

	s.Board[row][col] = player
	move := Move{
		MoveNumber: s.MoveCount + 1,
		Actor:      actorID,
		Row:        row,
		Col:        col,
		StoneColor: StoneColorOf(player),
		TookMs:     tookMs,
		At:         now,
	}
	s.MoveHistory = append(s.MoveHistory, move)
	s.MoveCount++
	s.LastActivityAt = now

	switch {
	case winsAt(&s.Board, row, col):
		s.Status = StatusCompleted
		s.setWinner(player)
		s.EndedAt = &now
	case s.MoveCount == MaxMoves:
		s.Status = StatusCompleted
		s.WinnerType = WinnerDraw
		s.EndedAt = &now
	default:
		s.CurrentPlayer = otherPlayer(player)
	}

	return &s.MoveHistory[len(s.MoveHistory)-1], nil
}

// Forfeit abandons the game and awards it to the opponent of actorID.
func Forfeit(s *GameSession, actorID string) error {
	if s.Status != StatusInProgress {
		return ErrGameCompleted
	}

	player := s.PlayerNumber(actorID)
	if player == 0 {
		return ErrNotParticipant
	}

	now := time.Now().UTC()
	s.Status = StatusAbandoned
	s.setWinner(otherPlayer(player))
	s.LastActivityAt = now
	s.EndedAt = &now
	return nil
}

// setWinner fills WinnerType and WinnerID for the winning player number.
// Player 2 of a PvAI game is the AI, which carries no winner id.
func (s *GameSession) setWinner(player int) {
	if player == 1 {
		s.WinnerType = WinnerPlayer1
		s.WinnerID = s.Player1ID
		return
	}
	if s.GameType == HumanVsAI {
		s.WinnerType = WinnerAI
		s.WinnerID = ""
		return
	}
	s.WinnerType = WinnerPlayer2
	s.WinnerID = s.Player2ID
}

func otherPlayer(player int) int {
	if player == 1 {
		return 2
	}
	return 1
}

// winsAt reports whether the stone just placed at (row, col) completes a
// run of WinLength. Only lines through that cell can have changed, so the
// scan walks each axis in both directions counting matching stones.
func winsAt(board *[BoardSize][BoardSize]int, row, col int) bool {
	stone := board[row][col]
	for _, axis := range axes {
		count := 1 +
			runLength(board, stone, row, col, axis[0], axis[1]) +
			runLength(board, stone, row, col, -axis[0], -axis[1])
		if count >= WinLength {
			return true
		}
	}
	return false
}

// runLength counts consecutive stones of the given value walking from
// (row, col) exclusive in direction (dr, dc).
func runLength(board *[BoardSize][BoardSize]int, stone, row, col, dr, dc int) int {
	n := 0
	for {
		row += dr
		col += dc
		if row < 0 || row >= BoardSize || col < 0 || col >= BoardSize {
			return n
		}
		if board[row][col] != stone {
			return n
		}
		n++
	}
}
