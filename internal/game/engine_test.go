package game

import (
	"errors"
	"testing"
)

func newPvPSession() *GameSession {
	return NewSession("game-1", HumanVsHuman, "alice", "bob", "")
}

func newPvAISession() *GameSession {
	return NewSession("game-2", HumanVsAI, "alice", "", "MEDIUM")
}

// playAlternating plays the given moves, alternating between the two
// participants starting with player 1.
func playAlternating(t *testing.T, s *GameSession, moves [][2]int) {
	t.Helper()
	actors := []string{s.Player1ID, s.Player2ID}
	if s.GameType == HumanVsAI {
		actors[1] = AIActor
	}
	for i, m := range moves {
		if _, err := ApplyMove(s, actors[i%2], m[0], m[1]); err != nil {
			t.Fatalf("move %d at (%d,%d) failed: %v", i+1, m[0], m[1], err)
		}
	}
}

func TestApplyMove_PlacesStoneAndSwitchesTurn(t *testing.T) {
	s := newPvPSession()

	move, err := ApplyMove(s, "alice", 7, 7)
	if err != nil {
		t.Fatalf("ApplyMove failed: %v", err)
	}

	if s.Board[7][7] != 1 {
		t.Errorf("Expected cell (7,7) = 1, got %d", s.Board[7][7])
	}
	if s.CurrentPlayer != 2 {
		t.Errorf("Expected turn to switch to player 2, got %d", s.CurrentPlayer)
	}
	if s.MoveCount != 1 || len(s.MoveHistory) != 1 {
		t.Errorf("Expected moveCount 1 and one history entry, got %d/%d", s.MoveCount, len(s.MoveHistory))
	}
	if move.MoveNumber != 1 || move.StoneColor != "BLACK" {
		t.Errorf("Unexpected move record: %+v", move)
	}
}

func TestApplyMove_LegalityOrder(t *testing.T) {
	s := newPvPSession()

	// Non-participant is rejected before turn check.
	if _, err := ApplyMove(s, "mallory", 0, 0); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("Expected ErrNotParticipant, got %v", err)
	}

	// Participant out of turn.
	if _, err := ApplyMove(s, "bob", 0, 0); !errors.Is(err, ErrNotYourTurn) {
		t.Errorf("Expected ErrNotYourTurn, got %v", err)
	}

	// Out of bounds.
	if _, err := ApplyMove(s, "alice", -1, 5); !errors.Is(err, ErrInvalidMove) {
		t.Errorf("Expected ErrInvalidMove for row -1, got %v", err)
	}
	if _, err := ApplyMove(s, "alice", 5, BoardSize); !errors.Is(err, ErrInvalidMove) {
		t.Errorf("Expected ErrInvalidMove for col %d, got %v", BoardSize, err)
	}

	// Occupied cell.
	if _, err := ApplyMove(s, "alice", 7, 7); err != nil {
		t.Fatalf("setup move failed: %v", err)
	}
	if _, err := ApplyMove(s, "bob", 7, 7); !errors.Is(err, ErrInvalidMove) {
		t.Errorf("Expected ErrInvalidMove for occupied cell, got %v", err)
	}
}

func TestApplyMove_CellsNeverRevert(t *testing.T) {
	s := newPvPSession()
	playAlternating(t, s, [][2]int{{7, 7}, {8, 7}, {7, 8}, {8, 8}})

	// A failed move must not touch any cell.
	before := s.Board
	if _, err := ApplyMove(s, "alice", 8, 7); !errors.Is(err, ErrInvalidMove) {
		t.Fatalf("Expected ErrInvalidMove, got %v", err)
	}
	if s.Board != before {
		t.Error("Board changed on a rejected move")
	}

	// Stone count matches move count, stones split per alternation.
	black, white := 0, 0
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			switch s.Board[r][c] {
			case 1:
				black++
			case 2:
				white++
			}
		}
	}
	if black+white != s.MoveCount {
		t.Errorf("Stone count %d != moveCount %d", black+white, s.MoveCount)
	}
	if black != white && black != white+1 {
		t.Errorf("Alternation violated: black=%d white=%d", black, white)
	}
}

func TestApplyMove_HorizontalWin(t *testing.T) {
	s := newPvPSession()
	// Scenario: A plays row 7, B plays row 8. A's 5th stone wins.
	playAlternating(t, s, [][2]int{
		{7, 7}, {8, 7},
		{7, 8}, {8, 8},
		{7, 9}, {8, 9},
		{7, 10}, {8, 10},
		{7, 11},
	})

	if s.Status != StatusCompleted {
		t.Fatalf("Expected COMPLETED, got %s", s.Status)
	}
	if s.WinnerType != WinnerPlayer1 || s.WinnerID != "alice" {
		t.Errorf("Expected PLAYER1/alice, got %s/%s", s.WinnerType, s.WinnerID)
	}
	if s.MoveCount != 9 {
		t.Errorf("Expected moveCount 9, got %d", s.MoveCount)
	}
	if s.EndedAt == nil {
		t.Error("Expected endedAt to be set")
	}
	// Turn must not switch on a terminal move.
	if s.CurrentPlayer != 1 {
		t.Errorf("Expected currentPlayer to stay 1, got %d", s.CurrentPlayer)
	}
}

func TestApplyMove_VerticalAndDiagonalWins(t *testing.T) {
	cases := []struct {
		name  string
		moves [][2]int
	}{
		{"vertical", [][2]int{
			{3, 3}, {3, 4}, {4, 3}, {4, 4}, {5, 3}, {5, 4}, {6, 3}, {6, 4}, {7, 3},
		}},
		{"diagonal down-right", [][2]int{
			{3, 3}, {3, 4}, {4, 4}, {4, 5}, {5, 5}, {5, 6}, {6, 6}, {6, 7}, {7, 7},
		}},
		{"diagonal down-left", [][2]int{
			{3, 10}, {3, 3}, {4, 9}, {4, 4}, {5, 8}, {5, 5}, {6, 7}, {7, 4}, {7, 6},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newPvPSession()
			playAlternating(t, s, tc.moves)
			if s.Status != StatusCompleted || s.WinnerType != WinnerPlayer1 {
				t.Errorf("Expected PLAYER1 win, got status=%s winner=%s", s.Status, s.WinnerType)
			}
		})
	}
}

func TestApplyMove_WinInCorner(t *testing.T) {
	s := newPvPSession()
	// A's run ends exactly in the (0,0) corner.
	playAlternating(t, s, [][2]int{
		{0, 4}, {1, 4},
		{0, 3}, {1, 3},
		{0, 2}, {1, 2},
		{0, 1}, {1, 1},
		{0, 0},
	})
	if s.Status != StatusCompleted || s.WinnerType != WinnerPlayer1 {
		t.Errorf("Expected corner win for PLAYER1, got status=%s winner=%s", s.Status, s.WinnerType)
	}
}

func TestApplyMove_WinThroughMiddleOfRun(t *testing.T) {
	s := newPvPSession()
	// A builds X X _ X X then fills the gap: the run passes through the
	// last move with stones on both sides.
	playAlternating(t, s, [][2]int{
		{7, 3}, {8, 3},
		{7, 4}, {8, 4},
		{7, 6}, {8, 6},
		{7, 7}, {8, 8},
		{7, 5},
	})
	if s.Status != StatusCompleted || s.WinnerType != WinnerPlayer1 {
		t.Errorf("Expected gap-fill win, got status=%s winner=%s", s.Status, s.WinnerType)
	}
}

func TestApplyMove_SixInARowStillWins(t *testing.T) {
	s := newPvPSession()
	// Overlines count: filling the middle of a 6-run is a win.
	playAlternating(t, s, [][2]int{
		{7, 2}, {8, 2},
		{7, 3}, {8, 3},
		{7, 4}, {8, 4},
		{7, 6}, {8, 6},
		{7, 7}, {8, 8},
		{7, 5},
	})
	if s.Status != StatusCompleted || s.WinnerType != WinnerPlayer1 {
		t.Errorf("Expected overline win, got status=%s winner=%s", s.Status, s.WinnerType)
	}
}

func TestApplyMove_AIWinsAsPlayerTwo(t *testing.T) {
	s := newPvAISession()
	playAlternating(t, s, [][2]int{
		{0, 0}, {7, 7},
		{0, 1}, {7, 8},
		{0, 2}, {7, 9},
		{1, 0}, {7, 10},
		{1, 1}, {7, 11},
	})
	if s.Status != StatusCompleted {
		t.Fatalf("Expected COMPLETED, got %s", s.Status)
	}
	if s.WinnerType != WinnerAI {
		t.Errorf("Expected winnerType AI, got %s", s.WinnerType)
	}
	if s.WinnerID != "" {
		t.Errorf("Expected empty winnerId for AI win, got %q", s.WinnerID)
	}
}

func TestApplyMove_MoveAfterCompletionRejected(t *testing.T) {
	s := newPvPSession()
	playAlternating(t, s, [][2]int{
		{7, 7}, {8, 7}, {7, 8}, {8, 8}, {7, 9}, {8, 9}, {7, 10}, {8, 10}, {7, 11},
	})
	if _, err := ApplyMove(s, "bob", 0, 0); !errors.Is(err, ErrGameCompleted) {
		t.Errorf("Expected ErrGameCompleted, got %v", err)
	}
}

// TestApplyMove_DrawOnFullBoard fills all 225 cells without five in a row.
// The target coloring assigns BLACK to cells where (col+row+row/2) % 4 < 2,
// which has no run of five along any axis and 113 BLACK / 112 WHITE cells.
// Because stones never change once placed, any intermediate position is a
// subset of that coloring and therefore also free of five-runs, so playing
// the black and white cells interleaved is a legal drawn game.
func TestApplyMove_DrawOnFullBoard(t *testing.T) {
	s := newPvPSession()

	var blacks, whites [][2]int
	for r := 0; r < BoardSize; r++ {
		for c := 0; c < BoardSize; c++ {
			if (c+r+r/2)%4 < 2 {
				blacks = append(blacks, [2]int{r, c})
			} else {
				whites = append(whites, [2]int{r, c})
			}
		}
	}
	if len(blacks) != 113 || len(whites) != 112 {
		t.Fatalf("Unexpected coloring split: %d/%d", len(blacks), len(whites))
	}

	for i := 0; i < MaxMoves; i++ {
		var actor string
		var m [2]int
		if i%2 == 0 {
			actor, m = "alice", blacks[i/2]
		} else {
			actor, m = "bob", whites[i/2]
		}
		if i < MaxMoves-1 && s.Status != StatusInProgress {
			t.Fatalf("Game terminated early at move %d: %s/%s", i, s.Status, s.WinnerType)
		}
		if _, err := ApplyMove(s, actor, m[0], m[1]); err != nil {
			t.Fatalf("move %d at (%d,%d) failed: %v", i+1, m[0], m[1], err)
		}
	}

	if s.MoveCount != MaxMoves {
		t.Fatalf("Expected %d moves, got %d", MaxMoves, s.MoveCount)
	}
	if s.Status != StatusCompleted || s.WinnerType != WinnerDraw {
		t.Errorf("Expected DRAW, got status=%s winner=%s", s.Status, s.WinnerType)
	}
	if s.WinnerID != "" {
		t.Errorf("Expected empty winnerId for a draw, got %q", s.WinnerID)
	}
	if s.EndedAt == nil {
		t.Error("Expected endedAt to be set on draw")
	}
}

func TestForfeit_AwardsOpponent(t *testing.T) {
	s := newPvPSession()

	// Forfeit on move 1 is legal.
	if err := Forfeit(s, "bob"); err != nil {
		t.Fatalf("Forfeit failed: %v", err)
	}
	if s.Status != StatusAbandoned {
		t.Errorf("Expected ABANDONED, got %s", s.Status)
	}
	if s.WinnerType != WinnerPlayer1 || s.WinnerID != "alice" {
		t.Errorf("Expected PLAYER1/alice, got %s/%s", s.WinnerType, s.WinnerID)
	}
	if s.EndedAt == nil {
		t.Error("Expected endedAt to be set")
	}
}

func TestForfeit_HumanForfeitsPvAI(t *testing.T) {
	s := newPvAISession()
	if err := Forfeit(s, "alice"); err != nil {
		t.Fatalf("Forfeit failed: %v", err)
	}
	if s.WinnerType != WinnerAI || s.WinnerID != "" {
		t.Errorf("Expected AI winner with no id, got %s/%q", s.WinnerType, s.WinnerID)
	}
}

func TestForfeit_Rejections(t *testing.T) {
	s := newPvPSession()
	if err := Forfeit(s, "mallory"); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("Expected ErrNotParticipant, got %v", err)
	}
	if err := Forfeit(s, "alice"); err != nil {
		t.Fatalf("Forfeit failed: %v", err)
	}
	if err := Forfeit(s, "bob"); !errors.Is(err, ErrGameCompleted) {
		t.Errorf("Expected ErrGameCompleted after forfeit, got %v", err)
	}
}

func TestErrorCode_Mapping(t *testing.T) {
	cases := map[error]string{
		ErrGameNotFound:   "GAME_NOT_FOUND",
		ErrGameCompleted:  "GAME_COMPLETED",
		ErrNotParticipant: "UNAUTHORIZED",
		ErrNotYourTurn:    "NOT_YOUR_TURN",
		ErrInvalidMove:    "INVALID_MOVE",
		errors.New("boom"): "INTERNAL_ERROR",
	}
	for err, want := range cases {
		if got := ErrorCode(err); got != want {
			t.Errorf("ErrorCode(%v) = %s, want %s", err, got, want)
		}
	}
}
