package stats

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"gomoku-platform/backend/internal/db"
	"gomoku-platform/backend/internal/events"
	"gomoku-platform/backend/internal/models"
)

// setupTestDB creates an in-memory SQLite database for testing
func setupTestDB(t *testing.T) *db.DB {
	gdb, err := gorm.Open(sqlite.Open("file::memory:?mode=memory"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	if err := gdb.AutoMigrate(&models.Game{}, &models.PlayerStats{}, &models.ProcessedEvent{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return &db.DB{DB: gdb}
}

func seedGame(t *testing.T, database *db.DB, id, gameType string, p2 string) {
	game := models.Game{
		ID:        id,
		GameType:  gameType,
		Status:    "IN_PROGRESS",
		Player1ID: "alice",
		Source:    events.SourceMatchmaking,
	}
	if p2 != "" {
		game.Player2ID = &p2
	}
	require.NoError(t, database.Create(&game).Error)
}

func terminalEvent(t *testing.T, eventID, gameID, status, winnerType, winnerID string) []byte {
	data, err := json.Marshal(events.GameMoveEvent{
		EventID:    eventID,
		GameID:     gameID,
		MoveNumber: 9,
		Row:        7,
		Col:        11,
		StoneColor: "BLACK",
		Status:     status,
		WinnerType: winnerType,
		WinnerID:   winnerID,
		At:         time.Now().UTC(),
	})
	require.NoError(t, err)
	return data
}

func getStats(t *testing.T, database *db.DB, userID string) models.PlayerStats {
	var stats models.PlayerStats
	require.NoError(t, database.First(&stats, "user_id = ?", userID).Error)
	return stats
}

func TestHandleGameMove_WinMovesRatings(t *testing.T) {
	database := setupTestDB(t)
	u := NewUpdater(database)
	seedGame(t, database, "g1", "HUMAN_VS_HUMAN", "bob")

	require.NoError(t, u.HandleGameMove(context.Background(), nil,
		terminalEvent(t, "ev-1", "g1", "COMPLETED", "PLAYER", "alice")))

	alice := getStats(t, database, "alice")
	bob := getStats(t, database, "bob")

	// Equal provisional ratings: winner gains K/2 = 16, loser loses 16.
	assert.Equal(t, 1216, alice.Rating)
	assert.Equal(t, 1184, bob.Rating)
	assert.Equal(t, 1, alice.Wins)
	assert.Equal(t, 1, alice.WinStreak)
	assert.Equal(t, 1216, alice.PeakRating)
	assert.Equal(t, 1, bob.Losses)
	assert.Equal(t, 0, bob.WinStreak)
	assert.Equal(t, InitialRating, bob.PeakRating)
}

func TestHandleGameMove_DrawSplitsHalf(t *testing.T) {
	database := setupTestDB(t)
	u := NewUpdater(database)
	seedGame(t, database, "g1", "HUMAN_VS_HUMAN", "bob")

	require.NoError(t, u.HandleGameMove(context.Background(), nil,
		terminalEvent(t, "ev-1", "g1", "COMPLETED", "NONE", "")))

	alice := getStats(t, database, "alice")
	bob := getStats(t, database, "bob")

	// Equal ratings drawing: zero delta for both.
	assert.Equal(t, InitialRating, alice.Rating)
	assert.Equal(t, InitialRating, bob.Rating)
	assert.Equal(t, 1, alice.Draws)
	assert.Equal(t, 1, bob.Draws)
}

func TestHandleGameMove_RedeliveryAppliesOnce(t *testing.T) {
	database := setupTestDB(t)
	u := NewUpdater(database)
	seedGame(t, database, "g1", "HUMAN_VS_HUMAN", "bob")

	payload := terminalEvent(t, "ev-1", "g1", "COMPLETED", "PLAYER", "alice")
	require.NoError(t, u.HandleGameMove(context.Background(), nil, payload))
	require.NoError(t, u.HandleGameMove(context.Background(), nil, payload))

	alice := getStats(t, database, "alice")
	assert.Equal(t, 1, alice.GamesPlayed)
	assert.Equal(t, 1216, alice.Rating)
}

func TestHandleGameMove_NonTerminalIgnored(t *testing.T) {
	database := setupTestDB(t)
	u := NewUpdater(database)
	seedGame(t, database, "g1", "HUMAN_VS_HUMAN", "bob")

	data, err := json.Marshal(events.GameMoveEvent{EventID: "ev-1", GameID: "g1", MoveNumber: 3, Row: 4, Col: 4})
	require.NoError(t, err)
	require.NoError(t, u.HandleGameMove(context.Background(), nil, data))

	var count int64
	database.Model(&models.PlayerStats{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestHandleGameMove_AIGameTouchesCountersOnly(t *testing.T) {
	database := setupTestDB(t)
	u := NewUpdater(database)
	seedGame(t, database, "g1", "HUMAN_VS_AI", "")

	require.NoError(t, u.HandleGameMove(context.Background(), nil,
		terminalEvent(t, "ev-1", "g1", "COMPLETED", "AI", "")))

	alice := getStats(t, database, "alice")
	assert.Equal(t, InitialRating, alice.Rating)
	assert.Equal(t, 1, alice.GamesPlayed)
	assert.Equal(t, 1, alice.Losses)
}

func TestHandleGameMove_AbandonedChangesNothing(t *testing.T) {
	database := setupTestDB(t)
	u := NewUpdater(database)
	seedGame(t, database, "g1", "HUMAN_VS_HUMAN", "bob")

	require.NoError(t, u.HandleGameMove(context.Background(), nil,
		terminalEvent(t, "ev-1", "g1", "ABANDONED", "NONE", "")))

	var count int64
	database.Model(&models.PlayerStats{}).Count(&count)
	assert.Equal(t, int64(0), count)

	// The event is still marked processed.
	var processed int64
	database.Model(&models.ProcessedEvent{}).Count(&processed)
	assert.Equal(t, int64(1), processed)
}

func TestHandleGameMove_EstablishedPlayerUsesSmallerK(t *testing.T) {
	database := setupTestDB(t)
	u := NewUpdater(database)
	seedGame(t, database, "g1", "HUMAN_VS_HUMAN", "bob")

	require.NoError(t, database.Create(&models.PlayerStats{
		UserID: "alice", Rating: 1400, PeakRating: 1400, GamesPlayed: 50, Wins: 30, Losses: 20,
	}).Error)
	require.NoError(t, database.Create(&models.PlayerStats{
		UserID: "bob", Rating: 1400, PeakRating: 1400, GamesPlayed: 50, Wins: 30, Losses: 20,
	}).Error)

	require.NoError(t, u.HandleGameMove(context.Background(), nil,
		terminalEvent(t, "ev-1", "g1", "COMPLETED", "PLAYER", "alice")))

	alice := getStats(t, database, "alice")
	bob := getStats(t, database, "bob")
	assert.Equal(t, 1408, alice.Rating)
	assert.Equal(t, 1392, bob.Rating)
}

func TestHandleGameMove_RatingNeverBelowZero(t *testing.T) {
	database := setupTestDB(t)
	u := NewUpdater(database)
	seedGame(t, database, "g1", "HUMAN_VS_HUMAN", "bob")

	require.NoError(t, database.Create(&models.PlayerStats{
		UserID: "alice", Rating: 100, PeakRating: 1200, GamesPlayed: 10,
	}).Error)
	require.NoError(t, database.Create(&models.PlayerStats{
		UserID: "bob", Rating: 5, PeakRating: 1200, GamesPlayed: 10,
	}).Error)

	require.NoError(t, u.HandleGameMove(context.Background(), nil,
		terminalEvent(t, "ev-1", "g1", "COMPLETED", "PLAYER", "alice")))

	bob := getStats(t, database, "bob")
	assert.Equal(t, 0, bob.Rating)
}

func TestHandleGameMove_BestStreakSticks(t *testing.T) {
	database := setupTestDB(t)
	u := NewUpdater(database)
	ctx := context.Background()

	for i, winner := range []string{"alice", "alice", "bob"} {
		id := []string{"g1", "g2", "g3"}[i]
		seedGame(t, database, id, "HUMAN_VS_HUMAN", "bob")
		require.NoError(t, u.HandleGameMove(ctx, nil,
			terminalEvent(t, "ev-"+id, id, "COMPLETED", "PLAYER", winner)))
	}

	alice := getStats(t, database, "alice")
	assert.Equal(t, 0, alice.WinStreak)
	assert.Equal(t, 2, alice.BestWinStreak)
}

func TestLeaderboardOrdersByRating(t *testing.T) {
	database := setupTestDB(t)
	u := NewUpdater(database)

	for _, row := range []models.PlayerStats{
		{UserID: "a", Rating: 1100},
		{UserID: "b", Rating: 1500},
		{UserID: "c", Rating: 1300},
	} {
		require.NoError(t, database.Create(&row).Error)
	}

	rows, err := u.Leaderboard(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "b", rows[0].UserID)
	assert.Equal(t, "c", rows[1].UserID)
}

func TestGet_UnknownPlayer(t *testing.T) {
	database := setupTestDB(t)
	u := NewUpdater(database)
	_, err := u.Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNoStats)
}

func TestHandleGameMove_SeededGameWithoutPlayersSkipped(t *testing.T) {
	database := setupTestDB(t)
	u := NewUpdater(database)

	// A game row seeded from the move stream, before the match event
	// ever arrived, carries no player identities.
	require.NoError(t, database.Create(&models.Game{ID: "g1", Status: "COMPLETED"}).Error)

	require.NoError(t, u.HandleGameMove(context.Background(), nil,
		terminalEvent(t, "ev-1", "g1", "COMPLETED", "PLAYER", "alice")))

	var statsCount int64
	database.Model(&models.PlayerStats{}).Count(&statsCount)
	assert.Equal(t, int64(0), statsCount)

	// The event is still marked processed so redelivery stays quiet.
	var processed int64
	database.Model(&models.ProcessedEvent{}).Count(&processed)
	assert.Equal(t, int64(1), processed)
}
