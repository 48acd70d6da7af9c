package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gomoku-platform/backend/internal/db"
	engine "gomoku-platform/backend/internal/game"
	"gomoku-platform/backend/internal/models"
	"gomoku-platform/backend/internal/persistence"
	gameflow "gomoku-platform/backend/internal/server/game"
)

// HandleCreateGame opens a direct challenge or AI game
func HandleCreateGame(c *gin.Context, database *db.DB, svc *gameflow.Service) {
	var req models.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if engine.GameType(req.GameType) == engine.HumanVsHuman && req.OpponentID != "" {
		var count int64
		database.Model(&models.User{}).Where("id = ?", req.OpponentID).Count(&count)
		if count == 0 {
			fail(c, http.StatusNotFound, "OPPONENT_NOT_FOUND", "opponent does not exist")
			return
		}
	}

	session, err := svc.CreateGame(c.Request.Context(), c.GetString("user_id"), req)
	if err != nil {
		failErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"gameId":         session.GameID,
		"gameType":       string(session.GameType),
		"websocketTopic": "/topic/game/" + session.GameID,
		"message":        "Game created",
	})
}

// HandleGetGame returns the live state to a participant
func HandleGetGame(c *gin.Context, svc *gameflow.Service) {
	session, err := svc.Get(c.Param("id"), c.GetString("user_id"))
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, session.View())
}

// HandleMove applies a move over REST. The realtime channel is the
// primary path for PvP games; REST moves are accepted for AI games where
// the caller wants the AI reply in the response.
func HandleMove(c *gin.Context, svc *gameflow.Service) {
	var req models.MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	userID := c.GetString("user_id")
	session, err := svc.Get(c.Param("id"), userID)
	if err != nil {
		failErr(c, err)
		return
	}
	if session.GameType != engine.HumanVsAI {
		fail(c, http.StatusBadRequest, "INVALID_MOVE", "PvP moves go over the realtime channel")
		return
	}

	snap, err := svc.PlayMove(c.Request.Context(), session.GameID, userID, req.Row, req.Col)
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, snap.View())
}

// HandleForfeit abandons the game in the caller's name
func HandleForfeit(c *gin.Context, svc *gameflow.Service) {
	snap, err := svc.Forfeit(c.Request.Context(), c.Param("id"), c.GetString("user_id"))
	if err != nil {
		failErr(c, err)
		return
	}
	c.JSON(http.StatusOK, snap.View())
}

// HandleListMoves returns the recorded moves of a game in order. The
// durable record is consulted rather than the live store, so finished
// and evicted games stay readable.
func HandleListMoves(c *gin.Context, store *persistence.Consumer) {
	gameID := c.Param("id")
	userID := c.GetString("user_id")

	game, err := store.GetGame(c.Request.Context(), gameID)
	if err != nil {
		fail(c, http.StatusNotFound, "GAME_NOT_FOUND", "game not found")
		return
	}
	if game.Player1ID != userID && (game.Player2ID == nil || *game.Player2ID != userID) {
		fail(c, http.StatusForbidden, "UNAUTHORIZED", "you are not a participant of this game")
		return
	}

	moves, err := store.ListMoves(c.Request.Context(), gameID)
	if err != nil {
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "could not load moves")
		return
	}
	c.JSON(http.StatusOK, moves)
}
