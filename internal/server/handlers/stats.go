package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gomoku-platform/backend/internal/models"
	"gomoku-platform/backend/internal/stats"
)

// HandleMyStats returns the caller's rating row. Players with no rated
// games yet get the initial values.
func HandleMyStats(c *gin.Context, updater *stats.Updater) {
	userID := c.GetString("user_id")

	row, err := updater.Get(c.Request.Context(), userID)
	if errors.Is(err, stats.ErrNoStats) {
		c.JSON(http.StatusOK, models.PlayerStats{
			UserID:     userID,
			Rating:     stats.InitialRating,
			PeakRating: stats.InitialRating,
		})
		return
	}
	if err != nil {
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "could not load stats")
		return
	}
	c.JSON(http.StatusOK, row)
}

// HandleLeaderboard returns the top players by rating
func HandleLeaderboard(c *gin.Context, updater *stats.Updater) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	rows, err := updater.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "could not load leaderboard")
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": rows})
}
