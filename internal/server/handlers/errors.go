package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gomoku-platform/backend/internal/game"
)

// ErrorResponse is the REST error envelope.
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

func fail(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     code,
		Message:   message,
		Path:      c.Request.URL.Path,
	})
}

// failErr maps engine sentinels to HTTP statuses.
func failErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrNotParticipant), errors.Is(err, game.ErrNotYourTurn):
		status = http.StatusForbidden
	case errors.Is(err, game.ErrGameCompleted), errors.Is(err, game.ErrGameExists):
		status = http.StatusConflict
	case errors.Is(err, game.ErrInvalidMove):
		status = http.StatusBadRequest
	}
	fail(c, status, game.ErrorCode(err), err.Error())
}
