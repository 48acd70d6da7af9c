package game

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gomoku-platform/backend/internal/models"
)

// HandleSend routes an application frame from the websocket layer.
// Supported destinations:
//
//	/app/game/{gameId}/move     body {"row":r,"col":c}
//	/app/game/{gameId}/forfeit  empty body
func (s *Service) HandleSend(userID, destination string, body []byte) error {
	rest, ok := strings.CutPrefix(destination, "/app/game/")
	if !ok {
		return fmt.Errorf("%w: %s", ErrBadDestination, destination)
	}
	gameID, action, ok := strings.Cut(rest, "/")
	if !ok || gameID == "" {
		return fmt.Errorf("%w: %s", ErrBadDestination, destination)
	}

	switch action {
	case "move":
		var req models.MoveRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return fmt.Errorf("decode move body: %w", err)
		}
		_, err := s.PlayMove(context.Background(), gameID, userID, req.Row, req.Col)
		return err
	case "forfeit":
		_, err := s.Forfeit(context.Background(), gameID, userID)
		return err
	default:
		return fmt.Errorf("%w: %s", ErrBadDestination, destination)
	}
}
