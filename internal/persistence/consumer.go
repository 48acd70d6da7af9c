// Package persistence tails the event log and writes the durable game
// record. It is a pure consumer: the live path never waits on it, and
// replaying the log reproduces the same rows.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gomoku-platform/backend/internal/db"
	"gomoku-platform/backend/internal/events"
	"gomoku-platform/backend/internal/models"
)

// Consumer applies match-created and game-move-made events to MySQL.
type Consumer struct {
	db *db.DB
}

// NewConsumer builds a consumer over the shared database handle.
func NewConsumer(database *db.DB) *Consumer {
	return &Consumer{db: database}
}

// HandleMatchCreated inserts the game row. Redelivery hits the primary
// key and is dropped.
func (c *Consumer) HandleMatchCreated(ctx context.Context, key, value []byte) error {
	var ev events.MatchCreatedEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		log.Printf("[PERSIST] Dropping malformed match event: %v", err)
		return nil
	}

	row := models.Game{
		ID:        ev.GameID,
		GameType:  ev.GameType,
		Status:    "WAITING",
		Player1ID: ev.Player1ID,
		Source:    ev.Source,
		CreatedAt: ev.At,
	}
	if ev.Player2ID != "" {
		row.Player2ID = &ev.Player2ID
	}
	if ev.AIDifficulty != "" {
		row.AIDifficulty = &ev.AIDifficulty
	}

	res := c.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if res.Error != nil {
		return fmt.Errorf("insert game %s: %w", ev.GameID, res.Error)
	}
	if res.RowsAffected == 0 {
		log.Printf("[PERSIST] Game %s already recorded, skipping", ev.GameID)
	}
	return nil
}

// HandleGameMove inserts the move row and, on a terminal event, closes
// the game record. Terminal markers (forfeit, abandonment) carry no stone
// and skip the move insert. Duplicate deliveries land on the unique
// (game_id, move_number) key and are dropped.
func (c *Consumer) HandleGameMove(ctx context.Context, key, value []byte) error {
	var ev events.GameMoveEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		log.Printf("[PERSIST] Dropping malformed move event: %v", err)
		return nil
	}

	if !ev.Marker() {
		row := models.GameMove{
			GameID:     ev.GameID,
			MoveNumber: ev.MoveNumber,
			ActorType:  ev.ActorType,
			Row:        ev.Row,
			Col:        ev.Col,
			StoneColor: ev.StoneColor,
			TookMs:     ev.TookMs,
			CreatedAt:  ev.At,
		}
		if ev.PlayerID != "" {
			row.PlayerID = &ev.PlayerID
		}

		res := c.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil {
			return fmt.Errorf("insert move %d of game %s: %w", ev.MoveNumber, ev.GameID, res.Error)
		}
		if res.RowsAffected == 0 {
			log.Printf("[PERSIST] Move %d of game %s already recorded, skipping", ev.MoveNumber, ev.GameID)
			return nil
		}
	}

	updates := map[string]interface{}{
		"move_count": ev.MoveNumber,
	}
	if ev.Terminal() {
		updates["status"] = ev.Status
		updates["winner_type"] = nullable(ev.WinnerType)
		updates["winner_id"] = nullable(ev.WinnerID)
		updates["ended_at"] = ev.At

		if ev.BoardAfter != nil {
			board, err := json.Marshal(ev.BoardAfter)
			if err != nil {
				return fmt.Errorf("encode final board of game %s: %w", ev.GameID, err)
			}
			updates["final_board"] = string(board)
		}
		log.Printf("[PERSIST] Game %s closed: status=%s winnerType=%s", ev.GameID, ev.Status, ev.WinnerType)
	} else {
		updates["status"] = "IN_PROGRESS"
	}

	res := c.db.WithContext(ctx).Model(&models.Game{}).Where("id = ?", ev.GameID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update game %s: %w", ev.GameID, res.Error)
	}
	if res.RowsAffected == 0 {
		return c.seedGame(ctx, ev, updates)
	}
	return nil
}

// seedGame handles a move event whose game row does not exist yet. The
// move and match topics are consumed by independent groups, so a move
// can outrun its match-created event; the match announcement can also
// fail outright on the publish path. Creating the row here keeps the
// outcome durable either way, and the later match-created insert lands
// on the primary key and is dropped.
func (c *Consumer) seedGame(ctx context.Context, ev events.GameMoveEvent, updates map[string]interface{}) error {
	var count int64
	if err := c.db.WithContext(ctx).Model(&models.Game{}).Where("id = ?", ev.GameID).Count(&count).Error; err != nil {
		return fmt.Errorf("check game %s: %w", ev.GameID, err)
	}
	if count > 0 {
		// The row exists and the update changed nothing, which is a
		// redelivered event.
		return nil
	}

	row := models.Game{
		ID:        ev.GameID,
		Status:    "IN_PROGRESS",
		CreatedAt: ev.At,
	}
	if ev.AIDifficulty != "" {
		row.GameType = "HUMAN_VS_AI"
		row.AIDifficulty = &ev.AIDifficulty
	}
	if ev.PlayerID != "" && ev.StoneColor == "BLACK" && ev.ActorType == events.ActorHuman {
		row.Player1ID = ev.PlayerID
	}
	if err := c.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("seed game %s from move: %w", ev.GameID, err)
	}
	log.Printf("[PERSIST] Move %d of game %s arrived before its match event, seeded the game row", ev.MoveNumber, ev.GameID)

	res := c.db.WithContext(ctx).Model(&models.Game{}).Where("id = ?", ev.GameID).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update seeded game %s: %w", ev.GameID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update seeded game %s: no row", ev.GameID)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return gorm.Expr("NULL")
	}
	return s
}

// GetGame returns the recorded game row, or gorm.ErrRecordNotFound.
func (c *Consumer) GetGame(ctx context.Context, gameID string) (*models.Game, error) {
	var game models.Game
	if err := c.db.WithContext(ctx).Where("id = ?", gameID).First(&game).Error; err != nil {
		return nil, err
	}
	return &game, nil
}

// ListMoves returns the recorded moves of a game in placement order.
func (c *Consumer) ListMoves(ctx context.Context, gameID string) ([]models.GameMove, error) {
	var moves []models.GameMove
	err := c.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("move_number ASC").
		Find(&moves).Error
	if err != nil {
		return nil, fmt.Errorf("list moves of game %s: %w", gameID, err)
	}
	return moves, nil
}
