package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gomoku-platform/backend/internal/db"
	"gomoku-platform/backend/internal/events"
	"gomoku-platform/backend/internal/models"
)

// Updater consumes game-move-made and applies rating and counter updates
// on terminal events. Each event is applied at most once: the eventId is
// recorded in processed_events inside the same transaction as the stats
// write, so a redelivery finds the marker and skips.
type Updater struct {
	db *db.DB
}

// NewUpdater builds an updater over the shared database handle.
func NewUpdater(database *db.DB) *Updater {
	return &Updater{db: database}
}

// HandleGameMove is the consumer handler for one move event. Non-terminal
// events are ignored.
func (u *Updater) HandleGameMove(ctx context.Context, key, value []byte) error {
	var ev events.GameMoveEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		log.Printf("[STATS] Dropping malformed move event: %v", err)
		return nil
	}
	if !ev.Terminal() {
		return nil
	}

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.ProcessedEvent{EventID: ev.EventID})
		if res.Error != nil {
			return fmt.Errorf("record processed event: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			log.Printf("[STATS] Event %s already applied, skipping", ev.EventID)
			return nil
		}

		var game models.Game
		if err := tx.First(&game, "id = ?", ev.GameID).Error; err != nil {
			return fmt.Errorf("load game %s: %w", ev.GameID, err)
		}
		return u.apply(tx, game, ev)
	})
	if err != nil {
		return fmt.Errorf("apply terminal event %s: %w", ev.EventID, err)
	}
	return nil
}

// apply routes the terminal event by game shape. Winnerless
// abandonments (idle timeout) change nothing; forfeits carry a winner
// and count. AI games touch counters only; human games move ratings.
func (u *Updater) apply(tx *gorm.DB, game models.Game, ev events.GameMoveEvent) error {
	if ev.Status == "ABANDONED" && ev.WinnerType == "NONE" {
		return nil
	}

	// A row seeded from the move stream may never learn its players if
	// the match announcement was lost; the result cannot be attributed,
	// so skip rather than redeliver forever.
	if game.Player1ID == "" {
		log.Printf("[STATS] Game %s has no recorded players, skipping rating", game.ID)
		return nil
	}

	if game.GameType == "HUMAN_VS_AI" {
		won := ev.WinnerType == "PLAYER"
		draw := ev.WinnerType == "NONE"
		return updatePlayer(tx, game.Player1ID, won, draw, 0)
	}

	if game.Player2ID == nil {
		log.Printf("[STATS] Game %s has no second player recorded, skipping rating", game.ID)
		return nil
	}
	p1, err := loadStats(tx, game.Player1ID)
	if err != nil {
		return err
	}
	p2, err := loadStats(tx, *game.Player2ID)
	if err != nil {
		return err
	}

	var s1 float64
	switch {
	case ev.WinnerType == "NONE":
		s1 = 0.5
	case ev.WinnerID == game.Player1ID:
		s1 = 1
	default:
		s1 = 0
	}

	d1 := ratingDelta(p1.Rating, p1.GamesPlayed, p2.Rating, s1)
	d2 := ratingDelta(p2.Rating, p2.GamesPlayed, p1.Rating, 1-s1)

	if err := updatePlayer(tx, game.Player1ID, s1 == 1, s1 == 0.5, d1); err != nil {
		return err
	}
	if err := updatePlayer(tx, *game.Player2ID, s1 == 0, s1 == 0.5, d2); err != nil {
		return err
	}

	log.Printf("[STATS] Game %s rated: %s %+d, %s %+d",
		game.ID, game.Player1ID, d1, *game.Player2ID, d2)
	return nil
}

// loadStats fetches or seeds a player's row.
func loadStats(tx *gorm.DB, userID string) (*models.PlayerStats, error) {
	stats := models.PlayerStats{UserID: userID, Rating: InitialRating, PeakRating: InitialRating}
	err := tx.Where("user_id = ?", userID).FirstOrCreate(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("load stats for %s: %w", userID, err)
	}
	return &stats, nil
}

// updatePlayer folds one result into a player's row.
func updatePlayer(tx *gorm.DB, userID string, won, draw bool, delta int) error {
	stats, err := loadStats(tx, userID)
	if err != nil {
		return err
	}

	stats.GamesPlayed++
	switch {
	case won:
		stats.Wins++
		stats.WinStreak++
		if stats.WinStreak > stats.BestWinStreak {
			stats.BestWinStreak = stats.WinStreak
		}
	case draw:
		stats.Draws++
		stats.WinStreak = 0
	default:
		stats.Losses++
		stats.WinStreak = 0
	}

	stats.Rating = applyDelta(stats.Rating, delta)
	if stats.Rating > stats.PeakRating {
		stats.PeakRating = stats.Rating
	}

	if err := tx.Save(stats).Error; err != nil {
		return fmt.Errorf("save stats for %s: %w", userID, err)
	}
	return nil
}

// ErrNoStats is returned by Get for players who have never finished a
// rated game.
var ErrNoStats = errors.New("no stats recorded")

// Get returns one player's row.
func (u *Updater) Get(ctx context.Context, userID string) (*models.PlayerStats, error) {
	var stats models.PlayerStats
	err := u.db.WithContext(ctx).First(&stats, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoStats
	}
	if err != nil {
		return nil, fmt.Errorf("load stats for %s: %w", userID, err)
	}
	return &stats, nil
}

// Leaderboard returns the top players by rating.
func (u *Updater) Leaderboard(ctx context.Context, limit int) ([]models.PlayerStats, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var rows []models.PlayerStats
	err := u.db.WithContext(ctx).
		Order("rating DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	return rows, nil
}
