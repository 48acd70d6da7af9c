// Package migrations applies the schema as ordered raw SQL statements.
// Statements are embedded so a deployed binary never depends on a
// migrations directory being present next to it.
package migrations

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	"gomoku-platform/backend/internal/db"
)

type migration struct {
	name string
	sql  string
}

var all = []migration{
	{
		name: "001_create_users",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				id VARCHAR(36) PRIMARY KEY,
				username VARCHAR(50) UNIQUE NOT NULL,
				email VARCHAR(100) UNIQUE NOT NULL,
				password_hash VARCHAR(255) NOT NULL,
				status ENUM('ACTIVE', 'SUSPENDED') DEFAULT 'ACTIVE',
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
		`,
	},
	{
		name: "002_create_games",
		sql: `
			CREATE TABLE IF NOT EXISTS games (
				id VARCHAR(36) PRIMARY KEY,
				game_type ENUM('HUMAN_VS_HUMAN', 'HUMAN_VS_AI') NOT NULL,
				status ENUM('WAITING', 'IN_PROGRESS', 'COMPLETED', 'ABANDONED') DEFAULT 'WAITING',
				player1_id VARCHAR(36) NOT NULL,
				player2_id VARCHAR(36),
				ai_difficulty VARCHAR(10),
				source VARCHAR(20) NOT NULL,
				winner_type ENUM('PLAYER', 'AI', 'NONE'),
				winner_id VARCHAR(36),
				move_count INT DEFAULT 0,
				final_board JSON,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				ended_at TIMESTAMP NULL,
				INDEX idx_status (status),
				INDEX idx_player1 (player1_id),
				INDEX idx_player2 (player2_id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
		`,
	},
	{
		name: "003_create_game_moves",
		sql: `
			CREATE TABLE IF NOT EXISTS game_moves (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				game_id VARCHAR(36) NOT NULL,
				move_number INT NOT NULL,
				actor_type ENUM('HUMAN', 'AI') NOT NULL,
				player_id VARCHAR(36),
				board_row INT NOT NULL,
				board_col INT NOT NULL,
				stone_color ENUM('BLACK', 'WHITE') NOT NULL,
				took_ms BIGINT DEFAULT 0,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				INDEX idx_game (game_id),
				UNIQUE KEY unique_game_move (game_id, move_number),
				UNIQUE KEY unique_game_cell (game_id, board_row, board_col)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
		`,
	},
	{
		name: "004_create_player_stats",
		sql: `
			CREATE TABLE IF NOT EXISTS player_stats (
				user_id VARCHAR(36) PRIMARY KEY,
				rating INT DEFAULT 1200,
				peak_rating INT DEFAULT 1200,
				games_played INT DEFAULT 0,
				wins INT DEFAULT 0,
				losses INT DEFAULT 0,
				draws INT DEFAULT 0,
				win_streak INT DEFAULT 0,
				best_win_streak INT DEFAULT 0,
				updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
				INDEX idx_rating (rating)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
		`,
	},
	{
		name: "005_create_processed_events",
		sql: `
			CREATE TABLE IF NOT EXISTS processed_events (
				event_id VARCHAR(36) PRIMARY KEY,
				processed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
		`,
	},
}

// RunMigrations executes all pending database migrations
func RunMigrations(cfg db.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
	)

	conn, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	if err := conn.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if err := ensureMigrationsTable(conn); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := getAppliedMigrations(conn)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	pendingCount := 0
	for _, m := range all {
		if applied[m.name] {
			continue
		}

		log.Printf("[STORE] Applying migration: %s", m.name)
		if _, err := conn.Exec(m.sql); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", m.name, err)
		}
		if err := recordMigration(conn, m.name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m.name, err)
		}
		pendingCount++
	}

	if pendingCount == 0 {
		log.Println("[STORE] No pending migrations to apply")
	} else {
		log.Printf("[STORE] Applied %d migration(s)", pendingCount)
	}

	return nil
}

// ensureMigrationsTable creates the schema_migrations table if it doesn't exist
func ensureMigrationsTable(conn *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			migration_name VARCHAR(255) UNIQUE NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
	`
	_, err := conn.Exec(query)
	return err
}

// getAppliedMigrations returns a map of applied migration names
func getAppliedMigrations(conn *sql.DB) (map[string]bool, error) {
	rows, err := conn.Query("SELECT migration_name FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		applied[name] = true
	}

	return applied, rows.Err()
}

// recordMigration records a migration as applied
func recordMigration(conn *sql.DB, migrationName string) error {
	_, err := conn.Exec("INSERT INTO schema_migrations (migration_name) VALUES (?)", migrationName)
	return err
}
