package models

import (
	"time"
)

// User represents a platform account
type User struct {
	ID           string    `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	Username     string    `gorm:"column:username;type:varchar(50);uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"column:email;type:varchar(100);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	Status       string    `gorm:"column:status;type:varchar(20);default:ACTIVE" json:"status"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}

// Game is the durable record of one game, written by the persistence
// consumer from the event stream
type Game struct {
	ID           string     `gorm:"column:id;type:varchar(36);primaryKey" json:"id"`
	GameType     string     `gorm:"column:game_type;type:varchar(20);not null" json:"gameType"`
	Status       string     `gorm:"column:status;type:varchar(20);default:WAITING;index:idx_status" json:"status"`
	Player1ID    string     `gorm:"column:player1_id;type:varchar(36);not null;index:idx_player1" json:"player1Id"`
	Player2ID    *string    `gorm:"column:player2_id;type:varchar(36);index:idx_player2" json:"player2Id,omitempty"`
	AIDifficulty *string    `gorm:"column:ai_difficulty;type:varchar(10)" json:"aiDifficulty,omitempty"`
	Source       string     `gorm:"column:source;type:varchar(20);not null" json:"source"`
	WinnerType   *string    `gorm:"column:winner_type;type:varchar(10)" json:"winnerType,omitempty"`
	WinnerID     *string    `gorm:"column:winner_id;type:varchar(36)" json:"winnerId,omitempty"`
	MoveCount    int        `gorm:"column:move_count;default:0" json:"moveCount"`
	FinalBoard   *string    `gorm:"column:final_board;type:json" json:"-"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	EndedAt      *time.Time `gorm:"column:ended_at" json:"endedAt,omitempty"`
}

// TableName specifies the table name for Game model
func (Game) TableName() string {
	return "games"
}

// GameMove is one stone placement. The unique indexes make replayed
// deliveries of the same event a no-op insert
type GameMove struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	GameID     string    `gorm:"column:game_id;type:varchar(36);not null;index:idx_game;uniqueIndex:unique_game_move;uniqueIndex:unique_game_cell" json:"gameId"`
	MoveNumber int       `gorm:"column:move_number;not null;uniqueIndex:unique_game_move" json:"moveNumber"`
	ActorType  string    `gorm:"column:actor_type;type:varchar(10);not null" json:"actorType"`
	PlayerID   *string   `gorm:"column:player_id;type:varchar(36)" json:"playerId,omitempty"`
	Row        int       `gorm:"column:board_row;not null;uniqueIndex:unique_game_cell" json:"row"`
	Col        int       `gorm:"column:board_col;not null;uniqueIndex:unique_game_cell" json:"col"`
	StoneColor string    `gorm:"column:stone_color;type:varchar(10);not null" json:"stoneColor"`
	TookMs     int64     `gorm:"column:took_ms;default:0" json:"tookMs"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

// TableName specifies the table name for GameMove model
func (GameMove) TableName() string {
	return "game_moves"
}

// PlayerStats is the per-player rating and counters row maintained by the
// stats consumer
type PlayerStats struct {
	UserID        string    `gorm:"column:user_id;type:varchar(36);primaryKey" json:"userId"`
	Rating        int       `gorm:"column:rating;default:1200;index:idx_rating" json:"rating"`
	PeakRating    int       `gorm:"column:peak_rating;default:1200" json:"peakRating"`
	GamesPlayed   int       `gorm:"column:games_played;default:0" json:"gamesPlayed"`
	Wins          int       `gorm:"column:wins;default:0" json:"wins"`
	Losses        int       `gorm:"column:losses;default:0" json:"losses"`
	Draws         int       `gorm:"column:draws;default:0" json:"draws"`
	WinStreak     int       `gorm:"column:win_streak;default:0" json:"winStreak"`
	BestWinStreak int       `gorm:"column:best_win_streak;default:0" json:"bestWinStreak"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for PlayerStats model
func (PlayerStats) TableName() string {
	return "player_stats"
}

// ProcessedEvent marks an event the stats consumer has already applied,
// so redeliveries never double-count a result
type ProcessedEvent struct {
	EventID     string    `gorm:"column:event_id;type:varchar(36);primaryKey" json:"eventId"`
	ProcessedAt time.Time `gorm:"column:processed_at;autoCreateTime" json:"processedAt"`
}

// TableName specifies the table name for ProcessedEvent model
func (ProcessedEvent) TableName() string {
	return "processed_events"
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" binding:"required"`
	Password        string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type AuthResponse struct {
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type CreateGameRequest struct {
	GameType     string `json:"gameType" binding:"required"`
	OpponentID   string `json:"player2Id,omitempty"`
	AIDifficulty string `json:"aiDifficulty,omitempty"`
}

type MoveRequest struct {
	Row int `json:"row" binding:"min=0,max=14"`
	Col int `json:"col" binding:"min=0,max=14"`
}
