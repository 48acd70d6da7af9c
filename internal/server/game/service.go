// Package game glues the live session store, the engine, the event log
// and the realtime hub into the gameplay flow shared by the REST and
// websocket surfaces.
package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"gomoku-platform/backend/internal/ai"
	"gomoku-platform/backend/internal/events"
	engine "gomoku-platform/backend/internal/game"
	"gomoku-platform/backend/internal/models"
)

// Broadcaster is the realtime push surface the service needs.
type Broadcaster interface {
	BroadcastTopic(destination string, payload interface{})
	SendToUser(userID, destination string, payload interface{})
}

// Publisher is the event log surface. Match announcements go out
// synchronously; move mirrors ride the shadow path.
type Publisher interface {
	PublishSync(ctx context.Context, topic, key string, v interface{}) error
	PublishAsync(topic, key string, v interface{})
}

// Suggester asks the AI bridge for a move.
type Suggester interface {
	SuggestMove(ctx context.Context, board [][]int, currentPlayer int, difficulty string) (row, col int, err error)
}

// Update is the payload broadcast to /topic/game/{id} after every state
// transition.
type Update struct {
	Type     string           `json:"type"`
	Game     engine.StateView `json:"game"`
	LastMove *engine.Move     `json:"lastMove,omitempty"`
}

// Update types.
const (
	UpdateMoveMade  = "MOVE_MADE"
	UpdateCompleted = "GAME_COMPLETED"
	UpdateForfeited = "GAME_FORFEITED"
	UpdateAbandoned = "GAME_ABANDONED"
)

// Service runs the gameplay flow.
type Service struct {
	store     *engine.Store
	pub       Publisher
	hub       Broadcaster
	ai        Suggester
	aiTimeout time.Duration
}

// NewService wires the gameplay dependencies. aiTimeout bounds one AI
// suggestion; zero falls back to the bridge default.
func NewService(store *engine.Store, pub Publisher, hub Broadcaster, suggester Suggester, aiTimeout time.Duration) *Service {
	if aiTimeout <= 0 {
		aiTimeout = ai.DefaultTimeout
	}
	return &Service{store: store, pub: pub, hub: hub, ai: suggester, aiTimeout: aiTimeout}
}

// CreateGame opens a session for a direct challenge or an AI game and
// announces it on the match topic. Matchmade games never come through
// here; the queue aggregator owns those.
func (s *Service) CreateGame(ctx context.Context, creatorID string, req models.CreateGameRequest) (*engine.GameSession, error) {
	var (
		session *engine.GameSession
		source  string
	)

	gameID := uuid.New().String()
	switch engine.GameType(req.GameType) {
	case engine.HumanVsAI:
		if !engine.Difficulties[req.AIDifficulty] {
			return nil, fmt.Errorf("%w: unknown difficulty %q", engine.ErrInvalidMove, req.AIDifficulty)
		}
		session = engine.NewSession(gameID, engine.HumanVsAI, creatorID, "", req.AIDifficulty)
		source = events.SourceAIGame
	case engine.HumanVsHuman:
		if req.OpponentID == "" || req.OpponentID == creatorID {
			return nil, fmt.Errorf("%w: direct challenge needs a distinct opponent", engine.ErrInvalidMove)
		}
		session = engine.NewSession(gameID, engine.HumanVsHuman, creatorID, req.OpponentID, "")
		source = events.SourceDirectChallenge
	default:
		return nil, fmt.Errorf("%w: unknown game type %q", engine.ErrInvalidMove, req.GameType)
	}

	if err := s.store.Create(session); err != nil {
		return nil, err
	}

	ev := events.MatchCreatedEvent{
		EventID:      uuid.New().String(),
		GameID:       gameID,
		GameType:     string(session.GameType),
		Player1ID:    session.Player1ID,
		Player2ID:    session.Player2ID,
		AIDifficulty: session.AIDifficulty,
		Source:       source,
		At:           time.Now().UTC(),
	}
	if err := s.pub.PublishSync(ctx, events.TopicMatchMade, gameID, ev); err != nil {
		// The session exists either way; persistence catches up from the
		// move stream. Surface the degradation but keep the game.
		log.Printf("[ENGINE] Match announcement for %s failed: %v", gameID, err)
	}

	if source == events.SourceDirectChallenge {
		s.hub.SendToUser(req.OpponentID, "/user/queue/match-found", map[string]interface{}{
			"gameId":           gameID,
			"gameType":         string(session.GameType),
			"opponentId":       creatorID,
			"yourPlayerNumber": 2,
			"yourColor":        engine.StoneColorOf(2),
		})
	}
	return session, nil
}

// Get returns a session snapshot for a participant.
func (s *Service) Get(gameID, requesterID string) (*engine.GameSession, error) {
	session, err := s.store.Get(gameID)
	if err != nil {
		return nil, err
	}
	if session.PlayerNumber(requesterID) == 0 {
		return nil, engine.ErrNotParticipant
	}
	return session, nil
}

// PlayMove applies a human move, mirrors it to the log and broadcasts
// the new state. In an AI game the AI reply runs in the same call; an AI
// failure leaves the human move standing and the AI is retried on the
// player's next interaction.
func (s *Service) PlayMove(ctx context.Context, gameID, actorID string, row, col int) (*engine.GameSession, error) {
	// A stranded AI turn from an earlier bridge failure is caught up
	// first, so the player's move lands on a consistent board.
	s.catchUpAI(ctx, gameID)

	snap, move, err := s.applyMove(gameID, actorID, row, col)
	if err != nil {
		return nil, err
	}
	s.afterMove(snap, move)

	if snap.GameType == engine.HumanVsAI && snap.Status == engine.StatusInProgress && snap.CurrentPlayer == 2 {
		if aiSnap := s.playAIMove(ctx, gameID); aiSnap != nil {
			snap = aiSnap
		}
	}
	return snap, nil
}

// Forfeit abandons the game in the actor's name, awards the opponent and
// mirrors the terminal transition.
func (s *Service) Forfeit(ctx context.Context, gameID, actorID string) (*engine.GameSession, error) {
	snap, err := s.store.UpdateWith(gameID, func(session *engine.GameSession) error {
		return engine.Forfeit(session, actorID)
	})
	if err != nil {
		return nil, err
	}

	s.hub.BroadcastTopic(gameTopic(gameID), Update{Type: UpdateForfeited, Game: snap.View()})
	s.pub.PublishAsync(events.TopicGameMoves, gameID, s.markerEvent(snap, actorID))
	log.Printf("[ENGINE] Game %s forfeited by %s", gameID, actorID)
	return snap, nil
}

// HandleAbandoned is the session store's janitor hook: broadcast the
// terminal state and mirror it to the log.
func (s *Service) HandleAbandoned(session *engine.GameSession) {
	s.hub.BroadcastTopic(gameTopic(session.GameID), Update{Type: UpdateAbandoned, Game: session.View()})
	s.pub.PublishAsync(events.TopicGameMoves, session.GameID, s.markerEvent(session, ""))
	log.Printf("[ENGINE] Game %s abandoned after idle timeout", session.GameID)
}

func (s *Service) applyMove(gameID, actorID string, row, col int) (*engine.GameSession, *engine.Move, error) {
	var move engine.Move
	snap, err := s.store.UpdateWith(gameID, func(session *engine.GameSession) error {
		m, err := engine.ApplyMove(session, actorID, row, col)
		if err != nil {
			return err
		}
		move = *m
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return snap, &move, nil
}

// afterMove broadcasts and mirrors one applied move.
func (s *Service) afterMove(snap *engine.GameSession, move *engine.Move) {
	typ := UpdateMoveMade
	if snap.Terminal() {
		typ = UpdateCompleted
	}
	s.hub.BroadcastTopic(gameTopic(snap.GameID), Update{Type: typ, Game: snap.View(), LastMove: move})
	s.pub.PublishAsync(events.TopicGameMoves, snap.GameID, s.moveEvent(snap, move))
}

// catchUpAI plays a stranded AI turn, if any. Failures are quiet; the
// next interaction retries again.
func (s *Service) catchUpAI(ctx context.Context, gameID string) {
	session, err := s.store.Get(gameID)
	if err != nil {
		return
	}
	if session.GameType == engine.HumanVsAI && session.Status == engine.StatusInProgress && session.CurrentPlayer == 2 {
		s.playAIMove(ctx, gameID)
	}
}

// playAIMove asks the bridge for a move and applies it. Returns the new
// snapshot, or nil when the bridge failed or the suggestion was illegal.
func (s *Service) playAIMove(ctx context.Context, gameID string) *engine.GameSession {
	session, err := s.store.Get(gameID)
	if err != nil {
		return nil
	}

	aictx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	defer cancel()
	row, col, err := s.ai.SuggestMove(aictx, engine.BoardRows(session.Board), session.CurrentPlayer, session.AIDifficulty)
	if err != nil {
		log.Printf("[AI] No move for game %s: %v", gameID, err)
		return nil
	}

	snap, move, err := s.applyMove(gameID, engine.AIActor, row, col)
	if err != nil {
		log.Printf("[AI] Suggested move (%d,%d) rejected for game %s: %v", row, col, gameID, err)
		return nil
	}
	s.afterMove(snap, move)
	return snap
}

// moveEvent mirrors one applied move to the wire envelope.
func (s *Service) moveEvent(snap *engine.GameSession, move *engine.Move) events.GameMoveEvent {
	ev := events.GameMoveEvent{
		EventID:    uuid.New().String(),
		GameID:     snap.GameID,
		MoveNumber: move.MoveNumber,
		ActorType:  events.ActorHuman,
		PlayerID:   move.Actor,
		Row:        move.Row,
		Col:        move.Col,
		StoneColor: move.StoneColor,
		TookMs:     move.TookMs,
		BoardAfter: engine.BoardRows(snap.Board),
		At:         move.At,
	}
	if move.Actor == engine.AIActor {
		ev.ActorType = events.ActorAI
		ev.PlayerID = ""
		ev.AIDifficulty = snap.AIDifficulty
	}
	if snap.Terminal() {
		ev.Status = string(snap.Status)
		ev.WinnerType, ev.WinnerID = eventWinner(snap)
	}
	return ev
}

// markerEvent builds the terminal event for transitions without a stone
// placement (forfeit, abandonment).
func (s *Service) markerEvent(snap *engine.GameSession, actorID string) events.GameMoveEvent {
	winnerType, winnerID := eventWinner(snap)
	now := time.Now().UTC()
	if snap.EndedAt != nil {
		now = *snap.EndedAt
	}
	return events.GameMoveEvent{
		EventID:    uuid.New().String(),
		GameID:     snap.GameID,
		MoveNumber: snap.MoveCount,
		ActorType:  events.ActorHuman,
		PlayerID:   actorID,
		Row:        -1,
		Col:        -1,
		BoardAfter: engine.BoardRows(snap.Board),
		Status:     string(snap.Status),
		WinnerType: winnerType,
		WinnerID:   winnerID,
		At:         now,
	}
}

// eventWinner maps session winner fields to the event vocabulary, which
// only distinguishes a human winner, the AI, or nobody.
func eventWinner(snap *engine.GameSession) (winnerType, winnerID string) {
	switch snap.WinnerType {
	case engine.WinnerPlayer1, engine.WinnerPlayer2:
		return "PLAYER", snap.WinnerID
	case engine.WinnerAI:
		return "AI", ""
	default:
		return "NONE", ""
	}
}

func gameTopic(gameID string) string {
	return "/topic/game/" + gameID
}

// ErrBadDestination rejects SEND frames the service cannot route.
var ErrBadDestination = errors.New("unknown destination")
