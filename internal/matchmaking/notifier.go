package matchmaking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"gomoku-platform/backend/internal/events"
	"gomoku-platform/backend/internal/game"
)

// SessionCreator inserts new live sessions; game.Store satisfies it.
type SessionCreator interface {
	Create(*game.GameSession) error
}

// PushSender delivers a payload to a user's private queue.
type PushSender interface {
	SendToUser(userID, destination string, payload interface{})
}

// MatchFound is the payload pushed to /user/queue/match-found.
type MatchFound struct {
	GameID           string `json:"gameId"`
	GameType         string `json:"gameType"`
	OpponentID       string `json:"opponentId"`
	YourPlayerNumber int    `json:"yourPlayerNumber"`
	YourColor        string `json:"yourColor"`
}

// Notifier tails match-created, opens the live session for matchmade
// games and pushes match-found to both players. Redelivered events hit
// the existing session and are dropped without a second push.
type Notifier struct {
	sessions SessionCreator
	push     PushSender
}

// NewNotifier builds a notifier over the session store and push sender.
func NewNotifier(sessions SessionCreator, push PushSender) *Notifier {
	return &Notifier{sessions: sessions, push: push}
}

// HandleMatchCreated is the consumer handler for one match-created event.
func (n *Notifier) HandleMatchCreated(ctx context.Context, key, value []byte) error {
	var ev events.MatchCreatedEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		log.Printf("[MATCHMAKING] Dropping malformed match event: %v", err)
		return nil
	}

	// Direct challenges and AI games open their session on the REST
	// path; only matchmade games are opened here.
	if ev.Source != events.SourceMatchmaking {
		return nil
	}

	session := game.NewSession(ev.GameID, game.HumanVsHuman, ev.Player1ID, ev.Player2ID, "")
	if err := n.sessions.Create(session); err != nil {
		if errors.Is(err, game.ErrGameExists) {
			log.Printf("[MATCHMAKING] Duplicate match delivery for game %s, skipping", ev.GameID)
			return nil
		}
		return fmt.Errorf("open session for match %s: %w", ev.GameID, err)
	}

	n.push.SendToUser(ev.Player1ID, "/user/queue/match-found", MatchFound{
		GameID:           ev.GameID,
		GameType:         ev.GameType,
		OpponentID:       ev.Player2ID,
		YourPlayerNumber: 1,
		YourColor:        "BLACK",
	})
	n.push.SendToUser(ev.Player2ID, "/user/queue/match-found", MatchFound{
		GameID:           ev.GameID,
		GameType:         ev.GameType,
		OpponentID:       ev.Player1ID,
		YourPlayerNumber: 2,
		YourColor:        "WHITE",
	})

	log.Printf("[MATCHMAKING] Session %s opened, players notified", ev.GameID)
	return nil
}
