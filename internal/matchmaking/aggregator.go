package matchmaking

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"gomoku-platform/backend/internal/events"
)

// EventSource is the aggregator's view of the queue-events partition.
type EventSource interface {
	Fetch(ctx context.Context) (kafkago.Message, error)
}

// Publisher is the synchronous producer surface the aggregator needs.
type Publisher interface {
	PublishSync(ctx context.Context, topic, key string, v interface{}) error
}

// StateCommitter persists the materialized state together with the
// consumed offset; StateStore satisfies it.
type StateCommitter interface {
	Commit(ctx context.Context, state *State, offset int64) error
}

// Aggregator is the single-threaded fold over queue-events. It owns
// MatchmakingState exclusively; external readers learn of matches through
// the match-created topic, never by peeking at the state.
type Aggregator struct {
	source EventSource
	store  StateCommitter
	pub    Publisher

	state *State
}

// NewAggregator builds an aggregator resuming from the given recovered
// state (use StateStore.Load to obtain it alongside the resume offset).
func NewAggregator(source EventSource, store StateCommitter, pub Publisher, state *State) *Aggregator {
	return &Aggregator{source: source, store: store, pub: pub, state: state}
}

// Run processes the partition until ctx is cancelled or a state-store or
// publish failure forces a halt. Per event: fold, attempt matches, then
// commit state and offset atomically. Publishes happen before the commit;
// a crash in between replays the event against the pre-publish snapshot,
// which re-attempts the pair with a fresh gameId. Downstream consumers
// deduplicate on their own keys, and the compensating PLAYER_LEFT events
// are idempotent folds, so the window is safe (see DESIGN.md).
func (a *Aggregator) Run(ctx context.Context) error {
	log.Printf("[MATCHMAKING] Aggregator started: waiting=%d matched=%d totalJoined=%d totalMatches=%d",
		len(a.state.Waiting), len(a.state.Matched), a.state.TotalJoined, a.state.TotalMatchesCreated)

	for {
		msg, err := a.source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch queue event: %w", err)
		}

		var ev events.QueueEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			// A malformed event can never fold; skip it but still
			// advance the committed offset past it.
			log.Printf("[MATCHMAKING] Dropping malformed queue event at offset %d: %v", msg.Offset, err)
		} else {
			a.state.Apply(ev)
			log.Printf("[MATCHMAKING] %s %s: waiting=%d available=%d",
				ev.Action, ev.PlayerID, len(a.state.Waiting), a.state.AvailableCount())

			if err := a.tryMatch(ctx); err != nil {
				return err
			}
		}

		if err := a.store.Commit(ctx, a.state, msg.Offset); err != nil {
			// Halt; a supervisor restarts us from the last commit.
			return fmt.Errorf("aggregator halting: %w", err)
		}
	}
}

// tryMatch pairs FIFO-oldest available players until fewer than two
// remain. Emission order is match-created first, then the two
// compensating PLAYER_LEFT events through the normal queue path; the
// Matched reservation keeps the pair out of later selections while those
// cleanups are in flight.
func (a *Aggregator) tryMatch(ctx context.Context) error {
	for {
		p1, p2, ok := a.state.NextPair()
		if !ok {
			return nil
		}

		gameID := uuid.New().String()
		match := events.MatchCreatedEvent{
			EventID:   uuid.New().String(),
			GameID:    gameID,
			GameType:  "HUMAN_VS_HUMAN",
			Player1ID: p1,
			Player2ID: p2,
			Source:    events.SourceMatchmaking,
			At:        time.Now().UTC(),
		}
		if err := a.pub.PublishSync(ctx, events.TopicMatchMade, gameID, match); err != nil {
			return fmt.Errorf("emit match: %w", err)
		}

		a.state.MarkMatched(p1, p2)
		log.Printf("[MATCHMAKING] Match created: game=%s player1=%s player2=%s (total=%d)",
			gameID, p1, p2, a.state.TotalMatchesCreated)

		for _, playerID := range []string{p1, p2} {
			cleanup := events.QueueEvent{
				EventID:  uuid.New().String(),
				PlayerID: playerID,
				Action:   events.ActionPlayerLeft,
				At:       time.Now().UTC(),
			}
			if err := a.pub.PublishSync(ctx, events.TopicQueueEvents, events.QueueKey, cleanup); err != nil {
				return fmt.Errorf("emit cleanup for %s: %w", playerID, err)
			}
		}
	}
}
