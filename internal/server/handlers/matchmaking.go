package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gomoku-platform/backend/internal/events"
)

// QueuePublisher is the synchronous producer surface for queue events.
type QueuePublisher interface {
	PublishSync(ctx context.Context, topic, key string, v interface{}) error
}

// Queue accepts join and leave requests by appending events to the log.
// The aggregator owns the authoritative state; the local joined map is a
// best-effort echo used only to phrase the immediate response, and is
// cleared optimistically on leave.
type Queue struct {
	pub QueuePublisher

	mu     sync.Mutex
	joined map[string]time.Time
}

// NewQueue builds the matchmaking REST surface.
func NewQueue(pub QueuePublisher) *Queue {
	return &Queue{pub: pub, joined: make(map[string]time.Time)}
}

// HandleJoin appends PLAYER_JOINED for the caller
func (q *Queue) HandleJoin(c *gin.Context) {
	userID := c.GetString("user_id")

	q.mu.Lock()
	_, already := q.joined[userID]
	q.mu.Unlock()

	ev := events.QueueEvent{
		EventID:  uuid.New().String(),
		PlayerID: userID,
		Action:   events.ActionPlayerJoined,
		At:       time.Now().UTC(),
	}
	if err := q.pub.PublishSync(c.Request.Context(), events.TopicQueueEvents, events.QueueKey, ev); err != nil {
		fail(c, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "could not enqueue, try again")
		return
	}

	status := "JOINED"
	if already {
		// The duplicate event is harmless: the fold ignores it.
		status = "ALREADY_IN_QUEUE"
	} else {
		q.mu.Lock()
		q.joined[userID] = ev.At
		q.mu.Unlock()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"joinedAt": ev.At,
		"message":  "waiting for an opponent, match-found arrives on /user/queue/match-found",
	})
}

// HandleLeave appends PLAYER_LEFT for the caller
func (q *Queue) HandleLeave(c *gin.Context) {
	userID := c.GetString("user_id")

	q.mu.Lock()
	_, wasJoined := q.joined[userID]
	delete(q.joined, userID)
	q.mu.Unlock()

	ev := events.QueueEvent{
		EventID:  uuid.New().String(),
		PlayerID: userID,
		Action:   events.ActionPlayerLeft,
		At:       time.Now().UTC(),
	}
	if err := q.pub.PublishSync(c.Request.Context(), events.TopicQueueEvents, events.QueueKey, ev); err != nil {
		fail(c, http.StatusServiceUnavailable, "QUEUE_UNAVAILABLE", "could not leave, try again")
		return
	}

	status := "LEFT"
	if !wasJoined {
		status = "NOT_IN_QUEUE"
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// HandleStatus reports the caller's queue status. The REST surface has no
// read access to the aggregation, so it answers NOT_IN_QUEUE; clients
// learn about matches through the match-found push.
func (q *Queue) HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "NOT_IN_QUEUE",
		"message": "queue state is delivered over /user/queue/match-found",
	})
}

// Forget clears the local echo for a matched player. Wired to the
// match-found push path so a player can re-queue right after a game.
func (q *Queue) Forget(userID string) {
	q.mu.Lock()
	delete(q.joined, userID)
	q.mu.Unlock()
}
