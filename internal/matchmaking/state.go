// Package matchmaking materializes the FIFO queue as a fold over the
// queue-events stream and emits matches. State is durable in a key-value
// snapshot committed together with the consumed offset, so a restart
// replays from exactly where the last materialization left off.
package matchmaking

import (
	"time"

	"gomoku-platform/backend/internal/events"
)

// WaitingEntry is one queued player. Slice order is insertion order, which
// is the FIFO discipline.
type WaitingEntry struct {
	PlayerID string    `json:"playerId"`
	JoinedAt time.Time `json:"joinedAt"`
}

// State is the aggregation over queue events. Waiting preserves strict
// insertion order; Matched holds players reserved by an emitted match
// whose compensating PLAYER_LEFT has not yet been folded in. A Matched
// entry for a player no longer in Waiting just means the cleanup already
// ran; the fold tolerates it.
type State struct {
	Waiting             []WaitingEntry  `json:"waiting"`
	Matched             map[string]bool `json:"matched"`
	TotalJoined         int64           `json:"totalJoined"`
	TotalMatchesCreated int64           `json:"totalMatchesCreated"`
}

// NewState returns an empty aggregation.
func NewState() *State {
	return &State{Matched: make(map[string]bool)}
}

// Apply folds one queue event into the state. The fold is deterministic:
// replaying the same event sequence reconstructs identical state.
func (s *State) Apply(ev events.QueueEvent) {
	switch ev.Action {
	case events.ActionPlayerJoined:
		if s.waitingIndex(ev.PlayerID) >= 0 || s.Matched[ev.PlayerID] {
			return
		}
		s.Waiting = append(s.Waiting, WaitingEntry{PlayerID: ev.PlayerID, JoinedAt: ev.At})
		s.TotalJoined++
	case events.ActionPlayerLeft, events.ActionPlayerTimeout:
		if i := s.waitingIndex(ev.PlayerID); i >= 0 {
			s.Waiting = append(s.Waiting[:i], s.Waiting[i+1:]...)
		}
		delete(s.Matched, ev.PlayerID)
	}
}

// NextPair returns the two FIFO-oldest waiting players that are not
// reserved by an emitted match, if at least two such players exist.
func (s *State) NextPair() (p1, p2 string, ok bool) {
	var free []string
	for _, e := range s.Waiting {
		if !s.Matched[e.PlayerID] {
			free = append(free, e.PlayerID)
			if len(free) == 2 {
				return free[0], free[1], true
			}
		}
	}
	return "", "", false
}

// MarkMatched reserves both players of an emitted match and bumps the
// match counter. The players stay in Waiting until their compensating
// PLAYER_LEFT events fold through.
func (s *State) MarkMatched(p1, p2 string) {
	s.Matched[p1] = true
	s.Matched[p2] = true
	s.TotalMatchesCreated++
}

// AvailableCount returns the number of waiting players not reserved by a
// match.
func (s *State) AvailableCount() int {
	n := 0
	for _, e := range s.Waiting {
		if !s.Matched[e.PlayerID] {
			n++
		}
	}
	return n
}

func (s *State) waitingIndex(playerID string) int {
	for i, e := range s.Waiting {
		if e.PlayerID == playerID {
			return i
		}
	}
	return -1
}
