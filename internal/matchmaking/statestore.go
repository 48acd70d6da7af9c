package matchmaking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	stateKey  = "matchmaking:state"
	offsetKey = "matchmaking:offset"
)

// StateStore is the aggregator's durable backing: a JSON snapshot of the
// materialized State plus the offset of the last folded queue event,
// committed in one transaction. Recovery loads both and resumes the
// partition read at offset+1, so no fold is lost and no event is folded
// twice into a committed snapshot.
type StateStore struct {
	rdb *redis.Client
}

// NewStateStore wraps a connected Redis client.
func NewStateStore(rdb *redis.Client) *StateStore {
	return &StateStore{rdb: rdb}
}

// Load returns the committed state and offset. A cold store yields an
// empty state and offset -1 (nothing folded yet).
func (ss *StateStore) Load(ctx context.Context) (*State, int64, error) {
	data, err := ss.rdb.Get(ctx, stateKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewState(), -1, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load state snapshot: %w", err)
	}

	state := NewState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, 0, fmt.Errorf("decode state snapshot: %w", err)
	}
	if state.Matched == nil {
		state.Matched = make(map[string]bool)
	}

	raw, err := ss.rdb.Get(ctx, offsetKey).Result()
	if errors.Is(err, redis.Nil) {
		return state, -1, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("load committed offset: %w", err)
	}
	offset, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("decode committed offset %q: %w", raw, err)
	}
	return state, offset, nil
}

// Commit writes the snapshot and offset atomically. A failure leaves the
// previous commit intact; the caller halts and recovers from it.
func (ss *StateStore) Commit(ctx context.Context, state *State, offset int64) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state snapshot: %w", err)
	}

	_, err = ss.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, stateKey, data, 0)
		pipe.Set(ctx, offsetKey, strconv.FormatInt(offset, 10), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit state at offset %d: %w", offset, err)
	}
	return nil
}
