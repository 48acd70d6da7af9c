package game

import (
	"log"
	"sync"
	"time"
)

// DefaultTTL is the idle horizon after which a session is eligible for
// eviction.
const DefaultTTL = 2 * time.Hour

// sweepInterval is how often the eviction sweeper runs.
const sweepInterval = 5 * time.Minute

// Store holds the live sessions and serializes all mutation of a given
// gameId behind a per-game lock. Each write refreshes the session's idle
// timer; the sweeper evicts terminal sessions past the TTL and marks
// non-terminal ones ABANDONED first.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*GameSession
	locks    *lockManager
	ttl      time.Duration

	// onAbandoned is invoked by the janitor after it marks an idle
	// session ABANDONED, with a snapshot for the terminal broadcast.
	onAbandoned func(*GameSession)

	stop     chan struct{}
	stopOnce sync.Once
}

// NewStore creates a session store with the given idle TTL. A zero ttl
// falls back to DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*GameSession),
		locks:    newLockManager(),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
}

// SetOnAbandoned registers the janitor's terminal broadcast hook. Must be
// called before StartSweeper.
func (st *Store) SetOnAbandoned(fn func(*GameSession)) {
	st.onAbandoned = fn
}

// Create inserts a new session. Fails with ErrGameExists if the gameId is
// already present.
func (st *Store) Create(s *GameSession) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[s.GameID]; ok {
		return ErrGameExists
	}
	st.sessions[s.GameID] = s.Clone()
	log.Printf("[STORE] Created session %s (%s)", s.GameID, s.GameType)
	return nil
}

// Get returns a snapshot of the session, or ErrGameNotFound.
func (st *Store) Get(gameID string) (*GameSession, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	return s.Clone(), nil
}

// UpdateWith applies fn to the session under its exclusive per-game lock.
// fn runs against a copy; if it returns an error nothing is written back
// and the error is surfaced. On success the copy replaces the stored
// session, which also refreshes the idle timer, and a snapshot of the new
// state is returned.
func (st *Store) UpdateWith(gameID string, fn func(*GameSession) error) (*GameSession, error) {
	l := st.locks.obtain(gameID)
	l.Lock()
	defer l.Unlock()

	st.mu.RLock()
	cur, ok := st.sessions[gameID]
	st.mu.RUnlock()
	if !ok {
		return nil, ErrGameNotFound
	}

	next := cur.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}

	st.mu.Lock()
	st.sessions[gameID] = next
	st.mu.Unlock()

	return next.Clone(), nil
}

// Delete removes a session and its lock entry.
func (st *Store) Delete(gameID string) {
	st.mu.Lock()
	delete(st.sessions, gameID)
	st.mu.Unlock()
	st.locks.forget(gameID)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// StartSweeper runs the eviction sweeper until Stop is called.
func (st *Store) StartSweeper() {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-st.stop:
				return
			case <-ticker.C:
				st.Sweep()
			}
		}
	}()
}

// Stop terminates the sweeper.
func (st *Store) Stop() {
	st.stopOnce.Do(func() { close(st.stop) })
}

// Sweep performs one eviction pass. Idle terminal sessions are evicted.
// Idle non-terminal sessions are marked ABANDONED with no winner and the
// terminal hook fires; they are evicted on a later pass, after downstream
// consumers have had the terminal event.
func (st *Store) Sweep() {
	cutoff := time.Now().UTC().Add(-st.ttl)

	st.mu.RLock()
	var idle []string
	for id, s := range st.sessions {
		if s.LastActivityAt.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	st.mu.RUnlock()

	evicted, abandoned := 0, 0
	for _, id := range idle {
		l := st.locks.obtain(id)
		l.Lock()

		st.mu.Lock()
		s, ok := st.sessions[id]
		if !ok || !s.LastActivityAt.Before(cutoff) {
			st.mu.Unlock()
			l.Unlock()
			continue
		}
		if s.Terminal() {
			delete(st.sessions, id)
			st.mu.Unlock()
			l.Unlock()
			st.locks.forget(id)
			evicted++
			continue
		}

		next := s.Clone()
		now := time.Now().UTC()
		next.Status = StatusAbandoned
		next.WinnerType = WinnerNone
		next.EndedAt = &now
		st.sessions[id] = next
		st.mu.Unlock()
		l.Unlock()
		abandoned++

		if st.onAbandoned != nil {
			st.onAbandoned(next.Clone())
		}
	}

	if evicted > 0 || abandoned > 0 {
		log.Printf("[STORE] Sweep complete: evicted=%d abandoned=%d live=%d", evicted, abandoned, st.Len())
	}
}
