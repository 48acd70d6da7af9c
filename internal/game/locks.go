package game

import (
	"sync"
)

// lockManager hands out one mutex per gameId so that all mutation of a
// session serializes while different games proceed in parallel. Entries
// are forgotten when the session is evicted.
type lockManager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockManager() *lockManager {
	return &lockManager{locks: make(map[string]*sync.Mutex)}
}

// obtain returns the mutex for gameID, creating it on first use.
func (lm *lockManager) obtain(gameID string) *sync.Mutex {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	l, ok := lm.locks[gameID]
	if !ok {
		l = &sync.Mutex{}
		lm.locks[gameID] = l
	}
	return l
}

// forget drops the mutex for an evicted game. Callers must not hold it.
func (lm *lockManager) forget(gameID string) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	delete(lm.locks, gameID)
}
