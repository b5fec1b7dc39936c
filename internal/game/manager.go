package game

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

var (
	// ErrAlreadyQueued rejects a matchmaking request from a user who is
	// already waiting for an opponent.
	ErrAlreadyQueued = errors.New("user is already waiting for a match")
	// ErrAlreadyInBattle rejects a matchmaking request from a user who is
	// already part of an active battle.
	ErrAlreadyInBattle = errors.New("user is already in a battle")
)

// Manager owns the matchmaking queue and the directory of active battles.
// All mutations go through one coarse lock: operations are short and
// contention is low.
type Manager struct {
	mu      sync.Mutex
	waiting []int64
	battles map[int64]*Battle // both participants map to the same battle
	logger  *zap.Logger
}

// NewManager creates an empty matchmaking manager.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{
		battles: make(map[int64]*Battle),
		logger:  logger,
	}
}

// EnqueueOrMatch pairs id with the longest-waiting opponent, creating a new
// battle registered under both identities. With no one waiting, id is queued
// and opponent is 0. Users already queued or already in a battle are
// rejected.
func (m *Manager) EnqueueOrMatch(id int64) (opponent int64, battle *Battle, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.battles[id]; ok {
		return 0, nil, ErrAlreadyInBattle
	}
	for _, w := range m.waiting {
		if w == id {
			return 0, nil, ErrAlreadyQueued
		}
	}

	if len(m.waiting) > 0 {
		// FIFO: the longest-waiting user is matched first.
		opponent = m.waiting[0]
		m.waiting = m.waiting[1:]

		battle = NewBattle(id, opponent)
		m.battles[id] = battle
		m.battles[opponent] = battle

		m.logger.Info("battle created",
			zap.String("battle_id", battle.ID()),
			zap.Int64("user_id", id),
			zap.Int64("opponent_id", opponent),
		)
		return opponent, battle, nil
	}

	m.waiting = append(m.waiting, id)
	m.logger.Info("user waiting for match", zap.Int64("user_id", id))
	return 0, nil, nil
}

// Find returns the battle id currently belongs to.
func (m *Manager) Find(id int64) (*Battle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.battles[id]
	return b, ok
}

// DetachByParticipant removes the battle id belongs to, clearing the
// entries of both participants atomically. The removed battle is returned
// so the caller can notify the opponent.
func (m *Manager) DetachByParticipant(id int64) (*Battle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.battles[id]
	if !ok {
		return nil, false
	}
	delete(m.battles, id)
	delete(m.battles, b.Opponent(id))

	m.logger.Info("battle removed",
		zap.String("battle_id", b.ID()),
		zap.Int64("user_id", id),
	)
	return b, true
}

// CancelWait removes id from the matchmaking queue, typically on
// disconnect. Removing an identity that is not queued is a no-op.
func (m *Manager) CancelWait(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, w := range m.waiting {
		if w == id {
			m.waiting = append(m.waiting[:i], m.waiting[i+1:]...)
			m.logger.Debug("user left matchmaking queue", zap.Int64("user_id", id))
			return
		}
	}
}

// Stats is a point-in-time view of matchmaking load.
type Stats struct {
	Waiting       int `json:"waiting"`
	ActiveBattles int `json:"active_battles"`
}

// GetStats returns current queue and battle counts.
func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool, len(m.battles))
	for _, b := range m.battles {
		seen[b.ID()] = true
	}
	return Stats{
		Waiting:       len(m.waiting),
		ActiveBattles: len(seen),
	}
}
