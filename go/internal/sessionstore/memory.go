package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/ladders/go/internal/models"
	"github.com/rs/zerolog/log"
)

type memoryEntry struct {
	session   *models.Session
	expiresAt time.Time
}

// MemoryTier is the process-local tier. Entries expire individually and are
// removed by Run.
type MemoryTier struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]memoryEntry
	clock   clockwork.Clock
}

func NewMemoryTier(clock clockwork.Clock) *MemoryTier {
	return &MemoryTier{
		entries: make(map[uuid.UUID]memoryEntry),
		clock:   clock,
	}
}

func (m *MemoryTier) Name() string { return "memory" }

func (m *MemoryTier) Get(_ context.Context, id uuid.UUID) (*models.Session, Outcome, error) {
	m.mu.RLock()
	e, ok := m.entries[id]
	m.mu.RUnlock()

	if !ok || m.expired(e) {
		return nil, Miss, nil
	}
	return e.session.Clone(), Hit, nil
}

// Set stores a copy of session. A write carrying an older version than the
// live entry is ignored so late backfills cannot roll state back.
func (m *MemoryTier) Set(_ context.Context, session *models.Session, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.clock.Now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.entries[session.ID]; ok && !m.expired(cur) && cur.session.Version > session.Version {
		return nil
	}
	m.entries[session.ID] = memoryEntry{session: session.Clone(), expiresAt: expiresAt}
	return nil
}

// Sweep drops every expired entry and returns how many were removed.
func (m *MemoryTier) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

func (m *MemoryTier) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Run sweeps expired entries every interval until ctx is cancelled.
func (m *MemoryTier) Run(ctx context.Context, interval time.Duration) error {
	ticker := m.clock.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("memory tier sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("memory tier sweeper stopped")
			return nil
		case <-ticker.Chan():
			if n := m.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Msg("swept expired sessions")
			}
		}
	}
}

func (m *MemoryTier) expired(e memoryEntry) bool {
	return !e.expiresAt.IsZero() && !m.clock.Now().Before(e.expiresAt)
}
