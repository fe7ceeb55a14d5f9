package sessionstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/ladders/go/internal/models"
)

func newSession(players ...string) *models.Session {
	s := &models.Session{
		ID:        uuid.New(),
		LobbyID:   uuid.New(),
		BoardID:   "classic",
		Status:    models.SessionStatusInProgress,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	for i, p := range players {
		s.Participants = append(s.Participants, models.Participant{
			PlayerID:  p,
			Address:   "addr-" + p,
			TurnOrder: i,
			Status:    models.ParticipantStatusActive,
		})
	}
	if len(players) > 0 {
		s.CurrentTurn = players[0]
	}
	return s
}

// stubTier is an in-memory Tier whose availability can be toggled.
type stubTier struct {
	name string

	mu       sync.Mutex
	sessions map[uuid.UUID]*models.Session
	down     bool
	gets     int
	sets     int
	setErr   error
	getDelay time.Duration
}

func newStubTier(name string) *stubTier {
	return &stubTier{name: name, sessions: make(map[uuid.UUID]*models.Session)}
}

func (t *stubTier) Name() string { return t.name }

func (t *stubTier) Get(ctx context.Context, id uuid.UUID) (*models.Session, Outcome, error) {
	if t.getDelay > 0 {
		time.Sleep(t.getDelay)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gets++
	if t.down {
		return nil, Unavailable, errors.New(t.name + " down")
	}
	s, ok := t.sessions[id]
	if !ok {
		return nil, Miss, nil
	}
	return s.Clone(), Hit, nil
}

func (t *stubTier) Set(ctx context.Context, s *models.Session, ttl time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sets++
	if t.setErr != nil {
		return t.setErr
	}
	t.sessions[s.ID] = s.Clone()
	return nil
}

func (t *stubTier) session(id uuid.UUID) *models.Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessions[id]
}

func (t *stubTier) getCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gets
}
