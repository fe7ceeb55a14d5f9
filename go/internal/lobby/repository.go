package lobby

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/mcdev12/ladders/go/internal/models"
)

// MemoryRepository keeps lobbies in process. Every read and write copies, so
// callers never share a lobby with the repository.
type MemoryRepository struct {
	mu      sync.RWMutex
	lobbies map[uuid.UUID]*models.Lobby
}

// NewMemoryRepository creates a new lobby repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{lobbies: make(map[uuid.UUID]*models.Lobby)}
}

// Save creates or replaces a lobby
func (r *MemoryRepository) Save(_ context.Context, lobby *models.Lobby) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lobbies[lobby.ID] = lobby.Clone()
	return nil
}

// Get retrieves a lobby by ID
func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (*models.Lobby, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lobbies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", gameerr.ErrLobbyNotFound, id)
	}
	return l.Clone(), nil
}

// Delete removes a lobby
func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lobbies, id)
	return nil
}

// List returns lobbies in the given progress, oldest first. An empty tierID
// matches every tier.
func (r *MemoryRepository) List(_ context.Context, tierID string, progress models.LobbyProgress) ([]*models.Lobby, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Lobby
	for _, l := range r.lobbies {
		if l.Progress != progress {
			continue
		}
		if tierID != "" && l.TierID != tierID {
			continue
		}
		out = append(out, l.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
