package lobby

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/ladders/go/internal/models"
)

// Repository defines lobby persistence
type Repository interface {
	Save(ctx context.Context, lobby *models.Lobby) error
	Get(ctx context.Context, id uuid.UUID) (*models.Lobby, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, tierID string, progress models.LobbyProgress) ([]*models.Lobby, error)
}

// Wallet is the slice of the economy a lobby needs. ref is an idempotency
// reference.
type Wallet interface {
	Balance(ctx context.Context, playerID string) (int64, error)
	Debit(ctx context.Context, playerID string, amount int64, ref string) error
	Credit(ctx context.Context, playerID string, amount int64, ref string) error
}

// SessionWriter stores newly started sessions
type SessionWriter interface {
	Put(ctx context.Context, session *models.Session) error
}

// Tiers looks up stake tiers by id
type Tiers interface {
	Get(id string) (models.StakeTier, error)
}
