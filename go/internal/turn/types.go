package turn

import (
	"context"

	"github.com/google/uuid"
	"github.com/mcdev12/ladders/go/internal/board"
	"github.com/mcdev12/ladders/go/internal/models"
)

// SessionStore defines what the engine needs from the session cache
type SessionStore interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Session, error)
	Update(ctx context.Context, id uuid.UUID, fn func(*models.Session) error) (*models.Session, error)
	ApplyRoll(ctx context.Context, id uuid.UUID, roll models.Roll, nextTurn string) (*models.Session, error)
}

// Boards looks up memoized board layouts
type Boards interface {
	Layout(id string) (*board.Layout, error)
}

// PrizePayer credits the winner's wallet. ref is an idempotency reference.
type PrizePayer interface {
	Credit(ctx context.Context, playerID string, amount int64, ref string) error
}

// LobbyCompleter marks the lobby that spawned a session as completed
type LobbyCompleter interface {
	MarkCompleted(ctx context.Context, lobbyID uuid.UUID) error
}

// RollResult is the outcome of a single roll.
type RollResult struct {
	Session  *models.Session `json:"session"`
	Roll     models.Roll     `json:"roll"`
	NextTurn string          `json:"next_turn,omitempty"`
	Won      bool            `json:"won"`
}
