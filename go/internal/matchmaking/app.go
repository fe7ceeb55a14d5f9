package matchmaking

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/mcdev12/ladders/go/internal/models"
	"github.com/rs/zerolog/log"
)

// BalanceReader reports a player's wallet balance
type BalanceReader interface {
	Balance(ctx context.Context, playerID string) (int64, error)
}

// StakeFloor reports the cheapest stake for a group size
type StakeFloor interface {
	MinStake(groupSize int) (int64, bool)
}

// App admits players to the wait queue.
type App struct {
	queue  *Queue
	wallet BalanceReader
	floor  StakeFloor
	clock  clockwork.Clock
}

func NewApp(queue *Queue, wallet BalanceReader, floor StakeFloor, clock clockwork.Clock) *App {
	return &App{queue: queue, wallet: wallet, floor: floor, clock: clock}
}

// RequestMatch queues player with their balance as the affordability marker.
// Players who cannot afford the cheapest two-player tier are turned away.
func (a *App) RequestMatch(ctx context.Context, player models.Player) (*models.WaitQueueEntry, error) {
	if a.queue.Contains(player.ID) {
		return nil, gameerr.ErrAlreadyQueued
	}

	minStake, ok := a.floor.MinStake(2)
	if !ok {
		return nil, fmt.Errorf("%w: no two-player stake tier configured", gameerr.ErrConfiguration)
	}
	balance, err := a.wallet.Balance(ctx, player.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance < minStake {
		return nil, fmt.Errorf("%w: %s has %d, cheapest match is %d", gameerr.ErrInsufficientFunds, player.ID, balance, minStake)
	}

	entry := models.WaitQueueEntry{
		PlayerID:      player.ID,
		Address:       player.Address,
		DisplayName:   player.DisplayName,
		Avatar:        player.Avatar,
		Affordability: balance,
		EnqueuedAt:    a.clock.Now(),
	}
	if err := a.queue.Enqueue(entry); err != nil {
		return nil, err
	}

	log.Info().
		Str("player_id", player.ID).
		Int64("affordability", balance).
		Int("queue_length", a.queue.Len()).
		Msg("player queued for match")
	return &entry, nil
}

// CancelMatch removes playerID from the queue. It reports false once the
// player has already been drawn into a group.
func (a *App) CancelMatch(_ context.Context, playerID string) bool {
	cancelled := a.queue.Cancel(playerID)
	if cancelled {
		log.Info().Str("player_id", playerID).Msg("match request cancelled")
	}
	return cancelled
}
