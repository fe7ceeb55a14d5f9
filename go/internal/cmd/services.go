package main

import (
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/ladders/go/internal/board"
	"github.com/mcdev12/ladders/go/internal/events"
	"github.com/mcdev12/ladders/go/internal/lobby"
	"github.com/mcdev12/ladders/go/internal/matchmaking"
	"github.com/mcdev12/ladders/go/internal/sessionstore"
	"github.com/mcdev12/ladders/go/internal/stakes"
	"github.com/mcdev12/ladders/go/internal/turn"
)

// Wallet is the economy surface shared by the lobby, engine and matchmaking.
type Wallet interface {
	lobby.Wallet
	turn.PrizePayer
	matchmaking.BalanceReader
}

type Services struct {
	Lobby       *lobby.Service
	Turn        *turn.Service
	Matchmaking *matchmaking.Service

	TurnApp   *turn.App
	Scheduler *matchmaking.Scheduler
}

type serviceDeps struct {
	store    *sessionstore.Store
	boards   *board.Registry
	catalog  *stakes.Catalog
	wallet   Wallet
	notifier events.Notifier
	clock    clockwork.Clock
}

func setupServices(cfg *Config, deps serviceDeps) (*Services, error) {
	// Wire up dependency injection chain
	// Store → App layer → Service layer

	// Lobby
	lobbyApp := lobby.NewApp(lobby.NewMemoryRepository(), deps.catalog, deps.wallet, deps.store, deps.notifier, deps.clock)
	lobbyService := lobby.NewService(lobbyApp)

	// Turn
	dice, err := turn.NewSeededDice()
	if err != nil {
		return nil, fmt.Errorf("failed to seed dice: %w", err)
	}
	turnApp := turn.NewApp(deps.store, deps.boards, dice, deps.wallet, lobbyApp, deps.notifier, deps.clock)
	turnService := turn.NewService(turnApp)

	// Matchmaking
	queue := matchmaking.NewQueue()
	matchApp := matchmaking.NewApp(queue, deps.wallet, deps.catalog, deps.clock)
	matchService := matchmaking.NewService(matchApp)
	scheduler := matchmaking.NewScheduler(queue, deps.catalog, lobbyApp, deps.notifier, deps.clock, cfg.Match)

	return &Services{
		Lobby:       lobbyService,
		Turn:        turnService,
		Matchmaking: matchService,
		TurnApp:     turnApp,
		Scheduler:   scheduler,
	}, nil
}
