package lobby

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/ladders/go/internal/events"
	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/mcdev12/ladders/go/internal/keylock"
	"github.com/mcdev12/ladders/go/internal/models"
	"github.com/rs/zerolog/log"
)

// App manages pre-game rooms and their transition to a running session.
// Mutations of one lobby are serialized.
type App struct {
	repo     Repository
	tiers    Tiers
	wallet   Wallet
	sessions SessionWriter
	notifier events.Notifier
	clock    clockwork.Clock
	locks    *keylock.Map
}

func NewApp(repo Repository, tiers Tiers, wallet Wallet, sessions SessionWriter, notifier events.Notifier, clock clockwork.Clock) *App {
	return &App{
		repo:     repo,
		tiers:    tiers,
		wallet:   wallet,
		sessions: sessions,
		notifier: notifier,
		clock:    clock,
		locks:    keylock.New(),
	}
}

// CreateLobby opens a room under tierID with creator as owner and first seat.
func (a *App) CreateLobby(ctx context.Context, tierID string, creator models.Player) (*models.Lobby, error) {
	tier, err := a.tiers.Get(tierID)
	if err != nil {
		return nil, err
	}
	if err := a.checkFunds(ctx, creator.ID, tier.EntryStake); err != nil {
		return nil, err
	}

	now := a.clock.Now()
	lobby := &models.Lobby{
		ID:         uuid.New(),
		TierID:     tier.ID,
		BoardID:    tier.BoardID,
		Capacity:   tier.Capacity,
		EntryStake: tier.EntryStake,
		OwnerID:    creator.ID,
		Seats:      []models.Seat{newSeat(creator, false, now)},
		Progress:   models.LobbyProgressLobby,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := a.repo.Save(ctx, lobby); err != nil {
		return nil, fmt.Errorf("failed to create lobby: %w", err)
	}

	log.Info().
		Str("lobby_id", lobby.ID.String()).
		Str("tier_id", tier.ID).
		Str("owner_id", creator.ID).
		Msg("lobby created")

	a.notify(ctx, lobby.ID, lobby, lobby.Addresses(), events.LobbyJoined, creator.ID)
	return lobby, nil
}

// Join seats player in the lobby.
func (a *App) Join(ctx context.Context, lobbyID uuid.UUID, player models.Player) (*models.Lobby, error) {
	unlock := a.locks.Lock(lobbyID.String())
	defer unlock()

	lobby, err := a.repo.Get(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if lobby.Progress != models.LobbyProgressLobby {
		return nil, gameerr.ErrWrongStage
	}
	if s, _ := lobby.Seat(player.ID); s != nil {
		return nil, gameerr.ErrAlreadyJoined
	}
	if lobby.Full() {
		return nil, fmt.Errorf("%w: lobby %s seats %d", gameerr.ErrCapacityExceeded, lobbyID, lobby.Capacity)
	}
	if err := a.checkFunds(ctx, player.ID, lobby.EntryStake); err != nil {
		return nil, err
	}

	now := a.clock.Now()
	lobby.Seats = append(lobby.Seats, newSeat(player, false, now))
	lobby.UpdatedAt = now
	if err := a.repo.Save(ctx, lobby); err != nil {
		return nil, fmt.Errorf("failed to save lobby: %w", err)
	}

	a.notify(ctx, lobby.ID, lobby, lobby.Addresses(), events.LobbyJoined, player.ID)
	return lobby, nil
}

// Leave removes playerID from the lobby. The last player out deletes the
// lobby and nil is returned; an owner leaving hands ownership to the next
// seat in join order.
func (a *App) Leave(ctx context.Context, lobbyID uuid.UUID, playerID string) (*models.Lobby, error) {
	unlock := a.locks.Lock(lobbyID.String())
	defer unlock()

	lobby, err := a.repo.Get(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if lobby.Progress != models.LobbyProgressLobby {
		return nil, gameerr.ErrWrongStage
	}
	seat, idx := lobby.Seat(playerID)
	if seat == nil {
		return nil, fmt.Errorf("%w: %s in lobby %s", gameerr.ErrPlayerNotFound, playerID, lobbyID)
	}
	leaverAddr := seat.Address

	lobby.Seats = append(lobby.Seats[:idx], lobby.Seats[idx+1:]...)
	lobby.UpdatedAt = a.clock.Now()

	if len(lobby.Seats) == 0 {
		if err := a.repo.Delete(ctx, lobbyID); err != nil {
			return nil, fmt.Errorf("failed to delete lobby: %w", err)
		}
		log.Info().Str("lobby_id", lobbyID.String()).Msg("lobby deleted after last player left")
		a.notify(ctx, lobbyID, nil, []string{leaverAddr}, events.LobbyDeleted, playerID)
		return nil, nil
	}

	ownerChanged := false
	if lobby.OwnerID == playerID {
		lobby.OwnerID = lobby.Seats[0].PlayerID
		ownerChanged = true
	}
	if err := a.repo.Save(ctx, lobby); err != nil {
		return nil, fmt.Errorf("failed to save lobby: %w", err)
	}

	addrs := append(lobby.Addresses(), leaverAddr)
	a.notify(ctx, lobby.ID, lobby, addrs, events.LobbyLeft, playerID)
	if ownerChanged {
		a.notify(ctx, lobby.ID, lobby, lobby.Addresses(), events.LobbyOwnerChanged, lobby.OwnerID)
	}
	return lobby, nil
}

// SetReady toggles the readiness of playerID's seat.
func (a *App) SetReady(ctx context.Context, lobbyID uuid.UUID, playerID string, ready bool) (*models.Lobby, error) {
	unlock := a.locks.Lock(lobbyID.String())
	defer unlock()

	lobby, err := a.repo.Get(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if lobby.Progress != models.LobbyProgressLobby {
		return nil, gameerr.ErrWrongStage
	}
	seat, _ := lobby.Seat(playerID)
	if seat == nil {
		return nil, fmt.Errorf("%w: %s in lobby %s", gameerr.ErrPlayerNotFound, playerID, lobbyID)
	}
	seat.Ready = ready
	lobby.UpdatedAt = a.clock.Now()
	if err := a.repo.Save(ctx, lobby); err != nil {
		return nil, fmt.Errorf("failed to save lobby: %w", err)
	}

	a.notify(ctx, lobby.ID, lobby, lobby.Addresses(), events.LobbyReady, playerID)
	return lobby, nil
}

// Start turns a full, all-ready lobby into a session. Only the owner may
// start. Stakes are charged first; if any seat cannot pay, earlier charges
// are refunded and the lobby is left as it was.
func (a *App) Start(ctx context.Context, lobbyID uuid.UUID, playerID string) (*models.Session, error) {
	unlock := a.locks.Lock(lobbyID.String())
	defer unlock()

	lobby, err := a.repo.Get(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if lobby.Progress != models.LobbyProgressLobby {
		return nil, gameerr.ErrWrongStage
	}
	if lobby.OwnerID != playerID {
		return nil, gameerr.ErrNotHost
	}
	if len(lobby.Seats) != lobby.Capacity || !lobby.AllReady() {
		return nil, gameerr.ErrSeatsNotReady
	}

	// each attempt charges under its own reference; a failed attempt has
	// already refunded what it took
	ref := fmt.Sprintf("lobby:%s:start:%s", lobby.ID, uuid.NewString())
	charged, err := a.chargeStakes(ctx, lobby, ref)
	if err != nil {
		return nil, err
	}

	now := a.clock.Now()
	session := newSession(lobby, now)
	if err := a.sessions.Put(ctx, session); err != nil {
		a.refund(ctx, lobby, charged, ref)
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	lobby.Progress = models.LobbyProgressActive
	lobby.SessionID = &session.ID
	lobby.UpdatedAt = now
	if err := a.repo.Save(ctx, lobby); err != nil {
		return nil, fmt.Errorf("failed to save lobby: %w", err)
	}

	log.Info().
		Str("lobby_id", lobby.ID.String()).
		Str("session_id", session.ID.String()).
		Int("players", len(session.Participants)).
		Int64("prize_pool", session.PrizePool).
		Msg("lobby started")

	a.notify(ctx, lobby.ID, lobby, lobby.Addresses(), events.LobbyStarted, playerID)
	return session, nil
}

// Get returns a lobby by id.
func (a *App) Get(ctx context.Context, lobbyID uuid.UUID) (*models.Lobby, error) {
	return a.repo.Get(ctx, lobbyID)
}

// ListOpen returns lobbies still accepting players. An empty tierID lists
// every tier.
func (a *App) ListOpen(ctx context.Context, tierID string) ([]*models.Lobby, error) {
	lobbies, err := a.repo.List(ctx, tierID, models.LobbyProgressLobby)
	if err != nil {
		return nil, fmt.Errorf("failed to list lobbies: %w", err)
	}
	open := lobbies[:0]
	for _, l := range lobbies {
		if !l.Full() {
			open = append(open, l)
		}
	}
	return open, nil
}

// CreateMatched opens a lobby for a group formed by the matchmaking
// scheduler. Every seat starts ready and the first player owns the room.
func (a *App) CreateMatched(ctx context.Context, tier models.StakeTier, players []models.Player) (*models.Lobby, error) {
	if len(players) != tier.Capacity {
		return nil, fmt.Errorf("%w: tier %s seats %d, got %d players", gameerr.ErrCapacityExceeded, tier.ID, tier.Capacity, len(players))
	}

	now := a.clock.Now()
	lobby := &models.Lobby{
		ID:         uuid.New(),
		TierID:     tier.ID,
		BoardID:    tier.BoardID,
		Capacity:   tier.Capacity,
		EntryStake: tier.EntryStake,
		OwnerID:    players[0].ID,
		Progress:   models.LobbyProgressLobby,
		Matched:    true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, p := range players {
		lobby.Seats = append(lobby.Seats, newSeat(p, true, now))
	}
	if err := a.repo.Save(ctx, lobby); err != nil {
		return nil, fmt.Errorf("failed to create matched lobby: %w", err)
	}

	log.Info().
		Str("lobby_id", lobby.ID.String()).
		Str("tier_id", tier.ID).
		Int("players", len(players)).
		Msg("matched lobby created")
	return lobby, nil
}

// MarkCompleted records that the lobby's session has ended.
func (a *App) MarkCompleted(ctx context.Context, lobbyID uuid.UUID) error {
	unlock := a.locks.Lock(lobbyID.String())
	defer unlock()

	lobby, err := a.repo.Get(ctx, lobbyID)
	if err != nil {
		return err
	}
	if lobby.Progress == models.LobbyProgressCompleted {
		return nil
	}
	lobby.Progress = models.LobbyProgressCompleted
	lobby.UpdatedAt = a.clock.Now()
	if err := a.repo.Save(ctx, lobby); err != nil {
		return fmt.Errorf("failed to save lobby: %w", err)
	}

	a.notify(ctx, lobby.ID, lobby, lobby.Addresses(), events.LobbyCompleted, "")
	return nil
}

func (a *App) checkFunds(ctx context.Context, playerID string, stake int64) error {
	balance, err := a.wallet.Balance(ctx, playerID)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}
	if balance < stake {
		return fmt.Errorf("%w: %s has %d, stake is %d", gameerr.ErrInsufficientFunds, playerID, balance, stake)
	}
	return nil
}

func (a *App) chargeStakes(ctx context.Context, lobby *models.Lobby, ref string) ([]string, error) {
	charged := make([]string, 0, len(lobby.Seats))
	for _, seat := range lobby.Seats {
		if err := a.wallet.Debit(ctx, seat.PlayerID, lobby.EntryStake, ref); err != nil {
			a.refund(ctx, lobby, charged, ref)
			if errors.Is(err, gameerr.ErrInsufficientFunds) {
				return nil, err
			}
			return nil, fmt.Errorf("failed to charge stake: %w", err)
		}
		charged = append(charged, seat.PlayerID)
	}
	return charged, nil
}

func (a *App) refund(ctx context.Context, lobby *models.Lobby, playerIDs []string, ref string) {
	for _, id := range playerIDs {
		if err := a.wallet.Credit(ctx, id, lobby.EntryStake, ref+":refund"); err != nil {
			log.Error().
				Err(err).
				Str("lobby_id", lobby.ID.String()).
				Str("player_id", id).
				Int64("amount", lobby.EntryStake).
				Msg("failed to refund stake")
		}
	}
}

// notify sends a LobbyDelta to addrs. lobby is nil once the room is gone.
func (a *App) notify(ctx context.Context, lobbyID uuid.UUID, lobby *models.Lobby, addrs []string, kind events.LobbyDeltaKind, playerID string) {
	payload := events.LobbyDeltaPayload{
		LobbyID:  lobbyID.String(),
		Kind:     kind,
		PlayerID: playerID,
		Lobby:    lobby,
	}
	events.Broadcast(ctx, a.notifier, addrs, events.TypeLobbyDelta, payload, a.clock.Now())
}

func newSeat(p models.Player, ready bool, at time.Time) models.Seat {
	return models.Seat{
		PlayerID:    p.ID,
		Address:     p.Address,
		DisplayName: p.DisplayName,
		Avatar:      p.Avatar,
		Ready:       ready,
		JoinedAt:    at,
	}
}

func newSession(lobby *models.Lobby, now time.Time) *models.Session {
	session := &models.Session{
		ID:         uuid.New(),
		LobbyID:    lobby.ID,
		BoardID:    lobby.BoardID,
		Status:     models.SessionStatusInProgress,
		EntryStake: lobby.EntryStake,
		PrizePool:  lobby.EntryStake * int64(len(lobby.Seats)),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for i, seat := range lobby.Seats {
		session.Participants = append(session.Participants, models.Participant{
			PlayerID:    seat.PlayerID,
			Address:     seat.Address,
			DisplayName: seat.DisplayName,
			Avatar:      seat.Avatar,
			Position:    0,
			TurnOrder:   i,
			Status:      models.ParticipantStatusActive,
		})
	}
	session.CurrentTurn = lobby.Seats[0].PlayerID
	return session
}
