package turn

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/ladders/go/internal/events"
	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/mcdev12/ladders/go/internal/keylock"
	"github.com/mcdev12/ladders/go/internal/models"
	"github.com/rs/zerolog/log"
)

// App runs turns for live sessions. Work on one session is serialized; work
// on different sessions runs in parallel.
type App struct {
	store    SessionStore
	boards   Boards
	dice     Dice
	payer    PrizePayer
	lobbies  LobbyCompleter
	notifier events.Notifier
	clock    clockwork.Clock
	locks    *keylock.Map
}

func NewApp(store SessionStore, boards Boards, dice Dice, payer PrizePayer, lobbies LobbyCompleter, notifier events.Notifier, clock clockwork.Clock) *App {
	return &App{
		store:    store,
		boards:   boards,
		dice:     dice,
		payer:    payer,
		lobbies:  lobbies,
		notifier: notifier,
		clock:    clock,
		locks:    keylock.New(),
	}
}

// Roll draws a die for playerID and applies it. Only the current turn holder
// of an in-progress session may roll; any other request is rejected without
// touching the session.
func (a *App) Roll(ctx context.Context, sessionID uuid.UUID, playerID string) (*RollResult, error) {
	unlock := a.locks.Lock(sessionID.String())
	defer unlock()

	session, err := a.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusInProgress {
		return nil, gameerr.ErrSessionFinished
	}
	if session.CurrentTurn != playerID {
		return nil, gameerr.ErrNotYourTurn
	}
	p, _ := session.Participant(playerID)
	if p == nil {
		return nil, fmt.Errorf("%w: %s in session %s", gameerr.ErrPlayerNotFound, playerID, sessionID)
	}

	layout, err := a.boards.Layout(session.BoardID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Str("board_id", session.BoardID).Msg("session references unknown board")
		return nil, err
	}

	die := a.dice.Roll()
	to := layout.Resolve(p.Position, die)
	candidate := p.Position + die
	won := to == layout.TotalCells

	nextTurn := playerID
	if !won {
		nextTurn = session.NextActiveAfter(playerID)
	}

	roll := models.Roll{
		PlayerID: playerID,
		Die:      die,
		From:     p.Position,
		To:       to,
		Jumped:   candidate <= layout.TotalCells && to != candidate,
		Won:      won,
		At:       a.clock.Now(),
	}

	updated, err := a.store.ApplyRoll(ctx, sessionID, roll, nextTurn)
	if err != nil {
		return nil, fmt.Errorf("failed to apply roll: %w", err)
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("player_id", playerID).
		Int("die", die).
		Int("from", roll.From).
		Int("to", roll.To).
		Bool("won", won).
		Msg("roll applied")

	// a successful winning roll is the write that finished the session, so
	// any claimed prize is still owed
	var awarded int64
	if won {
		if updated.PrizeAwarded {
			awarded = updated.PrizePool
		}
		a.settle(ctx, updated, awarded)
	}

	a.notifyRoll(ctx, updated, roll, won)
	if won {
		a.notifyEnded(ctx, updated, awarded, events.EndReasonWon)
	}

	return &RollResult{Session: updated, Roll: roll, NextTurn: updated.CurrentTurn, Won: won}, nil
}

// Leave removes playerID from the rotation. If the leaver held the turn it
// passes on; once fewer than two players remain the session ends.
func (a *App) Leave(ctx context.Context, sessionID uuid.UUID, playerID string) (*models.Session, error) {
	unlock := a.locks.Lock(sessionID.String())
	defer unlock()

	updated, err := a.store.Update(ctx, sessionID, func(s *models.Session) error {
		if s.Status != models.SessionStatusInProgress {
			return gameerr.ErrSessionFinished
		}
		p, _ := s.Participant(playerID)
		if p == nil {
			return fmt.Errorf("%w: %s in session %s", gameerr.ErrPlayerNotFound, playerID, sessionID)
		}
		if p.Status == models.ParticipantStatusLeft {
			return fmt.Errorf("%w: player already left", gameerr.ErrInvalidTransition)
		}
		p.Status = models.ParticipantStatusLeft
		if s.CurrentTurn == playerID {
			s.CurrentTurn = s.NextActiveAfter(playerID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("player_id", playerID).
		Str("current_turn", updated.CurrentTurn).
		Msg("player left session")

	active := updated.ActiveParticipants()
	if len(active) >= 2 {
		return updated, nil
	}

	var (
		winner *string
		reason = events.EndReasonAbandoned
	)
	if len(active) == 1 {
		id := active[0].PlayerID
		winner = &id
		reason = events.EndReasonForfeited
	}

	ended, awarded, err := a.finish(ctx, sessionID, winner)
	if err != nil {
		return nil, err
	}
	a.notifyEnded(ctx, ended, awarded, reason)
	return ended, nil
}

// State returns the current session for reconnecting players and spectators.
func (a *App) State(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	return a.store.Get(ctx, sessionID)
}

// finish ends the session and claims the prize pool for winner inside the
// atomic update, so it is paid at most once no matter how many paths reach
// here.
func (a *App) finish(ctx context.Context, sessionID uuid.UUID, winner *string) (*models.Session, int64, error) {
	var award int64
	ended, err := a.store.Update(ctx, sessionID, func(s *models.Session) error {
		award = s.Finish(winner, a.clock.Now())
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to finish session: %w", err)
	}

	a.settle(ctx, ended, award)
	return ended, award, nil
}

// settle pays a claimed prize and completes the lobby once the finished
// session has been stored.
func (a *App) settle(ctx context.Context, ended *models.Session, award int64) {
	sessionID := ended.ID.String()
	if award > 0 {
		ref := "session:" + sessionID
		if err := a.payer.Credit(ctx, *ended.WinnerID, award, ref); err != nil {
			log.Error().
				Err(err).
				Str("session_id", sessionID).
				Str("winner_id", *ended.WinnerID).
				Int64("prize", award).
				Str("reference", ref).
				Msg("failed to credit prize pool")
		}
	}

	if a.lobbies != nil {
		if err := a.lobbies.MarkCompleted(ctx, ended.LobbyID); err != nil {
			log.Warn().Err(err).Str("lobby_id", ended.LobbyID.String()).Msg("failed to mark lobby completed")
		}
	}

	winnerID := ""
	if ended.WinnerID != nil {
		winnerID = *ended.WinnerID
	}
	log.Info().
		Str("session_id", sessionID).
		Str("winner_id", winnerID).
		Int64("prize", award).
		Msg("session finished")
}

func (a *App) notifyRoll(ctx context.Context, s *models.Session, roll models.Roll, won bool) {
	positions := make(map[string]int, len(s.Participants))
	for _, p := range s.Participants {
		positions[p.PlayerID] = p.Position
	}
	payload := events.RollResultPayload{
		SessionID: s.ID.String(),
		PlayerID:  roll.PlayerID,
		Die:       roll.Die,
		From:      roll.From,
		To:        roll.To,
		Jumped:    roll.Jumped,
		NextTurn:  s.CurrentTurn,
		Won:       won,
		Positions: positions,
	}
	events.Broadcast(ctx, a.notifier, s.Addresses(), events.TypeRollResult, payload, roll.At)
}

func (a *App) notifyEnded(ctx context.Context, s *models.Session, prize int64, reason string) {
	payload := events.SessionEndedPayload{
		SessionID: s.ID.String(),
		LobbyID:   s.LobbyID.String(),
		WinnerID:  s.WinnerID,
		Prize:     prize,
		Reason:    reason,
	}
	events.Broadcast(ctx, a.notifier, s.Addresses(), events.TypeSessionEnded, payload, a.clock.Now())
}
