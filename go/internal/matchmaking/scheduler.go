package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/ladders/go/internal/events"
	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/mcdev12/ladders/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Config controls the matching cadence.
type Config struct {
	Interval time.Duration `env:"MATCH_INTERVAL" envDefault:"2s"`
	// MultiThreshold is the queue length at which four players are drawn
	// instead of two.
	MultiThreshold     int           `env:"MATCH_MULTI_THRESHOLD" envDefault:"4"`
	SlowCycleThreshold time.Duration `env:"MATCH_SLOW_CYCLE" envDefault:"500ms"`
}

// Tiers finds the stake tier a group can play at
type Tiers interface {
	Compatible(groupSize int, maxStake int64) (models.StakeTier, error)
}

// LobbyCreator opens lobbies for matched groups
type LobbyCreator interface {
	CreateMatched(ctx context.Context, tier models.StakeTier, players []models.Player) (*models.Lobby, error)
}

// Scheduler periodically groups queued players into matched lobbies.
type Scheduler struct {
	queue    *Queue
	tiers    Tiers
	lobbies  LobbyCreator
	notifier events.Notifier
	clock    clockwork.Clock
	cfg      Config
}

func NewScheduler(queue *Queue, tiers Tiers, lobbies LobbyCreator, notifier events.Notifier, clock clockwork.Clock, cfg Config) *Scheduler {
	if cfg.MultiThreshold < 4 {
		cfg.MultiThreshold = 4
	}
	return &Scheduler{
		queue:    queue,
		tiers:    tiers,
		lobbies:  lobbies,
		notifier: notifier,
		clock:    clock,
		cfg:      cfg,
	}
}

// Run executes a cycle every interval until ctx is cancelled. A cycle that
// panics or hits a configuration defect stops the scheduler and its error is
// returned so the process can be restarted by its supervisor.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", s.cfg.Interval).
		Int("multi_threshold", s.cfg.MultiThreshold).
		Msg("matchmaking scheduler started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("matchmaking scheduler stopped")
			return nil
		case <-ticker.Chan():
			if err := s.RunCycle(ctx); err != nil {
				log.Error().Err(err).Msg("matchmaking scheduler stopping")
				return err
			}
		}
	}
}

// RunCycle forms at most one group. Recoverable failures put the drawn
// players back at the front of the queue and return nil.
func (s *Scheduler) RunCycle(ctx context.Context) (err error) {
	start := s.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("matchmaking cycle panicked: %v", r)
		}
		if d := s.clock.Since(start); d > s.cfg.SlowCycleThreshold {
			log.Warn().Dur("duration", d).Dur("threshold", s.cfg.SlowCycleThreshold).Msg("slow matchmaking cycle")
		}
	}()

	waiting := s.queue.Len()
	if waiting < 2 {
		return nil
	}
	size := 2
	if waiting >= s.cfg.MultiThreshold {
		size = 4
	}

	drawn := s.queue.Drain(size)
	// a cancel between Len and Drain can leave an odd group
	if len(drawn) != size {
		if len(drawn) < 2 {
			s.queue.Requeue(drawn)
			return nil
		}
		s.queue.Requeue(drawn[2:])
		drawn = drawn[:2]
	}

	tier, err := s.tiers.Compatible(len(drawn), minAffordability(drawn))
	if err != nil && len(drawn) == 4 && errors.Is(err, gameerr.ErrNoCompatibleTier) {
		// nobody can host all four; try the front pair on its own
		s.queue.Requeue(drawn[2:])
		drawn = drawn[:2]
		tier, err = s.tiers.Compatible(2, minAffordability(drawn))
	}
	if err != nil {
		return s.reject(drawn, err, "no compatible stake tier")
	}

	players := make([]models.Player, len(drawn))
	addrs := make([]string, len(drawn))
	ids := make([]string, len(drawn))
	for i, e := range drawn {
		players[i] = e.Player()
		addrs[i] = e.Address
		ids[i] = e.PlayerID
	}

	lobby, err := s.lobbies.CreateMatched(ctx, tier, players)
	if err != nil {
		return s.reject(drawn, err, "failed to create matched lobby")
	}

	log.Info().
		Str("lobby_id", lobby.ID.String()).
		Str("tier_id", tier.ID).
		Strs("player_ids", ids).
		Msg("match found")

	events.Broadcast(ctx, s.notifier, addrs, events.TypeMatchFound, events.MatchFoundPayload{
		LobbyID:    lobby.ID.String(),
		TierID:     tier.ID,
		EntryStake: tier.EntryStake,
		PlayerIDs:  ids,
	}, s.clock.Now())
	return nil
}

// reject requeues drawn. Configuration defects are returned to stop the
// scheduler; anything else is logged and retried next cycle.
func (s *Scheduler) reject(drawn []models.WaitQueueEntry, err error, msg string) error {
	s.queue.Requeue(drawn)
	if errors.Is(err, gameerr.ErrConfiguration) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	log.Warn().Err(err).Int("players", len(drawn)).Msg(msg)
	return nil
}

func minAffordability(entries []models.WaitQueueEntry) int64 {
	lowest := entries[0].Affordability
	for _, e := range entries[1:] {
		if e.Affordability < lowest {
			lowest = e.Affordability
		}
	}
	return lowest
}
