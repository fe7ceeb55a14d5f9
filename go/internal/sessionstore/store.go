package sessionstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/mcdev12/ladders/go/internal/keylock"
	"github.com/mcdev12/ladders/go/internal/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Config controls expiry and background propagation.
type Config struct {
	SessionTTL  time.Duration `env:"SESSION_TTL" envDefault:"2h"`
	FinishedTTL time.Duration `env:"SESSION_FINISHED_TTL" envDefault:"10m"`
	Workers     int           `env:"SESSION_WRITE_WORKERS" envDefault:"4"`
	QueueSize   int           `env:"SESSION_WRITE_QUEUE" envDefault:"1024"`
}

// Store is the session cache. Reads walk the tiers in order; writes land in
// the first tier synchronously and reach the rest in the background.
//
// When a tier is shared between instances, updates read from it and commit to
// it with a version check before touching the local tiers, so two instances
// cannot both apply a change on top of the same version.
type Store struct {
	tiers  []Tier
	shared int
	cfg    Config
	clock  clockwork.Clock
	locks  *keylock.Map
	loads  singleflight.Group
	writer *writeBehind
}

// NewStore builds a store over tiers, fastest first. At least one tier is
// required.
func NewStore(cfg Config, clock clockwork.Clock, tiers ...Tier) (*Store, error) {
	if len(tiers) == 0 {
		return nil, fmt.Errorf("%w: session store needs at least one tier", gameerr.ErrConfiguration)
	}
	shared := -1
	for i, tier := range tiers {
		if _, ok := tier.(Shared); ok {
			shared = i
			break
		}
	}
	return &Store{
		tiers:  tiers,
		shared: shared,
		cfg:    cfg,
		clock:  clock,
		locks:  keylock.New(),
		writer: newWriteBehind(cfg.Workers, cfg.QueueSize),
	}, nil
}

// Close drains pending background writes.
func (s *Store) Close() {
	s.writer.close()
}

// Get returns the session with id. Concurrent misses for the same id share a
// single walk of the tiers.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	v, err, _ := s.loads.Do(id.String(), func() (any, error) {
		return s.load(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Session).Clone(), nil
}

func (s *Store) load(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	last := Miss
	for i, tier := range s.tiers {
		session, outcome, err := tier.Get(ctx, id)
		switch outcome {
		case Hit:
			if i > 0 {
				s.backfill(ctx, session, i)
			}
			return session, nil
		case Unavailable:
			log.Warn().
				Err(err).
				Str("tier", tier.Name()).
				Str("session_id", id.String()).
				Msg("session tier unavailable")
		}
		last = outcome
	}

	if last == Unavailable {
		return nil, fmt.Errorf("%w: session %s", gameerr.ErrStoreUnavailable, id)
	}
	return nil, fmt.Errorf("%w: %s", gameerr.ErrSessionNotFound, id)
}

// backfill repopulates the tiers above hit.
func (s *Store) backfill(ctx context.Context, session *models.Session, hit int) {
	ttl := s.ttlFor(session)
	if err := s.tiers[0].Set(ctx, session, ttl); err != nil {
		log.Warn().Err(err).Str("tier", s.tiers[0].Name()).Str("session_id", session.ID.String()).Msg("failed to backfill session")
	}
	if hit > 1 {
		s.writer.enqueue(writeJob{session: session.Clone(), tiers: s.tiers[1:hit], ttl: ttl})
	}
}

// Put writes session to every tier.
func (s *Store) Put(ctx context.Context, session *models.Session) error {
	ttl := s.ttlFor(session)
	if err := s.tiers[0].Set(ctx, session, ttl); err != nil {
		return fmt.Errorf("failed to write session to %s: %w", s.tiers[0].Name(), err)
	}
	s.writer.enqueue(writeJob{session: session.Clone(), tiers: s.tiers[1:], ttl: ttl})
	return nil
}

// Update applies fn to the current session atomically with respect to other
// updates of the same id and persists the result with a bumped version. If fn
// returns an error nothing is written. An update that loses a race with
// another instance fails with ErrVersionConflict.
func (s *Store) Update(ctx context.Context, id uuid.UUID, fn func(*models.Session) error) (*models.Session, error) {
	unlock := s.locks.Lock(id.String())
	defer unlock()

	// bypass the shared loader so a read that started before the last
	// update cannot be reused here
	session, err := s.current(ctx, id)
	if err != nil {
		return nil, err
	}
	session = session.Clone()

	if err := fn(session); err != nil {
		return nil, err
	}
	session.Version++
	session.UpdatedAt = s.clock.Now()

	if err := s.commit(ctx, session); err != nil {
		return nil, err
	}
	return session.Clone(), nil
}

// current reads the session an update builds on. The shared tier is asked
// first since the local tier may lag behind writes from other instances.
func (s *Store) current(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	if s.shared > 0 {
		tier := s.tiers[s.shared]
		session, outcome, err := tier.Get(ctx, id)
		switch outcome {
		case Hit:
			if err := s.tiers[0].Set(ctx, session, s.ttlFor(session)); err != nil {
				log.Warn().Err(err).Str("tier", s.tiers[0].Name()).Str("session_id", id.String()).Msg("failed to refresh session")
			}
			return session, nil
		case Unavailable:
			log.Warn().
				Err(err).
				Str("tier", tier.Name()).
				Str("session_id", id.String()).
				Msg("shared tier unavailable, updating from local state")
		}
	}
	return s.load(ctx, id)
}

// commit persists an updated session. Without a shared tier it is a Put. With
// one, the shared write goes first and a rejected version aborts the update.
// A shared tier that cannot be reached is retried in the background like any
// other slow tier.
func (s *Store) commit(ctx context.Context, session *models.Session) error {
	if s.shared < 0 {
		return s.Put(ctx, session)
	}

	ttl := s.ttlFor(session)
	tier := s.tiers[s.shared]
	written, err := tier.(Shared).SetIfNewer(ctx, session, ttl)
	switch {
	case err != nil && s.shared == 0:
		return fmt.Errorf("failed to write session to %s: %w", tier.Name(), err)
	case err != nil:
		log.Warn().
			Err(err).
			Str("tier", tier.Name()).
			Str("session_id", session.ID.String()).
			Int64("version", session.Version).
			Msg("shared session write failed")
	case !written:
		log.Info().
			Str("tier", tier.Name()).
			Str("session_id", session.ID.String()).
			Int64("version", session.Version).
			Msg("session update lost to a newer version")
		return fmt.Errorf("%w: session %s version %d", gameerr.ErrVersionConflict, session.ID, session.Version)
	}

	if s.shared != 0 {
		if err := s.tiers[0].Set(ctx, session, ttl); err != nil {
			return fmt.Errorf("failed to write session to %s: %w", s.tiers[0].Name(), err)
		}
	}

	rest := make([]Tier, 0, len(s.tiers)-1)
	for i, t := range s.tiers[1:] {
		if i+1 == s.shared && err == nil {
			continue
		}
		rest = append(rest, t)
	}
	s.writer.enqueue(writeJob{session: session.Clone(), tiers: rest, ttl: ttl})
	return nil
}

// ApplyRoll moves the rolling participant and hands the turn to nextTurn. A
// winning roll also finishes the session and claims the prize in the same
// write. It rejects a session that already finished or whose turn has moved
// on, which makes a retried roll a no-op instead of a double move. A roll
// worked out from a position the participant no longer holds fails with
// ErrVersionConflict.
func (s *Store) ApplyRoll(ctx context.Context, id uuid.UUID, roll models.Roll, nextTurn string) (*models.Session, error) {
	return s.Update(ctx, id, func(session *models.Session) error {
		if session.Status != models.SessionStatusInProgress {
			return gameerr.ErrSessionFinished
		}
		if session.CurrentTurn != roll.PlayerID {
			return gameerr.ErrNotYourTurn
		}
		p, _ := session.Participant(roll.PlayerID)
		if p == nil {
			return fmt.Errorf("%w: %s", gameerr.ErrPlayerNotFound, roll.PlayerID)
		}
		if p.Position != roll.From {
			return fmt.Errorf("%w: roll from %d, %s is on %d", gameerr.ErrVersionConflict, roll.From, roll.PlayerID, p.Position)
		}

		p.Position = roll.To
		session.CurrentTurn = nextTurn
		r := roll
		session.LastRoll = &r
		if roll.Won {
			session.Finish(&r.PlayerID, roll.At)
		}
		return nil
	})
}

func (s *Store) ttlFor(session *models.Session) time.Duration {
	if session.Status == models.SessionStatusFinished {
		return s.cfg.FinishedTTL
	}
	return s.cfg.SessionTTL
}
