package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/ladders/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Schema is the DDL for the durable tier.
const Schema = `
CREATE TABLE IF NOT EXISTS game_sessions (
    id          UUID PRIMARY KEY,
    lobby_id    UUID NOT NULL,
    status      TEXT NOT NULL,
    state       JSONB NOT NULL,
    version     BIGINT NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL,
    expires_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS game_sessions_expires_at_idx ON game_sessions (expires_at);
`

const getSessionQuery = `
SELECT state FROM game_sessions
WHERE id = $1 AND (expires_at IS NULL OR expires_at > $2)
`

// the WHERE clause makes the upsert a compare-and-set on version
const upsertSessionQuery = `
INSERT INTO game_sessions (id, lobby_id, status, state, version, updated_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
    status = EXCLUDED.status,
    state = EXCLUDED.state,
    version = EXCLUDED.version,
    updated_at = EXCLUDED.updated_at,
    expires_at = EXCLUDED.expires_at
WHERE game_sessions.version < EXCLUDED.version
`

const deleteExpiredQuery = `DELETE FROM game_sessions WHERE expires_at IS NOT NULL AND expires_at <= $1`

// PostgresTier is the durable tier.
type PostgresTier struct {
	pool  *pgxpool.Pool
	clock clockwork.Clock
}

func NewPostgresTier(pool *pgxpool.Pool, clock clockwork.Clock) *PostgresTier {
	return &PostgresTier{pool: pool, clock: clock}
}

func (p *PostgresTier) Name() string { return "postgres" }

func (p *PostgresTier) Get(ctx context.Context, id uuid.UUID) (*models.Session, Outcome, error) {
	var state []byte
	err := p.pool.QueryRow(ctx, getSessionQuery, id, p.clock.Now()).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, Miss, nil
	}
	if err != nil {
		return nil, Unavailable, fmt.Errorf("failed to read session from postgres: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(state, &session); err != nil {
		return nil, Unavailable, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return &session, Hit, nil
}

func (p *PostgresTier) Set(ctx context.Context, session *models.Session, ttl time.Duration) error {
	_, err := p.SetIfNewer(ctx, session, ttl)
	return err
}

func (p *PostgresTier) SetIfNewer(ctx context.Context, session *models.Session, ttl time.Duration) (bool, error) {
	state, err := json.Marshal(session)
	if err != nil {
		return false, fmt.Errorf("failed to marshal session: %w", err)
	}

	var expiresAt *time.Time
	if ttl > 0 {
		t := p.clock.Now().Add(ttl)
		expiresAt = &t
	}

	tag, err := p.pool.Exec(ctx, upsertSessionQuery,
		session.ID, session.LobbyID, string(session.Status), state, session.Version, session.UpdatedAt, expiresAt)
	if err != nil {
		return false, fmt.Errorf("failed to upsert session: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteExpired removes rows whose expiry has passed.
func (p *PostgresTier) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := p.pool.Exec(ctx, deleteExpiredQuery, p.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Run purges expired rows every interval until ctx is cancelled.
func (p *PostgresTier) Run(ctx context.Context, interval time.Duration) error {
	ticker := p.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			n, err := p.DeleteExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("failed to purge expired sessions")
				continue
			}
			if n > 0 {
				log.Debug().Int64("removed", n).Msg("purged expired sessions")
			}
		}
	}
}
