package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/ladders/go/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const redisKeyPrefix = "ladders:session:"

// setIfNewer writes the state and version fields only when the stored
// version is older, then refreshes the expiry. It returns 1 on write.
var setIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'version')
if cur and tonumber(cur) >= tonumber(ARGV[2]) then
  return 0
end
redis.call('HSET', KEYS[1], 'state', ARGV[1], 'version', ARGV[2])
if tonumber(ARGV[3]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// RedisTier is the shared tier visible to every instance.
type RedisTier struct {
	client redis.UniversalClient
}

func NewRedisTier(client redis.UniversalClient) *RedisTier {
	return &RedisTier{client: client}
}

func (r *RedisTier) Name() string { return "redis" }

func redisKey(id uuid.UUID) string {
	return redisKeyPrefix + id.String()
}

func (r *RedisTier) Get(ctx context.Context, id uuid.UUID) (*models.Session, Outcome, error) {
	data, err := r.client.HGet(ctx, redisKey(id), "state").Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, Miss, nil
	}
	if err != nil {
		return nil, Unavailable, fmt.Errorf("failed to read session from redis: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		// a corrupt entry is treated as absent so a lower tier can repair it
		log.Warn().Err(err).Str("session_id", id.String()).Msg("discarding undecodable redis session")
		return nil, Miss, nil
	}
	return &session, Hit, nil
}

// Set writes session unless Redis already holds this version or a newer one.
func (r *RedisTier) Set(ctx context.Context, session *models.Session, ttl time.Duration) error {
	_, err := r.SetIfNewer(ctx, session, ttl)
	return err
}

func (r *RedisTier) SetIfNewer(ctx context.Context, session *models.Session, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(session)
	if err != nil {
		return false, fmt.Errorf("failed to marshal session: %w", err)
	}
	written, err := setIfNewer.Run(ctx, r.client, []string{redisKey(session.ID)}, data, session.Version, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to write session to redis: %w", err)
	}
	return written == 1, nil
}
