package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mcdev12/ladders/go/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventConsumer_ProcessMessage(t *testing.T) {
	recorder := &events.Recorder{}
	ec := &EventConsumer{notifier: recorder, config: DefaultJetStreamConsumerConfig()}
	ctx := context.Background()

	env, err := events.New(events.TypeRollResult, "addr-1", events.RollResultPayload{SessionID: "s-1", Die: 4}, time.Now())
	require.NoError(t, err)
	data, err := json.Marshal(env)
	require.NoError(t, err)

	require.NoError(t, ec.processMessage(ctx, data))
	sent := recorder.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, env.ID, sent[0].ID)
	assert.Equal(t, "addr-1", sent[0].Address)

	assert.ErrorIs(t, ec.processMessage(ctx, []byte("{not json")), errMalformedEvent)

	env.Address = ""
	data, err = json.Marshal(env)
	require.NoError(t, err)
	assert.ErrorIs(t, ec.processMessage(ctx, data), errMalformedEvent)
	assert.Len(t, recorder.Sent(), 1)
}

func TestEventConsumer_FullBufferIsRetryable(t *testing.T) {
	cfg := DefaultConnectionConfig()
	cfg.BroadcastBuffer = 1
	cm := NewConnectionManager(cfg)
	ec := &EventConsumer{notifier: cm, config: DefaultJetStreamConsumerConfig()}

	env, err := events.New(events.TypeWelcome, "addr-1", events.WelcomePayload{Address: "addr-1"}, time.Now())
	require.NoError(t, err)
	data, err := json.Marshal(env)
	require.NoError(t, err)

	require.NoError(t, ec.processMessage(context.Background(), data))
	err = ec.processMessage(context.Background(), data)
	assert.ErrorIs(t, err, ErrBroadcastFull)
	assert.NotErrorIs(t, err, errMalformedEvent)
}

func TestNewEventConsumer_RequiresName(t *testing.T) {
	_, err := NewEventConsumer(context.Background(), &events.Recorder{}, nil, DefaultJetStreamConsumerConfig())
	assert.Error(t, err)
}
