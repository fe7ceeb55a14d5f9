package broker

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/mcdev12/ladders/go/internal/events"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
		wantErr bool
	}{
		{name: "uuid address", address: "4f1c2a9e-0d7b-4c55-9b0e-3a2f6c1d8e77", want: "ladders.events.4f1c2a9e-0d7b-4c55-9b0e-3a2f6c1d8e77"},
		{name: "empty", address: "", wantErr: true},
		{name: "token separator", address: "a.b", wantErr: true},
		{name: "wildcard", address: ">", wantErr: true},
		{name: "whitespace", address: "a b", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Subject("ladders.events", tt.address)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := env.ParseAs[Config]()
	require.NoError(t, err)
	assert.Equal(t, "LADDERS_EVENTS", cfg.StreamName)
	assert.Equal(t, "ladders.events", cfg.SubjectPrefix)
	assert.Equal(t, os.Getenv("NATS_URL") != "", cfg.Enabled())
}

// TestPublisher_RoundTrip needs a JetStream server, e.g. nats-server -js.
func TestPublisher_RoundTrip(t *testing.T) {
	url := os.Getenv("LADDERS_TEST_NATS_URL")
	if url == "" {
		t.Skip("LADDERS_TEST_NATS_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := Config{
		URL:             url,
		StreamName:      "LADDERS_TEST_" + uuid.NewString()[:8],
		SubjectPrefix:   "ladders.test." + uuid.NewString()[:8],
		ReconnectWait:   time.Second,
		MaxAge:          time.Minute,
		Replicas:        1,
		DuplicateWindow: time.Minute,
	}
	nc, js, err := Connect(cfg)
	require.NoError(t, err)
	defer nc.Close()
	defer js.DeleteStream(context.Background(), cfg.StreamName)

	pub, err := NewJetStreamPublisher(ctx, js, cfg)
	require.NoError(t, err)

	address := uuid.NewString()
	env, err := events.New(events.TypeWelcome, "", events.WelcomePayload{Address: address}, time.Now())
	require.NoError(t, err)
	require.NoError(t, pub.Notify(ctx, address, env))
	// same message id is deduplicated
	require.NoError(t, pub.Notify(ctx, address, env))

	stream, err := js.Stream(ctx, cfg.StreamName)
	require.NoError(t, err)
	info, err := stream.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.State.Msgs)

	msg, err := stream.GetLastMsgForSubject(ctx, cfg.SubjectPrefix+"."+address)
	require.NoError(t, err)
	assert.Equal(t, []string{env.ID}, msg.Header.Values("Event-ID"))

	_, err = stream.Consumer(ctx, "missing")
	assert.ErrorIs(t, err, jetstream.ErrConsumerNotFound)
}
