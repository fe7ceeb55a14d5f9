// Package events defines the realtime messages pushed to player addresses.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Type represents the type of a realtime event
type Type string

const (
	TypeWelcome      Type = "Welcome"
	TypeRollResult   Type = "RollResult"
	TypeLobbyDelta   Type = "LobbyDelta"
	TypeMatchFound   Type = "MatchFound"
	TypeSessionEnded Type = "SessionEnded"
)

// Envelope is the wire format of every realtime event.
type Envelope struct {
	ID        string          `json:"id"`
	Type      Type            `json:"type"`
	Address   string          `json:"address"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Notifier delivers an envelope to a single transport address. Delivery is
// best effort; callers log failures and carry on.
type Notifier interface {
	Notify(ctx context.Context, address string, env *Envelope) error
}

// New wraps payload in an envelope addressed to address.
func New(eventType Type, address string, payload any, at time.Time) (*Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &Envelope{
		ID:        uuid.NewString(),
		Type:      eventType,
		Address:   address,
		Timestamp: at,
		Data:      data,
	}, nil
}

// Broadcast sends the same payload to every address, each with its own
// envelope id.
func Broadcast(ctx context.Context, n Notifier, addresses []string, eventType Type, payload any, at time.Time) {
	if n == nil || len(addresses) == 0 {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to marshal event payload")
		return
	}

	for _, addr := range addresses {
		if addr == "" {
			continue
		}
		env := &Envelope{
			ID:        uuid.NewString(),
			Type:      eventType,
			Address:   addr,
			Timestamp: at,
			Data:      data,
		}
		if err := n.Notify(ctx, addr, env); err != nil {
			log.Warn().
				Err(err).
				Str("event_type", string(eventType)).
				Str("address", addr).
				Msg("failed to deliver event")
		}
	}
}

// ParsePayload decodes the envelope data into the payload struct for its type.
func ParsePayload(env *Envelope) (any, error) {
	var payload any
	switch env.Type {
	case TypeWelcome:
		payload = &WelcomePayload{}
	case TypeRollResult:
		payload = &RollResultPayload{}
	case TypeLobbyDelta:
		payload = &LobbyDeltaPayload{}
	case TypeMatchFound:
		payload = &MatchFoundPayload{}
	case TypeSessionEnded:
		payload = &SessionEndedPayload{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", env.Type)
	}
	if err := json.Unmarshal(env.Data, payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", env.Type, err)
	}
	return payload, nil
}
