// Package sessionstore resolves game sessions through an ordered list of
// cache tiers, fastest first, with the last tier acting as the durable store.
package sessionstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/ladders/go/internal/models"
)

// Outcome is the result of a single tier lookup.
type Outcome int

const (
	Miss Outcome = iota
	Hit
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Unavailable:
		return "unavailable"
	default:
		return "miss"
	}
}

// Tier is one level of the session cache.
//
// Get never returns an error alongside Hit or Miss; an error always means
// Unavailable. Implementations must not hand out sessions they keep a
// reference to.
type Tier interface {
	Name() string
	Get(ctx context.Context, id uuid.UUID) (*models.Session, Outcome, error)
	Set(ctx context.Context, session *models.Session, ttl time.Duration) error
}

// Shared is implemented by tiers every instance reads and writes. SetIfNewer
// stores session only when the stored version is older, and reports whether
// it did. The store uses it to order updates coming from different instances.
type Shared interface {
	Tier
	SetIfNewer(ctx context.Context, session *models.Session, ttl time.Duration) (bool, error)
}
