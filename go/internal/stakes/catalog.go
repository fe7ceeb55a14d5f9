// Package stakes holds the static stake tier catalog lobbies are created under.
package stakes

import (
	"fmt"
	"sort"

	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/mcdev12/ladders/go/internal/models"
	"gopkg.in/yaml.v3"
)

// Catalog is a read-only set of stake tiers.
type Catalog struct {
	tiers []models.StakeTier
	byID  map[string]models.StakeTier
}

type catalogFile struct {
	Tiers []models.StakeTier `yaml:"tiers"`
}

// BoardLookup reports whether a board layout exists.
type BoardLookup func(id string) bool

// NewCatalog validates tiers. Every tier must seat 2 or 4 players, carry a
// positive stake and reference a known board.
func NewCatalog(tiers []models.StakeTier, hasBoard BoardLookup) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]models.StakeTier, len(tiers))}
	for _, t := range tiers {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: stake tier without id", gameerr.ErrConfiguration)
		}
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate stake tier %q", gameerr.ErrConfiguration, t.ID)
		}
		if t.Capacity != 2 && t.Capacity != 4 {
			return nil, fmt.Errorf("%w: stake tier %q has capacity %d", gameerr.ErrConfiguration, t.ID, t.Capacity)
		}
		if t.EntryStake <= 0 {
			return nil, fmt.Errorf("%w: stake tier %q has non-positive stake", gameerr.ErrConfiguration, t.ID)
		}
		if hasBoard != nil && !hasBoard(t.BoardID) {
			return nil, fmt.Errorf("%w: stake tier %q references unknown board %q", gameerr.ErrConfiguration, t.ID, t.BoardID)
		}
		c.byID[t.ID] = t
		c.tiers = append(c.tiers, t)
	}

	// highest stake first so Compatible can return the first fit
	sort.SliceStable(c.tiers, func(i, j int) bool {
		return c.tiers[i].EntryStake > c.tiers[j].EntryStake
	})
	return c, nil
}

// LoadCatalog parses the tiers section of a catalog file.
func LoadCatalog(data []byte, hasBoard BoardLookup) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: failed to parse stake tiers: %v", gameerr.ErrConfiguration, err)
	}
	if len(f.Tiers) == 0 {
		return nil, fmt.Errorf("%w: catalog defines no stake tiers", gameerr.ErrConfiguration)
	}
	return NewCatalog(f.Tiers, hasBoard)
}

// Get returns the tier with the given id.
func (c *Catalog) Get(id string) (models.StakeTier, error) {
	t, ok := c.byID[id]
	if !ok {
		return models.StakeTier{}, fmt.Errorf("%w: stake tier %q", gameerr.ErrNotFound, id)
	}
	return t, nil
}

// List returns every tier, highest stake first.
func (c *Catalog) List() []models.StakeTier {
	out := make([]models.StakeTier, len(c.tiers))
	copy(out, c.tiers)
	return out
}

// Compatible returns the highest-stake tier seating exactly groupSize players
// whose stake does not exceed maxStake.
func (c *Catalog) Compatible(groupSize int, maxStake int64) (models.StakeTier, error) {
	for _, t := range c.tiers {
		if t.Capacity == groupSize && t.EntryStake <= maxStake {
			return t, nil
		}
	}
	return models.StakeTier{}, fmt.Errorf("%w: %d players with at most %d", gameerr.ErrNoCompatibleTier, groupSize, maxStake)
}

// MinStake returns the cheapest stake for groupSize, or false if no tier seats
// that many players.
func (c *Catalog) MinStake(groupSize int) (int64, bool) {
	var (
		lowest int64
		found  bool
	)
	for _, t := range c.tiers {
		if t.Capacity != groupSize {
			continue
		}
		if !found || t.EntryStake < lowest {
			lowest = t.EntryStake
			found = true
		}
	}
	return lowest, found
}
