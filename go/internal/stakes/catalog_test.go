package stakes

import (
	"testing"

	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/mcdev12/ladders/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog([]models.StakeTier{
		{ID: "duel-10", Capacity: 2, EntryStake: 10, BoardID: "classic"},
		{ID: "duel-50", Capacity: 2, EntryStake: 50, BoardID: "classic"},
		{ID: "party-25", Capacity: 4, EntryStake: 25, BoardID: "classic"},
	}, func(id string) bool { return id == "classic" })
	require.NoError(t, err)
	return c
}

func TestCompatible(t *testing.T) {
	c := testCatalog(t)

	tests := []struct {
		name     string
		size     int
		maxStake int64
		wantID   string
		wantErr  error
	}{
		{"highest affordable duel", 2, 100, "duel-50", nil},
		{"cheaper duel", 2, 49, "duel-10", nil},
		{"exact stake", 2, 10, "duel-10", nil},
		{"too poor", 2, 9, "", gameerr.ErrNoCompatibleTier},
		{"party", 4, 30, "party-25", nil},
		{"no tier for size", 3, 1000, "", gameerr.ErrNoCompatibleTier},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Compatible(tt.size, tt.maxStake)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, gameerr.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestMinStake(t *testing.T) {
	c := testCatalog(t)

	min, ok := c.MinStake(2)
	assert.True(t, ok)
	assert.Equal(t, int64(10), min)

	_, ok = c.MinStake(3)
	assert.False(t, ok)
}

func TestGet(t *testing.T) {
	c := testCatalog(t)

	tier, err := c.Get("party-25")
	require.NoError(t, err)
	assert.Equal(t, int64(100), tier.Prize(4))

	_, err = c.Get("nope")
	assert.ErrorIs(t, err, gameerr.ErrNotFound)
}

func TestLoadCatalog_Validation(t *testing.T) {
	hasBoard := func(id string) bool { return id == "classic" }

	_, err := LoadCatalog([]byte(`
tiers:
  - {id: a, capacity: 3, entry_stake: 5, board_id: classic}
`), hasBoard)
	assert.ErrorIs(t, err, gameerr.ErrConfiguration)

	_, err = LoadCatalog([]byte(`
tiers:
  - {id: a, capacity: 2, entry_stake: 5, board_id: other}
`), hasBoard)
	assert.ErrorIs(t, err, gameerr.ErrConfiguration)

	c, err := LoadCatalog([]byte(`
tiers:
  - {id: a, name: Bronze, capacity: 2, entry_stake: 5, board_id: classic}
`), hasBoard)
	require.NoError(t, err)
	assert.Len(t, c.List(), 1)
}
