package board

import (
	"testing"

	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/mcdev12/ladders/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry([]models.BoardLayout{
		{ID: "classic", Rows: 10, Cols: 10, Jumps: map[int]int{16: 67, 47: 26, 67: 90, 98: 5}},
	})
	require.NoError(t, err)
	return r
}

func TestResolve(t *testing.T) {
	r := testRegistry(t)

	tests := []struct {
		name     string
		position int
		die      int
		want     int
	}{
		{"plain move", 0, 3, 3},
		{"ladder without chaining", 10, 6, 67},
		{"snake", 44, 3, 26},
		{"landing on a ladder start", 61, 6, 90},
		{"exact finish", 94, 6, 100},
		{"overshoot forfeits", 97, 4, 97},
		{"snake near the end", 95, 3, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve("classic", tt.position, tt.die)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_StaysOnBoard(t *testing.T) {
	r := testRegistry(t)
	l, err := r.Layout("classic")
	require.NoError(t, err)

	for pos := 0; pos <= l.TotalCells; pos++ {
		for die := 1; die <= 6; die++ {
			got := l.Resolve(pos, die)
			assert.GreaterOrEqual(t, got, 0)
			assert.LessOrEqual(t, got, l.TotalCells)

			candidate := pos + die
			switch {
			case candidate > l.TotalCells:
				assert.Equal(t, pos, got)
			case l.Jumps[candidate] != 0:
				// exactly one jump: the destination itself is never followed
				assert.Equal(t, l.Jumps[candidate], got)
			default:
				assert.Equal(t, candidate, got)
			}
		}
	}
}

func TestResolve_UnknownLayout(t *testing.T) {
	r := testRegistry(t)
	_, err := r.Resolve("missing", 0, 1)
	assert.ErrorIs(t, err, gameerr.ErrConfiguration)
}

func TestNewRegistry_Validation(t *testing.T) {
	tests := []struct {
		name string
		defs []models.BoardLayout
	}{
		{"missing id", []models.BoardLayout{{Rows: 2, Cols: 2}}},
		{"empty grid", []models.BoardLayout{{ID: "a"}}},
		{"jump off board", []models.BoardLayout{{ID: "a", Rows: 2, Cols: 5, Jumps: map[int]int{3: 10}}}},
		{"jump from last cell", []models.BoardLayout{{ID: "a", Rows: 2, Cols: 5, Jumps: map[int]int{10: 2}}}},
		{"self jump", []models.BoardLayout{{ID: "a", Rows: 2, Cols: 5, Jumps: map[int]int{4: 4}}}},
		{"duplicate", []models.BoardLayout{{ID: "a", Rows: 1, Cols: 5}, {ID: "a", Rows: 1, Cols: 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.defs)
			assert.ErrorIs(t, err, gameerr.ErrConfiguration)
		})
	}
}

func TestLoadLayouts(t *testing.T) {
	data := []byte(`
boards:
  - id: mini
    name: Mini
    rows: 3
    cols: 4
    jumps:
      3: 9
      11: 2
`)
	r, err := LoadLayouts(data)
	require.NoError(t, err)

	l, err := r.Layout("mini")
	require.NoError(t, err)
	assert.Equal(t, 12, l.TotalCells)
	assert.Equal(t, 9, l.Resolve(0, 3))
	assert.Equal(t, 2, l.Resolve(8, 3))

	_, err = LoadLayouts([]byte("boards: []"))
	assert.ErrorIs(t, err, gameerr.ErrConfiguration)
}

func BenchmarkLayoutResolve(b *testing.B) {
	r, _ := NewRegistry([]models.BoardLayout{{ID: "classic", Rows: 10, Cols: 10, Jumps: map[int]int{16: 67}}})
	l, _ := r.Layout("classic")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = l.Resolve(i%100, i%6+1)
	}
}
