// Package board resolves die rolls against static snakes-and-ladders layouts.
package board

import (
	"fmt"

	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/mcdev12/ladders/go/internal/models"
)

// Layout is a memoized board. jumpTo is indexed by cell and holds the jump
// destination, or 0 when the cell has no snake or ladder.
type Layout struct {
	models.BoardLayout
	jumpTo []int
}

func newLayout(def models.BoardLayout) (*Layout, error) {
	if def.ID == "" {
		return nil, fmt.Errorf("%w: board layout without id", gameerr.ErrConfiguration)
	}
	if def.Rows <= 0 || def.Cols <= 0 {
		return nil, fmt.Errorf("%w: board %q has invalid grid %dx%d", gameerr.ErrConfiguration, def.ID, def.Rows, def.Cols)
	}
	def.TotalCells = def.Rows * def.Cols

	jumpTo := make([]int, def.TotalCells+1)
	jumps := make(map[int]int, len(def.Jumps))
	for from, to := range def.Jumps {
		if from < 1 || from >= def.TotalCells || to < 1 || to >= def.TotalCells || from == to {
			return nil, fmt.Errorf("%w: board %q has invalid jump %d->%d", gameerr.ErrConfiguration, def.ID, from, to)
		}
		jumpTo[from] = to
		jumps[from] = to
	}
	def.Jumps = jumps

	return &Layout{BoardLayout: def, jumpTo: jumpTo}, nil
}

// Resolve moves a piece from position by die. An overshoot of the last cell
// forfeits the move. At most one jump is applied per arrival.
func (l *Layout) Resolve(position, die int) int {
	candidate := position + die
	if candidate > l.TotalCells {
		return position
	}
	if to := l.jumpTo[candidate]; to != 0 {
		return to
	}
	return candidate
}

// Registry holds every configured layout. It is read-only after construction.
type Registry struct {
	layouts map[string]*Layout
}

// NewRegistry validates and memoizes the given layouts.
func NewRegistry(defs []models.BoardLayout) (*Registry, error) {
	r := &Registry{layouts: make(map[string]*Layout, len(defs))}
	for _, def := range defs {
		if _, dup := r.layouts[def.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate board %q", gameerr.ErrConfiguration, def.ID)
		}
		l, err := newLayout(def)
		if err != nil {
			return nil, err
		}
		r.layouts[def.ID] = l
	}
	return r, nil
}

// Layout returns the memoized layout for id. A missing layout is a
// configuration defect, not a retryable condition.
func (r *Registry) Layout(id string) (*Layout, error) {
	l, ok := r.layouts[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown board layout %q", gameerr.ErrConfiguration, id)
	}
	return l, nil
}

// Resolve looks up layoutID and applies the roll.
func (r *Registry) Resolve(layoutID string, position, die int) (int, error) {
	l, err := r.Layout(layoutID)
	if err != nil {
		return 0, err
	}
	return l.Resolve(position, die), nil
}

// IDs returns the configured layout ids.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.layouts))
	for id := range r.layouts {
		ids = append(ids, id)
	}
	return ids
}
