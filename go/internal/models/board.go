package models

// BoardLayout is a static snakes-and-ladders board. Jumps is the union of
// snakes and ladders keyed by the cell a piece lands on.
type BoardLayout struct {
	ID         string      `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	Rows       int         `json:"rows" yaml:"rows"`
	Cols       int         `json:"cols" yaml:"cols"`
	TotalCells int         `json:"total_cells" yaml:"-"`
	Jumps      map[int]int `json:"jumps" yaml:"jumps"`
}

// StakeTier is a fixed entry-fee and capacity configuration a lobby is created under.
type StakeTier struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Capacity   int    `json:"capacity" yaml:"capacity"`
	EntryStake int64  `json:"entry_stake" yaml:"entry_stake"`
	BoardID    string `json:"board_id" yaml:"board_id"`
}

// Prize returns the pool awarded to the winner of a session with n participants.
func (t StakeTier) Prize(n int) int64 {
	return t.EntryStake * int64(n)
}
