package turn

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"sync"
)

// Dice produces die values in 1..6.
type Dice interface {
	Roll() int
}

// SeededDice is a uniform six-sided die safe for concurrent use.
type SeededDice struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeededDice seeds the die from crypto/rand.
func NewSeededDice() (*SeededDice, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return NewDiceWithSeed(int64(binary.LittleEndian.Uint64(b[:]))), nil
}

// NewDiceWithSeed returns a deterministic die.
func NewDiceWithSeed(seed int64) *SeededDice {
	return &SeededDice{rng: rand.New(rand.NewSource(seed))}
}

func (d *SeededDice) Roll() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Intn(6) + 1
}

// FixedDice replays a fixed sequence of values, cycling when exhausted.
type FixedDice struct {
	mu     sync.Mutex
	values []int
	next   int
}

func NewFixedDice(values ...int) *FixedDice {
	return &FixedDice{values: values}
}

func (d *FixedDice) Roll() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := d.values[d.next%len(d.values)]
	d.next++
	return v
}
