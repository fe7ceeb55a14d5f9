// Package economy holds an in-process wallet ledger used when no external
// economy service is configured.
package economy

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcdev12/ladders/go/internal/gameerr"
)

// Ledger keeps balances in memory. Debits and credits are idempotent per
// reference, so a retried award or stake charge is applied once.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]int64
	applied  map[string]struct{}
	starting int64
}

// NewLedger returns a ledger that grants startingBalance to players it has
// not seen before.
func NewLedger(startingBalance int64) *Ledger {
	return &Ledger{
		balances: make(map[string]int64),
		applied:  make(map[string]struct{}),
		starting: startingBalance,
	}
}

func (l *Ledger) balance(playerID string) int64 {
	b, ok := l.balances[playerID]
	if !ok {
		b = l.starting
		l.balances[playerID] = b
	}
	return b
}

func (l *Ledger) Balance(_ context.Context, playerID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balance(playerID), nil
}

// Deposit sets aside funds for a player outside of any game.
func (l *Ledger) Deposit(playerID string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[playerID] = l.balance(playerID) + amount
}

func (l *Ledger) Debit(_ context.Context, playerID string, amount int64, ref string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := entryKey("debit", playerID, ref)
	if _, done := l.applied[key]; done {
		return nil
	}
	b := l.balance(playerID)
	if b < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", gameerr.ErrInsufficientFunds, playerID, b, amount)
	}
	l.balances[playerID] = b - amount
	l.applied[key] = struct{}{}
	return nil
}

func (l *Ledger) Credit(_ context.Context, playerID string, amount int64, ref string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := entryKey("credit", playerID, ref)
	if _, done := l.applied[key]; done {
		return nil
	}
	l.balances[playerID] = l.balance(playerID) + amount
	l.applied[key] = struct{}{}
	return nil
}

func entryKey(kind, playerID, ref string) string {
	return kind + ":" + playerID + ":" + ref
}
