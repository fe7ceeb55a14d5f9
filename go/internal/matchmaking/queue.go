package matchmaking

import (
	"sync"

	"github.com/mcdev12/ladders/go/internal/gameerr"
	"github.com/mcdev12/ladders/go/internal/models"
)

// Queue is the FIFO of players waiting for a quick match. A player is in the
// queue at most once.
type Queue struct {
	mu      sync.Mutex
	entries []models.WaitQueueEntry
	queued  map[string]struct{}
}

func NewQueue() *Queue {
	return &Queue{queued: make(map[string]struct{})}
}

// Enqueue appends entry to the back of the queue.
func (q *Queue) Enqueue(entry models.WaitQueueEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.queued[entry.PlayerID]; ok {
		return gameerr.ErrAlreadyQueued
	}
	q.entries = append(q.entries, entry)
	q.queued[entry.PlayerID] = struct{}{}
	return nil
}

// Cancel removes playerID if it has not been drawn yet.
func (q *Queue) Cancel(playerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.queued[playerID]; !ok {
		return false
	}
	for i, e := range q.entries {
		if e.PlayerID == playerID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	delete(q.queued, playerID)
	return true
}

// Contains reports whether playerID is waiting.
func (q *Queue) Contains(playerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.queued[playerID]
	return ok
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Drain removes and returns up to n entries from the front.
func (q *Queue) Drain(n int) []models.WaitQueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n > len(q.entries) {
		n = len(q.entries)
	}
	drawn := make([]models.WaitQueueEntry, n)
	copy(drawn, q.entries[:n])
	q.entries = q.entries[n:]
	for _, e := range drawn {
		delete(q.queued, e.PlayerID)
	}
	return drawn
}

// Requeue puts entries back at the front in their original order. Players
// who queued again in the meantime keep their newer entry.
func (q *Queue) Requeue(entries []models.WaitQueueEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	front := make([]models.WaitQueueEntry, 0, len(entries)+len(q.entries))
	for _, e := range entries {
		if _, ok := q.queued[e.PlayerID]; ok {
			continue
		}
		front = append(front, e)
		q.queued[e.PlayerID] = struct{}{}
	}
	q.entries = append(front, q.entries...)
}
