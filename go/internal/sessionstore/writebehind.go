package sessionstore

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/mcdev12/ladders/go/internal/models"
	"github.com/rs/zerolog/log"
)

const writeTimeout = 5 * time.Second

type writeJob struct {
	session *models.Session
	tiers   []Tier
	ttl     time.Duration
}

// writeBehind propagates sessions to the slower tiers off the request path.
// Jobs are sharded by session id so a single session's writes are applied in
// the order they were issued.
type writeBehind struct {
	shards []chan writeJob
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func newWriteBehind(workers, queueSize int) *writeBehind {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}

	w := &writeBehind{shards: make([]chan writeJob, workers)}
	for i := range w.shards {
		ch := make(chan writeJob, queueSize)
		w.shards[i] = ch
		w.wg.Add(1)
		go w.worker(i, ch)
	}
	return w
}

// enqueue hands the job to its shard without blocking. Full queues drop the
// job; the slower tiers catch up on the session's next write.
func (w *writeBehind) enqueue(job writeJob) bool {
	if len(job.tiers) == 0 {
		return true
	}

	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return false
	}

	shard := binary.BigEndian.Uint32(job.session.ID[12:]) % uint32(len(w.shards))
	select {
	case w.shards[shard] <- job:
		return true
	default:
		log.Warn().
			Str("session_id", job.session.ID.String()).
			Int64("version", job.session.Version).
			Msg("write-behind queue full, dropping write")
		return false
	}
}

func (w *writeBehind) worker(id int, jobs <-chan writeJob) {
	defer w.wg.Done()

	for job := range jobs {
		for _, tier := range job.tiers {
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := tier.Set(ctx, job.session, job.ttl)
			cancel()
			if err != nil {
				log.Warn().
					Err(err).
					Str("tier", tier.Name()).
					Str("session_id", job.session.ID.String()).
					Int64("version", job.session.Version).
					Int("worker_id", id).
					Msg("background session write failed")
			}
		}
	}
}

// close stops accepting jobs and waits for queued ones to finish.
func (w *writeBehind) close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	for _, ch := range w.shards {
		close(ch)
	}
	w.mu.Unlock()

	w.wg.Wait()
}
