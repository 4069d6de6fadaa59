// Package offline buffers side-effecting requests that failed because the
// network was unavailable and replays them once connectivity returns.
package offline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// DefaultCapacity bounds the queue; inserting beyond it evicts the oldest
	// entry.
	DefaultCapacity = 50
	// DefaultMaxRetries is the per-item drain attempt budget.
	DefaultMaxRetries = 3
	// DefaultRedrainDelay spaces out drain passes while items keep failing,
	// capping the rate of retry storms.
	DefaultRedrainDelay = 1 * time.Second
)

// Operation replays one queued request. It must be safe to invoke multiple
// times.
type Operation func(ctx context.Context) error

type item struct {
	id         string
	op         Operation
	enqueuedAt time.Time
	retryCount int
	maxRetries int
}

// Queue is a bounded FIFO of replayable operations. Drain processes a
// snapshot of the queue in enqueue order; items enqueued mid-drain wait for
// the next pass. A single boolean guard ensures only one drain pass runs at a
// time.
type Queue struct {
	mu           sync.Mutex
	items        []*item
	draining     bool
	capacity     int
	redrainDelay time.Duration
	logger       zerolog.Logger
}

func NewQueue(logger zerolog.Logger) *Queue {
	return &Queue{
		capacity:     DefaultCapacity,
		redrainDelay: DefaultRedrainDelay,
		logger:       logger,
	}
}

// NewQueueWithConfig overrides capacity and re-drain delay; zero values fall
// back to the defaults.
func NewQueueWithConfig(capacity int, redrainDelay time.Duration, logger zerolog.Logger) *Queue {
	q := NewQueue(logger)
	if capacity > 0 {
		q.capacity = capacity
	}
	if redrainDelay > 0 {
		q.redrainDelay = redrainDelay
	}
	return q
}

// Enqueue adds an operation with the default retry budget.
func (q *Queue) Enqueue(op Operation) {
	q.EnqueueWithRetries(op, DefaultMaxRetries)
}

// EnqueueWithRetries adds an operation. At capacity, the oldest entry is
// evicted to make room; the new entry is never dropped.
func (q *Queue) EnqueueWithRetries(op Operation, maxRetries int) {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	it := &item{
		id:         uuid.NewString(),
		op:         op,
		enqueuedAt: time.Now(),
		maxRetries: maxRetries,
	}

	q.mu.Lock()
	if len(q.items) >= q.capacity {
		evicted := q.items[0]
		q.items = q.items[1:]
		q.logger.Warn().
			Str("id", evicted.id).
			Time("enqueued_at", evicted.enqueuedAt).
			Msg("Offline queue at capacity, dropping oldest entry")
	}
	q.items = append(q.items, it)
	size := len(q.items)
	q.mu.Unlock()

	q.logger.Debug().
		Str("id", it.id).
		Int("queue_size", size).
		Msg("Queued request for replay")
}

// Len returns the current live queue size.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain replays the queued operations in enqueue order. It is a no-op while
// another drain pass is running or when the queue is empty. Failed items are
// pushed back onto the live queue until their retry budget is exhausted; if
// anything remains after the pass, another drain is scheduled after a short
// delay instead of looping synchronously.
func (q *Queue) Drain(ctx context.Context) {
	q.mu.Lock()
	if q.draining || len(q.items) == 0 {
		q.mu.Unlock()
		return
	}
	q.draining = true
	// Snapshot-then-clear: operations invoked below may suspend, and enqueues
	// arriving meanwhile must wait for the next pass.
	snapshot := q.items
	q.items = nil
	q.mu.Unlock()

	q.logger.Info().Int("items", len(snapshot)).Msg("Draining offline queue")

	for _, it := range snapshot {
		err := it.op(ctx)
		if err == nil {
			q.logger.Debug().Str("id", it.id).Msg("Replayed queued request")
			continue
		}

		it.retryCount++
		if it.retryCount < it.maxRetries {
			q.mu.Lock()
			q.items = append(q.items, it)
			q.mu.Unlock()
			q.logger.Debug().
				Str("id", it.id).
				Err(err).
				Int("retry_count", it.retryCount).
				Msg("Queued request failed, will retry on next drain")
		} else {
			q.logger.Warn().
				Str("id", it.id).
				Err(err).
				Int("retry_count", it.retryCount).
				Msg("Dropping queued request after exhausting retries")
		}
	}

	q.mu.Lock()
	q.draining = false
	pending := len(q.items)
	q.mu.Unlock()

	if pending > 0 {
		q.logger.Debug().
			Int("pending", pending).
			Dur("delay", q.redrainDelay).
			Msg("Scheduling next drain pass")
		time.AfterFunc(q.redrainDelay, func() { q.Drain(ctx) })
	}
}
