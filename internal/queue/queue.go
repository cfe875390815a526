// Package queue stages parsed log entries and coalesces them into
// transactional batch inserts. Flushing triggers on size or elapsed time;
// timing uses the monotonic clock carried by time.Time, never record
// timestamps.
package queue

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ledgerlog-systems/ledgerlog/internal/metrics"
	"github.com/ledgerlog-systems/ledgerlog/internal/models"
	"github.com/ledgerlog-systems/ledgerlog/internal/storage"
)

const (
	// DefaultBatchSize is the flush threshold when none is configured.
	DefaultBatchSize = 100
	// DefaultFlushInterval is the time trigger when none is configured.
	DefaultFlushInterval = time.Second
)

// Queue is a mutex-guarded staging buffer in front of the store. It holds
// no capacity cap; backpressure is the caller's concern. Failed batches
// are dropped, not re-enqueued.
type Queue struct {
	store         *storage.Store
	batchSize     int
	flushInterval time.Duration

	mu        sync.Mutex
	entries   []*models.LogEntry
	lastFlush time.Time

	written    atomic.Uint64
	batchCount atomic.Uint64
	errors     atomic.Uint64
}

// New creates a queue writing to store. Non-positive knobs fall back to
// the defaults.
func New(store *storage.Store, batchSize int, flushInterval time.Duration) *Queue {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	return &Queue{
		store:         store,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		entries:       make([]*models.LogEntry, 0, batchSize),
		lastFlush:     time.Now(),
	}
}

// Enqueue appends one entry, flushing immediately (still under the lock)
// once the buffer reaches the batch size.
func (q *Queue) Enqueue(e *models.LogEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = append(q.entries, e)
	metrics.QueueDepth.Set(float64(len(q.entries)))
	if len(q.entries) >= q.batchSize {
		_, err := q.flushLocked()
		return err
	}
	return nil
}

// EnqueueBatch appends entries in order, then applies the same size check
// as Enqueue.
func (q *Queue) EnqueueBatch(entries []*models.LogEntry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.entries = append(q.entries, entries...)
	metrics.QueueDepth.Set(float64(len(q.entries)))
	if len(q.entries) >= q.batchSize {
		_, err := q.flushLocked()
		return err
	}
	return nil
}

// Len reports the number of staged entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// ShouldFlush reports whether the time or size trigger has fired.
func (q *Queue) ShouldFlush() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.shouldFlushLocked()
}

func (q *Queue) shouldFlushLocked() bool {
	return time.Since(q.lastFlush) >= q.flushInterval || len(q.entries) >= q.batchSize
}

// TryFlush flushes only if a trigger has fired. Returns entries written.
func (q *Queue) TryFlush() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.shouldFlushLocked() {
		return 0, nil
	}
	return q.flushLocked()
}

// ForceFlush flushes unconditionally. With nothing staged it is a no-op
// on the store.
func (q *Queue) ForceFlush() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.flushLocked()
}

func (q *Queue) flushLocked() (int, error) {
	q.lastFlush = time.Now()
	if len(q.entries) == 0 {
		return 0, nil
	}

	n, err := q.store.InsertBatch(q.entries)
	// Entries are dropped either way; the buffer keeps its capacity.
	q.entries = q.entries[:0]
	metrics.QueueDepth.Set(0)

	if err != nil {
		q.errors.Add(1)
		metrics.StorageErrors.Inc()
		return n, err
	}
	q.written.Add(uint64(n))
	q.batchCount.Add(1)
	metrics.EventsWritten.Add(float64(n))
	metrics.BatchFlushes.Inc()
	return n, nil
}

// Stats is a snapshot of the queue's counters.
type Stats struct {
	Queued     int
	Written    uint64
	BatchCount uint64
	Errors     uint64
}

// Stats returns the current counter snapshot.
func (q *Queue) Stats() Stats {
	return Stats{
		Queued:     q.Len(),
		Written:    q.written.Load(),
		BatchCount: q.batchCount.Load(),
		Errors:     q.errors.Load(),
	}
}

// Close drains the buffer best-effort; flush errors are suppressed.
func (q *Queue) Close() {
	_, _ = q.ForceFlush()
}
