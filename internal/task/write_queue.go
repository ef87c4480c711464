package task

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
)

// Common errors returned by the write queue.
var (
	ErrQueueClosed = errors.New("write queue is closed")
	ErrQueueFull   = errors.New("write queue is full")
)

// BodyWrite is a single note-body persistence job.
type BodyWrite struct {
	UserID  string
	TopicID string
	Text    string
}

// Key returns the serialization key for the write. All writes sharing a key
// are delivered in enqueue order.
func (w BodyWrite) Key() string {
	return w.UserID + "/" + w.TopicID
}

// WriteFunc performs the durable write for a job.
type WriteFunc func(ctx context.Context, userID, topicID, text string) error

// WriteQueueConfig holds configuration options for the write queue.
type WriteQueueConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start.
	// If zero or negative, defaults to 2.
	WorkerCount int

	// QueueSize determines the buffer size of each worker's channel.
	// If zero or negative, defaults to 64.
	QueueSize int
}

// DefaultWriteQueueConfig returns a WriteQueueConfig with reasonable defaults.
func DefaultWriteQueueConfig() WriteQueueConfig {
	return WriteQueueConfig{
		WorkerCount: 2,
		QueueSize:   64,
	}
}

// WriteQueue is a bounded background queue of body writes with per-key FIFO
// ordering. Each worker owns one channel and jobs are routed to workers by
// hashing the key, so two writes to the same key always land on the same
// worker and execute in order. Jobs are not cancellable once enqueued.
type WriteQueue struct {
	write   WriteFunc
	chans   []chan BodyWrite
	wg      sync.WaitGroup
	pending sync.WaitGroup
	logger  *slog.Logger

	// mu serializes shutdown against enqueue: Enqueue holds the read side
	// across its channel send, and Close takes the write side before closing
	// the channels, so a send can never hit a closed channel.
	mu     sync.RWMutex
	closed bool
}

// NewWriteQueue creates a write queue and starts its workers.
func NewWriteQueue(write WriteFunc, config WriteQueueConfig, logger *slog.Logger) *WriteQueue {
	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 2
	}
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = slog.Default()
	}

	q := &WriteQueue{
		write:  write,
		chans:  make([]chan BodyWrite, workerCount),
		logger: logger.With(slog.String("component", "write_queue")),
	}

	for i := range q.chans {
		q.chans[i] = make(chan BodyWrite, queueSize)
		q.wg.Add(1)
		go q.worker(i)
	}

	return q
}

// Enqueue adds a body write to the queue.
// Returns ErrQueueFull if the worker responsible for the key has no buffer
// space left, and ErrQueueClosed after Close. The caller decides whether a
// full queue is fatal; for fire-and-forget persistence it is logged and the
// in-memory state simply stays ahead of disk.
func (q *WriteQueue) Enqueue(w BodyWrite) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.pending.Add(1)

	ch := q.chans[q.workerFor(w.Key())]
	select {
	case ch <- w:
		q.logger.Debug("body write enqueued",
			"user_id", w.UserID,
			"topic_id", w.TopicID,
			"queue_len", len(ch),
			"queue_cap", cap(ch))
		return nil
	default:
		q.pending.Done()
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(ch))
	}
}

// Flush blocks until every job enqueued so far has been executed.
func (q *WriteQueue) Flush() {
	q.pending.Wait()
}

// Close stops accepting jobs, drains the remaining ones, and waits for the
// workers to exit.
func (q *WriteQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	for _, ch := range q.chans {
		close(ch)
	}
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("write queue closed")
}

// workerFor maps a key to a worker index. The mapping is stable, which is
// what provides the per-key ordering guarantee.
func (q *WriteQueue) workerFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(q.chans)))
}

// worker drains its channel in order. Failed writes are logged and dropped;
// the index already reflects the newer state, so the topic's body is stale
// until the user next edits it.
func (q *WriteQueue) worker(id int) {
	defer q.wg.Done()

	q.logger.Debug("starting write worker", "worker_id", id)

	for w := range q.chans[id] {
		if err := q.write(context.Background(), w.UserID, w.TopicID, w.Text); err != nil {
			q.logger.Error("body write failed",
				"user_id", w.UserID,
				"topic_id", w.TopicID,
				"worker_id", id,
				"error", err)
		}
		q.pending.Done()
	}

	q.logger.Debug("stopping write worker", "worker_id", id)
}
