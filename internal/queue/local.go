package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrClosed is returned by Enqueue after Close.
var ErrClosed = errors.New("queue closed")

// LocalQueue runs jobs on in-process goroutines. It is used when the API runs
// outside Lambda and in tests, where Wait gives a deterministic join point.
// Jobs still running when the process exits are lost.
type LocalQueue struct {
	handler Handler
	delay   time.Duration
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	// base is detached from request contexts so jobs outlive the request.
	base   context.Context
	cancel context.CancelFunc
}

// LocalOption configures a LocalQueue.
type LocalOption func(*LocalQueue)

// WithDelay postpones each job by d.
func WithDelay(d time.Duration) LocalOption {
	return func(q *LocalQueue) { q.delay = d }
}

// WithJobTimeout bounds how long one job may run.
func WithJobTimeout(d time.Duration) LocalOption {
	return func(q *LocalQueue) { q.timeout = d }
}

// NewLocalQueue returns a LocalQueue that runs jobs with handler.
func NewLocalQueue(handler Handler, logger *zap.Logger, opts ...LocalOption) *LocalQueue {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, cancel := context.WithCancel(context.Background())
	q := &LocalQueue{
		handler: handler,
		timeout: 2 * time.Minute,
		logger:  logger,
		base:    base,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue schedules job and returns immediately.
func (q *LocalQueue) Enqueue(_ context.Context, job Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.wg.Add(1)
	go q.run(job)
	return nil
}

func (q *LocalQueue) run(job Job) {
	defer q.wg.Done()
	log := q.logger.With(zap.String("order_id", job.OrderID), zap.String("reason", job.Reason))

	if q.delay > 0 {
		t := time.NewTimer(q.delay)
		select {
		case <-t.C:
		case <-q.base.Done():
			t.Stop()
			log.Warn("local job dropped on shutdown")
			return
		}
	}

	ctx, cancel := context.WithTimeout(q.base, q.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			log.Error("local job panicked", zap.Any("panic", r))
		}
	}()
	if err := q.handler.Process(ctx, job); err != nil {
		log.Error("local job failed", zap.Error(err))
	}
}

// Wait blocks until every enqueued job has finished or ctx is done.
func (q *LocalQueue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects new jobs and waits for running ones until ctx is done, after
// which outstanding jobs are cancelled.
func (q *LocalQueue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	err := q.Wait(ctx)
	q.cancel()
	return err
}
