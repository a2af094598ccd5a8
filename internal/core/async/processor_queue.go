package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/common"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
)

// ProcessorQueue feeds batches to a single worker so batches never overlap.
type ProcessorQueue struct {
	proc    BatchRunner
	tracker *Tracker
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

// WithProcessTimeout bounds one whole batch.
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

func WithTracker(t *Tracker) Option {
	return func(q *ProcessorQueue) {
		if t != nil {
			q.tracker = t
		}
	}
}

func NewProcessorQueue(proc BatchRunner, logger *slog.Logger, opts ...Option) (*ProcessorQueue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		timeout: 30 * time.Minute,
		now:     func() time.Time { return time.Now().UTC() },
		ch:      make(chan Job, 16),
	}
	for _, o := range opts {
		o(q)
	}
	if q.tracker == nil {
		t, err := NewTracker(0)
		if err != nil {
			return nil, err
		}
		q.tracker = t
	}
	q.start()
	return q, nil
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.logger.Info("worker started")
			for job := range q.ch {
				q.run(job)
			}
			q.logger.Info("worker stopped")
		}()
	})
}

func (q *ProcessorQueue) run(job Job) {
	if job.Release != nil {
		defer job.Release()
	}
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.RequestID != "" {
		ctx = common.WithRequestID(ctx, job.RequestID)
	}

	q.tracker.Running(job.BatchID, q.now())
	res, err := q.proc.ProcessBatch(ctx, core.BatchRequest{
		ID:        job.BatchID,
		Documents: job.Documents,
		Extractor: job.Extractor,
	})
	if err != nil {
		q.tracker.Failed(job.BatchID, err, q.now())
		q.logger.Error("batch failed", "batch_id", job.BatchID, "code", common.ErrorCode(err), "error", err)
		return
	}
	q.tracker.Succeeded(job.BatchID, len(res.Records), q.now())
	q.logger.Info("processed batch successfully", "batch_id", job.BatchID, "records", len(res.Records))
}

// Enqueue registers the batch as QUEUED and hands it to the worker. It blocks
// while the queue is full, until ctx is done.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) (entity.Batch, error) {
	if len(job.Documents) == 0 {
		return entity.Batch{}, fmt.Errorf("%w: no documents in batch", common.ErrInvalidInput)
	}
	if job.BatchID == uuid.Nil {
		job.BatchID = uuid.New()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = q.now()
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "batch_id", job.BatchID)
		return entity.Batch{}, common.ErrQueueClosed
	}

	names := make([]string, len(job.Documents))
	for i, d := range job.Documents {
		names[i] = d.Name
	}
	batch := q.tracker.Submit(job.BatchID, names, job.SubmittedAt)

	select {
	case q.ch <- job:
		q.logger.Info("queued batch for processing", "batch_id", job.BatchID, "files", len(names))
		return batch, nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "batch_id", job.BatchID)
	select {
	case q.ch <- job:
		return batch, nil
	case <-ctx.Done():
		q.tracker.Failed(job.BatchID, ctx.Err(), q.now())
		return entity.Batch{}, ctx.Err()
	}
}

func (q *ProcessorQueue) Batch(id uuid.UUID) (entity.Batch, bool) {
	return q.tracker.Get(id)
}

func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}
