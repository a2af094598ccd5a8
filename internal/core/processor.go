package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pbb-arrears-tracker/constants"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/common"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core/llm"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/repository"
)

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Processor runs a batch of documents through the extractor one at a time and
// commits the batch's records to the store only when every document succeeded.
type Processor struct {
	logger    *slog.Logger
	extractor llm.Extractor
	store     repository.RecordStore
	delay     time.Duration
	sleep     Sleeper
	now       func() time.Time

	// one batch at a time
	mu sync.Mutex
}

type ProcessorOption func(*Processor)

func WithInterFileDelay(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		if d >= 0 {
			p.delay = d
		}
	}
}

func WithSleeper(s Sleeper) ProcessorOption {
	return func(p *Processor) {
		if s != nil {
			p.sleep = s
		}
	}
}

func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

func NewProcessor(logger *slog.Logger, extractor llm.Extractor, store repository.RecordStore, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger:    logger,
		extractor: extractor,
		store:     store,
		delay:     constants.DefaultInterFileDelay,
		sleep:     sleepContext,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// BatchRequest is one user submission.
type BatchRequest struct {
	ID        uuid.UUID
	Documents []llm.Document
	// Extractor overrides the processor's default, e.g. a client bound to a personal API key.
	Extractor llm.Extractor
}

type BatchResult struct {
	BatchID uuid.UUID
	Records []entity.TaxRecord
	Files   int
}

// BatchError names the document that stopped a batch.
type BatchError struct {
	File  string
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("file %d (%s): %v", e.Index+1, e.File, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// ProcessBatch extracts every document in order, pausing between files.
// The first failure aborts the batch and nothing from it is committed.
func (p *Processor) ProcessBatch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	if len(req.Documents) == 0 {
		return BatchResult{}, fmt.Errorf("%w: no documents in batch", common.ErrInvalidInput)
	}
	extractor := req.Extractor
	if extractor == nil {
		extractor = p.extractor
	}
	if extractor == nil {
		return BatchResult{}, common.NewAppError(common.CodeConfig, "no extractor configured", nil)
	}
	batchID := req.ID
	if batchID == uuid.Nil {
		batchID = uuid.New()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	logger := common.LoggerFromContext(ctx, p.logger).With("batch_id", batchID)
	ctx = common.WithBatchID(ctx, batchID.String())
	logger.Info("processor.batch.start", "files", len(req.Documents))

	buffer := make([]entity.TaxRecord, 0, len(req.Documents))
	for i, doc := range req.Documents {
		if i > 0 && p.delay > 0 {
			if err := p.sleep(ctx, p.delay); err != nil {
				logger.Warn("processor.batch.canceled", "file", doc.Name, "err", err)
				return BatchResult{BatchID: batchID}, &BatchError{File: doc.Name, Index: i, Err: err}
			}
		}

		start := time.Now()
		records, err := extractor.Extract(ctx, doc)
		if err != nil {
			classified := common.ClassifyExtractionError(err)
			logger.Error("processor.file.failed",
				"file", doc.Name, "index", i, "code", common.ErrorCode(classified), "err", err)
			return BatchResult{BatchID: batchID}, &BatchError{File: doc.Name, Index: i, Err: classified}
		}

		created := p.now()
		for _, rec := range records {
			rec.ID = uuid.New()
			rec.BatchID = batchID
			rec.SourceFile = doc.Name
			rec.CreatedAt = created
			if rec.Notes == nil {
				rec.Notes = []string{}
			}
			buffer = append(buffer, rec)
		}
		logger.Info("processor.file.done",
			"file", doc.Name, "index", i, "records", len(records), "elapsed_ms", time.Since(start).Milliseconds())
	}

	if err := p.store.Append(ctx, buffer); err != nil {
		logger.Error("processor.batch.commit_failed", "records", len(buffer), "err", err)
		return BatchResult{BatchID: batchID}, fmt.Errorf("commit batch: %w", err)
	}
	logger.Info("processor.batch.done", "files", len(req.Documents), "records", len(buffer))
	return BatchResult{BatchID: batchID, Records: buffer, Files: len(req.Documents)}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
