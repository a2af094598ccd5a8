package async

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core/llm"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
)

// Job is one queued batch submission.
type Job struct {
	BatchID     uuid.UUID
	Documents   []llm.Document
	Extractor   llm.Extractor // nil uses the processor default
	Release     func()        // called once the batch has run
	SubmittedAt time.Time
	RequestID   string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) (entity.Batch, error)
	Batch(id uuid.UUID) (entity.Batch, bool)
	Shutdown(ctx context.Context)
}

// BatchRunner is satisfied by *core.Processor.
type BatchRunner interface {
	ProcessBatch(ctx context.Context, req core.BatchRequest) (core.BatchResult, error)
}
