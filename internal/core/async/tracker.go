package async

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/joseph-ayodele/pbb-arrears-tracker/constants"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/common"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
)

// Tracker keeps the status of recent batches; the oldest fall out once the
// history size is reached.
type Tracker struct {
	mu      sync.Mutex
	batches *lru.Cache[uuid.UUID, *entity.Batch]
}

func NewTracker(history int) (*Tracker, error) {
	if history <= 0 {
		history = 128
	}
	c, err := lru.New[uuid.UUID, *entity.Batch](history)
	if err != nil {
		return nil, err
	}
	return &Tracker{batches: c}, nil
}

func (t *Tracker) Submit(id uuid.UUID, files []string, at time.Time) entity.Batch {
	b := &entity.Batch{
		ID:          id,
		Status:      constants.BatchStatusQueued,
		Files:       slices.Clone(files),
		SubmittedAt: at,
	}
	t.mu.Lock()
	t.batches.Add(id, b)
	t.mu.Unlock()
	return copyBatch(b)
}

func (t *Tracker) Running(id uuid.UUID, at time.Time) {
	t.update(id, func(b *entity.Batch) {
		b.Status = constants.BatchStatusRunning
		b.StartedAt = &at
	})
}

func (t *Tracker) Succeeded(id uuid.UUID, records int, at time.Time) {
	t.update(id, func(b *entity.Batch) {
		b.Status = constants.BatchStatusSucceeded
		b.RecordCount = records
		b.FinishedAt = &at
	})
}

func (t *Tracker) Failed(id uuid.UUID, err error, at time.Time) {
	t.update(id, func(b *entity.Batch) {
		b.Status = constants.BatchStatusFailed
		b.ErrorCode = common.ErrorCode(err)
		b.ErrorMessage = common.UserMessage(err)
		var be *core.BatchError
		if errors.As(err, &be) {
			b.FailedFile = be.File
		}
		b.FinishedAt = &at
	})
}

func (t *Tracker) Get(id uuid.UUID) (entity.Batch, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.batches.Get(id)
	if !ok {
		return entity.Batch{}, false
	}
	return copyBatch(b), true
}

func (t *Tracker) update(id uuid.UUID, fn func(*entity.Batch)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok := t.batches.Peek(id); ok && !b.Status.Terminal() {
		fn(b)
	}
}

func copyBatch(b *entity.Batch) entity.Batch {
	out := *b
	out.Files = slices.Clone(b.Files)
	return out
}
