package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pbb-arrears-tracker/constants"
)

// Batch tracks one upload of documents through the extraction queue.
type Batch struct {
	ID           uuid.UUID             `json:"id"`
	Status       constants.BatchStatus `json:"status"`
	Files        []string              `json:"files"`
	RecordCount  int                   `json:"record_count"`
	FailedFile   string                `json:"failed_file,omitempty"`
	ErrorCode    string                `json:"error_code,omitempty"`
	ErrorMessage string                `json:"error_message,omitempty"`
	SubmittedAt  time.Time             `json:"submitted_at"`
	StartedAt    *time.Time            `json:"started_at,omitempty"`
	FinishedAt   *time.Time            `json:"finished_at,omitempty"`
}
