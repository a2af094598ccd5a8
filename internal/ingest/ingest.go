package ingest

import (
	"context"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core/llm"
)

// FileResult is the per-file outcome of a collection pass.
type FileResult struct {
	Path         string
	HashHex      string
	MIMEType     string
	Deduplicated bool
	Err          string
}

// DirStats summarizes a collection pass.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Loaded       uint32
	Deduplicated uint32
	Failed       uint32
}

// Collector turns filesystem paths into documents ready for extraction.
type Collector interface {
	CollectPaths(ctx context.Context, paths []string, skipHidden bool) ([]llm.Document, []FileResult, DirStats, error)
}
