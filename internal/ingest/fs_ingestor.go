package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/core/llm"
)

// FSIngestor reads documents from the local filesystem.
type FSIngestor struct {
	logger *slog.Logger
}

func NewFSIngestor(logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{logger: logger}
}

// ReadDocument loads one file as a Document.
func (i *FSIngestor) ReadDocument(path string) (llm.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return llm.Document{}, err
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			i.logger.Warn("close file error", "path", path, "error", err)
		}
	}(f)

	data, err := io.ReadAll(io.LimitReader(f, MaxDocumentBytes+1))
	if err != nil {
		return llm.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return FromUpload(filepath.Base(path), data)
}

// CollectPaths expands files and directories into documents. Directories are
// walked recursively; only accepted extensions are kept. Paths are processed
// in sorted order and identical content is loaded once.
func (i *FSIngestor) CollectPaths(ctx context.Context, paths []string, skipHidden bool) ([]llm.Document, []FileResult, DirStats, error) {
	var stats DirStats
	var results []FileResult
	if len(paths) == 0 {
		return nil, nil, stats, errors.New("at least one path is required")
	}

	var matched []string
	for _, root := range paths {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			stats.Scanned++
			if walkErr != nil {
				results = append(results, FileResult{Path: path, Err: walkErr.Error()})
				stats.Failed++
				return nil
			}
			if skipHidden && path != root && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if !AllowedExt(filepath.Ext(path)) {
				return nil
			}
			stats.Matched++
			matched = append(matched, path)
			return nil
		})
		if err != nil {
			return nil, results, stats, fmt.Errorf("walk: %w", err)
		}
	}
	sort.Strings(matched)

	seen := map[string]string{}
	docs := make([]llm.Document, 0, len(matched))
	for _, path := range matched {
		if err := ctx.Err(); err != nil {
			return nil, results, stats, err
		}
		doc, err := i.ReadDocument(path)
		if err != nil {
			i.logger.Warn("ingest.file.skipped", "path", path, "error", err)
			results = append(results, FileResult{Path: path, Err: err.Error()})
			stats.Failed++
			continue
		}
		if first, dup := seen[doc.HashHex]; dup {
			i.logger.Info("ingest.file.duplicate", "path", path, "same_as", first)
			results = append(results, FileResult{Path: path, HashHex: doc.HashHex, MIMEType: doc.MIMEType, Deduplicated: true})
			stats.Deduplicated++
			continue
		}
		seen[doc.HashHex] = path
		docs = append(docs, doc)
		results = append(results, FileResult{Path: path, HashHex: doc.HashHex, MIMEType: doc.MIMEType})
		stats.Loaded++
	}

	i.logger.Info("ingest.collect.done",
		"scanned", stats.Scanned, "matched", stats.Matched, "loaded", stats.Loaded,
		"deduplicated", stats.Deduplicated, "failed", stats.Failed)
	return docs, results, stats, nil
}
