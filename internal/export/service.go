package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/pbb-arrears-tracker/constants"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/common"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/repository"
)

// Format selects the export encoding.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	if f == XLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Service renders the store's current records for download.
type Service struct {
	store  repository.RecordStore
	years  entity.YearRange
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store repository.RecordStore, years entity.YearRange, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, years: years, logger: logger, now: time.Now}
}

// FileName is the download name stamped with the current date.
func FileName(f Format, at time.Time) string {
	return fmt.Sprintf("%s_%s.%s", constants.ExportFilePrefix, at.Format("2006-01-02"), f)
}

// Export returns the file name and bytes for every stored record.
func (s *Service) Export(ctx context.Context, f Format) (string, []byte, error) {
	start := time.Now()
	recs, err := s.store.List(ctx)
	if err != nil {
		return "", nil, common.WrapError(err, "list records")
	}

	var data []byte
	switch f {
	case CSV:
		var buf bytes.Buffer
		if err := WriteCSV(&buf, recs, s.years); err != nil {
			return "", nil, common.WrapError(err, "csv write")
		}
		data = buf.Bytes()
	case XLSX:
		if data, err = WriteXLSX(recs, s.years); err != nil {
			return "", nil, err
		}
	default:
		return "", nil, fmt.Errorf("%w: unknown export format %q", common.ErrInvalidInput, f)
	}

	s.logger.Info("export.ok",
		"format", string(f),
		"rows", len(recs),
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return FileName(f, s.now()), data, nil
}
