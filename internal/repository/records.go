package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/common"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
)

// RecordStore holds the current session's extracted records in insertion order.
type RecordStore interface {
	// Append commits records atomically: either all are stored or none.
	Append(ctx context.Context, records []entity.TaxRecord) error
	List(ctx context.Context) ([]entity.TaxRecord, error)
	AddNote(ctx context.Context, id uuid.UUID, note string) (*entity.TaxRecord, error)
	// Clear removes every record and returns how many were dropped.
	Clear(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

type memoryStore struct {
	mu      sync.RWMutex
	records []entity.TaxRecord
	logger  *slog.Logger
}

// NewMemoryStore returns a process-local store; records vanish with the process.
func NewMemoryStore(logger *slog.Logger) RecordStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &memoryStore{logger: logger}
}

func (m *memoryStore) Append(_ context.Context, records []entity.TaxRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records = append(m.records, cloneRecord(r))
	}
	m.logger.Debug("records appended", "count", len(records), "total", len(m.records))
	return nil
}

func (m *memoryStore) List(_ context.Context) ([]entity.TaxRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]entity.TaxRecord, len(m.records))
	for i, r := range m.records {
		out[i] = cloneRecord(r)
	}
	return out, nil
}

func (m *memoryStore) AddNote(_ context.Context, id uuid.UUID, note string) (*entity.TaxRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].ID == id {
			m.records[i].Notes = append(m.records[i].Notes, note)
			rec := cloneRecord(m.records[i])
			return &rec, nil
		}
	}
	return nil, fmt.Errorf("record %s: %w", id, common.ErrNotFound)
}

func (m *memoryStore) Clear(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.records)
	m.records = nil
	m.logger.Info("records cleared", "count", n)
	return n, nil
}

func (m *memoryStore) Ping(context.Context) error { return nil }

func (m *memoryStore) Close() error { return nil }

func cloneRecord(r entity.TaxRecord) entity.TaxRecord {
	out := r
	out.ArrearsByYear = make(entity.Arrears, len(r.ArrearsByYear))
	for y, v := range r.ArrearsByYear {
		out.ArrearsByYear[y] = v
	}
	out.Notes = slices.Clone(r.Notes)
	if out.Notes == nil {
		out.Notes = []string{}
	}
	return out
}

// row is the column form shared by the SQL backends.
type row struct {
	ID           string
	TaxpayerName string
	ObjectID     string
	Arrears      string
	Total        string
	Notes        string
	SourceFile   string
	BatchID      string
}

func toRow(r entity.TaxRecord) (row, error) {
	arrears, err := json.Marshal(r.ArrearsByYear)
	if err != nil {
		return row{}, fmt.Errorf("encode arrears: %w", err)
	}
	notes := r.Notes
	if notes == nil {
		notes = []string{}
	}
	nb, err := json.Marshal(notes)
	if err != nil {
		return row{}, fmt.Errorf("encode notes: %w", err)
	}
	return row{
		ID:           r.ID.String(),
		TaxpayerName: r.TaxpayerName,
		ObjectID:     r.ObjectID,
		Arrears:      string(arrears),
		Total:        r.Total.String(),
		Notes:        string(nb),
		SourceFile:   r.SourceFile,
		BatchID:      r.BatchID.String(),
	}, nil
}

func fromRow(rw row) (entity.TaxRecord, error) {
	var rec entity.TaxRecord
	var err error
	if rec.ID, err = uuid.Parse(rw.ID); err != nil {
		return rec, fmt.Errorf("decode id: %w", err)
	}
	if rw.BatchID != "" {
		if rec.BatchID, err = uuid.Parse(rw.BatchID); err != nil {
			return rec, fmt.Errorf("decode batch_id: %w", err)
		}
	}
	rec.ArrearsByYear = entity.Arrears{}
	if err := json.Unmarshal([]byte(rw.Arrears), &rec.ArrearsByYear); err != nil {
		return rec, fmt.Errorf("decode arrears: %w", err)
	}
	if err := json.Unmarshal([]byte(rw.Notes), &rec.Notes); err != nil {
		return rec, fmt.Errorf("decode notes: %w", err)
	}
	if rec.Notes == nil {
		rec.Notes = []string{}
	}
	if rec.Total, err = decimal.NewFromString(rw.Total); err != nil {
		return rec, fmt.Errorf("decode total: %w", err)
	}
	rec.TaxpayerName = rw.TaxpayerName
	rec.ObjectID = rw.ObjectID
	rec.SourceFile = rw.SourceFile
	return rec, nil
}
