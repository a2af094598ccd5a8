package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/common"
	"github.com/joseph-ayodele/pbb-arrears-tracker/internal/entity"
)

type dialect struct {
	name   string
	schema string
	// numbered placeholders ($1) instead of ?
	numbered bool
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: `CREATE TABLE IF NOT EXISTS tax_records (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	id            TEXT NOT NULL UNIQUE,
	taxpayer_name TEXT NOT NULL,
	object_id     TEXT NOT NULL,
	arrears       TEXT NOT NULL,
	total         TEXT NOT NULL,
	notes         TEXT NOT NULL,
	source_file   TEXT NOT NULL DEFAULT '',
	batch_id      TEXT NOT NULL DEFAULT '',
	created_at    INTEGER NOT NULL
)`,
}

var postgresDialect = dialect{
	name:     "postgres",
	numbered: true,
	schema: `CREATE TABLE IF NOT EXISTS tax_records (
	seq           BIGSERIAL PRIMARY KEY,
	id            TEXT NOT NULL UNIQUE,
	taxpayer_name TEXT NOT NULL,
	object_id     TEXT NOT NULL,
	arrears       TEXT NOT NULL,
	total         NUMERIC NOT NULL,
	notes         TEXT NOT NULL,
	source_file   TEXT NOT NULL DEFAULT '',
	batch_id      TEXT NOT NULL DEFAULT '',
	created_at    BIGINT NOT NULL
)`,
}

// bind rewrites ? placeholders for dialects that number them.
func (d dialect) bind(q string) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type sqlStore struct {
	db      *sql.DB
	pool    *pgxpool.Pool
	dialect dialect
	logger  *slog.Logger
}

func (s *sqlStore) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.schema); err != nil {
		s.logger.Error("failed to create tax_records table", "dialect", s.dialect.name, "error", err)
		return fmt.Errorf("%w: migrate: %v", common.ErrDatabase, err)
	}
	return nil
}

const insertRecord = `INSERT INTO tax_records
	(id, taxpayer_name, object_id, arrears, total, notes, source_file, batch_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *sqlStore) Append(ctx context.Context, records []entity.TaxRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("failed to begin transaction", "error", err)
		return fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.dialect.bind(insertRecord))
	if err != nil {
		s.logger.Error("failed to prepare insert", "error", err)
		return fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer stmt.Close()

	for _, rec := range records {
		rw, err := toRow(rec)
		if err != nil {
			return err
		}
		created := rec.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		if _, err := stmt.ExecContext(ctx, rw.ID, rw.TaxpayerName, rw.ObjectID, rw.Arrears, rw.Total,
			rw.Notes, rw.SourceFile, rw.BatchID, created.UnixNano()); err != nil {
			s.logger.Error("failed to insert tax record", "nop", rec.ObjectID, "error", err)
			return fmt.Errorf("%w: insert: %v", common.ErrDatabase, err)
		}
	}
	if err := tx.Commit(); err != nil {
		s.logger.Error("failed to commit records", "error", err)
		return fmt.Errorf("%w: commit: %v", common.ErrDatabase, err)
	}
	s.logger.Debug("records appended", "count", len(records))
	return nil
}

const selectRecords = `SELECT id, taxpayer_name, object_id, arrears, CAST(total AS TEXT), notes, source_file, batch_id, created_at
	FROM tax_records`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (entity.TaxRecord, error) {
	var rw row
	var created int64
	if err := sc.Scan(&rw.ID, &rw.TaxpayerName, &rw.ObjectID, &rw.Arrears, &rw.Total,
		&rw.Notes, &rw.SourceFile, &rw.BatchID, &created); err != nil {
		return entity.TaxRecord{}, err
	}
	rec, err := fromRow(rw)
	if err != nil {
		return rec, err
	}
	rec.CreatedAt = time.Unix(0, created).UTC()
	return rec, nil
}

func (s *sqlStore) List(ctx context.Context) ([]entity.TaxRecord, error) {
	rows, err := s.db.QueryContext(ctx, selectRecords+" ORDER BY seq")
	if err != nil {
		s.logger.Error("failed to list tax records", "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	out := []entity.TaxRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			s.logger.Error("failed to scan tax record", "error", err)
			return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func (s *sqlStore) AddNote(ctx context.Context, id uuid.UUID, note string) (*entity.TaxRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := scanRecord(tx.QueryRowContext(ctx, s.dialect.bind(selectRecords+" WHERE id = ?"), id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		s.logger.Error("failed to load tax record", "id", id, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}

	rec.Notes = append(rec.Notes, note)
	rw, err := toRow(rec)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, s.dialect.bind("UPDATE tax_records SET notes = ? WHERE id = ?"), rw.Notes, rw.ID); err != nil {
		s.logger.Error("failed to update notes", "id", id, "error", err)
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	return &rec, nil
}

func (s *sqlStore) Clear(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM tax_records")
	if err != nil {
		s.logger.Error("failed to clear tax records", "error", err)
		return 0, fmt.Errorf("%w: %v", common.ErrDatabase, err)
	}
	n, _ := res.RowsAffected()
	s.logger.Info("records cleared", "count", n)
	return int(n), nil
}

func (s *sqlStore) Ping(ctx context.Context) error {
	if s.pool != nil {
		return s.pool.Ping(ctx)
	}
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error {
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}
