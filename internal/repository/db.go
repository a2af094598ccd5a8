package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Config struct {
	// DSN selects the backend: "memory", "sqlite:<path>" or a postgres:// URL.
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// Open returns the RecordStore named by cfg.DSN, creating its table if needed.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (RecordStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := strings.TrimSpace(cfg.DSN)
	switch {
	case dsn == "" || dsn == "memory":
		logger.Info("using in-memory record store")
		return NewMemoryStore(logger), nil
	case strings.HasPrefix(dsn, "sqlite:"):
		return openSQLite(ctx, strings.TrimPrefix(dsn, "sqlite:"), logger)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return openPostgres(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported STORE_DSN %q", redact(dsn))
	}
}

func openSQLite(ctx context.Context, path string, logger *slog.Logger) (RecordStore, error) {
	if path == "" {
		path = ":memory:"
	}
	logger.Info("opening sqlite record store", "path", path)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		logger.Error("failed to open sqlite", "error", err)
		return nil, err
	}
	// one connection keeps a :memory: database alive and serializes writers
	db.SetMaxOpenConns(1)
	s := &sqlStore{db: db, dialect: sqliteDialect, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// openPostgres creates a pgx pool and wraps it as *sql.DB for the shared SQL store.
func openPostgres(ctx context.Context, cfg Config, logger *slog.Logger) (RecordStore, error) {
	logger.Info("connecting to database", "dsn", redact(cfg.DSN))
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pc.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "pbb-arrears-tracker"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprint(cfg.StatementTimeout.Milliseconds())
	}

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	dctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(dctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}
	if err := pool.Ping(dctx); err != nil {
		pool.Close()
		logger.Error("database ping failed", "error", err)
		return nil, err
	}

	s := &sqlStore{db: stdlib.OpenDBFromPool(pool), pool: pool, dialect: postgresDialect, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	logger.Info("successfully connected to database")
	return s, nil
}

// HealthCheck pings the store, bounded by timeout when positive.
func HealthCheck(ctx context.Context, store RecordStore, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("pinging record store")
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := store.Ping(ctx); err != nil {
		logger.Error("record store ping failed", "error", err)
		return err
	}
	logger.Debug("record store ping successful")
	return nil
}

// redact hides the password portion of a URL-style DSN.
func redact(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	if i := strings.Index(creds, ":"); i >= 0 {
		return dsn[:scheme+3] + creds[:i] + ":***" + dsn[at:]
	}
	return dsn
}
