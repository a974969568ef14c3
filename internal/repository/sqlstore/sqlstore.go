// Package sqlstore implements the repository interfaces on database/sql.
//
// Two drivers are supported:
//   - "sqlite" (modernc.org/sqlite): pure Go, no cgo. Used for local runs and
//     every test, including ":memory:" databases.
//   - "pgx" (github.com/jackc/pgx/v5/stdlib): PostgreSQL in production.
//
// SQL text is shared between the two wherever possible. The parts that
// differ (placeholder syntax, case-insensitive LIKE) come from query.Dialect,
// and the schema lives in per-dialect goose migrations.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/pressly/goose/v3"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/puzzle-market/internal/apperror"
	"github.com/sakif/puzzle-market/internal/metrics"
	"github.com/sakif/puzzle-market/internal/query"
	"github.com/sakif/puzzle-market/internal/repository/sqlstore/migrations"
)

// Options configures Open.
type Options struct {
	Driver          string // "sqlite" or "pgx"
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Metrics         *metrics.Metrics
}

// DB wraps a sql.DB connection pool and provides repository methods for
// both adverts and user accounts.
type DB struct {
	conn    *sql.DB
	dialect query.Dialect
	logger  *slog.Logger
	metrics *metrics.Metrics

	// now is the clock used for created_at. Tests replace it.
	now func() time.Time
}

// Open connects, applies driver-specific settings and runs migrations.
//
// SQLite is limited to a single connection: an in-memory database exists
// per connection, and SQLite serialises writers anyway.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*DB, error) {
	dialect, err := query.DialectFor(opts.Driver)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: %w", err)
	}
	driver := "pgx"
	if dialect == query.SQLite {
		driver = "sqlite"
	}

	conn, err := sql.Open(driver, opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening database: %w", err)
	}

	if dialect == query.SQLite {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
	} else {
		if opts.MaxOpenConns > 0 {
			conn.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			conn.SetMaxIdleConns(opts.MaxIdleConns)
		}
		if opts.ConnMaxLifetime > 0 {
			conn.SetConnMaxLifetime(opts.ConnMaxLifetime)
		}
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: pinging database: %w", err)
	}

	if dialect == query.SQLite {
		if err := configureSQLite(ctx, conn, opts.DSN); err != nil {
			conn.Close()
			return nil, err
		}
	}

	db := Wrap(conn, dialect, logger)
	db.metrics = opts.Metrics

	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: running migrations: %w", err)
	}

	return db, nil
}

// Wrap builds a DB around an existing pool without touching the schema.
func Wrap(conn *sql.DB, dialect query.Dialect, logger *slog.Logger) *DB {
	return &DB{
		conn:    conn,
		dialect: dialect,
		logger:  logger,
		now:     time.Now,
	}
}

func configureSQLite(ctx context.Context, conn *sql.DB, dsn string) error {
	// WAL lets readers proceed while a write is in progress. It has no
	// meaning for in-memory databases.
	if !strings.Contains(dsn, ":memory:") && !strings.Contains(dsn, "mode=memory") {
		if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			return fmt.Errorf("sqlstore: setting WAL mode: %w", err)
		}
	}
	// Foreign keys are off by default in SQLite.
	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("sqlstore: enabling foreign keys: %w", err)
	}
	return nil
}

// goose keeps its base FS, dialect and logger in package globals.
var migrateMu sync.Mutex

func (db *DB) migrate(ctx context.Context) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	dir := "postgres"
	if db.dialect == query.SQLite {
		dir = "sqlite"
	}

	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(gooseLogger{db.logger})

	if err := goose.SetDialect(db.dialect.Name()); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db.conn, dir)
}

// gooseLogger routes migration output through slog at debug level.
type gooseLogger struct{ l *slog.Logger }

func (g gooseLogger) Printf(format string, v ...any) {
	g.l.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "goose"))
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.l.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "goose"))
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) Dialect() query.Dialect { return db.dialect }

// SetClock overrides the clock used for created_at.
func (db *DB) SetClock(now func() time.Time) { db.now = now }

// SetMetrics attaches collectors to a DB built with Wrap.
func (db *DB) SetMetrics(m *metrics.Metrics) { db.metrics = m }

// timestamp is the current time as stored: UTC, microsecond precision, which
// both SQLite text timestamps and PostgreSQL timestamptz keep exactly.
func (db *DB) timestamp() time.Time {
	return db.now().UTC().Truncate(time.Microsecond)
}

// observe is deferred at the top of every repository method:
//
//	defer db.observe("adverts.create", time.Now(), &err)
//
// Only backend failures count as errors. Not-found, validation and conflict
// results are *apperror.AppError values and are timed like any success.
func (db *DB) observe(op string, start time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		err = nil
	}
	db.metrics.ObserveDB(op, time.Since(start), err)
}

type constraint int

const (
	noConstraint constraint = iota
	uniqueViolation
	foreignKeyViolation
)

// classify recognises constraint violations from either driver.
func classify(err error) constraint {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return uniqueViolation
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return foreignKeyViolation
		}
		return noConstraint
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return uniqueViolation
		case "23503":
			return foreignKeyViolation
		}
	}
	return noConstraint
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
