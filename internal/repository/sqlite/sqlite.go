// Package sqlite implements the repository interfaces on an embedded SQLite
// database (modernc.org/sqlite, pure Go).
//
// WHY SQLITE?
// The notes server is a single process with a small data set. An embedded
// database keeps everything in one file next to the binary: no server to run,
// and ":memory:" gives tests a throwaway database.
//
// WHY GOLANG-MIGRATE?
// The schema lives in migrations/*.sql, embedded into the binary with
// go:embed. golang-migrate records the applied version in a
// schema_migrations table, so New can run on every start: a fresh file gets
// the whole schema, an existing one only what it is missing.
//
// WHY AUTOINCREMENT?
// A plain INTEGER PRIMARY KEY reuses the highest rowid after it is deleted.
// AUTOINCREMENT keeps a high-water mark in sqlite_sequence, so a deleted
// note's ID is never handed to a new note. The memory backend keeps the
// same promise with its own counters.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/sakif/forgenotes/internal/repository"

	// Registers the "sqlite" database/sql driver and gives us
	// RegisterDeterministicScalarFunction.
	moderncsqlite "modernc.org/sqlite"
)

var (
	_ repository.Store  = (*DB)(nil)
	_ repository.Atomic = (*DB)(nil)
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// foldFunc is the SQL name of the case-folding function used by search.
//
// WHY NOT lower()?
// SQLite's built-in lower() only folds ASCII: lower('Été') is 'Été'. Search
// must match case-insensitively on any text, the same way the memory
// backend does with strings.ToLower, so both sides of the comparison go
// through Go's Unicode folding instead.
const foldFunc = "fold"

func init() {
	err := moderncsqlite.RegisterDeterministicScalarFunction(foldFunc, 1,
		func(_ *moderncsqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case nil:
				return nil, nil
			case string:
				return strings.ToLower(v), nil
			case []byte:
				return strings.ToLower(string(v)), nil
			default:
				return v, nil
			}
		},
	)
	if err != nil {
		panic(fmt.Sprintf("sqlite: registering %s(): %v", foldFunc, err))
	}
}

// querier is what *sql.DB and *sql.Tx have in common. Repository methods
// run their SQL through it so the same code works inside and outside a
// transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps a sql.DB connection pool and implements repository.Store.
//
// A DB handed out by Atomically carries the open transaction in tx; every
// method then runs inside it.
type DB struct {
	conn *sql.DB
	tx   *sql.Tx
}

// New opens (or creates) the database at dbPath and brings the schema up
// to date. dbPath may be ":memory:" for tests.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// ONE CONNECTION:
	// SQLite allows a single writer at a time anyway, and every new
	// connection to ":memory:" would open its own empty database.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers carry on while a write is in progress; busy_timeout
	// makes a locked database wait instead of failing straight away.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool. On a DB handed out by
// Atomically it does nothing; the pool belongs to the outer DB.
func (db *DB) Close() error {
	if db.tx != nil {
		return nil
	}
	return db.conn.Close()
}

func (db *DB) q() querier {
	if db.tx != nil {
		return db.tx
	}
	return db.conn
}

// Atomically runs fn against a store bound to one transaction. fn's writes
// are committed together if it returns nil and rolled back otherwise.
// Called on a DB that is already inside a transaction, it simply reuses it.
func (db *DB) Atomically(ctx context.Context, fn func(repository.Store) error) error {
	if db.tx != nil {
		return fn(db)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&DB{conn: db.conn, tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// inTx runs fn inside the current transaction, or a new one that is
// committed when fn succeeds.
//
// WHY NOT JUST conn.BeginTx?
// The pool has a single connection. If the DB is already inside a
// transaction, that connection is busy and BeginTx would wait forever.
func (db *DB) inTx(ctx context.Context, fn func(q querier) error) error {
	if db.tx != nil {
		return fn(db.tx)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// migrate applies every pending migration from the embedded migrations/ dir.
//
// The migrate.Migrate instance is not closed: its database driver would
// close db.conn along with it.
func (db *DB) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading migration source: %w", err)
	}
	defer src.Close()

	dbDriver, err := sqlitemigrate.WithInstance(db.conn, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	// ErrNoChange just means the file is already at the latest version.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// Empty reports whether both tables are empty.
func (db *DB) Empty(ctx context.Context) (bool, error) {
	var count int
	err := db.q().QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM folders) + (SELECT COUNT(*) FROM notes)`,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: counting rows: %w", err)
	}
	return count == 0, nil
}
