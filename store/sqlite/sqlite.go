/*
Package sqlite provides the SQLite-backed store of the student ledger.

PURPOSE:
  One Store holds every table of the service: users, students, attendance,
  results, fee invoices and payments. It implements fees.LedgerStore for the
  ledger and exposes plain methods for the academic records.

INTERFACES IMPLEMENTED:
  fees.Store:       invoice reads, payment inserts, cached status writes
  fees.TxStore:     WithTx for the atomic payment sequence
  fees.LedgerStore: invoice creation and listing

KEY TABLES:
  users:      login accounts (bcrypt hashes, role)
  students:   enrolment records, unique gmail address
  attendance: one row per student per marked day
  results:    exam marks with server-derived grade
  fees:       invoices; status is a cache, never read as truth
  payments:   partial settlements, unique idempotency_key

MONEY:
  Amounts are stored as decimal TEXT and summed in Go with
  shopspring/decimal. SQLite REAL would reintroduce float rounding.

TIMESTAMPS:
  Stored as fixed-width UTC text (timeLayout) so ORDER BY on the column is
  chronological and results created in the same instant compare equal.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. The DSN sets _txlock=immediate so a
  payment transaction takes the SQLite write lock at BEGIN, before it reads
  the paid total it validates against.

USAGE:
  store, err := sqlite.New("./data/school.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := fees.NewLedger(store)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - fees/store.go: Ledger interface definitions
  - fees/store/memory.go: In-memory ledger store for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/student-ledger/generic"
)

// timeLayout is RFC3339 with fixed nanoseconds so text order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements all storage of the service using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	// Now stamps created_at columns. Defaults to the wall clock.
	Now func() time.Time
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, Now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection (used by /health).
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'user',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS students (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		age INTEGER NOT NULL CHECK (age BETWEEN 1 AND 150),
		course TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		photo TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_students_name ON students(name);

	CREATE TABLE IF NOT EXISTS attendance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		date TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('present', 'absent', 'late')),
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_student_date
		ON attendance(student_id, date DESC);

	CREATE TABLE IF NOT EXISTS results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		subject TEXT NOT NULL,
		term TEXT NOT NULL DEFAULT 'Term 1',
		marks INTEGER NOT NULL CHECK (marks BETWEEN 0 AND 100),
		grade TEXT NOT NULL,
		remarks TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_student_created
		ON results(student_id, created_at DESC);

	-- Invoices. status is a cache refreshed by payments and the status sync.
	CREATE TABLE IF NOT EXISTS fees (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id INTEGER NOT NULL REFERENCES students(id) ON DELETE CASCADE,
		amount TEXT NOT NULL,
		due_date TEXT,
		status TEXT NOT NULL DEFAULT 'pending',
		description TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_fees_student ON fees(student_id);

	CREATE TABLE IF NOT EXISTS payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fee_id INTEGER NOT NULL REFERENCES fees(id) ON DELETE CASCADE,
		amount TEXT NOT NULL,
		method TEXT NOT NULL DEFAULT 'cash',
		paid_at TEXT NOT NULL,
		idempotency_key TEXT UNIQUE
	);

	CREATE INDEX IF NOT EXISTS idx_payments_fee ON payments(fee_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all school data (for demo scenarios). User accounts survive
// so the caller stays logged in.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"payments", "fees", "results", "attendance", "students"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, "DELETE FROM sqlite_sequence WHERE name = ?", table); err != nil {
			return err
		}
	}
	return nil
}

// inTx runs fn in a database transaction. Callers hold s.mu.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(sqlTx); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Helper functions

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, v)
	}
	return t
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d *generic.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func scanDate(v sql.NullString) *generic.Date {
	if !v.Valid || v.String == "" {
		return nil
	}
	d, err := generic.ParseDate(v.String)
	if err != nil {
		return nil
	}
	return &d
}

func isUniqueConstraintError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey)
}

func isForeignKeyError(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
