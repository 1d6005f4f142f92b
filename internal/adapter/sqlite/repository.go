package sqlite

import (
	"database/sql"
	"embed"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/lessonforge/lessonforge/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time checks: Repository implements every persistence port.
var (
	_ domain.LedgerStore             = (*Repository)(nil)
	_ domain.LessonRequestRepository = (*Repository)(nil)
	_ domain.QuoteRepository         = (*Repository)(nil)
	_ domain.LessonRepository        = (*Repository)(nil)
	_ domain.TeacherDirectory        = (*Repository)(nil)
	_ domain.RosterRepository        = (*Repository)(nil)
	_ domain.ObjectiveRepository     = (*Repository)(nil)
)

// Repository implements the persistence ports using SQLite. One engine owns
// every table so the quote uniqueness constraint and the status ledger share
// a single source of truth.
type Repository struct {
	db *sql.DB
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string) (*Repository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db)
}

// NewFromDB wraps an existing database connection, runs migrations, and
// returns a ready repository. Use this when the *sql.DB has been
// pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB) (*Repository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters
// (e.g., river).
func (r *Repository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

const timeFormat = "2006-01-02T15:04:05.000000000Z"

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
