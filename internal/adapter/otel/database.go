package otel

import (
	"database/sql"
	"fmt"

	"github.com/XSAM/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// startupPragmas are applied once per open. WAL lets status reads proceed
// while the ledger appends; foreign keys back the quote and lesson
// references in the schema.
var startupPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA foreign_keys=ON",
}

// OpenDB opens the service's SQLite database through otelsql, so every
// ledger append, quote insert, and queue poll shows up as a span, and the
// pool is reported as metrics.
func OpenDB(dataSourceName string) (*sql.DB, error) {
	db, err := otelsql.Open("sqlite", dataSourceName,
		otelsql.WithAttributes(semconv.DBSystemSqlite),
	)
	if err != nil {
		return nil, fmt.Errorf("opening instrumented database: %w", err)
	}

	// The ledger, the quote tables, and River's job queue all share this
	// file. One writer connection keeps SQLITE_BUSY out of the picture.
	db.SetMaxOpenConns(1)

	for _, pragma := range startupPragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("applying %q: %w", pragma, err)
		}
	}

	if _, err := otelsql.RegisterDBStatsMetrics(db,
		otelsql.WithAttributes(semconv.DBSystemSqlite),
	); err != nil {
		return nil, fmt.Errorf("registering db stats metrics: %w", err)
	}

	return db, nil
}
