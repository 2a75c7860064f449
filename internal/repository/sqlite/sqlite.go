package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3" // driver registration
)

// DefaultKeep is the number of mismatch records kept when no limit is configured.
const DefaultKeep = 50

// Repository stores the diagnostic records of the consistency validator.
// Loop state is never written here; it lives in memory only.
type Repository struct {
	db   *sql.DB
	log  *slog.Logger
	keep int
	now  func() time.Time
}

// NewRepository opens (or creates) the database file at storagePath and migrates the schema.
// keep bounds the number of mismatch records retained; values below 1 select DefaultKeep.
func NewRepository(ctx context.Context, log *slog.Logger, storagePath string, keep int) (*Repository, error) {
	dtb, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", storagePath))
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err = dtb.PingContext(ctx); err != nil {
		dtb.Close()
		return nil, fmt.Errorf("unable to establish connection to database: %w", err)
	}

	if err = initSchema(ctx, dtb); err != nil {
		dtb.Close()
		return nil, fmt.Errorf("DB schema initialization error: %w", err)
	}

	return newRepository(dtb, log, keep), nil
}

// NewForTest wraps an existing connection without touching the schema.
func NewForTest(dtb *sql.DB, keep int) *Repository {
	return newRepository(dtb, slog.New(slog.DiscardHandler), keep)
}

func newRepository(dtb *sql.DB, log *slog.Logger, keep int) *Repository {
	if keep < 1 {
		keep = DefaultKeep
	}
	return &Repository{db: dtb, log: log, keep: keep, now: time.Now}
}

func initSchema(ctx context.Context, dtb *sql.DB) error {
	const migrationQuery = `
	CREATE TABLE IF NOT EXISTS mismatches (
		id TEXT PRIMARY KEY NOT NULL,
		captured_at DATETIME NOT NULL,
		size_a INTEGER NOT NULL,
		size_b INTEGER NOT NULL,
		payload_a BLOB,
		payload_b BLOB
	);

	CREATE INDEX IF NOT EXISTS idx_mismatches_captured_at ON mismatches (captured_at);
	`
	_, err := dtb.ExecContext(ctx, migrationQuery)
	if err != nil {
		return fmt.Errorf("failed to execute migration query: %w", err)
	}

	return nil
}

// Close closes the connection to the database.
func (r *Repository) Close() error {
	if err := r.db.Close(); err != nil {
		r.log.Error("failed to close the database", "op", "repository.sqlite.Close", "error", err)
		return fmt.Errorf("failed to close the database: %w", err)
	}

	return nil
}

// DB is a getter for database handler.
func (r *Repository) DB() *sql.DB {
	return r.db
}
