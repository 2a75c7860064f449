package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rigwild/raspberry-instock-check/internal/models"
	"github.com/rigwild/raspberry-instock-check/internal/repository"
)

// SaveMismatch stores both payloads of a rejected cycle and trims the table to the newest records.
// It returns the id of the new record.
func (r *Repository) SaveMismatch(ctx context.Context, payloadA, payloadB []byte) (string, error) {
	const opn = "repository.sqlite.SaveMismatch"

	id := uuid.NewString()

	tx, err := r.db.BeginTx(ctx, nil) //nolint:varnamelen // tx its a default naming for transaction
	if err != nil {
		return "", fmt.Errorf("%s: failed to begin transaction: %w", opn, err)
	}
	defer tx.Rollback() //nolint:errcheck // returns sql.ErrTxDone after a successful commit

	_, err = tx.ExecContext(
		ctx,
		"INSERT INTO mismatches (id, captured_at, size_a, size_b, payload_a, payload_b) VALUES (?, ?, ?, ?, ?, ?)",
		id, r.now().UTC(), len(payloadA), len(payloadB), payloadA, payloadB,
	)
	if err != nil {
		return "", fmt.Errorf("%s: failed to insert mismatch: %w", opn, err)
	}

	if _, err = trim(ctx, tx, r.keep); err != nil {
		return "", fmt.Errorf("%s: %w", opn, err)
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("%s: failed to commit transaction: %w", opn, err)
	}

	r.log.DebugContext(ctx, "Mismatch stored", "op", opn, "id", id, "size_a", len(payloadA), "size_b", len(payloadB))
	return id, nil
}

// GetMismatch returns one record with its payloads.
func (r *Repository) GetMismatch(ctx context.Context, id string) (*models.Mismatch, error) {
	const opn = "repository.sqlite.GetMismatch"

	var m models.Mismatch
	err := r.db.QueryRowContext(
		ctx,
		"SELECT id, captured_at, size_a, size_b, payload_a, payload_b FROM mismatches WHERE id = ?",
		id,
	).Scan(&m.ID, &m.CapturedAt, &m.SizeA, &m.SizeB, &m.PayloadA, &m.PayloadB)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrMismatchNotFound
		}
		return nil, fmt.Errorf("%s: failed to get mismatch: %w", opn, err)
	}

	return &m, nil
}

// ListMismatches returns up to limit records, newest first, without payloads.
func (r *Repository) ListMismatches(ctx context.Context, limit int) ([]models.Mismatch, error) {
	const opn = "repository.sqlite.ListMismatches"

	rows, err := r.db.QueryContext(
		ctx,
		"SELECT id, captured_at, size_a, size_b FROM mismatches ORDER BY captured_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to list mismatches: %w", opn, err)
	}
	defer rows.Close()

	var list []models.Mismatch
	for rows.Next() {
		var m models.Mismatch
		if err = rows.Scan(&m.ID, &m.CapturedAt, &m.SizeA, &m.SizeB); err != nil {
			return nil, fmt.Errorf("%s: failed to scan mismatch: %w", opn, err)
		}
		list = append(list, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows iteration error: %w", opn, err)
	}

	return list, nil
}

// TrimMismatches deletes all but the keep newest records and returns how many were removed.
// A keep below 1 uses the bound the repository was opened with.
func (r *Repository) TrimMismatches(ctx context.Context, keep int) (int64, error) {
	const opn = "repository.sqlite.TrimMismatches"

	if keep < 1 {
		keep = r.keep
	}

	removed, err := trim(ctx, r.db, keep)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", opn, err)
	}
	return removed, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func trim(ctx context.Context, db execer, keep int) (int64, error) {
	res, err := db.ExecContext(
		ctx,
		"DELETE FROM mismatches WHERE id NOT IN (SELECT id FROM mismatches ORDER BY captured_at DESC LIMIT ?)",
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to trim mismatches: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count trimmed mismatches: %w", err)
	}
	return removed, nil
}
