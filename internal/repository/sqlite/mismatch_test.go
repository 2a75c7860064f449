package sqlite_test

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rigwild/raspberry-instock-check/internal/repository"
	"github.com/rigwild/raspberry-instock-check/internal/repository/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Integration Tests (using a real temporary database)
// =============================================================================

// newTestDB creates a repository backed by a temporary database file.
func newTestDB(t *testing.T, keep int) *sqlite.Repository {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	repo, err := sqlite.NewRepository(t.Context(), logger, dbPath, keep)
	require.NoError(t, err, "failed to create test database")

	t.Cleanup(func() {
		if err = repo.Close(); err != nil {
			t.Logf("failed to close test database: %v", err)
		}
	})

	return repo
}

func TestRepository_Integration_Mismatches(t *testing.T) {
	// Arrange: Create a repository with a clean temporary database.
	repo := newTestDB(t, 10)
	ctx := t.Context()

	payloadA := []byte(`{"data":[{"sku":"CM4","avail":"Yes"}]}`)
	payloadB := []byte(`{"data":[]}`)
	var id string

	t.Run("get_from_empty_db", func(t *testing.T) {
		// Act
		_, err := repo.GetMismatch(ctx, "missing")
		// Assert: Expect the custom "not found" error.
		require.ErrorIs(t, err, repository.ErrMismatchNotFound)
	})

	t.Run("save", func(t *testing.T) {
		// Act
		var err error
		id, err = repo.SaveMismatch(ctx, payloadA, payloadB)
		// Assert
		require.NoError(t, err)
		require.NotEmpty(t, id)
	})

	t.Run("get_saved_record", func(t *testing.T) {
		// Act
		m, err := repo.GetMismatch(ctx, id)
		// Assert
		require.NoError(t, err)
		assert.Equal(t, id, m.ID)
		assert.Equal(t, payloadA, m.PayloadA)
		assert.Equal(t, payloadB, m.PayloadB)
		assert.Equal(t, len(payloadA), m.SizeA)
		assert.Equal(t, len(payloadB), m.SizeB)
		assert.WithinDuration(t, time.Now(), m.CapturedAt, time.Minute)
	})

	t.Run("list_without_payloads", func(t *testing.T) {
		// Act
		list, err := repo.ListMismatches(ctx, 5)
		// Assert
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, id, list[0].ID)
		assert.Nil(t, list[0].PayloadA)
		assert.Equal(t, len(payloadA), list[0].SizeA)
	})
}

func TestRepository_Integration_SaveTrimsToKeep(t *testing.T) {
	repo := newTestDB(t, 2)
	ctx := t.Context()

	var last string
	for range 4 {
		id, err := repo.SaveMismatch(ctx, []byte("a"), []byte("b"))
		require.NoError(t, err)
		last = id
	}

	list, err := repo.ListMismatches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, last, list[0].ID)

	removed, err := repo.TrimMismatches(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	list, err = repo.ListMismatches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, last, list[0].ID)
}

// =============================================================================
// Unit Tests (using sqlmock for failure scenarios)
// =============================================================================

// newMockedRepo creates a repository with a mocked database connection for testing failures.
func newMockedRepo(t *testing.T) (*sqlite.Repository, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := sqlite.NewForTest(mockDB, 3)

	t.Cleanup(func() { mockDB.Close() })

	return repo, mock
}

func TestRepository_SaveMismatch_Failures(t *testing.T) {
	ctx := t.Context()

	t.Run("error_on_begin_transaction", func(t *testing.T) {
		// Arrange
		repo, mock := newMockedRepo(t)
		expectedErr := errors.New("cannot start transaction")
		mock.ExpectBegin().WillReturnError(expectedErr)

		// Act
		_, err := repo.SaveMismatch(ctx, []byte("a"), []byte("b"))

		// Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), expectedErr.Error())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error_on_insert", func(t *testing.T) {
		// Arrange
		repo, mock := newMockedRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO mismatches").
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), 1, 2, []byte("a"), []byte("bb")).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		// Act
		_, err := repo.SaveMismatch(ctx, []byte("a"), []byte("bb"))

		// Assert
		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "failed to insert mismatch")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error_on_trim", func(t *testing.T) {
		// Arrange
		repo, mock := newMockedRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO mismatches").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("DELETE FROM mismatches").WithArgs(3).WillReturnError(assert.AnError)
		mock.ExpectRollback()

		// Act
		_, err := repo.SaveMismatch(ctx, []byte("a"), []byte("b"))

		// Assert
		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "failed to trim mismatches")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error_on_commit", func(t *testing.T) {
		// Arrange
		repo, mock := newMockedRepo(t)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO mismatches").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("DELETE FROM mismatches").WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit().WillReturnError(errors.New("commit failed"))

		// Act
		_, err := repo.SaveMismatch(ctx, []byte("a"), []byte("b"))

		// Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to commit transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_GetMismatch_Failures(t *testing.T) {
	ctx := t.Context()

	t.Run("error_on_query", func(t *testing.T) {
		// Arrange
		repo, mock := newMockedRepo(t)
		mock.ExpectQuery("SELECT id, captured_at, size_a, size_b, payload_a, payload_b FROM mismatches").
			WithArgs("x").
			WillReturnError(assert.AnError)

		// Act
		_, err := repo.GetMismatch(ctx, "x")

		// Assert
		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "repository.sqlite.GetMismatch")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_ListMismatches_Failures(t *testing.T) {
	ctx := t.Context()

	t.Run("error_on_query", func(t *testing.T) {
		// Arrange
		repo, mock := newMockedRepo(t)
		mock.ExpectQuery("SELECT id, captured_at, size_a, size_b FROM mismatches").
			WithArgs(5).
			WillReturnError(assert.AnError)

		// Act
		_, err := repo.ListMismatches(ctx, 5)

		// Assert
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error_on_scan", func(t *testing.T) {
		// Arrange
		repo, mock := newMockedRepo(t)
		rows := sqlmock.NewRows([]string{"id", "captured_at", "size_a", "size_b"}).
			AddRow("id-1", "not a time", "x", "y")
		mock.ExpectQuery("SELECT id, captured_at, size_a, size_b FROM mismatches").WillReturnRows(rows)

		// Act
		_, err := repo.ListMismatches(ctx, 5)

		// Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to scan mismatch")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error_on_rows", func(t *testing.T) {
		// Arrange
		repo, mock := newMockedRepo(t)
		rows := sqlmock.NewRows([]string{"id", "captured_at", "size_a", "size_b"}).
			AddRow("id-1", time.Now(), 1, 1).
			RowError(0, assert.AnError)
		mock.ExpectQuery("SELECT id, captured_at, size_a, size_b FROM mismatches").WillReturnRows(rows)

		// Act
		_, err := repo.ListMismatches(ctx, 5)

		// Assert
		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "rows iteration error")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_TrimMismatches(t *testing.T) {
	ctx := t.Context()

	t.Run("error_on_exec", func(t *testing.T) {
		// Arrange
		repo, mock := newMockedRepo(t)
		mock.ExpectExec("DELETE FROM mismatches").WithArgs(5).WillReturnError(assert.AnError)

		// Act
		_, err := repo.TrimMismatches(ctx, 5)

		// Assert
		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "repository.sqlite.TrimMismatches")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("keep_below_one_uses_repository_bound", func(t *testing.T) {
		// Arrange
		repo, mock := newMockedRepo(t)
		mock.ExpectExec("DELETE FROM mismatches").WithArgs(3).WillReturnResult(sqlmock.NewResult(0, 2))

		// Act
		removed, err := repo.TrimMismatches(ctx, 0)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, int64(2), removed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		// Arrange
		repo, mock := newMockedRepo(t)
		mock.ExpectExec("DELETE FROM mismatches").WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 4))

		// Act
		removed, err := repo.TrimMismatches(ctx, 5)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, int64(4), removed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
