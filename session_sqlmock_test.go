package scurry_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/scurrydb/scurry"
	"github.com/scurrydb/scurry/database"
	"github.com/scurrydb/scurry/internal/dialect/dialectquery"
	"github.com/stretchr/testify/require"
)

// These tests pin down the exact statements sent to databases the test suite cannot start:
// locking, savepoint naming, and how nested scopes are opened and closed.

var (
	historyColumns = []string{"id", "migration_date", "script_hash", "script_name", "script_version"}
	testTime       = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
)

func TestSessionStatementsPostgres(t *testing.T) {
	t.Parallel()

	q := &dialectquery.Postgres{}
	const table = "_scurry"
	fsys := twoScripts()

	t.Run("migrate_and_commit", func(t *testing.T) {
		ctx := context.Background()
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q.TableExists(table)).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(q.CreateTable(table)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(q.LockTable(table)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(q.ListMigrations(table)).WillReturnRows(sqlmock.NewRows(historyColumns))
		for i, file := range []string{"migrations/001__users.sql", "migrations/002__posts.sql"} {
			sp := []string{"scurry_sp_1", "scurry_sp_2"}[i]
			version := []string{"001", "002"}[i]
			name := []string{"users", "posts"}[i]
			mock.ExpectExec("SAVEPOINT " + sp).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectExec(string(fsys[file].Data)).WillReturnResult(sqlmock.NewResult(0, 0))
			mock.ExpectExec(q.InsertVersion(table)).
				WithArgs(sha1Hex(fsys[file].Data), name, version, sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(1, 1))
			mock.ExpectExec("RELEASE SAVEPOINT " + sp).WillReturnResult(sqlmock.NewResult(0, 0))
		}
		mock.ExpectCommit()

		var locked bool
		s := openMock(t, db, database.DialectPostgres, fsys, scurry.WithObserver(
			scurry.ObserverFunc(func(_ context.Context, e scurry.Event) {
				if e.Type == scurry.LockAcquired {
					locked = true
				}
			}),
		))
		n, err := s.Migrate(ctx, scurry.Latest())
		require.NoError(t, err)
		require.Equal(t, 2, n)
		require.True(t, locked)
		require.NoError(t, s.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("failure_rolls_back_savepoint_only", func(t *testing.T) {
		ctx := context.Background()
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q.TableExists(table)).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectExec(q.LockTable(table)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(q.ListMigrations(table)).WillReturnRows(
			sqlmock.NewRows(historyColumns).AddRow(1, testTime, sha1Hex(fsys["migrations/001__users.sql"].Data), "users", "001"),
		)
		mock.ExpectExec("SAVEPOINT scurry_sp_1").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(string(fsys["migrations/002__posts.sql"].Data)).WillReturnError(errors.New("relation exists"))
		mock.ExpectExec("ROLLBACK TO SAVEPOINT scurry_sp_1").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		s := openMock(t, db, database.DialectPostgres, fsys)
		n, err := s.Migrate(ctx, scurry.Latest())
		require.Error(t, err)
		require.Equal(t, 0, n)
		var partialErr *scurry.PartialError
		require.True(t, errors.As(err, &partialErr))
		require.Equal(t, "002", partialErr.Failed.Version)
		require.Empty(t, partialErr.Applied)
		require.Contains(t, err.Error(), "relation exists")
		require.NoError(t, s.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("validation_failure_applies_nothing", func(t *testing.T) {
		ctx := context.Background()
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q.TableExists(table)).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectExec(q.LockTable(table)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(q.ListMigrations(table)).WillReturnRows(
			sqlmock.NewRows(historyColumns).AddRow(1, testTime, "0000", "users", "001"),
		)
		mock.ExpectRollback()

		s := openMock(t, db, database.DialectPostgres, fsys)
		_, err := s.Migrate(ctx, scurry.Latest())
		require.ErrorIs(t, err, scurry.ErrHashMismatch)
		require.NoError(t, s.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("history_in_collation_order", func(t *testing.T) {
		// Case-insensitive collations return "a" before "B"; versions compare byte-wise.
		ctx := context.Background()
		mixed := fstest.MapFS{
			"migrations/B__one.sql": sqlFile("CREATE TABLE one (id int);"),
			"migrations/a__two.sql": sqlFile("CREATE TABLE two (id int);"),
		}
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q.TableExists(table)).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectExec(q.LockTable(table)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(q.ListMigrations(table)).WillReturnRows(
			sqlmock.NewRows(historyColumns).
				AddRow(2, testTime, sha1Hex(mixed["migrations/a__two.sql"].Data), "two", "a").
				AddRow(1, testTime, sha1Hex(mixed["migrations/B__one.sql"].Data), "one", "B"),
		)
		mock.ExpectCommit()

		s := openMock(t, db, database.DialectPostgres, mixed)
		n, err := s.Migrate(ctx, scurry.Latest())
		require.NoError(t, err)
		require.Equal(t, 0, n)
		require.NoError(t, s.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})
	t.Run("mark", func(t *testing.T) {
		ctx := context.Background()
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(q.TableExists(table)).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectExec(q.LockTable(table)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("SAVEPOINT scurry_sp_1").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(q.DeleteAll(table)).WillReturnResult(sqlmock.NewResult(0, 5))
		mock.ExpectExec(q.InsertVersion(table)).
			WithArgs(sha1Hex(fsys["migrations/001__users.sql"].Data), "users", "001", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("RELEASE SAVEPOINT scurry_sp_1").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		s := openMock(t, db, database.DialectPostgres, fsys)
		require.NoError(t, s.SetSchemaLevel(ctx, scurry.Specific("001")))
		require.NoError(t, s.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSessionStatementsSQLServer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := &dialectquery.Sqlserver{}
	const table = "_scurry"
	fsys := twoScripts()
	delete(fsys, "migrations/002__posts.sql")

	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(q.TableExists(table)).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(q.LockTable(table)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q.ListMigrations(table)).WillReturnRows(sqlmock.NewRows(historyColumns))
	mock.ExpectExec("SAVE TRANSACTION scurry_sp_1").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(string(fsys["migrations/001__users.sql"].Data)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q.InsertVersion(table)).
		WithArgs(sha1Hex(fsys["migrations/001__users.sql"].Data), "users", "001", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	// SQL Server has no savepoint release.
	mock.ExpectCommit()

	s := openMock(t, db, database.DialectMSSQL, fsys)
	n, err := s.Migrate(ctx, scurry.Latest())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, s.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStatementsMySQL(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := &dialectquery.Mysql{}
	const table = "_scurry"
	fsys := twoScripts()

	db, mock := newMock(t)
	// No outer transaction: DDL commits implicitly on MySQL.
	mock.ExpectQuery(q.TableExists(table)).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(q.CreateTable(table)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q.TryLock()).WithArgs("scurry:_scurry").
		WillReturnRows(sqlmock.NewRows([]string{"lock"}).AddRow(1))
	mock.ExpectQuery(q.ListMigrations(table)).WillReturnRows(sqlmock.NewRows(historyColumns))
	mock.ExpectBegin()
	mock.ExpectExec(string(fsys["migrations/001__users.sql"].Data)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q.InsertVersion(table)).
		WithArgs(sha1Hex(fsys["migrations/001__users.sql"].Data), "users", "001", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec(string(fsys["migrations/002__posts.sql"].Data)).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()
	mock.ExpectQuery(q.Unlock()).WithArgs("scurry:_scurry").
		WillReturnRows(sqlmock.NewRows([]string{"released"}).AddRow(1))

	s := openMock(t, db, database.DialectMySQL, fsys)
	n, err := s.Migrate(ctx, scurry.Latest())
	require.Error(t, err)
	require.Equal(t, 1, n)
	require.Contains(t, err.Error(), "boom")
	require.NoError(t, s.Rollback())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionStatementsClickHouse(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	q := &dialectquery.Clickhouse{}
	const table = "_scurry"
	fsys := twoScripts()
	delete(fsys, "migrations/002__posts.sql")

	db, mock := newMock(t)
	// No transactions and no lock at all.
	mock.ExpectQuery(q.TableExists(table)).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(q.ListMigrations(table)).WillReturnRows(sqlmock.NewRows(historyColumns))
	mock.ExpectExec(string(fsys["migrations/001__users.sql"].Data)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(q.InsertVersion(table)).
		WithArgs(sha1Hex(fsys["migrations/001__users.sql"].Data), "users", "001", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	s := openMock(t, db, database.DialectClickHouse, fsys)
	n, err := s.Migrate(ctx, scurry.Latest())
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, s.Commit())
	require.NoError(t, mock.ExpectationsWereMet())
}

func twoScripts() fstest.MapFS {
	return fstest.MapFS{
		"migrations/001__users.sql": sqlFile("CREATE TABLE users (id int)"),
		"migrations/002__posts.sql": sqlFile("CREATE TABLE posts (id int)"),
	}
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func openMock(
	t *testing.T,
	db *sql.DB,
	dialect database.Dialect,
	fsys fstest.MapFS,
	opts ...scurry.SessionOption,
) *scurry.Session {
	t.Helper()
	opts = append(opts, scurry.WithFilesystem(fsys))
	s, err := scurry.Open(context.Background(), db, dialect, "migrations", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
