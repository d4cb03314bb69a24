package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/scurrydb/scurry/internal/dialect/dialectquery"
	"github.com/sethvargo/go-retry"
)

// Dialect is the type of database dialect.
type Dialect string

const (
	DialectClickHouse Dialect = "clickhouse"
	DialectMSSQL      Dialect = "mssql"
	DialectMySQL      Dialect = "mysql"
	DialectPostgres   Dialect = "postgres"
	DialectRedshift   Dialect = "redshift"
	DialectSQLite3    Dialect = "sqlite3"
	DialectTiDB       Dialect = "tidb"
	DialectTurso      Dialect = "turso"
	DialectVertica    Dialect = "vertica"

	// DialectCustom is a special dialect that allows users to provide their own [Store]
	// implementation when opening a scurry session.
	DialectCustom Dialect = "custom"
)

// ErrUnknownDialect is returned by ParseDialect for names that match no known dialect.
var ErrUnknownDialect = errors.New("unknown dialect")

// ParseDialect maps a dialect name or one of its common aliases (such as a database/sql driver
// name) to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	case "mysql", "mymysql":
		return DialectMySQL, nil
	case "sqlite3", "sqlite":
		return DialectSQLite3, nil
	case "mssql", "azuresql", "sqlserver":
		return DialectMSSQL, nil
	case "redshift":
		return DialectRedshift, nil
	case "tidb":
		return DialectTiDB, nil
	case "clickhouse":
		return DialectClickHouse, nil
	case "vertica":
		return DialectVertica, nil
	case "turso", "libsql":
		return DialectTurso, nil
	default:
		return "", ErrUnknownDialect
	}
}

type dialectInfo struct {
	querier          dialectquery.Querier
	transactionalDDL bool
	transactions     bool
}

func lookupDialect(d Dialect) (dialectInfo, bool) {
	switch d {
	case DialectPostgres:
		return dialectInfo{&dialectquery.Postgres{}, true, true}, true
	case DialectSQLite3:
		return dialectInfo{&dialectquery.Sqlite3{}, true, true}, true
	case DialectMSSQL:
		return dialectInfo{&dialectquery.Sqlserver{}, true, true}, true
	case DialectMySQL:
		return dialectInfo{&dialectquery.Mysql{}, false, true}, true
	case DialectTiDB:
		return dialectInfo{&dialectquery.Tidb{}, false, true}, true
	case DialectRedshift:
		return dialectInfo{&dialectquery.Redshift{}, false, true}, true
	case DialectVertica:
		return dialectInfo{&dialectquery.Vertica{}, false, true}, true
	case DialectTurso:
		return dialectInfo{&dialectquery.Turso{}, false, true}, true
	case DialectClickHouse:
		return dialectInfo{&dialectquery.Clickhouse{}, false, false}, true
	}
	return dialectInfo{}, false
}

// NewStore returns a new [Store] backed by the given dialect.
func NewStore(dialect Dialect, tablename string, opts ...StoreOption) (Store, error) {
	if tablename == "" {
		return nil, errors.New("tablename must not be empty")
	}
	if dialect == "" {
		return nil, errors.New("dialect must not be empty")
	}
	if dialect == DialectCustom {
		return nil, errors.New("dialect must not be custom")
	}
	info, ok := lookupDialect(dialect)
	if !ok {
		return nil, fmt.Errorf("unknown dialect: %q", dialect)
	}
	cfg := storeConfig{
		lockInterval:   2 * time.Second,
		lockTimeout:    60 * time.Minute,
		unlockInterval: 2 * time.Second,
		unlockTimeout:  1 * time.Minute,
	}
	for _, opt := range opts {
		if err := opt.apply(&cfg); err != nil {
			return nil, err
		}
	}
	s := &store{
		tablename:  tablename,
		querier:    info.querier,
		lockConfig: cfg,
	}
	_, tableLock := info.querier.(dialectquery.TableLocker)
	_, sessionLock := info.querier.(dialectquery.SessionLocker)
	s.capabilities = Capabilities{
		TransactionalDDL: info.transactionalDDL,
		Transactions:     info.transactions,
		Locking:          tableLock || sessionLock,
	}
	return s, nil
}

// StoreOption configures a Store returned by [NewStore].
type StoreOption interface {
	apply(*storeConfig) error
}

type storeConfig struct {
	lockInterval   time.Duration
	lockTimeout    time.Duration
	unlockInterval time.Duration
	unlockTimeout  time.Duration
}

type storeOptionFunc func(*storeConfig) error

func (f storeOptionFunc) apply(cfg *storeConfig) error { return f(cfg) }

// WithLockBackoff sets how often a session lock is polled and how long to keep polling before
// giving up. It only affects dialects whose lock is a named session lock (MySQL). Both values
// must be positive.
func WithLockBackoff(interval, timeout time.Duration) StoreOption {
	return storeOptionFunc(func(cfg *storeConfig) error {
		if interval <= 0 || timeout <= 0 {
			return errors.New("lock interval and timeout must be positive")
		}
		cfg.lockInterval = interval
		cfg.lockTimeout = timeout
		return nil
	})
}

type store struct {
	tablename    string
	querier      dialectquery.Querier
	capabilities Capabilities
	lockConfig   storeConfig
}

var _ Store = (*store)(nil)

func (s *store) Tablename() string {
	return s.tablename
}

func (s *store) Capabilities() Capabilities {
	return s.capabilities
}

func (s *store) TableExists(ctx context.Context, db DBTxConn) (bool, error) {
	q := s.querier.TableExists(s.tablename)
	var count int64
	if err := db.QueryRowContext(ctx, q).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check if table exists: %w", err)
	}
	return count > 0, nil
}

func (s *store) CreateVersionTable(ctx context.Context, db DBTxConn) error {
	q := s.querier.CreateTable(s.tablename)
	if _, err := db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("failed to create version table %q: %w", s.tablename, err)
	}
	return nil
}

func (s *store) Insert(ctx context.Context, db DBTxConn, req InsertRequest) error {
	appliedAt := req.AppliedAt
	if appliedAt.IsZero() {
		appliedAt = time.Now()
	}
	q := s.querier.InsertVersion(s.tablename)
	if _, err := db.ExecContext(ctx, q, req.ScriptHash, req.ScriptName, req.ScriptVersion, appliedAt.UTC()); err != nil {
		return fmt.Errorf("failed to insert version %s: %w", req.ScriptVersion, err)
	}
	return nil
}

func (s *store) ListMigrations(ctx context.Context, db DBTxConn) ([]*HistoryEntry, error) {
	q := s.querier.ListMigrations(s.tablename)
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.AppliedAt, &e.ScriptHash, &e.ScriptName, &e.ScriptVersion); err != nil {
			return nil, fmt.Errorf("failed to scan list migrations result: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*HistoryEntry{}
	}
	// ORDER BY follows the column collation, which need not be byte order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ScriptVersion < entries[j].ScriptVersion
	})
	return entries, nil
}

func (s *store) DeleteAll(ctx context.Context, db DBTxConn) error {
	q := s.querier.DeleteAll(s.tablename)
	if _, err := db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("failed to delete history: %w", err)
	}
	return nil
}

// Savepoint and friends are picked up by StoreController.

func (s *store) Savepoint(name string) string {
	if sp, ok := s.querier.(dialectquery.Savepointer); ok {
		return sp.Savepoint(name)
	}
	return "SAVEPOINT " + name
}

func (s *store) ReleaseSavepoint(name string) string {
	if sp, ok := s.querier.(dialectquery.Savepointer); ok {
		return sp.ReleaseSavepoint(name)
	}
	return "RELEASE SAVEPOINT " + name
}

func (s *store) RollbackToSavepoint(name string) string {
	if sp, ok := s.querier.(dialectquery.Savepointer); ok {
		return sp.RollbackToSavepoint(name)
	}
	return "ROLLBACK TO SAVEPOINT " + name
}

func (s *store) Lock(ctx context.Context, db DBTxConn) error {
	switch q := s.querier.(type) {
	case dialectquery.TableLocker:
		if _, err := db.ExecContext(ctx, q.LockTable(s.tablename)); err != nil {
			return fmt.Errorf("failed to lock table %q: %w", s.tablename, err)
		}
		return nil
	case dialectquery.SessionLocker:
		// A fresh backoff per call; retry backoffs are stateful.
		backoff := retry.WithMaxDuration(s.lockConfig.lockTimeout, retry.NewConstant(s.lockConfig.lockInterval))
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			var acquired sql.NullInt64
			if err := db.QueryRowContext(ctx, q.TryLock(), s.lockName()).Scan(&acquired); err != nil {
				return fmt.Errorf("failed to execute lock query: %w", err)
			}
			if !acquired.Valid || acquired.Int64 != 1 {
				return retry.RetryableError(errors.New("lock held by another session"))
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to acquire lock %q: %w", s.lockName(), err)
		}
		return nil
	}
	return nil
}

func (s *store) Unlock(ctx context.Context, db DBTxConn) error {
	q, ok := s.querier.(dialectquery.SessionLocker)
	if !ok {
		return nil
	}
	backoff := retry.WithMaxDuration(s.lockConfig.unlockTimeout, retry.NewConstant(s.lockConfig.unlockInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var released sql.NullInt64
		if err := db.QueryRowContext(ctx, q.Unlock(), s.lockName()).Scan(&released); err != nil {
			return retry.RetryableError(fmt.Errorf("failed to execute unlock query: %w", err))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to release lock %q: %w", s.lockName(), err)
	}
	return nil
}

func (s *store) lockName() string {
	return "scurry:" + s.tablename
}
