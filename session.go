package scurry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/scurrydb/scurry/database"
	"go.uber.org/multierr"
)

// Session applies migration scripts from a directory to a single database connection.
//
// The first operation that writes (Migrate or SetSchemaLevel) opens the outer scope: a
// transaction when the database can roll back schema changes, otherwise the bare connection. The
// scope, and the lock on the history table taken with it, stay open until Commit, Rollback or
// Close. Nothing is committed implicitly.
//
// A Session is meant to be driven by a single goroutine. Methods serialize on an internal mutex.
type Session struct {
	mu sync.Mutex

	conn  *sql.Conn
	store *database.StoreController
	caps  database.Capabilities
	fsys  fs.FS
	dir   string

	logger    *slog.Logger
	observers []Observer

	// Outer scope state.
	scopeOpen bool
	tx        *sql.Tx
	locked    bool
	spSeq     int

	warnedNoLock bool
	closed       bool
}

// Open pins a connection from db and returns a Session reading migration scripts from dir.
//
// The caller is responsible for matching the database dialect with the database/sql driver. For
// example, if the database dialect is "postgres", the database/sql driver could be
// github.com/jackc/pgx/v5/stdlib. To use a Store of your own, pass [database.DialectCustom] and
// [WithStore].
//
// Each script is sent to the database in a single Exec call. Drivers that refuse multi-statement
// text by default must be configured to accept it; for github.com/go-sql-driver/mysql set
// multiStatements=true in the DSN.
//
// See [SessionOption] for more information on configuring the session.
func Open(
	ctx context.Context,
	db *sql.DB,
	dialect database.Dialect,
	dir string,
	opts ...SessionOption,
) (*Session, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	if dialect == "" {
		return nil, errors.New("dialect must not be empty")
	}
	if dir == "" {
		return nil, errors.New("dir must not be empty")
	}
	var cfg config
	for _, opt := range opts {
		if err := opt.apply(&cfg); err != nil {
			return nil, err
		}
	}
	// Set defaults after applying user-supplied options so option funcs can check for empty values.
	if cfg.tableName == "" {
		cfg.tableName = DefaultTablename
	}
	if cfg.fsys == nil {
		cfg.fsys = osFS{}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	var store database.Store
	if dialect == database.DialectCustom {
		if cfg.store == nil {
			return nil, errors.New("custom dialect requires a store, see WithStore")
		}
		store = cfg.store
	} else {
		if cfg.store != nil {
			return nil, fmt.Errorf("WithStore requires the %q dialect, got %q", database.DialectCustom, dialect)
		}
		var storeOpts []database.StoreOption
		if cfg.lockInterval > 0 {
			storeOpts = append(storeOpts, database.WithLockBackoff(cfg.lockInterval, cfg.lockMaxDuration))
		}
		var err error
		store, err = database.NewStore(dialect, cfg.tableName, storeOpts...)
		if err != nil {
			return nil, err
		}
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, sqlError("open connection", err)
	}
	return &Session{
		conn:      conn,
		store:     database.NewStoreController(store),
		caps:      store.Capabilities(),
		fsys:      cfg.fsys,
		dir:       dir,
		logger:    cfg.logger.With(slog.String("logger", "scurry")),
		observers: cfg.observers,
	}, nil
}

// AvailableVersions loads the migration scripts from the session directory, sorted by version.
// Scripts are hashed on every call.
func (s *Session) AvailableVersions() ([]*Version, error) {
	return collectVersions(s.fsys, s.dir)
}

// History returns the applied migrations in ascending version order. When the outer scope is
// open it reads through it, so rows written by this session are visible. A missing history table
// yields an empty history.
func (s *Session) History(ctx context.Context) ([]*database.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.readHistory(ctx)
}

// Differences compares the available scripts with the applied history position by position and
// returns every script that is not applied as is. It does not modify the database.
func (s *Session) Differences(ctx context.Context) ([]*Difference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	catalog, err := collectVersions(s.fsys, s.dir)
	if err != nil {
		return nil, err
	}
	history, err := s.readHistory(ctx)
	if err != nil {
		return nil, err
	}
	return historyDifferences(catalog, history), nil
}

// Commit commits the outer scope and releases the history table lock. It is a no-op when no scope
// is open.
func (s *Session) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.endScope(true)
}

// Rollback rolls back the outer scope and releases the history table lock. Scripts applied on
// databases without transactional DDL stay applied. It is a no-op when no scope is open.
func (s *Session) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	return s.endScope(false)
}

// Close rolls back an outer scope that was neither committed nor rolled back and returns the
// pinned connection to the pool. Close is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return multierr.Append(s.endScope(false), s.conn.Close())
}

// querier returns the handle statements run on: the outer transaction when there is one.
func (s *Session) querier() database.DBTxConn {
	if s.tx != nil {
		return s.tx
	}
	return s.conn
}

func (s *Session) readHistory(ctx context.Context) ([]*database.HistoryEntry, error) {
	q := s.querier()
	exists, err := s.store.TableExists(ctx, q)
	if err != nil {
		return nil, sqlError("read history", err)
	}
	if !exists {
		return []*database.HistoryEntry{}, nil
	}
	history, err := s.store.ListMigrations(ctx, q)
	if err != nil {
		return nil, sqlError("read history", err)
	}
	return history, nil
}

// beginScope opens the outer scope, creates the history table when it is missing and locks it.
// Calling it with the scope already open is a no-op.
func (s *Session) beginScope(ctx context.Context) (retErr error) {
	if s.scopeOpen {
		return nil
	}
	if s.caps.TransactionalDDL {
		tx, err := s.conn.BeginTx(ctx, nil)
		if err != nil {
			return sqlError("begin transaction", err)
		}
		s.tx = tx
	}
	s.scopeOpen = true
	defer func() {
		if retErr != nil {
			retErr = multierr.Append(retErr, s.endScope(false))
		}
	}()
	if err := s.ensureVersionTable(ctx); err != nil {
		return err
	}
	if !s.caps.Locking {
		if !s.warnedNoLock {
			s.logger.WarnContext(ctx, "database does not support locking, concurrent runs are not serialized",
				slog.String("table", s.store.Tablename()))
			s.warnedNoLock = true
		}
		return nil
	}
	if err := s.store.Lock(ctx, s.querier()); err != nil {
		return sqlError("lock history table", err)
	}
	s.locked = true
	s.logger.DebugContext(ctx, "locked table", slog.String("table", s.store.Tablename()))
	s.observe(ctx, Event{Type: LockAcquired})
	return nil
}

func (s *Session) ensureVersionTable(ctx context.Context) error {
	q := s.querier()
	exists, err := s.store.TableExists(ctx, q)
	if err != nil {
		return sqlError("check history table", err)
	}
	if exists {
		return nil
	}
	if err := s.store.CreateVersionTable(ctx, q); err != nil {
		return sqlError("create history table", err)
	}
	s.logger.DebugContext(ctx, "created history table", slog.String("table", s.store.Tablename()))
	return nil
}

// endScope finishes the outer scope and releases a session lock. The connection stays pinned.
func (s *Session) endScope(commit bool) error {
	if !s.scopeOpen {
		return nil
	}
	var err error
	if s.tx != nil {
		if commit {
			err = s.tx.Commit()
		} else {
			err = s.tx.Rollback()
		}
		if err != nil {
			err = sqlError("finish transaction", err)
		}
	}
	if s.locked {
		// Use a fresh context: the one the lock was taken with may be canceled by now.
		if unlockErr := s.store.Unlock(context.Background(), s.conn); unlockErr != nil {
			err = multierr.Append(err, sqlError("unlock history table", unlockErr))
		}
	}
	s.tx = nil
	s.scopeOpen = false
	s.locked = false
	s.spSeq = 0
	return err
}

func (s *Session) observe(ctx context.Context, e Event) {
	for _, o := range s.observers {
		o.Observe(ctx, e)
	}
}
