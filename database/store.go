package database

import (
	"context"
	"time"
)

// Store is an interface that defines methods for managing the history table: the single table
// scurry owns, holding one row per applied migration script. By defining a Store interface, we can
// support multiple databases with consistent functionality.
//
// Each database dialect requires a specific implementation of this interface. A dialect represents
// a set of SQL statements specific to a particular database system.
type Store interface {
	// Tablename is the history table used to record applied migrations. Must not be empty.
	Tablename() string

	// Capabilities reports which transactional and locking primitives the backend offers.
	Capabilities() Capabilities

	// TableExists reports whether the history table exists.
	TableExists(ctx context.Context, db DBTxConn) (bool, error)

	// CreateVersionTable creates the history table. Unlike TableExists it is not idempotent on
	// most backends; callers check first.
	CreateVersionTable(ctx context.Context, db DBTxConn) error

	// Insert appends a single row to the history table.
	Insert(ctx context.Context, db DBTxConn, req InsertRequest) error

	// ListMigrations retrieves all history rows sorted in ascending byte order of script version,
	// regardless of the database collation. If there are no rows, return an empty slice with no
	// error.
	ListMigrations(ctx context.Context, db DBTxConn) ([]*HistoryEntry, error)

	// DeleteAll removes every row from the history table. It is only used to override history.
	DeleteAll(ctx context.Context, db DBTxConn) error

	// Lock acquires exclusive coordination over the history table, blocking until it is granted or
	// ctx is done. Depending on the backend the lock is released when the surrounding transaction
	// ends or by Unlock.
	//
	// Stores whose Capabilities report Locking == false must implement Lock as a no-op returning
	// nil. Such backends give no protection against concurrent runs.
	Lock(ctx context.Context, db DBTxConn) error

	// Unlock releases a lock that outlives transactions. It is a no-op for transaction-scoped
	// locks and for stores without locking.
	Unlock(ctx context.Context, db DBTxConn) error
}

// Capabilities describes what a backend can guarantee during a migration run.
type Capabilities struct {
	// TransactionalDDL reports that schema changes can run inside a transaction and be rolled
	// back, and that the transaction supports savepoints. When true, a whole run shares one outer
	// transaction and each script runs inside its own savepoint.
	TransactionalDDL bool
	// Transactions reports that each script can at least run inside its own transaction. It is
	// only consulted when TransactionalDDL is false.
	Transactions bool
	// Locking reports that Lock serializes concurrent runs against the same database.
	Locking bool
}

// InsertRequest describes a history row to append.
type InsertRequest struct {
	ScriptHash    string
	ScriptName    string
	ScriptVersion string
	// AppliedAt is stored as the migration_date column. The zero value means now.
	AppliedAt time.Time
}

// HistoryEntry is a single row of the history table.
type HistoryEntry struct {
	ID            int64
	AppliedAt     time.Time
	ScriptHash    string
	ScriptName    string
	ScriptVersion string
}
