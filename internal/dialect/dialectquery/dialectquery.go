package dialectquery

import "strings"

// Querier is the interface that wraps the basic methods to create a dialect specific query for
// the history table. Every method receives the (possibly schema-qualified) table name.
type Querier interface {
	// TableExists returns the SQL query string to check whether the history table exists.
	//
	// The query must return a single row with a single integer column: the number of matching
	// tables.
	TableExists(tableName string) string

	// CreateTable returns the SQL query string to create the history table.
	CreateTable(tableName string) string

	// InsertVersion returns the SQL query string to append a history row. The query takes four
	// parameters, in order: script_hash, script_name, script_version, migration_date.
	InsertVersion(tableName string) string

	// ListMigrations returns the SQL query string to list all history rows in ascending order by
	// script_version.
	//
	// The query must return the id, migration_date, script_hash, script_name and script_version
	// columns.
	ListMigrations(tableName string) string

	// DeleteAll returns the SQL query string to remove every row from the history table.
	DeleteAll(tableName string) string
}

// TableLocker is implemented by queriers whose database can take an exclusive lock that is held
// until the surrounding transaction ends. The statement must block until the lock is granted.
type TableLocker interface {
	LockTable(tableName string) string
}

// SessionLocker is implemented by queriers whose database offers a named advisory lock bound to
// the connection rather than a transaction.
//
// TryLock must return a single row: 1 when the lock was acquired, 0 (or NULL) otherwise. Both
// queries take the lock name as their only parameter.
type SessionLocker interface {
	TryLock() string
	Unlock() string
}

// Savepointer is implemented by queriers that deviate from the ANSI SAVEPOINT syntax. An empty
// ReleaseSavepoint means the database has no release statement.
type Savepointer interface {
	Savepoint(name string) string
	ReleaseSavepoint(name string) string
	RollbackToSavepoint(name string) string
}

// parseTableIdentifier splits a table name of the form "schema.table". The schema is empty when
// the name is not qualified.
func parseTableIdentifier(name string) (schema, table string) {
	schema, table, found := strings.Cut(name, ".")
	if !found {
		return "", name
	}
	return schema, table
}
