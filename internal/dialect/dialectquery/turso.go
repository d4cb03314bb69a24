package dialectquery

// Turso is SQLite over the libSQL protocol. It shares the SQLite history table layout.
type Turso struct {
	Sqlite3
}

var _ Querier = (*Turso)(nil)
