package dialectquery

import "fmt"

type Sqlite3 struct{}

var _ Querier = (*Sqlite3)(nil)

func (s *Sqlite3) TableExists(tableName string) string {
	q := `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = '%s'`
	return fmt.Sprintf(q, tableName)
}

func (s *Sqlite3) CreateTable(tableName string) string {
	q := `CREATE TABLE %s (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		migration_date TIMESTAMP NOT NULL,
		script_hash TEXT NOT NULL,
		script_name TEXT NOT NULL,
		script_version TEXT NOT NULL
	)`
	return fmt.Sprintf(q, tableName)
}

func (s *Sqlite3) InsertVersion(tableName string) string {
	q := `INSERT INTO %s (script_hash, script_name, script_version, migration_date) VALUES (?, ?, ?, ?)`
	return fmt.Sprintf(q, tableName)
}

func (s *Sqlite3) ListMigrations(tableName string) string {
	q := `SELECT id, migration_date, script_hash, script_name, script_version FROM %s ORDER BY script_version ASC`
	return fmt.Sprintf(q, tableName)
}

func (s *Sqlite3) DeleteAll(tableName string) string {
	q := `DELETE FROM %s`
	return fmt.Sprintf(q, tableName)
}
