package dialectquery

import "fmt"

type Mysql struct{}

var (
	_ Querier       = (*Mysql)(nil)
	_ SessionLocker = (*Mysql)(nil)
)

func (m *Mysql) TableExists(tableName string) string {
	schemaName, tableName := parseTableIdentifier(tableName)
	if schemaName != "" {
		q := `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = '%s' AND table_name = '%s'`
		return fmt.Sprintf(q, schemaName, tableName)
	}
	q := `SELECT COUNT(*) FROM information_schema.tables WHERE (database() IS NULL OR table_schema = database()) AND table_name = '%s'`
	return fmt.Sprintf(q, tableName)
}

func (m *Mysql) CreateTable(tableName string) string {
	q := `CREATE TABLE %s (
		id serial NOT NULL,
		migration_date timestamp(6) NOT NULL,
		script_hash varchar(64) NOT NULL,
		script_name varchar(1024) NOT NULL,
		script_version varchar(255) NOT NULL,
		PRIMARY KEY(id)
	)`
	return fmt.Sprintf(q, tableName)
}

func (m *Mysql) InsertVersion(tableName string) string {
	q := `INSERT INTO %s (script_hash, script_name, script_version, migration_date) VALUES (?, ?, ?, ?)`
	return fmt.Sprintf(q, tableName)
}

func (m *Mysql) ListMigrations(tableName string) string {
	q := `SELECT id, migration_date, script_hash, script_name, script_version FROM %s ORDER BY script_version ASC`
	return fmt.Sprintf(q, tableName)
}

func (m *Mysql) DeleteAll(tableName string) string {
	q := `DELETE FROM %s`
	return fmt.Sprintf(q, tableName)
}

// TryLock does not wait: the caller polls, so a blocked run can still observe context
// cancellation.
func (m *Mysql) TryLock() string {
	return `SELECT GET_LOCK(?, 0)`
}

func (m *Mysql) Unlock() string {
	return `SELECT RELEASE_LOCK(?)`
}
