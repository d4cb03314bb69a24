package dialectquery

import "fmt"

// Redshift speaks the Postgres wire protocol but supports neither savepoints nor LOCK inside the
// nested scopes the executor uses, so it gets its own querier without a locker.
type Redshift struct{}

var _ Querier = (*Redshift)(nil)

func (r *Redshift) TableExists(tableName string) string {
	schemaName, tableName := parseTableIdentifier(tableName)
	if schemaName != "" {
		q := `SELECT COUNT(*) FROM pg_tables WHERE schemaname = '%s' AND tablename = '%s'`
		return fmt.Sprintf(q, schemaName, tableName)
	}
	q := `SELECT COUNT(*) FROM pg_tables WHERE schemaname = current_schema() AND tablename = '%s'`
	return fmt.Sprintf(q, tableName)
}

func (r *Redshift) CreateTable(tableName string) string {
	q := `CREATE TABLE %s (
		id integer NOT NULL identity(1, 1),
		migration_date timestamp NOT NULL default sysdate,
		script_hash varchar(64) NOT NULL,
		script_name varchar(1024) NOT NULL,
		script_version varchar(255) NOT NULL,
		PRIMARY KEY(id)
	)`
	return fmt.Sprintf(q, tableName)
}

func (r *Redshift) InsertVersion(tableName string) string {
	q := `INSERT INTO %s (script_hash, script_name, script_version, migration_date) VALUES ($1, $2, $3, $4)`
	return fmt.Sprintf(q, tableName)
}

func (r *Redshift) ListMigrations(tableName string) string {
	q := `SELECT id, migration_date, script_hash, script_name, script_version FROM %s ORDER BY script_version ASC`
	return fmt.Sprintf(q, tableName)
}

func (r *Redshift) DeleteAll(tableName string) string {
	q := `DELETE FROM %s`
	return fmt.Sprintf(q, tableName)
}
