package dialectquery

import "fmt"

type Postgres struct{}

var (
	_ Querier     = (*Postgres)(nil)
	_ TableLocker = (*Postgres)(nil)
)

func (p *Postgres) TableExists(tableName string) string {
	schemaName, tableName := parseTableIdentifier(tableName)
	if schemaName != "" {
		q := `SELECT COUNT(*) FROM pg_tables WHERE schemaname = '%s' AND tablename = '%s'`
		return fmt.Sprintf(q, schemaName, tableName)
	}
	q := `SELECT COUNT(*) FROM pg_tables WHERE (current_schema() IS NULL OR schemaname = current_schema()) AND tablename = '%s'`
	return fmt.Sprintf(q, tableName)
}

func (p *Postgres) CreateTable(tableName string) string {
	q := `CREATE TABLE %s (
		id serial NOT NULL,
		migration_date timestamp with time zone NOT NULL DEFAULT (now() AT TIME ZONE 'utc'),
		script_hash text NOT NULL,
		script_name text NOT NULL,
		script_version text NOT NULL,
		PRIMARY KEY(id)
	)`
	return fmt.Sprintf(q, tableName)
}

func (p *Postgres) InsertVersion(tableName string) string {
	q := `INSERT INTO %s (script_hash, script_name, script_version, migration_date) VALUES ($1, $2, $3, $4)`
	return fmt.Sprintf(q, tableName)
}

func (p *Postgres) ListMigrations(tableName string) string {
	q := `SELECT id, migration_date, script_hash, script_name, script_version FROM %s ORDER BY script_version ASC`
	return fmt.Sprintf(q, tableName)
}

func (p *Postgres) DeleteAll(tableName string) string {
	q := `DELETE FROM %s`
	return fmt.Sprintf(q, tableName)
}

// LockTable takes an ACCESS EXCLUSIVE lock which conflicts with every other lock mode, including
// plain reads of the history table. The lock is released when the transaction ends.
func (p *Postgres) LockTable(tableName string) string {
	q := `LOCK TABLE %s IN ACCESS EXCLUSIVE MODE`
	return fmt.Sprintf(q, tableName)
}
