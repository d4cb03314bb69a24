package dialectquery

import "fmt"

type Vertica struct{}

var _ Querier = (*Vertica)(nil)

func (v *Vertica) TableExists(tableName string) string {
	schemaName, tableName := parseTableIdentifier(tableName)
	if schemaName != "" {
		q := `SELECT COUNT(*) FROM v_catalog.tables WHERE table_schema = '%s' AND table_name = '%s'`
		return fmt.Sprintf(q, schemaName, tableName)
	}
	q := `SELECT COUNT(*) FROM v_catalog.tables WHERE table_name = '%s'`
	return fmt.Sprintf(q, tableName)
}

func (v *Vertica) CreateTable(tableName string) string {
	q := `CREATE TABLE %s (
		id identity(1,1) NOT NULL,
		migration_date timestamp NOT NULL,
		script_hash varchar(64) NOT NULL,
		script_name varchar(1024) NOT NULL,
		script_version varchar(255) NOT NULL,
		PRIMARY KEY(id)
	)`
	return fmt.Sprintf(q, tableName)
}

func (v *Vertica) InsertVersion(tableName string) string {
	q := `INSERT INTO %s (script_hash, script_name, script_version, migration_date) VALUES (?, ?, ?, ?)`
	return fmt.Sprintf(q, tableName)
}

func (v *Vertica) ListMigrations(tableName string) string {
	q := `SELECT id, migration_date, script_hash, script_name, script_version FROM %s ORDER BY script_version ASC`
	return fmt.Sprintf(q, tableName)
}

func (v *Vertica) DeleteAll(tableName string) string {
	q := `DELETE FROM %s`
	return fmt.Sprintf(q, tableName)
}
