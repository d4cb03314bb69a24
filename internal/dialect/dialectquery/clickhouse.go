package dialectquery

import "fmt"

// Clickhouse has no transactions. Rows are ordered by script_version and the id is derived from
// the insert time because the engine has no auto-increment columns.
type Clickhouse struct{}

var _ Querier = (*Clickhouse)(nil)

func (c *Clickhouse) TableExists(tableName string) string {
	schemaName, tableName := parseTableIdentifier(tableName)
	if schemaName != "" {
		q := `SELECT count(*) FROM system.tables WHERE database = '%s' AND name = '%s'`
		return fmt.Sprintf(q, schemaName, tableName)
	}
	q := `SELECT count(*) FROM system.tables WHERE database = currentDatabase() AND name = '%s'`
	return fmt.Sprintf(q, tableName)
}

func (c *Clickhouse) CreateTable(tableName string) string {
	q := `CREATE TABLE IF NOT EXISTS %s (
		id Int64 DEFAULT toUnixTimestamp64Nano(now64(9, 'UTC')),
		migration_date DateTime64(9, 'UTC'),
		script_hash String,
		script_name String,
		script_version String
	)
	ENGINE = MergeTree()
	ORDER BY script_version`
	return fmt.Sprintf(q, tableName)
}

func (c *Clickhouse) InsertVersion(tableName string) string {
	q := `INSERT INTO %s (script_hash, script_name, script_version, migration_date) VALUES ($1, $2, $3, $4)`
	return fmt.Sprintf(q, tableName)
}

func (c *Clickhouse) ListMigrations(tableName string) string {
	q := `SELECT id, migration_date, script_hash, script_name, script_version FROM %s ORDER BY script_version ASC`
	return fmt.Sprintf(q, tableName)
}

func (c *Clickhouse) DeleteAll(tableName string) string {
	q := `TRUNCATE TABLE %s`
	return fmt.Sprintf(q, tableName)
}
