package dialectquery

import "fmt"

// Tidb uses the MySQL history layout. Named locks are not enabled by default on TiDB, so it
// does not take part in locking.
type Tidb struct{}

var _ Querier = (*Tidb)(nil)

func (t *Tidb) TableExists(tableName string) string {
	return (&Mysql{}).TableExists(tableName)
}

func (t *Tidb) CreateTable(tableName string) string {
	q := `CREATE TABLE %s (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT UNIQUE,
		migration_date timestamp(6) NOT NULL,
		script_hash varchar(64) NOT NULL,
		script_name varchar(1024) NOT NULL,
		script_version varchar(255) NOT NULL,
		PRIMARY KEY(id)
	)`
	return fmt.Sprintf(q, tableName)
}

func (t *Tidb) InsertVersion(tableName string) string {
	return (&Mysql{}).InsertVersion(tableName)
}

func (t *Tidb) ListMigrations(tableName string) string {
	return (&Mysql{}).ListMigrations(tableName)
}

func (t *Tidb) DeleteAll(tableName string) string {
	return (&Mysql{}).DeleteAll(tableName)
}
