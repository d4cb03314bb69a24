package dialectquery

import "fmt"

type Sqlserver struct{}

var (
	_ Querier     = (*Sqlserver)(nil)
	_ TableLocker = (*Sqlserver)(nil)
	_ Savepointer = (*Sqlserver)(nil)
)

func (s *Sqlserver) TableExists(tableName string) string {
	schemaName, tableName := parseTableIdentifier(tableName)
	if schemaName != "" {
		q := `SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = '%s' AND TABLE_NAME = '%s'`
		return fmt.Sprintf(q, schemaName, tableName)
	}
	q := `SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = SCHEMA_NAME() AND TABLE_NAME = '%s'`
	return fmt.Sprintf(q, tableName)
}

func (s *Sqlserver) CreateTable(tableName string) string {
	q := `CREATE TABLE %s (
		id INT NOT NULL IDENTITY(1,1) PRIMARY KEY,
		migration_date DATETIME2 NOT NULL,
		script_hash NVARCHAR(64) NOT NULL,
		script_name NVARCHAR(1024) NOT NULL,
		script_version NVARCHAR(255) NOT NULL
	)`
	return fmt.Sprintf(q, tableName)
}

func (s *Sqlserver) InsertVersion(tableName string) string {
	q := `INSERT INTO %s (script_hash, script_name, script_version, migration_date) VALUES (@p1, @p2, @p3, @p4)`
	return fmt.Sprintf(q, tableName)
}

func (s *Sqlserver) ListMigrations(tableName string) string {
	q := `SELECT id, migration_date, script_hash, script_name, script_version FROM %s ORDER BY script_version ASC`
	return fmt.Sprintf(q, tableName)
}

func (s *Sqlserver) DeleteAll(tableName string) string {
	q := `DELETE FROM %s`
	return fmt.Sprintf(q, tableName)
}

// LockTable takes an exclusive application lock owned by the current transaction. A negative
// timeout waits indefinitely. sp_getapplock reports deadlock victims and cancellations through a
// negative return code rather than an error, so the code is turned into one.
func (s *Sqlserver) LockTable(tableName string) string {
	q := `DECLARE @result int;
EXEC @result = sp_getapplock @Resource = '%s', @LockMode = 'Exclusive', @LockOwner = 'Transaction', @LockTimeout = -1;
IF @result < 0 THROW 51000, 'failed to acquire lock on %s', 1;`
	return fmt.Sprintf(q, tableName, tableName)
}

func (s *Sqlserver) Savepoint(name string) string {
	return fmt.Sprintf(`SAVE TRANSACTION %s`, name)
}

func (s *Sqlserver) ReleaseSavepoint(string) string {
	return ""
}

func (s *Sqlserver) RollbackToSavepoint(name string) string {
	return fmt.Sprintf(`ROLLBACK TRANSACTION %s`, name)
}
