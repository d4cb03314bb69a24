package main

import (
	"fmt"

	"github.com/scurrydb/scurry/database"
)

type driver struct {
	// name is the database/sql driver name.
	name    string
	dialect database.Dialect
}

// lookupDriver maps the DRIVER argument to a registered database/sql driver and a dialect.
func lookupDriver(s string) (driver, error) {
	dialect, err := database.ParseDialect(s)
	if err != nil {
		return driver{}, fmt.Errorf("%q driver not supported", s)
	}
	if s == "mymysql" {
		return driver{"mymysql", dialect}, nil
	}
	switch dialect {
	case database.DialectPostgres, database.DialectRedshift:
		return driver{"pgx", dialect}, nil
	case database.DialectSQLite3:
		return driver{"sqlite", dialect}, nil
	case database.DialectMySQL, database.DialectTiDB:
		return driver{"mysql", dialect}, nil
	case database.DialectMSSQL:
		return driver{"sqlserver", dialect}, nil
	case database.DialectClickHouse:
		return driver{"clickhouse", dialect}, nil
	case database.DialectVertica:
		return driver{"vertica", dialect}, nil
	case database.DialectTurso:
		return driver{"libsql", dialect}, nil
	}
	return driver{}, fmt.Errorf("%q driver not supported", s)
}
