//go:build !no_mysql

package main

import (
	"log/slog"

	"github.com/go-sql-driver/mysql"
	_ "github.com/ziutek/mymysql/godrv"
)

// normalizeDBString parses the dsn used with the mysql driver to always have the parameters
// `parseTime` and `multiStatements` set to true. The first allows the history table's
// migration_date column to be scanned into time.Time, the second lets a script hold more than one
// statement.
func normalizeDBString(driver string, str string) string {
	if driver != "mysql" {
		return str
	}
	normalized, err := normalizeMySQLDSN(str)
	if err != nil {
		slog.Warn("failed to normalize MySQL connection string", slog.Any("error", err))
		return str
	}
	return normalized
}

func normalizeMySQLDSN(dsn string) (string, error) {
	config, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	config.ParseTime = true
	config.MultiStatements = true
	return config.FormatDSN(), nil
}
