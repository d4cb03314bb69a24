//go:build no_mysql

package main

func normalizeDBString(driver string, str string) string {
	return str
}
