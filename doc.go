// Package scurry applies forward-only SQL migrations.
//
// Migrations are plain SQL files named <version>__<name>.sql in a single directory. Versions are
// compared as strings, so zero padded numbers or timestamps are the usual choice:
//
//	migrations/
//	  001__create_users.sql
//	  002__add_email_index.sql
//
// Every applied script is recorded in a history table (by default "_scurry") together with the
// SHA-1 of its contents. Before applying anything, the history must match the scripts on disk
// position by position. Renamed, reordered or edited scripts are reported as errors instead of
// being silently skipped or re-run.
//
// A typical run:
//
//	s, err := scurry.Open(ctx, db, database.DialectPostgres, "migrations")
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//	if _, err := s.Migrate(ctx, scurry.Latest()); err != nil {
//		return err
//	}
//	return s.Commit()
//
// On databases that can roll back schema changes (PostgreSQL, SQLite, SQL Server) the whole run is
// one transaction and each script runs inside a savepoint. Elsewhere each script gets a transaction
// of its own, or no transaction at all. See [database.Capabilities].
package scurry
