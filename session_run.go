package scurry

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/scurrydb/scurry/database"
	"go.uber.org/multierr"
)

// Migrate applies every available script above the last applied version, up to target, and
// returns how many were applied.
//
// The applied history must be a prefix of the available scripts: same versions, in the same
// order, with unchanged contents. Otherwise Migrate fails before applying anything. Each script
// runs in its own nested scope. When one fails, only that scope is undone and Migrate returns the
// number applied before it together with a *PartialError.
//
// Changes become durable once the caller calls Commit.
func (s *Session) Migrate(ctx context.Context, target Target) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrSessionClosed
	}
	start := time.Now()
	s.observe(ctx, Event{Type: RunStarted})
	n, err := s.migrate(ctx, target)
	s.observe(ctx, Event{Type: RunFinished, Count: n, Duration: time.Since(start), Err: err})
	return n, err
}

func (s *Session) migrate(ctx context.Context, target Target) (int, error) {
	catalog, err := collectVersions(s.fsys, s.dir)
	if err != nil {
		return 0, err
	}
	s.logger.InfoContext(ctx, "found migrations", slog.Int("count", len(catalog)))
	if err := s.beginScope(ctx); err != nil {
		return 0, err
	}
	history, err := s.store.ListMigrations(ctx, s.querier())
	if err != nil {
		return 0, sqlError("read history", err)
	}
	if err := verifyCommonHistory(catalog, history); err != nil {
		return 0, err
	}
	watermark := lastEntry(history)
	if watermark != nil {
		s.logger.InfoContext(ctx, "schema at version", slog.String("version", watermark.ScriptVersion))
	} else {
		s.logger.InfoContext(ctx, "schema is empty")
	}
	s.observe(ctx, Event{Type: HistoryValidated, Count: len(history)})

	plan := upgradePath(catalog, watermark, target)
	s.logger.InfoContext(ctx, "applying migrations",
		slog.Int("count", len(plan)), slog.String("target", target.String()))
	s.observe(ctx, Event{Type: PlanComputed, Count: len(plan)})

	applied := make([]*Version, 0, len(plan))
	for _, v := range plan {
		s.logger.InfoContext(ctx, "applying version",
			slog.String("version", v.Version), slog.String("name", v.Name))
		s.observe(ctx, Event{Type: ScriptStarted, Version: v.Version, Name: v.Name})
		scriptStart := time.Now()
		err := s.nestedScope(ctx, func(db database.DBTxConn) error {
			return s.applyScript(ctx, db, v)
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "migration failed",
				slog.String("version", v.Version), slog.Any("error", err))
			s.observe(ctx, Event{
				Type:     ScriptFailed,
				Version:  v.Version,
				Name:     v.Name,
				Duration: time.Since(scriptStart),
				Err:      err,
			})
			return len(applied), &PartialError{
				Applied: applied,
				Failed:  v,
				Err:     err,
			}
		}
		s.observe(ctx, Event{
			Type:     ScriptApplied,
			Version:  v.Version,
			Name:     v.Name,
			Duration: time.Since(scriptStart),
		})
		applied = append(applied, v)
	}
	return len(applied), nil
}

// SetSchemaLevel rewrites the history so that it records every available version up to target
// as applied, without executing any script. It is meant for adopting an existing database whose
// schema was built by other means.
func (s *Session) SetSchemaLevel(ctx context.Context, target Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	start := time.Now()
	catalog, err := collectVersions(s.fsys, s.dir)
	if err != nil {
		return err
	}
	if err := s.beginScope(ctx); err != nil {
		return err
	}
	versions := upgradePath(catalog, nil, target)
	err = s.nestedScope(ctx, func(db database.DBTxConn) error {
		if err := s.store.DeleteAll(ctx, db); err != nil {
			return sqlError("clear history", err)
		}
		now := time.Now()
		for _, v := range versions {
			if err := s.store.Insert(ctx, db, database.InsertRequest{
				ScriptHash:    v.Hash,
				ScriptName:    v.Name,
				ScriptVersion: v.Version,
				AppliedAt:     now,
			}); err != nil {
				return sqlError("record version "+v.Version, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "schema level set",
		slog.Int("count", len(versions)), slog.String("target", target.String()))
	s.observe(ctx, Event{Type: SchemaLevelSet, Count: len(versions), Duration: time.Since(start)})
	return nil
}

// nestedScope runs fn in the strongest isolation the database offers inside the outer scope: a
// savepoint within the outer transaction, a transaction of its own, or nothing at all. When fn
// fails, the nested scope is undone and earlier ones are kept.
func (s *Session) nestedScope(ctx context.Context, fn func(database.DBTxConn) error) error {
	switch {
	case s.tx != nil:
		s.spSeq++
		name := fmt.Sprintf("scurry_sp_%d", s.spSeq)
		return s.withSavepoint(ctx, s.tx, name, fn)
	case s.caps.Transactions:
		return s.beginTx(ctx, fn)
	default:
		return fn(s.conn)
	}
}

func (s *Session) withSavepoint(
	ctx context.Context,
	tx *sql.Tx,
	name string,
	fn func(database.DBTxConn) error,
) (retErr error) {
	if err := s.store.Savepoint(ctx, tx, name); err != nil {
		return sqlError("begin nested scope", err)
	}
	defer func() {
		if retErr != nil {
			if err := s.store.RollbackToSavepoint(context.WithoutCancel(ctx), tx, name); err != nil {
				retErr = multierr.Append(retErr, sqlError("undo nested scope", err))
			}
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := s.store.ReleaseSavepoint(ctx, tx, name); err != nil {
		return sqlError("end nested scope", err)
	}
	return nil
}

// beginTx begins a transaction on the pinned connection and runs the given function. If the
// function returns an error, the transaction is rolled back. Otherwise, the transaction is
// committed.
func (s *Session) beginTx(ctx context.Context, fn func(database.DBTxConn) error) (retErr error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return sqlError("begin transaction", err)
	}
	defer func() {
		if retErr != nil {
			retErr = multierr.Append(retErr, tx.Rollback())
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return sqlError("commit transaction", err)
	}
	return nil
}

// applyScript executes a script as a single statement batch and records it in the history. The
// file is read again and must still match the hash it was loaded with.
func (s *Session) applyScript(ctx context.Context, db database.DBTxConn, v *Version) error {
	op := "apply " + v.Path
	data, err := fs.ReadFile(s.fsys, v.Path)
	if err != nil {
		return ioError(op, err)
	}
	if got := hashBytes(data); got != v.Hash {
		return consistencyError(op, fmt.Errorf("%w: loaded %s, now %s", ErrScriptChanged, v.Hash, got))
	}
	if _, err := db.ExecContext(ctx, string(data)); err != nil {
		return sqlError(op, err)
	}
	if err := s.store.Insert(ctx, db, database.InsertRequest{
		ScriptHash:    v.Hash,
		ScriptName:    v.Name,
		ScriptVersion: v.Version,
	}); err != nil {
		return sqlError("record version "+v.Version, err)
	}
	return nil
}
