package scurry

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/scurrydb/scurry/database"
)

const (
	// DefaultTablename is the name of the history table unless WithTableName says otherwise.
	DefaultTablename = "_scurry"
)

// SessionOption is a configuration option for a scurry Session.
type SessionOption interface {
	apply(*config) error
}

// WithTableName sets the name of the database table used to track history of applied migrations.
// The name may be schema qualified, e.g. "admin._scurry".
//
// If WithTableName is not called, the default value is "_scurry".
func WithTableName(name string) SessionOption {
	return configFunc(func(c *config) error {
		if c.tableName != "" {
			return fmt.Errorf("table already set to %q", c.tableName)
		}
		if name == "" {
			return errors.New("table must not be empty")
		}
		c.tableName = name
		return nil
	})
}

// WithStore configures the session with a custom [database.Store] implementation. The dialect
// passed to Open must be [database.DialectCustom].
func WithStore(store database.Store) SessionOption {
	return configFunc(func(c *config) error {
		if c.store != nil {
			return fmt.Errorf("store already set: %T", c.store)
		}
		if store == nil {
			return errors.New("store must not be nil")
		}
		if store.Tablename() == "" {
			return errors.New("store implementation must set the table name")
		}
		c.store = store
		return nil
	})
}

// WithFilesystem sets the filesystem migration scripts are read from. The directory passed to
// Open is resolved within it.
//
// If WithFilesystem is not called, scripts are read from the OS filesystem.
func WithFilesystem(fsys fs.FS) SessionOption {
	return configFunc(func(c *config) error {
		if c.fsys != nil {
			return errors.New("filesystem already set")
		}
		if fsys == nil {
			return errors.New("filesystem must not be nil")
		}
		c.fsys = fsys
		return nil
	})
}

// WithLogger sets the logger for progress messages.
//
// If WithLogger is not called, nothing is logged.
func WithLogger(logger *slog.Logger) SessionOption {
	return configFunc(func(c *config) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		c.logger = logger
		return nil
	})
}

// WithObserver registers an Observer notified of every step of a run. It may be called more than
// once; observers are notified in registration order.
func WithObserver(o Observer) SessionOption {
	return configFunc(func(c *config) error {
		if o == nil {
			return errors.New("observer must not be nil")
		}
		c.observers = append(c.observers, o)
		return nil
	})
}

// WithLockRetry sets how often a busy session lock is polled and for how long. It only applies
// to dialects that lock with a named session lock (MySQL) and is ignored with WithStore.
//
// If WithLockRetry is not called, the lock is polled every 2 seconds for up to 60 minutes.
func WithLockRetry(interval, maxDuration time.Duration) SessionOption {
	return configFunc(func(c *config) error {
		if interval <= 0 || maxDuration <= 0 {
			return errors.New("lock retry interval and duration must be positive")
		}
		c.lockInterval = interval
		c.lockMaxDuration = maxDuration
		return nil
	})
}

type config struct {
	tableName string
	store     database.Store
	fsys      fs.FS
	logger    *slog.Logger
	observers []Observer

	lockInterval    time.Duration
	lockMaxDuration time.Duration
}

type configFunc func(*config) error

func (f configFunc) apply(cfg *config) error {
	return f(cfg)
}
