package database

import (
	"context"
	"fmt"
)

// A StoreController is used by the scurry package to interact with a database. This type is a
// wrapper around the Store interface, but can be extended to include additional (optional) methods
// that are not part of the core Store interface.
type StoreController struct {
	Store
}

// NewStoreController returns a new StoreController that wraps the given Store.
//
// If the Store implements the following optional methods, the StoreController will call them as
// appropriate:
//
//   - Savepoint(name string) string
//   - ReleaseSavepoint(name string) string
//   - RollbackToSavepoint(name string) string
//
// If the Store does not implement a method, the StoreController falls back to the ANSI SQL
// statement.
func NewStoreController(store Store) *StoreController {
	return &StoreController{Store: store}
}

// Savepoint marks a savepoint with the given name inside the current transaction.
func (c *StoreController) Savepoint(ctx context.Context, db DBTxConn, name string) error {
	q := "SAVEPOINT " + name
	if t, ok := c.Store.(interface{ Savepoint(string) string }); ok {
		q = t.Savepoint(name)
	}
	if _, err := db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("failed to create savepoint %s: %w", name, err)
	}
	return nil
}

// ReleaseSavepoint releases a savepoint, keeping its changes in the surrounding transaction. It
// is a no-op on databases without a release statement.
func (c *StoreController) ReleaseSavepoint(ctx context.Context, db DBTxConn, name string) error {
	q := "RELEASE SAVEPOINT " + name
	if t, ok := c.Store.(interface{ ReleaseSavepoint(string) string }); ok {
		q = t.ReleaseSavepoint(name)
	}
	if q == "" {
		return nil
	}
	if _, err := db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("failed to release savepoint %s: %w", name, err)
	}
	return nil
}

// RollbackToSavepoint undoes everything done since the savepoint was created.
func (c *StoreController) RollbackToSavepoint(ctx context.Context, db DBTxConn, name string) error {
	q := "ROLLBACK TO SAVEPOINT " + name
	if t, ok := c.Store.(interface{ RollbackToSavepoint(string) string }); ok {
		q = t.RollbackToSavepoint(name)
	}
	if _, err := db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("failed to roll back to savepoint %s: %w", name, err)
	}
	return nil
}
