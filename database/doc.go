// Package database provides the Store interface scurry uses to read and write the history table,
// along with an implementation for each supported database dialect.
//
// The Store interface is meant to be generic and not tied to any specific database. Backends
// differ in what they can guarantee during a migration run: whether DDL can be rolled back,
// whether scripts can run in their own transaction, and whether concurrent runs can be
// serialized. Those differences are reported through [Capabilities] rather than hidden.
//
// It's possible to implement a custom Store for a database scurry does not support. To do so,
// implement the [Store] interface and pass it to scurry.Open with the [DialectCustom] dialect.
package database
