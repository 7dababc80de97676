// Package repository defines the data access interfaces for gridmark.
//
// This package provides the abstraction over the host model: where
// reference grids and elements come from, and where field definitions,
// bindings and field values are stored. The actual implementation is in
// the sqlite subpackage.
//
// # Interfaces
//
// ElementSource is read-only: grid lines, elements (optionally filtered by
// category name) and category usage.
//
// Document holds the metadata written by a numbering run. Every write is
// expected to happen inside Transact. Scopes nest by joining: an inner
// Transact on a ctx that already carries a transaction runs in it, so a
// whole run commits or rolls back as one.
//
// # SQLite Implementation
//
// The sqlite implementation stores the model in one SQLite database using
// the pure-Go modernc.org/sqlite driver. It handles:
//
// - Project import in a single transaction
// - Stable enumeration order for grids and elements
// - Binding replacement with cascade deletes of category rows
// - A journal of committed transaction names
//
// # Testing
//
// The sqlite repository is tested against in-memory databases.
package repository
