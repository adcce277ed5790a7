// Package queue persists work items and the quota ledger in SQLite.
//
// The store is the single source of truth for pipeline progress. Every
// mutation commits through a transaction, item updates use a read-verify-write
// cycle keyed on a revision stamp so overlapping invocations cannot silently
// overwrite each other, and status changes are validated against the
// forward-only lifecycle before they land on disk.
package queue
