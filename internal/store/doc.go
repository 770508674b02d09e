// Package store persists collected documents and task records in SQLite.
//
// Documents are JSON bodies grouped into named collections and keyed by a
// caller-chosen string (an anime id, a picture URL). Task records are the
// audit trail the scheduler writes as each task moves from Pending through
// Running to Completed or Failed; the store refuses any backwards status
// transition.
//
// The schema is embedded and versioned. Schema changes bump schemaVersion in
// schema.go; users delete the database to adopt the new schema.
package store
