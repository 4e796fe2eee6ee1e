// Package queue persists document-processing records in SQLite and exposes
// the atomic transitions that drive their lifecycle.
//
// The Store manages database connections, schema initialization, stats
// queries, eligibility ordering, claim/complete/fail transitions with
// exponential retry backoff, and stuck-record recovery. Records capture the
// work kind, priority, retry bookkeeping, and outcome payload so the poller
// and reclaimer can coordinate without additional state.
//
// The database is treated as the single source of truth for durable work.
// Schema changes bump the version in schema.go; users clear the database to
// adopt the new schema.
package queue
