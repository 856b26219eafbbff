// Package manifest records generation runs in a SQLite ledger.
//
// Each `doodlecast generate` invocation becomes one row in runs; every image
// and audio artifact the run resolves becomes one row in assets with its
// fingerprint, winning producer (or "cache"), cache write status, and the
// per-producer attempt list as JSON. The CLI reads the ledger for
// `doodlecast history`.
//
// The database uses WAL mode with a busy timeout, and writes retry on
// SQLITE_BUSY with exponential backoff so concurrent runs can share one
// ledger. Ledger failures are reported to the caller, which logs them; they
// never abort generation.
//
// Schema changes bump schemaVersion; an older database must be deleted.
package manifest
