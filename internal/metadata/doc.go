// Package metadata owns vidsum's single source of truth: a SQLite database
// tracking uploaded files, cache entries, and the jobs that populate them.
//
// All multi-step transitions (get-or-create, job start/completion/failure,
// the interrupted-job sweep) run inside a single sql.Tx, giving single-flight semantics without an
// application-level mutex.
package metadata
