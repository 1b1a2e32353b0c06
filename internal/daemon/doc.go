// Package daemon coordinates the long-running vidsum process: config,
// metadata store, job queue, HTTP surface, and upload reaper wired into a
// single lifecycle with flock-based locking to prevent multiple instances
// sharing one work directory.
//
// Keep orchestration logic here: individual stage/queue/store behavior
// lives in its own package while the daemon focuses on startup, shutdown,
// and high-level status reporting.
package daemon
