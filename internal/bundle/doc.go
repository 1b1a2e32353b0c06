// Package bundle manages the on-disk artifact directories a cache job
// produces: a staging directory per job, promoted atomically to a final
// directory per cache_key once the job completes.
//
// Promotion is a single os.Rename after an fsync of the staged directory,
// so a concurrent reader of the destination path either sees nothing or
// sees a complete bundle, never a partial one.
package bundle
