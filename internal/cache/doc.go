// Package cache coordinates the cache_key lifecycle across the two stores
// that jointly own it: internal/metadata (status, job, summary text) and
// internal/bundle (the artifact set on disk). Nothing outside this package
// should call metadata.Store.GetOrCreate directly, since doing so correctly
// requires a bundle.Store-backed validator closure that metadata itself
// cannot construct without importing bundle.
package cache
