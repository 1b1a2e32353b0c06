// Package cachekey derives the stable cache_key identifying a source
//. URL sources prefer a resolved extractor/video-id identity
// over the raw URL so that equivalent links (shortened, tracking params,
// mobile host) collapse to the same key; local sources key off content hash.
package cachekey
