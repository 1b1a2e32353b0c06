// Package uploadstore is the streaming, chunked ingestion path for locally
// uploaded files. It never buffers a whole upload in memory:
// bytes are copied chunk-by-chunk into a staging file under a running
// SHA-256, limits are enforced before and during the copy, and the finished
// file is deduplicated by content hash against vidsum/internal/metadata's
// uploads table before being moved to its stable path.
package uploadstore
