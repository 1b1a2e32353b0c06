// Package idgen mints the opaque, randomly-generated identifiers vidsum
// hands back to clients: file_id and job_id. Identity is deliberately
// decoupled from content (a re-uploaded byte-identical file gets a fresh
// file_id) so that removing one reference never affects another.
package idgen

import (
	"strings"

	"github.com/google/uuid"
)

func hex32() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

// FileID returns a fresh "f_" + 32 lowercase hex identifier.
func FileID() string {
	return "f_" + hex32()
}

// JobID returns a fresh "j_" + 32 lowercase hex identifier.
func JobID() string {
	return "j_" + hex32()
}
