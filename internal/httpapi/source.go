package httpapi

import (
	"context"

	"vidsum/internal/metadata"
)

// resolveUpload looks up the upload record a local-branch request refers
// to, by whichever single identifier resolveCombinedConstraints already
// confirmed was given.
func (s *Server) resolveUpload(ctx context.Context, fileID, fileHash string) (metadata.Upload, error) {
	if fileID != "" {
		return s.uploads.Get(ctx, fileID)
	}
	return s.uploads.GetByHash(ctx, fileHash)
}
