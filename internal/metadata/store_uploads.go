package metadata

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"vidsum/internal/apperr"
)

// ErrUploadNotFound is returned when an upload record does not exist or has expired.
var ErrUploadNotFound = errors.New("upload not found")

// InsertUpload persists a new upload record.
func (s *Store) InsertUpload(ctx context.Context, upload Upload) error {
	return s.execWithRetry(ctx, `
		INSERT INTO uploads (file_id, original_name, size, mime_type, file_type, file_hash, stored_path, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		upload.FileID, upload.OriginalName, upload.Size, upload.MimeType, string(upload.FileType),
		upload.FileHash, upload.StoredPath, upload.CreatedAt.UTC(), upload.ExpiresAt.UTC())
}

// GetUpload returns the upload record for fileID, lazily expiring it if past
// its TTL.
func (s *Store) GetUpload(ctx context.Context, fileID string) (Upload, error) {
	var upload Upload
	expired := false
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `
			SELECT file_id, original_name, size, mime_type, file_type, file_hash, stored_path, created_at, expires_at
			FROM uploads WHERE file_id = ?`, fileID)
		var fileType string
		if err := row.Scan(&upload.FileID, &upload.OriginalName, &upload.Size, &upload.MimeType, &fileType,
			&upload.FileHash, &upload.StoredPath, &upload.CreatedAt, &upload.ExpiresAt); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return apperr.Wrap(apperr.KindNotFound, "metadata:get_upload", "no such file_id", ErrUploadNotFound)
			}
			return err
		}
		upload.FileType = FileType(fileType)

		if time.Now().UTC().After(upload.ExpiresAt.UTC()) {
			if _, err := tx.ExecContext(ctx, "DELETE FROM uploads WHERE file_id = ?", fileID); err != nil {
				return err
			}
			expired = true
		}
		return nil
	})
	if err != nil {
		return Upload{}, err
	}
	if expired {
		return Upload{}, apperr.Wrap(apperr.KindNotFound, "metadata:get_upload", "upload expired", ErrUploadNotFound)
	}
	return upload, nil
}

// FindUploadByHash returns a live upload sharing file_hash, used by the
// upload store's content-dedup path.
func (s *Store) FindUploadByHash(ctx context.Context, fileHash string) (Upload, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT file_id, original_name, size, mime_type, file_type, file_hash, stored_path, created_at, expires_at
		FROM uploads WHERE file_hash = ? AND expires_at > ? ORDER BY created_at DESC LIMIT 1`,
		fileHash, time.Now().UTC())

	var upload Upload
	var fileType string
	if err := row.Scan(&upload.FileID, &upload.OriginalName, &upload.Size, &upload.MimeType, &fileType,
		&upload.FileHash, &upload.StoredPath, &upload.CreatedAt, &upload.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Upload{}, false, nil
		}
		return Upload{}, false, err
	}
	upload.FileType = FileType(fileType)
	return upload, true, nil
}

// CountUploadsByStoredPath reports how many upload records reference path,
// used to decide whether removing a record should also remove the file.
func (s *Store) CountUploadsByStoredPath(ctx context.Context, storedPath string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM uploads WHERE stored_path = ?", storedPath).Scan(&count)
	return count, err
}

// DeleteUpload removes the upload record. The caller is responsible for
// checking CountUploadsByStoredPath before removing the underlying file.
func (s *Store) DeleteUpload(ctx context.Context, fileID string) error {
	return s.execWithRetry(ctx, "DELETE FROM uploads WHERE file_id = ?", fileID)
}

// ExpiredUploads returns upload records past their TTL, for the background reaper.
func (s *Store) ExpiredUploads(ctx context.Context, now time.Time) ([]Upload, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_id, original_name, size, mime_type, file_type, file_hash, stored_path, created_at, expires_at
		FROM uploads WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var uploads []Upload
	for rows.Next() {
		var upload Upload
		var fileType string
		if err := rows.Scan(&upload.FileID, &upload.OriginalName, &upload.Size, &upload.MimeType, &fileType,
			&upload.FileHash, &upload.StoredPath, &upload.CreatedAt, &upload.ExpiresAt); err != nil {
			return nil, err
		}
		upload.FileType = FileType(fileType)
		uploads = append(uploads, upload)
	}
	return uploads, rows.Err()
}
