package httpapi

import (
	"time"

	"vidsum/internal/gc"
	"vidsum/internal/metadata"
)

// UploadResponse mirrors metadata.Upload for the /api/uploads response
// body.
type UploadResponse struct {
	FileID       string    `json:"file_id"`
	OriginalName string    `json:"original_name"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mime_type"`
	FileType     string    `json:"file_type"`
	FileHash     string    `json:"file_hash"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func newUploadResponse(u metadata.Upload) UploadResponse {
	return UploadResponse{
		FileID:       u.FileID,
		OriginalName: u.OriginalName,
		Size:         u.Size,
		MimeType:     u.MimeType,
		FileType:     string(u.FileType),
		FileHash:     u.FileHash,
		CreatedAt:    u.CreatedAt,
		ExpiresAt:    u.ExpiresAt,
	}
}

// sourceRequest is the shared shape of /api/cache/lookup and
// /api/summaries bodies: a source descriptor plus, for summaries, the
// refresh flag.
type sourceRequest struct {
	SourceType string `json:"source_type" validate:"required,oneof=url local"`
	SourceURL  string `json:"source_url,omitempty" validate:"omitempty,httpurl"`
	FileID     string `json:"file_id,omitempty" validate:"omitempty,fileid"`
	FileHash   string `json:"file_hash,omitempty" validate:"omitempty,hex64"`
	SourceName string `json:"source_name,omitempty"`
}

// LookupRequest is the body of POST /api/cache/lookup.
type LookupRequest struct {
	sourceRequest
}

// SummaryRequest is the body of POST /api/summaries.
type SummaryRequest struct {
	sourceRequest
	Refresh bool `json:"refresh,omitempty"`
}

// resolveCombinedConstraints enforces the combined-field rules that
// individual field-format validation cannot catch since every field
// involved is independently well-formed.
func resolveCombinedConstraints(req sourceRequest) error {
	const op = "httpapi:resolve_source"

	if req.FileID != "" && req.FileHash != "" {
		return newConstraintViolation(op, "exactly one of file_id or file_hash may be given")
	}
	switch req.SourceType {
	case "url":
		if req.SourceURL == "" {
			return newConstraintViolation(op, "source_type=url requires source_url")
		}
		if req.FileID != "" || req.FileHash != "" {
			return newConstraintViolation(op, "source_type=url must not carry a local identifier")
		}
	case "local":
		if req.SourceURL != "" {
			return newConstraintViolation(op, "source_type=local must not carry source_url")
		}
		if req.FileID == "" && req.FileHash == "" {
			return newConstraintViolation(op, "source_type=local requires file_id or file_hash")
		}
	}
	return nil
}

// LookupResult is the body of a successful POST /api/cache/lookup.
type LookupResult struct {
	CacheKey    string `json:"cache_key"`
	Hit         bool   `json:"hit"`
	Status      string `json:"status,omitempty"`
	SummaryText string `json:"summary_text,omitempty"`
}

func newLookupResult(entry metadata.CacheEntry, hit bool) LookupResult {
	result := LookupResult{CacheKey: entry.CacheKey, Hit: hit}
	if entry.Status != "" {
		result.Status = string(entry.Status)
	}
	if hit {
		result.SummaryText = entry.SummaryText
	}
	return result
}

// SummaryResult is the body of a successful POST /api/summaries, returned
// at 200 for a hit or 202 for newly-enqueued work.
type SummaryResult struct {
	CacheKey    string `json:"cache_key"`
	JobID       string `json:"job_id,omitempty"`
	Status      string `json:"status"`
	SummaryText string `json:"summary_text,omitempty"`
}

// JobStatusResponse is the body of GET /api/jobs/{job_id}.
type JobStatusResponse struct {
	JobID     string    `json:"job_id"`
	CacheKey  string    `json:"cache_key"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newJobStatusResponse(j metadata.Job) JobStatusResponse {
	return JobStatusResponse{
		JobID:     j.JobID,
		CacheKey:  j.CacheKey,
		Status:    string(j.Status),
		Error:     j.Error,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// CacheEntryResponse is the body of GET /api/cache/{cache_key}.
type CacheEntryResponse struct {
	CacheKey       string    `json:"cache_key"`
	SourceType     string    `json:"source_type"`
	SourceRef      string    `json:"source_ref"`
	Status         string    `json:"status"`
	SummaryText    string    `json:"summary_text,omitempty"`
	SourceName     string    `json:"source_name,omitempty"`
	BundlePath     string    `json:"bundle_path,omitempty"`
	Error          string    `json:"error,omitempty"`
	ProfileVersion int       `json:"profile_version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	LastAccessed   time.Time `json:"last_accessed"`
}

func newCacheEntryResponse(e metadata.CacheEntry) CacheEntryResponse {
	return CacheEntryResponse{
		CacheKey:       e.CacheKey,
		SourceType:     string(e.SourceType),
		SourceRef:      e.SourceRef,
		Status:         string(e.Status),
		SummaryText:    e.SummaryText,
		SourceName:     e.SourceName,
		BundlePath:     e.BundlePath,
		Error:          e.Error,
		ProfileVersion: e.ProfileVersion,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
		LastAccessed:   e.LastAccessed,
	}
}

// GCResultResponse is the body of a successful POST /api/cache/gc.
type GCResultResponse struct {
	ExpiredRemoved  int   `json:"expired_removed"`
	FailedRemoved   int   `json:"failed_removed"`
	OversizeRemoved int   `json:"oversize_removed"`
	BytesFreed      int64 `json:"bytes_freed"`
}

func newGCResultResponse(r gc.Result) GCResultResponse {
	return GCResultResponse{
		ExpiredRemoved:  r.ExpiredRemoved,
		FailedRemoved:   r.FailedRemoved,
		OversizeRemoved: r.OversizeRemoved,
		BytesFreed:      r.BytesFreed,
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
