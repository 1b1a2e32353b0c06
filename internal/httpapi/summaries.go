package httpapi

import (
	"net/http"

	"vidsum/internal/cache"
	"vidsum/internal/fileutil"
)

// handleSummary implements the get-or-create endpoint: 200 with the
// summary on a hit (or a terminal failed entry without refresh), 202 with
// a job_id once new work has been enqueued.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var req SummaryRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := resolveCombinedConstraints(req.sourceRequest); err != nil {
		writeError(w, r, err)
		return
	}

	var lookup cache.Lookup
	var err error
	switch req.SourceType {
	case "url":
		lookup, err = s.coordinator.LookupURL(r.Context(), req.SourceURL, req.SourceName, req.Refresh)
	case "local":
		upload, uerr := s.resolveUpload(r.Context(), req.FileID, req.FileHash)
		if uerr != nil {
			writeError(w, r, uerr)
			return
		}
		sourceName := req.SourceName
		if sourceName == "" {
			sourceName = fileutil.DisplayTitle(upload.OriginalName)
		}
		lookup, err = s.coordinator.LookupLocal(r.Context(), upload, sourceName, req.Refresh)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	if lookup.Item == nil {
		if lookup.JobID != "" {
			// A job for this source is already pending or running: report it
			// as accepted without enqueueing a second run of the same job.
			writeJSON(w, r, http.StatusAccepted, SummaryResult{
				CacheKey: lookup.Entry.CacheKey,
				JobID:    lookup.JobID,
				Status:   string(lookup.Entry.Status),
			})
			return
		}
		writeJSON(w, r, http.StatusOK, SummaryResult{
			CacheKey:    lookup.Entry.CacheKey,
			Status:      string(lookup.Entry.Status),
			SummaryText: lookup.Entry.SummaryText,
		})
		return
	}

	if err := s.queue.Enqueue(lookup.Item); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusAccepted, SummaryResult{
		CacheKey: lookup.Item.CacheKey,
		JobID:    lookup.Item.JobID,
		Status:   "pending",
	})
}
