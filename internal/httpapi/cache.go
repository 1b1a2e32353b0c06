package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"vidsum/internal/cache"
)

// handleLookup is the read-only probe: it resolves a source to its
// cache_key and reports whether a valid hit exists, without ever creating
// a pending entry or job.
func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	var req LookupRequest
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
		lookup, err = s.coordinator.ProbeURL(r.Context(), req.SourceURL)
	case "local":
		upload, uerr := s.resolveUpload(r.Context(), req.FileID, req.FileHash)
		if uerr != nil {
			writeError(w, r, uerr)
			return
		}
		lookup, err = s.coordinator.ProbeLocal(r.Context(), upload.FileHash)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newLookupResult(lookup.Entry, lookup.Hit))
}

func (s *Server) handleGetCacheEntry(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi:get_cache_entry"
	cacheKey := chi.URLParam(r, "cache_key")
	if !hex64Pattern.MatchString(cacheKey) {
		writeError(w, r, newInvalidArgument(op, "cache_key must be 64 lowercase hex characters"))
		return
	}

	entry, err := s.store.GetCacheEntry(r.Context(), cacheKey)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newCacheEntryResponse(entry))
}

func (s *Server) handleDeleteCacheEntry(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi:delete_cache_entry"
	cacheKey := chi.URLParam(r, "cache_key")
	if !hex64Pattern.MatchString(cacheKey) {
		writeError(w, r, newInvalidArgument(op, "cache_key must be 64 lowercase hex characters"))
		return
	}

	if err := s.coordinator.Delete(r.Context(), cacheKey); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"deleted": true})
}

// handleCacheGC runs one retention sweep on demand, applying the same
// cache_ttl_days/failed_ttl_hours/cache_max_bytes policy the daemon's
// periodic sweep enforces in the background.
func (s *Server) handleCacheGC(w http.ResponseWriter, r *http.Request) {
	result, err := s.sweeper.Run(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newGCResultResponse(result))
}
