package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi:get_job"
	jobID := chi.URLParam(r, "job_id")
	if !jobIDPattern.MatchString(jobID) {
		writeError(w, r, newInvalidArgument(op, "job_id must match ^j_[0-9a-f]{32}$"))
		return
	}

	job, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newJobStatusResponse(job))
}
