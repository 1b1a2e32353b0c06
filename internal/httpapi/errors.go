package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"vidsum/internal/apperr"
)

// ErrorResponse is the stable error envelope every non-2xx response uses
//: {message, code, status, request_id, detail?, errors?}.
type ErrorResponse struct {
	Message   string       `json:"message"`
	Code      string       `json:"code"`
	Status    int          `json:"status"`
	RequestID string       `json:"request_id"`
	Detail    string       `json:"detail,omitempty"`
	Errors    []fieldError `json:"errors,omitempty"`
}

func newInvalidArgument(op, message string) error {
	return apperr.New(apperr.KindInvalidArgument, op, message)
}

func newConstraintViolation(op, message string) error {
	return apperr.New(apperr.KindConstraintViolation, op, message)
}

func newTooManyRequests(op, message string) error {
	return apperr.New(apperr.KindTooManyRequests, op, message)
}

func requestIDFrom(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}

// writeJSON encodes v as status's body, setting the request-id header that
// every response — success or failure — carries.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("x-request-id", requestIDFrom(r))
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError classifies err through apperr (or recognizes a *validationError
// built at the request-validation boundary) and writes the matching
// envelope and status code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if verr, ok := err.(*validationError); ok {
		writeJSON(w, r, http.StatusBadRequest, ErrorResponse{
			Message:   "request failed validation",
			Code:      string(apperr.KindInvalidArgument),
			Status:    http.StatusBadRequest,
			RequestID: requestIDFrom(r),
			Errors:    verr.fields,
		})
		return
	}

	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	writeJSON(w, r, status, ErrorResponse{
		Message:   err.Error(),
		Code:      string(kind),
		Status:    status,
		RequestID: requestIDFrom(r),
	})
}
