// Package httpapi is the external-boundary facade: a chi
// router that validates requests strictly, maps engine outcomes to HTTP
// status codes through internal/apperr, and enforces the two independent
// rate-limit buckets (upload, summary) ahead of any store work.
package httpapi
