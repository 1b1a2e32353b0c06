package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	fileIDPattern = regexp.MustCompile(`^f_[0-9a-f]{32}$`)
	jobIDPattern  = regexp.MustCompile(`^j_[0-9a-f]{32}$`)
	hex64Pattern  = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// Use the JSON tag as the field name reported back to clients, matching
	// the request body shape instead of the Go struct shape.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	mustRegister := func(tag string, pattern *regexp.Regexp) {
		err := validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return pattern.MatchString(fl.Field().String())
		})
		if err != nil {
			panic(err)
		}
	}
	mustRegister("fileid", fileIDPattern)
	mustRegister("jobid", jobIDPattern)
	mustRegister("hex64", hex64Pattern)

	if err := validate.RegisterValidation("httpurl", validateHTTPURL); err != nil {
		panic(err)
	}
}

// validateHTTPURL enforces that source_url is a syntactically valid
// http/https URL — stricter than validator's built-in "url" tag, which
// accepts any scheme.
func validateHTTPURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// fieldError is one entry of a request's validation failure, keyed by the
// JSON field name rather than the Go struct field name.
type fieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
}

// validationError carries one or more fieldErrors. It is handled
// separately from apperr.Error because per-field format violations get a
// 400 with an `errors` breakdown, distinct from both plain
// invalid_argument and constraint_violation.
type validationError struct {
	fields []fieldError
}

func (e *validationError) Error() string {
	parts := make([]string, 0, len(e.fields))
	for _, f := range e.fields {
		parts = append(parts, f.Field+":"+f.Tag)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// decodeAndValidate JSON-decodes r's body into dst and runs struct-tag
// validation against it. Combined cross-field constraints are the caller's responsibility once this passes.
func decodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return newInvalidArgument("httpapi:decode", "request body is not valid JSON")
	}
	if err := validate.Struct(dst); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return newInvalidArgument("httpapi:validate", "request failed validation")
		}
		fields := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fieldError{Field: fe.Field(), Tag: fe.Tag()})
		}
		return &validationError{fields: fields}
	}
	return nil
}
