package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/tally/internal/models"
	"github.com/bobmcallan/tally/internal/services/analysis"
	"github.com/bobmcallan/tally/internal/services/chart"
	"github.com/bobmcallan/tally/internal/services/dataset"
	"github.com/bobmcallan/tally/internal/services/ingest"
	"github.com/bobmcallan/tally/internal/services/report"
)

// Error codes carried in ErrorResponse.Code
const (
	CodeBadRequest       = "bad_request"
	CodeUnauthorized     = "unauthorized"
	CodeNotFound         = "not_found"
	CodeMethodNotAllowed = "method_not_allowed"
	CodeTooLarge         = "too_large"
	CodeNotEnoughData    = "not_enough_data"
	CodeInternal         = "internal_error"
	CodeInconsistent     = "internal_consistency"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response with the default code for the status.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteErrorWithCode(w, statusCode, message, codeForStatus(statusCode))
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// WriteBytes writes a non-JSON body. When filename is set the response is
// offered as a download.
func WriteBytes(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	if filename != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeBadRequest
	case http.StatusUnauthorized:
		return CodeUnauthorized
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusMethodNotAllowed:
		return CodeMethodNotAllowed
	case http.StatusRequestEntityTooLarge:
		return CodeTooLarge
	case http.StatusUnprocessableEntity:
		return CodeNotEnoughData
	}
	if status >= 500 {
		return CodeInternal
	}
	return ""
}

// WriteServiceError maps a service error onto a status code.
func WriteServiceError(w http.ResponseWriter, err error) {
	var ice *analysis.InternalConsistencyError
	switch {
	case errors.Is(err, models.ErrDatasetNotFound),
		errors.Is(err, models.ErrUploadNotFound),
		errors.Is(err, ingest.ErrSampleNotFound),
		errors.Is(err, chart.ErrUnknownChart):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, dataset.ErrTooLarge):
		WriteError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, dataset.ErrInvalidUpload),
		errors.Is(err, ingest.ErrNoHeader),
		errors.Is(err, report.ErrUnknownFormat):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chart.ErrNotEnoughData):
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &ice):
		WriteErrorWithCode(w, http.StatusInternalServerError, err.Error(), CodeInconsistent)
	default:
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, dataset.MaxUploadBytes)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// QueryBool parses a boolean query parameter, defaulting to false.
func QueryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

// QueryInt parses a positive integer query parameter, or returns 0.
func QueryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// PathParam extracts a path parameter from the URL path.
// For a pattern like /api/datasets/{id}/report, calling PathParam(r, "/api/datasets/", "/report")
// extracts the {id} part.
func PathParam(r *http.Request, prefix, suffix string) string {
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if suffix != "" {
		idx := strings.Index(rest, suffix)
		if idx < 0 {
			return rest
		}
		return rest[:idx]
	}
	// No suffix, return up to the next /
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}
