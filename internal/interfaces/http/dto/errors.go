package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Request error codes
const (
	// ErrCodeValidation is used when query or path parameters fail validation
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid identifiers and filters
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeNotFound is used when a stored artifact does not exist
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeRequestCanceled is used when the caller went away mid-request
	ErrCodeRequestCanceled = "ERR_REQUEST_CANCELED"
	// ErrCodeTimeout is used when the request deadline passed
	ErrCodeTimeout = "ERR_TIMEOUT"
	// ErrCodeRateLimited is used when a caller exceeds the batch export quota
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// CRM error codes
const (
	// ErrCodeUpstreamUnavailable is used when the CRM cannot be reached
	ErrCodeUpstreamUnavailable = "ERR_UPSTREAM_UNAVAILABLE"
	// ErrCodeUpstreamBadResponse is used when the CRM answer is unusable
	ErrCodeUpstreamBadResponse = "ERR_UPSTREAM_BAD_RESPONSE"
)

// Export error codes
const (
	// ErrCodeClientNotActive is used when the client fails the activation gate
	ErrCodeClientNotActive = "ERR_CLIENT_NOT_ACTIVE"
	// ErrCodeMissingCoordinates is used when a single export has no usable point
	ErrCodeMissingCoordinates = "ERR_MISSING_COORDINATES"
	// ErrCodeExportFailed is used when the map document could not be written
	ErrCodeExportFailed = "ERR_EXPORT_FAILED"
)

// StatusClientClosedRequest is the non-standard status logged when the
// client disconnects before the response is written
const StatusClientClosedRequest = 499

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Request errors
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeRequestCanceled: StatusClientClosedRequest,
	ErrCodeTimeout:         http.StatusGatewayTimeout,

	// CRM errors
	ErrCodeUpstreamUnavailable: http.StatusServiceUnavailable,
	ErrCodeUpstreamBadResponse: http.StatusBadGateway,

	// Export errors -> 422 when the data blocks the export
	ErrCodeClientNotActive:    http.StatusUnprocessableEntity,
	ErrCodeMissingCoordinates: http.StatusUnprocessableEntity,
	ErrCodeExportFailed:       http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":             ErrCodeNotFound,
	"INVALID_INPUT":         ErrCodeInvalidInput,
	"VALIDATION_ERROR":      ErrCodeValidation,
	"BAD_REQUEST":           ErrCodeBadRequest,
	"INTERNAL_ERROR":        ErrCodeInternal,
	"UPSTREAM_UNAVAILABLE":  ErrCodeUpstreamUnavailable,
	"UPSTREAM_BAD_RESPONSE": ErrCodeUpstreamBadResponse,
	"CLIENT_NOT_ACTIVE":     ErrCodeClientNotActive,
	"MISSING_COORDINATES":   ErrCodeMissingCoordinates,
	"EXPORT_FAILED":         ErrCodeExportFailed,
}

// NormalizeErrorCode converts a domain error code to the API format
// If the code is already in the API format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
