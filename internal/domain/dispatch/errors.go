package dispatch

import (
	"errors"

	"github.com/osmap/backend/internal/domain/shared"
)

// Error codes of the export pipeline
const (
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeUpstreamBadResponse = "UPSTREAM_BAD_RESPONSE"
	CodeClientNotActive     = "CLIENT_NOT_ACTIVE"
	CodeMissingCoordinates  = "MISSING_COORDINATES"
	CodeExportFailed        = "EXPORT_FAILED"
)

// Detail keys attached to pipeline errors
const (
	DetailOrderID  = "order_id"
	DetailClientID = "client_id"
	DetailStatus   = "status"
	DetailReason   = "reason"
)

// ReasonEmptyResult marks an UpstreamBadResponse caused by an empty result
// set. The CRM does not tell "no such record" apart from a glitch, so the
// code stays the same and only the reason differs.
const ReasonEmptyResult = "empty_result"

// ReasonMissingClient marks an order row that names no client
const ReasonMissingClient = "missing_client_id"

// NewMissingClientError reports an order the CRM returned without a client
func NewMissingClientError(orderID string) error {
	return ErrUpstreamBadResponse.
		WithMessage("order %s has no client", orderID).
		WithDetail(DetailOrderID, orderID).
		WithDetail(DetailReason, ReasonMissingClient)
}

var (
	// ErrUpstreamUnavailable means the CRM could not be reached or timed out
	ErrUpstreamUnavailable = shared.NewDomainError(CodeUpstreamUnavailable, "CRM is unavailable")
	// ErrUpstreamBadResponse means the CRM answered with a non-success status or an unusable payload
	ErrUpstreamBadResponse = shared.NewDomainError(CodeUpstreamBadResponse, "CRM returned an unusable response")
	// ErrClientNotActive means the client failed the activation gate
	ErrClientNotActive = shared.NewDomainError(CodeClientNotActive, "Client is not active")
	// ErrMissingCoordinates means a strict coordinate resolution found no usable point
	ErrMissingCoordinates = shared.NewDomainError(CodeMissingCoordinates, "Client has no usable coordinates")
	// ErrExportFailed means the marker document could not be produced or written
	ErrExportFailed = shared.NewDomainError(CodeExportFailed, "Map export failed")
)

// NewClientNotActiveError builds the activation-gate failure for a client,
// keeping the observed status for diagnostics.
func NewClientNotActiveError(clientID, status string) error {
	return ErrClientNotActive.
		WithMessage("client %s is not active (status %q)", clientID, status).
		WithDetail(DetailClientID, clientID).
		WithDetail(DetailStatus, status)
}

// NewMissingCoordinatesError builds the strict-mode coordinate failure
func NewMissingCoordinatesError(clientID string) error {
	return ErrMissingCoordinates.
		WithMessage("client %s has no usable coordinates", clientID).
		WithDetail(DetailClientID, clientID)
}

// NewExportFailedError wraps a document writer failure
func NewExportFailedError(cause error) error {
	return ErrExportFailed.WithCause(cause)
}

// ErrorCode extracts the domain error code, or "" for foreign errors
func ErrorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsItemFailure reports whether err is a per-order failure that a batch
// export skips instead of aborting on.
func IsItemFailure(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable) ||
		errors.Is(err, ErrUpstreamBadResponse) ||
		errors.Is(err, ErrClientNotActive)
}
