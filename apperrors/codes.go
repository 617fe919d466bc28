package apperrors

import (
	"fmt"
	"net/http"
)

// Store error codes.
const (
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
)

// Catalog error codes.
const (
	CodeNoOrdersFound     = "NO_ORDERS_FOUND"
	CodeReferenceNotFound = "REFERENCE_NOT_FOUND"
)

// Session error codes.
const (
	CodeSessionConflict  = "SESSION_CONFLICT"
	CodeQuotaExceeded    = "QUOTA_EXCEEDED"
	CodeBatchComplete    = "BATCH_COMPLETE"
	CodeUnknownSession   = "UNKNOWN_SESSION"
	CodeAlreadyFinalized = "ALREADY_FINALIZED"
	CodeSessionNotOwned  = "SESSION_NOT_OWNED"
)

// Line item error codes.
const (
	CodeImmutableOriginal = "IMMUTABLE_ORIGINAL"
	CodeCapacityExceeded  = "CAPACITY_EXCEEDED"
	CodeLineNotFound      = "LINE_NOT_FOUND"
)

// Request error codes.
const (
	CodeInvalidRequestField = "INVALID_REQUEST_FIELD"
	CodeValidationFailed    = "VALIDATION_FAILED"
	CodeUnauthorized        = "UNAUTHORIZED"
)

// ErrStoreUnavailable wraps a store connection failure.
func ErrStoreUnavailable(err error) *AppError {
	return Wrap(err, CodeStoreUnavailable, "production store is unavailable", http.StatusServiceUnavailable)
}

// ErrNoOrdersFound reports a parent batch without catalog rows.
func ErrNoOrdersFound(parentBatch string) *AppError {
	return NotFound(CodeNoOrdersFound, "no orders found for batch").
		WithParams(map[string]interface{}{"parent_batch": parentBatch})
}

// ErrSessionConflict reports an operator already active on another batch.
func ErrSessionConflict(activeParent, sessionKey string) *AppError {
	return Conflict(CodeSessionConflict, "operator already has an active session on another batch").
		WithParams(map[string]interface{}{
			"active_parent_batch": activeParent,
			"session_key":         sessionKey,
		})
}

// ErrQuotaExceeded reports a start request above the remaining quota.
func ErrQuotaExceeded(requested, inProcess, remaining int) *AppError {
	return Conflict(CodeQuotaExceeded, "requested sheet count exceeds remaining quota").
		WithParams(map[string]interface{}{
			"requested":  requested,
			"in_process": inProcess,
			"remaining":  remaining,
		})
}

// ErrBatchComplete reports a batch whose quota is fully produced.
func ErrBatchComplete(parentBatch string, meta int) *AppError {
	return Conflict(CodeBatchComplete, "batch production is complete").
		WithParams(map[string]interface{}{"parent_batch": parentBatch, "meta": meta})
}

// ErrUnknownSession reports a session key with no rows.
func ErrUnknownSession(sessionKey string) *AppError {
	return NotFound(CodeUnknownSession, "production session not found").
		WithParams(map[string]interface{}{"session_key": sessionKey})
}

// ErrAlreadyFinalized reports a second finalization of the same session.
func ErrAlreadyFinalized(sessionKey string) *AppError {
	return Conflict(CodeAlreadyFinalized, "production session already finalized").
		WithParams(map[string]interface{}{"session_key": sessionKey})
}

// ErrSessionNotOwned reports access to another operator's session.
func ErrSessionNotOwned(sessionKey string) *AppError {
	return Forbidden(CodeSessionNotOwned, "production session belongs to another operator").
		WithParams(map[string]interface{}{"session_key": sessionKey})
}

// ErrImmutableOriginal reports removal of a catalog-seeded line.
func ErrImmutableOriginal(lineID string) *AppError {
	return Conflict(CodeImmutableOriginal, "catalog lines cannot be removed").
		WithParams(map[string]interface{}{"line_id": lineID})
}

// ErrCapacityExceeded reports a width change above the sheet capacity.
func ErrCapacityExceeded(capacity, used, requested float64) *AppError {
	return Conflict(CodeCapacityExceeded, "total strip width exceeds sheet width capacity").
		WithParams(map[string]interface{}{
			"capacity":  capacity,
			"requested": requested,
			"headroom":  capacity - used,
		})
}

// ErrLineNotFound reports an unknown line id in a working set.
func ErrLineNotFound(lineID string) *AppError {
	return NotFound(CodeLineNotFound, "line item not found").
		WithParams(map[string]interface{}{"line_id": lineID})
}

// ErrReferenceNotFound reports a width with no catalog match.
func ErrReferenceNotFound(width float64) *AppError {
	return NotFound(CodeReferenceNotFound, fmt.Sprintf("no catalog reference for width %g", width)).
		WithParams(map[string]interface{}{"width": width})
}

// ErrValidation reports an invalid request value.
func ErrValidation(field, message string) *AppError {
	return BadRequest(CodeValidationFailed, message).
		WithParams(map[string]interface{}{"field": field})
}
