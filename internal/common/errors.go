// Package common defines shared sentinel errors used across the service
// layers of Photofeed. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrInternal         = errors.New("internal error")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrStoreUnavailable = errors.New("metadata store unavailable")

	// Upload validation errors.
	ErrValidation         = errors.New("validation error")
	ErrInvalidContentType = errors.New("unsupported content type")

	// Capability issuance errors.
	ErrCapabilityIssuance = errors.New("capability issuance failed")

	// Pagination errors. A malformed or tampered cursor fails closed:
	// it is never silently treated as the start of the list.
	ErrInvalidCursor = errors.New("invalid cursor")
)
