package shared

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrFirmMismatch indicates a record belongs to a different firm than
	// the requester. Distinct from ErrNotFound so authorization failures
	// are never silently folded into missing-record handling.
	ErrFirmMismatch = errors.New("record belongs to a different firm")
)
