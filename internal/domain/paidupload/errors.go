package paidupload

import "errors"

// Error taxonomy surfaced verbatim to the HTTP layer. Each is
// distinguishable so callers can choose retry vs abort vs alert.
var (
	ErrNotFound            = errors.New("upload request not found")
	ErrUnauthorized        = errors.New("caller does not own this upload request")
	ErrInvalidState        = errors.New("upload request is not in the required status")
	ErrSizeMismatch        = errors.New("actual size deviates from declared size beyond tolerance")
	ErrUpstreamFailure     = errors.New("upstream payment or storage call failed")
	ErrInsufficientBalance = errors.New("storage backing balance insufficient")
)
