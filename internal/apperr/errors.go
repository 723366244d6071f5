// Package apperr defines sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrMalformedHeader  = errors.New("malformed flat table header")
	ErrUnsortedTable    = errors.New("flat table rows are not grouped")
	ErrMissingSource    = errors.New("missing source table")
	ErrAuthFailed       = errors.New("authentication failed")
	ErrUnexpectedStatus = errors.New("unexpected registry status")
)
