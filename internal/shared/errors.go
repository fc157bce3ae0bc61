package shared

import "errors"

var (
	// ErrValidation indicates rejected input, e.g. an inverted date range.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a referenced account/product/document is absent.
	ErrNotFound = errors.New("not found")
	// ErrConsistency indicates ledger/snapshot replay disagreement beyond tolerance.
	ErrConsistency = errors.New("ledger consistency violation")
	// ErrStorage indicates a backing store failure.
	ErrStorage = errors.New("storage failure")
)
