package services

import "errors"

// Sentinel errors returned by the service layer. Handlers translate them
// into HTTP statuses; everything else surfaces as an internal error.
var (
	// ErrValidation marks malformed or missing caller input.
	ErrValidation = errors.New("invalid input")
	// ErrReferential marks a reference to a nonexistent parent entity.
	ErrReferential = errors.New("referenced parent does not exist")
	// ErrNotFound marks a missing entity key.
	ErrNotFound = errors.New("not found")
)
