package model

import "errors"

var (
	// ErrValidation marks malformed input. No write happens when it is returned.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a reference to a record the caller does not own,
	// whether or not it exists under another owner.
	ErrNotFound = errors.New("memory not found")
)
