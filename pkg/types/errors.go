package types

import "errors"

// Domain errors for type validation
var (
	// File metadata errors
	ErrMissingIdentity = errors.New("identity is required")
	ErrMissingPath     = errors.New("path is required")
	ErrNegativeSize    = errors.New("size cannot be negative")

	// Task errors
	ErrUnknownTaskKind = errors.New("unknown task kind")
	ErrIncompleteMove  = errors.New("move task requires both old and new paths")

	// Search result errors
	ErrInvalidRank  = errors.New("rank must be >= 1")
	ErrInvalidScore = errors.New("total score must be between 0 and 1")
)
