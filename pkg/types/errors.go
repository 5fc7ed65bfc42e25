package types

import "errors"

// Domain errors for type validation
var (
	// Metadata errors
	ErrInvalidStatus = errors.New("invalid metadata status")
	ErrMissingError  = errors.New("error status requires an error message")

	// Search result errors
	ErrUnknownBookmark   = errors.New("result contains unknown bookmark id")
	ErrDuplicateBookmark = errors.New("result contains duplicate bookmark id")
)
