package comment

import "errors"

var (
	// ErrValidation — the comment text is empty after trimming.
	// Rejected before any store call is made.
	ErrValidation = errors.New("comment text is required")
	// ErrFetch — the store could not be read.
	ErrFetch = errors.New("fetching comments")
	// ErrSubscribe — the live subscription failed; the last snapshot stays valid.
	ErrSubscribe = errors.New("subscribing to comments")
	// ErrPersist — the store rejected or failed a write. Retryable.
	ErrPersist = errors.New("saving comment")
)
