package comment

import "context"

// Store is the data-access seam between the views and a comment backend.
type Store interface {
	// Add validates and persists a new comment, returning its store-assigned id.
	// Text that trims to empty fails with ErrValidation without touching the store.
	Add(ctx context.Context, name, text string) (string, error)

	// FetchLatest returns up to max comments, newest first.
	// Failures wrap ErrFetch.
	FetchLatest(ctx context.Context, max int) ([]Comment, error)

	// Subscribe delivers the full newest-first snapshot (at most max items) to
	// onUpdate once on registration and again after every change. Deliveries to
	// one subscriber never overlap. Stream failures are reported to onError
	// wrapped in ErrSubscribe; a nil onError logs them instead.
	// The returned cancel func stops delivery for all later changes.
	Subscribe(ctx context.Context, max int, onUpdate func([]Comment), onError func(error)) (cancel func(), err error)

	// Kind names the backend ("mongo", "local") for logs and metrics.
	Kind() string

	// Close releases backend resources.
	Close() error
}
