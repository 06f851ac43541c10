package providers

import "errors"

var (
	// ErrContentPolicy indicates the provider refused to generate the
	// requested content. Recoverable at the user level: the run continues
	// with a polite ask for a different request.
	ErrContentPolicy = errors.New("content policy rejection")

	// ErrHandleNotFound indicates a follow-up call referenced a provider
	// handle the provider no longer recognizes.
	ErrHandleNotFound = errors.New("provider handle not found")
)
