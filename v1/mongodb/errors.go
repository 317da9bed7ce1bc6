package mongodb

import (
	"errors"
	"fmt"
)

// Common MongoDB component errors
var (
	// ErrInvalidRequest is returned when a request is missing required
	// fields or carries values out of range.
	ErrInvalidRequest = errors.New("[MongoDB] invalid request")

	// ErrNotFound is returned when no document matches the given id.
	ErrNotFound = errors.New("[MongoDB] document not found")

	// ErrNoSearchMode is returned when a retrieve request names no search
	// mode and no pipeline stages.
	ErrNoSearchMode = fmt.Errorf("%w: one of vectorSearch, search or hybridSearch is required", ErrInvalidRequest)

	// ErrMultipleSearchModes is returned when a retrieve request names more
	// than one search mode.
	ErrMultipleSearchModes = fmt.Errorf("%w: only one of vectorSearch, search or hybridSearch may be set", ErrInvalidRequest)

	// ErrEmbedderNotFound is returned when a component references an
	// embedder that has not been registered.
	ErrEmbedderNotFound = errors.New("[MongoDB] embedder not found")

	// ErrClientNotInitialized is returned when the client is used after
	// Close or before it was connected.
	ErrClientNotInitialized = errors.New("[MongoDB] client not initialized")
)

// IsNotFound checks if the error is a "document not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidRequest checks if the error was caused by an invalid request.
func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}
