package errors

import "errors"

// Sentinels for collaborator failures. Callers wrap them with fmt.Errorf
// ("...: %w", Err...) and the HTTP layer maps them to status codes.
var (
	// ErrUnauthorized is a generic sentinel for auth failures.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is a generic sentinel for invalid input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDocumentNotFound means the document record or its download URL is missing.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrFetchFailed means the document binary could not be downloaded.
	ErrFetchFailed = errors.New("document fetch failed")
	// ErrEmbeddingFailed means embedding generation or vector persistence failed.
	ErrEmbeddingFailed = errors.New("embedding failed")
	// ErrCompletionFailed means a language model call failed.
	ErrCompletionFailed = errors.New("completion failed")
	// ErrStoreUnavailable means the transcript store is unreachable.
	ErrStoreUnavailable = errors.New("store unavailable")
)
