package docstore

import "errors"

var (
	// ErrNoDocuments is returned by FindOne when nothing matches the filter.
	// Zero-match updates and deletes are not errors; they return count 0.
	ErrNoDocuments = errors.New("docstore: no documents in result")

	// ErrInvalidID marks an identifier that is not 24 lowercase hex characters.
	ErrInvalidID = errors.New("docstore: invalid object id")

	// ErrInvalidUpdate marks an update expression that mixes $-directives with
	// plain fields, or names a directive the store does not recognize.
	ErrInvalidUpdate = errors.New("docstore: invalid update expression")
)
