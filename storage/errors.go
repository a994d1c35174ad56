package storage

import "errors"

var (
	// ErrNotFound indicates no record exists for the given key.
	ErrNotFound = errors.New("storage: record not found")

	// ErrCorrupt indicates a stored record has an unexpected size or format.
	ErrCorrupt = errors.New("storage: corrupt record")

	// ErrInvalidPath indicates the database path is empty.
	ErrInvalidPath = errors.New("storage: invalid database path")
)
