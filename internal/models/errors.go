package models

import "errors"

var (
	// ErrNotFound is returned when a vendor or sector does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique value already exists.
	ErrConflict = errors.New("already exists")
	// ErrInvalid is returned when the database rejects a field value.
	ErrInvalid = errors.New("invalid value")
	// ErrMalformedArchive is returned when a backup archive cannot be used.
	ErrMalformedArchive = errors.New("malformed archive")
)
