package repository

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound = errors.New("record not found")
	ErrConflict = errors.New("record already exists")
)
