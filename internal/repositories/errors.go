package repositories

import "errors"

// ErrNotFound is returned (wrapped) when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned (wrapped) when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate record")
