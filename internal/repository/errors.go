package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")
	// ErrInvalidArgument indicates a constraint violation caused by caller input.
	ErrInvalidArgument = errors.New("repository: invalid argument")
	// ErrConflict indicates a transient serialization conflict that may succeed on retry.
	ErrConflict = errors.New("repository: conflict")
)
