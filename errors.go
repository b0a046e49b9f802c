package fhirstore

import "errors"

// The repository reports failures through a closed taxonomy. Callers branch
// on category: retry Conflict after a fresh read, stop on NotFound/Deleted.
// Store-level failures that the adapter does not recognize pass through
// unchanged.

// ConflictError signals a duplicate id on create, or a version mismatch or
// non-existence on a conditional update.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// NotFoundError signals a read or delete of a resource that has no current
// state and no history.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// DeletedError signals a read of a resource that has history but no current
// state: it existed and was deleted.
type DeletedError struct {
	Message string
}

func (e *DeletedError) Error() string { return e.Message }

// ValidationError signals structurally invalid caller input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsDeleted reports whether err is a DeletedError.
func IsDeleted(err error) bool {
	var e *DeletedError
	return errors.As(err, &e)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}
