// Package common defines shared constants and sentinel errors used across
// gophblog layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// ErrReferenceMissing means a row points at a parent that does not exist
	// (foreign key violation), e.g. a post whose author was deleted.
	ErrReferenceMissing = errors.New("referenced row does not exist")

	// ErrTransient marks storage failures caused by contention (serialization
	// failures, deadlocks, lock timeouts). The operation may be retried.
	ErrTransient = errors.New("transient storage failure")

	// Service-level errors.
	ErrInternal = errors.New("internal error")

	// Credential errors.
	ErrMalformedHash = errors.New("malformed password hash")
)
