package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a unique constraint violation.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated indicates the request carries no valid credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the principal resolved but lacks a required
	// role or permission.
	ErrForbidden = errors.New("forbidden")
	// ErrSystemRole indicates an attempt to delete a seeded system role.
	ErrSystemRole = errors.New("system role cannot be deleted")
)
