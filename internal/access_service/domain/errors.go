package domain

import "errors"

var (
	// ErrPrincipalNotFound indicates the requested principal has no row.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrDuplicatePrincipal indicates a create raced with another first
	// contact for the same telegram id.
	ErrDuplicatePrincipal = errors.New("principal already exists")
	// ErrInvalidEvent indicates the inbound event is missing required
	// fields (telegram id or first name).
	ErrInvalidEvent = errors.New("invalid inbound event")
	// ErrAccessDenied indicates the principal exists but is not active.
	ErrAccessDenied = errors.New("principal has no access")
)
