package query

import "errors"

var (
	// ErrUnavailable means a collaborator the query needs is not configured.
	ErrUnavailable = errors.New("not available")
	// ErrNotFound means the requested item does not exist.
	ErrNotFound = errors.New("not found")
)
